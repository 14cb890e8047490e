package main

import (
	"flag"
	"fmt"
	"io"

	"github.com/decred/dcrd/chaincfg/v3"

	"credanchor.io/anchor/keys"
)

func cmdKey(args []string, out io.Writer, errOut io.Writer) int {
	if len(args) == 0 {
		printKeyUsage(errOut)
		return 2
	}
	switch args[0] {
	case "init":
		return cmdKeyInit(args[1:], out, errOut)
	case "derive":
		return cmdKeyDerive(args[1:], out, errOut)
	case "list":
		return cmdKeyList(args[1:], out, errOut)
	case "export":
		return cmdKeyExport(args[1:], out, errOut)
	case "help", "-h", "--help":
		printKeyUsage(out)
		return 0
	default:
		fmt.Fprintf(errOut, "unknown key subcommand: %s\n\n", args[0])
		printKeyUsage(errOut)
		return 2
	}
}

func printKeyUsage(w io.Writer) {
	fmt.Fprintln(w, "credanchor key: local issuing key management")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  credanchor key init --name <name> [--key-hex <64hex>] [--force]")
	fmt.Fprintln(w, "  credanchor key derive --from <name> --role <role> [--force]")
	fmt.Fprintln(w, "  credanchor key list")
	fmt.Fprintln(w, "  credanchor key export --name <name> [--role <role>]")
}

func openKeyStore(dir, network string, errOut io.Writer) (*keys.KeyStore, *chaincfg.Params, int) {
	params, err := paramsForNetwork(network)
	if err != nil {
		fmt.Fprintf(errOut, "%v\n", err)
		return nil, nil, 2
	}
	ks, err := keys.CreateKeyStore(dir, params)
	if err != nil {
		fmt.Fprintf(errOut, "keys: %v\n", err)
		return nil, nil, 1
	}
	return ks, params, 0
}

func cmdKeyInit(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("key init", flag.ContinueOnError)
	fs.SetOutput(errOut)

	var name, keyHex, keysDir, network string
	var force bool
	fs.StringVar(&name, "name", "", "Key name (directory under ~/.credanchor/keys)")
	fs.StringVar(&keyHex, "key-hex", "", "Optional secp256k1 key as 64 hex chars (for reproducible setups)")
	fs.StringVar(&keysDir, "keys-dir", "", "Key store directory")
	fs.StringVar(&network, "network", "mainnet", "Chain network for address display")
	fs.BoolVar(&force, "force", false, "Overwrite existing key files")

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if name == "" {
		fmt.Fprintln(errOut, "missing --name")
		return 2
	}
	if err := keys.CheckKeyName(name); err != nil {
		fmt.Fprintf(errOut, "invalid --name: %v\n", err)
		return 2
	}
	ks, _, code := openKeyStore(keysDir, network, errOut)
	if code != 0 {
		return code
	}

	var address, rootPath string
	var err error
	if keyHex != "" {
		key, derr := keys.ParseKeyHex(keyHex)
		if derr != nil {
			fmt.Fprintf(errOut, "invalid --key-hex: %v\n", derr)
			return 2
		}
		address, rootPath, err = ks.InitializeRootKey(name, key, force)
	} else {
		address, rootPath, err = ks.GenerateRootKey(name, force)
	}
	if err != nil {
		fmt.Fprintf(errOut, "write key: %v\n", err)
		return 1
	}
	fmt.Fprintf(out, "Created root key: %s\n", address)
	fmt.Fprintf(out, "Stored at: %s\n", rootPath)
	return 0
}

func cmdKeyDerive(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("key derive", flag.ContinueOnError)
	fs.SetOutput(errOut)

	var from, role, keysDir, network string
	var force bool
	fs.StringVar(&from, "from", "", "Root key name")
	fs.StringVar(&role, "role", "", "Role identifier (e.g. revocation, change)")
	fs.StringVar(&keysDir, "keys-dir", "", "Key store directory")
	fs.StringVar(&network, "network", "mainnet", "Chain network for address display")
	fs.BoolVar(&force, "force", false, "Overwrite existing key files")

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if from == "" {
		fmt.Fprintln(errOut, "missing --from")
		return 2
	}
	if role == "" {
		fmt.Fprintln(errOut, "missing --role")
		return 2
	}
	if err := keys.CheckKeyName(from); err != nil {
		fmt.Fprintf(errOut, "invalid --from: %v\n", err)
		return 2
	}
	if err := keys.CheckRole(role); err != nil {
		fmt.Fprintf(errOut, "invalid --role: %v\n", err)
		return 2
	}
	ks, _, code := openKeyStore(keysDir, network, errOut)
	if code != 0 {
		return code
	}
	address, rolePath, err := ks.DeriveKeyFromRole(from, role, force)
	if err != nil {
		fmt.Fprintf(errOut, "derive role key: %v\n", err)
		return 1
	}
	fmt.Fprintf(out, "Created role key: %s\n", address)
	fmt.Fprintf(out, "Stored at: %s\n", rolePath)
	return 0
}

func cmdKeyExport(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("key export", flag.ContinueOnError)
	fs.SetOutput(errOut)

	var name, role, keysDir, network string
	fs.StringVar(&name, "name", "", "Key name")
	fs.StringVar(&role, "role", "", "Optional role (if set, exports the derived role key's address)")
	fs.StringVar(&keysDir, "keys-dir", "", "Key store directory")
	fs.StringVar(&network, "network", "mainnet", "Chain network for address display")

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if name == "" {
		fmt.Fprintln(errOut, "missing --name")
		return 2
	}
	if err := keys.CheckKeyName(name); err != nil {
		fmt.Fprintf(errOut, "invalid --name: %v\n", err)
		return 2
	}
	if role != "" {
		if err := keys.CheckRole(role); err != nil {
			fmt.Fprintf(errOut, "invalid --role: %v\n", err)
			return 2
		}
	}
	ks, _, code := openKeyStore(keysDir, network, errOut)
	if code != 0 {
		return code
	}
	address, err := ks.ExportAddress(name, role)
	if err != nil {
		fmt.Fprintf(errOut, "export key: %v\n", err)
		return 1
	}
	_, _ = fmt.Fprintln(out, address)
	return 0
}

func cmdKeyList(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("key list", flag.ContinueOnError)
	fs.SetOutput(errOut)
	var keysDir, network string
	fs.StringVar(&keysDir, "keys-dir", "", "Key store directory")
	fs.StringVar(&network, "network", "mainnet", "Chain network")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	ks, _, code := openKeyStore(keysDir, network, errOut)
	if code != 0 {
		return code
	}
	entries, err := ks.ListKeys()
	if err != nil {
		fmt.Fprintf(errOut, "list keys: %v\n", err)
		return 1
	}
	for _, e := range entries {
		fmt.Fprintf(out, "%s\n", e.Identifier)
		for _, r := range e.Roles {
			fmt.Fprintf(out, "  - %s\n", r)
		}
	}
	return 0
}
