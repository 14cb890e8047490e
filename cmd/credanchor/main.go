package main

import (
	"encoding/hex"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/decred/dcrd/chaincfg/v3"
	"github.com/decred/dcrd/dcrutil/v4"

	"credanchor.io/anchor/cert"
	"credanchor.io/anchor/issuer"
	"credanchor.io/anchor/txbuild"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, out io.Writer, errOut io.Writer) int {
	if len(args) == 0 {
		printUsage(errOut)
		return 2
	}

	switch args[0] {
	case "issue":
		return cmdIssue(args[1:], out, errOut)
	case "estimate":
		return cmdEstimate(args[1:], out, errOut)
	case "verify-receipt":
		return cmdVerifyReceipt(args[1:], out, errOut)
	case "key":
		return cmdKey(args[1:], out, errOut)
	case "bundle":
		return cmdBundle(args[1:], out, errOut)
	case "help", "-h", "--help":
		printUsage(out)
		return 0
	default:
		fmt.Fprintf(errOut, "unknown command: %s\n\n", args[0])
		printUsage(errOut)
		return 2
	}
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "credanchor: batch credential anchoring CLI")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  credanchor issue --creds <batch.json> --global-revocation <addr> (--key-hex <64hex> | --signer <name> [--signer-role <role>] | --key-file <path>) [flags]")
	fmt.Fprintln(w, "  credanchor estimate --recipients <n> [--revocations <n>] [--min-output <atoms>] [--fee <atoms>]")
	fmt.Fprintln(w, "  credanchor verify-receipt --receipt <file> (--leaf-hash <hex> | --document <file>)")
	fmt.Fprintln(w, "  credanchor key init --name <name> [--key-hex <64hex>] [--force]")
	fmt.Fprintln(w, "  credanchor key derive --from <name> --role <role> [--force]")
	fmt.Fprintln(w, "  credanchor key list")
	fmt.Fprintln(w, "  credanchor key export --name <name> [--role <role>]")
	fmt.Fprintln(w, "  credanchor bundle export --archive <spec> --out <bundle.tar> <cid> [<cid> ...]")
	fmt.Fprintln(w, "  credanchor bundle import --archive <spec> <bundle.tar>")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Notes:")
	fmt.Fprintln(w, "  - batch.json is a JSON array: {id, recipient, revocation?, document? | leaf_hash?}")
	fmt.Fprintln(w, "  - amounts are atoms; addresses must match --network (mainnet, testnet, simnet)")
	fmt.Fprintln(w, "  - keys are stored under ~/.credanchor/keys/<name> (0600 private key files)")
	fmt.Fprintln(w, "  - archive specs: a directory path, localfs:<dir>, or grpc://host:port;")
	fmt.Fprintln(w, "    comma-separated specs replicate to every backend;")
	fmt.Fprintln(w, "    fallback:<spec>,<spec> reads through the list in order, writes to the first")
}

func paramsForNetwork(network string) (*chaincfg.Params, error) {
	switch network {
	case "", "mainnet":
		return chaincfg.MainNetParams(), nil
	case "testnet":
		return chaincfg.TestNet3Params(), nil
	case "simnet":
		return chaincfg.SimNetParams(), nil
	default:
		return nil, fmt.Errorf("unknown network %q", network)
	}
}

// costFlags is the shared cost-model flag group of issue and estimate.
type costFlags struct {
	minOutput    int64
	fee          int64
	feePerInput  int64
	feePerOutput int64
}

func (c *costFlags) register(fs *flag.FlagSet) {
	fs.Int64Var(&c.minOutput, "min-output", 20000, "Per-output value in atoms")
	fs.Int64Var(&c.fee, "fee", 30000, "Fixed transaction fee in atoms")
	fs.Int64Var(&c.feePerInput, "fee-per-input", 0, "Per-input fee in atoms (overrides --fee together with --fee-per-output)")
	fs.Int64Var(&c.feePerOutput, "fee-per-output", 0, "Per-output fee in atoms (overrides --fee together with --fee-per-input)")
}

func (c *costFlags) constants() txbuild.CostConstants {
	var policy txbuild.FeePolicy = txbuild.FixedFee(dcrutil.Amount(c.fee))
	if c.feePerInput > 0 || c.feePerOutput > 0 {
		policy = txbuild.PerIOFee{
			PerInput:  dcrutil.Amount(c.feePerInput),
			PerOutput: dcrutil.Amount(c.feePerOutput),
		}
	}
	return txbuild.CostConstants{
		MinOutputValue: dcrutil.Amount(c.minOutput),
		FeePolicy:      policy,
	}
}

func cmdEstimate(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("estimate", flag.ContinueOnError)
	fs.SetOutput(errOut)

	var recipients int
	var revocations int
	var cost costFlags
	fs.IntVar(&recipients, "recipients", 0, "Number of credentials in the batch")
	fs.IntVar(&revocations, "revocations", 0, "Number of credentials with a revocation address")
	cost.register(fs)

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if recipients < 1 {
		fmt.Fprintln(errOut, "missing or invalid --recipients")
		return 2
	}

	est, err := txbuild.EstimateCost(recipients, revocations, cost.constants())
	if err != nil {
		fmt.Fprintf(errOut, "estimate: %v\n", err)
		return 1
	}
	fmt.Fprintf(out, "outputs: %d\n", est.NumOutputs)
	fmt.Fprintf(out, "fee:     %d atoms\n", int64(est.Fee))
	fmt.Fprintf(out, "total:   %d atoms\n", int64(est.Total))
	return 0
}

func cmdVerifyReceipt(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("verify-receipt", flag.ContinueOnError)
	fs.SetOutput(errOut)

	var receiptPath string
	var leafHashHex string
	var documentPath string
	var hashAlg string
	fs.StringVar(&receiptPath, "receipt", "", "Receipt JSON file")
	fs.StringVar(&leafHashHex, "leaf-hash", "", "Credential leaf hash as hex")
	fs.StringVar(&documentPath, "document", "", "Credential document to canonicalize and hash")
	fs.StringVar(&hashAlg, "hash-alg", "sha256", "Hash algorithm: sha256, sha512, sha3-256")

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if receiptPath == "" {
		fmt.Fprintln(errOut, "missing --receipt")
		return 2
	}
	if (leafHashHex == "") == (documentPath == "") {
		fmt.Fprintln(errOut, "provide exactly one of --leaf-hash or --document")
		return 2
	}

	receiptBytes, err := os.ReadFile(receiptPath)
	if err != nil {
		fmt.Fprintf(errOut, "read receipt: %v\n", err)
		return 1
	}
	var r issuer.Receipt
	if err := unmarshalStrict(receiptBytes, &r); err != nil {
		fmt.Fprintf(errOut, "invalid receipt: %v\n", err)
		return 1
	}

	hash, err := cert.HashForAlg(hashAlg)
	if err != nil {
		fmt.Fprintf(errOut, "%v\n", err)
		return 2
	}

	var leaf []byte
	if leafHashHex != "" {
		leaf, err = hex.DecodeString(leafHashHex)
		if err != nil {
			fmt.Fprintf(errOut, "invalid --leaf-hash: %v\n", err)
			return 2
		}
	} else {
		doc, rerr := os.ReadFile(documentPath)
		if rerr != nil {
			fmt.Fprintf(errOut, "read document: %v\n", rerr)
			return 1
		}
		hasher := cert.NewLeafHasher(cert.NewJSONLDCanonicalizer(nil), hash)
		leaf, err = hasher.HashCredential(&cert.Credential{ID: documentPath, Document: doc})
		if err != nil {
			fmt.Fprintf(errOut, "hash document: %v\n", err)
			return 1
		}
	}

	if !r.Verify(leaf, hash) {
		fmt.Fprintln(errOut, "FAILED: proof does not verify against merkle_root")
		return 1
	}
	fmt.Fprintf(out, "OK\nmerkle_root: %s\ntx_id: %s\n", r.MerkleRoot, r.TxID)
	return 0
}
