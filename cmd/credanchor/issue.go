package main

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/decred/slog"

	"credanchor.io/anchor/cert"
	"credanchor.io/anchor/chain"
	"credanchor.io/anchor/issuer"
	"credanchor.io/anchor/keys"
	"credanchor.io/anchor/storage/archivecfg"
)

// credInput is one entry of the --creds batch file.
type credInput struct {
	ID         string          `json:"id"`
	Recipient  string          `json:"recipient"`
	Revocation string          `json:"revocation,omitempty"`
	Document   json.RawMessage `json:"document,omitempty"`
	LeafHash   string          `json:"leaf_hash,omitempty"`
}

func cmdIssue(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("issue", flag.ContinueOnError)
	fs.SetOutput(errOut)

	var credsPath string
	var network string
	var batchID string
	var globalRevocation string
	var change string
	var hashAlg string
	var workers int
	var debug bool

	var keyHex, signerName, signerRole, keyFile, keysDir string
	var rpcHost, rpcUser, rpcPass, rpcCert string
	var archiveSpec, outDir string
	var cost costFlags

	fs.StringVar(&credsPath, "creds", "", "Batch file: JSON array of credentials ('-' for stdin)")
	fs.StringVar(&network, "network", "mainnet", "Chain network: mainnet, testnet, simnet")
	fs.StringVar(&batchID, "batch-id", "", "Batch identifier (default: UTC timestamp)")
	fs.StringVar(&globalRevocation, "global-revocation", "", "Batch-wide revocation address")
	fs.StringVar(&change, "change", "", "Change address (default: issuing address)")
	fs.StringVar(&hashAlg, "hash-alg", "sha256", "Leaf hash algorithm: sha256, sha512, sha3-256")
	fs.IntVar(&workers, "workers", 0, "Hashing worker bound (default: CPU count)")
	fs.BoolVar(&debug, "debug", false, "Debug logging to stderr")

	fs.StringVar(&keyHex, "key-hex", "", "Issuing key as 64 hex chars")
	fs.StringVar(&signerName, "signer", "", "Use a stored key by name (from 'credanchor key init')")
	fs.StringVar(&signerRole, "signer-role", "", "When using --signer, use a derived role key")
	fs.StringVar(&keyFile, "key-file", "", "Path to a key file created by 'credanchor key init/derive'")
	fs.StringVar(&keysDir, "keys-dir", "", "Key store directory (default ~/.credanchor/keys)")

	fs.StringVar(&rpcHost, "rpc-host", "127.0.0.1:9110", "Wallet RPC host:port")
	fs.StringVar(&rpcUser, "rpc-user", "", "Wallet RPC username")
	fs.StringVar(&rpcPass, "rpc-pass", "", "Wallet RPC password")
	fs.StringVar(&rpcCert, "rpc-cert", "", "Wallet RPC TLS certificate (empty disables TLS)")

	fs.StringVar(&archiveSpec, "archive", "", "Artifact archive spec (see 'credanchor help')")
	fs.StringVar(&outDir, "out", "", "Directory for receipt/certificate files")
	cost.register(fs)

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if credsPath == "" {
		fmt.Fprintln(errOut, "missing --creds")
		return 2
	}
	if globalRevocation == "" {
		fmt.Fprintln(errOut, "missing --global-revocation")
		return 2
	}
	if keyHex == "" && signerName == "" && keyFile == "" {
		fmt.Fprintln(errOut, "missing signer: use --key-hex, --signer, or --key-file")
		return 2
	}
	if keyHex != "" && (signerName != "" || keyFile != "") {
		fmt.Fprintln(errOut, "conflicting signer flags: --key-hex cannot be combined with --signer or --key-file")
		return 2
	}
	if archiveSpec == "" && outDir == "" {
		fmt.Fprintln(errOut, "no artifact destination: set --archive and/or --out")
		return 2
	}

	params, err := paramsForNetwork(network)
	if err != nil {
		fmt.Fprintf(errOut, "%v\n", err)
		return 2
	}

	log := slog.Disabled
	if debug {
		backend := slog.NewBackend(errOut)
		l := backend.Logger("ANCR")
		l.SetLevel(slog.LevelDebug)
		log = l
	}

	creds, err := loadBatch(credsPath)
	if err != nil {
		fmt.Fprintf(errOut, "load batch: %v\n", err)
		return 1
	}

	ks, err := keys.CreateKeyStore(keysDir, params)
	if err != nil {
		fmt.Fprintf(errOut, "keys: %v\n", err)
		return 1
	}
	keyBytes, err := ks.LoadKey(keyHex, signerName, signerRole, keyFile)
	if err != nil {
		fmt.Fprintf(errOut, "invalid signer: %v\n", err)
		return 2
	}
	priv, err := keys.PrivKeyFromBytes(keyBytes)
	if err != nil {
		fmt.Fprintf(errOut, "invalid signer: %v\n", err)
		return 2
	}
	signer := chain.NewKeySigner(priv, params)
	issuingAddr, err := signer.Address()
	if err != nil {
		fmt.Fprintf(errOut, "issuing address: %v\n", err)
		return 1
	}

	node, err := chain.NewRPCNode(chain.RPCConfig{
		Host: rpcHost, User: rpcUser, Pass: rpcPass, CertPath: rpcCert,
	}, log)
	if err != nil {
		fmt.Fprintf(errOut, "rpc: %v\n", err)
		return 1
	}
	defer node.Shutdown()

	hash, err := cert.HashForAlg(hashAlg)
	if err != nil {
		fmt.Fprintf(errOut, "%v\n", err)
		return 2
	}

	cfg := issuer.Config{
		ChainParams:             params,
		Cost:                    cost.constants(),
		Hasher:                  cert.NewLeafHasher(cert.NewJSONLDCanonicalizer(nil), hash),
		IssuingAddress:          issuingAddr,
		GlobalRevocationAddress: globalRevocation,
		ChangeAddress:           change,
		UTXOs:                   node,
		Signer:                  signer,
		Broadcaster:             node,
		OutDir:                  outDir,
		HashWorkers:             workers,
		Log:                     log,
	}
	if archiveSpec != "" {
		archive, aerr := archivecfg.Open(archiveSpec)
		if aerr != nil {
			fmt.Fprintf(errOut, "open archive: %v\n", aerr)
			return 1
		}
		defer archive.Close()
		cfg.Store = archive.CAS
	}

	o, err := issuer.New(cfg)
	if err != nil {
		fmt.Fprintf(errOut, "configure: %v\n", err)
		return 2
	}

	res, err := o.IssueBatch(context.Background(), batchID, creds)
	if err != nil {
		fmt.Fprintf(errOut, "issue: %v\n", err)
		return 1
	}

	fmt.Fprintf(out, "batch:       %s\n", res.BatchID)
	fmt.Fprintf(out, "merkle_root: %s\n", hex.EncodeToString(res.MerkleRoot))
	fmt.Fprintf(out, "tx_id:       %s\n", res.TxID.String())
	fmt.Fprintf(out, "credentials: %d\n", len(res.Receipts))

	if res.PersistFailed() {
		fmt.Fprintln(errOut, "warning: the batch is anchored but some artifacts failed to persist:")
		for i := range res.Artifacts {
			if res.Artifacts[i].Err != nil {
				fmt.Fprintf(errOut, "  %s: %v\n", res.Artifacts[i].CredentialID, res.Artifacts[i].Err)
			}
		}
		if res.IndexErr != nil {
			fmt.Fprintf(errOut, "  batch index: %v\n", res.IndexErr)
		}
		return 1
	}
	return 0
}

func loadBatch(path string) ([]*cert.Credential, error) {
	var b []byte
	var err error
	if path == "-" {
		b, err = io.ReadAll(os.Stdin)
	} else {
		b, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, err
	}

	var inputs []credInput
	if err := unmarshalStrict(b, &inputs); err != nil {
		return nil, err
	}
	if len(inputs) == 0 {
		return nil, fmt.Errorf("batch file holds no credentials")
	}

	creds := make([]*cert.Credential, len(inputs))
	for i, in := range inputs {
		c := &cert.Credential{
			ID:                in.ID,
			RecipientAddress:  in.Recipient,
			RevocationAddress: in.Revocation,
			Document:          in.Document,
		}
		if in.LeafHash != "" {
			leaf, derr := hex.DecodeString(in.LeafHash)
			if derr != nil {
				return nil, fmt.Errorf("credential %q: invalid leaf_hash: %w", in.ID, derr)
			}
			c.LeafHash = leaf
		}
		creds[i] = c
	}
	return creds, nil
}

func unmarshalStrict(b []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
