package main

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"credanchor.io/anchor/issuer"
	"credanchor.io/anchor/merkle"
)

func runCLI(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var out, errOut bytes.Buffer
	code := run(args, &out, &errOut)
	return code, out.String(), errOut.String()
}

func TestEstimateCommand(t *testing.T) {
	code, out, errOut := runCLI(t, "estimate",
		"--recipients", "3", "--revocations", "2",
		"--min-output", "600", "--fee", "1000")
	if code != 0 {
		t.Fatalf("estimate failed (%d): %s", code, errOut)
	}
	if !strings.Contains(out, "outputs: 8") || !strings.Contains(out, "total:   5800") {
		t.Fatalf("unexpected estimate output:\n%s", out)
	}
}

func TestEstimateCommand_MissingRecipients(t *testing.T) {
	code, _, _ := runCLI(t, "estimate")
	if code != 2 {
		t.Fatalf("expected usage error, got %d", code)
	}
}

func TestVerifyReceiptCommand(t *testing.T) {
	leafA := sha256.Sum256([]byte("cred-a"))
	leafB := sha256.Sum256([]byte("cred-b"))

	tree := merkle.NewTree(nil)
	if _, err := tree.AddLeaf(leafA[:]); err != nil {
		t.Fatal(err)
	}
	if _, err := tree.AddLeaf(leafB[:]); err != nil {
		t.Fatal(err)
	}
	root, err := tree.Build()
	if err != nil {
		t.Fatal(err)
	}
	proof, err := tree.Proof(0)
	if err != nil {
		t.Fatal(err)
	}

	r := issuer.Receipt{
		Proof:      proof,
		MerkleRoot: hex.EncodeToString(root),
		TxID:       strings.Repeat("ab", 32),
	}
	b, err := json.Marshal(&r)
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "receipt.json")
	if err := os.WriteFile(path, b, 0o644); err != nil {
		t.Fatal(err)
	}

	code, out, errOut := runCLI(t, "verify-receipt",
		"--receipt", path, "--leaf-hash", hex.EncodeToString(leafA[:]))
	if code != 0 {
		t.Fatalf("verify failed (%d): %s", code, errOut)
	}
	if !strings.Contains(out, "OK") {
		t.Fatalf("expected OK, got:\n%s", out)
	}

	// The wrong leaf must fail.
	code, _, _ = runCLI(t, "verify-receipt",
		"--receipt", path, "--leaf-hash", hex.EncodeToString(leafB[:]))
	if code == 0 {
		t.Fatalf("expected failure for foreign leaf")
	}
}

func TestUnknownCommand(t *testing.T) {
	code, _, errOut := runCLI(t, "frobnicate")
	if code != 2 {
		t.Fatalf("expected usage error, got %d", code)
	}
	if !strings.Contains(errOut, "unknown command") {
		t.Fatalf("expected unknown command message, got: %s", errOut)
	}
}
