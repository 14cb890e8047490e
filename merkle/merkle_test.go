package merkle

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"golang.org/x/crypto/sha3"
)

func leafData(i int) []byte {
	return SHA256([]byte(fmt.Sprintf("credential-%d", i)))
}

func buildTree(t *testing.T, n int) *Tree {
	t.Helper()
	tr := NewTree(nil)
	for i := 0; i < n; i++ {
		idx, err := tr.AddLeaf(leafData(i))
		if err != nil {
			t.Fatalf("AddLeaf(%d): %v", i, err)
		}
		if idx != i {
			t.Fatalf("AddLeaf(%d): got index %d", i, idx)
		}
	}
	if _, err := tr.Build(); err != nil {
		t.Fatalf("Build: %v", err)
	}
	return tr
}

func TestEmptyBatch(t *testing.T) {
	tr := NewTree(nil)
	if _, err := tr.Build(); !errors.Is(err, ErrEmptyBatch) {
		t.Fatalf("Build on empty tree: got %v, want ErrEmptyBatch", err)
	}
	if _, err := tr.Root(); !errors.Is(err, ErrNotBuilt) {
		t.Fatalf("Root before build: got %v, want ErrNotBuilt", err)
	}
	if _, err := tr.Proof(0); !errors.Is(err, ErrNotBuilt) {
		t.Fatalf("Proof before build: got %v, want ErrNotBuilt", err)
	}
}

func TestBuildIdempotent(t *testing.T) {
	tr := buildTree(t, 5)
	r1, err := tr.Root()
	if err != nil {
		t.Fatal(err)
	}
	r2, err := tr.Build()
	if err != nil {
		t.Fatalf("second Build: %v", err)
	}
	if !bytes.Equal(r1, r2) {
		t.Fatalf("root changed across Build calls")
	}
	if _, err := tr.AddLeaf(leafData(99)); !errors.Is(err, ErrFinalized) {
		t.Fatalf("AddLeaf after build: got %v, want ErrFinalized", err)
	}
}

func TestRootDeterminism(t *testing.T) {
	a := buildTree(t, 7)
	b := buildTree(t, 7)
	ra, _ := a.Root()
	rb, _ := b.Root()
	if !bytes.Equal(ra, rb) {
		t.Fatalf("same leaves, same order, different roots")
	}

	// Swapping two leaves must change the root.
	c := NewTree(nil)
	for _, i := range []int{1, 0, 2, 3, 4, 5, 6} {
		if _, err := c.AddLeaf(leafData(i)); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := c.Build(); err != nil {
		t.Fatal(err)
	}
	rc, _ := c.Root()
	if bytes.Equal(ra, rc) {
		t.Fatalf("reordered leaves produced the same root")
	}
}

func TestSingleLeaf(t *testing.T) {
	tr := buildTree(t, 1)
	root, _ := tr.Root()
	if !bytes.Equal(root, leafData(0)) {
		t.Fatalf("single-leaf root must equal the leaf hash")
	}
	proof, err := tr.Proof(0)
	if err != nil {
		t.Fatal(err)
	}
	if len(proof) != 0 {
		t.Fatalf("single-leaf proof must be empty, got %d entries", len(proof))
	}
	if !VerifyProof(leafData(0), proof, root, nil) {
		t.Fatalf("single-leaf proof did not verify")
	}
}

func TestProofsAllIndices(t *testing.T) {
	// Covers even levels, odd levels with carried nodes, and power-of-two sizes.
	for n := 1; n <= 12; n++ {
		tr := buildTree(t, n)
		root, _ := tr.Root()
		for i := 0; i < n; i++ {
			proof, err := tr.Proof(i)
			if err != nil {
				t.Fatalf("n=%d Proof(%d): %v", n, i, err)
			}
			if !VerifyProof(leafData(i), proof, root, nil) {
				t.Fatalf("n=%d proof for leaf %d did not verify", n, i)
			}
		}
	}
}

func TestProofIndexOutOfRange(t *testing.T) {
	tr := buildTree(t, 3)
	for _, idx := range []int{-1, 3, 100} {
		if _, err := tr.Proof(idx); !errors.Is(err, ErrIndexOutOfRange) {
			t.Fatalf("Proof(%d): got %v, want ErrIndexOutOfRange", idx, err)
		}
	}
}

func TestCorruptedProofFails(t *testing.T) {
	tr := buildTree(t, 6)
	root, _ := tr.Root()
	for i := 0; i < 6; i++ {
		proof, err := tr.Proof(i)
		if err != nil {
			t.Fatal(err)
		}
		for j := range proof {
			// Flip one bit of one sibling hash.
			mangled := make([]ProofEntry, len(proof))
			copy(mangled, proof)
			h := append([]byte(nil), proof[j].Hash...)
			h[0] ^= 0x01
			mangled[j] = ProofEntry{Hash: h, Side: proof[j].Side}
			if VerifyProof(leafData(i), mangled, root, nil) {
				t.Fatalf("leaf %d: corrupted sibling %d still verified", i, j)
			}

			// Flip the side flag.
			mangled = make([]ProofEntry, len(proof))
			copy(mangled, proof)
			side := SideLeft
			if proof[j].Side == SideLeft {
				side = SideRight
			}
			mangled[j] = ProofEntry{Hash: proof[j].Hash, Side: side}
			if VerifyProof(leafData(i), mangled, root, nil) {
				t.Fatalf("leaf %d: flipped side %d still verified", i, j)
			}
		}
	}
}

func TestCarriedNodeHasShorterProof(t *testing.T) {
	// With 5 leaves, leaf 4 is carried at level 0 and level 1; its proof has a
	// single entry while the paired leaves have three.
	tr := buildTree(t, 5)
	p4, err := tr.Proof(4)
	if err != nil {
		t.Fatal(err)
	}
	if len(p4) != 1 {
		t.Fatalf("leaf 4 proof length: got %d, want 1", len(p4))
	}
	p0, _ := tr.Proof(0)
	if len(p0) != 3 {
		t.Fatalf("leaf 0 proof length: got %d, want 3", len(p0))
	}
}

func TestInjectedHashFunc(t *testing.T) {
	sha3Hash := func(b []byte) []byte {
		s := sha3.Sum256(b)
		return s[:]
	}
	tr := NewTree(sha3Hash)
	for i := 0; i < 4; i++ {
		if _, err := tr.AddLeaf(leafData(i)); err != nil {
			t.Fatal(err)
		}
	}
	root, err := tr.Build()
	if err != nil {
		t.Fatal(err)
	}
	proof, err := tr.Proof(2)
	if err != nil {
		t.Fatal(err)
	}
	if !VerifyProof(leafData(2), proof, root, sha3Hash) {
		t.Fatalf("sha3 proof did not verify with sha3 verifier")
	}
	if VerifyProof(leafData(2), proof, root, nil) {
		t.Fatalf("sha3 proof verified with sha256 verifier")
	}
}

func TestProofEntryJSONRoundTrip(t *testing.T) {
	tr := buildTree(t, 3)
	proof, err := tr.Proof(1)
	if err != nil {
		t.Fatal(err)
	}
	b, err := json.Marshal(proof)
	if err != nil {
		t.Fatal(err)
	}
	var got []ProofEntry
	if err := json.Unmarshal(b, &got); err != nil {
		t.Fatal(err)
	}
	root, _ := tr.Root()
	if !VerifyProof(leafData(1), got, root, nil) {
		t.Fatalf("proof did not verify after JSON round trip")
	}

	var bad ProofEntry
	if err := json.Unmarshal([]byte(`{"sibling_hash":"ab","side":"up"}`), &bad); err == nil {
		t.Fatalf("invalid side accepted")
	}
}
