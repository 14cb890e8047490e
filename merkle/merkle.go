// Package merkle implements the batch commitment tree used to anchor a set of
// credential hashes under a single 32-byte root.
//
// The tree is binary and order-sensitive: leaves are committed in the exact
// order they are added, and the root is a pure function of the leaf hashes and
// that order. When a level holds an odd number of nodes, the last node is
// carried forward unchanged to the next level (it is not paired with a copy of
// itself). Proof generation applies the same rule: a carried node contributes
// no sibling entry for that level.
package merkle

import (
	"bytes"
	"crypto/sha256"
)

// HashFunc combines or digests node payloads. Interior nodes are computed as
// hash(left || right). The commitment scheme is deliberately not coupled to a
// single primitive; inject the same function used to hash the leaves.
type HashFunc func([]byte) []byte

// SHA256 is the default HashFunc.
func SHA256(b []byte) []byte {
	s := sha256.Sum256(b)
	return s[:]
}

// Tree accumulates leaves in caller order and, once built, exposes the root
// and per-leaf inclusion proofs. A Tree is not safe for concurrent use; each
// batch owns its own instance.
type Tree struct {
	hash   HashFunc
	leaves [][]byte
	// levels[0] is the leaf level; levels[len-1] holds the single root node.
	levels [][][]byte
	built  bool
}

// NewTree returns an empty tree using hash for interior nodes.
// A nil hash selects SHA256.
func NewTree(hash HashFunc) *Tree {
	if hash == nil {
		hash = SHA256
	}
	return &Tree{hash: hash}
}

// AddLeaf appends a leaf hash and returns its index. Indices are assigned
// sequentially from zero in call order; that order is the contract receipts
// are later emitted under. Adding after Build returns ErrFinalized.
func (t *Tree) AddLeaf(leaf []byte) (int, error) {
	if t.built {
		return 0, ErrFinalized
	}
	t.leaves = append(t.leaves, append([]byte(nil), leaf...))
	return len(t.leaves) - 1, nil
}

// LeafCount returns the number of leaves added so far.
func (t *Tree) LeafCount() int { return len(t.leaves) }

// Build finalizes the tree and returns the root. Building an empty tree
// returns ErrEmptyBatch. Build is idempotent: subsequent calls return the
// same root without recomputing any level.
func (t *Tree) Build() ([]byte, error) {
	if t.built {
		return t.Root()
	}
	if len(t.leaves) == 0 {
		return nil, ErrEmptyBatch
	}

	t.levels = [][][]byte{t.leaves}
	level := t.leaves
	for len(level) > 1 {
		next := make([][]byte, 0, (len(level)+1)/2)
		for i := 0; i+1 < len(level); i += 2 {
			next = append(next, t.hash(append(append([]byte(nil), level[i]...), level[i+1]...)))
		}
		if len(level)%2 == 1 {
			// Odd node count: the trailing node is promoted as-is.
			next = append(next, level[len(level)-1])
		}
		t.levels = append(t.levels, next)
		level = next
	}
	t.built = true
	return t.Root()
}

// Root returns the 32-byte commitment root, or ErrNotBuilt before Build.
func (t *Tree) Root() ([]byte, error) {
	if !t.built {
		return nil, ErrNotBuilt
	}
	top := t.levels[len(t.levels)-1]
	return append([]byte(nil), top[0]...), nil
}

// Proof returns the ordered sibling path from leaf index to the root. Each
// entry names the sibling hash and the side the sibling occupies. Levels where
// the target node was carried forward contribute no entry.
func (t *Tree) Proof(index int) ([]ProofEntry, error) {
	if !t.built {
		return nil, ErrNotBuilt
	}
	if index < 0 || index >= len(t.leaves) {
		return nil, ErrIndexOutOfRange
	}

	var path []ProofEntry
	pos := index
	for _, level := range t.levels[:len(t.levels)-1] {
		if pos == len(level)-1 && len(level)%2 == 1 {
			// Carried node: no sibling at this level.
			pos /= 2
			continue
		}
		sib := pos ^ 1
		side := SideRight
		if sib < pos {
			side = SideLeft
		}
		path = append(path, ProofEntry{
			Hash: append([]byte(nil), level[sib]...),
			Side: side,
		})
		pos /= 2
	}
	return path, nil
}

// VerifyProof folds proof over leaf and reports whether the result equals
// root. It honors the same carried-forward rule used by Build and Proof.
func VerifyProof(leaf []byte, proof []ProofEntry, root []byte, hash HashFunc) bool {
	if hash == nil {
		hash = SHA256
	}
	cur := append([]byte(nil), leaf...)
	for _, e := range proof {
		switch e.Side {
		case SideLeft:
			cur = hash(append(append([]byte(nil), e.Hash...), cur...))
		case SideRight:
			cur = hash(append(append([]byte(nil), cur...), e.Hash...))
		default:
			return false
		}
	}
	return bytes.Equal(cur, root)
}
