package cert

import (
	"crypto/sha512"

	"golang.org/x/crypto/sha3"

	"credanchor.io/anchor/merkle"
)

// HashForAlg returns the leaf/interior hash function for a named algorithm.
// Supported: sha256 (default), sha512, sha3-256.
func HashForAlg(alg string) (merkle.HashFunc, error) {
	switch alg {
	case "", "sha256":
		return merkle.SHA256, nil
	case "sha512":
		return func(b []byte) []byte {
			s := sha512.Sum512(b)
			return s[:]
		}, nil
	case "sha3-256":
		return func(b []byte) []byte {
			s := sha3.Sum256(b)
			return s[:]
		}, nil
	default:
		return nil, newError(KindHash, "CRED-HASH-201", "unsupported hash algorithm: "+alg)
	}
}

// LeafHasher turns one credential into its commitment leaf: canonical bytes
// in, fixed-size digest out. Pure apart from whatever document caching the
// canonicalizer carries; that caching never affects the digest.
type LeafHasher struct {
	canon Canonicalizer
	hash  merkle.HashFunc
}

// NewLeafHasher pairs a canonicalizer with a hash function. A nil hash
// selects sha256. A nil canonicalizer restricts the hasher to credentials
// carrying a precomputed LeafHash.
func NewLeafHasher(canon Canonicalizer, hash merkle.HashFunc) *LeafHasher {
	if hash == nil {
		hash = merkle.SHA256
	}
	return &LeafHasher{canon: canon, hash: hash}
}

// Hash returns the merkle hash function the leaves are digested with, for use
// by the commitment tree so leaves and interior nodes share one primitive.
func (h *LeafHasher) Hash() merkle.HashFunc { return h.hash }

// HashCredential returns the leaf digest for c. A precomputed LeafHash is
// returned as-is; otherwise the document is canonicalized and digested.
func (h *LeafHasher) HashCredential(c *Credential) ([]byte, error) {
	if c == nil {
		return nil, newError(KindValidation, "CRED-VAL-001", "nil credential")
	}
	if len(c.LeafHash) > 0 {
		return append([]byte(nil), c.LeafHash...), nil
	}
	if h.canon == nil {
		return nil, newError(KindCanonical, "CRED-CANON-105", "no canonicalizer configured and no precomputed hash: "+c.ID)
	}
	canonical, err := h.canon.Canonicalize(c.Document)
	if err != nil {
		return nil, err
	}
	return h.hash(canonical), nil
}
