package storage

import (
	"github.com/ipfs/go-cid"
	"github.com/multiformats/go-multihash"
)

// ContentID returns the CIDv1 (raw + sha2-256) for an artifact's bytes.
// Every store in this package keys strictly by this derivation.
func ContentID(data []byte) (cid.Cid, error) {
	sum, err := multihash.Sum(data, multihash.SHA2_256, -1)
	if err != nil {
		return cid.Undef, err
	}
	return cid.NewCidV1(cid.Raw, sum), nil
}

// ContentIDString is ContentID rendered as a string; it returns "" on the
// (unreachable with sha2-256) hashing error.
func ContentIDString(data []byte) string {
	id, err := ContentID(data)
	if err != nil {
		return ""
	}
	return id.String()
}
