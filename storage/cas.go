// Package storage archives issued artifacts (receipts and blockchain
// certificates) in content-addressable stores keyed by CID, so a holder can
// later fetch and verify an artifact without trusting the archive.
package storage

import "github.com/ipfs/go-cid"

// CAS is a minimal content-addressable archive.
//
// Contract:
// - Put MUST be idempotent.
// - Stored artifacts MUST be immutable.
// - CIDs MUST be derived from the bytes written.
// - Get MUST return ErrNotFound when the CID is absent.
//
// Receipts and certificates are written after broadcast; a failed Put is
// retryable per artifact without re-issuing the transaction.
type CAS interface {
	Put(bytes []byte) (cid.Cid, error)
	Get(id cid.Cid) ([]byte, error)
	Has(id cid.Cid) bool
}
