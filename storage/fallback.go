package storage

import (
	"errors"

	"github.com/ipfs/go-cid"
)

// FallbackCAS provides deterministic, ordered read fallback across multiple
// archive backends.
//
// Retrieval order is the slice order; callers MUST supply a fixed order so
// artifact hydration is reproducible. Put writes only to the first backend.
type FallbackCAS struct {
	Backends []CAS
}

func (m FallbackCAS) Put(bytes []byte) (cid.Cid, error) {
	if len(m.Backends) == 0 {
		return cid.Undef, errors.New("storage: FallbackCAS has no backends")
	}
	return m.Backends[0].Put(bytes)
}

func (m FallbackCAS) Get(id cid.Cid) ([]byte, error) {
	for _, cas := range m.Backends {
		b, err := cas.Get(id)
		if err == nil {
			return b, nil
		}
		if !IsNotFound(err) {
			return nil, err
		}
	}
	return nil, ErrNotFound
}

func (m FallbackCAS) Has(id cid.Cid) bool {
	for _, cas := range m.Backends {
		if cas.Has(id) {
			return true
		}
	}
	return false
}
