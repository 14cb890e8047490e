package merkle

import "errors"

var (
	ErrEmptyBatch      = errors.New("merkle: no leaves added")
	ErrNotBuilt        = errors.New("merkle: tree not built")
	ErrFinalized       = errors.New("merkle: tree already finalized")
	ErrIndexOutOfRange = errors.New("merkle: leaf index out of range")
)
