package txbuild

import (
	"github.com/decred/dcrd/chaincfg/chainhash"
	"github.com/decred/dcrd/dcrutil/v4"
	"github.com/decred/dcrd/wire"
)

// SpendableInput is one prior unspent output available to fund a batch.
type SpendableInput struct {
	TxHash  chainhash.Hash
	Vout    uint32
	Tree    int8
	Value   dcrutil.Amount
	Address string
}

// OutPoint returns the wire outpoint this input spends.
func (s SpendableInput) OutPoint() wire.OutPoint {
	return wire.OutPoint{Hash: s.TxHash, Index: s.Vout, Tree: s.Tree}
}
