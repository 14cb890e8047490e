// Package chain holds the blockchain-facing boundaries of the anchoring
// pipeline: locating a spendable input, signing the assembled transaction,
// and broadcasting it. The issuing core calls these synchronously, once per
// batch; retry policy belongs to the caller.
package chain

import (
	"context"

	"github.com/decred/dcrd/chaincfg/chainhash"
	"github.com/decred/dcrd/wire"

	"credanchor.io/anchor/txbuild"
)

// UTXOSource lists the unspent outputs owned by an address. Implementations
// must return a deterministic order if reproducibility matters: the core
// always selects the last element.
type UTXOSource interface {
	SpendableOutputs(ctx context.Context, address string) ([]txbuild.SpendableInput, error)
}

// Signer signs the assembled anchoring transaction. Outside the issuing
// core's trust boundary: the core never sees key material.
type Signer interface {
	Sign(ctx context.Context, utx *txbuild.UnsignedTx) (*wire.MsgTx, error)
}

// Broadcaster submits the signed transaction and returns its id. Broadcast is
// single-attempt; a batch aborted before Broadcast has no external effect,
// while one broadcast it cannot be rolled back.
type Broadcaster interface {
	Broadcast(ctx context.Context, tx *wire.MsgTx) (*chainhash.Hash, error)
}

// SelectInput applies the core's input policy: the last spendable output in
// source order, or ErrNoSpendableInput when the address holds nothing.
func SelectInput(utxos []txbuild.SpendableInput) (*txbuild.SpendableInput, error) {
	if len(utxos) == 0 {
		return nil, txbuild.ErrNoSpendableInput
	}
	in := utxos[len(utxos)-1]
	return &in, nil
}
