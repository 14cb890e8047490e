package txbuild

import (
	"encoding/hex"
	"fmt"

	"github.com/decred/dcrd/wire"
)

// UnsignedTx is the assembled anchoring transaction, ready for external
// signing. It is immutable once produced: receipts reference it, they do not
// copy or rebuild it.
type UnsignedTx struct {
	Tx    *wire.MsgTx
	Input SpendableInput
	Root  []byte
}

// Assemble combines exactly one spendable input with the assembled outputs.
// This is the first point funding is confirmed: a nil input is a hard batch
// abort (ErrNoSpendableInput), never a partial issuance.
func Assemble(input *SpendableInput, outs []*wire.TxOut, root []byte) (*UnsignedTx, error) {
	if input == nil {
		return nil, ErrNoSpendableInput
	}
	if len(outs) == 0 {
		return nil, fmt.Errorf("txbuild: no outputs to assemble")
	}

	tx := wire.NewMsgTx()
	op := input.OutPoint()
	tx.AddTxIn(wire.NewTxIn(&op, int64(input.Value), nil))
	for _, out := range outs {
		tx.AddTxOut(out)
	}
	return &UnsignedTx{
		Tx:    tx,
		Input: *input,
		Root:  append([]byte(nil), root...),
	}, nil
}

// SerializeHex returns the raw transaction hex, the form handed to external
// signers and RPC interfaces.
func (u *UnsignedTx) SerializeHex() (string, error) {
	b, err := u.Tx.Bytes()
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
