package txbuild

import (
	"fmt"

	"github.com/decred/dcrd/dcrutil/v4"
	"github.com/decred/dcrd/txscript/v4"
	"github.com/decred/dcrd/txscript/v4/stdaddr"
	"github.com/decred/dcrd/wire"
)

// Recipient is the output-relevant slice of one credential: where its payment
// goes and, optionally, where its revocation output goes.
type Recipient struct {
	Address           string
	RevocationAddress string
}

// AssembleOutputs produces the full output list in its fixed order:
//
//  1. per credential, in batch order: recipient output, then (if present) the
//     credential's revocation output, each at the minimum output value;
//  2. the batch-wide revocation output;
//  3. the OP_RETURN output carrying the commitment root;
//  4. the change output returning input − total to the issuing address.
//
// The order is a determinism contract: re-assembling the same batch state
// yields byte-identical outputs. Receipt indices do not depend on it.
//
// Returns ErrInsufficientFunds when inputValue < est.Total. inputValue equal
// to the total is accepted and produces a zero-value change output so the
// output count stays stable.
func AssembleOutputs(params stdaddr.AddressParams, batch []Recipient, globalRevocation, changeAddress string,
	root []byte, inputValue dcrutil.Amount, est Estimate) ([]*wire.TxOut, error) {

	if len(batch) != est.Recipients {
		return nil, fmt.Errorf("txbuild: %d recipients but estimate covers %d", len(batch), est.Recipients)
	}
	if inputValue < est.Total {
		return nil, fmt.Errorf("txbuild: input %v < required %v: %w", inputValue, est.Total, ErrInsufficientFunds)
	}

	outs := make([]*wire.TxOut, 0, est.NumOutputs)
	m := est.MinOutputValue()
	revocations := 0
	for _, r := range batch {
		out, err := payToAddress(params, r.Address, m)
		if err != nil {
			return nil, fmt.Errorf("txbuild: recipient %q: %w", r.Address, err)
		}
		outs = append(outs, out)
		if r.RevocationAddress != "" {
			rev, err := payToAddress(params, r.RevocationAddress, m)
			if err != nil {
				return nil, fmt.Errorf("txbuild: revocation %q: %w", r.RevocationAddress, err)
			}
			outs = append(outs, rev)
			revocations++
		}
	}
	if revocations != est.Revocations {
		return nil, fmt.Errorf("txbuild: %d revocation outputs but estimate covers %d", revocations, est.Revocations)
	}

	global, err := payToAddress(params, globalRevocation, m)
	if err != nil {
		return nil, fmt.Errorf("txbuild: global revocation %q: %w", globalRevocation, err)
	}
	outs = append(outs, global)

	commitment, err := commitmentOutput(root)
	if err != nil {
		return nil, err
	}
	outs = append(outs, commitment)

	change, err := payToAddress(params, changeAddress, inputValue-est.Total)
	if err != nil {
		return nil, fmt.Errorf("txbuild: change %q: %w", changeAddress, err)
	}
	outs = append(outs, change)

	if len(outs) != est.NumOutputs {
		return nil, fmt.Errorf("txbuild: assembled %d outputs, estimate says %d", len(outs), est.NumOutputs)
	}
	return outs, nil
}

// MinOutputValue recovers the per-output value the estimate was computed
// with: total minus fee, spread over every budgeted output slot.
func (e Estimate) MinOutputValue() dcrutil.Amount {
	return (e.Total - e.Fee) / dcrutil.Amount(e.NumOutputs)
}

func payToAddress(params stdaddr.AddressParams, address string, value dcrutil.Amount) (*wire.TxOut, error) {
	addr, err := stdaddr.DecodeAddress(address, params)
	if err != nil {
		return nil, err
	}
	vers, script := addr.PaymentScript()
	return &wire.TxOut{Value: int64(value), Version: vers, PkScript: script}, nil
}

// commitmentOutput builds the zero-value OP_RETURN output embedding the raw
// commitment root, with no encoding beyond the script data push.
func commitmentOutput(root []byte) (*wire.TxOut, error) {
	if len(root) == 0 {
		return nil, fmt.Errorf("txbuild: empty commitment root")
	}
	script, err := txscript.NewScriptBuilder().
		AddOp(txscript.OP_RETURN).
		AddData(root).
		Script()
	if err != nil {
		return nil, fmt.Errorf("txbuild: commitment script: %w", err)
	}
	return &wire.TxOut{Value: 0, PkScript: script}, nil
}
