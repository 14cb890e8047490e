// Package txbuild computes the shape and cost of a batch anchoring
// transaction and assembles it: one spendable input, one payment output per
// recipient (plus optional revocation outputs), a batch-wide revocation
// output, an OP_RETURN output carrying the commitment root, and a change
// output back to the issuer.
package txbuild

import (
	"fmt"

	"github.com/decred/dcrd/dcrutil/v4"
)

// fixedOutputs are present in every batch regardless of size: the global
// revocation output, the commitment OP_RETURN, and the change output.
const fixedOutputs = 3

// numInputs is fixed at one: single-input batches keep change
// computation trivial and avoid input selection entirely.
const numInputs = 1

// FeePolicy prices a transaction by its input and output counts.
type FeePolicy interface {
	Fee(numInputs, numOutputs int) dcrutil.Amount
}

// FixedFee charges the same fee for every batch.
type FixedFee dcrutil.Amount

func (f FixedFee) Fee(int, int) dcrutil.Amount { return dcrutil.Amount(f) }

// PerIOFee charges per input and per output.
type PerIOFee struct {
	PerInput  dcrutil.Amount
	PerOutput dcrutil.Amount
}

func (f PerIOFee) Fee(ins, outs int) dcrutil.Amount {
	return f.PerInput*dcrutil.Amount(ins) + f.PerOutput*dcrutil.Amount(outs)
}

// CostConstants parameterizes the cost model. MinOutputValue is the smallest
// value a payment output may carry under the target chain's dust rules; every
// recipient and revocation output is created at exactly this value.
type CostConstants struct {
	MinOutputValue dcrutil.Amount
	FeePolicy      FeePolicy
}

// Estimate is the computed shape and cost of one batch transaction.
//
// Total follows the original accounting: every output slot, including the
// OP_RETURN and change slots, is budgeted at MinOutputValue, plus the fee.
// Change is input − Total; the slack budgeted for the two non-payment slots
// is surrendered to the miner.
type Estimate struct {
	Recipients  int
	Revocations int
	NumOutputs  int
	Fee         dcrutil.Amount
	Total       dcrutil.Amount
}

// EstimateCost computes the transaction shape for recipients paying outputs,
// of which revocations also need a per-credential revocation output.
func EstimateCost(recipients, revocations int, c CostConstants) (Estimate, error) {
	if recipients < 1 {
		return Estimate{}, fmt.Errorf("txbuild: batch needs at least one recipient")
	}
	if revocations < 0 || revocations > recipients {
		return Estimate{}, fmt.Errorf("txbuild: revocation count %d out of range [0,%d]", revocations, recipients)
	}
	if c.MinOutputValue <= 0 {
		return Estimate{}, fmt.Errorf("txbuild: minimum output value must be positive")
	}
	if c.FeePolicy == nil {
		return Estimate{}, fmt.Errorf("txbuild: fee policy is required")
	}

	numOutputs := recipients + revocations + fixedOutputs
	fee := c.FeePolicy.Fee(numInputs, numOutputs)
	if fee < 0 {
		return Estimate{}, fmt.Errorf("txbuild: negative fee: %w", ErrCostOverflow)
	}

	if c.MinOutputValue > dcrutil.MaxAmount/dcrutil.Amount(numOutputs) {
		return Estimate{}, fmt.Errorf("txbuild: %d outputs at %v: %w", numOutputs, c.MinOutputValue, ErrCostOverflow)
	}
	total := dcrutil.Amount(numOutputs)*c.MinOutputValue + fee
	if total < 0 || total > dcrutil.MaxAmount {
		return Estimate{}, fmt.Errorf("txbuild: total %d atoms: %w", int64(total), ErrCostOverflow)
	}

	return Estimate{
		Recipients:  recipients,
		Revocations: revocations,
		NumOutputs:  numOutputs,
		Fee:         fee,
		Total:       total,
	}, nil
}
