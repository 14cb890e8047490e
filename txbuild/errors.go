package txbuild

import "errors"

var (
	// ErrInsufficientFunds means the selected input cannot cover the batch
	// total. The batch aborts; no partial spend is ever attempted.
	ErrInsufficientFunds = errors.New("txbuild: insufficient funds")

	// ErrNoSpendableInput means no unspent output was available to fund the
	// batch at assembly time.
	ErrNoSpendableInput = errors.New("txbuild: no spendable input")

	// ErrCostOverflow means the computed total exceeded the representable
	// currency range.
	ErrCostOverflow = errors.New("txbuild: cost exceeds representable amount")
)

func IsFundingFailure(err error) bool {
	return errors.Is(err, ErrInsufficientFunds) || errors.Is(err, ErrNoSpendableInput)
}
