package ledger

import (
	"errors"
	"fmt"
)

// Typed rejection reasons. Handlers map these onto distinct user-facing
// messages; anything else coming out of an operation is a storage failure.
var (
	// ErrInsufficientFunds means the cash balance cannot cover the amount.
	ErrInsufficientFunds = errors.New("insufficient cash balance")
	// ErrOverpayment means a loan collection exceeds the remaining loan.
	ErrOverpayment = errors.New("payment exceeds remaining loan")
	// ErrNoOutstandingLoan means the customer has nothing left to collect.
	ErrNoOutstandingLoan = errors.New("customer has no outstanding loan")
	// ErrNotFound means the referenced customer or staff does not exist.
	ErrNotFound = errors.New("record not found")
)

// ValidationError reports bad operation input (missing customer selection,
// non-positive amount and the like) before any state is touched.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func errPositive(field string) error {
	return &ValidationError{Field: field, Reason: "must be greater than zero"}
}
