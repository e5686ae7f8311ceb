package account

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Sentinel errors for account-level failures.
var (
	ErrAccountLocked              = errors.New("account: locked")
	ErrInsufficientAvailableFunds = errors.New("account: insufficient available funds")
	ErrInsufficientHeldFunds      = errors.New("account: insufficient held funds")
)

// InsufficientAvailableFundsError is returned by Withdraw when the available
// balance does not cover the requested amount.
type InsufficientAvailableFundsError struct {
	Available decimal.Decimal
	Requested decimal.Decimal
}

func (e *InsufficientAvailableFundsError) Error() string {
	return fmt.Sprintf("account: insufficient available funds: available %s, requested %s",
		e.Available, e.Requested)
}

// Is matches ErrInsufficientAvailableFunds.
func (e *InsufficientAvailableFundsError) Is(target error) bool {
	return target == ErrInsufficientAvailableFunds
}

// InsufficientHeldFundsError is returned by Resolve and Chargeback when the
// held balance does not cover the requested amount.
type InsufficientHeldFundsError struct {
	Held      decimal.Decimal
	Requested decimal.Decimal
}

func (e *InsufficientHeldFundsError) Error() string {
	return fmt.Sprintf("account: insufficient held funds: held %s, requested %s",
		e.Held, e.Requested)
}

// Is matches ErrInsufficientHeldFunds.
func (e *InsufficientHeldFundsError) Is(target error) bool {
	return target == ErrInsufficientHeldFunds
}

// IsAccountError reports whether err is one of the account-level failures.
func IsAccountError(err error) bool {
	return errors.Is(err, ErrAccountLocked) ||
		errors.Is(err, ErrInsufficientAvailableFunds) ||
		errors.Is(err, ErrInsufficientHeldFunds)
}
