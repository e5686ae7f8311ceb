package tally

import (
	"errors"
	"fmt"

	"github.com/xraph/tally/transaction"
)

// Sentinel errors for common failure scenarios.
var (
	// Order errors, always wrapped in a *TransactionError.
	ErrDuplicateTransactionID          = errors.New("tally: duplicate transaction id")
	ErrRelatedTransactionNotFound      = errors.New("tally: related transaction not found")
	ErrRelatedTransactionNotDisputable = errors.New("tally: related transaction not disputable")
	ErrAlreadyDisputedTransaction      = errors.New("tally: transaction already disputed")
	ErrNonDisputedTransaction          = errors.New("tally: transaction not disputed")
	ErrInvalidOrder                    = errors.New("tally: invalid order")

	// Store errors
	ErrTransactionExists   = errors.New("tally: transaction already exists")
	ErrTransactionNotFound = errors.New("tally: transaction not found")
	ErrStoreClosed         = errors.New("tally: store is closed")
)

// TransactionError reports an order rejected because of the state of the
// transaction it names.
type TransactionError struct {
	Err  error
	TxID transaction.TxID
}

func (e *TransactionError) Error() string {
	return fmt.Sprintf("%v: %d", e.Err, e.TxID)
}

func (e *TransactionError) Unwrap() error { return e.Err }

func txError(err error, txID transaction.TxID) error {
	return &TransactionError{Err: err, TxID: txID}
}

// IsOrderError returns true if the order was rejected because of transaction
// history rather than account balances.
func IsOrderError(err error) bool {
	return errors.Is(err, ErrDuplicateTransactionID) ||
		errors.Is(err, ErrRelatedTransactionNotFound) ||
		errors.Is(err, ErrRelatedTransactionNotDisputable) ||
		errors.Is(err, ErrAlreadyDisputedTransaction) ||
		errors.Is(err, ErrNonDisputedTransaction) ||
		errors.Is(err, ErrInvalidOrder)
}

// IsStoreError returns true if the error came from the storage contract.
func IsStoreError(err error) bool {
	return errors.Is(err, ErrTransactionExists) ||
		errors.Is(err, ErrTransactionNotFound) ||
		errors.Is(err, ErrStoreClosed)
}
