// Package store defines the persistence contract consumed by the account
// manager.
//
// Reads never fail because something is missing: they return a found flag
// instead. Writes fail only on consistency violations or I/O errors.
package store

import (
	"context"

	"github.com/xraph/tally/account"
	"github.com/xraph/tally/transaction"
)

// Store is the unified storage interface for accounts, transactions and
// dispute flags.
type Store interface {
	// Account methods
	GetAccount(ctx context.Context, clientID account.ClientID) (*account.Account, bool, error)
	ListAccounts(ctx context.Context) ([]*account.Account, error)
	StoreAccount(ctx context.Context, a *account.Account) error

	// Transaction methods
	GetTransaction(ctx context.Context, txID transaction.TxID) (*transaction.Transaction, bool, error)
	StoreTransaction(ctx context.Context, tx *transaction.Transaction) error

	// IsDisputed reports the dispute flag of a stored transaction. found is
	// false when no transaction with that ID exists.
	IsDisputed(ctx context.Context, txID transaction.TxID) (disputed, found bool, err error)
	SetDisputed(ctx context.Context, txID transaction.TxID, disputed bool) error

	// Apply stores the account and records the transaction as one unit.
	// When the transaction ID is taken it returns tally.ErrTransactionExists
	// and leaves the stored account untouched.
	Apply(ctx context.Context, a *account.Account, tx *transaction.Transaction) error

	// ApplyDispute stores the account and sets the dispute flag of txID as
	// one unit. It returns tally.ErrTransactionNotFound when txID is absent.
	ApplyDispute(ctx context.Context, a *account.Account, txID transaction.TxID, disputed bool) error

	// Lifecycle
	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}
