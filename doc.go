// Package tally keeps per-client account balances from a stream of
// deposits, withdrawals, disputes, resolutions and chargebacks.
//
// Tally is designed as a library, not a service. The AccountManager owns a
// store and applies one order at a time. It provides:
//
//   - Exact decimal arithmetic for every amount (no floating point)
//   - Globally unique transaction IDs with duplicate rejection
//   - Dispute, resolve and chargeback flows with account locking
//   - Atomic account plus transaction commits in every store
//   - Plugin hooks for audit trails and OpenTelemetry metrics
//   - A CSV pipeline and a Forge extension
//
// # Quick Start
//
//	import (
//	    "github.com/xraph/tally"
//	    "github.com/xraph/tally/store/memory"
//	)
//
//	m := tally.New(memory.New(), tally.WithLogger(slog.Default()))
//	if err := m.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer m.Stop()
//
//	deposit, _ := tally.Deposit(decimal.RequireFromString("100"))
//	_, err := m.ProcessOrder(ctx, tally.Order{TxID: 1, ClientID: 1, Kind: deposit})
//
// # Accounts
//
// An account holds available and held funds. Total is always available plus
// held. A deposit adds to available, a withdrawal takes from it and fails
// when funds are short. A chargeback locks the account for good: later
// deposits and withdrawals fail with account.ErrAccountLocked.
//
// # Disputes
//
// Only deposits can be disputed. A dispute moves the deposited amount from
// available to held (available may go negative). A resolve moves it back
// and a chargeback removes it and locks the account. Disputes, resolves and
// chargebacks reference an existing transaction ID and ignore the lock.
//
// # Errors
//
// Every rejected order returns a *TransactionError wrapping one of the
// order sentinels (ErrDuplicateTransactionID, ErrRelatedTransactionNotFound,
// ...) or an account error. A rejected order never changes any state.
//
//	if errors.Is(err, tally.ErrDuplicateTransactionID) { ... }
//
// # Stores
//
// store/memory is the reference backend. store/postgres, store/sqlite and
// store/mongo persist accounts and transactions through grove.
//
// # Concurrency
//
// The manager is safe for concurrent use. Reads share a lock; each order
// holds the write lock from validation to commit, so orders never
// interleave.
package tally
