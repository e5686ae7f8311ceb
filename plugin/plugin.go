// Package plugin provides an extensible plugin system for tally.
// Plugins can hook into lifecycle and order-processing events to extend
// functionality without touching the account manager.
package plugin

import (
	"context"
	"time"

	"github.com/xraph/tally/account"
	"github.com/xraph/tally/transaction"
)

// Plugin is the base interface that all plugins must implement.
type Plugin interface {
	Name() string
}

// ──────────────────────────────────────────────────
// Lifecycle hooks
// ──────────────────────────────────────────────────

// OnInit is called when the account manager starts.
type OnInit interface {
	Plugin
	OnInit(ctx context.Context, manager interface{}) error
}

// OnShutdown is called when the account manager stops.
type OnShutdown interface {
	Plugin
	OnShutdown(ctx context.Context) error
}

// ──────────────────────────────────────────────────
// Transaction hooks
// ──────────────────────────────────────────────────

// OnTransactionRecorded is called after a deposit or withdrawal is stored.
// acc is the account state after the transaction.
type OnTransactionRecorded interface {
	Plugin
	OnTransactionRecorded(ctx context.Context, tx *transaction.Transaction, acc *account.Account) error
}

// ──────────────────────────────────────────────────
// Dispute hooks
// ──────────────────────────────────────────────────

// OnDisputeOpened is called after a deposit is disputed.
type OnDisputeOpened interface {
	Plugin
	OnDisputeOpened(ctx context.Context, disputed *transaction.Transaction, acc *account.Account) error
}

// OnDisputeResolved is called after a dispute is resolved in the client's favour.
type OnDisputeResolved interface {
	Plugin
	OnDisputeResolved(ctx context.Context, disputed *transaction.Transaction, acc *account.Account) error
}

// OnChargeback is called after a disputed deposit is charged back.
type OnChargeback interface {
	Plugin
	OnChargeback(ctx context.Context, disputed *transaction.Transaction, acc *account.Account) error
}

// OnAccountLocked is called when an order locks an account.
type OnAccountLocked interface {
	Plugin
	OnAccountLocked(ctx context.Context, acc *account.Account) error
}

// ──────────────────────────────────────────────────
// Order hooks
// ──────────────────────────────────────────────────

// OnOrderProcessed is called for every accepted order.
type OnOrderProcessed interface {
	Plugin
	OnOrderProcessed(ctx context.Context, order transaction.Order, elapsed time.Duration) error
}

// OnOrderRejected is called for every rejected order with the reason.
type OnOrderRejected interface {
	Plugin
	OnOrderRejected(ctx context.Context, order transaction.Order, reason error) error
}
