// Package observability provides a metrics extension for tally that records
// order and dispute counts through a pluggable MetricFactory.
package observability

import (
	"context"
	"errors"
	"time"

	"github.com/xraph/tally"
	"github.com/xraph/tally/account"
	"github.com/xraph/tally/plugin"
	"github.com/xraph/tally/transaction"
)

// Ensure MetricsExtension implements required interfaces.
var (
	_ plugin.Plugin                = (*MetricsExtension)(nil)
	_ plugin.OnInit                = (*MetricsExtension)(nil)
	_ plugin.OnTransactionRecorded = (*MetricsExtension)(nil)
	_ plugin.OnDisputeOpened       = (*MetricsExtension)(nil)
	_ plugin.OnDisputeResolved     = (*MetricsExtension)(nil)
	_ plugin.OnChargeback          = (*MetricsExtension)(nil)
	_ plugin.OnAccountLocked       = (*MetricsExtension)(nil)
	_ plugin.OnOrderProcessed      = (*MetricsExtension)(nil)
	_ plugin.OnOrderRejected       = (*MetricsExtension)(nil)
)

// Counter interface for metric counters.
type Counter interface {
	Inc()
	Add(float64)
}

// Histogram interface for metric histograms.
type Histogram interface {
	Observe(float64)
}

// MetricFactory creates metrics.
type MetricFactory interface {
	Counter(name string) Counter
	Histogram(name string) Histogram
}

// MetricsExtension records order-processing metrics.
// Register it as a tally plugin to track ledger activity.
type MetricsExtension struct {
	factory MetricFactory

	// Order metrics
	OrdersProcessed Counter
	OrdersRejected  Counter
	OrderLatency    Histogram

	// Movement metrics
	Deposits       Counter
	Withdrawals    Counter
	DepositedTotal Counter

	// Dispute metrics
	DisputesOpened   Counter
	DisputesResolved Counter
	Chargebacks      Counter
	AccountsLocked   Counter

	// Rejection breakdown
	RejectedDuplicate Counter
	RejectedFunds     Counter
	RejectedLocked    Counter
}

// NewMetricsExtension creates a MetricsExtension with the provided MetricFactory.
func NewMetricsExtension(factory MetricFactory) *MetricsExtension {
	return &MetricsExtension{
		factory: factory,

		OrdersProcessed: factory.Counter("tally.orders.processed"),
		OrdersRejected:  factory.Counter("tally.orders.rejected"),
		OrderLatency:    factory.Histogram("tally.orders.latency_ms"),

		Deposits:       factory.Counter("tally.deposits"),
		Withdrawals:    factory.Counter("tally.withdrawals"),
		DepositedTotal: factory.Counter("tally.deposits.amount"),

		DisputesOpened:   factory.Counter("tally.disputes.opened"),
		DisputesResolved: factory.Counter("tally.disputes.resolved"),
		Chargebacks:      factory.Counter("tally.chargebacks"),
		AccountsLocked:   factory.Counter("tally.accounts.locked"),

		RejectedDuplicate: factory.Counter("tally.orders.rejected.duplicate"),
		RejectedFunds:     factory.Counter("tally.orders.rejected.funds"),
		RejectedLocked:    factory.Counter("tally.orders.rejected.locked"),
	}
}

// Name implements plugin.Plugin.
func (m *MetricsExtension) Name() string { return "observability-metrics" }

// OnInit implements plugin.OnInit.
func (m *MetricsExtension) OnInit(_ context.Context, _ interface{}) error {
	return nil
}

// OnTransactionRecorded implements plugin.OnTransactionRecorded.
func (m *MetricsExtension) OnTransactionRecorded(_ context.Context, tx *transaction.Transaction, _ *account.Account) error {
	switch tx.Kind.Type() {
	case transaction.KindDeposit:
		m.Deposits.Inc()
		if amount, ok := tx.Kind.Amount(); ok {
			m.DepositedTotal.Add(amount.InexactFloat64())
		}
	case transaction.KindWithdrawal:
		m.Withdrawals.Inc()
	}
	return nil
}

// OnDisputeOpened implements plugin.OnDisputeOpened.
func (m *MetricsExtension) OnDisputeOpened(_ context.Context, _ *transaction.Transaction, _ *account.Account) error {
	m.DisputesOpened.Inc()
	return nil
}

// OnDisputeResolved implements plugin.OnDisputeResolved.
func (m *MetricsExtension) OnDisputeResolved(_ context.Context, _ *transaction.Transaction, _ *account.Account) error {
	m.DisputesResolved.Inc()
	return nil
}

// OnChargeback implements plugin.OnChargeback.
func (m *MetricsExtension) OnChargeback(_ context.Context, _ *transaction.Transaction, _ *account.Account) error {
	m.Chargebacks.Inc()
	return nil
}

// OnAccountLocked implements plugin.OnAccountLocked.
func (m *MetricsExtension) OnAccountLocked(_ context.Context, _ *account.Account) error {
	m.AccountsLocked.Inc()
	return nil
}

// OnOrderProcessed implements plugin.OnOrderProcessed.
func (m *MetricsExtension) OnOrderProcessed(_ context.Context, _ transaction.Order, elapsed time.Duration) error {
	m.OrdersProcessed.Inc()
	m.OrderLatency.Observe(float64(elapsed.Microseconds()) / 1000)
	return nil
}

// OnOrderRejected implements plugin.OnOrderRejected.
func (m *MetricsExtension) OnOrderRejected(_ context.Context, _ transaction.Order, reason error) error {
	m.OrdersRejected.Inc()
	switch {
	case errors.Is(reason, account.ErrAccountLocked):
		m.RejectedLocked.Inc()
	case errors.Is(reason, account.ErrInsufficientAvailableFunds),
		errors.Is(reason, account.ErrInsufficientHeldFunds):
		m.RejectedFunds.Inc()
	case errors.Is(reason, tally.ErrDuplicateTransactionID):
		m.RejectedDuplicate.Inc()
	}
	return nil
}
