// Package audithook bridges tally order events to an audit trail backend.
//
// It defines a local Recorder interface so the package does not depend on
// any particular audit system. Callers inject a RecorderFunc adapter at
// wiring time.
package audithook

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/xraph/tally/account"
	"github.com/xraph/tally/id"
	"github.com/xraph/tally/plugin"
	"github.com/xraph/tally/transaction"
	"github.com/xraph/tally/types"
)

// Compile-time interface checks.
var (
	_ plugin.Plugin                = (*Extension)(nil)
	_ plugin.OnTransactionRecorded = (*Extension)(nil)
	_ plugin.OnDisputeOpened       = (*Extension)(nil)
	_ plugin.OnDisputeResolved     = (*Extension)(nil)
	_ plugin.OnChargeback          = (*Extension)(nil)
	_ plugin.OnAccountLocked       = (*Extension)(nil)
	_ plugin.OnOrderRejected       = (*Extension)(nil)
)

// Recorder is the interface that audit backends must implement.
type Recorder interface {
	Record(ctx context.Context, event *AuditEvent) error
}

// AuditEvent is a single audit trail entry.
type AuditEvent struct {
	ID         id.AuditEventID `json:"id"`
	Timestamp  time.Time       `json:"timestamp"`
	Action     string          `json:"action"`
	Resource   string          `json:"resource"`
	Category   string          `json:"category"`
	ResourceID string          `json:"resource_id,omitempty"`
	Metadata   map[string]any  `json:"metadata,omitempty"`
	Outcome    string          `json:"outcome"`
	Severity   string          `json:"severity"`
	Reason     string          `json:"reason,omitempty"`
}

// RecorderFunc is an adapter to use a plain function as a Recorder.
type RecorderFunc func(ctx context.Context, event *AuditEvent) error

// Record implements Recorder.
func (f RecorderFunc) Record(ctx context.Context, event *AuditEvent) error {
	return f(ctx, event)
}

// Extension bridges tally events to an audit trail backend.
type Extension struct {
	recorder Recorder
	enabled  map[string]bool // nil = all enabled
	logger   *slog.Logger
}

// New creates an Extension that emits audit events through the provided Recorder.
func New(r Recorder, opts ...Option) *Extension {
	e := &Extension{
		recorder: r,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Name implements plugin.Plugin.
func (e *Extension) Name() string { return "audit-hook" }

// ──────────────────────────────────────────────────
// Transaction hooks
// ──────────────────────────────────────────────────

// OnTransactionRecorded implements plugin.OnTransactionRecorded.
func (e *Extension) OnTransactionRecorded(ctx context.Context, tx *transaction.Transaction, acc *account.Account) error {
	action := ActionDepositRecorded
	if tx.Kind.Type() == transaction.KindWithdrawal {
		action = ActionWithdrawalRecorded
	}
	amount, _ := tx.Kind.Amount()

	return e.record(ctx, action, SeverityInfo, OutcomeSuccess,
		ResourceTransaction, txResourceID(tx.TxID), CategoryLedger, nil,
		"client", acc.ClientID,
		"amount", types.FormatAmount(amount),
		"available", types.FormatAmount(acc.Available),
	)
}

// ──────────────────────────────────────────────────
// Dispute hooks
// ──────────────────────────────────────────────────

// OnDisputeOpened implements plugin.OnDisputeOpened.
func (e *Extension) OnDisputeOpened(ctx context.Context, disputed *transaction.Transaction, acc *account.Account) error {
	return e.recordDispute(ctx, ActionDisputeOpened, SeverityWarning, disputed, acc)
}

// OnDisputeResolved implements plugin.OnDisputeResolved.
func (e *Extension) OnDisputeResolved(ctx context.Context, disputed *transaction.Transaction, acc *account.Account) error {
	return e.recordDispute(ctx, ActionDisputeResolved, SeverityInfo, disputed, acc)
}

// OnChargeback implements plugin.OnChargeback.
func (e *Extension) OnChargeback(ctx context.Context, disputed *transaction.Transaction, acc *account.Account) error {
	return e.recordDispute(ctx, ActionChargeback, SeverityCritical, disputed, acc)
}

func (e *Extension) recordDispute(ctx context.Context, action, severity string, disputed *transaction.Transaction, acc *account.Account) error {
	amount, _ := disputed.Kind.Amount()
	return e.record(ctx, action, severity, OutcomeSuccess,
		ResourceTransaction, txResourceID(disputed.TxID), CategoryDispute, nil,
		"client", acc.ClientID,
		"amount", types.FormatAmount(amount),
		"held", types.FormatAmount(acc.Held),
	)
}

// ──────────────────────────────────────────────────
// Account and order hooks
// ──────────────────────────────────────────────────

// OnAccountLocked implements plugin.OnAccountLocked.
func (e *Extension) OnAccountLocked(ctx context.Context, acc *account.Account) error {
	return e.record(ctx, ActionAccountLocked, SeverityCritical, OutcomeSuccess,
		ResourceAccount, strconv.Itoa(int(acc.ClientID)), CategorySecurity, nil,
		"total", types.FormatAmount(acc.Total),
	)
}

// OnOrderRejected implements plugin.OnOrderRejected.
func (e *Extension) OnOrderRejected(ctx context.Context, order transaction.Order, reason error) error {
	return e.record(ctx, ActionOrderRejected, SeverityWarning, OutcomeFailure,
		ResourceOrder, txResourceID(order.TxID), CategoryLedger, reason,
		"client", order.ClientID,
		"kind", string(order.Kind.Type()),
	)
}

// record builds and sends an audit event. Recorder failures are logged and
// never returned so that auditing cannot reject an order.
func (e *Extension) record(
	ctx context.Context,
	action, severity, outcome string,
	resource, resourceID, category string,
	err error,
	kvPairs ...any,
) error {
	if e.enabled != nil && !e.enabled[action] {
		return nil
	}

	meta := make(map[string]any, len(kvPairs)/2+1)
	for i := 0; i+1 < len(kvPairs); i += 2 {
		key, ok := kvPairs[i].(string)
		if !ok {
			key = fmt.Sprintf("%v", kvPairs[i])
		}
		meta[key] = kvPairs[i+1]
	}

	var reason string
	if err != nil {
		reason = err.Error()
		meta["error"] = err.Error()
	}

	evt := &AuditEvent{
		ID:         id.NewAuditEventID(),
		Timestamp:  time.Now().UTC(),
		Action:     action,
		Resource:   resource,
		Category:   category,
		ResourceID: resourceID,
		Metadata:   meta,
		Outcome:    outcome,
		Severity:   severity,
		Reason:     reason,
	}

	if recErr := e.recorder.Record(ctx, evt); recErr != nil {
		e.logger.Warn("audit_hook: failed to record audit event",
			"action", action,
			"resource_id", resourceID,
			"error", recErr,
		)
	}
	return nil
}

func txResourceID(txID transaction.TxID) string {
	return strconv.FormatUint(uint64(txID), 10)
}
