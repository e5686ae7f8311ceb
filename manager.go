package tally

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/xraph/tally/account"
	"github.com/xraph/tally/plugin"
	"github.com/xraph/tally/store"
	"github.com/xraph/tally/transaction"
)

// TracerName is the instrumentation name used for spans.
const TracerName = "github.com/xraph/tally"

// AccountManager turns orders into transactions and applies them to client
// accounts. It is the only writer of its store and is safe for concurrent
// use: reads share a lock, and each order holds the exclusive lock for its
// whole validate, mutate and persist sequence.
type AccountManager struct {
	mu sync.RWMutex

	store   store.Store
	plugins *plugin.Registry
	logger  *slog.Logger
	tracer  trace.Tracer
}

// New creates a new AccountManager backed by s.
func New(s store.Store, opts ...Option) *AccountManager {
	m := &AccountManager{
		store:   s,
		plugins: plugin.NewRegistry(),
		logger:  slog.Default(),
		tracer:  otel.Tracer(TracerName),
	}

	for _, opt := range opts {
		opt(m)
	}

	return m
}

// Option configures an AccountManager.
type Option func(*AccountManager)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(m *AccountManager) {
		m.logger = logger
		m.plugins.WithLogger(logger)
	}
}

// WithPlugin registers a plugin.
func WithPlugin(p plugin.Plugin) Option {
	return func(m *AccountManager) {
		_ = m.plugins.Register(p) //nolint:errcheck // best-effort plugin registration during init
	}
}

// WithPluginTimeout bounds how long a single plugin hook may run.
func WithPluginTimeout(d time.Duration) Option {
	return func(m *AccountManager) {
		m.plugins.WithTimeout(d)
	}
}

// WithTracer sets the tracer used for order spans. The global tracer
// provider is used by default.
func WithTracer(tracer trace.Tracer) Option {
	return func(m *AccountManager) {
		m.tracer = tracer
	}
}

// Plugins returns the plugin registry.
func (m *AccountManager) Plugins() *plugin.Registry { return m.plugins }

// Store returns the underlying store.
func (m *AccountManager) Store() store.Store { return m.store }

// Start migrates the store and initializes plugins.
func (m *AccountManager) Start(ctx context.Context) error {
	if err := m.store.Migrate(ctx); err != nil {
		return err
	}

	m.plugins.EmitInit(ctx, m)

	m.logger.Info("tally started",
		"plugins", m.plugins.Count(),
	)

	return nil
}

// Stop shuts down plugins and closes the store.
func (m *AccountManager) Stop() error {
	ctx := context.Background()
	m.plugins.EmitShutdown(ctx)

	m.logger.Info("tally stopped")

	return m.store.Close()
}

// ──────────────────────────────────────────────────
// Reads
// ──────────────────────────────────────────────────

// GetAccount returns a copy of the client's account. found is false when
// the client has no account yet.
func (m *AccountManager) GetAccount(ctx context.Context, clientID account.ClientID) (*account.Account, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.store.GetAccount(ctx, clientID)
}

// GetAccounts returns copies of all accounts ordered by client ID.
func (m *AccountManager) GetAccounts(ctx context.Context) ([]*account.Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.store.ListAccounts(ctx)
}

// ──────────────────────────────────────────────────
// Order processing
// ──────────────────────────────────────────────────

// outcome collects what an accepted order changed, for plugin dispatch once
// the lock is released.
type outcome struct {
	tx      *transaction.Transaction
	related *transaction.Transaction
	acc     *account.Account
	locked  bool
}

// ProcessOrder validates order against stored history, applies it to the
// owning account and persists the result.
//
// Deposits and withdrawals return the stored transaction. Disputes,
// resolves and chargebacks return a transaction wrapping the order itself;
// it is not stored. Rejections are *TransactionError values for history
// problems and account errors for balance problems. A rejected order
// changes nothing.
func (m *AccountManager) ProcessOrder(ctx context.Context, order transaction.Order) (*transaction.Transaction, error) {
	start := time.Now()

	ctx, span := m.tracer.Start(ctx, "tally.process_order",
		trace.WithAttributes(
			attribute.Int64("tally.tx_id", int64(order.TxID)),
			attribute.Int("tally.client_id", int(order.ClientID)),
			attribute.String("tally.kind", string(order.Kind.Type())),
		),
	)
	defer span.End()

	out, err := m.process(ctx, order)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())

		m.logger.Debug("order rejected",
			"tx", order.TxID,
			"client", order.ClientID,
			"kind", order.Kind.Type(),
			"error", err,
		)
		m.plugins.EmitOrderRejected(ctx, order, err)
		return nil, err
	}

	m.emit(ctx, order.Kind.Type(), out)
	m.plugins.EmitOrderProcessed(ctx, order, time.Since(start))

	m.logger.Debug("order processed",
		"tx", order.TxID,
		"client", order.ClientID,
		"kind", order.Kind.Type(),
	)

	return out.tx, nil
}

func (m *AccountManager) process(ctx context.Context, order transaction.Order) (*outcome, error) {
	switch order.Kind.Type() {
	case transaction.KindDeposit, transaction.KindWithdrawal:
		return m.processMovement(ctx, order)
	case transaction.KindDispute:
		return m.processDispute(ctx, order)
	case transaction.KindResolve, transaction.KindChargeback:
		return m.processSettlement(ctx, order)
	default:
		return nil, txError(ErrInvalidOrder, order.TxID)
	}
}

// processMovement handles deposits and withdrawals.
func (m *AccountManager) processMovement(ctx context.Context, order transaction.Order) (*outcome, error) {
	// Early duplicate check for a well-typed error only. The read lock is
	// released before the write lock is taken, so two orders with the same
	// TxID can both pass here. Uniqueness is guaranteed by Store.Apply
	// (ErrTransactionExists), see TestApplyCatchesDuplicateMissedByEarlyCheck.
	m.mu.RLock()
	_, exists, err := m.store.GetTransaction(ctx, order.TxID)
	m.mu.RUnlock()
	if err != nil {
		return nil, fmt.Errorf("tally: lookup tx %d: %w", order.TxID, err)
	}
	if exists {
		return nil, txError(ErrDuplicateTransactionID, order.TxID)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	acc, found, err := m.store.GetAccount(ctx, order.ClientID)
	if err != nil {
		return nil, fmt.Errorf("tally: lookup account %d: %w", order.ClientID, err)
	}
	if !found {
		acc = account.New(order.ClientID)
	}

	amount, _ := order.Kind.Amount()
	if order.Kind.Type() == transaction.KindDeposit {
		err = acc.Deposit(amount)
	} else {
		err = acc.Withdraw(amount)
	}
	if err != nil {
		return nil, err
	}

	tx := transaction.New(order)
	if err := m.store.Apply(ctx, acc, tx); err != nil {
		if errors.Is(err, ErrTransactionExists) {
			return nil, txError(ErrDuplicateTransactionID, order.TxID)
		}
		return nil, fmt.Errorf("tally: apply tx %d: %w", order.TxID, err)
	}

	return &outcome{tx: tx, acc: acc.Clone()}, nil
}

func (m *AccountManager) processDispute(ctx context.Context, order transaction.Order) (*outcome, error) {
	relatedID, _ := order.Kind.RelatedTx()

	m.mu.Lock()
	defer m.mu.Unlock()

	disputed, _, err := m.store.IsDisputed(ctx, relatedID)
	if err != nil {
		return nil, fmt.Errorf("tally: lookup dispute %d: %w", relatedID, err)
	}
	if disputed {
		return nil, txError(ErrAlreadyDisputedTransaction, relatedID)
	}

	related, found, err := m.store.GetTransaction(ctx, relatedID)
	if err != nil {
		return nil, fmt.Errorf("tally: lookup tx %d: %w", relatedID, err)
	}
	if !found {
		return nil, txError(ErrRelatedTransactionNotFound, relatedID)
	}
	if related.Kind.Type() != transaction.KindDeposit {
		return nil, txError(ErrRelatedTransactionNotDisputable, relatedID)
	}

	acc, err := m.ownerOf(ctx, related)
	if err != nil {
		return nil, err
	}
	amount, _ := related.Kind.Amount()
	if err := acc.Dispute(amount); err != nil {
		return nil, err
	}

	if err := m.store.ApplyDispute(ctx, acc, relatedID, true); err != nil {
		return nil, fmt.Errorf("tally: apply dispute %d: %w", relatedID, err)
	}

	return &outcome{tx: transaction.New(order), related: related, acc: acc.Clone()}, nil
}

// processSettlement handles resolves and chargebacks of an open dispute.
func (m *AccountManager) processSettlement(ctx context.Context, order transaction.Order) (*outcome, error) {
	relatedID, _ := order.Kind.RelatedTx()

	m.mu.Lock()
	defer m.mu.Unlock()

	disputed, _, err := m.store.IsDisputed(ctx, relatedID)
	if err != nil {
		return nil, fmt.Errorf("tally: lookup dispute %d: %w", relatedID, err)
	}
	if !disputed {
		return nil, txError(ErrNonDisputedTransaction, relatedID)
	}

	related, found, err := m.store.GetTransaction(ctx, relatedID)
	if err != nil {
		return nil, fmt.Errorf("tally: lookup tx %d: %w", relatedID, err)
	}
	// A disputed transaction is always a stored deposit.
	if !found || related.Kind.Type() != transaction.KindDeposit {
		return nil, txError(ErrNonDisputedTransaction, relatedID)
	}

	acc, err := m.ownerOf(ctx, related)
	if err != nil {
		return nil, err
	}
	wasLocked := acc.Locked
	amount, _ := related.Kind.Amount()
	if order.Kind.Type() == transaction.KindChargeback {
		err = acc.Chargeback(amount)
	} else {
		err = acc.Resolve(amount)
	}
	if err != nil {
		return nil, err
	}

	if err := m.store.ApplyDispute(ctx, acc, relatedID, false); err != nil {
		return nil, fmt.Errorf("tally: apply %s %d: %w", order.Kind.Type(), relatedID, err)
	}

	return &outcome{
		tx:      transaction.New(order),
		related: related,
		acc:     acc.Clone(),
		locked:  acc.Locked && !wasLocked,
	}, nil
}

// ownerOf loads the account that owns a stored transaction. Must be called
// with the write lock held.
func (m *AccountManager) ownerOf(ctx context.Context, tx *transaction.Transaction) (*account.Account, error) {
	acc, found, err := m.store.GetAccount(ctx, tx.ClientID)
	if err != nil {
		return nil, fmt.Errorf("tally: lookup account %d: %w", tx.ClientID, err)
	}
	if !found {
		return nil, fmt.Errorf("tally: account %d of tx %d missing", tx.ClientID, tx.TxID)
	}
	return acc, nil
}

func (m *AccountManager) emit(ctx context.Context, kind transaction.KindType, out *outcome) {
	switch kind {
	case transaction.KindDeposit, transaction.KindWithdrawal:
		m.plugins.EmitTransactionRecorded(ctx, out.tx, out.acc)
	case transaction.KindDispute:
		m.plugins.EmitDisputeOpened(ctx, out.related, out.acc)
	case transaction.KindResolve:
		m.plugins.EmitDisputeResolved(ctx, out.related, out.acc)
	case transaction.KindChargeback:
		m.plugins.EmitChargeback(ctx, out.related, out.acc)
	}
	if out.locked {
		m.logger.Info("account locked",
			"client", out.acc.ClientID,
			"tx", out.related.TxID,
		)
		m.plugins.EmitAccountLocked(ctx, out.acc)
	}
}
