// Package sqlite implements store.Store on SQLite through the grove ORM.
//
// Apply and ApplyDispute run inside one SQLite transaction, so the account
// row and the transaction row commit together or not at all.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/sqlitedriver"
	_ "github.com/xraph/grove/drivers/sqlitedriver/sqlitemigrate"
	"github.com/xraph/grove/migrate"

	"github.com/xraph/tally"
	"github.com/xraph/tally/account"
	tallystore "github.com/xraph/tally/store"
	"github.com/xraph/tally/transaction"
)

// compile-time interface check
var _ tallystore.Store = (*Store)(nil)

// querier is satisfied by both the pool and an open transaction.
type querier interface {
	NewSelect(model ...any) *sqlitedriver.SelectQuery
	NewInsert(model any) *sqlitedriver.InsertQuery
	NewUpdate(model any) *sqlitedriver.UpdateQuery
}

var (
	_ querier = (*sqlitedriver.SqliteDB)(nil)
	_ querier = (*sqlitedriver.SqliteTx)(nil)
)

// Store implements store.Store using SQLite via Grove ORM.
type Store struct {
	db  *grove.DB
	sdb *sqlitedriver.SqliteDB
}

// New creates a new SQLite store backed by Grove ORM.
func New(db *grove.DB) *Store {
	return &Store{
		db:  db,
		sdb: sqlitedriver.Unwrap(db),
	}
}

// DB returns the underlying grove database for direct access.
func (s *Store) DB() *grove.DB { return s.db }

// Migrate creates the required tables and indexes using the grove orchestrator.
func (s *Store) Migrate(ctx context.Context) error {
	executor, err := migrate.NewExecutorFor(s.sdb)
	if err != nil {
		return fmt.Errorf("tally/sqlite: create migration executor: %w", err)
	}
	orch := migrate.NewOrchestrator(executor, Migrations)
	if _, err := orch.Migrate(ctx); err != nil {
		return fmt.Errorf("tally/sqlite: migration failed: %w", err)
	}
	return nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// ==================== Account Store ====================

func (s *Store) GetAccount(ctx context.Context, clientID account.ClientID) (*account.Account, bool, error) {
	m := new(accountModel)
	err := s.sdb.NewSelect(m).
		Where("client_id = ?", int64(clientID)).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("tally/sqlite: get account: %w", err)
	}
	a, err := fromAccountModel(m)
	if err != nil {
		return nil, false, fmt.Errorf("tally/sqlite: get account: %w", err)
	}
	return a, true, nil
}

func (s *Store) ListAccounts(ctx context.Context) ([]*account.Account, error) {
	var models []accountModel
	err := s.sdb.NewSelect(&models).
		OrderExpr("client_id ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("tally/sqlite: list accounts: %w", err)
	}

	result := make([]*account.Account, len(models))
	for i := range models {
		a, err := fromAccountModel(&models[i])
		if err != nil {
			return nil, fmt.Errorf("tally/sqlite: list accounts: %w", err)
		}
		result[i] = a
	}
	return result, nil
}

func (s *Store) StoreAccount(ctx context.Context, a *account.Account) error {
	if err := upsertAccount(ctx, s.sdb, a); err != nil {
		return fmt.Errorf("tally/sqlite: store account: %w", err)
	}
	return nil
}

func upsertAccount(ctx context.Context, q querier, a *account.Account) error {
	m := toAccountModel(a)
	if m.CreatedAt.IsZero() {
		m.CreatedAt = now()
	}
	m.UpdatedAt = now()
	_, err := q.NewInsert(m).
		OnConflict("(client_id) DO UPDATE").
		Set("available = EXCLUDED.available").
		Set("held = EXCLUDED.held").
		Set("total = EXCLUDED.total").
		Set("locked = EXCLUDED.locked").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	return err
}

// ==================== Transaction Store ====================

func (s *Store) GetTransaction(ctx context.Context, txID transaction.TxID) (*transaction.Transaction, bool, error) {
	m, found, err := getTransactionModel(ctx, s.sdb, txID)
	if err != nil || !found {
		return nil, found, err
	}
	tx, err := fromTransactionModel(m)
	if err != nil {
		return nil, false, fmt.Errorf("tally/sqlite: get transaction: %w", err)
	}
	return tx, true, nil
}

func getTransactionModel(ctx context.Context, q querier, txID transaction.TxID) (*transactionModel, bool, error) {
	m := new(transactionModel)
	err := q.NewSelect(m).
		Where("tx_id = ?", int64(txID)).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("tally/sqlite: get transaction: %w", err)
	}
	return m, true, nil
}

func (s *Store) StoreTransaction(ctx context.Context, tx *transaction.Transaction) error {
	if err := insertTransaction(ctx, s.sdb, tx); err != nil {
		if errors.Is(err, tally.ErrTransactionExists) {
			return err
		}
		return fmt.Errorf("tally/sqlite: store transaction: %w", err)
	}
	return nil
}

// insertTransaction returns tally.ErrTransactionExists when the ID is taken.
func insertTransaction(ctx context.Context, q querier, tx *transaction.Transaction) error {
	res, err := q.NewInsert(toTransactionModel(tx)).
		OnConflict("(tx_id) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return tally.ErrTransactionExists
	}
	return nil
}

func (s *Store) IsDisputed(ctx context.Context, txID transaction.TxID) (disputed, found bool, err error) {
	m, found, err := getTransactionModel(ctx, s.sdb, txID)
	if err != nil || !found {
		return false, found, err
	}
	return m.Disputed, true, nil
}

func (s *Store) SetDisputed(ctx context.Context, txID transaction.TxID, disputed bool) error {
	if err := setDisputed(ctx, s.sdb, txID, disputed); err != nil {
		if errors.Is(err, tally.ErrTransactionNotFound) {
			return err
		}
		return fmt.Errorf("tally/sqlite: set disputed: %w", err)
	}
	return nil
}

// setDisputed returns tally.ErrTransactionNotFound when no row matches.
func setDisputed(ctx context.Context, q querier, txID transaction.TxID, disputed bool) error {
	res, err := q.NewUpdate((*transactionModel)(nil)).
		Set("disputed = ?", disputed).
		Where("tx_id = ?", int64(txID)).
		Exec(ctx)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return tally.ErrTransactionNotFound
	}
	return nil
}

// ==================== Atomic writes ====================

func (s *Store) Apply(ctx context.Context, a *account.Account, tx *transaction.Transaction) error {
	return s.inTx(ctx, "apply", func(q querier) error {
		if err := insertTransaction(ctx, q, tx); err != nil {
			return err
		}
		return upsertAccount(ctx, q, a)
	})
}

func (s *Store) ApplyDispute(ctx context.Context, a *account.Account, txID transaction.TxID, disputed bool) error {
	return s.inTx(ctx, "apply dispute", func(q querier) error {
		if err := setDisputed(ctx, q, txID, disputed); err != nil {
			return err
		}
		return upsertAccount(ctx, q, a)
	})
}

// inTx runs fn inside a transaction and commits only when fn succeeds.
// Store sentinels returned by fn are passed through unwrapped.
func (s *Store) inTx(ctx context.Context, op string, fn func(q querier) error) error {
	tx, err := s.sdb.BeginTxQuery(ctx, nil)
	if err != nil {
		return fmt.Errorf("tally/sqlite: %s: begin: %w", op, err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(tx); err != nil {
		if errors.Is(err, tally.ErrTransactionExists) || errors.Is(err, tally.ErrTransactionNotFound) {
			return err
		}
		return fmt.Errorf("tally/sqlite: %s: %w", op, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("tally/sqlite: %s: commit: %w", op, err)
	}
	return nil
}

// ==================== Helpers ====================

// now returns the current UTC time.
func now() time.Time {
	return time.Now().UTC()
}

// isNoRows checks for the standard sql.ErrNoRows sentinel.
func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
