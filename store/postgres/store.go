// Package postgres implements store.Store on PostgreSQL through the grove ORM.
//
// Apply and ApplyDispute each run as a single statement built from
// data-modifying CTEs, so the account row and the transaction row commit
// together or not at all.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/pgdriver"
	_ "github.com/xraph/grove/drivers/pgdriver/pgmigrate"
	"github.com/xraph/grove/migrate"

	"github.com/xraph/tally"
	"github.com/xraph/tally/account"
	tallystore "github.com/xraph/tally/store"
	"github.com/xraph/tally/transaction"
)

// compile-time interface check
var _ tallystore.Store = (*Store)(nil)

// Store implements store.Store using PostgreSQL via Grove ORM.
type Store struct {
	db *grove.DB
	pg *pgdriver.PgDB
}

// New creates a new PostgreSQL store backed by Grove ORM.
func New(db *grove.DB) *Store {
	return &Store{
		db: db,
		pg: pgdriver.Unwrap(db),
	}
}

// DB returns the underlying grove database for direct access.
func (s *Store) DB() *grove.DB { return s.db }

// Migrate creates the required tables and indexes using the grove orchestrator.
func (s *Store) Migrate(ctx context.Context) error {
	executor, err := migrate.NewExecutorFor(s.pg)
	if err != nil {
		return fmt.Errorf("tally/postgres: create migration executor: %w", err)
	}
	orch := migrate.NewOrchestrator(executor, Migrations)
	if _, err := orch.Migrate(ctx); err != nil {
		return fmt.Errorf("tally/postgres: migration failed: %w", err)
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
	err := s.pg.NewSelect(m).
		Where("client_id = $1", int64(clientID)).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("tally/postgres: get account: %w", err)
	}
	a, err := fromAccountModel(m)
	if err != nil {
		return nil, false, fmt.Errorf("tally/postgres: get account: %w", err)
	}
	return a, true, nil
}

func (s *Store) ListAccounts(ctx context.Context) ([]*account.Account, error) {
	var models []accountModel
	err := s.pg.NewSelect(&models).
		OrderExpr("client_id ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("tally/postgres: list accounts: %w", err)
	}

	result := make([]*account.Account, len(models))
	for i := range models {
		a, err := fromAccountModel(&models[i])
		if err != nil {
			return nil, fmt.Errorf("tally/postgres: list accounts: %w", err)
		}
		result[i] = a
	}
	return result, nil
}

func (s *Store) StoreAccount(ctx context.Context, a *account.Account) error {
	m := toAccountModel(a)
	m.UpdatedAt = now()
	_, err := s.pg.NewInsert(m).
		OnConflict("(client_id) DO UPDATE").
		Set("available = EXCLUDED.available").
		Set("held = EXCLUDED.held").
		Set("total = EXCLUDED.total").
		Set("locked = EXCLUDED.locked").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("tally/postgres: store account: %w", err)
	}
	return nil
}

// ==================== Transaction Store ====================

func (s *Store) GetTransaction(ctx context.Context, txID transaction.TxID) (*transaction.Transaction, bool, error) {
	m := new(transactionModel)
	err := s.pg.NewSelect(m).
		Where("tx_id = $1", int64(txID)).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("tally/postgres: get transaction: %w", err)
	}
	tx, err := fromTransactionModel(m)
	if err != nil {
		return nil, false, fmt.Errorf("tally/postgres: get transaction: %w", err)
	}
	return tx, true, nil
}

func (s *Store) StoreTransaction(ctx context.Context, tx *transaction.Transaction) error {
	_, err := s.pg.NewInsert(toTransactionModel(tx)).Exec(ctx)
	if err != nil {
		if isUniqueViolation(err) {
			return tally.ErrTransactionExists
		}
		return fmt.Errorf("tally/postgres: store transaction: %w", err)
	}
	return nil
}

func (s *Store) IsDisputed(ctx context.Context, txID transaction.TxID) (disputed, found bool, err error) {
	m := new(transactionModel)
	err = s.pg.NewSelect(m).
		Where("tx_id = $1", int64(txID)).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return false, false, nil
		}
		return false, false, fmt.Errorf("tally/postgres: is disputed: %w", err)
	}
	return m.Disputed, true, nil
}

func (s *Store) SetDisputed(ctx context.Context, txID transaction.TxID, disputed bool) error {
	res, err := s.pg.NewUpdate((*transactionModel)(nil)).
		Set("disputed = $1", disputed).
		Where("tx_id = $2", int64(txID)).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("tally/postgres: set disputed: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("tally/postgres: set disputed: %w", err)
	}
	if rows == 0 {
		return tally.ErrTransactionNotFound
	}
	return nil
}

// ==================== Atomic writes ====================

// upsertAccountCTE is appended to both atomic statements. It only writes when
// the guard CTE produced a row. Parameters $1-$7 are the account columns.
const upsertAccountCTE = `
account_write AS (
    INSERT INTO tally_accounts (client_id, available, held, total, locked, created_at, updated_at)
    SELECT $1::integer, $2::text, $3::text, $4::text, $5::boolean, $6::timestamptz, $7::timestamptz
    WHERE EXISTS (SELECT 1 FROM guard)
    ON CONFLICT (client_id) DO UPDATE SET
        available  = EXCLUDED.available,
        held       = EXCLUDED.held,
        total      = EXCLUDED.total,
        locked     = EXCLUDED.locked,
        updated_at = EXCLUDED.updated_at
    RETURNING client_id
)
SELECT COUNT(*) FROM guard`

const applySQL = `
WITH guard AS (
    INSERT INTO tally_transactions (tx_id, client_id, kind, amount, related_tx, disputed, recorded_at)
    VALUES ($8, $9, $10, $11, $12, FALSE, $13)
    ON CONFLICT (tx_id) DO NOTHING
    RETURNING tx_id
),` + upsertAccountCTE

const applyDisputeSQL = `
WITH guard AS (
    UPDATE tally_transactions SET disputed = $8::boolean
    WHERE tx_id = $9::bigint
    RETURNING tx_id
),` + upsertAccountCTE

func accountArgs(a *account.Account) []any {
	m := toAccountModel(a)
	created := m.CreatedAt
	if created.IsZero() {
		created = now()
	}
	return []any{m.ClientID, m.Available, m.Held, m.Total, m.Locked, created, now()}
}

func (s *Store) Apply(ctx context.Context, a *account.Account, tx *transaction.Transaction) error {
	t := toTransactionModel(tx)
	args := append(accountArgs(a), t.TxID, t.ClientID, t.Kind, t.Amount, t.RelatedTx, t.RecordedAt)

	var inserted int64
	if err := s.pg.NewRaw(applySQL, args...).Scan(ctx, &inserted); err != nil {
		return fmt.Errorf("tally/postgres: apply: %w", err)
	}
	if inserted == 0 {
		return tally.ErrTransactionExists
	}
	return nil
}

func (s *Store) ApplyDispute(ctx context.Context, a *account.Account, txID transaction.TxID, disputed bool) error {
	args := append(accountArgs(a), disputed, int64(txID))

	var updated int64
	if err := s.pg.NewRaw(applyDisputeSQL, args...).Scan(ctx, &updated); err != nil {
		return fmt.Errorf("tally/postgres: apply dispute: %w", err)
	}
	if updated == 0 {
		return tally.ErrTransactionNotFound
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

// isUniqueViolation reports a PostgreSQL unique_violation (SQLSTATE 23505).
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}
