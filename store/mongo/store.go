// Package mongo implements store.Store on MongoDB through the grove ORM.
//
// Transactions are keyed by tx_id in _id, so the primary index enforces
// uniqueness. Apply and ApplyDispute write the transaction document first and
// revert it when the account write fails. They do not use multi-document
// transactions, which standalone servers reject, so a crash between the two
// writes can leave the transaction side applied without the account side.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/mongodriver"

	"github.com/xraph/tally"
	"github.com/xraph/tally/account"
	tallystore "github.com/xraph/tally/store"
	"github.com/xraph/tally/transaction"
)

// Collection name constants.
const (
	colAccounts     = "tally_accounts"
	colTransactions = "tally_transactions"
)

// compile-time interface check
var _ tallystore.Store = (*Store)(nil)

// Store implements store.Store using MongoDB via Grove ORM.
type Store struct {
	db  *grove.DB
	mdb *mongodriver.MongoDB
}

// New creates a new MongoDB store backed by Grove ORM.
func New(db *grove.DB) *Store {
	return &Store{
		db:  db,
		mdb: mongodriver.Unwrap(db),
	}
}

// DB returns the underlying grove database for direct access.
func (s *Store) DB() *grove.DB { return s.db }

// Migrate creates indexes for all tally collections.
func (s *Store) Migrate(ctx context.Context) error {
	indexes := migrationIndexes()

	for col, models := range indexes {
		if len(models) == 0 {
			continue
		}
		_, err := s.mdb.Collection(col).Indexes().CreateMany(ctx, models)
		if err != nil {
			return fmt.Errorf("tally/mongo: migrate %s indexes: %w", col, err)
		}
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
	var m accountModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": int64(clientID)}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("tally/mongo: get account: %w", err)
	}
	a, err := fromAccountModel(&m)
	if err != nil {
		return nil, false, fmt.Errorf("tally/mongo: get account: %w", err)
	}
	return a, true, nil
}

func (s *Store) ListAccounts(ctx context.Context) ([]*account.Account, error) {
	var models []accountModel
	err := s.mdb.NewFind(&models).
		Filter(bson.M{}).
		Sort(bson.D{{Key: "_id", Value: 1}}).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("tally/mongo: list accounts: %w", err)
	}

	result := make([]*account.Account, len(models))
	for i := range models {
		a, err := fromAccountModel(&models[i])
		if err != nil {
			return nil, fmt.Errorf("tally/mongo: list accounts: %w", err)
		}
		result[i] = a
	}
	return result, nil
}

func (s *Store) StoreAccount(ctx context.Context, a *account.Account) error {
	if err := s.upsertAccount(ctx, a); err != nil {
		return fmt.Errorf("tally/mongo: store account: %w", err)
	}
	return nil
}

func (s *Store) upsertAccount(ctx context.Context, a *account.Account) error {
	m := toAccountModel(a)
	if m.CreatedAt.IsZero() {
		m.CreatedAt = now()
	}
	m.UpdatedAt = now()

	_, err := s.mdb.NewUpdate(m).
		Filter(bson.M{"_id": m.ClientID}).
		SetUpdate(bson.M{
			"$set": bson.M{
				"available":  m.Available,
				"held":       m.Held,
				"total":      m.Total,
				"locked":     m.Locked,
				"updated_at": m.UpdatedAt,
			},
			"$setOnInsert": bson.M{
				"created_at": m.CreatedAt,
			},
		}).
		Upsert().
		Exec(ctx)
	return err
}

// ==================== Transaction Store ====================

func (s *Store) GetTransaction(ctx context.Context, txID transaction.TxID) (*transaction.Transaction, bool, error) {
	m, found, err := s.getTransactionModel(ctx, txID)
	if err != nil || !found {
		return nil, found, err
	}
	tx, err := fromTransactionModel(m)
	if err != nil {
		return nil, false, fmt.Errorf("tally/mongo: get transaction: %w", err)
	}
	return tx, true, nil
}

func (s *Store) getTransactionModel(ctx context.Context, txID transaction.TxID) (*transactionModel, bool, error) {
	var m transactionModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": int64(txID)}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("tally/mongo: get transaction: %w", err)
	}
	return &m, true, nil
}

func (s *Store) StoreTransaction(ctx context.Context, tx *transaction.Transaction) error {
	_, err := s.mdb.NewInsert(toTransactionModel(tx)).Exec(ctx)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return tally.ErrTransactionExists
		}
		return fmt.Errorf("tally/mongo: store transaction: %w", err)
	}
	return nil
}

func (s *Store) IsDisputed(ctx context.Context, txID transaction.TxID) (disputed, found bool, err error) {
	m, found, err := s.getTransactionModel(ctx, txID)
	if err != nil || !found {
		return false, found, err
	}
	return m.Disputed, true, nil
}

func (s *Store) SetDisputed(ctx context.Context, txID transaction.TxID, disputed bool) error {
	res, err := s.mdb.NewUpdate((*transactionModel)(nil)).
		Filter(bson.M{"_id": int64(txID)}).
		Set("disputed", disputed).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("tally/mongo: set disputed: %w", err)
	}
	if res.MatchedCount() == 0 {
		return tally.ErrTransactionNotFound
	}
	return nil
}

// ==================== Atomic writes ====================

func (s *Store) Apply(ctx context.Context, a *account.Account, tx *transaction.Transaction) error {
	if err := s.StoreTransaction(ctx, tx); err != nil {
		return err
	}

	if err := s.upsertAccount(ctx, a); err != nil {
		_, undoErr := s.mdb.NewDelete((*transactionModel)(nil)).
			Filter(bson.M{"_id": int64(tx.TxID)}).
			Exec(ctx)
		return fmt.Errorf("tally/mongo: apply: %w", errors.Join(err, undoErr))
	}
	return nil
}

func (s *Store) ApplyDispute(ctx context.Context, a *account.Account, txID transaction.TxID, disputed bool) error {
	previous, found, err := s.IsDisputed(ctx, txID)
	if err != nil {
		return err
	}
	if !found {
		return tally.ErrTransactionNotFound
	}

	if err := s.SetDisputed(ctx, txID, disputed); err != nil {
		return err
	}

	if err := s.upsertAccount(ctx, a); err != nil {
		undoErr := s.SetDisputed(ctx, txID, previous)
		return fmt.Errorf("tally/mongo: apply dispute: %w", errors.Join(err, undoErr))
	}
	return nil
}

// ==================== Helpers ====================

// now returns the current UTC time.
func now() time.Time {
	return time.Now().UTC()
}

// isNoDocuments checks if an error wraps mongo.ErrNoDocuments.
func isNoDocuments(err error) bool {
	return errors.Is(err, mongo.ErrNoDocuments)
}

// migrationIndexes returns the index definitions for all tally collections.
func migrationIndexes() map[string][]mongo.IndexModel {
	return map[string][]mongo.IndexModel{
		colAccounts: {
			{Keys: bson.D{{Key: "locked", Value: 1}}},
		},
		colTransactions: {
			{Keys: bson.D{{Key: "client_id", Value: 1}, {Key: "recorded_at", Value: 1}}},
			{Keys: bson.D{{Key: "disputed", Value: 1}}},
		},
	}
}
