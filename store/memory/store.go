// Package memory provides an in-memory store.Store. It is the reference
// backend and the default for the CLI. Nothing survives a restart.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/xraph/tally"
	"github.com/xraph/tally/account"
	"github.com/xraph/tally/store"
	"github.com/xraph/tally/transaction"
)

// compile-time interface check
var _ store.Store = (*Store)(nil)

type txRecord struct {
	tx       *transaction.Transaction
	disputed bool
}

// Store keeps accounts and transactions in maps. Values are copied on the
// way in and out so callers never share state with the store.
type Store struct {
	mu     sync.RWMutex
	closed bool

	accounts     map[account.ClientID]*account.Account
	transactions map[transaction.TxID]*txRecord
}

func New() *Store {
	return &Store{
		accounts:     make(map[account.ClientID]*account.Account),
		transactions: make(map[transaction.TxID]*txRecord),
	}
}

// ==================== Account Store ====================

func (s *Store) GetAccount(_ context.Context, clientID account.ClientID) (*account.Account, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, false, tally.ErrStoreClosed
	}
	if a, ok := s.accounts[clientID]; ok {
		return a.Clone(), true, nil
	}
	return nil, false, nil
}

func (s *Store) ListAccounts(_ context.Context) ([]*account.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, tally.ErrStoreClosed
	}
	result := make([]*account.Account, 0, len(s.accounts))
	for _, a := range s.accounts {
		result = append(result, a.Clone())
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].ClientID < result[j].ClientID
	})
	return result, nil
}

func (s *Store) StoreAccount(_ context.Context, a *account.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return tally.ErrStoreClosed
	}
	s.accounts[a.ClientID] = a.Clone()
	return nil
}

// ==================== Transaction Store ====================

func (s *Store) GetTransaction(_ context.Context, txID transaction.TxID) (*transaction.Transaction, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, false, tally.ErrStoreClosed
	}
	if r, ok := s.transactions[txID]; ok {
		return r.tx.Clone(), true, nil
	}
	return nil, false, nil
}

func (s *Store) StoreTransaction(_ context.Context, tx *transaction.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return tally.ErrStoreClosed
	}
	if _, exists := s.transactions[tx.TxID]; exists {
		return tally.ErrTransactionExists
	}
	s.transactions[tx.TxID] = &txRecord{tx: tx.Clone()}
	return nil
}

func (s *Store) IsDisputed(_ context.Context, txID transaction.TxID) (disputed, found bool, err error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return false, false, tally.ErrStoreClosed
	}
	r, ok := s.transactions[txID]
	if !ok {
		return false, false, nil
	}
	return r.disputed, true, nil
}

func (s *Store) SetDisputed(_ context.Context, txID transaction.TxID, disputed bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return tally.ErrStoreClosed
	}
	r, ok := s.transactions[txID]
	if !ok {
		return tally.ErrTransactionNotFound
	}
	r.disputed = disputed
	return nil
}

// ==================== Atomic writes ====================

// Apply checks the transaction ID before writing anything, so a duplicate
// leaves both maps as they were.
func (s *Store) Apply(_ context.Context, a *account.Account, tx *transaction.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return tally.ErrStoreClosed
	}
	if _, exists := s.transactions[tx.TxID]; exists {
		return tally.ErrTransactionExists
	}
	s.accounts[a.ClientID] = a.Clone()
	s.transactions[tx.TxID] = &txRecord{tx: tx.Clone()}
	return nil
}

func (s *Store) ApplyDispute(_ context.Context, a *account.Account, txID transaction.TxID, disputed bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return tally.ErrStoreClosed
	}
	r, ok := s.transactions[txID]
	if !ok {
		return tally.ErrTransactionNotFound
	}
	s.accounts[a.ClientID] = a.Clone()
	r.disputed = disputed
	return nil
}

// ==================== Lifecycle ====================

// Migrate is a no-op for the memory store.
func (s *Store) Migrate(_ context.Context) error { return nil }

// Ping reports whether the store is still open.
func (s *Store) Ping(_ context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return tally.ErrStoreClosed
	}
	return nil
}

// Close marks the store closed. Later calls fail with tally.ErrStoreClosed.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	return nil
}
