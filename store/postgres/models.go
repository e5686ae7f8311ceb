package postgres

import (
	"fmt"
	"math"
	"time"

	"github.com/xraph/grove"

	"github.com/xraph/tally/account"
	"github.com/xraph/tally/transaction"
	"github.com/xraph/tally/types"
)

// Amounts are stored as exact decimal strings.

// ==================== Account models ====================

type accountModel struct {
	grove.BaseModel `grove:"table:tally_accounts"`

	ClientID  int64     `grove:"client_id,pk"`
	Available string    `grove:"available"`
	Held      string    `grove:"held"`
	Total     string    `grove:"total"`
	Locked    bool      `grove:"locked"`
	CreatedAt time.Time `grove:"created_at"`
	UpdatedAt time.Time `grove:"updated_at"`
}

func toAccountModel(a *account.Account) *accountModel {
	return &accountModel{
		ClientID:  int64(a.ClientID),
		Available: types.FormatAmount(a.Available),
		Held:      types.FormatAmount(a.Held),
		Total:     types.FormatAmount(a.Total),
		Locked:    a.Locked,
		CreatedAt: a.CreatedAt,
		UpdatedAt: a.UpdatedAt,
	}
}

func fromAccountModel(m *accountModel) (*account.Account, error) {
	if m.ClientID < 0 || m.ClientID > math.MaxUint16 {
		return nil, fmt.Errorf("client id %d out of range", m.ClientID)
	}
	available, err := types.ParseAmount(m.Available)
	if err != nil {
		return nil, fmt.Errorf("client %d available: %w", m.ClientID, err)
	}
	held, err := types.ParseAmount(m.Held)
	if err != nil {
		return nil, fmt.Errorf("client %d held: %w", m.ClientID, err)
	}
	total, err := types.ParseAmount(m.Total)
	if err != nil {
		return nil, fmt.Errorf("client %d total: %w", m.ClientID, err)
	}

	a := &account.Account{
		ClientID:  account.ClientID(m.ClientID),
		Available: available,
		Held:      held,
		Total:     total,
		Locked:    m.Locked,
	}
	a.CreatedAt = m.CreatedAt
	a.UpdatedAt = m.UpdatedAt
	return a, nil
}

// ==================== Transaction models ====================

type transactionModel struct {
	grove.BaseModel `grove:"table:tally_transactions"`

	TxID       int64     `grove:"tx_id,pk"`
	ClientID   int64     `grove:"client_id"`
	Kind       string    `grove:"kind"`
	Amount     string    `grove:"amount"`
	RelatedTx  int64     `grove:"related_tx"`
	Disputed   bool      `grove:"disputed"`
	RecordedAt time.Time `grove:"recorded_at"`
}

func toTransactionModel(tx *transaction.Transaction) *transactionModel {
	m := &transactionModel{
		TxID:       int64(tx.TxID),
		ClientID:   int64(tx.ClientID),
		Kind:       string(tx.Kind.Type()),
		RecordedAt: tx.RecordedAt,
	}
	if amount, ok := tx.Kind.Amount(); ok {
		m.Amount = types.FormatAmount(amount)
	}
	if related, ok := tx.Kind.RelatedTx(); ok {
		m.RelatedTx = int64(related)
	}
	return m
}

func fromTransactionModel(m *transactionModel) (*transaction.Transaction, error) {
	if m.TxID < 0 || m.TxID > math.MaxUint32 {
		return nil, fmt.Errorf("tx id %d out of range", m.TxID)
	}
	if m.ClientID < 0 || m.ClientID > math.MaxUint16 {
		return nil, fmt.Errorf("tx %d: client id %d out of range", m.TxID, m.ClientID)
	}
	amount, err := types.ParseOptionalAmount(m.Amount)
	if err != nil {
		return nil, fmt.Errorf("tx %d amount: %w", m.TxID, err)
	}
	kind, err := transaction.NewKind(transaction.KindType(m.Kind), amount.Decimal, transaction.TxID(m.RelatedTx))
	if err != nil {
		return nil, fmt.Errorf("tx %d: %w", m.TxID, err)
	}

	return &transaction.Transaction{
		TxID:       transaction.TxID(m.TxID),
		ClientID:   account.ClientID(m.ClientID),
		Kind:       kind,
		RecordedAt: m.RecordedAt,
	}, nil
}
