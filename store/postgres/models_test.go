package postgres

import (
	"errors"
	"fmt"
	"regexp"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xraph/grove/drivers/pgdriver"
	"github.com/xraph/grove/migrate"

	"github.com/xraph/tally/account"
	"github.com/xraph/tally/transaction"
)

func TestAccountModelRoundTrip(t *testing.T) {
	a := account.New(42)
	require.NoError(t, a.Deposit(decimal.RequireFromString("100.25")))
	require.NoError(t, a.Dispute(decimal.RequireFromString("0.25")))

	m := toAccountModel(a)
	assert.Equal(t, int64(42), m.ClientID)
	assert.Equal(t, "100", m.Available)
	assert.Equal(t, "0.25", m.Held)
	assert.Equal(t, "100.25", m.Total)

	back, err := fromAccountModel(m)
	require.NoError(t, err)
	assert.Equal(t, a.ClientID, back.ClientID)
	assert.True(t, a.Available.Equal(back.Available))
	assert.True(t, a.Held.Equal(back.Held))
	assert.True(t, a.Total.Equal(back.Total))
	assert.Equal(t, a.Locked, back.Locked)
	assert.Equal(t, a.CreatedAt, back.CreatedAt)
}

func TestAccountModelRejectsBadRows(t *testing.T) {
	_, err := fromAccountModel(&accountModel{ClientID: 70000, Available: "0", Held: "0", Total: "0"})
	assert.Error(t, err)

	_, err = fromAccountModel(&accountModel{ClientID: 1, Available: "x", Held: "0", Total: "0"})
	assert.Error(t, err)
}

func TestTransactionModelRoundTrip(t *testing.T) {
	deposit, err := transaction.Deposit(decimal.RequireFromString("12.5"))
	require.NoError(t, err)
	withdrawal, err := transaction.Withdrawal(decimal.RequireFromString("0.0001"))
	require.NoError(t, err)

	recorded := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	for _, kind := range []transaction.Kind{
		deposit,
		withdrawal,
		transaction.Dispute(7),
		transaction.Resolve(7),
		transaction.Chargeback(7),
	} {
		t.Run(string(kind.Type()), func(t *testing.T) {
			tx := &transaction.Transaction{TxID: 4000000000, ClientID: 3, Kind: kind, RecordedAt: recorded}
			m := toTransactionModel(tx)
			assert.Equal(t, string(kind.Type()), m.Kind)

			back, err := fromTransactionModel(m)
			require.NoError(t, err)
			assert.Equal(t, tx.TxID, back.TxID)
			assert.Equal(t, tx.ClientID, back.ClientID)
			assert.Equal(t, kind.String(), back.Kind.String())
			assert.Equal(t, recorded, back.RecordedAt)
		})
	}
}

func TestTransactionModelRejectsBadRows(t *testing.T) {
	_, err := fromTransactionModel(&transactionModel{TxID: -1, Kind: "deposit", Amount: "1"})
	assert.Error(t, err)

	_, err = fromTransactionModel(&transactionModel{TxID: 1, Kind: "refund", Amount: "1"})
	assert.ErrorIs(t, err, transaction.ErrUnknownKind)

	_, err = fromTransactionModel(&transactionModel{TxID: 1, Kind: "deposit", Amount: ""})
	assert.ErrorIs(t, err, transaction.ErrNonPositiveAmount)
}

func TestAtomicStatementPlaceholders(t *testing.T) {
	a := account.New(1)
	deposit, err := transaction.Deposit(decimal.NewFromInt(1))
	require.NoError(t, err)
	tx := transaction.New(transaction.Order{TxID: 1, ClientID: 1, Kind: deposit})

	tm := toTransactionModel(tx)
	applyArgs := append(accountArgs(a), tm.TxID, tm.ClientID, tm.Kind, tm.Amount, tm.RelatedTx, tm.RecordedAt)
	assert.Equal(t, maxPlaceholder(applySQL), len(applyArgs))

	disputeArgs := append(accountArgs(a), true, int64(1))
	assert.Equal(t, maxPlaceholder(applyDisputeSQL), len(disputeArgs))
}

func maxPlaceholder(query string) int {
	highest := 0
	for _, m := range regexp.MustCompile(`\$(\d+)`).FindAllStringSubmatch(query, -1) {
		var n int
		fmt.Sscan(m[1], &n) //nolint:errcheck // digits only
		if n > highest {
			highest = n
		}
	}
	return highest
}

func TestIsUniqueViolation(t *testing.T) {
	assert.True(t, isUniqueViolation(fmt.Errorf("wrapped: %w", &pgconn.PgError{Code: "23505"})))
	assert.False(t, isUniqueViolation(&pgconn.PgError{Code: "23503"}))
	assert.False(t, isUniqueViolation(errors.New("boom")))
}

func TestMigrationExecutorRegistered(t *testing.T) {
	executor, err := migrate.NewExecutorFor(pgdriver.New())
	require.NoError(t, err)
	assert.NotNil(t, executor)
	assert.Contains(t, migrate.Executors(), "pg")
}
