package sqlite

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/tally/account"
	"github.com/xraph/tally/transaction"
)

func TestAccountModelRoundTrip(t *testing.T) {
	a := account.New(7)
	require.NoError(t, a.Deposit(decimal.RequireFromString("3.333")))
	require.NoError(t, a.Dispute(decimal.RequireFromString("3.333")))
	require.NoError(t, a.Chargeback(decimal.RequireFromString("3.333")))

	m := toAccountModel(a)
	assert.True(t, m.Locked)
	assert.Equal(t, "0", m.Total)

	back, err := fromAccountModel(m)
	require.NoError(t, err)
	assert.Equal(t, account.ClientID(7), back.ClientID)
	assert.True(t, back.Locked)
	assert.True(t, back.Valid())
}

func TestAccountModelBadAmount(t *testing.T) {
	_, err := fromAccountModel(&accountModel{ClientID: 1, Available: "1", Held: "1e", Total: "2"})
	assert.Error(t, err)
}

func TestTransactionModelRoundTrip(t *testing.T) {
	deposit, err := transaction.Deposit(decimal.RequireFromString("0.5"))
	require.NoError(t, err)

	tx := &transaction.Transaction{
		TxID:       9,
		ClientID:   2,
		Kind:       deposit,
		RecordedAt: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	m := toTransactionModel(tx)
	assert.Equal(t, "0.5", m.Amount)
	assert.Zero(t, m.RelatedTx)
	assert.False(t, m.Disputed)

	back, err := fromTransactionModel(m)
	require.NoError(t, err)
	amount, ok := back.Kind.Amount()
	require.True(t, ok)
	assert.True(t, amount.Equal(decimal.RequireFromString("0.5")))

	dispute := toTransactionModel(&transaction.Transaction{TxID: 10, ClientID: 2, Kind: transaction.Dispute(9)})
	assert.Empty(t, dispute.Amount)
	assert.Equal(t, int64(9), dispute.RelatedTx)

	back, err = fromTransactionModel(dispute)
	require.NoError(t, err)
	related, ok := back.Kind.RelatedTx()
	require.True(t, ok)
	assert.Equal(t, transaction.TxID(9), related)
}

func TestTransactionModelOutOfRange(t *testing.T) {
	_, err := fromTransactionModel(&transactionModel{TxID: 1 << 33, Kind: "dispute"})
	assert.Error(t, err)

	_, err = fromTransactionModel(&transactionModel{TxID: 1, ClientID: 1 << 17, Kind: "dispute"})
	assert.Error(t, err)
}
