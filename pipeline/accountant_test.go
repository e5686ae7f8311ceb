package pipeline_test

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/tally"
	"github.com/xraph/tally/account"
	"github.com/xraph/tally/pipeline"
	"github.com/xraph/tally/store/memory"
	"github.com/xraph/tally/transaction"
)

func newManager() *tally.AccountManager {
	return tally.New(memory.New(), tally.WithLogger(quiet))
}

func order(t *testing.T, kind string, client account.ClientID, tx transaction.TxID, amount string) transaction.Order {
	t.Helper()
	var amt decimal.NullDecimal
	if amount != "" {
		amt = decimal.NewNullDecimal(decimal.RequireFromString(amount))
	}
	o, err := transaction.NewOrder(kind, client, tx, amt)
	require.NoError(t, err)
	return o
}

func TestAccountantKeepsGoingAfterRejections(t *testing.T) {
	m := newManager()
	in := make(chan transaction.Order, 4)

	in <- order(t, "deposit", 1, 1, "100")
	in <- order(t, "dispute", 2, 3, "") // unknown related tx
	in <- order(t, "withdrawal", 1, 3, "1")
	in <- order(t, "withdrawal", 1, 3, "1") // duplicate
	close(in)

	sum, err := pipeline.NewAccountant(m, quiet).Run(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, pipeline.Summary{Processed: 2, Rejected: 2}, sum)

	acc, ok, err := m.GetAccount(context.Background(), 1)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "99", acc.Available.String())

	_, ok, err = m.GetAccount(context.Background(), 2)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestAccountantStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	in := make(chan transaction.Order)
	_, err := pipeline.NewAccountant(newManager(), quiet).Run(ctx, in)
	assert.ErrorIs(t, err, context.Canceled)
}
