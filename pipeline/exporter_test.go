package pipeline_test

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/tally/account"
	"github.com/xraph/tally/pipeline"
)

func TestExporterWritesAccounts(t *testing.T) {
	ctx := context.Background()
	m := newManager()
	for _, o := range []struct {
		kind   string
		client account.ClientID
		tx     uint32
		amount string
	}{
		{"deposit", 2, 1, "1.50"},
		{"deposit", 1, 2, "100"},
		{"dispute", 1, 2, ""},
	} {
		_, err := m.ProcessOrder(ctx, order(t, o.kind, o.client, txID(o.tx), o.amount))
		require.NoError(t, err)
	}

	var buf bytes.Buffer
	n, err := pipeline.NewExporter(m).Run(ctx, &buf)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t,
		"client,available,held,total,locked\n"+
			"1,0,100,100,false\n"+
			"2,1.5,0,1.5,false\n",
		buf.String())
}

func TestExporterEmpty(t *testing.T) {
	var buf bytes.Buffer
	n, err := pipeline.NewExporter(newManager()).Run(context.Background(), &buf)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Equal(t, "client,available,held,total,locked\n", buf.String())
}

type failingLister struct{}

func (failingLister) GetAccounts(context.Context) ([]*account.Account, error) {
	return nil, errors.New("store offline")
}

func TestExporterListError(t *testing.T) {
	var buf bytes.Buffer
	_, err := pipeline.NewExporter(failingLister{}).Run(context.Background(), &buf)
	assert.ErrorContains(t, err, "store offline")
	assert.Empty(t, buf.String())
}

func TestRowLocked(t *testing.T) {
	acc := account.New(9)
	acc.Locked = true
	assert.Equal(t, []string{"9", "0", "0", "0", "true"}, pipeline.Row(acc))
}
