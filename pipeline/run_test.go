package pipeline_test

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/tally/id"
	"github.com/xraph/tally/pipeline"
	"github.com/xraph/tally/transaction"
)

func txID(n uint32) transaction.TxID { return transaction.TxID(n) }

const ledgerCSV = `type, client, tx, amount
deposit, 1, 1, 100
deposit, 2, 2, 50.25
withdrawal, 1, 3, 30
dispute, 1, 1,
resolve, 1, 1,
dispute, 2, 2
chargeback, 2, 2
deposit, 2, 4, 10
bogus, 3, 5, 1
withdrawal, 1, 3, 1
`

func TestRunEndToEnd(t *testing.T) {
	var out bytes.Buffer
	res, err := pipeline.Run(context.Background(), newManager(), strings.NewReader(ledgerCSV), &out,
		pipeline.WithLogger(quiet),
		pipeline.WithChannelSize(2),
	)
	require.NoError(t, err)

	assert.Equal(t,
		"client,available,held,total,locked\n"+
			"1,70,0,70,false\n"+
			"2,0,0,0,true\n",
		out.String())

	assert.Equal(t, pipeline.ReadStats{Rows: 10, Skipped: 1}, res.Read)
	assert.Equal(t, pipeline.Summary{Processed: 7, Rejected: 2}, res.Summary)
	assert.Equal(t, 2, res.Exported)
	assert.Equal(t, id.PrefixRun, res.RunID.Prefix())
}

func TestRunExactDecimals(t *testing.T) {
	var b strings.Builder
	b.WriteString("type,client,tx,amount\n")
	for i := 1; i <= 10; i++ {
		fmt.Fprintf(&b, "deposit,1,%d,0.1\n", i)
	}

	var out bytes.Buffer
	_, err := pipeline.Run(context.Background(), newManager(), strings.NewReader(b.String()), &out,
		pipeline.WithLogger(quiet))
	require.NoError(t, err)
	assert.Contains(t, out.String(), "1,1,0,1,false\n")
}

func TestRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var out bytes.Buffer
	res, err := pipeline.Run(ctx, newManager(), strings.NewReader(ledgerCSV), &out,
		pipeline.WithLogger(quiet), pipeline.WithChannelSize(1))
	require.Error(t, err)
	assert.NotNil(t, res)
	assert.Empty(t, out.String())
}
