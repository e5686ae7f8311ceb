package observability

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/xraph/tally"
	"github.com/xraph/tally/account"
	"github.com/xraph/tally/transaction"
)

// memFactory is an in-memory MetricFactory for assertions.
type memFactory struct {
	mu     sync.Mutex
	values map[string]float64
	obs    map[string][]float64
}

func newMemFactory() *memFactory {
	return &memFactory{values: map[string]float64{}, obs: map[string][]float64{}}
}

type memCounter struct {
	f    *memFactory
	name string
}

func (c memCounter) Inc() { c.Add(1) }
func (c memCounter) Add(v float64) {
	c.f.mu.Lock()
	defer c.f.mu.Unlock()
	c.f.values[c.name] += v
}

type memHistogram struct {
	f    *memFactory
	name string
}

func (h memHistogram) Observe(v float64) {
	h.f.mu.Lock()
	defer h.f.mu.Unlock()
	h.f.obs[h.name] = append(h.f.obs[h.name], v)
}

func (f *memFactory) Counter(name string) Counter     { return memCounter{f, name} }
func (f *memFactory) Histogram(name string) Histogram { return memHistogram{f, name} }

func (f *memFactory) get(name string) float64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.values[name]
}

func depositTx(t *testing.T, amount string) *transaction.Transaction {
	t.Helper()
	k, err := transaction.Deposit(decimal.RequireFromString(amount))
	require.NoError(t, err)
	return transaction.New(transaction.Order{TxID: 1, ClientID: 1, Kind: k})
}

func TestMetricsExtensionCounts(t *testing.T) {
	f := newMemFactory()
	m := NewMetricsExtension(f)
	ctx := context.Background()
	acc := account.New(1)

	require.NoError(t, m.OnTransactionRecorded(ctx, depositTx(t, "2.5"), acc))
	require.NoError(t, m.OnTransactionRecorded(ctx, depositTx(t, "1"), acc))
	k, _ := transaction.Withdrawal(decimal.RequireFromString("1"))
	require.NoError(t, m.OnTransactionRecorded(ctx, transaction.New(transaction.Order{TxID: 2, Kind: k}), acc))
	require.NoError(t, m.OnDisputeOpened(ctx, nil, acc))
	require.NoError(t, m.OnDisputeResolved(ctx, nil, acc))
	require.NoError(t, m.OnChargeback(ctx, nil, acc))
	require.NoError(t, m.OnAccountLocked(ctx, acc))
	require.NoError(t, m.OnOrderProcessed(ctx, transaction.Order{}, 3*time.Millisecond))

	assert.Equal(t, 2.0, f.get("tally.deposits"))
	assert.Equal(t, 3.5, f.get("tally.deposits.amount"))
	assert.Equal(t, 1.0, f.get("tally.withdrawals"))
	assert.Equal(t, 1.0, f.get("tally.disputes.opened"))
	assert.Equal(t, 1.0, f.get("tally.disputes.resolved"))
	assert.Equal(t, 1.0, f.get("tally.chargebacks"))
	assert.Equal(t, 1.0, f.get("tally.accounts.locked"))
	assert.Equal(t, 1.0, f.get("tally.orders.processed"))
	assert.Equal(t, []float64{3}, f.obs["tally.orders.latency_ms"])
}

func TestMetricsExtensionRejections(t *testing.T) {
	f := newMemFactory()
	m := NewMetricsExtension(f)
	ctx := context.Background()

	reasons := []error{
		account.ErrAccountLocked,
		&account.InsufficientAvailableFundsError{},
		&account.InsufficientHeldFundsError{},
		&tally.TransactionError{Err: tally.ErrDuplicateTransactionID, TxID: 1},
		&tally.TransactionError{Err: tally.ErrRelatedTransactionNotFound, TxID: 2},
		errors.New("io"),
	}
	for _, r := range reasons {
		require.NoError(t, m.OnOrderRejected(ctx, transaction.Order{}, r))
	}

	assert.Equal(t, 6.0, f.get("tally.orders.rejected"))
	assert.Equal(t, 1.0, f.get("tally.orders.rejected.locked"))
	assert.Equal(t, 2.0, f.get("tally.orders.rejected.funds"))
	assert.Equal(t, 1.0, f.get("tally.orders.rejected.duplicate"))
}

func TestOTelFactory(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	f := NewOTelFactory(provider.Meter("test"))

	c := f.Counter("tally.test.counter")
	assert.Same(t, c, f.Counter("tally.test.counter"))
	c.Inc()
	c.Add(2)
	f.Histogram("tally.test.hist").Observe(4)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	found := map[string]metricdata.Metrics{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			found[m.Name] = m
		}
	}

	require.Contains(t, found, "tally.test.counter")
	sum, ok := found["tally.test.counter"].Data.(metricdata.Sum[float64])
	require.True(t, ok, "got %T", found["tally.test.counter"].Data)
	require.Len(t, sum.DataPoints, 1)
	assert.Equal(t, 3.0, sum.DataPoints[0].Value)

	require.Contains(t, found, "tally.test.hist")
	hist, ok := found["tally.test.hist"].Data.(metricdata.Histogram[float64])
	require.True(t, ok)
	require.Len(t, hist.DataPoints, 1)
	assert.Equal(t, uint64(1), hist.DataPoints[0].Count)
}
