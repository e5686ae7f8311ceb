package pipeline

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/xraph/tally/id"
	"github.com/xraph/tally/transaction"
)

// DefaultChannelSize is the order buffer between reader and accountant.
const DefaultChannelSize = 1024

// Manager is what a run needs from the account manager.
type Manager interface {
	OrderProcessor
	AccountLister
}

// Result describes a finished run.
type Result struct {
	RunID    id.RunID
	Read     ReadStats
	Summary  Summary
	Exported int
	Elapsed  time.Duration
}

type runConfig struct {
	channelSize int
	logger      *slog.Logger
}

// RunOption configures Run.
type RunOption func(*runConfig)

// WithChannelSize sets the order buffer size. Values below one are ignored.
func WithChannelSize(n int) RunOption {
	return func(c *runConfig) {
		if n > 0 {
			c.channelSize = n
		}
	}
}

// WithLogger sets the logger used by every stage.
func WithLogger(logger *slog.Logger) RunOption {
	return func(c *runConfig) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// Run reads orders from in, applies them through m, and once every order
// has been applied writes the account export to out.
func Run(ctx context.Context, m Manager, in io.Reader, out io.Writer, opts ...RunOption) (*Result, error) {
	cfg := runConfig{channelSize: DefaultChannelSize, logger: slog.Default()}
	for _, opt := range opts {
		opt(&cfg)
	}

	res := &Result{RunID: id.NewRunID()}
	logger := cfg.logger.With("run_id", res.RunID.String())
	start := time.Now()

	logger.Debug("pipeline run started")

	orders := make(chan transaction.Order, cfg.channelSize)
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer close(orders)
		stats, err := NewReader(in, logger).Run(gctx, orders)
		res.Read = stats
		return err
	})

	g.Go(func() error {
		sum, err := NewAccountant(m, logger).Run(gctx, orders)
		res.Summary = sum
		return err
	})

	if err := g.Wait(); err != nil {
		return res, fmt.Errorf("pipeline: run %s: %w", res.RunID, err)
	}

	n, err := NewExporter(m).Run(ctx, out)
	res.Exported = n
	res.Elapsed = time.Since(start)
	if err != nil {
		return res, err
	}

	logger.Info("pipeline run finished",
		"rows", res.Read.Rows,
		"skipped", res.Read.Skipped,
		"processed", res.Summary.Processed,
		"rejected", res.Summary.Rejected,
		"accounts", res.Exported,
		"elapsed", res.Elapsed,
	)
	return res, nil
}
