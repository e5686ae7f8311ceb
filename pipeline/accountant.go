package pipeline

import (
	"context"
	"log/slog"

	"github.com/xraph/tally/transaction"
)

// OrderProcessor applies a single order. *tally.AccountManager satisfies it.
type OrderProcessor interface {
	ProcessOrder(ctx context.Context, order transaction.Order) (*transaction.Transaction, error)
}

// Summary counts the orders an Accountant handled.
type Summary struct {
	Processed int
	Rejected  int
}

// Accountant is the single consumer of an order channel.
type Accountant struct {
	manager OrderProcessor
	logger  *slog.Logger
}

// NewAccountant returns an Accountant that applies orders through manager.
func NewAccountant(manager OrderProcessor, logger *slog.Logger) *Accountant {
	if logger == nil {
		logger = slog.Default()
	}
	return &Accountant{manager: manager, logger: logger}
}

// Run applies orders from in until it is closed. A rejected order is logged
// and counted; it never stops the loop. Run returns early only when ctx is
// cancelled.
func (a *Accountant) Run(ctx context.Context, in <-chan transaction.Order) (Summary, error) {
	var sum Summary
	for {
		if err := ctx.Err(); err != nil {
			return sum, err
		}

		select {
		case order, ok := <-in:
			if !ok {
				return sum, nil
			}
			if _, err := a.manager.ProcessOrder(ctx, order); err != nil {
				sum.Rejected++
				a.logger.Info("order rejected", "order", order.String(), "error", err)
				continue
			}
			sum.Processed++
		case <-ctx.Done():
			return sum, ctx.Err()
		}
	}
}
