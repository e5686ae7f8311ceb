package tally_test

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/xraph/tally"
	"github.com/xraph/tally/store/memory"
)

// TestDocumentationExamples verifies that the package documentation examples work.
func TestDocumentationExamples(t *testing.T) {
	t.Run("QuickStartExample", func(t *testing.T) {
		ctx := context.Background()

		m := tally.New(memory.New(), tally.WithLogger(slog.Default()))
		if err := m.Start(ctx); err != nil {
			t.Fatal(err)
		}
		defer m.Stop()

		deposit, err := tally.Deposit(decimal.RequireFromString("100"))
		if err != nil {
			t.Fatal(err)
		}
		if _, err := m.ProcessOrder(ctx, tally.Order{TxID: 1, ClientID: 1, Kind: deposit}); err != nil {
			t.Fatal(err)
		}

		_, err = m.ProcessOrder(ctx, tally.Order{TxID: 1, ClientID: 1, Kind: deposit})
		if !errors.Is(err, tally.ErrDuplicateTransactionID) {
			t.Fatalf("expected duplicate error, got %v", err)
		}

		var txErr *tally.TransactionError
		if !errors.As(err, &txErr) || txErr.TxID != 1 {
			t.Fatalf("expected TransactionError for tx 1, got %v", err)
		}
	})

	t.Run("DisputeExample", func(t *testing.T) {
		ctx := context.Background()
		m := tally.New(memory.New())

		order, err := tally.NewOrder("deposit", 7, 10, decimal.NewNullDecimal(decimal.RequireFromString("25.5")))
		if err != nil {
			t.Fatal(err)
		}
		if _, err := m.ProcessOrder(ctx, order); err != nil {
			t.Fatal(err)
		}
		for _, kind := range []tally.Kind{tally.Dispute(10), tally.Chargeback(10)} {
			if _, err := m.ProcessOrder(ctx, tally.Order{TxID: 10, ClientID: 7, Kind: kind}); err != nil {
				t.Fatal(err)
			}
		}

		acc, found, err := m.GetAccount(ctx, 7)
		if err != nil || !found {
			t.Fatalf("account 7: found=%v err=%v", found, err)
		}
		if !acc.Locked || !acc.Total.IsZero() {
			t.Fatalf("expected locked empty account, got %+v", acc)
		}
		if tally.FormatAmount(tally.Sum(acc.Available, acc.Held)) != tally.FormatAmount(acc.Total) {
			t.Fatal("total must equal available plus held")
		}
	})
}
