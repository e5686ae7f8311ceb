package pipeline

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/xraph/tally/account"
	"github.com/xraph/tally/transaction"
	"github.com/xraph/tally/types"
)

// ErrMalformedRow is returned for rows that cannot be turned into an order.
var ErrMalformedRow = errors.New("pipeline: malformed row")

// ReadStats reports how many data rows a Reader saw and how many it skipped.
type ReadStats struct {
	Rows    int
	Skipped int
}

// Sent returns the number of orders forwarded downstream.
func (s ReadStats) Sent() int { return s.Rows - s.Skipped }

// Reader parses "type, client, tx, amount" rows into orders.
type Reader struct {
	src    io.Reader
	logger *slog.Logger
}

// NewReader returns a Reader over src.
func NewReader(src io.Reader, logger *slog.Logger) *Reader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reader{src: src, logger: logger}
}

// Run reads every row and sends the resulting orders to out. The first
// non-blank row is a header and is discarded. Run does not close out.
func (r *Reader) Run(ctx context.Context, out chan<- transaction.Order) (ReadStats, error) {
	var stats ReadStats

	cr := csv.NewReader(r.src)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	cr.ReuseRecord = true

	header := true
	for {
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return stats, nil
		}

		if header {
			header = false
			if err != nil {
				return stats, fmt.Errorf("pipeline: read header: %w", err)
			}
			continue
		}

		if err == nil && isBlank(record) {
			continue
		}

		stats.Rows++
		if err != nil {
			line, _ := cr.FieldPos(0)
			r.logger.Info("skipping unreadable row", "line", line, "error", err)
			stats.Skipped++
			continue
		}

		order, err := ParseRecord(record)
		if err != nil {
			line, _ := cr.FieldPos(0)
			r.logger.Info("skipping row", "line", line, "error", err)
			stats.Skipped++
			continue
		}

		select {
		case out <- order:
		case <-ctx.Done():
			return stats, ctx.Err()
		}
	}
}

// ParseRecord converts one CSV record into an order. Fields are trimmed and
// the kind is matched case-insensitively. The amount column may be missing
// or empty for kinds that do not carry one.
func ParseRecord(record []string) (transaction.Order, error) {
	if len(record) < 3 {
		return transaction.Order{}, fmt.Errorf("%w: want at least 3 fields, got %d", ErrMalformedRow, len(record))
	}
	if len(record) > 4 {
		return transaction.Order{}, fmt.Errorf("%w: want at most 4 fields, got %d", ErrMalformedRow, len(record))
	}

	kind := strings.ToLower(strings.TrimSpace(record[0]))

	client, err := strconv.ParseUint(strings.TrimSpace(record[1]), 10, 16)
	if err != nil {
		return transaction.Order{}, fmt.Errorf("%w: client: %w", ErrMalformedRow, err)
	}

	tx, err := strconv.ParseUint(strings.TrimSpace(record[2]), 10, 32)
	if err != nil {
		return transaction.Order{}, fmt.Errorf("%w: tx: %w", ErrMalformedRow, err)
	}

	var raw string
	if len(record) == 4 {
		raw = record[3]
	}
	amount, err := types.ParseOptionalAmount(raw)
	if err != nil {
		return transaction.Order{}, fmt.Errorf("%w: amount: %w", ErrMalformedRow, err)
	}

	return transaction.NewOrder(kind, account.ClientID(client), transaction.TxID(tx), amount)
}

func isBlank(record []string) bool {
	return len(record) == 1 && strings.TrimSpace(record[0]) == ""
}
