package pipeline

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/xraph/tally/account"
	"github.com/xraph/tally/types"
)

// Header is the first row written by an Exporter.
var Header = []string{"client", "available", "held", "total", "locked"}

// AccountLister returns every known account ordered by client.
// *tally.AccountManager satisfies it.
type AccountLister interface {
	GetAccounts(ctx context.Context) ([]*account.Account, error)
}

// Exporter writes account balances as CSV.
type Exporter struct {
	accounts AccountLister
}

// NewExporter returns an Exporter reading from accounts.
func NewExporter(accounts AccountLister) *Exporter {
	return &Exporter{accounts: accounts}
}

// Run writes the header and one row per account to w. It returns the number
// of account rows written.
func (e *Exporter) Run(ctx context.Context, w io.Writer) (int, error) {
	accs, err := e.accounts.GetAccounts(ctx)
	if err != nil {
		return 0, fmt.Errorf("pipeline: list accounts: %w", err)
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return 0, fmt.Errorf("pipeline: write header: %w", err)
	}
	for _, acc := range accs {
		if err := cw.Write(Row(acc)); err != nil {
			return 0, fmt.Errorf("pipeline: write client %d: %w", acc.ClientID, err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return 0, fmt.Errorf("pipeline: flush: %w", err)
	}
	return len(accs), nil
}

// Row renders acc as an export record.
func Row(acc *account.Account) []string {
	return []string{
		strconv.FormatUint(uint64(acc.ClientID), 10),
		types.FormatAmount(acc.Available),
		types.FormatAmount(acc.Held),
		types.FormatAmount(acc.Total),
		strconv.FormatBool(acc.Locked),
	}
}
