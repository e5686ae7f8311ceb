package postgres

import (
	"context"

	"github.com/xraph/grove/migrate"
)

// Migrations is the grove migration group for the tally store.
var Migrations = migrate.NewGroup("tally")

func init() {
	Migrations.MustRegister(
		&migrate.Migration{
			Name:    "create_tally_accounts",
			Version: "20250101000001",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS tally_accounts (
    client_id  INTEGER PRIMARY KEY CHECK (client_id BETWEEN 0 AND 65535),
    available  TEXT NOT NULL DEFAULT '0',
    held       TEXT NOT NULL DEFAULT '0',
    total      TEXT NOT NULL DEFAULT '0',
    locked     BOOLEAN NOT NULL DEFAULT FALSE,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS tally_accounts`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_tally_transactions",
			Version: "20250101000002",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS tally_transactions (
    tx_id       BIGINT PRIMARY KEY CHECK (tx_id BETWEEN 0 AND 4294967295),
    client_id   INTEGER NOT NULL,
    kind        TEXT NOT NULL,
    amount      TEXT NOT NULL DEFAULT '',
    related_tx  BIGINT NOT NULL DEFAULT 0,
    disputed    BOOLEAN NOT NULL DEFAULT FALSE,
    recorded_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_tally_transactions_client ON tally_transactions (client_id);
CREATE INDEX IF NOT EXISTS idx_tally_transactions_disputed ON tally_transactions (disputed) WHERE disputed;
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS tally_transactions`)
				return err
			},
		},
	)
}
