package database

import (
	"context"
	"database/sql"
	"fmt"
	"log"
)

// schema is portable between Postgres and SQLite. Timestamps are written by
// the application so no dialect-specific defaults are needed.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS user_wallets (
		user_id TEXT PRIMARY KEY,
		balance BIGINT NOT NULL DEFAULT 0 CHECK (balance >= 0),
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS marketplace_accounts (
		id TEXT PRIMARY KEY,
		platform TEXT NOT NULL,
		username TEXT NOT NULL,
		followers BIGINT NOT NULL DEFAULT 0,
		engagement_rate DOUBLE PRECISION NOT NULL DEFAULT 0,
		price BIGINT NOT NULL CHECK (price > 0),
		description TEXT NOT NULL DEFAULT '',
		category TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL DEFAULT 'active' CHECK (status IN ('active', 'pending', 'sold')),
		credentials TEXT NOT NULL DEFAULT '',
		created_by TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS transactions (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		type TEXT NOT NULL CHECK (type IN ('deposit', 'purchase', 'transfer', 'sale')),
		amount BIGINT NOT NULL,
		status TEXT NOT NULL DEFAULT 'pending' CHECK (status IN ('pending', 'completed', 'failed')),
		description TEXT NOT NULL DEFAULT '',
		reference TEXT UNIQUE,
		metadata TEXT NOT NULL DEFAULT '{}',
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS messages (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		title TEXT NOT NULL DEFAULT '',
		content TEXT NOT NULL,
		type TEXT NOT NULL DEFAULT 'credential' CHECK (type IN ('credential', 'notification', 'system')),
		read BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMP NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_marketplace_accounts_status ON marketplace_accounts(status)`,
	`CREATE INDEX IF NOT EXISTS idx_marketplace_accounts_created_by ON marketplace_accounts(created_by)`,
	`CREATE INDEX IF NOT EXISTS idx_transactions_user_id ON transactions(user_id)`,
	`CREATE INDEX IF NOT EXISTS idx_transactions_status ON transactions(status)`,
	`CREATE INDEX IF NOT EXISTS idx_messages_user_id ON messages(user_id)`,
}

// Migrate creates the tables and indexes when they do not exist
func Migrate(ctx context.Context, db *sql.DB) error {
	for i, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration step %d: %w", i+1, err)
		}
	}
	log.Printf("[DATABASE] Schema up to date (%d statements)", len(schema))
	return nil
}
