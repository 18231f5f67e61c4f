package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// Open connects to Postgres and verifies the connection.
func Open(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return pool, nil
}

// EnsureSchema creates the tables the service writes to, if missing.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool, logger *zap.Logger) error {
	if err := ensureJournalTable(ctx, pool); err != nil {
		return err
	}
	ensureJournalAccountColumn(ctx, pool, logger)
	return nil
}

// ensureJournalTable creates tx_journal if it doesn't exist
func ensureJournalTable(ctx context.Context, pool *pgxpool.Pool) error {
	var exists bool
	_ = pool.QueryRow(ctx, `
        SELECT EXISTS (
            SELECT 1 FROM information_schema.tables
            WHERE table_schema = 'public' AND table_name = 'tx_journal'
        )`).Scan(&exists)
	if exists {
		return nil
	}
	_, err := pool.Exec(ctx, `
        CREATE TABLE IF NOT EXISTS tx_journal (
            id UUID PRIMARY KEY,
            action TEXT NOT NULL,
            listing_index INTEGER NOT NULL DEFAULT -1,
            tx_hash TEXT NOT NULL DEFAULT '',
            status TEXT NOT NULL CHECK (status IN ('submitted','confirmed','failed')),
            error TEXT NOT NULL DEFAULT '',
            created_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP
        );
        CREATE INDEX IF NOT EXISTS idx_tx_journal_created ON tx_journal(created_at DESC);
    `)
	if err != nil {
		return fmt.Errorf("create tx_journal: %w", err)
	}
	return nil
}

// ensureJournalAccountColumn adds tx_journal.account for journals created before it existed
func ensureJournalAccountColumn(ctx context.Context, pool *pgxpool.Pool, logger *zap.Logger) {
	var exists bool
	_ = pool.QueryRow(ctx, `
        SELECT EXISTS (
            SELECT 1 FROM information_schema.columns
            WHERE table_schema = 'public' AND table_name = 'tx_journal' AND column_name = 'account'
        )`).Scan(&exists)
	if exists {
		return
	}
	if _, err := pool.Exec(ctx, `ALTER TABLE tx_journal ADD COLUMN IF NOT EXISTS account TEXT NOT NULL DEFAULT ''`); err != nil {
		logger.Warn("failed to add tx_journal.account", zap.Error(err))
		return
	}
	logger.Info("tx_journal.account column ensured")
}
