package repository

import (
	"context"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
)

var migrationStatements = []string{
	`CREATE TABLE IF NOT EXISTS study_sessions (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		user_id TEXT NOT NULL,
		started_at TIMESTAMPTZ NOT NULL,
		ended_at TIMESTAMPTZ NOT NULL,
		total_seconds DOUBLE PRECISION NOT NULL,
		focused_seconds DOUBLE PRECISION NOT NULL,
		unfocused_seconds DOUBLE PRECISION NOT NULL,
		terminated_abnormally BOOLEAN NOT NULL DEFAULT FALSE,
		end_reason TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_study_sessions_user_started ON study_sessions (user_id, started_at DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_study_sessions_started ON study_sessions (started_at)`,
}

func RunMigration(ctx context.Context, pool *pgxpool.Pool) error {
	for _, s := range migrationStatements {
		stmt := strings.TrimSpace(s)
		if stmt == "" {
			continue
		}
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
