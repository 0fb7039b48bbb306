package repository

import (
	"context"
	"time"

	"github.com/foxseedlab/shuchurin/internal/repository"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const sessionColumns = `id, user_id, started_at, ended_at, total_seconds,
	focused_seconds, unfocused_seconds, terminated_abnormally, end_reason, created_at`

type PostgresRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresRepository(pool *pgxpool.Pool) repository.Repository {
	return &PostgresRepository{pool: pool}
}

func (r *PostgresRepository) AppendSession(ctx context.Context, input repository.AppendSessionInput) (*repository.StudySession, error) {
	row := r.pool.QueryRow(ctx,
		`INSERT INTO study_sessions
		 (user_id, started_at, ended_at, total_seconds, focused_seconds,
		  unfocused_seconds, terminated_abnormally, end_reason)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING `+sessionColumns,
		input.UserID, input.StartedAt, input.EndedAt, input.TotalSeconds,
		input.FocusedSeconds, input.UnfocusedSeconds, input.TerminatedAbnormally, input.EndReason)
	s, err := scanSession(row)
	if err != nil {
		return nil, err
	}
	return s, nil
}

func (r *PostgresRepository) ListSessionsByUser(ctx context.Context, userID string, limit int) ([]repository.StudySession, error) {
	query := `SELECT ` + sessionColumns + `
		 FROM study_sessions WHERE user_id = $1
		 ORDER BY started_at DESC`
	var (
		rows pgx.Rows
		err  error
	)
	if limit > 0 {
		rows, err = r.pool.Query(ctx, query+` LIMIT $2`, userID, limit)
	} else {
		rows, err = r.pool.Query(ctx, query, userID)
	}
	if err != nil {
		return nil, err
	}
	return collectSessions(rows)
}

func (r *PostgresRepository) QuerySessions(ctx context.Context, userID string, from, to time.Time) ([]repository.StudySession, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+sessionColumns+`
		 FROM study_sessions
		 WHERE user_id = $1 AND started_at < $3 AND ended_at > $2
		 ORDER BY started_at DESC`,
		userID, from, to)
	if err != nil {
		return nil, err
	}
	return collectSessions(rows)
}

func (r *PostgresRepository) ListSessionsInRange(ctx context.Context, from, to time.Time) ([]repository.StudySession, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+sessionColumns+`
		 FROM study_sessions
		 WHERE started_at < $2 AND ended_at > $1
		 ORDER BY started_at ASC`,
		from, to)
	if err != nil {
		return nil, err
	}
	return collectSessions(rows)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (*repository.StudySession, error) {
	var s repository.StudySession
	err := row.Scan(&s.ID, &s.UserID, &s.StartedAt, &s.EndedAt, &s.TotalSeconds,
		&s.FocusedSeconds, &s.UnfocusedSeconds, &s.TerminatedAbnormally, &s.EndReason, &s.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func collectSessions(rows pgx.Rows) ([]repository.StudySession, error) {
	defer rows.Close()
	var list []repository.StudySession
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *s)
	}
	return list, rows.Err()
}
