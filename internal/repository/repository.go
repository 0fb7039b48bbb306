package repository

import (
	"context"
	"time"
)

type AppendSessionInput struct {
	UserID               string
	StartedAt            time.Time
	EndedAt              time.Time
	TotalSeconds         float64
	FocusedSeconds       float64
	UnfocusedSeconds     float64
	TerminatedAbnormally bool
	EndReason            string
}

// SessionWriter is the append-only finalize path. Implementations must be
// safe under concurrent appends from independent connections.
type SessionWriter interface {
	AppendSession(ctx context.Context, input AppendSessionInput) (*StudySession, error)
}

// SessionReader answers historical queries for the aggregation engine and
// the HTTP surface. Range queries return every session whose [started_at,
// ended_at) intersects the half-open range [from, to); the aggregation
// engine clamps partial overlaps itself.
type SessionReader interface {
	ListSessionsByUser(ctx context.Context, userID string, limit int) ([]StudySession, error)
	QuerySessions(ctx context.Context, userID string, from, to time.Time) ([]StudySession, error)
	ListSessionsInRange(ctx context.Context, from, to time.Time) ([]StudySession, error)
}

type Repository interface {
	SessionWriter
	SessionReader
}
