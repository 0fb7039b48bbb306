package webhook

import "context"

const SessionWebhookSchemaVersion = 1

// SessionWebhookPayload notifies an external consumer (the live display
// layer) that a session was finalized.
type SessionWebhookPayload struct {
	SchemaVersion        int     `json:"schema_version"`
	SessionID            string  `json:"session_id"`
	UserID               string  `json:"user_id"`
	StartAt              string  `json:"start_at"`
	EndAt                string  `json:"end_at"`
	TotalSeconds         float64 `json:"total_seconds"`
	FocusedSeconds       float64 `json:"focused_seconds"`
	UnfocusedSeconds     float64 `json:"unfocused_seconds"`
	TerminatedAbnormally bool    `json:"terminated_abnormally"`
	EndReason            string  `json:"end_reason"`
}

type Sender interface {
	SendSessionFinalized(ctx context.Context, payload SessionWebhookPayload) error
}
