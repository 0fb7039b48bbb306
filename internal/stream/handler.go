// Package stream maps the inbound focus-stream protocol onto one session
// timeline per connection. A Handler owns exactly one Classifier and one
// Timeline; messages on a connection are processed strictly sequentially,
// and nothing is shared across connections except the store.
package stream

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/foxseedlab/shuchurin/internal/classifier"
	"github.com/foxseedlab/shuchurin/internal/config"
	"github.com/foxseedlab/shuchurin/internal/repository"
	"github.com/foxseedlab/shuchurin/internal/timeline"
	"github.com/foxseedlab/shuchurin/internal/webhook"
	"github.com/google/uuid"
)

// Conn abstracts one client connection. The WebSocket adapter in
// external/server implements it; tests use an in-memory script.
type Conn interface {
	// ReadMessage blocks until the next frame. Implementations enforce
	// the idle deadline and surface timeouts as net.Error.
	ReadMessage() ([]byte, error)
	WriteJSON(v any) error
	Close() error
}

const (
	storeRetryBaseDelay = 250 * time.Millisecond
	persistTimeout      = 30 * time.Second
)

// Abandon reasons reported in finalized records.
const (
	reasonConnectionLost    = "connection lost"
	reasonIdleTimeout       = "idle timeout"
	reasonServerShutdown    = "server shutdown"
	reasonProtocolViolation = "protocol violation"
)

// Handler drives one connection's session.
type Handler struct {
	id       uuid.UUID
	cfg      *config.Config
	conn     Conn
	store    repository.SessionWriter
	webhook  webhook.Sender
	registry *Registry

	cls *classifier.Classifier

	// mu guards tl: the connection goroutine mutates it, the query
	// surface snapshots it. Never contended across connections.
	mu sync.Mutex
	tl *timeline.Timeline
}

func NewHandler(cfg *config.Config, conn Conn, store repository.SessionWriter, wh webhook.Sender, registry *Registry) *Handler {
	return &Handler{
		id:       uuid.New(),
		cfg:      cfg,
		conn:     conn,
		store:    store,
		webhook:  wh,
		registry: registry,
		cls:      classifier.New(cfg.DebounceWindow()),
		tl:       timeline.New(),
	}
}

func (h *Handler) ID() uuid.UUID { return h.id }

// Run processes the connection until it closes, the protocol is violated,
// or ctx is canceled. The registry entry lives exactly as long as the loop.
func (h *Handler) Run(ctx context.Context) {
	h.registry.register(h)
	defer h.registry.unregister(h.id)
	defer func() {
		_ = h.conn.Close()
	}()

	for {
		if ctx.Err() != nil {
			h.abandonAndPersist(ctx, reasonServerShutdown)
			return
		}
		raw, err := h.conn.ReadMessage()
		if err != nil {
			reason := disconnectReason(err)
			if ctx.Err() != nil {
				reason = reasonServerShutdown
			}
			h.abandonAndPersist(ctx, reason)
			return
		}
		fatal := h.handleRaw(ctx, raw)
		if fatal {
			h.abandonAndPersist(ctx, reasonProtocolViolation)
			return
		}
	}
}

func disconnectReason(err error) string {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return reasonIdleTimeout
	}
	return reasonConnectionLost
}

// handleRaw applies one message. It reports true when the connection must
// close (protocol violation); recoverable errors are replied and the
// session continues.
func (h *Handler) handleRaw(ctx context.Context, raw []byte) (fatal bool) {
	env, err := decodeInbound(raw)
	if err != nil {
		slog.Warn("protocol violation", "connection_id", h.id, "error", err)
		h.replyError(err.Error())
		return true
	}

	switch env.Type {
	case messageSessionStart:
		return h.handleSessionStart(env)
	case messageStatusUpdate:
		return h.handleStatusUpdate(env)
	case messageSessionEnd:
		return h.handleSessionEnd(ctx, env)
	case messagePing:
		h.reply(pongReply{Type: replyPong, Timestamp: nowProtocolSeconds(time.Now())})
		return false
	}
	return false
}

func (h *Handler) handleSessionStart(env *inboundEnvelope) bool {
	at := protocolTime(*env.Timestamp)
	initialFocused := false
	if h.cls.Established() {
		initialFocused = h.cls.Current()
	}

	h.mu.Lock()
	err := h.tl.Start(env.UserID, at, initialFocused)
	h.mu.Unlock()
	if err != nil {
		// double start: reject without touching the running session
		slog.Warn("session start rejected", "connection_id", h.id, "error", err)
		h.replyError("session already started")
		return false
	}
	slog.Info("session started", "connection_id", h.id, "user_id", env.UserID)
	h.reply(sessionStartedReply{Type: replySessionStarted, Timestamp: nowProtocolSeconds(time.Now())})
	return false
}

func (h *Handler) handleStatusUpdate(env *inboundEnvelope) bool {
	if h.tl.Phase() != timeline.Active {
		slog.Warn("status update before session start", "connection_id", h.id)
		h.replyError("status_update received before session_start")
		return true
	}
	at := protocolTime(*env.Timestamp)

	_, err := h.cls.Observe(*env.IsFocused, at)
	if err != nil {
		// out-of-order sample: reject it, keep the session alive
		slog.Warn("sample rejected", "connection_id", h.id, "user_id", h.tl.UserID(), "error", err)
		h.replyError("sample timestamp out of order")
		return false
	}

	h.mu.Lock()
	err = h.tl.Observe(h.cls.Current(), at)
	h.mu.Unlock()
	if err != nil {
		slog.Warn("observation rejected", "connection_id", h.id, "user_id", h.tl.UserID(), "error", err)
		h.replyError("sample timestamp out of order")
		return false
	}
	return false
}

func (h *Handler) handleSessionEnd(ctx context.Context, env *inboundEnvelope) bool {
	if h.tl.Phase() != timeline.Active {
		slog.Warn("session end before session start", "connection_id", h.id)
		h.replyError("session_end received before session_start")
		return true
	}
	at := protocolTime(*env.Timestamp)

	h.mu.Lock()
	fin, err := h.tl.End(at)
	h.mu.Unlock()
	if err != nil {
		slog.Warn("session end rejected", "connection_id", h.id, "user_id", h.tl.UserID(), "error", err)
		h.replyError("session_end timestamp precedes the last sample")
		return false
	}
	slog.Info("session ended",
		"connection_id", h.id,
		"user_id", fin.UserID,
		"total_seconds", repository.RoundSeconds(fin.Total),
		"focused_seconds", repository.RoundSeconds(fin.Focused))

	h.persistFinalized(ctx, fin)
	h.reply(sessionEndedReply{
		Type: replySessionEnded,
		SessionData: sessionDurations{
			TotalSeconds:     repository.RoundSeconds(fin.Total),
			FocusedSeconds:   repository.RoundSeconds(fin.Focused),
			UnfocusedSeconds: repository.RoundSeconds(fin.Unfocused),
		},
		Timestamp: nowProtocolSeconds(time.Now()),
	})
	return false
}

// abandonAndPersist finalizes on disconnect, timeout or shutdown. The
// accumulated durations as of the last processed sample are kept, never
// discarded.
func (h *Handler) abandonAndPersist(ctx context.Context, reason string) {
	h.mu.Lock()
	fin, err := h.tl.Abandon(reason)
	h.mu.Unlock()
	if err != nil {
		// nothing open: the session never started or already ended
		return
	}
	slog.Info("session abandoned",
		"connection_id", h.id,
		"user_id", fin.UserID,
		"reason", reason,
		"total_seconds", repository.RoundSeconds(fin.Total))
	h.persistFinalized(ctx, fin)
}

// Snapshot returns the open timeline's current accounting, or nil.
func (h *Handler) Snapshot() *timeline.Snapshot {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.tl.Snapshot()
}

func (h *Handler) persistFinalized(ctx context.Context, fin *timeline.Finalized) {
	// the write must survive shutdown cancellation: a finalized session is
	// persisted even when the trigger was the server going away
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), persistTimeout)
	defer cancel()

	input := repository.AppendSessionInput{
		UserID:               fin.UserID,
		StartedAt:            fin.StartedAt,
		EndedAt:              fin.EndedAt,
		TotalSeconds:         repository.RoundSeconds(fin.Total),
		FocusedSeconds:       repository.RoundSeconds(fin.Focused),
		UnfocusedSeconds:     repository.RoundSeconds(fin.Unfocused),
		TerminatedAbnormally: fin.TerminatedAbnormally,
		EndReason:            fin.EndReason,
	}

	saved, err := h.appendWithRetry(ctx, input)
	if err != nil {
		// never drop the record: park it for the operator
		h.registry.holdUnsaved(input)
		slog.Error("session could not be persisted; record held locally",
			"connection_id", h.id, "user_id", input.UserID, "error", err)
		return
	}
	h.notifyWebhook(ctx, saved)
}

func (h *Handler) appendWithRetry(ctx context.Context, input repository.AppendSessionInput) (*repository.StudySession, error) {
	var lastErr error
	delay := storeRetryBaseDelay
	for attempt := 1; attempt <= h.cfg.StoreRetryMaxAttempts; attempt++ {
		saved, err := h.store.AppendSession(ctx, input)
		if err == nil {
			return saved, nil
		}
		lastErr = err
		slog.Warn("store append failed",
			"connection_id", h.id, "attempt", attempt, "error", err)
		if attempt == h.cfg.StoreRetryMaxAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
	}
	return nil, lastErr
}

func (h *Handler) notifyWebhook(ctx context.Context, s *repository.StudySession) {
	payload := webhook.SessionWebhookPayload{
		SchemaVersion:        webhook.SessionWebhookSchemaVersion,
		SessionID:            s.ID,
		UserID:               s.UserID,
		StartAt:              s.StartedAt.Format(time.RFC3339),
		EndAt:                s.EndedAt.Format(time.RFC3339),
		TotalSeconds:         s.TotalSeconds,
		FocusedSeconds:       s.FocusedSeconds,
		UnfocusedSeconds:     s.UnfocusedSeconds,
		TerminatedAbnormally: s.TerminatedAbnormally,
		EndReason:            s.EndReason,
	}
	if err := h.webhook.SendSessionFinalized(ctx, payload); err != nil {
		slog.Error("failed to send session webhook", "session_id", s.ID, "error", err)
	}
}

func (h *Handler) reply(v any) {
	if err := h.conn.WriteJSON(v); err != nil {
		slog.Warn("failed to write reply", "connection_id", h.id, "error", err)
	}
}

func (h *Handler) replyError(reason string) {
	h.reply(errorReply{Type: replyError, Reason: reason})
}
