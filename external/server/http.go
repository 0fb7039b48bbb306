// Package server exposes the streaming ingest endpoint and the read-only
// query surface over one HTTP listener. Business logic stays in
// internal/stream and internal/stats; handlers here only parse parameters,
// fetch from the store and encode JSON.
package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/foxseedlab/shuchurin/internal/config"
	"github.com/foxseedlab/shuchurin/internal/repository"
	"github.com/foxseedlab/shuchurin/internal/stats"
	"github.com/foxseedlab/shuchurin/internal/stream"
	"github.com/foxseedlab/shuchurin/internal/webhook"
)

const defaultSessionListLimit = 100

type Server struct {
	cfg      *config.Config
	repo     repository.Repository
	registry *stream.Registry
	webhook  webhook.Sender

	// baseCtx parents every stream handler; canceled on Shutdown so
	// abandoned sessions record the right reason.
	baseCtx    context.Context
	cancelBase context.CancelFunc
	httpSrv    *http.Server
}

func NewServer(cfg *config.Config, repo repository.Repository, registry *stream.Registry, wh webhook.Sender) *Server {
	s := &Server{
		cfg:      cfg,
		repo:     repo,
		registry: registry,
		webhook:  wh,
	}
	s.baseCtx, s.cancelBase = context.WithCancel(context.Background())
	s.httpSrv = &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: s.routes(),
	}
	return s
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /ws", s.handleWebSocket)
	mux.HandleFunc("GET /api/sessions/{user_id}", s.handleListSessions)
	mux.HandleFunc("GET /api/sessions/{user_id}/current", s.handleCurrentSession)
	mux.HandleFunc("GET /api/sessions/{user_id}/daily/{date}", s.handleDailyStats)
	mux.HandleFunc("GET /api/sessions/{user_id}/weekly", s.handleWeeklyStats)
	mux.HandleFunc("GET /api/stats/{user_id}/summary", s.handleUserSummary)
	mux.HandleFunc("GET /api/leaderboard/{period}", s.handleLeaderboard)
	mux.HandleFunc("GET /api/admin/unsaved-sessions", s.handleUnsavedSessions)
	return corsMiddleware(requestLogMiddleware(mux))
}

// ListenAndServe blocks until the listener fails or Shutdown runs.
func (s *Server) ListenAndServe() error {
	slog.Info("http server listening", "addr", s.cfg.ListenAddr)
	err := s.httpSrv.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown stops accepting requests, then closes every live stream
// connection so open sessions are abandoned and persisted.
func (s *Server) Shutdown(ctx context.Context) error {
	s.cancelBase()
	err := s.httpSrv.Shutdown(ctx)
	s.registry.CloseAll()
	return err
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func requestLogMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		slog.Debug("request handled", "method", r.Method, "path", r.URL.Path, "duration_ms", time.Since(start).Milliseconds())
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":             "healthy",
		"timestamp":          time.Now().Format(time.RFC3339),
		"active_connections": s.registry.ActiveConnections(),
	})
}

type sessionResponse struct {
	ID                   string  `json:"id"`
	UserID               string  `json:"user_id"`
	StartTime            string  `json:"start_time"`
	EndTime              string  `json:"end_time"`
	TotalSeconds         float64 `json:"total_seconds"`
	FocusedSeconds       float64 `json:"focused_seconds"`
	UnfocusedSeconds     float64 `json:"unfocused_seconds"`
	TerminatedAbnormally bool    `json:"terminated_abnormally"`
	EndReason            string  `json:"end_reason,omitempty"`
	CreatedAt            string  `json:"created_at"`
}

func toSessionResponse(s *repository.StudySession) sessionResponse {
	return sessionResponse{
		ID:                   s.ID,
		UserID:               s.UserID,
		StartTime:            s.StartedAt.Format(time.RFC3339),
		EndTime:              s.EndedAt.Format(time.RFC3339),
		TotalSeconds:         s.TotalSeconds,
		FocusedSeconds:       s.FocusedSeconds,
		UnfocusedSeconds:     s.UnfocusedSeconds,
		TerminatedAbnormally: s.TerminatedAbnormally,
		EndReason:            s.EndReason,
		CreatedAt:            s.CreatedAt.Format(time.RFC3339),
	}
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("user_id")
	limit := defaultSessionListLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	from, to, err := parseTimeRange(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var sessions []repository.StudySession
	if from.IsZero() && to.IsZero() {
		sessions, err = s.repo.ListSessionsByUser(r.Context(), userID, limit)
	} else {
		if to.IsZero() {
			to = time.Now().Add(24 * time.Hour)
		}
		sessions, err = s.repo.QuerySessions(r.Context(), userID, from, to)
		if err == nil && len(sessions) > limit {
			sessions = sessions[:limit]
		}
	}
	if err != nil {
		slog.Error("failed to list sessions", "user_id", userID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to query sessions")
		return
	}

	out := make([]sessionResponse, 0, len(sessions))
	for i := range sessions {
		out = append(out, toSessionResponse(&sessions[i]))
	}
	writeJSON(w, http.StatusOK, out)
}

type currentSessionResponse struct {
	UserID           string  `json:"user_id"`
	StartTime        string  `json:"start_time"`
	TotalSeconds     float64 `json:"total_seconds"`
	FocusedSeconds   float64 `json:"focused_seconds"`
	UnfocusedSeconds float64 `json:"unfocused_seconds"`
	CurrentlyFocused bool    `json:"currently_focused"`
	LastSampleAt     string  `json:"last_sample_at"`
}

func (s *Server) handleCurrentSession(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("user_id")
	snap := s.registry.CurrentSession(userID)
	if snap == nil {
		writeJSON(w, http.StatusOK, nil)
		return
	}
	writeJSON(w, http.StatusOK, currentSessionResponse{
		UserID:           snap.UserID,
		StartTime:        snap.StartedAt.Format(time.RFC3339),
		TotalSeconds:     repository.RoundSeconds(snap.Total),
		FocusedSeconds:   repository.RoundSeconds(snap.Focused),
		UnfocusedSeconds: repository.RoundSeconds(snap.Unfocused),
		CurrentlyFocused: snap.CurrentFocused,
		LastSampleAt:     snap.LastSampleAt.Format(time.RFC3339),
	})
}

func (s *Server) handleDailyStats(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("user_id")
	loc := s.cfg.StatsLocation()
	date, err := time.ParseInLocation("2006-01-02", r.PathValue("date"), loc)
	if err != nil {
		writeError(w, http.StatusBadRequest, "date must be formatted YYYY-MM-DD")
		return
	}
	window := stats.DayWindow(date, loc)
	sessions, err := s.repo.QuerySessions(r.Context(), userID, window.Start, window.End)
	if err != nil {
		slog.Error("failed to query sessions", "user_id", userID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to query sessions")
		return
	}
	writeJSON(w, http.StatusOK, stats.Summarize(sessions, window))
}

func (s *Server) handleWeeklyStats(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("user_id")
	loc := s.cfg.StatsLocation()
	at := time.Now()
	if raw := r.URL.Query().Get("week_start"); raw != "" {
		parsed, err := time.ParseInLocation("2006-01-02", raw, loc)
		if err != nil {
			writeError(w, http.StatusBadRequest, "week_start must be formatted YYYY-MM-DD")
			return
		}
		at = parsed
	}
	window := stats.WeekWindow(at, loc)
	sessions, err := s.repo.QuerySessions(r.Context(), userID, window.Start, window.End)
	if err != nil {
		slog.Error("failed to query sessions", "user_id", userID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to query sessions")
		return
	}
	writeJSON(w, http.StatusOK, stats.DailyBreakdown(sessions, window, loc))
}

func (s *Server) handleUserSummary(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("user_id")
	sessions, err := s.repo.ListSessionsByUser(r.Context(), userID, 0)
	if err != nil {
		slog.Error("failed to list sessions", "user_id", userID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to query sessions")
		return
	}
	writeJSON(w, http.StatusOK, stats.SummarizeUser(sessions, time.Now(), s.cfg.StatsLocation()))
}

type leaderboardResponse struct {
	Period      string                   `json:"period"`
	PeriodKey   string                   `json:"period_key"`
	Leaderboard []stats.LeaderboardEntry `json:"leaderboard"`
}

func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	kind, err := stats.ParsePeriodKind(r.PathValue("period"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "period must be one of day, week, month")
		return
	}
	limit := s.cfg.LeaderboardDefaultLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}
	if limit > s.cfg.LeaderboardMaxLimit {
		limit = s.cfg.LeaderboardMaxLimit
	}

	loc := s.cfg.StatsLocation()
	window, err := stats.WindowAt(kind, time.Now(), loc)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	sessions, err := s.repo.ListSessionsInRange(r.Context(), window.Start, window.End)
	if err != nil {
		slog.Error("failed to query leaderboard sessions", "period", kind, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to query sessions")
		return
	}
	writeJSON(w, http.StatusOK, leaderboardResponse{
		Period:      string(kind),
		PeriodKey:   window.Key,
		Leaderboard: stats.Leaderboard(sessions, window, limit),
	})
}

// handleUnsavedSessions surfaces finalized records whose store writes
// exhausted all retries, so an operator can recover them.
func (s *Server) handleUnsavedSessions(w http.ResponseWriter, r *http.Request) {
	held := s.registry.UnsavedSessions()
	out := make([]sessionResponse, 0, len(held))
	for _, rec := range held {
		out = append(out, sessionResponse{
			UserID:               rec.UserID,
			StartTime:            rec.StartedAt.Format(time.RFC3339),
			EndTime:              rec.EndedAt.Format(time.RFC3339),
			TotalSeconds:         rec.TotalSeconds,
			FocusedSeconds:       rec.FocusedSeconds,
			UnfocusedSeconds:     rec.UnfocusedSeconds,
			TerminatedAbnormally: rec.TerminatedAbnormally,
			EndReason:            rec.EndReason,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func parseTimeRange(r *http.Request) (from, to time.Time, err error) {
	q := r.URL.Query()
	if raw := q.Get("from"); raw != "" {
		from, err = time.Parse(time.RFC3339, raw)
		if err != nil {
			return time.Time{}, time.Time{}, errInvalidTimeParam("from")
		}
	}
	if raw := q.Get("to"); raw != "" {
		to, err = time.Parse(time.RFC3339, raw)
		if err != nil {
			return time.Time{}, time.Time{}, errInvalidTimeParam("to")
		}
	}
	return from, to, nil
}

type errInvalidTimeParam string

func (e errInvalidTimeParam) Error() string {
	return string(e) + " must be an RFC3339 timestamp"
}
