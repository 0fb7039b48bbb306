package stats

import (
	"sort"
	"time"

	"github.com/foxseedlab/shuchurin/internal/repository"
)

// LeaderboardEntry is one ranked row for a period.
type LeaderboardEntry struct {
	Rank           int        `json:"rank"`
	UserID         string     `json:"user_id"`
	Kind           PeriodKind `json:"period_kind"`
	Key            string     `json:"period_key"`
	FocusedSeconds float64    `json:"focused_seconds"`
	TotalSeconds   float64    `json:"total_seconds"`
	SessionCount   int        `json:"session_count"`

	focused time.Duration
}

// Leaderboard ranks every user with at least one session intersecting w by
// clamped focused time descending, ties broken by user id ascending so
// repeated computations give identical orderings. Sessions that ended
// abnormally are excluded. limit caps the returned rows; non-positive means
// no cap beyond the input itself.
func Leaderboard(sessions []repository.StudySession, w Window, limit int) []LeaderboardEntry {
	type userTotals struct {
		focused time.Duration
		total   time.Duration
		count   int
	}
	byUser := make(map[string]*userTotals)
	for i := range sessions {
		s := &sessions[i]
		if s.TerminatedAbnormally {
			continue
		}
		focused, unfocused, counted := clampedShare(s, w)
		if !counted {
			continue
		}
		u := byUser[s.UserID]
		if u == nil {
			u = &userTotals{}
			byUser[s.UserID] = u
		}
		u.focused += focused
		u.total += focused + unfocused
		u.count++
	}

	entries := make([]LeaderboardEntry, 0, len(byUser))
	for userID, u := range byUser {
		entries = append(entries, LeaderboardEntry{
			UserID:         userID,
			Kind:           w.Kind,
			Key:            w.Key,
			FocusedSeconds: repository.RoundSeconds(u.focused),
			TotalSeconds:   repository.RoundSeconds(u.total),
			SessionCount:   u.count,
			focused:        u.focused,
		})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].focused != entries[j].focused {
			return entries[i].focused > entries[j].focused
		}
		return entries[i].UserID < entries[j].UserID
	})
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	for i := range entries {
		entries[i].Rank = i + 1
	}
	return entries
}
