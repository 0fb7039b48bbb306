// Package stats is the aggregation engine: pure functions from finalized
// study sessions to period summaries, daily breakdowns, user summaries and
// leaderboards. It holds no state; callers fetch the input set from the
// store.
package stats

import (
	"sort"
	"time"

	"github.com/foxseedlab/shuchurin/internal/repository"
)

// PeriodSummary totals one user's (or one bucket's) time inside a period
// window. A session spanning the window boundary contributes only the
// clamped portion of its duration.
type PeriodSummary struct {
	UserID       string        `json:"user_id,omitempty"`
	Kind         PeriodKind    `json:"period_kind"`
	Key          string        `json:"period_key"`
	Total        time.Duration `json:"-"`
	Focused      time.Duration `json:"-"`
	Unfocused    time.Duration `json:"-"`
	SessionCount int           `json:"session_count"`

	TotalSeconds     float64 `json:"total_seconds"`
	FocusedSeconds   float64 `json:"focused_seconds"`
	UnfocusedSeconds float64 `json:"unfocused_seconds"`
}

// clampedShare returns the session's focused/unfocused contribution inside
// the window. A partially overlapping session is scaled by the overlapping
// fraction of its span, so the two sides of a boundary sum to the whole.
func clampedShare(s *repository.StudySession, w Window) (focused, unfocused time.Duration, counted bool) {
	span := s.EndedAt.Sub(s.StartedAt)
	start := s.StartedAt
	if start.Before(w.Start) {
		start = w.Start
	}
	end := s.EndedAt
	if end.After(w.End) {
		end = w.End
	}
	overlap := end.Sub(start)
	if overlap <= 0 {
		// zero-length sessions still count when they sit inside the window
		if span == 0 && w.Contains(s.StartedAt) {
			return 0, 0, true
		}
		return 0, 0, false
	}
	if span <= 0 {
		return 0, 0, true
	}
	fraction := float64(overlap) / float64(span)
	focused = time.Duration(float64(s.Focused()) * fraction)
	unfocused = time.Duration(float64(s.Unfocused()) * fraction)
	return focused, unfocused, true
}

// Summarize folds the sessions intersecting w into one summary.
func Summarize(sessions []repository.StudySession, w Window) PeriodSummary {
	sum := PeriodSummary{Kind: w.Kind, Key: w.Key}
	for i := range sessions {
		focused, unfocused, counted := clampedShare(&sessions[i], w)
		if !counted {
			continue
		}
		sum.Focused += focused
		sum.Unfocused += unfocused
		sum.Total += focused + unfocused
		sum.SessionCount++
	}
	sum.fillSeconds()
	return sum
}

// DailyBreakdown splits a window into day summaries, one per day that has
// at least one contributing session, ordered by date.
func DailyBreakdown(sessions []repository.StudySession, w Window, loc *time.Location) []PeriodSummary {
	byDay := make(map[string]*PeriodSummary)
	for day := DayWindow(w.Start, loc); day.Start.Before(w.End); day = DayWindow(day.End, loc) {
		s := Summarize(sessions, day)
		if s.SessionCount == 0 {
			continue
		}
		byDay[day.Key] = &s
	}
	keys := make([]string, 0, len(byDay))
	for k := range byDay {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]PeriodSummary, 0, len(keys))
	for _, k := range keys {
		out = append(out, *byDay[k])
	}
	return out
}

// UserSummary is the lifetime overview served by the stats route.
type UserSummary struct {
	TotalSessions    int     `json:"total_sessions"`
	TotalSeconds     float64 `json:"total_seconds"`
	FocusedSeconds   float64 `json:"focused_seconds"`
	UnfocusedSeconds float64 `json:"unfocused_seconds"`
	FocusRatio       float64 `json:"focus_ratio"`

	Today     PeriodSummary `json:"today"`
	ThisWeek  PeriodSummary `json:"this_week"`
	ThisMonth PeriodSummary `json:"this_month"`
}

// SummarizeUser computes lifetime totals plus the current day/week/month
// slices, all relative to now in loc.
func SummarizeUser(sessions []repository.StudySession, now time.Time, loc *time.Location) UserSummary {
	var total, focused, unfocused time.Duration
	for i := range sessions {
		total += sessions[i].Total()
		focused += sessions[i].Focused()
		unfocused += sessions[i].Unfocused()
	}
	out := UserSummary{
		TotalSessions:    len(sessions),
		TotalSeconds:     repository.RoundSeconds(total),
		FocusedSeconds:   repository.RoundSeconds(focused),
		UnfocusedSeconds: repository.RoundSeconds(unfocused),
		Today:            Summarize(sessions, DayWindow(now, loc)),
		ThisWeek:         Summarize(sessions, WeekWindow(now, loc)),
		ThisMonth:        Summarize(sessions, MonthWindow(now, loc)),
	}
	if total > 0 {
		out.FocusRatio = float64(focused) / float64(total)
	}
	return out
}

func (p *PeriodSummary) fillSeconds() {
	p.TotalSeconds = repository.RoundSeconds(p.Total)
	p.FocusedSeconds = repository.RoundSeconds(p.Focused)
	p.UnfocusedSeconds = repository.RoundSeconds(p.Unfocused)
}
