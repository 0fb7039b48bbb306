package stats

import (
	"testing"
	"time"

	"github.com/foxseedlab/shuchurin/internal/repository"
)

var tokyo = mustLocation("Asia/Tokyo")

func mustLocation(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		panic(err)
	}
	return loc
}

func session(userID string, start, end time.Time, focusedSec, unfocusedSec float64) repository.StudySession {
	return repository.StudySession{
		UserID:           userID,
		StartedAt:        start,
		EndedAt:          end,
		TotalSeconds:     focusedSec + unfocusedSec,
		FocusedSeconds:   focusedSec,
		UnfocusedSeconds: unfocusedSec,
	}
}

func TestSummarize_SessionFullyInsideWindow(t *testing.T) {
	day := DayWindow(time.Date(2026, 3, 14, 12, 0, 0, 0, tokyo), tokyo)
	sessions := []repository.StudySession{
		session("u1",
			time.Date(2026, 3, 14, 9, 0, 0, 0, tokyo),
			time.Date(2026, 3, 14, 10, 0, 0, 0, tokyo),
			2400, 1200),
	}
	sum := Summarize(sessions, day)
	if sum.SessionCount != 1 {
		t.Fatalf("expected 1 session, got %d", sum.SessionCount)
	}
	if sum.FocusedSeconds != 2400 || sum.UnfocusedSeconds != 1200 || sum.TotalSeconds != 3600 {
		t.Fatalf("unexpected totals: %+v", sum)
	}
}

func TestSummarize_BoundarySpanningSessionSplitsAcrossDays(t *testing.T) {
	// 23:50 -> 00:10, all focused: 10 minutes to each adjacent day
	start := time.Date(2026, 3, 14, 23, 50, 0, 0, tokyo)
	end := time.Date(2026, 3, 15, 0, 10, 0, 0, tokyo)
	sessions := []repository.StudySession{session("u1", start, end, 1200, 0)}

	day1 := Summarize(sessions, DayWindow(start, tokyo))
	day2 := Summarize(sessions, DayWindow(end, tokyo))

	if day1.FocusedSeconds != 600 {
		t.Fatalf("expected 600s in first day, got %v", day1.FocusedSeconds)
	}
	if day2.FocusedSeconds != 600 {
		t.Fatalf("expected 600s in second day, got %v", day2.FocusedSeconds)
	}
	if day1.FocusedSeconds+day2.FocusedSeconds != 1200 {
		t.Fatal("split halves must sum to the full session")
	}
	if day1.SessionCount != 1 || day2.SessionCount != 1 {
		t.Fatal("the session counts toward both adjacent days")
	}
}

func TestSummarize_SessionOutsideWindowIgnored(t *testing.T) {
	day := DayWindow(time.Date(2026, 3, 14, 0, 0, 0, 0, tokyo), tokyo)
	sessions := []repository.StudySession{
		session("u1",
			time.Date(2026, 3, 16, 9, 0, 0, 0, tokyo),
			time.Date(2026, 3, 16, 10, 0, 0, 0, tokyo),
			100, 0),
	}
	sum := Summarize(sessions, day)
	if sum.SessionCount != 0 || sum.TotalSeconds != 0 {
		t.Fatalf("expected empty summary, got %+v", sum)
	}
}

func TestDailyBreakdown_GroupsByDay(t *testing.T) {
	week := WeekWindow(time.Date(2026, 3, 11, 0, 0, 0, 0, tokyo), tokyo) // week of Mon 2026-03-09
	sessions := []repository.StudySession{
		session("u1",
			time.Date(2026, 3, 9, 9, 0, 0, 0, tokyo),
			time.Date(2026, 3, 9, 10, 0, 0, 0, tokyo),
			3600, 0),
		session("u1",
			time.Date(2026, 3, 9, 20, 0, 0, 0, tokyo),
			time.Date(2026, 3, 9, 21, 0, 0, 0, tokyo),
			1800, 1800),
		session("u1",
			time.Date(2026, 3, 11, 9, 0, 0, 0, tokyo),
			time.Date(2026, 3, 11, 9, 30, 0, 0, tokyo),
			900, 900),
	}
	days := DailyBreakdown(sessions, week, tokyo)
	if len(days) != 2 {
		t.Fatalf("expected 2 day buckets, got %d", len(days))
	}
	if days[0].Key != "2026-03-09" || days[0].SessionCount != 2 || days[0].FocusedSeconds != 5400 {
		t.Fatalf("unexpected first bucket: %+v", days[0])
	}
	if days[1].Key != "2026-03-11" || days[1].SessionCount != 1 {
		t.Fatalf("unexpected second bucket: %+v", days[1])
	}
}

func TestWeekWindow_MondayStart(t *testing.T) {
	w := WeekWindow(time.Date(2026, 3, 14, 23, 0, 0, 0, tokyo), tokyo) // a Saturday
	if w.Start.Weekday() != time.Monday {
		t.Fatalf("expected Monday start, got %v", w.Start.Weekday())
	}
	if got := w.Start.Format("2006-01-02"); got != "2026-03-09" {
		t.Fatalf("expected week starting 2026-03-09, got %s", got)
	}
	if w.End.Sub(w.Start) != 7*24*time.Hour {
		t.Fatalf("expected 7-day window, got %v", w.End.Sub(w.Start))
	}
}

func TestParsePeriodKind(t *testing.T) {
	for _, valid := range []string{"day", "week", "month"} {
		if _, err := ParsePeriodKind(valid); err != nil {
			t.Fatalf("expected %q to parse, got %v", valid, err)
		}
	}
	if _, err := ParsePeriodKind("year"); err == nil {
		t.Fatal("expected error for unknown period kind")
	}
}

func TestSummarizeUser_TotalsAndRatio(t *testing.T) {
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, tokyo)
	sessions := []repository.StudySession{
		session("u1", now.Add(-2*time.Hour), now.Add(-time.Hour), 2700, 900),
		session("u1", now.AddDate(0, 0, -40), now.AddDate(0, 0, -40).Add(time.Hour), 1800, 1800),
	}
	sum := SummarizeUser(sessions, now, tokyo)
	if sum.TotalSessions != 2 {
		t.Fatalf("expected 2 sessions, got %d", sum.TotalSessions)
	}
	if sum.TotalSeconds != 7200 || sum.FocusedSeconds != 4500 {
		t.Fatalf("unexpected totals: %+v", sum)
	}
	if ratio := sum.FocusRatio; ratio < 0.624 || ratio > 0.626 {
		t.Fatalf("expected focus ratio 0.625, got %f", ratio)
	}
	if sum.Today.SessionCount != 1 {
		t.Fatalf("expected 1 session today, got %d", sum.Today.SessionCount)
	}
	if sum.ThisMonth.SessionCount != 1 {
		t.Fatalf("expected the 40-day-old session outside this month, got %d", sum.ThisMonth.SessionCount)
	}
}

func TestSummarizeUser_EmptyInput(t *testing.T) {
	sum := SummarizeUser(nil, time.Date(2026, 3, 14, 12, 0, 0, 0, tokyo), tokyo)
	if sum.FocusRatio != 0 || sum.TotalSessions != 0 {
		t.Fatalf("expected zero summary, got %+v", sum)
	}
}
