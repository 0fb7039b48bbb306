package stats

import (
	"reflect"
	"testing"
	"time"

	"github.com/foxseedlab/shuchurin/internal/repository"
)

func TestLeaderboard_RanksByFocusedTimeDescending(t *testing.T) {
	day := DayWindow(time.Date(2026, 3, 14, 0, 0, 0, 0, tokyo), tokyo)
	start := time.Date(2026, 3, 14, 9, 0, 0, 0, tokyo)
	end := start.Add(time.Hour)
	sessions := []repository.StudySession{
		session("alice", start, end, 1800, 1800),
		session("bob", start, end, 900, 2700),
		session("carol", start, end, 3600, 0),
	}
	entries := Leaderboard(sessions, day, 10)
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}
	wantOrder := []string{"carol", "alice", "bob"}
	for i, want := range wantOrder {
		if entries[i].UserID != want {
			t.Fatalf("rank %d: expected %s, got %s", i+1, want, entries[i].UserID)
		}
		if entries[i].Rank != i+1 {
			t.Fatalf("expected rank %d, got %d", i+1, entries[i].Rank)
		}
	}
}

func TestLeaderboard_TiesBrokenByUserIDAscending(t *testing.T) {
	day := DayWindow(time.Date(2026, 3, 14, 0, 0, 0, 0, tokyo), tokyo)
	start := time.Date(2026, 3, 14, 9, 0, 0, 0, tokyo)
	end := start.Add(time.Hour)
	sessions := []repository.StudySession{
		session("zeta", start, end, 1800, 0),
		session("alpha", start, end, 1800, 0),
		session("mike", start, end, 1800, 0),
	}
	first := Leaderboard(sessions, day, 0)
	second := Leaderboard(sessions, day, 0)
	wantOrder := []string{"alpha", "mike", "zeta"}
	for i, want := range wantOrder {
		if first[i].UserID != want {
			t.Fatalf("expected tie order %v, got %s at position %d", wantOrder, first[i].UserID, i)
		}
	}
	if !reflect.DeepEqual(first, second) {
		t.Fatal("expected deterministic ordering across repeated computations")
	}
}

func TestLeaderboard_LimitCapsEntries(t *testing.T) {
	day := DayWindow(time.Date(2026, 3, 14, 0, 0, 0, 0, tokyo), tokyo)
	start := time.Date(2026, 3, 14, 9, 0, 0, 0, tokyo)
	end := start.Add(time.Hour)
	sessions := []repository.StudySession{
		session("a", start, end, 300, 0),
		session("b", start, end, 600, 0),
		session("c", start, end, 900, 0),
	}
	entries := Leaderboard(sessions, day, 2)
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].UserID != "c" || entries[1].UserID != "b" {
		t.Fatalf("unexpected capped ordering: %v, %v", entries[0].UserID, entries[1].UserID)
	}
}

func TestLeaderboard_ExcludesAbnormalTerminations(t *testing.T) {
	day := DayWindow(time.Date(2026, 3, 14, 0, 0, 0, 0, tokyo), tokyo)
	start := time.Date(2026, 3, 14, 9, 0, 0, 0, tokyo)
	end := start.Add(time.Hour)
	abnormal := session("ghost", start, end, 3600, 0)
	abnormal.TerminatedAbnormally = true
	sessions := []repository.StudySession{
		abnormal,
		session("alice", start, end, 600, 0),
	}
	entries := Leaderboard(sessions, day, 0)
	if len(entries) != 1 || entries[0].UserID != "alice" {
		t.Fatalf("expected abnormally terminated sessions excluded, got %+v", entries)
	}
}

func TestLeaderboard_ClampsBoundarySpanningSessions(t *testing.T) {
	// session straddling midnight: only the in-window half ranks
	start := time.Date(2026, 3, 14, 23, 50, 0, 0, tokyo)
	end := time.Date(2026, 3, 15, 0, 10, 0, 0, tokyo)
	sessions := []repository.StudySession{session("u1", start, end, 1200, 0)}
	entries := Leaderboard(sessions, DayWindow(start, tokyo), 0)
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	if entries[0].FocusedSeconds != 600 {
		t.Fatalf("expected 600 clamped focused seconds, got %v", entries[0].FocusedSeconds)
	}
}
