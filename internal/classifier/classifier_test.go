package classifier

import (
	"errors"
	"testing"
	"time"
)

var base = time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)

func at(ms int) time.Time {
	return base.Add(time.Duration(ms) * time.Millisecond)
}

func mustObserve(t *testing.T, c *Classifier, hint bool, ms int) *Transition {
	t.Helper()
	tr, err := c.Observe(hint, at(ms))
	if err != nil {
		t.Fatalf("unexpected error at t=%dms: %v", ms, err)
	}
	return tr
}

func TestObserve_FirstSampleEstablishesImmediately(t *testing.T) {
	c := New(300 * time.Millisecond)
	tr := mustObserve(t, c, true, 0)
	if tr == nil || !tr.Initial || !tr.Focused {
		t.Fatalf("expected initial focused transition, got %+v", tr)
	}
	if !c.Current() {
		t.Fatal("expected current state focused")
	}
}

func TestObserve_BlinkSuppression(t *testing.T) {
	c := New(300 * time.Millisecond)
	mustObserve(t, c, true, 0)
	if tr := mustObserve(t, c, false, 100); tr != nil {
		t.Fatalf("expected no transition for brief disagreement, got %+v", tr)
	}
	if tr := mustObserve(t, c, true, 200); tr != nil {
		t.Fatalf("expected no transition when hint returns, got %+v", tr)
	}
	if !c.Current() {
		t.Fatal("expected state still focused after blink-speed alternation")
	}
}

func TestObserve_SustainedChangeEmitsExactlyOneTransition(t *testing.T) {
	c := New(300 * time.Millisecond)
	mustObserve(t, c, true, 0)

	var transitions []*Transition
	for ms := 100; ms <= 600; ms += 100 {
		if tr := mustObserve(t, c, false, ms); tr != nil {
			transitions = append(transitions, tr)
		}
	}
	if len(transitions) != 1 {
		t.Fatalf("expected exactly one transition, got %d", len(transitions))
	}
	// candidate started at 100ms, window elapsed at the 400ms sample
	if got, want := transitions[0].At, at(400); !got.Equal(want) {
		t.Fatalf("expected transition at %v, got %v", want, got)
	}
	if transitions[0].Focused {
		t.Fatal("expected transition to unfocused")
	}
	if c.Current() {
		t.Fatal("expected current state unfocused after transition")
	}
}

func TestObserve_AgreementResetsCandidateWindow(t *testing.T) {
	c := New(300 * time.Millisecond)
	mustObserve(t, c, true, 0)
	mustObserve(t, c, false, 100)
	mustObserve(t, c, true, 300) // resets the candidate
	if tr := mustObserve(t, c, false, 400); tr != nil {
		t.Fatalf("expected restarted candidate window, got transition %+v", tr)
	}
	if tr := mustObserve(t, c, false, 700); tr == nil {
		t.Fatal("expected transition once restarted window elapsed")
	}
}

func TestObserve_OutOfOrderRejected(t *testing.T) {
	c := New(300 * time.Millisecond)
	mustObserve(t, c, true, 500)
	if _, err := c.Observe(false, at(500)); !errors.Is(err, ErrOutOfOrderSample) {
		t.Fatalf("expected ErrOutOfOrderSample for equal timestamp, got %v", err)
	}
	if _, err := c.Observe(false, at(200)); !errors.Is(err, ErrOutOfOrderSample) {
		t.Fatalf("expected ErrOutOfOrderSample for earlier timestamp, got %v", err)
	}
	if !c.Current() {
		t.Fatal("expected rejected samples to leave state untouched")
	}
}
