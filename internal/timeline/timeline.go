// Package timeline owns a single study session's lifecycle and duration
// accounting. One Timeline exists per live connection; it receives the
// classifier's debounced state, never raw hints.
package timeline

import (
	"errors"
	"time"
)

var (
	// ErrInvalidTransition means the operation is not valid in the
	// timeline's current phase. The timeline is left unchanged.
	ErrInvalidTransition = errors.New("timeline: invalid state transition")
	// ErrOutOfOrderSample means the observation's timestamp is not
	// strictly after the last one. The sample is rejected, the session
	// continues.
	ErrOutOfOrderSample = errors.New("timeline: sample timestamp out of order")
)

// Phase is the session lifecycle state.
type Phase int

const (
	NotStarted Phase = iota
	Active
	Ended
)

func (p Phase) String() string {
	switch p {
	case NotStarted:
		return "not_started"
	case Active:
		return "active"
	case Ended:
		return "ended"
	default:
		return "unknown"
	}
}

// Finalized is the immutable record of a closed session, ready for the
// store.
type Finalized struct {
	UserID               string
	StartedAt            time.Time
	EndedAt              time.Time
	Total                time.Duration
	Focused              time.Duration
	Unfocused            time.Duration
	TerminatedAbnormally bool
	EndReason            string
}

// Snapshot is a read-only view of an open timeline, served to the query
// surface while the session is still running.
type Snapshot struct {
	UserID         string
	StartedAt      time.Time
	Focused        time.Duration
	Unfocused      time.Duration
	Total          time.Duration
	CurrentFocused bool
	LastSampleAt   time.Time
}

// Timeline accumulates focused/unfocused durations for one session. It is
// owned by exactly one connection handler and is not safe for concurrent
// use.
type Timeline struct {
	phase Phase

	userID         string
	startedAt      time.Time
	focused        time.Duration
	unfocused      time.Duration
	currentFocused bool
	lastTransition time.Time
}

func New() *Timeline {
	return &Timeline{phase: NotStarted}
}

func (tl *Timeline) Phase() Phase   { return tl.phase }
func (tl *Timeline) UserID() string { return tl.userID }

// Total holds by construction: every accumulation adds to exactly one of
// the two buckets.
func (tl *Timeline) Total() time.Duration { return tl.focused + tl.unfocused }

// Start opens the session. Valid only from NotStarted; a double start is
// rejected, not silently ignored. initialFocused is the first hint reported
// before the session opened, or false when none was.
func (tl *Timeline) Start(userID string, at time.Time, initialFocused bool) error {
	if tl.phase != NotStarted {
		return ErrInvalidTransition
	}
	tl.phase = Active
	tl.userID = userID
	tl.startedAt = at
	tl.focused = 0
	tl.unfocused = 0
	tl.currentFocused = initialFocused
	tl.lastTransition = at
	return nil
}

// Observe extends the current state's bucket up to at, then adopts
// isFocused as the current state. The caller feeds debounced state here;
// the timeline does not re-debounce.
func (tl *Timeline) Observe(isFocused bool, at time.Time) error {
	if tl.phase != Active {
		return ErrInvalidTransition
	}
	if !at.After(tl.lastTransition) {
		return ErrOutOfOrderSample
	}
	tl.accumulate(at)
	tl.currentFocused = isFocused
	return nil
}

// End performs the final accumulation up to at and closes the session.
func (tl *Timeline) End(at time.Time) (*Finalized, error) {
	if tl.phase != Active {
		return nil, ErrInvalidTransition
	}
	if at.Before(tl.lastTransition) {
		return nil, ErrOutOfOrderSample
	}
	tl.accumulate(at)
	tl.phase = Ended
	return tl.finalized(at, false, "completed"), nil
}

// Abandon closes the session without an explicit end signal, keeping every
// accumulated duration as of the last processed timestamp. The record is
// tagged so aggregation can choose to exclude it.
func (tl *Timeline) Abandon(reason string) (*Finalized, error) {
	if tl.phase != Active {
		return nil, ErrInvalidTransition
	}
	tl.phase = Ended
	return tl.finalized(tl.lastTransition, true, reason), nil
}

// Snapshot returns the open session's current accounting. Returns nil
// unless the timeline is Active.
func (tl *Timeline) Snapshot() *Snapshot {
	if tl.phase != Active {
		return nil
	}
	return &Snapshot{
		UserID:         tl.userID,
		StartedAt:      tl.startedAt,
		Focused:        tl.focused,
		Unfocused:      tl.unfocused,
		Total:          tl.focused + tl.unfocused,
		CurrentFocused: tl.currentFocused,
		LastSampleAt:   tl.lastTransition,
	}
}

func (tl *Timeline) accumulate(at time.Time) {
	delta := at.Sub(tl.lastTransition)
	if tl.currentFocused {
		tl.focused += delta
	} else {
		tl.unfocused += delta
	}
	tl.lastTransition = at
}

func (tl *Timeline) finalized(endedAt time.Time, abnormal bool, reason string) *Finalized {
	return &Finalized{
		UserID:               tl.userID,
		StartedAt:            tl.startedAt,
		EndedAt:              endedAt,
		Total:                tl.focused + tl.unfocused,
		Focused:              tl.focused,
		Unfocused:            tl.unfocused,
		TerminatedAbnormally: abnormal,
		EndReason:            reason,
	}
}
