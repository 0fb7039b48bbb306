// Package classifier turns a noisy stream of per-frame focus hints into a
// stable focus state. A hint disagreeing with the current state only flips
// the state once it has persisted for a full debounce window, so blinks and
// single-frame detector noise never toggle a session.
package classifier

import (
	"errors"
	"time"
)

// DefaultDebounceWindow exceeds a normal blink (~100-300ms) so eye-closed
// hints from blinking are absorbed.
const DefaultDebounceWindow = 400 * time.Millisecond

// ErrOutOfOrderSample is returned when a sample's timestamp is not strictly
// after the previous one. The sample is rejected; classifier state is
// untouched.
var ErrOutOfOrderSample = errors.New("classifier: sample timestamp out of order")

// Transition is an accepted focus-state change.
type Transition struct {
	Focused bool
	At      time.Time
	// Initial marks the transition that establishes the very first state.
	Initial bool
}

// Classifier debounces raw focus hints. Zero value is not usable; construct
// with New.
type Classifier struct {
	debounce time.Duration

	established    bool
	current        bool
	candidate      bool
	candidateSince time.Time
	hasCandidate   bool
	lastSeen       time.Time
}

func New(debounce time.Duration) *Classifier {
	if debounce <= 0 {
		debounce = DefaultDebounceWindow
	}
	return &Classifier{debounce: debounce}
}

// Current reports the debounced focus state. Meaningful only after the first
// accepted sample.
func (c *Classifier) Current() bool {
	return c.current
}

// Established reports whether any sample has been accepted yet.
func (c *Classifier) Established() bool {
	return c.established
}

// Observe feeds one raw hint. It returns a non-nil Transition when the
// debounced state changes (or is first established), nil otherwise.
func (c *Classifier) Observe(hint bool, at time.Time) (*Transition, error) {
	if c.established && !at.After(c.lastSeen) {
		return nil, ErrOutOfOrderSample
	}

	if !c.established {
		c.established = true
		c.current = hint
		c.lastSeen = at
		return &Transition{Focused: hint, At: at, Initial: true}, nil
	}
	c.lastSeen = at

	if hint == c.current {
		// agreement resets any pending candidate
		c.hasCandidate = false
		return nil, nil
	}

	if !c.hasCandidate || c.candidate != hint {
		c.hasCandidate = true
		c.candidate = hint
		c.candidateSince = at
		return nil, nil
	}

	if at.Sub(c.candidateSince) >= c.debounce {
		c.current = c.candidate
		c.hasCandidate = false
		return &Transition{Focused: c.current, At: at}, nil
	}
	return nil, nil
}
