package repository

import "time"

// DurationResolution is the granularity at which session durations are
// persisted.
const DurationResolution = 10 * time.Millisecond

// StudySession is one finalized session as handed to the store. Durations
// are seconds rounded to DurationResolution.
type StudySession struct {
	ID                   string
	UserID               string
	StartedAt            time.Time
	EndedAt              time.Time
	TotalSeconds         float64
	FocusedSeconds       float64
	UnfocusedSeconds     float64
	TerminatedAbnormally bool
	EndReason            string
	CreatedAt            time.Time
}

// Duration accessors for aggregation; the store keeps float seconds, the
// engine works in time.Duration.

func (s *StudySession) Total() time.Duration {
	return secondsToDuration(s.TotalSeconds)
}

func (s *StudySession) Focused() time.Duration {
	return secondsToDuration(s.FocusedSeconds)
}

func (s *StudySession) Unfocused() time.Duration {
	return secondsToDuration(s.UnfocusedSeconds)
}

func secondsToDuration(sec float64) time.Duration {
	return time.Duration(sec * float64(time.Second))
}

// RoundSeconds converts a duration to float seconds at DurationResolution.
func RoundSeconds(d time.Duration) float64 {
	return d.Round(DurationResolution).Seconds()
}
