package tracking

import "time"

// SessionClock derives active elapsed time from timestamps only, so it is
// unaffected by how often it is sampled or by the process being suspended.
type SessionClock struct {
	StartedAt          time.Time
	PausedAccumulated  time.Duration
	LastPauseStartedAt *time.Time
}

func (c SessionClock) Paused() bool {
	return c.LastPauseStartedAt != nil
}

func (c SessionClock) Elapsed(now time.Time) time.Duration {
	if c.StartedAt.IsZero() {
		return 0
	}
	elapsed := now.Sub(c.StartedAt) - c.PausedAccumulated
	if c.LastPauseStartedAt != nil {
		if inPause := now.Sub(*c.LastPauseStartedAt); inPause > 0 {
			elapsed -= inPause
		}
	}
	if elapsed < 0 {
		return 0
	}
	return elapsed
}

// Pause records the start of a pause. Pausing twice keeps the first start.
func (c SessionClock) Pause(now time.Time) SessionClock {
	if c.LastPauseStartedAt != nil {
		return c
	}
	c.LastPauseStartedAt = &now
	return c
}

func (c SessionClock) Resume(now time.Time) SessionClock {
	if c.LastPauseStartedAt == nil {
		return c
	}
	if inPause := now.Sub(*c.LastPauseStartedAt); inPause > 0 {
		c.PausedAccumulated += inPause
	}
	c.LastPauseStartedAt = nil
	return c
}

func (s *Session) clock() SessionClock {
	return SessionClock{
		StartedAt:          s.StartedAt,
		PausedAccumulated:  s.PausedAccumulated,
		LastPauseStartedAt: s.LastPauseStartedAt,
	}
}

func (s *Session) setClock(c SessionClock) {
	s.StartedAt = c.StartedAt
	s.PausedAccumulated = c.PausedAccumulated
	s.LastPauseStartedAt = c.LastPauseStartedAt
}
