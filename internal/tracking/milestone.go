package tracking

import (
	"math"
	"time"
)

const (
	DefaultUnitMeters       = 1000.0
	DefaultHysteresisMeters = 10.0
	// NoHysteresis announces a unit as soon as its boundary is reached.
	NoHysteresis = -1.0
)

// MilestoneAnnouncer decides when a whole distance unit has been completed.
// The set of already announced units is passed in and updated by the caller.
// A zero HysteresisMeters selects DefaultHysteresisMeters and a negative one
// disables the margin.
type MilestoneAnnouncer struct {
	UnitMeters       float64
	HysteresisMeters float64
}

func (m MilestoneAnnouncer) unit() float64 {
	if m.UnitMeters <= 0 {
		return DefaultUnitMeters
	}
	return m.UnitMeters
}

func (m MilestoneAnnouncer) hysteresis() float64 {
	switch {
	case m.HysteresisMeters < 0:
		return 0
	case m.HysteresisMeters == 0:
		return DefaultHysteresisMeters
	}
	return m.HysteresisMeters
}

// Check returns the announcement for the current unit if it has just been
// crossed. Nothing is ever announced outside the Active state.
func (m MilestoneAnnouncer) Check(state State, meters float64, announced map[int]struct{}, elapsed time.Duration, pace Pace) (Announcement, bool) {
	if state != StateActive {
		return Announcement{}, false
	}

	unit := m.unit()
	current := int(math.Floor(meters / unit))
	if current <= 0 {
		return Announcement{}, false
	}
	if _, ok := announced[current]; ok {
		return Announcement{}, false
	}
	if meters < float64(current)*unit+m.hysteresis() {
		return Announcement{}, false
	}

	announced[current] = struct{}{}
	return Announcement{Unit: current, Elapsed: elapsed, Pace: pace}, true
}
