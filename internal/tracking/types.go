package tracking

import (
	"fmt"
	"strings"
	"time"
)

type State string

const (
	StateIdle    State = "idle"
	StateActive  State = "active"
	StatePaused  State = "paused"
	StateStopped State = "stopped"
)

type ActivityType string

const (
	ActivityRun  ActivityType = "run"
	ActivityBike ActivityType = "bike"
	ActivitySwim ActivityType = "swim"
)

// ParseActivityType accepts the lowercase names used on the command line.
func ParseActivityType(s string) (ActivityType, error) {
	switch ActivityType(strings.ToLower(strings.TrimSpace(s))) {
	case ActivityRun:
		return ActivityRun, nil
	case ActivityBike:
		return ActivityBike, nil
	case ActivitySwim:
		return ActivitySwim, nil
	}
	return "", fmt.Errorf("unknown activity type %q", s)
}

// Title is the display form used in generated session names.
func (a ActivityType) Title() string {
	switch a {
	case ActivityBike:
		return "Bike"
	case ActivitySwim:
		return "Swim"
	default:
		return "Run"
	}
}

// PositionFix is a single reported GPS position.
type PositionFix struct {
	Latitude  float64
	Longitude float64
	Timestamp time.Time
}

// Coordinate is a route point as persisted. Fix timestamps are not kept.
type Coordinate struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

func (f PositionFix) Coordinate() Coordinate {
	return Coordinate{Latitude: f.Latitude, Longitude: f.Longitude}
}

// Session is the in-memory state of one tracked workout. It is owned by a
// single Tracker and never mutated elsewhere.
type Session struct {
	State                    State
	ActivityType             ActivityType
	StartedAt                time.Time
	PausedAccumulated        time.Duration
	LastPauseStartedAt       *time.Time
	Route                    []Coordinate
	CumulativeDistanceMeters float64
	AnnouncedUnits           map[int]struct{}
	LastFix                  *PositionFix

	// lastSeen is the timestamp watermark for ordering, advanced by every
	// in-order fix including the ones below the noise floor.
	lastSeen time.Time
	// lastKnown is the most recent device position from any tier, used as
	// the distance reference after resume.
	lastKnown *PositionFix
	splits    []Split
	// finalElapsed freezes the active time once the session is stopped.
	finalElapsed time.Duration
}

func newSession(activityType ActivityType) *Session {
	return &Session{
		State:          StateIdle,
		ActivityType:   activityType,
		AnnouncedUnits: map[int]struct{}{},
	}
}

// Split is one completed distance unit.
type Split struct {
	Unit           int
	ElapsedSeconds float64
	SplitSeconds   float64
	PaceMinPerKm   float64
}

// Record is the final snapshot handed to the persistence sink.
type Record struct {
	Type            ActivityType `json:"type"`
	DurationSeconds float64      `json:"durationSeconds"`
	DistanceMeters  float64      `json:"distanceMeters"`
	PaceMinPerKm    *float64     `json:"paceMinPerKm"`
	Route           []Coordinate `json:"route"`
	StartedCity     string       `json:"startedCity"`
	Feeling         string       `json:"feeling"`
	Name            string       `json:"name"`

	StartedAt time.Time `json:"-"`
	Splits    []Split   `json:"-"`
}

// Announcement is emitted once for every newly completed distance unit.
type Announcement struct {
	Unit    int
	Elapsed time.Duration
	Pace    Pace
}

// Snapshot is what the display sampler reads on every tick.
type Snapshot struct {
	State          State
	ActivityType   ActivityType
	Elapsed        time.Duration
	DistanceMeters float64
	Pace           Pace
	RoutePoints    int
	Frame          ViewportFrame
}
