package tracking

import (
	"math"
	"time"

	"github.com/tkrajina/gpxgo/gpx"
)

const DefaultNoiseFloorMeters = 1.0

type FixVerdict int

const (
	// FixReference means the fix became the first reference point.
	FixReference FixVerdict = iota
	// FixCounted means the delta was added to the distance.
	FixCounted
	// FixBelowFloor means the movement was jitter and the fix was ignored.
	FixBelowFloor
	// FixOutOfOrder means the fix was older than, or as old as, one already seen.
	FixOutOfOrder
)

func (v FixVerdict) String() string {
	switch v {
	case FixReference:
		return "reference"
	case FixCounted:
		return "counted"
	case FixBelowFloor:
		return "below_floor"
	case FixOutOfOrder:
		return "out_of_order"
	}
	return "unknown"
}

// Odometer is the distance-related slice of a Session, passed by value.
type Odometer struct {
	Meters    float64
	Reference *PositionFix
	Watermark time.Time
}

// DistanceAccumulator turns fixes into cumulative distance. It holds only
// configuration; the running totals live in the Odometer it is given.
type DistanceAccumulator struct {
	NoiseFloorMeters float64
}

// Accept applies fix to o and returns the updated odometer, the distance
// added and what happened to the fix.
func (a DistanceAccumulator) Accept(o Odometer, fix PositionFix) (Odometer, float64, FixVerdict) {
	if o.Reference != nil && fix.Timestamp.Before(o.Reference.Timestamp) {
		return o, 0, FixOutOfOrder
	}
	if !o.Watermark.IsZero() && !fix.Timestamp.After(o.Watermark) {
		return o, 0, FixOutOfOrder
	}
	o.Watermark = fix.Timestamp

	if o.Reference == nil {
		ref := fix
		o.Reference = &ref
		return o, 0, FixReference
	}

	floor := a.NoiseFloorMeters
	if floor <= 0 {
		floor = DefaultNoiseFloorMeters
	}

	delta := gpx.HaversineDistance(o.Reference.Latitude, o.Reference.Longitude, fix.Latitude, fix.Longitude)
	if delta <= floor || math.IsNaN(delta) {
		return o, 0, FixBelowFloor
	}

	ref := fix
	o.Reference = &ref
	o.Meters += delta
	return o, delta, FixCounted
}
