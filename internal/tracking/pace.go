package tracking

import (
	"fmt"
	"math"
	"time"
)

// Pace is minutes per kilometer. The zero value is "unavailable" and is
// rendered as a placeholder.
type Pace struct {
	MinPerKm float64
	Valid    bool
}

// PaceFrom computes pace from active elapsed time and distance.
func PaceFrom(elapsed time.Duration, meters float64) Pace {
	if elapsed <= 0 || meters <= 0 {
		return Pace{}
	}
	v := (float64(elapsed.Milliseconds()) / 60000) / (meters / 1000)
	if math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
		return Pace{}
	}
	return Pace{MinPerKm: v, Valid: true}
}

// Ptr returns nil for an unavailable pace, for nullable columns and JSON.
func (p Pace) Ptr() *float64 {
	if !p.Valid {
		return nil
	}
	v := p.MinPerKm
	return &v
}

// String formats pace as m:ss, or "--:--" when unavailable.
func (p Pace) String() string {
	if !p.Valid {
		return "--:--"
	}
	total := int(math.Round(p.MinPerKm * 60))
	return fmt.Sprintf("%d:%02d", total/60, total%60)
}
