package activity

import (
	"time"

	"github.com/briangreenhill/pacer/internal/tracking"
)

type Split struct {
	Unit      int     `json:"unit"`
	SplitTime float64 `json:"splitTime"`
	Elapsed   float64 `json:"elapsed"`
	Pace      float64 `json:"pace"`
}

// Activity is a saved session as stored and served.
type Activity struct {
	ID        string    `json:"id"`
	StartedAt time.Time `json:"startedAt"`
	Created   time.Time `json:"created"`
	tracking.Record
	Splits []Split `json:"splits"`
	GPX    []byte  `json:"-"`
}

func splitsFrom(in []tracking.Split) []Split {
	splits := make([]Split, 0, len(in))
	for _, s := range in {
		splits = append(splits, Split{
			Unit:      s.Unit,
			SplitTime: s.SplitSeconds,
			Elapsed:   s.ElapsedSeconds,
			Pace:      s.PaceMinPerKm,
		})
	}
	return splits
}
