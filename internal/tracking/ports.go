package tracking

import (
	"context"
	"errors"
	"time"
)

var ErrPermissionDenied = errors.New("location permission denied")

// Tier identifies which location subscription delivered a fix.
type Tier int

const (
	// TierVisual is the high-frequency foreground feed.
	TierVisual Tier = iota
	// TierDurable keeps delivering coarser fixes while the app is suspended.
	TierDurable
)

func (t Tier) String() string {
	if t == TierDurable {
		return "durable"
	}
	return "visual"
}

// DurableConfig throttles the background tier. Both limits are coarser than
// the visual tier's.
type DurableConfig struct {
	MinDistanceMeters float64
	MinInterval       time.Duration
}

// FixHandler receives fixes from one subscription.
type FixHandler func(PositionFix)

// Subscription is an opaque handle returned by the provider.
type Subscription interface {
	Tier() Tier
}

// LocationProvider is the platform location service.
type LocationProvider interface {
	RequestForegroundPermission(ctx context.Context) (bool, error)
	RequestBackgroundPermission(ctx context.Context) (bool, error)
	SubscribeVisual(ctx context.Context, fn FixHandler) (Subscription, error)
	SubscribeDurable(ctx context.Context, cfg DurableConfig, fn FixHandler) (Subscription, error)
	Unsubscribe(sub Subscription) error
}

// Announcer speaks milestone announcements. It may be called again before a
// previous announcement has finished.
type Announcer interface {
	Announce(unit int, elapsedSeconds float64, pace Pace)
}

// SessionSink persists the final record of a stopped session.
type SessionSink interface {
	SaveSession(ctx context.Context, record Record) error
}

// Geocoder resolves a human-readable city for a coordinate.
type Geocoder interface {
	City(ctx context.Context, lat, lon float64) (string, error)
}
