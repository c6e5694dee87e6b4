package location

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/briangreenhill/pacer/internal/tracking"
	"github.com/tkrajina/gpxgo/gpx"
)

var (
	ErrNoPoints    = errors.New("gpx has no track points")
	ErrNoTimestamp = errors.New("gpx track point without timestamp")
)

type subscription struct {
	tier tracking.Tier
	fn   tracking.FixHandler
	cfg  tracking.DurableConfig
	last *tracking.PositionFix
}

func (s *subscription) Tier() tracking.Tier { return s.tier }

// Permissions simulates the answers of the platform permission prompts.
type Permissions struct {
	DenyForeground bool
	DenyBackground bool
}

// Replay is a location provider that plays back a recorded GPX file. Fixes
// are delivered on the goroutine that calls Play, so calls into the tracker
// stay serialized.
type Replay struct {
	segments [][]tracking.PositionFix
	perms    Permissions
	clock    *Clock
	logger   *slog.Logger

	visual  *subscription
	durable *subscription
}

// Hooks are invoked between GPX track segments, which recording devices
// start on pause and resume.
type Hooks struct {
	SegmentEnd   func()
	SegmentStart func()
}

func NewReplay(g *gpx.GPX, perms Permissions, clock *Clock, logger *slog.Logger) (*Replay, error) {
	var segments [][]tracking.PositionFix
	for _, track := range g.Tracks {
		for _, segment := range track.Segments {
			fixes := make([]tracking.PositionFix, 0, len(segment.Points))
			for _, p := range segment.Points {
				if p.Timestamp.IsZero() {
					return nil, ErrNoTimestamp
				}
				fixes = append(fixes, tracking.PositionFix{
					Latitude:  p.Latitude,
					Longitude: p.Longitude,
					Timestamp: p.Timestamp,
				})
			}
			if len(fixes) > 0 {
				segments = append(segments, fixes)
			}
		}
	}
	if len(segments) == 0 {
		return nil, ErrNoPoints
	}

	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	return &Replay{
		segments: segments,
		perms:    perms,
		clock:    clock,
		logger:   logger,
	}, nil
}

// StartTime is the timestamp of the first recorded fix.
func (r *Replay) StartTime() time.Time {
	return r.segments[0][0].Timestamp
}

func (r *Replay) RequestForegroundPermission(context.Context) (bool, error) {
	return !r.perms.DenyForeground, nil
}

func (r *Replay) RequestBackgroundPermission(context.Context) (bool, error) {
	return !r.perms.DenyBackground, nil
}

func (r *Replay) SubscribeVisual(_ context.Context, fn tracking.FixHandler) (tracking.Subscription, error) {
	if r.perms.DenyForeground {
		return nil, tracking.ErrPermissionDenied
	}
	r.visual = &subscription{tier: tracking.TierVisual, fn: fn}
	return r.visual, nil
}

func (r *Replay) SubscribeDurable(_ context.Context, cfg tracking.DurableConfig, fn tracking.FixHandler) (tracking.Subscription, error) {
	if r.perms.DenyBackground {
		return nil, tracking.ErrPermissionDenied
	}
	r.durable = &subscription{tier: tracking.TierDurable, fn: fn, cfg: cfg}
	return r.durable, nil
}

func (r *Replay) Unsubscribe(sub tracking.Subscription) error {
	switch {
	case sub == nil:
		return nil
	case r.visual != nil && sub == tracking.Subscription(r.visual):
		r.visual = nil
	case r.durable != nil && sub == tracking.Subscription(r.durable):
		r.durable = nil
	default:
		return fmt.Errorf("unknown %s subscription", sub.Tier())
	}
	return nil
}

// Play delivers every recorded fix in order, advancing the clock to each
// fix's timestamp first. It stops early when ctx is cancelled.
func (r *Replay) Play(ctx context.Context, hooks Hooks) error {
	for i, segment := range r.segments {
		if i > 0 && hooks.SegmentStart != nil {
			first := segment[0]
			r.clock.Set(first.Timestamp)
			// The background feed reports where the device is before the
			// user resumes, as it does on a real phone.
			if r.durable != nil {
				r.durable.last = &first
				r.durable.fn(first)
			}
			hooks.SegmentStart()
		}
		for _, fix := range segment {
			if err := ctx.Err(); err != nil {
				return err
			}
			r.clock.Set(fix.Timestamp)
			r.deliver(fix)
		}
		if i < len(r.segments)-1 && hooks.SegmentEnd != nil {
			hooks.SegmentEnd()
		}
	}
	r.logger.Debug("Replay finished", slog.Int("segments", len(r.segments)))
	return nil
}

func (r *Replay) deliver(fix tracking.PositionFix) {
	if r.visual != nil {
		r.visual.fn(fix)
	}
	if r.durable != nil && r.durable.due(fix) {
		r.durable.fn(fix)
	}
}

// due applies the durable tier's coarse distance and interval thresholds.
func (s *subscription) due(fix tracking.PositionFix) bool {
	if s.last != nil {
		if fix.Timestamp.Sub(s.last.Timestamp) < s.cfg.MinInterval {
			return false
		}
		moved := gpx.HaversineDistance(s.last.Latitude, s.last.Longitude, fix.Latitude, fix.Longitude)
		if moved < s.cfg.MinDistanceMeters {
			return false
		}
	}
	f := fix
	s.last = &f
	return true
}
