package tracking

import (
	"context"
	"log/slog"
	"time"
)

// Config tunes the tracking components. Zero values select the defaults; set
// HysteresisMeters to NoHysteresis to announce units exactly on the boundary.
type Config struct {
	UnitMeters       float64
	HysteresisMeters float64
	NoiseFloorMeters float64
	Frame            Framer
	Durable          DurableConfig
}

// StopResult is returned by Stop.
type StopResult struct {
	Accepted bool
	Record   Record
	// SaveErr is the persistence failure, if any. It is not retried.
	SaveErr error
}

// Details are the user-entered fields attached to a record at stop.
type Details struct {
	Name    string
	Feeling string
}

type Option func(*Tracker)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) {
		t.now = now
	}
}

func WithGeocoder(g Geocoder) Option {
	return func(t *Tracker) {
		t.geocoder = g
	}
}

// Tracker is the session state machine. It is not safe for concurrent use:
// callers deliver intents and fixes from a single logical thread.
type Tracker struct {
	provider  LocationProvider
	announcer Announcer
	sink      SessionSink
	geocoder  Geocoder
	logger    *slog.Logger
	now       func() time.Time

	accumulator DistanceAccumulator
	milestones  MilestoneAnnouncer
	framer      Framer
	durable     DurableConfig

	session       *Session
	visual        Subscription
	durableSub    Subscription
	visualAllowed bool
	foreground    bool
}

func NewTracker(provider LocationProvider, announcer Announcer, sink SessionSink, logger *slog.Logger, cfg Config, opts ...Option) *Tracker {
	t := &Tracker{
		provider:    provider,
		announcer:   announcer,
		sink:        sink,
		logger:      logger,
		now:         time.Now,
		accumulator: DistanceAccumulator{NoiseFloorMeters: cfg.NoiseFloorMeters},
		milestones:  MilestoneAnnouncer{UnitMeters: cfg.UnitMeters, HysteresisMeters: cfg.HysteresisMeters},
		framer:      cfg.Frame,
		durable:     cfg.Durable,
		session:     newSession(ActivityRun),
		foreground:  true,
	}
	for _, opt := range opts {
		opt(t)
	}
	if t.logger == nil {
		t.logger = slog.New(slog.DiscardHandler)
	}
	return t
}

func (t *Tracker) State() State {
	return t.session.State
}

// Start moves a fresh session from Idle to Active.
func (t *Tracker) Start(ctx context.Context, activityType ActivityType) bool {
	if !t.allowed("start", StateIdle) {
		return false
	}

	now := t.now()
	s := newSession(activityType)
	s.State = StateActive
	s.StartedAt = now
	t.session = s
	t.foreground = true

	t.subscribe(ctx)

	t.logger.Info("Session started",
		slog.String("type", string(activityType)),
		slog.Bool("gps", t.visualAllowed))
	return true
}

// Pause is a no-op unless the session is Active.
func (t *Tracker) Pause() bool {
	if !t.allowed("pause", StateActive) {
		return false
	}

	s := t.session
	s.setClock(s.clock().Pause(t.now()))
	s.State = StatePaused
	t.release(&t.visual)

	t.logger.Info("Session paused", slog.Duration("elapsed", s.clock().Elapsed(t.now())))
	return true
}

// Resume is a no-op unless the session is Paused. The most recently known
// position becomes the distance reference, so ground covered while paused is
// not counted.
func (t *Tracker) Resume(ctx context.Context) bool {
	if !t.allowed("resume", StatePaused) {
		return false
	}

	s := t.session
	s.setClock(s.clock().Resume(t.now()))
	s.State = StateActive
	if s.lastKnown != nil {
		ref := *s.lastKnown
		s.LastFix = &ref
	}

	if t.visualAllowed && t.visual == nil {
		sub, err := t.provider.SubscribeVisual(ctx, t.handler(TierVisual))
		if err != nil {
			t.logger.Error("Error resubscribing visual feed", slog.Any("error", err))
		} else {
			t.visual = sub
		}
	}

	t.logger.Info("Session resumed", slog.Duration("paused", s.PausedAccumulated))
	return true
}

// Stop finalizes an Active or Paused session, releases both feeds and hands
// the record to the sink. The tracker stays Stopped until Reset.
func (t *Tracker) Stop(ctx context.Context, details Details) StopResult {
	if !t.allowed("stop", StateActive, StatePaused) {
		t.releaseAll()
		return StopResult{}
	}

	now := t.now()
	s := t.session
	s.setClock(s.clock().Resume(now))
	elapsed := s.clock().Elapsed(now)
	s.State = StateStopped
	s.finalElapsed = elapsed
	t.releaseAll()

	record := Record{
		Type:            s.ActivityType,
		DurationSeconds: elapsed.Seconds(),
		DistanceMeters:  s.CumulativeDistanceMeters,
		PaceMinPerKm:    PaceFrom(elapsed, s.CumulativeDistanceMeters).Ptr(),
		Route:           append([]Coordinate(nil), s.Route...),
		StartedCity:     t.startedCity(ctx, s),
		Feeling:         details.Feeling,
		Name:            details.Name,
		StartedAt:       s.StartedAt,
		Splits:          append([]Split(nil), s.splits...),
	}
	if record.Route == nil {
		record.Route = []Coordinate{}
	}
	if record.Name == "" {
		record.Name = DefaultName(s.ActivityType, s.StartedAt)
	}

	t.logger.Info("Session stopped",
		slog.String("name", record.Name),
		slog.Float64("distance_m", record.DistanceMeters),
		slog.Float64("duration_s", record.DurationSeconds))

	result := StopResult{Accepted: true, Record: record}
	if t.sink != nil {
		if err := t.sink.SaveSession(ctx, record); err != nil {
			t.logger.Error("Error saving session", slog.Any("error", err))
			result.SaveErr = err
		}
	}
	return result
}

// Reset discards a Stopped session and prepares a new Idle one.
func (t *Tracker) Reset() bool {
	if !t.allowed("reset", StateStopped) {
		return false
	}
	t.session = newSession(t.session.ActivityType)
	return true
}

// SetForeground selects the distance source: the visual tier while the app is
// visible, the durable tier while it is suspended.
func (t *Tracker) SetForeground(foreground bool) {
	if t.foreground == foreground {
		return
	}
	t.foreground = foreground
	t.logger.Debug("Distance source changed", slog.String("tier", t.activeTier().String()))
}

func (t *Tracker) Snapshot() Snapshot {
	s := t.session
	elapsed := s.clock().Elapsed(t.now())
	if s.State == StateStopped {
		elapsed = s.finalElapsed
	}
	return Snapshot{
		State:          s.State,
		ActivityType:   s.ActivityType,
		Elapsed:        elapsed,
		DistanceMeters: s.CumulativeDistanceMeters,
		Pace:           PaceFrom(elapsed, s.CumulativeDistanceMeters),
		RoutePoints:    len(s.Route),
		Frame:          t.framer.Frame(s.Route),
	}
}

// Session returns a copy of the current session.
func (t *Tracker) Session() Session {
	s := *t.session
	s.Route = append([]Coordinate(nil), t.session.Route...)
	s.AnnouncedUnits = make(map[int]struct{}, len(t.session.AnnouncedUnits))
	for u := range t.session.AnnouncedUnits {
		s.AnnouncedUnits[u] = struct{}{}
	}
	s.splits = append([]Split(nil), t.session.splits...)
	return s
}

func (t *Tracker) allowed(intent string, from ...State) bool {
	for _, st := range from {
		if t.session.State == st {
			return true
		}
	}
	t.logger.Debug("Ignoring invalid transition",
		slog.String("intent", intent),
		slog.String("state", string(t.session.State)))
	return false
}

func (t *Tracker) activeTier() Tier {
	if t.foreground {
		return TierVisual
	}
	return TierDurable
}

func (t *Tracker) subscribe(ctx context.Context) {
	t.visualAllowed = false
	if t.provider == nil {
		return
	}

	granted, err := t.provider.RequestForegroundPermission(ctx)
	if err != nil || !granted {
		t.logger.Warn("Location permission denied, tracking without GPS", slog.Any("error", err))
		return
	}
	t.visualAllowed = true

	sub, err := t.provider.SubscribeVisual(ctx, t.handler(TierVisual))
	if err != nil {
		t.logger.Error("Error subscribing visual feed", slog.Any("error", err))
	} else {
		t.visual = sub
	}

	granted, err = t.provider.RequestBackgroundPermission(ctx)
	if err != nil || !granted {
		t.logger.Warn("Background location unavailable", slog.Any("error", err))
		return
	}
	sub, err = t.provider.SubscribeDurable(ctx, t.durable, t.handler(TierDurable))
	if err != nil {
		t.logger.Warn("Error subscribing durable feed", slog.Any("error", err))
		return
	}
	t.durableSub = sub
}

func (t *Tracker) release(sub *Subscription) {
	if *sub == nil {
		return
	}
	if t.provider != nil {
		if err := t.provider.Unsubscribe(*sub); err != nil {
			t.logger.Warn("Error unsubscribing feed",
				slog.String("tier", (*sub).Tier().String()),
				slog.Any("error", err))
		}
	}
	*sub = nil
}

func (t *Tracker) releaseAll() {
	t.release(&t.visual)
	t.release(&t.durableSub)
}

func (t *Tracker) handler(tier Tier) FixHandler {
	return func(fix PositionFix) {
		t.HandleFix(tier, fix)
	}
}

// HandleFix applies a fix delivered by the given tier. Only the active
// distance source reaches the accumulator, so a real-world position reported
// by both tiers is counted once.
func (t *Tracker) HandleFix(tier Tier, fix PositionFix) {
	s := t.session
	if s.State != StateActive && s.State != StatePaused {
		return
	}
	if s.lastKnown == nil || fix.Timestamp.After(s.lastKnown.Timestamp) {
		known := fix
		s.lastKnown = &known
	}
	if s.State == StatePaused || tier != t.activeTier() {
		return
	}

	odo, _, verdict := t.accumulator.Accept(Odometer{
		Meters:    s.CumulativeDistanceMeters,
		Reference: s.LastFix,
		Watermark: s.lastSeen,
	}, fix)
	if verdict == FixOutOfOrder {
		t.logger.Debug("Dropping out of order fix", slog.Time("timestamp", fix.Timestamp))
		return
	}
	s.CumulativeDistanceMeters = odo.Meters
	s.LastFix = odo.Reference
	s.lastSeen = odo.Watermark
	s.Route = append(s.Route, fix.Coordinate())

	if verdict != FixCounted {
		return
	}

	elapsed := s.clock().Elapsed(t.now())
	pace := PaceFrom(elapsed, s.CumulativeDistanceMeters)
	a, ok := t.milestones.Check(s.State, s.CumulativeDistanceMeters, s.AnnouncedUnits, elapsed, pace)
	if !ok {
		return
	}
	t.recordSplit(a)
	if t.announcer != nil {
		t.announcer.Announce(a.Unit, a.Elapsed.Seconds(), a.Pace)
	}
}

func (t *Tracker) recordSplit(a Announcement) {
	s := t.session
	split := Split{Unit: a.Unit, ElapsedSeconds: a.Elapsed.Seconds(), SplitSeconds: a.Elapsed.Seconds()}
	prevUnit := 0
	if n := len(s.splits); n > 0 {
		prev := s.splits[n-1]
		prevUnit = prev.Unit
		split.SplitSeconds -= prev.ElapsedSeconds
	}
	if km := float64(a.Unit-prevUnit) * t.milestones.unit() / 1000; km > 0 && split.SplitSeconds > 0 {
		split.PaceMinPerKm = split.SplitSeconds / 60 / km
	}
	s.splits = append(s.splits, split)
	t.logger.Info("Milestone reached",
		slog.Int("unit", a.Unit),
		slog.Float64("elapsed_s", split.ElapsedSeconds),
		slog.String("pace", a.Pace.String()))
}

func (t *Tracker) startedCity(ctx context.Context, s *Session) string {
	if t.geocoder == nil || len(s.Route) == 0 {
		return ""
	}
	start := s.Route[0]
	city, err := t.geocoder.City(ctx, start.Latitude, start.Longitude)
	if err != nil {
		t.logger.Warn("Error resolving start city", slog.Any("error", err))
		return ""
	}
	return city
}

// DefaultName names a session after the time of day it started.
func DefaultName(activityType ActivityType, startedAt time.Time) string {
	hour := startedAt.Hour()
	switch {
	case hour >= 18:
		return "Night " + activityType.Title()
	case hour >= 12:
		return "Afternoon " + activityType.Title()
	default:
		return "Morning " + activityType.Title()
	}
}
