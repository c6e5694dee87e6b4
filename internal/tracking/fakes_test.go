package tracking

import (
	"context"
	"errors"
	"sync"
	"time"
)

type fakeSub struct {
	tier Tier
	id   int
}

func (s *fakeSub) Tier() Tier { return s.tier }

type fakeProvider struct {
	denyForeground  bool
	denyBackground  bool
	failDurable     bool
	failUnsubscribe bool

	nextID       int
	visual       FixHandler
	durable      FixHandler
	visualSub    *fakeSub
	durableSub   *fakeSub
	durableCfg   DurableConfig
	unsubscribed []Tier
}

func (p *fakeProvider) RequestForegroundPermission(context.Context) (bool, error) {
	return !p.denyForeground, nil
}

func (p *fakeProvider) RequestBackgroundPermission(context.Context) (bool, error) {
	return !p.denyBackground, nil
}

func (p *fakeProvider) SubscribeVisual(_ context.Context, fn FixHandler) (Subscription, error) {
	p.nextID++
	p.visual = fn
	p.visualSub = &fakeSub{tier: TierVisual, id: p.nextID}
	return p.visualSub, nil
}

func (p *fakeProvider) SubscribeDurable(_ context.Context, cfg DurableConfig, fn FixHandler) (Subscription, error) {
	if p.failDurable {
		return nil, errors.New("background service unavailable")
	}
	p.nextID++
	p.durable = fn
	p.durableCfg = cfg
	p.durableSub = &fakeSub{tier: TierDurable, id: p.nextID}
	return p.durableSub, nil
}

func (p *fakeProvider) Unsubscribe(sub Subscription) error {
	p.unsubscribed = append(p.unsubscribed, sub.Tier())
	switch sub.Tier() {
	case TierVisual:
		p.visual = nil
		p.visualSub = nil
	case TierDurable:
		p.durable = nil
		p.durableSub = nil
	}
	if p.failUnsubscribe {
		return errors.New("unsubscribe failed")
	}
	return nil
}

// emit delivers the same fix on every live subscription, as a platform does.
func (p *fakeProvider) emit(fix PositionFix) {
	if p.visual != nil {
		p.visual(fix)
	}
	if p.durable != nil {
		p.durable(fix)
	}
}

type announcement struct {
	unit    int
	elapsed float64
	pace    Pace
}

type recordingAnnouncer struct {
	mu    sync.Mutex
	calls []announcement
}

func (a *recordingAnnouncer) Announce(unit int, elapsedSeconds float64, pace Pace) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.calls = append(a.calls, announcement{unit: unit, elapsed: elapsedSeconds, pace: pace})
}

func (a *recordingAnnouncer) units() []int {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]int, 0, len(a.calls))
	for _, c := range a.calls {
		out = append(out, c.unit)
	}
	return out
}

type recordingSink struct {
	records []Record
	err     error
}

func (s *recordingSink) SaveSession(_ context.Context, r Record) error {
	s.records = append(s.records, r)
	return s.err
}

type staticGeocoder string

func (g staticGeocoder) City(context.Context, float64, float64) (string, error) {
	return string(g), nil
}

// manualClock is advanced explicitly by tests.
type manualClock struct {
	t time.Time
}

func newManualClock() *manualClock {
	return &manualClock{t: time.Date(2024, 5, 4, 7, 30, 0, 0, time.UTC)}
}

func (c *manualClock) Now() time.Time { return c.t }

func (c *manualClock) Advance(d time.Duration) time.Time {
	c.t = c.t.Add(d)
	return c.t
}

// metersNorth returns the latitude reached by moving m meters north of lat.
func metersNorth(lat, m float64) float64 {
	return lat + m/111194.93
}
