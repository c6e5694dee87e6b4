package tracking

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMilestoneAnnouncerFiresOncePerUnit(t *testing.T) {
	m := MilestoneAnnouncer{}
	announced := map[int]struct{}{}

	var units []int
	for meters := 0.0; meters <= 3400; meters += 7 {
		if a, ok := m.Check(StateActive, meters, announced, time.Duration(meters)*time.Second, Pace{}); ok {
			units = append(units, a.Unit)
		}
	}

	assert.Equal(t, []int{1, 2, 3}, units)
	assert.Len(t, announced, 3)
}

func TestMilestoneAnnouncerHysteresis(t *testing.T) {
	m := MilestoneAnnouncer{UnitMeters: 1000, HysteresisMeters: 10}
	announced := map[int]struct{}{}

	_, ok := m.Check(StateActive, 1000, announced, time.Minute, Pace{})
	assert.False(t, ok, "exactly on the boundary")
	_, ok = m.Check(StateActive, 1009.9, announced, time.Minute, Pace{})
	assert.False(t, ok, "inside hysteresis band")

	a, ok := m.Check(StateActive, 1010, announced, 6*time.Minute, Pace{MinPerKm: 6, Valid: true})
	assert.True(t, ok)
	assert.Equal(t, 1, a.Unit)
	assert.Equal(t, 6*time.Minute, a.Elapsed)
	assert.True(t, a.Pace.Valid)

	_, ok = m.Check(StateActive, 1500, announced, 9*time.Minute, Pace{})
	assert.False(t, ok)
}

func TestMilestoneAnnouncerOnlyWhileActive(t *testing.T) {
	m := MilestoneAnnouncer{}
	for _, st := range []State{StateIdle, StatePaused, StateStopped} {
		announced := map[int]struct{}{}
		_, ok := m.Check(st, 5000, announced, time.Hour, Pace{})
		assert.False(t, ok, st)
		assert.Empty(t, announced)
	}
}

func TestMilestoneAnnouncerMileUnit(t *testing.T) {
	m := MilestoneAnnouncer{UnitMeters: 1609.344, HysteresisMeters: NoHysteresis}
	announced := map[int]struct{}{}

	_, ok := m.Check(StateActive, 1600, announced, time.Minute, Pace{})
	assert.False(t, ok)
	a, ok := m.Check(StateActive, 1610, announced, time.Minute, Pace{})
	assert.True(t, ok)
	assert.Equal(t, 1, a.Unit)
}

func TestMilestoneAnnouncerZeroConfigUsesDefaultHysteresis(t *testing.T) {
	m := MilestoneAnnouncer{}
	announced := map[int]struct{}{}

	_, ok := m.Check(StateActive, 1000+DefaultHysteresisMeters/2, announced, time.Minute, Pace{})
	assert.False(t, ok)
	a, ok := m.Check(StateActive, 1000+DefaultHysteresisMeters, announced, time.Minute, Pace{})
	assert.True(t, ok)
	assert.Equal(t, 1, a.Unit)

	exact := MilestoneAnnouncer{HysteresisMeters: NoHysteresis}
	a, ok = exact.Check(StateActive, 2000, map[int]struct{}{}, time.Minute, Pace{})
	assert.True(t, ok)
	assert.Equal(t, 2, a.Unit)
}
