package activity

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/briangreenhill/pacer/internal/tracking"
	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	// Every connection to :memory: is its own database.
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	svc := NewService(db, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, svc.Migrate(context.Background()))
	return svc
}

func sampleRecord() tracking.Record {
	pace := 5.25
	return tracking.Record{
		Type:            tracking.ActivityRun,
		DurationSeconds: 1575,
		DistanceMeters:  5000,
		PaceMinPerKm:    &pace,
		Route: []tracking.Coordinate{
			{Latitude: 52.3702, Longitude: 4.8952},
			{Latitude: 52.3712, Longitude: 4.8961},
			{Latitude: 52.3731, Longitude: 4.8990},
		},
		StartedCity: "Amsterdam",
		Feeling:     "strong",
		Name:        "Canal loop",
		StartedAt:   time.Date(2024, 4, 2, 6, 45, 0, 0, time.UTC),
		Splits: []tracking.Split{
			{Unit: 1, ElapsedSeconds: 320, SplitSeconds: 320, PaceMinPerKm: 5.33},
			{Unit: 2, ElapsedSeconds: 630, SplitSeconds: 310, PaceMinPerKm: 5.17},
		},
	}
}

func TestServiceSaveAndGet(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)
	rec := sampleRecord()

	require.NoError(t, svc.SaveSession(ctx, rec))

	activities, err := svc.Get(ctx)
	require.NoError(t, err)
	require.Len(t, activities, 1)

	got := activities[0]
	assert.NotEmpty(t, got.ID)
	assert.Equal(t, rec.Name, got.Name)
	assert.Equal(t, rec.Type, got.Type)
	assert.Equal(t, rec.StartedCity, got.StartedCity)
	assert.Equal(t, rec.Feeling, got.Feeling)
	assert.Equal(t, rec.DurationSeconds, got.DurationSeconds)
	assert.Equal(t, rec.DistanceMeters, got.DistanceMeters)
	require.NotNil(t, got.PaceMinPerKm)
	assert.Equal(t, 5.25, *got.PaceMinPerKm)
	assert.True(t, rec.StartedAt.Equal(got.StartedAt))

	require.Len(t, got.Route, 3)
	for i := range rec.Route {
		assert.InDelta(t, rec.Route[i].Latitude, got.Route[i].Latitude, 1e-9)
		assert.InDelta(t, rec.Route[i].Longitude, got.Route[i].Longitude, 1e-9)
	}

	require.Len(t, got.Splits, 2)
	assert.Equal(t, 310.0, got.Splits[1].SplitTime)
	assert.Contains(t, string(got.GPX), "<gpx")

	byID, err := svc.GetByID(ctx, got.ID)
	require.NoError(t, err)
	assert.Equal(t, got.Name, byID.Name)
}

func TestServiceSaveReplacesSameSession(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	rec := sampleRecord()
	require.NoError(t, svc.SaveSession(ctx, rec))
	// Renaming keeps the identity of the session.
	rec.Name = "Canal loop (again)"
	require.NoError(t, svc.SaveSession(ctx, rec))

	activities, err := svc.Get(ctx)
	require.NoError(t, err)
	require.Len(t, activities, 1)
	assert.Equal(t, "Canal loop (again)", activities[0].Name)

	other := sampleRecord()
	other.StartedAt = other.StartedAt.Add(24 * time.Hour)
	require.NoError(t, svc.SaveSession(ctx, other))
	activities, err = svc.Get(ctx)
	require.NoError(t, err)
	assert.Len(t, activities, 2)
}

func TestServiceSaveKeepsEarlierCopyWhenInsertFails(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)
	require.NoError(t, svc.SaveSession(ctx, sampleRecord()))

	_, err := svc.db.ExecContext(ctx, `CREATE TRIGGER reject_insert BEFORE INSERT ON sessions
BEGIN SELECT RAISE(ABORT, 'insert rejected'); END`)
	require.NoError(t, err)

	rec := sampleRecord()
	rec.Name = "Canal loop (renamed)"
	assert.ErrorContains(t, svc.SaveSession(ctx, rec), "insert rejected")

	activities, err := svc.Get(ctx)
	require.NoError(t, err)
	require.Len(t, activities, 1)
	assert.Equal(t, "Canal loop", activities[0].Name)
}

func TestServiceSaveDifferentRouteAddsSession(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)
	require.NoError(t, svc.SaveSession(ctx, sampleRecord()))

	rec := sampleRecord()
	rec.Route = append(rec.Route, tracking.Coordinate{Latitude: 52.3750, Longitude: 4.9010})
	require.NoError(t, svc.SaveSession(ctx, rec))

	activities, err := svc.Get(ctx)
	require.NoError(t, err)
	assert.Len(t, activities, 2)
}

func TestServiceSaveWithoutRouteOrPace(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	rec := tracking.Record{
		Type:            tracking.ActivitySwim,
		DurationSeconds: 1800,
		Route:           []tracking.Coordinate{},
		Name:            "Morning Swim",
		StartedAt:       time.Date(2024, 4, 3, 7, 0, 0, 0, time.UTC),
	}
	require.NoError(t, svc.SaveSession(ctx, rec))

	activities, err := svc.Get(ctx)
	require.NoError(t, err)
	require.Len(t, activities, 1)
	assert.Nil(t, activities[0].PaceMinPerKm)
	assert.Empty(t, activities[0].Route)
	assert.Empty(t, activities[0].Splits)

	frame, err := svc.Frame(ctx, activities[0].ID, tracking.Framer{})
	require.NoError(t, err)
	assert.Equal(t, tracking.ViewportFrame{SpanDegrees: tracking.DefaultFrameMinSpan}, frame)
}

func TestServiceNotFound(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	_, err := svc.GetByID(ctx, "missing")
	assert.ErrorIs(t, err, ErrSessionNotFound)

	_, err = svc.Frame(ctx, "missing", tracking.Framer{})
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestServiceFrame(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)
	require.NoError(t, svc.SaveSession(ctx, sampleRecord()))

	activities, err := svc.Get(ctx)
	require.NoError(t, err)
	require.Len(t, activities, 1)

	frame, err := svc.Frame(ctx, activities[0].ID, tracking.Framer{})
	require.NoError(t, err)
	assert.InDelta(t, (52.3702+52.3731)/2, frame.CenterLatitude, 1e-9)
	assert.InDelta(t, (4.8952+4.8990)/2, frame.CenterLongitude, 1e-9)
	assert.InDelta(t, (4.8990-4.8952)*1.003, frame.SpanDegrees, 1e-9)
}
