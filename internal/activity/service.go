package activity

import (
	"bytes"
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/gob"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/briangreenhill/pacer/internal/tracking"
	"github.com/google/uuid"
	"github.com/tkrajina/gpxgo/gpx"
)

var ErrSessionNotFound = errors.New("session not found")

const schema = `
CREATE TABLE IF NOT EXISTS sessions (
id TEXT PRIMARY KEY,
name TEXT,
type TEXT,
started_at TIMESTAMP,
started_city TEXT,
feeling TEXT,
duration_seconds REAL,
distance_meters REAL,
pace_min_per_km REAL,
route_gpx BLOB,
route_hash TEXT UNIQUE,
splits BLOB,
created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP)`

// Service stores finished sessions in SQLite. It is the tracker's sink.
type Service struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewService(db *sql.DB, logger *slog.Logger) *Service {
	return &Service{
		db:     db,
		logger: logger,
	}
}

func (a *Service) Migrate(ctx context.Context) error {
	if _, err := a.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("creating sessions table: %w", err)
	}
	return nil
}

// SaveSession stores a record. Saving the same session again replaces it.
func (a *Service) SaveSession(ctx context.Context, record tracking.Record) error {
	routeGPX, err := encodeRoute(record)
	if err != nil {
		return fmt.Errorf("encoding route: %w", err)
	}

	var buffer bytes.Buffer
	enc := gob.NewEncoder(&buffer)
	if err := enc.Encode(splitsFrom(record.Splits)); err != nil {
		return err
	}

	var pace sql.NullFloat64
	if record.PaceMinPerKm != nil {
		pace = sql.NullFloat64{Float64: *record.PaceMinPerKm, Valid: true}
	}

	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	hash := sessionHash(record)
	res, err := tx.ExecContext(ctx, "DELETE FROM sessions WHERE route_hash = ?", hash)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n > 0 {
		a.logger.Info("Replacing existing session", slog.String("hash", hash))
	}

	id := uuid.NewString()
	res, err = tx.ExecContext(ctx, `
    INSERT INTO sessions
    (id,
    name,
    type,
    started_at,
    started_city,
    feeling,
    duration_seconds,
    distance_meters,
    pace_min_per_km,
    route_gpx,
    route_hash,
    splits)
    VALUES
    (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id,
		record.Name,
		string(record.Type),
		record.StartedAt.UTC(),
		record.StartedCity,
		record.Feeling,
		record.DurationSeconds,
		record.DistanceMeters,
		pace,
		routeGPX,
		hash,
		buffer.Bytes(),
	)
	if err != nil {
		return err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}

	if affected != 1 {
		return fmt.Errorf("expected 1 row to be affected, got %d", affected)
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	a.logger.Info("Saved session", slog.String("id", id), slog.String("name", record.Name))
	return nil
}

const selectColumns = `SELECT id, name, type, started_at, started_city, feeling, duration_seconds,
distance_meters, pace_min_per_km, route_gpx, splits, created_at FROM sessions`

func (a *Service) Get(ctx context.Context) ([]Activity, error) {
	rows, err := a.db.QueryContext(ctx, selectColumns+" ORDER BY started_at")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	activities := []Activity{}
	for rows.Next() {
		activity, err := scanActivity(rows)
		if err != nil {
			return nil, err
		}
		activities = append(activities, activity)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return activities, nil
}

func (a *Service) GetByID(ctx context.Context, id string) (Activity, error) {
	row := a.db.QueryRowContext(ctx, selectColumns+" WHERE id = ?", id)
	activity, err := scanActivity(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Activity{}, ErrSessionNotFound
	}
	return activity, err
}

// Frame computes the map viewport of a stored session's route.
func (a *Service) Frame(ctx context.Context, id string, framer tracking.Framer) (tracking.ViewportFrame, error) {
	activity, err := a.GetByID(ctx, id)
	if err != nil {
		return tracking.ViewportFrame{}, err
	}
	return framer.Frame(activity.Route), nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanActivity(s scanner) (Activity, error) {
	var (
		activity     Activity
		activityType string
		pace         sql.NullFloat64
		splitsVal    []byte
	)
	if err := s.Scan(
		&activity.ID,
		&activity.Name,
		&activityType,
		&activity.StartedAt,
		&activity.StartedCity,
		&activity.Feeling,
		&activity.DurationSeconds,
		&activity.DistanceMeters,
		&pace,
		&activity.GPX,
		&splitsVal,
		&activity.Created,
	); err != nil {
		return Activity{}, err
	}

	activity.Type = tracking.ActivityType(activityType)
	activity.Record.StartedAt = activity.StartedAt
	if pace.Valid {
		v := pace.Float64
		activity.PaceMinPerKm = &v
	}

	route, err := decodeRoute(activity.GPX)
	if err != nil {
		return Activity{}, fmt.Errorf("decoding route of %s: %w", activity.ID, err)
	}
	activity.Route = route

	var splits []Split
	dec := gob.NewDecoder(bytes.NewBuffer(splitsVal))
	if err := dec.Decode(&splits); err != nil {
		return Activity{}, err
	}
	if splits == nil {
		splits = []Split{}
	}
	activity.Splits = splits

	return activity, nil
}

func encodeRoute(record tracking.Record) ([]byte, error) {
	segment := gpx.GPXTrackSegment{}
	for _, c := range record.Route {
		segment.Points = append(segment.Points, gpx.GPXPoint{
			Point: gpx.Point{Latitude: c.Latitude, Longitude: c.Longitude},
		})
	}

	g := gpx.GPX{
		Name:    record.Name,
		Creator: "pacer",
		Tracks: []gpx.GPXTrack{{
			Name:     record.Name,
			Type:     string(record.Type),
			Segments: []gpx.GPXTrackSegment{segment},
		}},
	}
	return g.ToXml(gpx.ToXmlParams{Version: "1.1", Indent: true})
}

func decodeRoute(routeGPX []byte) ([]tracking.Coordinate, error) {
	g, err := gpx.ParseBytes(routeGPX)
	if err != nil {
		return nil, err
	}

	route := []tracking.Coordinate{}
	for _, track := range g.Tracks {
		for _, segment := range track.Segments {
			for _, p := range segment.Points {
				route = append(route, tracking.Coordinate{Latitude: p.Latitude, Longitude: p.Longitude})
			}
		}
	}
	return route, nil
}

// sessionHash identifies a session by its start, type and route
// coordinates, so a replayed or renamed recording replaces its earlier copy.
func sessionHash(record tracking.Record) string {
	h := sha256.New()
	for _, c := range record.Route {
		fmt.Fprintf(h, "%.7f,%.7f;", c.Latitude, c.Longitude)
	}
	h.Write([]byte(record.StartedAt.UTC().Format(time.RFC3339Nano)))
	h.Write([]byte(record.Type))
	return hex.EncodeToString(h.Sum(nil))
}
