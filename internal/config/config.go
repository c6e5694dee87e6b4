package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/briangreenhill/pacer/internal/tracking"
)

type Config struct {
	DBPath      string
	Addr        string
	UIDir       string
	LogLevel    slog.Level
	MapboxToken string
	Tracking    TrackingConfig
}

type TrackingConfig struct {
	UnitMeters               float64
	HysteresisMeters         float64
	NoiseFloorMeters         float64
	FramePadding             float64
	FrameMinSpan             float64
	DurableMinDistanceMeters float64
	DurableMinInterval       time.Duration
}

// Load resolves configuration from PACER_* environment variables. Missing or
// invalid values fall back to the defaults.
func Load() Config {
	return Config{
		DBPath:      envOrDefault("PACER_DB_PATH", "pacer.db"),
		Addr:        envOrDefault("PACER_ADDR", ":8222"),
		UIDir:       envOrDefault("PACER_UI_DIR", "./ui"),
		LogLevel:    parseLevel(os.Getenv("PACER_LOG_LEVEL")),
		MapboxToken: strings.TrimSpace(os.Getenv("MAPBOX_TOKEN")),
		Tracking: TrackingConfig{
			UnitMeters:               envOrDefaultPositive("PACER_UNIT_METERS", tracking.DefaultUnitMeters),
			HysteresisMeters:         envOrDefaultNonNegative("PACER_HYSTERESIS_METERS", tracking.DefaultHysteresisMeters),
			NoiseFloorMeters:         envOrDefaultPositive("PACER_NOISE_FLOOR_METERS", tracking.DefaultNoiseFloorMeters),
			FramePadding:             envOrDefaultPositive("PACER_FRAME_PADDING", tracking.DefaultFramePadding),
			FrameMinSpan:             envOrDefaultPositive("PACER_FRAME_MIN_SPAN", tracking.DefaultFrameMinSpan),
			DurableMinDistanceMeters: envOrDefaultPositive("PACER_DURABLE_MIN_DISTANCE_METERS", 25),
			DurableMinInterval:       envOrDefaultDuration("PACER_DURABLE_MIN_INTERVAL", 15*time.Second),
		},
	}
}

// Engine converts the tracking settings for the tracker. A configured
// hysteresis of 0 turns the margin off.
func (t TrackingConfig) Engine() tracking.Config {
	hysteresis := t.HysteresisMeters
	if hysteresis == 0 {
		hysteresis = tracking.NoHysteresis
	}
	return tracking.Config{
		UnitMeters:       t.UnitMeters,
		HysteresisMeters: hysteresis,
		NoiseFloorMeters: t.NoiseFloorMeters,
		Frame:            t.Framer(),
		Durable: tracking.DurableConfig{
			MinDistanceMeters: t.DurableMinDistanceMeters,
			MinInterval:       t.DurableMinInterval,
		},
	}
}

func (t TrackingConfig) Framer() tracking.Framer {
	return tracking.Framer{Padding: t.FramePadding, MinSpan: t.FrameMinSpan}
}

func parseLevel(s string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return slog.LevelInfo
	}
	return level
}

func envOrDefault(key string, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}

func envOrDefaultPositive(key string, fallback float64) float64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil || parsed <= 0 {
		return fallback
	}
	return parsed
}

func envOrDefaultNonNegative(key string, fallback float64) float64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil || parsed < 0 {
		return fallback
	}
	return parsed
}

func envOrDefaultDuration(key string, fallback time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(value)
	if err != nil || parsed <= 0 {
		return fallback
	}
	return parsed
}
