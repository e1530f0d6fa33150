package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/skywatchapp/skywatch/internal/astro"
)

// DefaultLocation is used when no location is configured.
var DefaultLocation = astro.Location{
	Name: "Bakersfield, CA",
	Lat:  35.3733,
	Lng:  -119.0187,
}

type AppConfig struct {
	// Location to track.
	Location astro.Location

	// BackfillDays is the synthetic backfill horizon.
	BackfillDays int

	// RecentWindowDays is how many days of records each detection run reads.
	RecentWindowDays int

	// FetchInterval controls how often atmosphere data is refreshed.
	FetchInterval time.Duration

	// DetectionInterval controls how often recording + detection runs.
	DetectionInterval time.Duration

	// AtmosphereRetention bounds the atmosphere history log.
	AtmosphereRetention time.Duration

	// SnapshotPath is the sqlite file holding persisted store snapshots.
	SnapshotPath string

	// Outbound HTTP client timeout.
	HTTPTimeout time.Duration

	Port      string
	LogLevel  string
	LogFormat string
}

// Load reads configuration from environment with sensible defaults.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		log.Printf("INFO: No .env file found or error loading it: %v", err)
	}

	cfg := &AppConfig{}

	cfg.Location = astro.Location{
		Name: getenvDefault("LOCATION_NAME", DefaultLocation.Name),
		Lat:  getenvFloat("LOCATION_LAT", DefaultLocation.Lat),
		Lng:  getenvFloat("LOCATION_LNG", DefaultLocation.Lng),
	}
	if cfg.Location.Lat < -90 || cfg.Location.Lat > 90 {
		return nil, fmt.Errorf("invalid LOCATION_LAT: %f", cfg.Location.Lat)
	}
	if cfg.Location.Lng < -180 || cfg.Location.Lng > 180 {
		return nil, fmt.Errorf("invalid LOCATION_LNG: %f", cfg.Location.Lng)
	}

	cfg.BackfillDays = getenvInt("BACKFILL_DAYS", 90)
	cfg.RecentWindowDays = getenvInt("RECENT_WINDOW_DAYS", 30)

	var err error
	if cfg.FetchInterval, err = getenvDuration("FETCH_INTERVAL", "15m"); err != nil {
		return nil, err
	}
	if cfg.DetectionInterval, err = getenvDuration("DETECTION_INTERVAL", "1h"); err != nil {
		return nil, err
	}
	if cfg.AtmosphereRetention, err = getenvDuration("ATMOSPHERE_RETENTION", "720h"); err != nil {
		return nil, err
	}
	if cfg.HTTPTimeout, err = getenvDuration("HTTP_TIMEOUT", "10s"); err != nil {
		return nil, err
	}

	cfg.SnapshotPath = getenvDefault("SNAPSHOT_DB", "skywatch.db")
	cfg.Port = getenvDefault("PORT", "8080")
	cfg.LogLevel = getenvDefault("LOG_LEVEL", "info")
	cfg.LogFormat = getenvDefault("LOG_FORMAT", "console")

	return cfg, nil
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err == nil {
			return n
		}
	}
	return def
}

func getenvFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err == nil {
			return f
		}
	}
	return def
}

func getenvDuration(key, def string) (time.Duration, error) {
	v := getenvDefault(key, def)
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
