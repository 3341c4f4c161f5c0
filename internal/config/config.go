package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/i474232898/weather-etl/internal/weather"
)

var validate = validator.New()

// AppConfig is the explicit configuration structure handed to the pipeline's
// entry point. Nothing here is module-level mutable state.
type AppConfig struct {
	// DatabaseURL is the PostgreSQL connection string. Empty selects the
	// in-memory store (local development without a database).
	DatabaseURL string

	// FetchInterval controls how often a full run executes.
	FetchInterval time.Duration

	// HTTPTimeout bounds each individual upstream request attempt.
	HTTPTimeout time.Duration

	// LocationTimeout bounds one location's fetch including retries.
	LocationTimeout time.Duration

	// RunTimeout bounds one complete pipeline run.
	RunTimeout time.Duration

	// Backoff is the per-location retry policy.
	Backoff weather.BackoffPolicy

	// MinFetchSuccess is the minimum fraction of locations that must fetch
	// successfully before a run is marked degraded.
	MinFetchSuccess float64

	// Locations is the fallback location list used when the locations table
	// is unavailable or empty.
	Locations []weather.Location

	Port string
}

// Load reads configuration from environment with sensible defaults.
func Load() (*AppConfig, error) {
	cfg := &AppConfig{}

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	cfg.Port = getenvDefault("PORT", "8080")

	var err error
	if cfg.FetchInterval, err = getenvDuration("FETCH_INTERVAL", "1h"); err != nil {
		return nil, err
	}
	if cfg.HTTPTimeout, err = getenvDuration("HTTP_TIMEOUT", "10s"); err != nil {
		return nil, err
	}
	if cfg.LocationTimeout, err = getenvDuration("LOCATION_TIMEOUT", "30s"); err != nil {
		return nil, err
	}
	if cfg.RunTimeout, err = getenvDuration("RUN_TIMEOUT", "5m"); err != nil {
		return nil, err
	}

	cfg.Backoff = weather.DefaultBackoff()
	cfg.Backoff.MaxAttempts = getenvInt("FETCH_MAX_ATTEMPTS", cfg.Backoff.MaxAttempts)
	if cfg.Backoff.BaseDelay, err = getenvDuration("FETCH_BACKOFF_BASE", "1s"); err != nil {
		return nil, err
	}

	if cfg.MinFetchSuccess, err = getenvFloat("MIN_FETCH_SUCCESS", 0.5); err != nil {
		return nil, err
	}
	if cfg.MinFetchSuccess < 0 || cfg.MinFetchSuccess > 1 {
		return nil, fmt.Errorf("MIN_FETCH_SUCCESS must be within [0,1], got %f", cfg.MinFetchSuccess)
	}

	locs, err := loadLocations()
	if err != nil {
		return nil, err
	}
	cfg.Locations = locs

	return cfg, nil
}

// loadLocations reads WEATHER_LOCATIONS (a JSON array of locations) or falls
// back to the default set. Every location must carry a name, a timezone, and
// in-range coordinates.
func loadLocations() ([]weather.Location, error) {
	raw := os.Getenv("WEATHER_LOCATIONS")
	if raw == "" {
		return DefaultLocations(), nil
	}

	var locs []weather.Location
	if err := json.Unmarshal([]byte(raw), &locs); err != nil {
		return nil, fmt.Errorf("invalid WEATHER_LOCATIONS: %w", err)
	}
	if len(locs) == 0 {
		return nil, fmt.Errorf("WEATHER_LOCATIONS must not be empty")
	}
	for _, loc := range locs {
		if err := validate.Struct(loc); err != nil {
			return nil, fmt.Errorf("invalid location %q: %w", loc.Name, err)
		}
	}
	return locs, nil
}

// DefaultLocations returns the built-in monitored cities.
func DefaultLocations() []weather.Location {
	return []weather.Location{
		{Name: "London", Country: "United Kingdom", Latitude: 51.5074, Longitude: -0.1278, Timezone: "Europe/London"},
		{Name: "New York", Country: "United States", Latitude: 40.7128, Longitude: -74.0060, Timezone: "America/New_York"},
		{Name: "Tokyo", Country: "Japan", Latitude: 35.6762, Longitude: 139.6503, Timezone: "Asia/Tokyo"},
		{Name: "Sydney", Country: "Australia", Latitude: -33.8688, Longitude: 151.2093, Timezone: "Australia/Sydney"},
		{Name: "Paris", Country: "France", Latitude: 48.8566, Longitude: 2.3522, Timezone: "Europe/Paris"},
	}
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

func getenvFloat(key string, def float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return f, nil
}

func getenvDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(getenvDefault(key, def))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
