package pipeline

import (
	"context"

	"go.uber.org/zap"

	"github.com/i474232898/weather-etl/internal/weather"
)

// Registry resolves the locations a run should process. Active locations are
// read from the store's locations table; on query failure or an empty result
// the configured defaults are used so a broken reference table never stops
// data collection.
type Registry struct {
	store    weather.Store
	defaults []weather.Location
	logger   *zap.Logger
}

// NewRegistry creates a Registry with the given fallback defaults.
func NewRegistry(store weather.Store, defaults []weather.Location, logger *zap.Logger) *Registry {
	return &Registry{
		store:    store,
		defaults: defaults,
		logger:   logger,
	}
}

// Active returns the locations to process for a run.
func (r *Registry) Active(ctx context.Context) []weather.Location {
	locs, err := r.store.ActiveLocations(ctx)
	if err != nil {
		r.logger.Warn("failed to read active locations, using defaults", zap.Error(err))
		return r.defaults
	}
	if len(locs) == 0 {
		r.logger.Warn("no active locations configured in store, using defaults")
		return r.defaults
	}
	return locs
}
