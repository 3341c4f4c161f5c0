package weather

import (
	"fmt"
	"regexp"
	"strconv"
	"time"
)

// Accepted observation timestamp layouts. Open-Meteo returns minute-precision
// ISO8601 local times when a timezone is requested; explicit-offset forms
// occur when the API is asked for UTC.
var naiveLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
}

var fixedOffsetRe = regexp.MustCompile(`^([+-])(\d{2}):(\d{2})$`)

// loadZone resolves a location timezone. It accepts IANA names
// ("Europe/London") and fixed offsets ("+01:00", "-05:30").
func loadZone(name string) (*time.Location, error) {
	if name == "" {
		return time.UTC, nil
	}
	if m := fixedOffsetRe.FindStringSubmatch(name); m != nil {
		hours, _ := strconv.Atoi(m[2])
		mins, _ := strconv.Atoi(m[3])
		offset := hours*3600 + mins*60
		if m[1] == "-" {
			offset = -offset
		}
		return time.FixedZone(name, offset), nil
	}
	return time.LoadLocation(name)
}

// ObservationTime parses a raw observation timestamp into local and UTC
// forms. Times carrying an explicit offset or Z pass through (converted to
// UTC once); naive times are interpreted in the location's zone and converted
// exactly once. An empty raw value yields nil times and no error.
func ObservationTime(raw, timezone string) (local, utc *time.Time, err error) {
	if raw == "" {
		return nil, nil, nil
	}

	if t, perr := time.Parse(time.RFC3339, raw); perr == nil {
		u := t.UTC()
		return &t, &u, nil
	}

	zone, zerr := loadZone(timezone)
	if zerr != nil {
		return nil, nil, fmt.Errorf("unknown timezone %q: %w", timezone, zerr)
	}

	for _, layout := range naiveLayouts {
		if t, perr := time.ParseInLocation(layout, raw, zone); perr == nil {
			u := t.UTC()
			return &t, &u, nil
		}
	}

	return nil, nil, fmt.Errorf("unrecognized timestamp %q", raw)
}

// Transform maps a raw observation into the canonical record. Optional fields
// absent from the payload degrade to nil; a required field that cannot be
// produced (location identity, coordinates, at least one timestamp) fails the
// whole record with a TransformError.
func Transform(obs RawObservation) (WeatherRecord, error) {
	loc := obs.Location

	if loc.Name == "" {
		return WeatherRecord{}, &TransformError{Kind: TransformMissingRequired, Field: "location_name"}
	}
	if loc.Latitude < -90 || loc.Latitude > 90 || loc.Longitude < -180 || loc.Longitude > 180 {
		return WeatherRecord{}, &TransformError{
			Kind:  TransformUnparseable,
			Field: "coordinates",
			Err:   fmt.Errorf("out of range (%f, %f)", loc.Latitude, loc.Longitude),
		}
	}

	local, utc, err := ObservationTime(obs.Current.Time, loc.Timezone)
	if err != nil {
		return WeatherRecord{}, &TransformError{Kind: TransformUnparseable, Field: "timestamp", Err: err}
	}
	if local == nil && utc == nil {
		// Payload carried no observation time; fall back to the fetch time
		// the way the upstream did before it exposed `current.time`.
		if obs.FetchedAt.IsZero() {
			return WeatherRecord{}, &TransformError{Kind: TransformMissingRequired, Field: "timestamp"}
		}
		u := obs.FetchedAt.UTC()
		utc = &u
		local = &u
	}

	rec := WeatherRecord{
		LocationName:   loc.Name,
		Country:        loc.Country,
		Latitude:       loc.Latitude,
		Longitude:      loc.Longitude,
		Temperature:    obs.Current.Temperature,
		FeelsLike:      obs.Current.FeelsLike,
		Humidity:       obs.Current.Humidity,
		Pressure:       obs.Current.Pressure,
		WindSpeed:      obs.Current.WindSpeed,
		WindDirection:  obs.Current.WindDirection,
		Visibility:     obs.Current.Visibility,
		CloudCover:     obs.Current.CloudCover,
		WeatherCode:    obs.Current.WeatherCode,
		Timezone:       loc.Timezone,
		LocalTimestamp: local,
		UTCTimestamp:   utc,
	}

	if rec.WeatherCode != nil {
		rec.WeatherDescription = DescribeWeatherCode(*rec.WeatherCode)
	}

	if len(obs.Daily.UVIndexMax) > 0 {
		rec.UVIndex = obs.Daily.UVIndexMax[0]
	}
	if len(obs.Daily.Sunrise) > 0 {
		rec.Sunrise = clockTime(obs.Daily.Sunrise[0], loc.Timezone)
	}
	if len(obs.Daily.Sunset) > 0 {
		rec.Sunset = clockTime(obs.Daily.Sunset[0], loc.Timezone)
	}

	return rec, nil
}

// clockTime extracts an HH:MM:SS wall-clock string from a daily timestamp.
// Unparseable values degrade to nil; sunrise and sunset are optional.
func clockTime(raw, timezone string) *string {
	local, _, err := ObservationTime(raw, timezone)
	if err != nil || local == nil {
		return nil
	}
	s := local.Format("15:04:05")
	return &s
}
