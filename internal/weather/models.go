package weather

import (
	"fmt"
	"time"
)

// Location represents a monitored place. Locations are reference data:
// built once at configuration time (or read from the locations table) and
// never mutated during a run.
type Location struct {
	Name      string  `json:"name" validate:"required"`
	Country   string  `json:"country" validate:"required"`
	Latitude  float64 `json:"latitude" validate:"gte=-90,lte=90"`
	Longitude float64 `json:"longitude" validate:"gte=-180,lte=180"`
	Timezone  string  `json:"timezone" validate:"required"`
}

// Key returns a canonical string key for indexing this location.
func (l Location) Key() string {
	return l.Name + ":" + l.Country
}

// RawObservation is the undecorated per-location API response plus fetch
// metadata. It is produced by the fetcher, consumed once by Transform, and
// then discarded.
type RawObservation struct {
	Location  Location
	FetchedAt time.Time
	Current   CurrentConditions
	Daily     DailyConditions
}

// CurrentConditions mirrors the Open-Meteo `current` block. Optional numeric
// fields are pointers so that absence survives decoding as nil instead of a
// zero value.
type CurrentConditions struct {
	Time          string   `json:"time"`
	Temperature   *float64 `json:"temperature_2m"`
	FeelsLike     *float64 `json:"apparent_temperature"`
	Humidity      *float64 `json:"relative_humidity_2m"`
	Pressure      *float64 `json:"pressure_msl"`
	WindSpeed     *float64 `json:"wind_speed_10m"`
	WindDirection *float64 `json:"wind_direction_10m"`
	Visibility    *float64 `json:"visibility"`
	CloudCover    *float64 `json:"cloud_cover"`
	WeatherCode   *int     `json:"weather_code"`
}

// DailyConditions mirrors the Open-Meteo `daily` block for forecast_days=1.
type DailyConditions struct {
	Sunrise    []string   `json:"sunrise"`
	Sunset     []string   `json:"sunset"`
	UVIndexMax []*float64 `json:"uv_index_max"`
}

// ValidationStatus classifies a record after quality checks.
type ValidationStatus string

const (
	StatusAccepted ValidationStatus = "accepted"
	StatusFlagged  ValidationStatus = "flagged"
	StatusRejected ValidationStatus = "rejected"
)

// WeatherRecord is the canonical, persisted observation shape. It is built
// by Transform, has its validation status attached after quality checks, and
// is then written immutably by the loader. Optional measurements are nil when
// the upstream payload omitted them.
type WeatherRecord struct {
	LocationName       string           `json:"location_name"`
	Country            string           `json:"country"`
	Latitude           float64          `json:"latitude"`
	Longitude          float64          `json:"longitude"`
	Temperature        *float64         `json:"temperature"`
	FeelsLike          *float64         `json:"feels_like"`
	Humidity           *float64         `json:"humidity"`
	Pressure           *float64         `json:"pressure"`
	WindSpeed          *float64         `json:"windspeed"`
	WindDirection      *float64         `json:"winddirection"`
	Visibility         *float64         `json:"visibility"`
	UVIndex            *float64         `json:"uv_index"`
	CloudCover         *float64         `json:"cloud_cover"`
	WeatherCode        *int             `json:"weather_code"`
	WeatherDescription string           `json:"weather_description"`
	Sunrise            *string          `json:"sunrise"`
	Sunset             *string          `json:"sunset"`
	Timezone           string           `json:"timezone"`
	LocalTimestamp     *time.Time       `json:"local_timestamp"`
	UTCTimestamp       *time.Time       `json:"utc_timestamp"`
	ValidationStatus   ValidationStatus `json:"validation_status"`
	ValidationReasons  []string         `json:"validation_reasons,omitempty"`
}

// Key returns the duplicate-detection key: (location_name, utc_timestamp).
// Two records with equal keys converge to at most one stored row.
func (r WeatherRecord) Key() string {
	if r.UTCTimestamp == nil {
		return r.LocationName + "@"
	}
	return r.LocationName + "@" + r.UTCTimestamp.UTC().Format(time.RFC3339)
}

// RunSummary is the single per-run aggregate emitted at the end of every
// pipeline execution, including degraded and failed ones.
type RunSummary struct {
	RunID              string    `json:"run_id"`
	StartTime          time.Time `json:"start_time"`
	EndTime            time.Time `json:"end_time"`
	LocationsAttempted int       `json:"locations_attempted"`
	LocationsSucceeded int       `json:"locations_succeeded"`
	RecordsAccepted    int       `json:"records_accepted"`
	RecordsFlagged     int       `json:"records_flagged"`
	RecordsRejected    int       `json:"records_rejected"`
	RecordsInserted    int       `json:"records_inserted"`
	RecordsSkipped     int       `json:"records_skipped"`
	RecordsFailed      int       `json:"records_failed"`
	Degraded           bool      `json:"degraded"`
	Failed             bool      `json:"failed"`
	Errors             []string  `json:"errors,omitempty"`
}

// weatherCodeDescriptions maps WMO weather codes to human-readable text.
var weatherCodeDescriptions = map[int]string{
	0:  "Clear sky",
	1:  "Mainly clear",
	2:  "Partly cloudy",
	3:  "Overcast",
	45: "Fog",
	48: "Depositing rime fog",
	51: "Light drizzle",
	53: "Moderate drizzle",
	55: "Dense drizzle",
	56: "Light freezing drizzle",
	57: "Dense freezing drizzle",
	61: "Slight rain",
	63: "Moderate rain",
	65: "Heavy rain",
	66: "Light freezing rain",
	67: "Heavy freezing rain",
	71: "Slight snow fall",
	73: "Moderate snow fall",
	75: "Heavy snow fall",
	77: "Snow grains",
	80: "Slight rain showers",
	81: "Moderate rain showers",
	82: "Violent rain showers",
	85: "Slight snow showers",
	86: "Heavy snow showers",
	95: "Thunderstorm",
	96: "Thunderstorm with slight hail",
	99: "Thunderstorm with heavy hail",
}

// DescribeWeatherCode returns the description for a WMO weather code.
func DescribeWeatherCode(code int) string {
	if desc, ok := weatherCodeDescriptions[code]; ok {
		return desc
	}
	return fmt.Sprintf("Unknown (%d)", code)
}
