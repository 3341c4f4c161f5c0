package weather

import "time"

// Quality thresholds. Temperature bounds reject outright; the rest flag.
const (
	TemperatureMin = -50.0
	TemperatureMax = 60.0
	HumidityMin    = 0.0
	HumidityMax    = 100.0

	// MaxFutureSkew and MaxStaleness bound how far an observation's UTC
	// timestamp may drift from the fetch time before it is flagged.
	MaxFutureSkew = time.Hour
	MaxStaleness  = 24 * time.Hour
)

// Validation reason codes. Multiple reasons may co-occur on one record.
const (
	ReasonTemperatureOutOfRange = "temperature_out_of_range"
	ReasonHumidityOutOfRange    = "humidity_out_of_range"
	ReasonMissingTimestamps     = "missing_timestamps"
	ReasonTimestampInFuture     = "utc_timestamp_in_future"
	ReasonTimestampStale        = "utc_timestamp_stale"
	ReasonMissingIdentity       = "missing_location_identity"
)

// Outcome is the classification of one record: Accepted, Flagged (loaded but
// marked suspect), or Rejected (never loaded). It is a policy result, not an
// error.
type Outcome struct {
	Status  ValidationStatus
	Reasons []string
}

// Validate applies the per-record quality rules independently and combines
// them: any rejecting rule dominates, otherwise any flagging rule marks the
// record Flagged, otherwise it is Accepted. fetchedAt anchors the timestamp
// skew checks; a zero fetchedAt skips them.
func Validate(rec WeatherRecord, fetchedAt time.Time) Outcome {
	var rejected, flagged []string

	if rec.Temperature != nil && (*rec.Temperature < TemperatureMin || *rec.Temperature > TemperatureMax) {
		rejected = append(rejected, ReasonTemperatureOutOfRange)
	}

	if rec.Humidity != nil && (*rec.Humidity < HumidityMin || *rec.Humidity > HumidityMax) {
		flagged = append(flagged, ReasonHumidityOutOfRange)
	}

	if rec.LocalTimestamp == nil && rec.UTCTimestamp == nil {
		rejected = append(rejected, ReasonMissingTimestamps)
	}

	if rec.UTCTimestamp != nil && !fetchedAt.IsZero() {
		ts := rec.UTCTimestamp.UTC()
		if ts.After(fetchedAt.Add(MaxFutureSkew)) {
			flagged = append(flagged, ReasonTimestampInFuture)
		}
		if ts.Before(fetchedAt.Add(-MaxStaleness)) {
			flagged = append(flagged, ReasonTimestampStale)
		}
	}

	if rec.LocationName == "" ||
		rec.Latitude < -90 || rec.Latitude > 90 ||
		rec.Longitude < -180 || rec.Longitude > 180 {
		rejected = append(rejected, ReasonMissingIdentity)
	}

	switch {
	case len(rejected) > 0:
		return Outcome{Status: StatusRejected, Reasons: append(rejected, flagged...)}
	case len(flagged) > 0:
		return Outcome{Status: StatusFlagged, Reasons: flagged}
	default:
		return Outcome{Status: StatusAccepted}
	}
}
