package weather

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fptr(v float64) *float64 { return &v }
func iptr(v int) *int         { return &v }

func testLocation() Location {
	return Location{
		Name:      "London",
		Country:   "United Kingdom",
		Latitude:  51.5074,
		Longitude: -0.1278,
		Timezone:  "+01:00",
	}
}

func TestObservationTimeNaiveLocalWithOffset(t *testing.T) {
	local, utc, err := ObservationTime("2024-06-01T12:00:00", "+01:00")
	require.NoError(t, err)
	require.NotNil(t, local)
	require.NotNil(t, utc)

	assert.Equal(t, "2024-06-01T11:00:00Z", utc.UTC().Format(time.RFC3339))
	assert.Equal(t, 12, local.Hour())
}

func TestObservationTimeMinutePrecision(t *testing.T) {
	_, utc, err := ObservationTime("2024-06-01T12:00", "-05:30")
	require.NoError(t, err)
	require.NotNil(t, utc)
	assert.Equal(t, "2024-06-01T17:30:00Z", utc.UTC().Format(time.RFC3339))
}

func TestObservationTimeExplicitOffsetPassesThrough(t *testing.T) {
	// An explicit offset must be converted exactly once; the location
	// timezone is not applied on top of it.
	_, utc, err := ObservationTime("2024-06-01T12:00:00+02:00", "+05:00")
	require.NoError(t, err)
	require.NotNil(t, utc)
	assert.Equal(t, "2024-06-01T10:00:00Z", utc.UTC().Format(time.RFC3339))
}

func TestObservationTimeUTCPassesThrough(t *testing.T) {
	_, utc, err := ObservationTime("2024-06-01T12:00:00Z", "+01:00")
	require.NoError(t, err)
	require.NotNil(t, utc)
	assert.Equal(t, "2024-06-01T12:00:00Z", utc.UTC().Format(time.RFC3339))
}

func TestObservationTimeEmpty(t *testing.T) {
	local, utc, err := ObservationTime("", "+01:00")
	require.NoError(t, err)
	assert.Nil(t, local)
	assert.Nil(t, utc)
}

func TestObservationTimeUnparseable(t *testing.T) {
	_, _, err := ObservationTime("yesterday at noon", "+01:00")
	assert.Error(t, err)
}

func TestTransformMapsFields(t *testing.T) {
	obs := RawObservation{
		Location:  testLocation(),
		FetchedAt: time.Date(2024, 6, 1, 11, 5, 0, 0, time.UTC),
		Current: CurrentConditions{
			Time:          "2024-06-01T12:00",
			Temperature:   fptr(18.4),
			FeelsLike:     fptr(17.1),
			Humidity:      fptr(62),
			Pressure:      fptr(1013.2),
			WindSpeed:     fptr(11.5),
			WindDirection: fptr(250),
			CloudCover:    fptr(40),
			WeatherCode:   iptr(2),
		},
		Daily: DailyConditions{
			Sunrise:    []string{"2024-06-01T04:46"},
			Sunset:     []string{"2024-06-01T21:08"},
			UVIndexMax: []*float64{fptr(5.2)},
		},
	}

	rec, err := Transform(obs)
	require.NoError(t, err)

	assert.Equal(t, "London", rec.LocationName)
	assert.Equal(t, "United Kingdom", rec.Country)
	assert.InDelta(t, 51.5074, rec.Latitude, 1e-9)
	require.NotNil(t, rec.Temperature)
	assert.InDelta(t, 18.4, *rec.Temperature, 1e-9)
	assert.Equal(t, "Partly cloudy", rec.WeatherDescription)

	require.NotNil(t, rec.UTCTimestamp)
	assert.Equal(t, "2024-06-01T11:00:00Z", rec.UTCTimestamp.UTC().Format(time.RFC3339))
	require.NotNil(t, rec.LocalTimestamp)
	assert.Equal(t, 12, rec.LocalTimestamp.Hour())

	require.NotNil(t, rec.Sunrise)
	assert.Equal(t, "04:46:00", *rec.Sunrise)
	require.NotNil(t, rec.Sunset)
	assert.Equal(t, "21:08:00", *rec.Sunset)
	require.NotNil(t, rec.UVIndex)
	assert.InDelta(t, 5.2, *rec.UVIndex, 1e-9)

	// Not provided by this API.
	assert.Nil(t, rec.Visibility)
}

func TestTransformMissingOptionalFieldsDegradeToNil(t *testing.T) {
	obs := RawObservation{
		Location:  testLocation(),
		FetchedAt: time.Now().UTC(),
		Current: CurrentConditions{
			Time:        "2024-06-01T12:00",
			Temperature: fptr(18.4),
		},
	}

	rec, err := Transform(obs)
	require.NoError(t, err)

	assert.Nil(t, rec.Humidity)
	assert.Nil(t, rec.Pressure)
	assert.Nil(t, rec.WeatherCode)
	assert.Nil(t, rec.Sunrise)
	assert.Nil(t, rec.UVIndex)
	assert.Empty(t, rec.WeatherDescription)
}

func TestTransformMissingPayloadTimeFallsBackToFetchTime(t *testing.T) {
	fetched := time.Date(2024, 6, 1, 9, 30, 0, 0, time.UTC)
	obs := RawObservation{
		Location:  testLocation(),
		FetchedAt: fetched,
		Current:   CurrentConditions{Temperature: fptr(18.4)},
	}

	rec, err := Transform(obs)
	require.NoError(t, err)
	require.NotNil(t, rec.UTCTimestamp)
	assert.True(t, rec.UTCTimestamp.Equal(fetched))
}

func TestTransformMissingLocationNameFails(t *testing.T) {
	loc := testLocation()
	loc.Name = ""
	obs := RawObservation{Location: loc, FetchedAt: time.Now().UTC()}

	_, err := Transform(obs)
	var terr *TransformError
	require.ErrorAs(t, err, &terr)
	assert.Equal(t, TransformMissingRequired, terr.Kind)
	assert.Equal(t, "location_name", terr.Field)
}

func TestTransformOutOfRangeCoordinatesFails(t *testing.T) {
	loc := testLocation()
	loc.Latitude = 123.4
	obs := RawObservation{Location: loc, FetchedAt: time.Now().UTC()}

	_, err := Transform(obs)
	var terr *TransformError
	require.ErrorAs(t, err, &terr)
	assert.Equal(t, TransformUnparseable, terr.Kind)
	assert.Equal(t, "coordinates", terr.Field)
}

func TestTransformUnparseableTimestampFails(t *testing.T) {
	obs := RawObservation{
		Location:  testLocation(),
		FetchedAt: time.Now().UTC(),
		Current:   CurrentConditions{Time: "not-a-time"},
	}

	_, err := Transform(obs)
	var terr *TransformError
	require.ErrorAs(t, err, &terr)
	assert.Equal(t, TransformUnparseable, terr.Kind)
	assert.Equal(t, "timestamp", terr.Field)
}

func TestDescribeWeatherCode(t *testing.T) {
	assert.Equal(t, "Clear sky", DescribeWeatherCode(0))
	assert.Equal(t, "Thunderstorm", DescribeWeatherCode(95))
	assert.Equal(t, "Unknown (42)", DescribeWeatherCode(42))
}
