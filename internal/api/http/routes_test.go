package httpapi

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/weather-etl/internal/store"
	"github.com/i474232898/weather-etl/internal/weather"
)

func seededApp(t *testing.T) (*fiber.App, *store.MemoryStore) {
	t.Helper()

	st := store.NewMemoryStore(0)
	base := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	temp := 18.4

	for _, name := range []string{"London", "Tokyo"} {
		for hour := 0; hour < 3; hour++ {
			utc := base.Add(time.Duration(hour) * time.Hour)
			_, err := st.InsertRecord(context.Background(), weather.WeatherRecord{
				LocationName:     name,
				Country:          "Testland",
				Latitude:         10,
				Longitude:        20,
				Temperature:      &temp,
				UTCTimestamp:     &utc,
				ValidationStatus: weather.StatusAccepted,
			})
			require.NoError(t, err)
		}
	}

	app := fiber.New()
	RegisterRoutes(app, st)
	return app, st
}

func doRequest(t *testing.T, app *fiber.App, url string) (*http.Response, []byte) {
	t.Helper()

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, url, nil))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, body
}

func TestLatestReturnsAllLocations(t *testing.T) {
	app, _ := seededApp(t)

	resp, body := doRequest(t, app, "/api/v1/weather/latest")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var payload struct {
		Records []weather.WeatherRecord `json:"records"`
	}
	require.NoError(t, json.Unmarshal(body, &payload))
	require.Len(t, payload.Records, 2)
	assert.Equal(t, "London", payload.Records[0].LocationName)
}

func TestLatestFiltersByLocation(t *testing.T) {
	app, _ := seededApp(t)

	resp, body := doRequest(t, app, "/api/v1/weather/latest?location=Tokyo")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var rec weather.WeatherRecord
	require.NoError(t, json.Unmarshal(body, &rec))
	assert.Equal(t, "Tokyo", rec.LocationName)
}

func TestLatestUnknownLocation(t *testing.T) {
	app, _ := seededApp(t)

	resp, _ := doRequest(t, app, "/api/v1/weather/latest?location=Atlantis")
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestHistoryReturnsRange(t *testing.T) {
	app, _ := seededApp(t)

	resp, body := doRequest(t, app,
		"/api/v1/weather/history?location=London&from=2024-06-01T10:00:00Z&to=2024-06-01T11:00:00Z")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var payload struct {
		Location string                  `json:"location"`
		Records  []weather.WeatherRecord `json:"records"`
	}
	require.NoError(t, json.Unmarshal(body, &payload))
	assert.Equal(t, "London", payload.Location)
	assert.Len(t, payload.Records, 2)
}

func TestHistoryAcceptsUnixSeconds(t *testing.T) {
	app, _ := seededApp(t)

	from := strconv.FormatInt(time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC).Unix(), 10)
	to := strconv.FormatInt(time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC).Unix(), 10)

	resp, _ := doRequest(t, app,
		"/api/v1/weather/history?location=London&from="+from+"&to="+to)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestHistoryMissingParams(t *testing.T) {
	app, _ := seededApp(t)

	resp, _ := doRequest(t, app, "/api/v1/weather/history?location=London")
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestHistoryInvertedRange(t *testing.T) {
	app, _ := seededApp(t)

	resp, _ := doRequest(t, app,
		"/api/v1/weather/history?location=London&from=2024-06-01T12:00:00Z&to=2024-06-01T10:00:00Z")
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestHistoryEmptyRange(t *testing.T) {
	app, _ := seededApp(t)

	resp, _ := doRequest(t, app,
		"/api/v1/weather/history?location=London&from=2020-01-01T00:00:00Z&to=2020-01-02T00:00:00Z")
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestRunsReturnsRecentSummaries(t *testing.T) {
	app, st := seededApp(t)

	for i := 0; i < 3; i++ {
		require.NoError(t, st.SaveRunSummary(context.Background(), weather.RunSummary{
			RunID:     string(rune('a' + i)),
			StartTime: time.Date(2024, 6, 1, i, 0, 0, 0, time.UTC),
		}))
	}

	resp, body := doRequest(t, app, "/api/v1/runs?limit=2")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var payload struct {
		Runs []weather.RunSummary `json:"runs"`
	}
	require.NoError(t, json.Unmarshal(body, &payload))
	require.Len(t, payload.Runs, 2)
	assert.Equal(t, "c", payload.Runs[0].RunID)
}

func TestRunsRejectsInvalidLimit(t *testing.T) {
	app, _ := seededApp(t)

	for _, limit := range []string{"0", "101", "many"} {
		resp, _ := doRequest(t, app, "/api/v1/runs?limit="+limit)
		assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode, "limit %s", limit)
	}
}
