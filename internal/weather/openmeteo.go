package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/sony/gobreaker"
)

const openMeteoBaseURL = "https://api.open-meteo.com/v1/forecast"

// currentFields and dailyFields are the Open-Meteo field lists requested for
// every location.
const (
	currentFields = "temperature_2m,relative_humidity_2m,apparent_temperature," +
		"pressure_msl,wind_speed_10m,wind_direction_10m,cloud_cover,weather_code"
	dailyFields = "sunrise,sunset,uv_index_max"
)

// OpenMeteoClient fetches current conditions from the Open-Meteo API. It
// performs exactly one logical fetch per call; retries and the circuit
// breaker live behind doRequestWithResilience.
type OpenMeteoClient struct {
	baseURL string
	client  *http.Client
	policy  BackoffPolicy
	circuit *gobreaker.CircuitBreaker
	now     func() time.Time
}

// NewOpenMeteoClient creates a client with the given HTTP client and retry
// policy. The HTTP client's timeout bounds each individual attempt.
func NewOpenMeteoClient(client *http.Client, policy BackoffPolicy) *OpenMeteoClient {
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "openmeteo",
		MaxRequests: 5,
		Interval:    1 * time.Minute,
		Timeout:     2 * time.Minute,
	})

	return &OpenMeteoClient{
		baseURL: openMeteoBaseURL,
		client:  client,
		policy:  policy,
		circuit: cb,
		now:     time.Now,
	}
}

// Fetch retrieves the current observation for one location. Failures are
// classified: transport errors, 429 and 5xx are FetchTransient (and retried
// per the policy); undecodable or shape-less payloads are FetchInvalid.
func (c *OpenMeteoClient) Fetch(ctx context.Context, loc Location) (RawObservation, error) {
	if loc.Latitude < -90 || loc.Latitude > 90 || loc.Longitude < -180 || loc.Longitude > 180 {
		return RawObservation{}, &FetchError{
			Kind:     FetchInvalid,
			Location: loc.Name,
			Err:      fmt.Errorf("invalid coordinates (%f, %f)", loc.Latitude, loc.Longitude),
		}
	}

	buildRequest := func() (*http.Request, error) {
		values := url.Values{}
		values.Set("latitude", fmt.Sprintf("%.4f", loc.Latitude))
		values.Set("longitude", fmt.Sprintf("%.4f", loc.Longitude))
		values.Set("current", currentFields)
		values.Set("daily", dailyFields)
		values.Set("timezone", loc.Timezone)
		values.Set("forecast_days", "1")

		u := fmt.Sprintf("%s?%s", c.baseURL, values.Encode())
		return http.NewRequest(http.MethodGet, u, nil)
	}

	resp, err := doRequestWithResilience(ctx, c.client, c.circuit, c.policy, loc, buildRequest)
	if err != nil {
		return RawObservation{}, err
	}
	defer resp.Body.Close()

	var payload struct {
		Current CurrentConditions `json:"current"`
		Daily   DailyConditions   `json:"daily"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return RawObservation{}, &FetchError{Kind: FetchInvalid, Location: loc.Name, Err: err}
	}

	// A response without any current conditions is malformed for our
	// purposes even if it decoded cleanly.
	if payload.Current.Time == "" && payload.Current.Temperature == nil {
		return RawObservation{}, &FetchError{
			Kind:     FetchInvalid,
			Location: loc.Name,
			Err:      fmt.Errorf("response carries no current conditions"),
		}
	}

	return RawObservation{
		Location:  loc,
		FetchedAt: c.now().UTC(),
		Current:   payload.Current,
		Daily:     payload.Daily,
	}, nil
}
