package weather

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"time"

	"github.com/sony/gobreaker"
)

// BackoffPolicy is the explicit retry policy wrapping a location fetch:
// MaxAttempts bounds the total number of tries, delays grow by Factor from
// BaseDelay and are capped at MaxDelay.
type BackoffPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	Factor      float64
}

// DefaultBackoff returns the standard policy: 3 attempts, 1s base, factor 2.
func DefaultBackoff() BackoffPolicy {
	return BackoffPolicy{
		MaxAttempts: 3,
		BaseDelay:   time.Second,
		MaxDelay:    30 * time.Second,
		Factor:      2,
	}
}

// Delay returns the backoff delay after the given zero-based attempt.
func (p BackoffPolicy) Delay(attempt int) time.Duration {
	factor := p.Factor
	if factor <= 0 {
		factor = 2
	}
	delay := time.Duration(float64(p.BaseDelay) * math.Pow(factor, float64(attempt)))
	if p.MaxDelay > 0 && delay > p.MaxDelay {
		delay = p.MaxDelay
	}
	return delay
}

var (
	errRateLimited      = errors.New("rate limited")
	errServerError      = errors.New("server error")
	errUnexpectedStatus = errors.New("unexpected status code")
	errCircuitOpen      = errors.New("circuit breaker open")
	errNoHTTPClient     = errors.New("http client not configured")
)

// doRequestWithResilience executes the HTTP request with retries, exponential
// backoff, and a circuit breaker. Only transient failures (transport errors,
// 429, 5xx) are retried; payload-shaped failures and an open circuit return
// immediately. Every error is a *FetchError carrying the location name.
func doRequestWithResilience(
	ctx context.Context,
	client *http.Client,
	cb *gobreaker.CircuitBreaker,
	policy BackoffPolicy,
	loc Location,
	buildRequest func() (*http.Request, error),
) (*http.Response, error) {
	if client == nil {
		return nil, &FetchError{Kind: FetchInvalid, Location: loc.Name, Err: errNoHTTPClient}
	}

	attempts := policy.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}

	var attempt int
	for {
		if err := ctx.Err(); err != nil {
			return nil, &FetchError{Kind: FetchTransient, Location: loc.Name, Err: err}
		}

		req, err := buildRequest()
		if err != nil {
			return nil, &FetchError{Kind: FetchInvalid, Location: loc.Name, Err: err}
		}
		req = req.WithContext(ctx)

		result, err := cb.Execute(func() (interface{}, error) {
			resp, execErr := client.Do(req)
			if execErr != nil {
				return nil, execErr
			}

			if resp.StatusCode == http.StatusTooManyRequests {
				resp.Body.Close()
				return nil, errRateLimited
			}
			if resp.StatusCode >= 500 {
				resp.Body.Close()
				return nil, errServerError
			}
			if resp.StatusCode < 200 || resp.StatusCode >= 300 {
				resp.Body.Close()
				return nil, fmt.Errorf("%w: %d", errUnexpectedStatus, resp.StatusCode)
			}

			return resp, nil
		})

		if err == nil {
			resp, ok := result.(*http.Response)
			if !ok {
				return nil, &FetchError{Kind: FetchInvalid, Location: loc.Name, Err: errors.New("unexpected result type from circuit breaker")}
			}
			return resp, nil
		}

		// An open circuit means the upstream is already known to be down;
		// retrying inside this call would only burn the backoff budget.
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, &FetchError{Kind: FetchTransient, Location: loc.Name, Err: fmt.Errorf("%w: %v", errCircuitOpen, err)}
		}

		kind := classifyRequestError(err)
		if kind == FetchInvalid {
			return nil, &FetchError{Kind: FetchInvalid, Location: loc.Name, Err: err}
		}

		if attempt >= attempts-1 {
			return nil, &FetchError{Kind: FetchTransient, Location: loc.Name, Err: err}
		}

		timer := time.NewTimer(policy.Delay(attempt))
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, &FetchError{Kind: FetchTransient, Location: loc.Name, Err: ctx.Err()}
		case <-timer.C:
		}

		attempt++
	}
}

// classifyRequestError maps a failed request to a FetchKind. Transport-level
// errors (timeouts, refused connections) arrive as client.Do errors and are
// transient; a well-formed non-2xx/non-5xx response is a payload problem.
func classifyRequestError(err error) FetchKind {
	switch {
	case errors.Is(err, errUnexpectedStatus):
		return FetchInvalid
	case errors.Is(err, errRateLimited), errors.Is(err, errServerError):
		return FetchTransient
	default:
		return FetchTransient
	}
}
