// Package external provides the anti-corruption layer between WeatherNow domain
// logic and the Open-Meteo APIs. All outbound HTTP calls are routed through the
// BaseClient, which enforces consistent behavior: rate limiting, circuit
// breaking, trace propagation, and error mapping. Failed calls are never
// retried; the caller decides what a failure means for the user.
package external

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"weathernow/internal/types"
)

// ClientSettings configures a BaseClient.
type ClientSettings struct {
	// BreakerName labels the circuit breaker in logs and health output.
	BreakerName string
	UserAgent   string
	// RatePerSecond and Burst bound outbound calls. Zero disables limiting.
	RatePerSecond float64
	Burst         int
}

// BaseClient wraps an *http.Client, a token-bucket limiter and a circuit
// breaker. The geocoding and forecast clients embed it.
type BaseClient struct {
	client    *http.Client
	breaker   *gobreaker.CircuitBreaker[*http.Response]
	limiter   *rate.Limiter
	userAgent string
}

// BaseClientOption is a functional option for configuring a BaseClient.
type BaseClientOption func(*BaseClient)

// WithBreaker replaces the default circuit breaker, e.g. to share one breaker
// across clients or to trip faster in tests.
func WithBreaker(cb *gobreaker.CircuitBreaker[*http.Response]) BaseClientOption {
	return func(c *BaseClient) {
		c.breaker = cb
	}
}

// NewBaseClient creates a BaseClient with the given http client and settings.
func NewBaseClient(httpClient *http.Client, settings ClientSettings, opts ...BaseClientOption) *BaseClient {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}

	bc := &BaseClient{
		client:    httpClient,
		breaker:   NewBreaker(settings.BreakerName),
		userAgent: settings.UserAgent,
	}
	if settings.RatePerSecond > 0 {
		burst := settings.Burst
		if burst < 1 {
			burst = 1
		}
		bc.limiter = rate.NewLimiter(rate.Limit(settings.RatePerSecond), burst)
	}

	for _, opt := range opts {
		opt(bc)
	}

	return bc
}

// NewBreaker returns the circuit breaker used by default: it opens after more
// than five consecutive failures and half-opens again after 30 seconds.
// Requests abandoned by the caller are not counted either way.
func NewBreaker(name string) *gobreaker.CircuitBreaker[*http.Response] {
	return gobreaker.NewCircuitBreaker[*http.Response](gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > 5
		},
		IsSuccessful: func(err error) bool {
			return err == nil
		},
		IsExcluded: func(err error) bool {
			return errors.Is(err, context.Canceled)
		},
	})
}

// Name returns the breaker name, used as the health probe name.
func (c *BaseClient) Name() string {
	return c.breaker.Name()
}

// BreakerState reports the current circuit breaker state.
func (c *BaseClient) BreakerState() gobreaker.State {
	return c.breaker.State()
}

// Check implements core.HealthProbe: an open breaker means the upstream has
// been failing and the service cannot answer lookups.
func (c *BaseClient) Check(_ context.Context) error {
	if st := c.breaker.State(); st == gobreaker.StateOpen {
		return fmt.Errorf("circuit breaker %s is %s", c.breaker.Name(), st)
	}
	return nil
}

// Do executes the HTTP request with:
//  1. Trace ID injection (X-Request-Id from context)
//  2. User-Agent header injection
//  3. Rate limiting (waits for a token or the context)
//  4. Circuit breaker wrapping
//  5. Error mapping to types.AppError
//
// On 2xx/3xx/4xx other than 429, Do returns the response as-is and the caller
// closes the body. Transport failures, 429 and 5xx come back as an AppError
// with the body already closed.
func (c *BaseClient) Do(req *http.Request) (*http.Response, error) {
	ctx := req.Context()

	if traceID := types.GetRequestID(ctx); traceID != "" {
		req.Header.Set("X-Request-Id", traceID)
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	req.Header.Set("Accept", "application/json")

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, types.NewAppError(
				types.ErrCodeUpstreamRateLimited,
				"outbound rate limit wait aborted",
				err,
			)
		}
	}

	resp, err := c.breaker.Execute(func() (*http.Response, error) {
		r, doErr := c.client.Do(req)
		if doErr != nil {
			return nil, doErr
		}
		if r.StatusCode >= 500 || r.StatusCode == http.StatusTooManyRequests {
			return r, &statusError{code: r.StatusCode}
		}
		return r, nil
	})
	if err == nil {
		return resp, nil
	}

	if resp != nil {
		resp.Body.Close()
	}
	return nil, c.mapError(resp, err)
}

// statusError marks a response the breaker should count as a failure.
type statusError struct {
	code int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("upstream returned %d", e.code)
}

// mapError translates HTTP-level failures into domain-level AppErrors.
func (c *BaseClient) mapError(resp *http.Response, err error) *types.AppError {
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return types.NewAppError(
			types.ErrCodeUpstreamUnavailable,
			"circuit breaker is open; upstream service unavailable",
			err,
		)
	}

	if resp != nil {
		details := map[string]any{"status": resp.StatusCode}
		if resp.StatusCode == http.StatusTooManyRequests {
			return types.NewAppErrorWithDetails(
				types.ErrCodeUpstreamRateLimited,
				"upstream rate limit exceeded",
				err,
				details,
			)
		}
		return types.NewAppErrorWithDetails(
			types.ErrCodeUpstreamUnavailable,
			fmt.Sprintf("upstream returned %d", resp.StatusCode),
			err,
			details,
		)
	}

	// No response at all: DNS, refused connection, timeout, cancellation.
	return types.NewAppError(
		types.ErrCodeUpstreamNetwork,
		"upstream request failed",
		err,
	)
}

// IsTransportError reports whether err is a failure where no HTTP response
// was received.
func IsTransportError(err error) bool {
	return types.CodeOf(err) == types.ErrCodeUpstreamNetwork
}
