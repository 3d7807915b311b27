// Package external is the boundary layer between the forecast engine and the
// upstream environmental feeds. Every outbound call goes through BaseClient,
// which enforces one resilience posture for all channels: a circuit breaker,
// bounded retries with jittered backoff, per-call timeouts, and mapping of
// transport failures to the domain error taxonomy.
package external

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"math/rand/v2"
	"net/http"
	"strconv"
	"time"

	"github.com/sony/gobreaker/v2"

	"fishcast/internal/types"
)

// RetryPolicy configures retry behavior for upstream calls.
type RetryPolicy struct {
	MaxRetries int
	MinWait    time.Duration
	MaxWait    time.Duration
}

// DefaultRetryPolicy returns the standard policy for environmental feeds:
// two retries is enough for transient blips without stretching a degraded
// channel past its adapter timeout.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries: 2,
		MinWait:    250 * time.Millisecond,
		MaxWait:    4 * time.Second,
	}
}

// BaseClient wraps an *http.Client with a circuit breaker and retry policy.
// Channel adapters embed one BaseClient each so a misbehaving upstream trips
// only its own breaker.
type BaseClient struct {
	client    *http.Client
	breaker   *gobreaker.CircuitBreaker[*http.Response]
	retry     RetryPolicy
	timeout   time.Duration
	userAgent string
	sleepFn   func(time.Duration) // injectable for tests
}

// BaseClientOption is a functional option for configuring a BaseClient.
type BaseClientOption func(*BaseClient)

// WithSleepFunc overrides the sleep between retries; tests use this to avoid
// real delays.
func WithSleepFunc(fn func(time.Duration)) BaseClientOption {
	return func(c *BaseClient) { c.sleepFn = fn }
}

// WithRetryPolicy overrides the default retry policy.
func WithRetryPolicy(p RetryPolicy) BaseClientOption {
	return func(c *BaseClient) { c.retry = p }
}

// NewBaseClient creates a BaseClient for one channel. timeout bounds every
// individual call including retries, so one slow upstream cannot stall an
// aggregation fan-out past its ceiling.
func NewBaseClient(httpClient *http.Client, channel string, timeout time.Duration, opts ...BaseClientOption) *BaseClient {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	cb := gobreaker.NewCircuitBreaker[*http.Response](gobreaker.Settings{
		Name:        channel,
		MaxRequests: 1,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > 5
		},
	})

	bc := &BaseClient{
		client:    httpClient,
		breaker:   cb,
		retry:     DefaultRetryPolicy(),
		timeout:   timeout,
		userAgent: "fishcast/1.0",
		sleepFn:   time.Sleep,
	}
	for _, opt := range opts {
		opt(bc)
	}
	return bc
}

// GetJSON performs a GET against url with the channel's timeout and decodes
// the 2xx response body into out. Non-2xx statuses and transport failures
// are mapped to *types.AppError.
func (c *BaseClient) GetJSON(ctx context.Context, url string, header http.Header, out any) error {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalUnexpected, "building upstream request", err)
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	resp, err := c.do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return types.NewAppError(
			types.ErrCodeUpstreamUnavailable,
			fmt.Sprintf("upstream returned %d", resp.StatusCode),
			fmt.Errorf("%s", body),
		)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return types.NewAppError(types.ErrCodeUpstreamUnavailable, "decoding upstream payload", err)
	}
	return nil
}

// do executes the request through the breaker, retrying 429 and 5xx with
// jittered exponential backoff and honoring Retry-After when present.
func (c *BaseClient) do(req *http.Request) (*http.Response, error) {
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	if traceID := types.GetRequestID(req.Context()); traceID != "" {
		req.Header.Set("X-Request-Id", traceID)
	}

	var lastResp *http.Response
	var lastErr error

	for attempt := 0; attempt <= c.retry.MaxRetries; attempt++ {
		resp, err := c.breaker.Execute(func() (*http.Response, error) {
			r, doErr := c.client.Do(req)
			if doErr != nil {
				return nil, doErr
			}
			if r.StatusCode >= 500 || r.StatusCode == http.StatusTooManyRequests {
				return r, fmt.Errorf("upstream returned %d", r.StatusCode)
			}
			return r, nil
		})
		if err == nil {
			return resp, nil
		}

		lastErr = err
		if resp != nil {
			if attempt < c.retry.MaxRetries {
				resp.Body.Close()
			} else {
				lastResp = resp
			}
		}

		// An open breaker or a dead context will not recover within this call.
		if errors.Is(err, gobreaker.ErrOpenState) ||
			errors.Is(err, gobreaker.ErrTooManyRequests) ||
			req.Context().Err() != nil {
			break
		}

		if attempt < c.retry.MaxRetries {
			c.sleepFn(c.backoff(attempt, resp))
		}
	}

	if lastResp != nil {
		lastResp.Body.Close()
	}
	return nil, c.mapError(lastResp, lastErr)
}

// backoff computes the wait before the next attempt: Retry-After when the
// upstream supplies it, otherwise exponential backoff with full jitter
// clamped to [MinWait, MaxWait].
func (c *BaseClient) backoff(attempt int, resp *http.Response) time.Duration {
	if resp != nil {
		if ra := resp.Header.Get("Retry-After"); ra != "" {
			if secs, err := strconv.Atoi(ra); err == nil && secs > 0 {
				return min(time.Duration(secs)*time.Second, c.retry.MaxWait)
			}
		}
	}

	base := float64(c.retry.MinWait) * math.Pow(2, float64(attempt))
	base = math.Min(base, float64(c.retry.MaxWait))
	lo := float64(c.retry.MinWait)
	if base <= lo {
		return c.retry.MinWait
	}
	return time.Duration(lo + rand.Float64()*(base-lo))
}

func (c *BaseClient) mapError(resp *http.Response, err error) *types.AppError {
	switch {
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return types.NewAppError(types.ErrCodeUpstreamRateLimited, "circuit breaker open for upstream channel", err)
	case resp != nil && resp.StatusCode == http.StatusTooManyRequests:
		return types.NewAppError(types.ErrCodeUpstreamRateLimited, "upstream rate limit exceeded", err)
	case resp != nil && resp.StatusCode >= 500:
		return types.NewAppError(types.ErrCodeUpstreamUnavailable,
			fmt.Sprintf("upstream returned %d after retries", resp.StatusCode), err)
	default:
		return types.NewAppError(types.ErrCodeUpstreamUnavailable, "upstream request failed", err)
	}
}
