// internal/adapters/fetch/client.go
package fetch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"review_dashboard/internal/adapters/observability"
)

var (
	ErrNotFound     = errors.New("fetch: not found")
	ErrUnauthorized = errors.New("fetch: unauthorized")
	ErrForbidden    = errors.New("fetch: forbidden")
	ErrRateLimited  = errors.New("fetch: rate limited")
)

// StatusError is a non-2xx answer from an upstream review API.
type StatusError struct {
	Service    string
	Endpoint   string
	Code       int
	Body       string
	RetryAfter time.Duration
}

func (e *StatusError) Error() string {
	msg := fmt.Sprintf("%s %s: status %d", e.Service, e.Endpoint, e.Code)
	if e.Body != "" {
		msg += ": " + e.Body
	}
	return msg
}

// Is lets callers match on the sentinels above with errors.Is.
func (e *StatusError) Is(target error) bool {
	switch target {
	case ErrNotFound:
		return e.Code == http.StatusNotFound
	case ErrUnauthorized:
		return e.Code == http.StatusUnauthorized
	case ErrForbidden:
		return e.Code == http.StatusForbidden
	case ErrRateLimited:
		return e.Code == http.StatusTooManyRequests
	}
	return false
}

// Policy decides how often and how patiently a service is retried.
type Policy struct {
	Attempts int
	Base     time.Duration
	Max      time.Duration
	// Retry reports whether a status is worth another attempt.
	Retry func(code int) bool
}

// DefaultPolicy retries throttling and gateway failures four times.
var DefaultPolicy = Policy{Attempts: 4, Base: 200 * time.Millisecond, Max: 5 * time.Second, Retry: Transient}

func Transient(code int) bool {
	switch code {
	case http.StatusTooManyRequests, http.StatusInternalServerError,
		http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	}
	return false
}

type Config struct {
	Service string // metrics label and error prefix
	RPS     int
	Headers http.Header
	Policy  Policy
}

// Client is a rate-limited JSON GETter shared by the source clients.
type Client struct {
	service string
	hc      *http.Client
	rl      *rate.Limiter
	headers http.Header
	policy  Policy
}

func New(cfg Config) *Client {
	if cfg.RPS <= 0 {
		cfg.RPS = 5
	}
	if cfg.Headers == nil {
		cfg.Headers = http.Header{}
	}
	p := cfg.Policy
	if p.Attempts <= 0 {
		p.Attempts = DefaultPolicy.Attempts
	}
	if p.Base <= 0 {
		p.Base = DefaultPolicy.Base
	}
	if p.Max <= 0 {
		p.Max = DefaultPolicy.Max
	}
	if p.Retry == nil {
		p.Retry = Transient
	}
	return &Client{
		service: cfg.Service,
		hc:      &http.Client{Timeout: 20 * time.Second},
		rl:      rate.NewLimiter(rate.Limit(cfg.RPS), cfg.RPS),
		headers: cfg.Headers,
		policy:  p,
	}
}

// GetJSON fetches url and decodes the body into out. Every attempt waits on the
// rate limiter; retries follow the client's Policy and honour Retry-After.
// endpoint is the low-cardinality label used for metrics.
func (c *Client) GetJSON(ctx context.Context, endpoint, url string, out any) error {
	for attempt := 1; ; attempt++ {
		if err := c.rl.Wait(ctx); err != nil {
			return err
		}
		err := c.once(ctx, endpoint, url, out)
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		wait, retry := c.retryable(err, attempt)
		if !retry {
			return err
		}
		if !sleepCtx(ctx, wait) {
			return ctx.Err()
		}
	}
}

// retryable picks the pause before the next attempt, or reports that err is final.
func (c *Client) retryable(err error, attempt int) (time.Duration, bool) {
	if attempt >= c.policy.Attempts {
		return 0, false
	}
	var pe *permanentError
	if errors.As(err, &pe) {
		return 0, false
	}
	var se *StatusError
	if errors.As(err, &se) {
		if !c.policy.Retry(se.Code) {
			return 0, false
		}
		if se.RetryAfter > 0 {
			return min(se.RetryAfter, c.policy.Max), true
		}
	}
	// transport errors are always retried
	return c.backoff(attempt), true
}

func (c *Client) once(ctx context.Context, endpoint, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return &permanentError{err}
	}
	for k, vs := range c.headers {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "review-dashboard/1.0")

	start := time.Now()
	resp, err := c.hc.Do(req)
	if err != nil {
		observability.ObserveExternal(c.service, endpoint, 0, time.Since(start))
		return fmt.Errorf("%s %s: %w", c.service, endpoint, err)
	}
	defer resp.Body.Close()
	observability.ObserveExternal(c.service, endpoint, resp.StatusCode, time.Since(start))

	if resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &StatusError{
			Service:    c.service,
			Endpoint:   endpoint,
			Code:       resp.StatusCode,
			Body:       strings.TrimSpace(string(b)),
			RetryAfter: retryAfter(resp),
		}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &permanentError{fmt.Errorf("decode %s %s response: %w", c.service, endpoint, err)}
	}
	return nil
}

// permanentError marks a failure asking again will not fix, such as a
// malformed 2xx body.
type permanentError struct{ error }

func (e *permanentError) Unwrap() error { return e.error }

// sleepCtx waits for d or returns false once ctx is done.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// retryAfter parses Retry-After (seconds or HTTP-date); 0 when absent or invalid.
func retryAfter(resp *http.Response) time.Duration {
	h := strings.TrimSpace(resp.Header.Get("Retry-After"))
	if h == "" {
		return 0
	}
	if secs, err := strconv.Atoi(h); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(h); err == nil {
		return max(time.Until(t), 0)
	}
	return 0
}

// backoff doubles from Base per attempt, capped at Max, with up to 50% jitter.
func (c *Client) backoff(attempt int) time.Duration {
	d := c.policy.Base << (attempt - 1)
	if d <= 0 || d > c.policy.Max {
		d = c.policy.Max
	}
	return d + time.Duration(rand.Int64N(int64(d)/2+1))
}
