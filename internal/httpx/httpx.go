// Package httpx wraps outbound HTTP calls in a circuit breaker. It never
// retries: a failed call is one failed delivery attempt, and the consumer
// owns the retry schedule.
package httpx

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/sony/gobreaker/v2"
)

// ErrCircuitOpen is returned while the breaker rejects calls.
var ErrCircuitOpen = errors.New("httpx: circuit breaker open")

// StatusError reports an upstream 5xx or 429.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string { return fmt.Sprintf("httpx: upstream returned %d", e.Code) }

// Config configures a Client.
type Config struct {
	// Name labels the breaker in logs.
	Name string
	// Timeout bounds one request when the context has no earlier deadline. Defaults to 10s.
	Timeout time.Duration
	// FailureThreshold is the number of consecutive failures that opens the breaker. Defaults to 5.
	FailureThreshold uint32
	// OpenTimeout is how long the breaker stays open before probing. Defaults to 30s.
	OpenTimeout time.Duration
	// UserAgent is set on every request when non-empty.
	UserAgent string
	// OnStateChange is called on breaker transitions.
	OnStateChange func(name string, from, to gobreaker.State)
}

// Client is a breaker-guarded http client.
type Client struct {
	http      *http.Client
	breaker   *gobreaker.CircuitBreaker[*http.Response]
	userAgent string
}

// New builds a Client. A nil hc uses a fresh http.Client with cfg.Timeout.
func New(hc *http.Client, cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.FailureThreshold == 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.OpenTimeout <= 0 {
		cfg.OpenTimeout = 30 * time.Second
	}
	if hc == nil {
		hc = &http.Client{Timeout: cfg.Timeout}
	}
	threshold := cfg.FailureThreshold
	cb := gobreaker.NewCircuitBreaker[*http.Response](gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: 1,
		Interval:    60 * time.Second,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: cfg.OnStateChange,
	})
	return &Client{http: hc, breaker: cb, userAgent: cfg.UserAgent}
}

// Do sends req through the breaker. Transport errors, 5xx and 429 count as
// failures and are returned as errors with the body closed. Any other status
// is returned to the caller, who must close the body.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	resp, err := c.breaker.Execute(func() (*http.Response, error) {
		r, err := c.http.Do(req)
		if err != nil {
			return nil, err
		}
		if r.StatusCode >= 500 || r.StatusCode == http.StatusTooManyRequests {
			r.Body.Close()
			return nil, &StatusError{Code: r.StatusCode}
		}
		return r, nil
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, fmt.Errorf("%w: %s", ErrCircuitOpen, c.breaker.Name())
	}
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// State exposes the breaker state.
func (c *Client) State() gobreaker.State { return c.breaker.State() }
