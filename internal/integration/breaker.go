package integration

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// BreakerConfig holds configuration for the upstream circuit breaker
type BreakerConfig struct {
	Name        string
	MaxRequests uint32
	Interval    time.Duration
	Timeout     time.Duration
	// FailureThreshold is the failure ratio that trips the breaker once
	// MinRequests calls have been counted.
	FailureThreshold float64
	MinRequests      uint32
}

// DefaultBreakerConfig returns a default configuration for the circuit breaker
func DefaultBreakerConfig(name string) BreakerConfig {
	return BreakerConfig{
		Name:             name,
		MaxRequests:      5,
		Interval:         30 * time.Second,
		Timeout:          60 * time.Second,
		FailureThreshold: 0.8,
		MinRequests:      5,
	}
}

// errServerStatus marks a 5xx response as a breaker failure. It never leaves
// breakerTransport.
type errServerStatus struct {
	status int
}

func (e *errServerStatus) Error() string {
	return http.StatusText(e.status)
}

// breakerTransport guards the upstream with a circuit breaker. Transport
// failures and 5xx responses count as failures. While the breaker is open,
// requests fail fast with gobreaker.ErrOpenState, which the client reports as
// a NetworkError.
type breakerTransport struct {
	next http.RoundTripper
	cb   *gobreaker.CircuitBreaker
}

func newBreakerTransport(next http.RoundTripper, config BreakerConfig, logger *zap.Logger) *breakerTransport {
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        config.Name,
		MaxRequests: config.MaxRequests,
		Interval:    config.Interval,
		Timeout:     config.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < config.MinRequests {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRatio >= config.FailureThreshold
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("Circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})
	return &breakerTransport{next: next, cb: cb}
}

func (t *breakerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	result, err := t.cb.Execute(func() (any, error) {
		resp, err := t.next.RoundTrip(req)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode >= http.StatusInternalServerError {
			return resp, &errServerStatus{status: resp.StatusCode}
		}
		return resp, nil
	})

	var statusErr *errServerStatus
	if errors.As(err, &statusErr) {
		return result.(*http.Response), nil
	}
	if err != nil {
		return nil, err
	}
	return result.(*http.Response), nil
}

// State returns the current breaker state.
func (t *breakerTransport) State() gobreaker.State {
	return t.cb.State()
}

// ErrCircuitOpen is reported by Ready while the breaker rejects calls.
var ErrCircuitOpen = errors.New("upstream circuit breaker is open")

// Ready reports whether upstream calls are currently allowed through.
func (c *Client) Ready(ctx context.Context) error {
	breaker, ok := c.httpClient.Transport.(*breakerTransport)
	if ok && breaker.State() == gobreaker.StateOpen {
		return ErrCircuitOpen
	}
	return nil
}
