// Skylapse - Distributed Mountain Timelapse Coordination
// SPDX-License-Identifier: AGPL-3.0-or-later

package camera

import (
	"context"
	"errors"
	"fmt"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/skylapse/internal/logging"
	"github.com/tomtom215/skylapse/internal/metrics"
	"github.com/tomtom215/skylapse/internal/models"
	"github.com/tomtom215/skylapse/internal/skyerr"
)

// Adapter is the interface internal/orchestrator and internal/exposure
// depend on; both Client and CircuitBreakerClient satisfy it.
type Adapter interface {
	Capture(ctx context.Context, settings models.CaptureSettings) (string, *models.CaptureSettings, error)
	Download(ctx context.Context, profileID, filename string) ([]byte, error)
	Health(ctx context.Context) error
	Meter(ctx context.Context, profileID string) (float64, error)
}

var _ Adapter = (*Client)(nil)
var _ Adapter = (*CircuitBreakerClient)(nil)

// CircuitBreakerClient wraps Client with a per-adapter circuit breaker so a
// wedged or overloaded Pi doesn't pile up blocked burst goroutines across
// every profile it serves.
type CircuitBreakerClient struct {
	client *Client
	cb     *gobreaker.CircuitBreaker[interface{}]
	name   string
}

// NewCircuitBreakerClient wraps client. Opens after a 60% failure rate over
// at least 10 requests in a 1-minute window; waits 1 minute before probing
// recovery with a single request, matching a burst cadence of tens of
// seconds so one open trip doesn't stall a whole capture window.
func NewCircuitBreakerClient(client *Client, name string) *CircuitBreakerClient {
	metrics.CircuitBreakerState.WithLabelValues(name).Set(0)

	cb := gobreaker.NewCircuitBreaker[interface{}](gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     time.Minute,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < 10 {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRatio >= 0.6
		},
		OnStateChange: func(cbName string, from, to gobreaker.State) {
			logging.Warn().Str("adapter", cbName).Str("from", from.String()).Str("to", to.String()).
				Msg("camera adapter circuit breaker state transition")
			metrics.CircuitBreakerState.WithLabelValues(cbName).Set(stateToFloat(to))
		},
	})

	return &CircuitBreakerClient{client: client, cb: cb, name: name}
}

func (c *CircuitBreakerClient) execute(fn func() (interface{}, error)) (interface{}, error) {
	result, err := c.cb.Execute(fn)
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, skyerr.New(skyerr.KindAdapterUnavailable, "camera.CircuitBreaker", err, "adapter", c.name)
		}
		return nil, err
	}
	return result, nil
}

func (c *CircuitBreakerClient) Capture(ctx context.Context, settings models.CaptureSettings) (string, *models.CaptureSettings, error) {
	type captureResult struct {
		path string
		echo *models.CaptureSettings
	}
	result, err := c.execute(func() (interface{}, error) {
		path, echo, err := c.client.Capture(ctx, settings)
		if err != nil {
			return nil, err
		}
		return captureResult{path: path, echo: echo}, nil
	})
	if err != nil {
		return "", nil, err
	}
	r, ok := result.(captureResult)
	if !ok {
		return "", nil, fmt.Errorf("camera: unexpected circuit breaker result type")
	}
	return r.path, r.echo, nil
}

func (c *CircuitBreakerClient) Download(ctx context.Context, profileID, filename string) ([]byte, error) {
	result, err := c.execute(func() (interface{}, error) {
		return c.client.Download(ctx, profileID, filename)
	})
	if err != nil {
		return nil, err
	}
	data, ok := result.([]byte)
	if !ok {
		return nil, fmt.Errorf("camera: unexpected circuit breaker result type")
	}
	return data, nil
}

func (c *CircuitBreakerClient) Health(ctx context.Context) error {
	_, err := c.execute(func() (interface{}, error) {
		return nil, c.client.Health(ctx)
	})
	return err
}

func (c *CircuitBreakerClient) Meter(ctx context.Context, profileID string) (float64, error) {
	result, err := c.execute(func() (interface{}, error) {
		return c.client.Meter(ctx, profileID)
	})
	if err != nil {
		return 0, err
	}
	lux, ok := result.(float64)
	if !ok {
		return 0, fmt.Errorf("camera: unexpected circuit breaker result type")
	}
	return lux, nil
}

// State returns the circuit breaker's current state, for status reporting.
func (c *CircuitBreakerClient) State() gobreaker.State { return c.cb.State() }

func stateToFloat(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return 0
	}
}
