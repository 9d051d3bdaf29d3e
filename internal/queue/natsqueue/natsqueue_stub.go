// Skylapse - Distributed Mountain Timelapse Coordination
// SPDX-License-Identifier: AGPL-3.0-or-later

//go:build !nats

package natsqueue

import (
	"context"
	"fmt"
	"time"

	"github.com/tomtom215/skylapse/internal/models"
	"github.com/tomtom215/skylapse/internal/queue"
)

// Config mirrors the nats-tagged Config so callers can construct it
// regardless of build tag.
type Config struct {
	URL           string
	StreamName    string
	DurableName   string
	Topic         string
	AckWait       time.Duration
	MaxRedeliver  int
	MaxReconnects int
	ReconnectWait time.Duration
}

// DefaultConfig returns the zero-value defaults; unused without the nats tag.
func DefaultConfig() Config {
	return Config{}
}

// Queue is a stub used when the binary is built without -tags=nats.
type Queue struct{}

// Open always fails: rebuild with -tags=nats to enable the NATS backend.
func Open(cfg Config) (*Queue, error) {
	return nil, fmt.Errorf("natsqueue: not available, rebuild with -tags=nats")
}

func (q *Queue) Enqueue(ctx context.Context, job models.TimelapseJob) error {
	return fmt.Errorf("natsqueue: not available, rebuild with -tags=nats")
}

func (q *Queue) Dequeue(ctx context.Context) (*queue.Delivery, error) {
	return nil, fmt.Errorf("natsqueue: not available, rebuild with -tags=nats")
}

func (q *Queue) Ack(ctx context.Context, deliveryID string) error { return nil }

func (q *Queue) Nack(ctx context.Context, deliveryID string) error { return nil }

func (q *Queue) RecoverPending(ctx context.Context) (int, error) { return 0, nil }

func (q *Queue) Close() error { return nil }

var _ interface {
	queue.Enqueuer
	queue.Consumer
} = (*Queue)(nil)
