// Skylapse - Distributed Mountain Timelapse Coordination
// SPDX-License-Identifier: AGPL-3.0-or-later

package queue

import (
	"context"
	"errors"
	"time"

	"github.com/tomtom215/skylapse/internal/models"
)

// ErrClosed is returned by Enqueue/Dequeue once the backend has been closed.
var ErrClosed = errors.New("queue: closed")

// ErrNoJob reports that no delivery was available. Neither badgerqueue nor
// natsqueue returns it: their Dequeue waits for a job until ctx ends and
// then returns ctx.Err().
var ErrNoJob = errors.New("queue: no job available")

// Enqueuer hands a finished session's timelapse job to the work queue. It
// satisfies internal/scheduler.JobEnqueuer.
type Enqueuer interface {
	Enqueue(ctx context.Context, job models.TimelapseJob) error
}

// Delivery wraps one dequeued job with the bookkeeping the worker needs to
// report back to the queue.
type Delivery struct {
	Job        models.TimelapseJob
	DeliveryID string
	Attempts   int
}

// Consumer is the worker-side half of a queue backend: pull one job,
// then Ack it on success or Nack it to request redelivery.
type Consumer interface {
	// Dequeue blocks until a job is available or ctx is done, in which
	// case it returns ctx.Err().
	Dequeue(ctx context.Context) (*Delivery, error)
	// Ack confirms a delivery was fully processed and may be discarded.
	Ack(ctx context.Context, deliveryID string) error
	// Nack returns a delivery to the queue for redelivery, e.g. after a
	// transient encode failure.
	Nack(ctx context.Context, deliveryID string) error
	Close() error
}

// Backend bundles both halves plus a startup recovery hook so a process
// that crashed mid-delivery can resume cleanly.
type Backend interface {
	Enqueuer
	Consumer
	// RecoverPending re-claims any deliveries left leased or pending from
	// a previous process instance. Called once at startup.
	RecoverPending(ctx context.Context) (int, error)
}

// DequeuePollInterval is how often a Dequeue call re-polls the backend
// while waiting for a job to become available.
const DequeuePollInterval = 500 * time.Millisecond
