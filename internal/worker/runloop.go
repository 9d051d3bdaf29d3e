// Skylapse - Distributed Mountain Timelapse Coordination
// SPDX-License-Identifier: AGPL-3.0-or-later

package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/tomtom215/skylapse/internal/queue"
)

// RunLoop drives Process off a queue.Consumer until ctx is canceled or Stop
// is called: dequeue, process, ack on success or nack on failure, forever.
// Mirrors the scheduler's Start/Stop tick-loop lifecycle.
type RunLoop struct {
	worker   *Worker
	consumer queue.Consumer

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// NewRunLoop builds a RunLoop bound to worker and consumer.
func NewRunLoop(worker *Worker, consumer queue.Consumer) *RunLoop {
	return &RunLoop{worker: worker, consumer: consumer}
}

// Start begins the dequeue loop in a background goroutine.
func (r *RunLoop) Start(ctx context.Context) error {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return fmt.Errorf("worker: run loop already running")
	}
	r.running = true
	r.stopCh = make(chan struct{})
	r.doneCh = make(chan struct{})
	r.mu.Unlock()

	go r.run(ctx)
	return nil
}

// Stop halts the loop and waits for the in-flight delivery to finish.
func (r *RunLoop) Stop() error {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return nil
	}
	r.mu.Unlock()

	close(r.stopCh)
	<-r.doneCh

	r.mu.Lock()
	r.running = false
	r.mu.Unlock()
	return nil
}

func (r *RunLoop) run(ctx context.Context) {
	defer close(r.doneCh)

	for {
		select {
		case <-r.stopCh:
			return
		case <-ctx.Done():
			return
		default:
		}
		r.handleOne(ctx)
	}
}

// handleOne dequeues and processes exactly one delivery. Dequeue blocks
// while the queue is empty (badgerqueue re-polls every
// queue.DequeuePollInterval), so this loop does not spin on an empty queue.
func (r *RunLoop) handleOne(ctx context.Context) {
	delivery, err := r.consumer.Dequeue(ctx)
	if err != nil {
		if !errors.Is(err, queue.ErrNoJob) && !errors.Is(err, queue.ErrClosed) {
			r.worker.Logger.Warn().Err(err).Msg("dequeue failed")
		}
		return
	}

	if err := r.worker.Process(ctx, delivery.Job); err != nil {
		r.worker.Logger.Error().Err(err).Str("session_id", delivery.Job.SessionID).Int("attempts", delivery.Attempts).Msg("timelapse job failed, requesting redelivery")
		if nackErr := r.consumer.Nack(ctx, delivery.DeliveryID); nackErr != nil {
			r.worker.Logger.Error().Err(nackErr).Msg("nack failed")
		}
		return
	}
	if ackErr := r.consumer.Ack(ctx, delivery.DeliveryID); ackErr != nil {
		r.worker.Logger.Error().Err(ackErr).Msg("ack failed")
	}
}
