// Skylapse - Distributed Mountain Timelapse Coordination
// SPDX-License-Identifier: AGPL-3.0-or-later

package main

import (
	"fmt"

	"github.com/tomtom215/skylapse/internal/config"
	"github.com/tomtom215/skylapse/internal/queue"
	"github.com/tomtom215/skylapse/internal/queue/badgerqueue"
	"github.com/tomtom215/skylapse/internal/queue/natsqueue"
)

// openQueueBackend opens the timelapse job queue's durable transport per
// cfg.Backend, mirroring cmd/controller's selection so both processes
// agree on which durable store backs the queue.
func openQueueBackend(cfg config.QueueConfig) (queue.Backend, error) {
	switch cfg.Backend {
	case "nats":
		q, err := natsqueue.Open(natsqueue.Config{
			URL:          cfg.NATSURL,
			StreamName:   cfg.StreamName,
			DurableName:  cfg.DurableName,
			AckWait:      cfg.AckWait,
			MaxRedeliver: cfg.MaxRedeliver,
		})
		if err != nil {
			return nil, fmt.Errorf("open nats queue: %w", err)
		}
		return q, nil
	case "badger", "":
		q, err := badgerqueue.Open(badgerqueue.Config{
			Path:          cfg.DataDir,
			SyncWrites:    true,
			LeaseDuration: cfg.LeaseDuration,
			MaxRedeliver:  cfg.MaxRedeliver,
		})
		if err != nil {
			return nil, fmt.Errorf("open badger queue: %w", err)
		}
		return q, nil
	default:
		return nil, fmt.Errorf("queue: unknown backend %q", cfg.Backend)
	}
}
