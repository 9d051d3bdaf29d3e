// Skylapse - Distributed Mountain Timelapse Coordination
// SPDX-License-Identifier: AGPL-3.0-or-later

package queue

import (
	"fmt"

	"github.com/tomtom215/skylapse/internal/config"
	"github.com/tomtom215/skylapse/internal/queue/badgerqueue"
	"github.com/tomtom215/skylapse/internal/queue/natsqueue"
)

// Open builds the configured queue backend. Backend "nats" only produces
// a working queue when the binary was built with -tags=nats; otherwise
// natsqueue.Open returns the rebuild-with-tag error itself.
func Open(cfg config.QueueConfig) (Backend, error) {
	switch cfg.Backend {
	case "badger", "":
		return badgerqueue.Open(badgerqueue.Config{
			Path:          cfg.DataDir,
			SyncWrites:    true,
			LeaseDuration: cfg.LeaseDuration,
			MaxRedeliver:  cfg.MaxRedeliver,
		})
	case "nats":
		return natsqueue.Open(natsqueue.Config{
			URL:           cfg.NATSURL,
			StreamName:    cfg.StreamName,
			DurableName:   cfg.DurableName,
			Topic:         "skylapse.timelapse.jobs",
			AckWait:       cfg.AckWait,
			MaxRedeliver:  cfg.MaxRedeliver,
			MaxReconnects: -1,
		})
	default:
		return nil, fmt.Errorf("queue: unknown backend %q", cfg.Backend)
	}
}
