// Skylapse - Distributed Mountain Timelapse Coordination
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package badgerqueue is the default, embedded work-queue backend: a
// single BadgerDB instance durably holds one entry per enqueued
// timelapse job. A dequeue claims a job by writing a lease with an
// expiry; if the worker process crashes mid-job the lease simply times
// out and the next Dequeue claims the job again. Entries move
// pending -> leased and are deleted on Ack.
package badgerqueue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"
	goccyjson "github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/tomtom215/skylapse/internal/logging"
	"github.com/tomtom215/skylapse/internal/models"
	"github.com/tomtom215/skylapse/internal/queue"
)

const (
	prefixPending = "job:pending:"
	prefixLeased  = "job:leased:"
)

// Config configures the embedded badger job queue.
type Config struct {
	Path          string
	SyncWrites    bool
	LeaseDuration time.Duration
	MaxRedeliver  int
}

// DefaultConfig returns sensible defaults for a home-lab single-host
// deployment: durability over throughput.
func DefaultConfig() Config {
	return Config{
		Path:          "/data/queue",
		SyncWrites:    true,
		LeaseDuration: 2 * time.Minute,
		MaxRedeliver:  5,
	}
}

type entry struct {
	ID          string              `json:"id"`
	Job         models.TimelapseJob `json:"job"`
	CreatedAt   time.Time           `json:"created_at"`
	Attempts    int                 `json:"attempts"`
	LeaseExpiry time.Time           `json:"lease_expiry,omitempty"`
	LeaseHolder string              `json:"lease_holder,omitempty"`
}

// Queue is a badger-backed queue.Backend.
type Queue struct {
	db     *badger.DB
	cfg    Config
	holder string

	mu     sync.RWMutex
	closed bool
}

// Open creates or attaches to the badger database at cfg.Path.
func Open(cfg Config) (*Queue, error) {
	if cfg.Path == "" {
		return nil, errors.New("badgerqueue: path is required")
	}
	if cfg.LeaseDuration <= 0 {
		cfg.LeaseDuration = 2 * time.Minute
	}

	opts := badger.DefaultOptions(cfg.Path)
	opts.SyncWrites = cfg.SyncWrites
	opts.Compression = options.Snappy
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("badgerqueue: open: %w", err)
	}

	q := &Queue{
		db:     db,
		cfg:    cfg,
		holder: "worker-" + uuid.NewString()[:8],
	}
	logging.Info().Str("path", cfg.Path).Msg("badger job queue opened")
	return q, nil
}

// Enqueue satisfies queue.Enqueuer and internal/scheduler.JobEnqueuer.
func (q *Queue) Enqueue(ctx context.Context, job models.TimelapseJob) error {
	if err := q.checkOpen(); err != nil {
		return err
	}

	now := time.Now().UTC()
	e := entry{
		// The zero-padded nanosecond prefix makes pending keys sort in
		// enqueue order, so Dequeue's key-order scan claims the oldest job.
		ID:        fmt.Sprintf("%020d-%s", now.UnixNano(), uuid.NewString()),
		Job:       job,
		CreatedAt: now,
	}
	data, err := goccyjson.Marshal(e)
	if err != nil {
		return fmt.Errorf("badgerqueue: marshal: %w", err)
	}

	key := []byte(prefixPending + e.ID)
	return q.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, data)
	})
}

// Dequeue claims the oldest unleased pending job, polling at
// queue.DequeuePollInterval until one becomes available or ctx ends.
func (q *Queue) Dequeue(ctx context.Context) (*queue.Delivery, error) {
	if err := q.checkOpen(); err != nil {
		return nil, err
	}

	ticker := time.NewTicker(queue.DequeuePollInterval)
	defer ticker.Stop()

	for {
		d, err := q.tryClaimOne()
		if err != nil {
			return nil, err
		}
		if d != nil {
			return d, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

// tryClaimOne scans pending and leased-but-expired entries and claims the
// first one it finds, or returns (nil, nil) if nothing is claimable.
func (q *Queue) tryClaimOne() (*queue.Delivery, error) {
	now := time.Now()
	var claimed *entry

	err := q.db.Update(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = true
		it := txn.NewIterator(opts)
		defer it.Close()

		for _, prefix := range []string{prefixPending, prefixLeased} {
			p := []byte(prefix)
			for it.Seek(p); it.ValidForPrefix(p); it.Next() {
				item := it.Item()
				var e entry
				if err := item.Value(func(val []byte) error { return goccyjson.Unmarshal(val, &e) }); err != nil {
					continue
				}
				if prefix == prefixLeased && now.Before(e.LeaseExpiry) {
					continue // still leased by another worker
				}

				oldKey := item.KeyCopy(nil)
				e.Attempts++
				e.LeaseExpiry = now.Add(q.cfg.LeaseDuration)
				e.LeaseHolder = q.holder

				data, err := goccyjson.Marshal(e)
				if err != nil {
					return err
				}
				if err := txn.Set([]byte(prefixLeased+e.ID), data); err != nil {
					return err
				}
				if string(oldKey) != prefixLeased+e.ID {
					if err := txn.Delete(oldKey); err != nil {
						return err
					}
				}
				claimed = &e
				return nil
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("badgerqueue: claim: %w", err)
	}
	if claimed == nil {
		return nil, nil
	}
	return &queue.Delivery{Job: claimed.Job, DeliveryID: claimed.ID, Attempts: claimed.Attempts}, nil
}

// Ack removes a leased entry permanently.
func (q *Queue) Ack(ctx context.Context, deliveryID string) error {
	if err := q.checkOpen(); err != nil {
		return err
	}
	return q.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(prefixLeased + deliveryID))
	})
}

// Nack returns a leased entry to pending immediately, or drops it once it
// has been delivered MaxRedeliver times rather than retrying forever.
func (q *Queue) Nack(ctx context.Context, deliveryID string) error {
	if err := q.checkOpen(); err != nil {
		return err
	}

	leasedKey := []byte(prefixLeased + deliveryID)
	return q.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get(leasedKey)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil // already acked or re-claimed elsewhere
		}
		if err != nil {
			return err
		}

		var e entry
		if err := item.Value(func(val []byte) error { return goccyjson.Unmarshal(val, &e) }); err != nil {
			return err
		}

		if q.cfg.MaxRedeliver > 0 && e.Attempts >= q.cfg.MaxRedeliver {
			logging.Warn().Str("delivery_id", deliveryID).Int("attempts", e.Attempts).
				Msg("job exceeded max redeliver attempts, dropping")
			return txn.Delete(leasedKey)
		}

		e.LeaseExpiry = time.Time{}
		e.LeaseHolder = ""
		data, err := goccyjson.Marshal(e)
		if err != nil {
			return err
		}
		if err := txn.Set([]byte(prefixPending+e.ID), data); err != nil {
			return err
		}
		return txn.Delete(leasedKey)
	})
}

// RecoverPending reports the number of jobs left over from a previous
// process: pending entries need no action (Dequeue already finds them),
// and leased entries recover automatically once their lease expires, so
// this is a startup diagnostic rather than an active repair step.
func (q *Queue) RecoverPending(ctx context.Context) (int, error) {
	if err := q.checkOpen(); err != nil {
		return 0, err
	}

	count := 0
	err := q.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		for _, prefix := range []string{prefixPending, prefixLeased} {
			p := []byte(prefix)
			for it.Seek(p); it.ValidForPrefix(p); it.Next() {
				count++
			}
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("badgerqueue: recover: %w", err)
	}
	if count > 0 {
		logging.Info().Int("jobs", count).Msg("badger job queue recovered outstanding jobs from previous run")
	}
	return count, nil
}

// Close shuts the badger database down.
func (q *Queue) Close() error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil
	}
	q.closed = true
	q.mu.Unlock()
	return q.db.Close()
}

func (q *Queue) checkOpen() error {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return queue.ErrClosed
	}
	return nil
}

var _ interface {
	queue.Enqueuer
	queue.Consumer
} = (*Queue)(nil)
