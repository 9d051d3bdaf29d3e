// Skylapse - Distributed Mountain Timelapse Coordination
// SPDX-License-Identifier: AGPL-3.0-or-later

//go:build nats

package natsqueue

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	wmNats "github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	"github.com/ThreeDotsLabs/watermill/message"
	goccyjson "github.com/goccy/go-json"
	natsgo "github.com/nats-io/nats.go"

	"github.com/tomtom215/skylapse/internal/logging"
	"github.com/tomtom215/skylapse/internal/models"
	"github.com/tomtom215/skylapse/internal/queue"
)

// Config configures the JetStream-backed job queue.
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

// DefaultConfig returns sensible JetStream defaults for a multi-host
// deployment.
func DefaultConfig() Config {
	return Config{
		URL:           natsgo.DefaultURL,
		StreamName:    "SKYLAPSE_JOBS",
		DurableName:   "skylapse-worker",
		Topic:         "skylapse.timelapse.jobs",
		AckWait:       5 * time.Minute,
		MaxRedeliver:  5,
		MaxReconnects: -1,
		ReconnectWait: 2 * time.Second,
	}
}

// Queue is a JetStream-backed queue.Backend. It wraps a Watermill
// publisher/subscriber pair the same way the controller's event
// publisher wraps NATS: Watermill handles reconnects and at-least-once
// redelivery, and Skylapse only maps its own job type on and off the
// wire.
type Queue struct {
	cfg        Config
	publisher  message.Publisher
	subscriber message.Subscriber
	logger     watermill.LoggerAdapter

	mu       sync.Mutex
	messages <-chan *message.Message

	pendingMu sync.Mutex
	pending   map[string]*message.Message
}

// Open connects to NATS and binds a JetStream stream/consumer for the job
// topic.
func Open(cfg Config) (*Queue, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("natsqueue: url is required")
	}
	logger := watermill.NewStdLogger(false, false)

	natsOpts := []natsgo.Option{
		natsgo.RetryOnFailedConnect(true),
		natsgo.MaxReconnects(cfg.MaxReconnects),
		natsgo.ReconnectWait(cfg.ReconnectWait),
		natsgo.DisconnectErrHandler(func(nc *natsgo.Conn, err error) {
			if err != nil {
				logging.Warn().Err(err).Msg("nats job queue disconnected")
			}
		}),
		natsgo.ReconnectHandler(func(nc *natsgo.Conn) {
			logging.Info().Str("url", nc.ConnectedUrl()).Msg("nats job queue reconnected")
		}),
	}

	pub, err := wmNats.NewPublisher(wmNats.PublisherConfig{
		URL:         cfg.URL,
		NatsOptions: natsOpts,
		Marshaler:   &wmNats.NATSMarshaler{},
		JetStream: wmNats.JetStreamConfig{
			Disabled:      false,
			AutoProvision: true,
			TrackMsgId:    true,
		},
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("natsqueue: create publisher: %w", err)
	}

	sub, err := wmNats.NewSubscriber(wmNats.SubscriberConfig{
		URL:              cfg.URL,
		QueueGroupPrefix: cfg.DurableName,
		SubscribersCount: 1,
		AckWaitTimeout:   cfg.AckWait,
		CloseTimeout:     30 * time.Second,
		NatsOptions:      natsOpts,
		Unmarshaler:      &wmNats.NATSMarshaler{},
		JetStream: wmNats.JetStreamConfig{
			Disabled:      false,
			AutoProvision: true,
			AckAsync:      false,
			DurablePrefix: cfg.DurableName,
			SubscribeOptions: []natsgo.SubOpt{
				natsgo.MaxDeliver(cfg.MaxRedeliver),
				natsgo.AckWait(cfg.AckWait),
				natsgo.DeliverAll(),
			},
		},
	}, logger)
	if err != nil {
		_ = pub.Close()
		return nil, fmt.Errorf("natsqueue: create subscriber: %w", err)
	}

	logging.Info().Str("url", cfg.URL).Str("topic", cfg.Topic).Msg("nats job queue opened")
	return &Queue{
		cfg:        cfg,
		publisher:  pub,
		subscriber: sub,
		logger:     logger,
		pending:    make(map[string]*message.Message),
	}, nil
}

// Enqueue satisfies queue.Enqueuer and internal/scheduler.JobEnqueuer.
func (q *Queue) Enqueue(ctx context.Context, job models.TimelapseJob) error {
	payload, err := goccyjson.Marshal(job)
	if err != nil {
		return fmt.Errorf("natsqueue: marshal job: %w", err)
	}

	msg := message.NewMessage(watermill.NewUUID(), payload)
	if err := q.publisher.Publish(q.cfg.Topic, msg); err != nil {
		return fmt.Errorf("natsqueue: publish: %w", err)
	}
	return nil
}

// Dequeue pulls the next message off the subscription, lazily
// subscribing on first call.
func (q *Queue) Dequeue(ctx context.Context) (*queue.Delivery, error) {
	ch, err := q.subscription(ctx)
	if err != nil {
		return nil, err
	}

	select {
	case msg, ok := <-ch:
		if !ok {
			return nil, queue.ErrClosed
		}
		var job models.TimelapseJob
		if err := goccyjson.Unmarshal(msg.Payload, &job); err != nil {
			msg.Nack()
			return nil, fmt.Errorf("natsqueue: unmarshal job: %w", err)
		}

		q.pendingMu.Lock()
		q.pending[msg.UUID] = msg
		q.pendingMu.Unlock()

		return &queue.Delivery{Job: job, DeliveryID: msg.UUID, Attempts: 1}, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (q *Queue) subscription(ctx context.Context) (<-chan *message.Message, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.messages != nil {
		return q.messages, nil
	}
	ch, err := q.subscriber.Subscribe(ctx, q.cfg.Topic)
	if err != nil {
		return nil, fmt.Errorf("natsqueue: subscribe: %w", err)
	}
	q.messages = ch
	return ch, nil
}

// Ack acknowledges the underlying JetStream message.
func (q *Queue) Ack(ctx context.Context, deliveryID string) error {
	msg := q.takePending(deliveryID)
	if msg == nil {
		return nil
	}
	msg.Ack()
	return nil
}

// Nack requests JetStream redeliver the message after AckWait elapses.
func (q *Queue) Nack(ctx context.Context, deliveryID string) error {
	msg := q.takePending(deliveryID)
	if msg == nil {
		return nil
	}
	msg.Nack()
	return nil
}

func (q *Queue) takePending(deliveryID string) *message.Message {
	q.pendingMu.Lock()
	defer q.pendingMu.Unlock()
	msg := q.pending[deliveryID]
	delete(q.pending, deliveryID)
	return msg
}

// RecoverPending is a no-op: JetStream durably tracks unacked messages
// itself and redelivers them to whichever consumer reconnects, so there
// is nothing for Skylapse to recover on its own.
func (q *Queue) RecoverPending(ctx context.Context) (int, error) {
	return 0, nil
}

// Close shuts down the publisher and subscriber.
func (q *Queue) Close() error {
	errPub := q.publisher.Close()
	errSub := q.subscriber.Close()
	if errPub != nil {
		return errPub
	}
	return errSub
}

var _ interface {
	queue.Enqueuer
	queue.Consumer
} = (*Queue)(nil)
