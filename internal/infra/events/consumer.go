package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"telegram-link-notifier/internal/config"
	"telegram-link-notifier/internal/domain"
	"telegram-link-notifier/internal/domain/model"
	"telegram-link-notifier/internal/infra/logging"
	"telegram-link-notifier/internal/infra/metrics"
	"telegram-link-notifier/internal/infra/worker"
)

// Notifier is the part of the notification use case events drive.
type Notifier interface {
	NotifyShipment(ctx context.Context, s model.Shipment, kind model.EventKind, userIDs []string) (model.DispatchResult, error)
	NotifyDisruption(ctx context.Context, d model.Disruption, s *model.Shipment, userIDs []string) (model.DispatchResult, error)
	SubscribeUser(ctx context.Context, userID, entityID string) error
}

// acker is satisfied by *nats.Msg.
type acker interface {
	Ack(opts ...nats.AckOpt) error
	Nak(opts ...nats.AckOpt) error
	Term(opts ...nats.AckOpt) error
}

const (
	fetchBatch   = 10
	fetchMaxWait = 5 * time.Second
	ackWait      = time.Minute
	maxDeliver   = 5
)

// Consumer reads platform events from a JetStream pull consumer and hands
// them to the worker pool.
type Consumer struct {
	js     nats.JetStreamContext
	pool   *worker.Pool
	notify Notifier
	cfg    config.NATSConfig
	log    *zerolog.Logger
}

func NewConsumer(js nats.JetStreamContext, pool *worker.Pool, notify Notifier, cfg config.NATSConfig, logger *zerolog.Logger) *Consumer {
	compLog := logger.With().Str("component", "EventConsumer").Logger()
	return &Consumer{js: js, pool: pool, notify: notify, cfg: cfg, log: &compLog}
}

// ensure creates the stream and durable consumer when missing.
func (c *Consumer) ensure() error {
	if _, err := c.js.StreamInfo(c.cfg.Stream); err != nil {
		if _, err := c.js.AddStream(&nats.StreamConfig{
			Name:     c.cfg.Stream,
			Subjects: []string{c.cfg.Subject},
			MaxAge:   7 * 24 * time.Hour,
		}); err != nil {
			return fmt.Errorf("create stream: %w", err)
		}
	}
	if _, err := c.js.ConsumerInfo(c.cfg.Stream, c.cfg.Durable); err != nil {
		if _, err := c.js.AddConsumer(c.cfg.Stream, &nats.ConsumerConfig{
			Durable:       c.cfg.Durable,
			AckPolicy:     nats.AckExplicitPolicy,
			AckWait:       ackWait,
			MaxDeliver:    maxDeliver,
			FilterSubject: c.cfg.Subject,
		}); err != nil {
			return fmt.Errorf("create consumer: %w", err)
		}
	}
	return nil
}

// Run blocks fetching batches until ctx is cancelled.
func (c *Consumer) Run(ctx context.Context) error {
	if err := c.ensure(); err != nil {
		return err
	}
	sub, err := c.js.PullSubscribe(c.cfg.Subject, c.cfg.Durable, nats.BindStream(c.cfg.Stream))
	if err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}
	defer func() { _ = sub.Unsubscribe() }()

	c.log.Info().Str("stream", c.cfg.Stream).Str("subject", c.cfg.Subject).Msg("consuming platform events")
	for {
		if ctx.Err() != nil {
			return nil
		}
		msgs, err := sub.Fetch(fetchBatch, nats.MaxWait(fetchMaxWait))
		if err != nil && !errors.Is(err, nats.ErrTimeout) {
			c.log.Error().Err(err).Msg("failed to fetch messages")
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(time.Second):
			}
			continue
		}
		for _, msg := range msgs {
			err := c.pool.SubmitWait(ctx, func(ctx context.Context) error {
				c.handleMessage(ctx, msg.Data, msg)
				return nil
			})
			if err != nil {
				// not acked: redelivered after AckWait
				c.log.Warn().Err(err).Msg("event not scheduled")
				_ = msg.Nak()
			}
		}
	}
}

// handleMessage decodes and processes one event, then settles the message.
// Malformed events are terminated so they are not redelivered.
func (c *Consumer) handleMessage(ctx context.Context, data []byte, m acker) {
	var ev PlatformEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		metrics.IncPlatformEvent("unknown", "invalid")
		c.log.Warn().Err(err).Msg("undecodable platform event")
		_ = m.Term()
		return
	}
	l := logging.With(ctx, c.log).With().Str("type", ev.Type).Str("entity_id", ev.EntityID()).Logger()

	if err := c.process(ctx, &ev); err != nil {
		if errors.Is(err, domain.ErrInvalidArgument) {
			metrics.IncPlatformEvent(ev.Type, "invalid")
			l.Warn().Err(err).Msg("invalid platform event")
			_ = m.Term()
			return
		}
		metrics.IncPlatformEvent(ev.Type, "error")
		l.Error().Err(err).Msg("platform event failed")
		_ = m.Nak()
		return
	}
	metrics.IncPlatformEvent(ev.Type, "ok")
	_ = m.Ack()
}

func (c *Consumer) process(ctx context.Context, ev *PlatformEvent) error {
	if err := ev.Validate(); err != nil {
		return err
	}

	if id := ev.EntityID(); id != "" {
		for _, owner := range ev.OwnerUserIDs {
			// Unlinked owners have no chat to follow with.
			if err := c.notify.SubscribeUser(ctx, owner, id); err != nil && !errors.Is(err, domain.ErrNotFound) {
				if errors.Is(err, domain.ErrInvalidArgument) {
					continue
				}
				return fmt.Errorf("subscribe owner %s: %w", owner, err)
			}
		}
	}

	var err error
	if kind, ok := ev.ShipmentKind(); ok {
		_, err = c.notify.NotifyShipment(ctx, *ev.Shipment, kind, nil)
	} else {
		_, err = c.notify.NotifyDisruption(ctx, *ev.Disruption, ev.Shipment, nil)
	}
	return err
}
