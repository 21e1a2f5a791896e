// Package app contains the event fan-out service.
package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/fd1az/flashloan-arb/business/events/domain"
	"github.com/fd1az/flashloan-arb/internal/apperror"
	"github.com/fd1az/flashloan-arb/internal/logger"
)

const meterName = "github.com/fd1az/flashloan-arb/business/events"

// DefaultQueueSize is the per-subscriber event buffer used when none is configured.
const DefaultQueueSize = 64

// DefaultSendTimeout bounds a single Send call.
const DefaultSendTimeout = 10 * time.Second

type broadcasterMetrics struct {
	events  metric.Int64Counter
	removed metric.Int64Counter
	dropped metric.Int64Counter
}

type envelope struct {
	ctx context.Context
	e   domain.Event
}

// registration owns one subscriber's queue. The queue is drained by a
// dedicated goroutine so a slow subscriber only delays itself.
type registration struct {
	name  string
	sub   domain.Subscriber
	queue chan envelope
}

// Broadcaster fans events out to registered subscribers. Delivery is
// best-effort and at most once; a subscriber whose Send fails is removed and
// an event is dropped for a subscriber whose queue is full.
type Broadcaster struct {
	log         logger.LoggerInterface
	metrics     *broadcasterMetrics
	now         func() time.Time
	queueSize   int
	sendTimeout time.Duration

	mu     sync.RWMutex
	subs   map[string]*registration
	closed bool
	wg     sync.WaitGroup
}

// BroadcasterOption configures a Broadcaster.
type BroadcasterOption func(*Broadcaster)

// WithQueueSize sets the per-subscriber buffer.
func WithQueueSize(n int) BroadcasterOption {
	return func(b *Broadcaster) {
		if n > 0 {
			b.queueSize = n
		}
	}
}

// WithSendTimeout bounds each Send call.
func WithSendTimeout(d time.Duration) BroadcasterOption {
	return func(b *Broadcaster) {
		if d > 0 {
			b.sendTimeout = d
		}
	}
}

// NewBroadcaster creates an empty broadcaster.
func NewBroadcaster(log logger.LoggerInterface, opts ...BroadcasterOption) (*Broadcaster, error) {
	b := &Broadcaster{
		log:         log,
		now:         time.Now,
		queueSize:   DefaultQueueSize,
		sendTimeout: DefaultSendTimeout,
		subs:        make(map[string]*registration),
	}
	for _, opt := range opts {
		opt(b)
	}
	if err := b.initMetrics(); err != nil {
		return nil, fmt.Errorf("init metrics: %w", err)
	}
	return b, nil
}

func (b *Broadcaster) initMetrics() error {
	meter := otel.Meter(meterName)
	var err error

	b.metrics = &broadcasterMetrics{}

	b.metrics.events, err = meter.Int64Counter(
		"events_broadcast_total",
		metric.WithDescription("Events fanned out, by type"),
	)
	if err != nil {
		return err
	}

	b.metrics.removed, err = meter.Int64Counter(
		"events_subscribers_removed_total",
		metric.WithDescription("Subscribers dropped after a failed send"),
	)
	if err != nil {
		return err
	}

	b.metrics.dropped, err = meter.Int64Counter(
		"events_dropped_total",
		metric.WithDescription("Events discarded because a subscriber queue was full"),
	)
	return err
}

// Register adds sub and returns the id used to unregister it. Registering
// after Close returns an empty id and the subscriber never receives events.
func (b *Broadcaster) Register(name string, sub domain.Subscriber) string {
	id := uuid.NewString()
	reg := &registration{name: name, sub: sub, queue: make(chan envelope, b.queueSize)}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return ""
	}
	b.subs[id] = reg
	b.wg.Add(1)
	b.mu.Unlock()

	go b.drain(id, reg)

	b.log.Debug(context.Background(), "subscriber registered", "id", id, "name", name)
	return id
}

// Unregister removes a subscriber. Events already queued for it are still
// delivered. Unknown ids are ignored.
func (b *Broadcaster) Unregister(id string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	reg, ok := b.subs[id]
	if !ok {
		return false
	}
	delete(b.subs, id)
	close(reg.queue)
	return true
}

// Count returns the number of registered subscribers.
func (b *Broadcaster) Count() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Broadcast wraps payload in an Event and publishes it.
func (b *Broadcaster) Broadcast(ctx context.Context, eventType domain.EventType, payload any) {
	b.Publish(ctx, domain.NewEvent(eventType, payload, b.now()))
}

// Publish queues e for every subscriber and returns without waiting for
// delivery. The caller's cancellation does not reach the sends.
func (b *Broadcaster) Publish(ctx context.Context, e domain.Event) {
	b.metrics.events.Add(ctx, 1, metric.WithAttributes(attribute.String("type", string(e.Type))))

	env := envelope{ctx: context.WithoutCancel(ctx), e: e}

	b.mu.RLock()
	defer b.mu.RUnlock()

	for id, reg := range b.subs {
		select {
		case reg.queue <- env:
		default:
			b.metrics.dropped.Add(ctx, 1, metric.WithAttributes(attribute.String("subscriber", reg.name)))
			b.log.Warn(ctx, "subscriber queue full, event dropped",
				"id", id,
				"name", reg.name,
				"event_id", e.ID,
				"event_type", e.Type)
		}
	}
}

// Close unregisters every subscriber and waits for queued events to be
// delivered or time out.
func (b *Broadcaster) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	for id, reg := range b.subs {
		delete(b.subs, id)
		close(reg.queue)
	}
	b.mu.Unlock()

	b.wg.Wait()
	return nil
}

func (b *Broadcaster) drain(id string, reg *registration) {
	defer b.wg.Done()

	failed := false
	for env := range reg.queue {
		if failed {
			continue
		}
		ctx, cancel := context.WithTimeout(env.ctx, b.sendTimeout)
		err := reg.sub.Send(ctx, env.e)
		cancel()
		if err != nil {
			failed = true
			b.drop(env.ctx, id, reg.name, env.e, err)
		}
	}
}

func (b *Broadcaster) drop(ctx context.Context, id, name string, e domain.Event, err error) {
	if !b.Unregister(id) {
		return
	}
	b.metrics.removed.Add(ctx, 1, metric.WithAttributes(attribute.String("subscriber", name)))

	appErr := apperror.New(apperror.CodeSubscriberSendFailed,
		apperror.WithCause(err),
		apperror.WithContext(name))
	b.log.Warn(ctx, "subscriber removed",
		"id", id,
		"name", name,
		"event_id", e.ID,
		"event_type", e.Type,
		"error", appErr)
}
