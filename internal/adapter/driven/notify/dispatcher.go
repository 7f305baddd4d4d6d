// Package notify implements the fire-and-forget notification sink. The
// Dispatcher queues notifications in memory and fans them out to Senders in
// the background, so a slow or failing channel never blocks moderation.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"

	"github.com/ericfisherdev/reviewmod/internal/domain/model"
	"github.com/ericfisherdev/reviewmod/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.Notifier = (*Dispatcher)(nil)

// Defaults used when Config fields are zero.
const (
	DefaultQueueSize    = 256
	DefaultMaxRetries   = 3
	DefaultDrainTimeout = 5 * time.Second
)

// Sender delivers a notification over one channel.
type Sender interface {
	Name() string
	Send(ctx context.Context, n model.Notification) error
}

// DeliveryRecorder observes dispatcher outcomes. Implementations must be
// safe for concurrent use.
type DeliveryRecorder interface {
	NotificationQueued(t model.NotificationType)
	NotificationDropped(t model.NotificationType)
	NotificationDelivered(sender string, t model.NotificationType)
	NotificationFailed(sender string, t model.NotificationType)
}

type nopDeliveryRecorder struct{}

func (nopDeliveryRecorder) NotificationQueued(model.NotificationType)            {}
func (nopDeliveryRecorder) NotificationDropped(model.NotificationType)           {}
func (nopDeliveryRecorder) NotificationDelivered(string, model.NotificationType) {}
func (nopDeliveryRecorder) NotificationFailed(string, model.NotificationType)    {}

// Config tunes the Dispatcher.
type Config struct {
	QueueSize    int
	MaxRetries   uint64
	DrainTimeout time.Duration
	// NewBackOff builds the retry schedule for one delivery attempt.
	// Defaults to an exponential backoff.
	NewBackOff func() backoff.BackOff
}

func (c Config) withDefaults() Config {
	if c.QueueSize <= 0 {
		c.QueueSize = DefaultQueueSize
	}
	if c.MaxRetries == 0 {
		c.MaxRetries = DefaultMaxRetries
	}
	if c.DrainTimeout <= 0 {
		c.DrainTimeout = DefaultDrainTimeout
	}
	if c.NewBackOff == nil {
		c.NewBackOff = func() backoff.BackOff {
			return backoff.NewExponentialBackOff(
				backoff.WithInitialInterval(200*time.Millisecond),
				backoff.WithMaxInterval(5*time.Second),
				backoff.WithMaxElapsedTime(30*time.Second),
			)
		}
	}
	return c
}

// Dispatcher is an asynchronous driven.Notifier.
type Dispatcher struct {
	cfg      Config
	queue    chan model.Notification
	senders  []Sender
	recorder DeliveryRecorder
	now      func() time.Time
}

// NewDispatcher creates a Dispatcher that delivers to senders in order.
// recorder may be nil.
func NewDispatcher(cfg Config, recorder DeliveryRecorder, senders ...Sender) *Dispatcher {
	cfg = cfg.withDefaults()
	if recorder == nil {
		recorder = nopDeliveryRecorder{}
	}

	return &Dispatcher{
		cfg:      cfg,
		queue:    make(chan model.Notification, cfg.QueueSize),
		senders:  senders,
		recorder: recorder,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Notify stamps n with an ID and creation time and enqueues it. It never
// blocks: when the queue is full the notification is dropped and logged.
func (d *Dispatcher) Notify(_ context.Context, n model.Notification) {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = d.now()
	}

	select {
	case d.queue <- n:
		d.recorder.NotificationQueued(n.Type)
	default:
		d.recorder.NotificationDropped(n.Type)
		slog.Warn("notification queue full, dropping notification",
			"notification_id", n.ID,
			"type", string(n.Type),
			"queue_size", d.cfg.QueueSize,
		)
	}
}

// Run delivers queued notifications until ctx is canceled, then drains what
// is already queued within the drain timeout.
func (d *Dispatcher) Run(ctx context.Context) {
	slog.Info("notification dispatcher started", "senders", len(d.senders), "queue_size", d.cfg.QueueSize)

	for {
		select {
		case <-ctx.Done():
			d.drain(ctx)
			slog.Info("notification dispatcher stopped")
			return
		case n := <-d.queue:
			d.deliver(ctx, n)
		}
	}
}

func (d *Dispatcher) drain(ctx context.Context) {
	drainCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.cfg.DrainTimeout)
	defer cancel()

	for {
		select {
		case n := <-d.queue:
			d.deliver(drainCtx, n)
		default:
			return
		}
	}
}

// deliver sends n to every sender, retrying each independently.
func (d *Dispatcher) deliver(ctx context.Context, n model.Notification) {
	for _, s := range d.senders {
		err := backoff.Retry(func() error {
			return safeSend(ctx, s, n)
		}, backoff.WithContext(backoff.WithMaxRetries(d.cfg.NewBackOff(), d.cfg.MaxRetries), ctx))

		if err != nil {
			d.recorder.NotificationFailed(s.Name(), n.Type)
			slog.Warn("notification delivery failed",
				"sender", s.Name(),
				"notification_id", n.ID,
				"type", string(n.Type),
				"error", err,
			)
			continue
		}
		d.recorder.NotificationDelivered(s.Name(), n.Type)
	}
}

// safeSend turns a sender panic into a permanent error.
func safeSend(ctx context.Context, s Sender, n model.Notification) (err error) {
	defer func() {
		if v := recover(); v != nil {
			err = backoff.Permanent(fmt.Errorf("sender %s panicked: %v", s.Name(), v))
		}
	}()
	return s.Send(ctx, n)
}
