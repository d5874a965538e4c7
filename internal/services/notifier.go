package services

import (
	"context"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"

	"unistay/internal/utils"
)

type NotificationKind string

const (
	KindInterestCreated      NotificationKind = "interest_created"
	KindAvailabilityProposed NotificationKind = "availability_proposed"
	KindAppointmentAccepted  NotificationKind = "appointment_accepted"
	KindStatusChanged        NotificationKind = "status_changed"
	KindInterestCancelled    NotificationKind = "interest_cancelled"
	KindPasswordReset        NotificationKind = "password_reset"
	KindWelcome              NotificationKind = "welcome"
)

type Notification struct {
	To      string
	Subject string
	Body    string
	Kind    NotificationKind
}

// Notifier accepts notifications without blocking the caller.
type Notifier interface {
	Enqueue(n Notification)
}

// Channel is one delivery medium.
type Channel interface {
	Name() string
	Deliver(ctx context.Context, n Notification) error
}

type DispatcherOptions struct {
	Workers        int
	QueueSize      int
	SendTimeout    time.Duration
	MaxAttempts    uint
	InitialBackoff time.Duration
}

// Dispatcher owns a bounded queue drained by a fixed worker pool. Each
// channel is retried independently; failures are logged and dropped.
type Dispatcher struct {
	opts     DispatcherOptions
	channels []Channel
	queue    chan Notification

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

func NewDispatcher(opts DispatcherOptions, channels ...Channel) *Dispatcher {
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = 100
	}
	if opts.SendTimeout <= 0 {
		opts.SendTimeout = 10 * time.Second
	}
	if opts.MaxAttempts == 0 {
		opts.MaxAttempts = 3
	}
	if opts.InitialBackoff <= 0 {
		opts.InitialBackoff = 500 * time.Millisecond
	}
	return &Dispatcher{
		opts:     opts,
		channels: channels,
		queue:    make(chan Notification, opts.QueueSize),
	}
}

// Start launches the workers. Cancelling ctx aborts in-flight retries.
func (d *Dispatcher) Start(ctx context.Context) {
	for i := 0; i < d.opts.Workers; i++ {
		d.wg.Add(1)
		go func() {
			defer d.wg.Done()
			for n := range d.queue {
				d.dispatch(ctx, n)
			}
		}()
	}
}

func (d *Dispatcher) Enqueue(n Notification) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		utils.Logger.Warnf("[notify] dispatcher stopped, dropping %s to %s", n.Kind, n.To)
		return
	}
	select {
	case d.queue <- n:
	default:
		utils.Logger.Warnf("[notify] queue full, dropping %s to %s", n.Kind, n.To)
	}
}

// Stop closes the queue and waits for queued notifications to drain.
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.queue)
	}
	d.mu.Unlock()
	d.wg.Wait()
}

func (d *Dispatcher) dispatch(ctx context.Context, n Notification) {
	for _, ch := range d.channels {
		if err := d.deliver(ctx, ch, n); err != nil {
			utils.Logger.WithError(err).
				WithField("channel", ch.Name()).
				Warnf("[notify] giving up on %s to %s", n.Kind, n.To)
		}
	}
}

func (d *Dispatcher) deliver(ctx context.Context, ch Channel, n Notification) error {
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = d.opts.InitialBackoff

	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		attemptCtx, cancel := context.WithTimeout(ctx, d.opts.SendTimeout)
		defer cancel()
		return struct{}{}, ch.Deliver(attemptCtx, n)
	},
		backoff.WithBackOff(eb),
		backoff.WithMaxTries(d.opts.MaxAttempts),
		backoff.WithNotify(func(err error, next time.Duration) {
			utils.Logger.WithError(err).Debugf("[notify] %s via %s failed, retrying in %s", n.Kind, ch.Name(), next)
		}),
	)
	return err
}

// NopNotifier discards everything.
type NopNotifier struct{}

func (NopNotifier) Enqueue(Notification) {}
