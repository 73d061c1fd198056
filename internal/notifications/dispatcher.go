package notifications

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/angelmondragon/supplyhub-backend/pkg/logger"
	"github.com/angelmondragon/supplyhub-backend/pkg/metrics"
)

const (
	defaultQueueSize = 1024
	defaultWorkers   = 4
)

// Publisher accepts events without waiting for delivery.
type Publisher interface {
	Publish(ctx context.Context, event Event)
}

// Sink delivers a single event.
type Sink interface {
	Deliver(ctx context.Context, event Event) error
}

// Options sizes the dispatcher queue and worker pool.
type Options struct {
	QueueSize int
	Workers   int
}

type queued struct {
	ctx   context.Context
	event Event
}

// Dispatcher queues events on a bounded channel drained by worker goroutines.
// Publish never blocks: when the queue is full the event is dropped.
type Dispatcher struct {
	sink    Sink
	logg    *logger.Logger
	metrics *metrics.LedgerMetrics
	workers int

	mu      sync.RWMutex
	closed  bool
	queue   chan queued
	wg      sync.WaitGroup
	started sync.Once
}

// NewDispatcher builds a dispatcher; call Start to begin delivery.
func NewDispatcher(sink Sink, logg *logger.Logger, m *metrics.LedgerMetrics, opts Options) (*Dispatcher, error) {
	if sink == nil {
		return nil, fmt.Errorf("notification sink required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = defaultQueueSize
	}
	if opts.Workers <= 0 {
		opts.Workers = defaultWorkers
	}
	return &Dispatcher{
		sink:    sink,
		logg:    logg,
		metrics: m,
		workers: opts.Workers,
		queue:   make(chan queued, opts.QueueSize),
	}, nil
}

// Start launches the worker pool. Subsequent calls are no-ops.
func (d *Dispatcher) Start() {
	d.started.Do(func() {
		for i := 0; i < d.workers; i++ {
			d.wg.Add(1)
			go d.run()
		}
	})
}

// Publish enqueues event for delivery. Request cancellation does not cancel delivery.
func (d *Dispatcher) Publish(ctx context.Context, event Event) {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}
	logCtx := d.logg.WithFields(ctx, event.logFields())
	if err := event.Validate(); err != nil {
		d.logg.Warn(d.logg.WithField(logCtx, "error", err.Error()), "notification rejected")
		d.metrics.NotificationDropped(event.Type.String())
		return
	}

	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		d.logg.Warn(logCtx, "notification dropped: dispatcher closed")
		d.metrics.NotificationDropped(event.Type.String())
		return
	}

	select {
	case d.queue <- queued{ctx: context.WithoutCancel(ctx), event: event}:
	default:
		d.logg.Warn(logCtx, "notification dropped: queue full")
		d.metrics.NotificationDropped(event.Type.String())
	}
}

// Close stops accepting events and waits for queued ones to drain or ctx to end.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.queue)
	}
	d.mu.Unlock()

	d.Start()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *Dispatcher) run() {
	defer d.wg.Done()
	for item := range d.queue {
		d.deliver(item)
	}
}

func (d *Dispatcher) deliver(item queued) {
	logCtx := d.logg.WithFields(item.ctx, item.event.logFields())
	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("notification sink panic: %v", r)
			d.logg.Error(logCtx, "notification delivery failed", err)
			d.metrics.NotificationDelivered(item.event.Type.String(), err)
		}
	}()

	err := d.sink.Deliver(item.ctx, item.event)
	d.metrics.NotificationDelivered(item.event.Type.String(), err)
	if err != nil {
		d.logg.Error(logCtx, "notification delivery failed", err)
	}
}
