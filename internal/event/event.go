package event

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/NguyenNhatquang522004/Nexus-Learn-sub001/internal/telemetry"
)

const (
	defaultQueueSize = 1024
	defaultTimeout   = 30 * time.Second
)

type Event interface {
	Name() string
}

type Handler func(ctx context.Context, e Event) error

// Bus is an in-memory event bus scoped to one room session.
// Each subscription has its own queue, so a subscriber sees events in the order they were published
// and a slow subscriber does not delay the others. Publish never blocks: an event that does not fit
// in a full queue is dropped for that subscriber and counted.
type Bus struct {
	mu        sync.RWMutex
	wg        sync.WaitGroup
	stopped   bool
	queueSize int
	handlers  map[string][]*subscription
	subs      []*subscription
}

type Option func(b *Bus)

// WithQueueSize sets the number of events buffered per subscription.
func WithQueueSize(n int) Option {
	return func(b *Bus) {
		if n > 0 {
			b.queueSize = n
		}
	}
}

type subscription struct {
	h     Handler
	queue chan delivery
}

type delivery struct {
	ctx context.Context
	e   Event
}

// NewBus create a new event bus. Caller should call Stop for graceful shutdown the bus.
func NewBus(opts ...Option) *Bus {
	b := &Bus{
		queueSize: defaultQueueSize,
		handlers:  make(map[string][]*subscription),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Subscribe to an event
func (b *Bus) Subscribe(name string, h Handler) {
	b.SubscribeMany([]string{name}, h)
}

// SubscribeMany registers one handler for several events. The handler receives all of them
// through a single queue, in publish order.
func (b *Bus) SubscribeMany(names []string, h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.stopped {
		return
	}

	s := &subscription{
		h:     h,
		queue: make(chan delivery, b.queueSize),
	}
	for _, name := range names {
		b.handlers[name] = append(b.handlers[name], s)
	}
	b.subs = append(b.subs, s)

	b.wg.Add(1)
	go b.drain(s)
}

// Publish an event
func (b *Bus) Publish(ctx context.Context, e Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.stopped {
		slog.WarnContext(ctx, "event: bus stopped, event dropped", "event", e.Name())
		return
	}

	for _, s := range b.handlers[e.Name()] {
		select {
		case s.queue <- delivery{ctx: ctx, e: e}:
		default:
			telemetry.EventsDropped.WithLabelValues(e.Name()).Inc()
			slog.WarnContext(ctx, "event: subscriber queue full, event dropped", "event", e.Name())
		}
	}
}

func (b *Bus) drain(s *subscription) {
	defer b.wg.Done()

	for d := range s.queue {
		b.dispatch(s.h, d)
	}
}

func (b *Bus) dispatch(h Handler, d delivery) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(d.ctx), defaultTimeout)
	defer func() {
		if r := recover(); r != nil {
			slog.ErrorContext(ctx, "event: handler panic",
				"error", fmt.Errorf("%v, stack: %s", r, debug.Stack()),
			)
		}

		cancel()
	}()

	if err := h(ctx, d.e); err != nil {
		slog.ErrorContext(ctx, "event: handle event failed",
			"event", d.e.Name(),
			"error", err,
		)
	}
}

// Stop waits for all queued events to be handled. Events published after Stop are dropped.
func (b *Bus) Stop() {
	b.mu.Lock()
	if !b.stopped {
		b.stopped = true
		for _, s := range b.subs {
			close(s.queue)
		}
	}
	b.mu.Unlock()

	b.wg.Wait()
}
