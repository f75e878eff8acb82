// Package loop runs tasks one at a time on a single goroutine.
//
// A room session owns exactly one Loop. Inbound frames, timer callbacks and user actions are all
// posted to it, so the state they touch is only ever mutated from that goroutine.
package loop

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"

	"github.com/NguyenNhatquang522004/Nexus-Learn-sub001/internal/errors"
)

const defaultQueueSize = 256

type Loop struct {
	tasks    chan func()
	stopped  chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

func New() *Loop {
	return &Loop{
		tasks:   make(chan func(), defaultQueueSize),
		stopped: make(chan struct{}),
		done:    make(chan struct{}),
	}
}

// Run processes tasks until Stop is called. It must be called exactly once.
func (l *Loop) Run() {
	defer close(l.done)

	for {
		select {
		case <-l.stopped:
			return
		case f := <-l.tasks:
			l.exec(f)
		}
	}
}

func (l *Loop) exec(f func()) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("loop: task panic",
				"error", fmt.Errorf("%v, stack: %s", r, debug.Stack()),
			)
		}
	}()

	f()
}

// Post queues f and returns immediately. It reports false if the loop has been stopped.
func (l *Loop) Post(f func()) bool {
	select {
	case <-l.stopped:
		return false
	default:
	}

	select {
	case l.tasks <- f:
		return true
	case <-l.stopped:
		return false
	}
}

// Do runs f on the loop and waits for it to finish. It must not be called from a task.
func (l *Loop) Do(ctx context.Context, f func()) error {
	finished := make(chan struct{})
	ok := l.Post(func() {
		defer close(finished)
		f()
	})
	if !ok {
		return errors.New(errors.CodeFailedPrecondition, errors.WithMessagef("loop: stopped"))
	}

	select {
	case <-finished:
		return nil
	case <-l.done:
		select {
		case <-finished:
			return nil
		default:
			return errors.New(errors.CodeFailedPrecondition, errors.WithMessagef("loop: stopped"))
		}
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stop ends Run after the current task and waits for it to return. Queued tasks are discarded.
func (l *Loop) Stop() {
	l.stopOnce.Do(func() {
		close(l.stopped)
	})
	<-l.done
}
