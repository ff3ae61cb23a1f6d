// Package eventloop implements a single background serialization point
// for native calls: a dedicated goroutine that drains a task channel so
// that no two calls into the audio/video streamers or their underlying
// libraries ever run concurrently.
package eventloop

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

type task struct {
	fn   func(ctx context.Context) (any, error)
	done chan taskResult
}

type taskResult struct {
	value any
	err   error
}

// Loop is a single-goroutine task serializer. The zero value is not
// usable; construct one with New.
type Loop struct {
	tasks  chan task
	ready  chan struct{}
	done   chan struct{}
	logger *slog.Logger

	closeOnce sync.Once
}

// New starts the loop's goroutine and returns once it is ready to accept
// tasks, blocking the caller on a latch until the loop's goroutine has
// actually started running.
func New(logger *slog.Logger) *Loop {
	if logger == nil {
		logger = slog.Default()
	}
	l := &Loop{
		tasks:  make(chan task, 64),
		ready:  make(chan struct{}),
		done:   make(chan struct{}),
		logger: logger.With("component", "eventloop"),
	}
	go l.run()
	<-l.ready
	return l
}

func (l *Loop) run() {
	close(l.ready)
	for t := range l.tasks {
		l.execute(t)
	}
	close(l.done)
}

func (l *Loop) execute(t task) {
	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("eventloop: task panicked: %v", r)
			l.logger.Error("task panicked", "err", err)
			if t.done != nil {
				t.done <- taskResult{err: err}
			}
		}
	}()
	v, err := t.fn(context.Background())
	if t.done != nil {
		t.done <- taskResult{value: v, err: err}
	}
}

// Post enqueues fn to run on the loop goroutine without waiting for its
// result ("fire-and-forget").
func (l *Loop) Post(fn func(ctx context.Context) (any, error)) {
	select {
	case l.tasks <- task{fn: fn}:
	case <-l.done:
		l.logger.Warn("post after loop stopped, dropping task")
	}
}

// PostDelayed enqueues fn to run after delay, without waiting for its
// result.
func (l *Loop) PostDelayed(delay time.Duration, fn func(ctx context.Context) (any, error)) {
	timer := time.AfterFunc(delay, func() {
		l.Post(fn)
	})
	_ = timer
}

// Call enqueues fn and suspends the caller until it completes on the
// loop goroutine, returning its result or error. A panic inside fn
// propagates back to the caller as a typed error rather than crashing
// the loop.
func (l *Loop) Call(ctx context.Context, fn func(ctx context.Context) (any, error)) (any, error) {
	done := make(chan taskResult, 1)
	select {
	case l.tasks <- task{fn: fn, done: done}:
	case <-l.done:
		return nil, fmt.Errorf("eventloop: call after loop stopped")
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	select {
	case res := <-done:
		return res.value, res.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Stop drains any queued tasks and terminates the loop goroutine. Safe
// to call more than once.
func (l *Loop) Stop() {
	l.closeOnce.Do(func() {
		close(l.tasks)
	})
	<-l.done
}
