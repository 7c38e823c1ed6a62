// Package shutdownqueue keeps a process-wide LIFO list of named cleanup
// tasks: connections, schedulers and servers register as they are opened and
// are released in reverse order when main drains the queue:
//
//	defer func() {
//		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
//		defer cancel()
//		_ = shutdownqueue.Shutdown(ctx)
//	}()
//
// Each task runs once. A panicking task is recovered and reported as an
// error; the remaining tasks still run.
package shutdownqueue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Task releases one resource. It should give up when ctx is done.
type Task func(ctx context.Context) error

type entry struct {
	name string
	run  Task
}

type queue struct {
	mu      sync.Mutex
	entries []entry
	closed  bool
}

var q = &queue{entries: make([]entry, 0, 8)}

// Add registers an unnamed task; it is reported by position.
func Add(t Task) {
	q.mu.Lock()
	name := fmt.Sprintf("task #%d", len(q.entries)+1)
	q.mu.Unlock()

	AddNamed(name, t)
}

// AddNamed registers t under name. Nil tasks and tasks added once Shutdown
// has started are ignored.
func AddNamed(name string, t Task) {
	if t == nil {
		return
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		slog.Warn("shutdown already started, task ignored", "task", name)
		return
	}

	q.entries = append(q.entries, entry{name: name, run: t})
}

// Shutdown runs the registered tasks newest first and joins their errors.
// Calls after the first are no-ops. When ctx ends mid-drain the remaining
// tasks are skipped and ctx.Err() is part of the result.
func Shutdown(ctx context.Context) error {
	q.mu.Lock()

	if q.closed && len(q.entries) == 0 {
		q.mu.Unlock()
		return nil
	}

	q.closed = true
	entries := q.entries
	q.entries = nil

	q.mu.Unlock()

	var errs []error

	for i := len(entries) - 1; i >= 0; i-- {
		e := entries[i]

		if ctx.Err() != nil {
			slog.Warn("shutdown interrupted", "pending", i+1, "error", ctx.Err())
			errs = append(errs, fmt.Errorf("shutdown canceled before %s: %w", e.name, ctx.Err()))

			return errors.Join(errs...)
		}

		start := time.Now()

		err := runSafe(ctx, e)
		if err != nil {
			slog.Error("shutdown task failed", "task", e.name, "error", err)
			errs = append(errs, err)

			continue
		}

		slog.Info("shutdown task done", "task", e.name, "took", time.Since(start))
	}

	return errors.Join(errs...)
}

func runSafe(ctx context.Context, e entry) (err error) {
	defer func() {
		r := recover()
		if r != nil {
			err = fmt.Errorf("panic in shutdown task %s: %v", e.name, r)
		}
	}()

	err = e.run(ctx)
	if err != nil {
		return fmt.Errorf("shutdown %s: %w", e.name, err)
	}

	return nil
}
