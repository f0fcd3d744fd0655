// Package goroutine runs background jobs (message consumers, fire-and-forget
// publishes) under a concurrency cap, recovering panics and collecting errors
// so the application can wait for them on shutdown.
package goroutine

import (
	"context"
	"errors"
	"log/slog"
	"runtime"
	"runtime/debug"
	"sync"

	"github.com/K-Santhoshkumar/GS/internal/pkg/stacktrace"
)

// DefaultPerCPU is multiplied by runtime.NumCPU when no explicit limit is given.
const DefaultPerCPU int = 100

// Manager bounds and tracks background goroutines.
type Manager struct {
	wg   sync.WaitGroup
	sema chan struct{}

	mu     sync.Mutex
	errs   []error
	closed bool
}

// NewManager returns a Manager allowing at most limit concurrent jobs.
func NewManager(limit int) *Manager {
	if limit < 1 {
		limit = runtime.NumCPU() * DefaultPerCPU
	}
	return &Manager{sema: make(chan struct{}, limit)}
}

// Go starts f unless the manager is closed or saturated; both cases are logged
// and f is dropped. The returned bool reports whether f was started.
func (m *Manager) Go(ctx context.Context, f func(ctx context.Context) error) bool {
	if m == nil {
		return false
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		slog.WarnContext(ctx, "goroutine manager closed, job dropped")
		return false
	}

	select {
	case m.sema <- struct{}{}:
	default:
		m.mu.Unlock()
		slog.WarnContext(ctx, "goroutine limit reached, job dropped", "limit", cap(m.sema))
		return false
	}
	m.wg.Add(1)
	m.mu.Unlock()

	go func() {
		defer m.wg.Done()
		defer func() { <-m.sema }()
		defer m.recover(ctx)

		if ctx.Err() != nil {
			slog.WarnContext(ctx, "goroutine skipped, context done", "because", ctx.Err())
			return
		}

		if err := f(ctx); err != nil {
			m.mu.Lock()
			m.errs = append(m.errs, err)
			m.mu.Unlock()
		}
	}()

	return true
}

func (m *Manager) recover(ctx context.Context) {
	rvr := recover()
	if rvr == nil {
		return
	}

	stack := debug.Stack()
	if paths := stacktrace.InternalPaths(stack); len(paths) > 0 {
		slog.ErrorContext(ctx, "panic in goroutine", "because", rvr, "stack", paths)
		return
	}
	slog.ErrorContext(ctx, "panic in goroutine", "because", rvr, "stack", string(stack))
}

// Wait closes the manager to new jobs, blocks until running ones return and
// joins their errors.
func (m *Manager) Wait() error {
	if m == nil {
		return nil
	}

	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()

	m.wg.Wait()

	m.mu.Lock()
	defer m.mu.Unlock()
	return errors.Join(m.errs...)
}
