package fixture

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Executor owns the goroutines of one side of a scenario. Each fixture
// creates its own server and client executors and shuts both down on Close;
// nothing is shared between scenarios.
type Executor struct {
	name   string
	ctx    context.Context
	cancel context.CancelFunc
	logger *slog.Logger

	wg      sync.WaitGroup
	mu      sync.Mutex
	closed  bool
	running int
}

// NewExecutor creates an Executor whose tasks observe a context cancelled by Close
func NewExecutor(name string, logger *slog.Logger) *Executor {
	ctx, cancel := context.WithCancel(context.Background())
	return &Executor{
		name:   name,
		ctx:    ctx,
		cancel: cancel,
		logger: logger.With("executor", name),
	}
}

// Context is cancelled when the executor shuts down
func (e *Executor) Context() context.Context {
	return e.ctx
}

// Go runs fn on a new goroutine tracked by the executor. It reports false if
// the executor is already closed.
func (e *Executor) Go(fn func(ctx context.Context)) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return false
	}
	e.running++
	e.wg.Add(1)
	go func() {
		defer func() {
			e.mu.Lock()
			e.running--
			e.mu.Unlock()
			e.wg.Done()
		}()
		fn(e.ctx)
	}()
	return true
}

// Running returns the number of tasks that have not returned yet
func (e *Executor) Running() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.running
}

// Close cancels the executor's context and waits up to grace for its tasks.
// Tasks still running afterwards are reported as an error. Close is safe to
// call more than once.
func (e *Executor) Close(grace time.Duration) error {
	e.mu.Lock()
	e.closed = true
	e.mu.Unlock()
	e.cancel()

	done := make(chan struct{})
	go func() {
		e.wg.Wait()
		close(done)
	}()

	timer := time.NewTimer(grace)
	defer timer.Stop()

	select {
	case <-done:
		e.logger.Debug("executor stopped")
		return nil
	case <-timer.C:
		n := e.Running()
		e.logger.Warn("executor tasks still running after shutdown", "tasks", n, "grace", grace)
		return fmt.Errorf("%s executor: %d task(s) still running after %s", e.name, n, grace)
	}
}
