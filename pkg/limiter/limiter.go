// Package limiter provides decorators that shape how work reaches an
// executor: ExecutorLimiter caps how many tasks run at once, and
// RateLimiterExecutor meters submissions against a scheduler so permit
// consumption never exceeds a configured rate.
package limiter

import (
	"fmt"
	"sync"
	"sync/atomic"

	errs "github.com/zmarkan/threadly/pkg/errors"
	"github.com/zmarkan/threadly/pkg/event"
	"github.com/zmarkan/threadly/pkg/futures"
)

// concurrencyGate is the max-concurrency bookkeeping shared by limiters.
type concurrencyGate struct {
	max     int32
	running atomic.Int32
}

// tryAcquire reserves a run slot. On success the holder must call release
// when the task finishes.
func (g *concurrencyGate) tryAcquire() bool {
	for {
		current := g.running.Load()
		if current >= g.max {
			return false
		}
		if g.running.CompareAndSwap(current, current+1) {
			return true
		}
	}
}

func (g *concurrencyGate) release() {
	g.running.Add(-1)
}

// ExecutorLimiter caps the number of tasks a parent executor runs
// concurrently on this limiter's behalf. Tasks beyond the cap queue FIFO and
// are submitted as running tasks finish.
type ExecutorLimiter struct {
	executor event.Executor
	gate     concurrencyGate

	mu      sync.Mutex
	waiting []func()
}

// NewExecutorLimiter wraps executor with a maxConcurrency cap.
func NewExecutorLimiter(executor event.Executor, maxConcurrency int) (*ExecutorLimiter, error) {
	if err := errs.AssertNotNil(executor, "executor"); err != nil {
		return nil, err
	}
	if err := errs.AssertGreaterThanZero(maxConcurrency, "maxConcurrency"); err != nil {
		return nil, err
	}
	return &ExecutorLimiter{
		executor: executor,
		gate:     concurrencyGate{max: int32(maxConcurrency)},
	}, nil
}

// MaxConcurrency reports the configured cap.
func (l *ExecutorLimiter) MaxConcurrency() int {
	return int(l.gate.max)
}

// CurrentlyRunning reports how many tasks hold a run slot right now.
func (l *ExecutorLimiter) CurrentlyRunning() int {
	return int(l.gate.running.Load())
}

// Execute runs task when a slot is available, queueing it otherwise.
func (l *ExecutorLimiter) Execute(task func()) error {
	if task == nil {
		return fmt.Errorf("%w: task cannot be nil", errs.ErrInvalidArgument)
	}
	if l.gate.tryAcquire() {
		return l.submit(task)
	}

	l.mu.Lock()
	l.waiting = append(l.waiting, task)
	l.mu.Unlock()
	// a slot may have freed between the failed acquire and the append
	l.consumeAvailable()
	return nil
}

// Submit runs task when a slot is available and returns a future completing
// when it has run.
func (l *ExecutorLimiter) Submit(task func()) (futures.ListenableFuture[any], error) {
	if task == nil {
		return nil, fmt.Errorf("%w: task cannot be nil", errs.ErrInvalidArgument)
	}
	f := futures.NewRunnableFuture[any](task, nil)
	if err := l.Execute(func() { _ = f.Run() }); err != nil {
		return nil, err
	}
	return f, nil
}

// submit hands task to the parent with a completion hook; the caller must
// already hold a slot.
func (l *ExecutorLimiter) submit(task func()) error {
	err := l.executor.Execute(func() {
		defer l.taskFinished()
		task()
	})
	if err != nil {
		l.gate.release()
		return err
	}
	return nil
}

func (l *ExecutorLimiter) taskFinished() {
	l.gate.release()
	l.consumeAvailable()
}

// consumeAvailable runs as many waiting tasks as free slots allow.
func (l *ExecutorLimiter) consumeAvailable() {
	for {
		if !l.gate.tryAcquire() {
			return
		}
		l.mu.Lock()
		if len(l.waiting) == 0 {
			l.mu.Unlock()
			l.gate.release()
			return
		}
		task := l.waiting[0]
		l.waiting = l.waiting[1:]
		l.mu.Unlock()

		if err := l.submit(task); err != nil {
			errs.UncaughtFailure(fmt.Errorf("limiter parent rejected task: %w", err))
		}
	}
}
