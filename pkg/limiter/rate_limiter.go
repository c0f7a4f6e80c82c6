package limiter

import (
	"fmt"
	"sync"
	"time"

	"github.com/zmarkan/threadly/pkg/clock"
	errs "github.com/zmarkan/threadly/pkg/errors"
	"github.com/zmarkan/threadly/pkg/futures"
)

// Scheduler is the surface the rate limiter needs from an underlying pool.
type Scheduler interface {
	Schedule(task func(), delay time.Duration) (futures.ScheduledFuture[any], error)
	ScheduleCallable(task func() (any, error), delay time.Duration) (futures.ScheduledFuture[any], error)
}

// RateLimiterExecutor schedules tasks so that permits are consumed at no
// more than a configured rate per second. It does not limit concurrency and
// it never blocks: each submission merely computes how far out the task must
// be scheduled, so a burst of submissions is flattened into the future.
//
// The limiter performs no queueing of its own; if tasks are provided faster
// than the rate consumes them, their delays grow without bound. It is a
// burst flattener, not a push-back mechanism.
type RateLimiterExecutor struct {
	scheduler        Scheduler
	permitsPerSecond int

	mu               sync.Mutex
	lastScheduleTime int64
}

// NewRateLimiterExecutor wraps scheduler with a permits-per-second budget.
// permitsPerSecond >= 1.
func NewRateLimiterExecutor(scheduler Scheduler, permitsPerSecond int) (*RateLimiterExecutor, error) {
	if err := errs.AssertNotNil(scheduler, "scheduler"); err != nil {
		return nil, err
	}
	if err := errs.AssertGreaterThanZero(permitsPerSecond, "permitsPerSecond"); err != nil {
		return nil, err
	}
	return &RateLimiterExecutor{
		scheduler:        scheduler,
		permitsPerSecond: permitsPerSecond,
		lastScheduleTime: clock.AccurateMillis(),
	}, nil
}

// MinimumDelay reports how far out the next zero-permit submission would be
// scheduled, which is a measure of how backed up the limiter is.
func (l *RateLimiterExecutor) MinimumDelay() time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()
	return time.Duration(max(0, l.lastScheduleTime-clock.LastKnownMillis())) * time.Millisecond
}

// FutureTillDelay returns a future that completes once the minimum delay
// has fallen to maximumDelay or below. It assumes nothing more is submitted
// after the call; later submissions do not push the future out. Pass zero to
// learn when the next task would run immediately.
func (l *RateLimiterExecutor) FutureTillDelay(maximumDelay time.Duration) futures.ListenableFuture[any] {
	current := l.MinimumDelay()
	if current <= maximumDelay {
		return futures.ImmediateResult[any](nil)
	}
	f, err := l.scheduler.Schedule(func() {}, current-maximumDelay)
	if err != nil {
		return futures.ImmediateFailure[any](err)
	}
	return f
}

// Execute schedules task against a single permit.
func (l *RateLimiterExecutor) Execute(task func()) error {
	return l.ExecutePermits(1, task)
}

// ExecutePermits schedules task against the given permit count. Zero permits
// reserve no budget.
func (l *RateLimiterExecutor) ExecutePermits(permits int, task func()) error {
	if task == nil {
		return fmt.Errorf("%w: task cannot be nil", errs.ErrInvalidArgument)
	}
	if err := errs.AssertNotNegative(permits, "permits"); err != nil {
		return err
	}
	_, err := l.doExecute(permits, func() (any, error) {
		task()
		return nil, nil
	})
	return err
}

// Submit schedules task against a single permit, returning its future.
func (l *RateLimiterExecutor) Submit(task func()) (futures.ScheduledFuture[any], error) {
	return l.SubmitPermitsWithResult(1, task, nil)
}

// SubmitPermits schedules task against the given permit count, returning its
// future.
func (l *RateLimiterExecutor) SubmitPermits(permits int, task func()) (futures.ScheduledFuture[any], error) {
	return l.SubmitPermitsWithResult(permits, task, nil)
}

// SubmitPermitsWithResult schedules task against the given permit count; the
// future yields result once the task has run.
func (l *RateLimiterExecutor) SubmitPermitsWithResult(permits int, task func(), result any) (futures.ScheduledFuture[any], error) {
	if task == nil {
		return nil, fmt.Errorf("%w: task cannot be nil", errs.ErrInvalidArgument)
	}
	if err := errs.AssertNotNegative(permits, "permits"); err != nil {
		return nil, err
	}
	return l.doExecute(permits, func() (any, error) {
		task()
		return result, nil
	})
}

// SubmitCallable schedules a result-producing task against a single permit.
func (l *RateLimiterExecutor) SubmitCallable(task func() (any, error)) (futures.ScheduledFuture[any], error) {
	return l.SubmitCallablePermits(1, task)
}

// SubmitCallablePermits schedules a result-producing task against the given
// permit count.
func (l *RateLimiterExecutor) SubmitCallablePermits(permits int, task func() (any, error)) (futures.ScheduledFuture[any], error) {
	if err := errs.AssertNotNil(task, "task"); err != nil {
		return nil, err
	}
	if err := errs.AssertNotNegative(permits, "permits"); err != nil {
		return nil, err
	}
	return l.doExecute(permits, task)
}

// doExecute schedules the task out far enough to keep the configured rate
// and advances the schedule horizon by the task's permit cost.
func (l *RateLimiterExecutor) doExecute(permits int, task func() (any, error)) (futures.ScheduledFuture[any], error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	effectiveMs := int64(permits) * 1000 / int64(l.permitsPerSecond)
	delayMs := max(0, l.lastScheduleTime-clock.AccurateMillis())

	f, err := l.scheduler.ScheduleCallable(task, time.Duration(delayMs)*time.Millisecond)
	if err != nil {
		return nil, err
	}
	l.lastScheduleTime = clock.LastKnownMillis() + delayMs + effectiveMs
	return f, nil
}
