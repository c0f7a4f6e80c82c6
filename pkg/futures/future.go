// Package futures provides listenable futures: asynchronous results that
// accept completion listeners and typed callbacks, a settable variant for
// cross-goroutine result publication, and a runnable task variant executed
// by a worker pool.
package futures

import (
	"context"
	stderrors "errors"
	"time"

	errs "github.com/zmarkan/threadly/pkg/errors"
	"github.com/zmarkan/threadly/pkg/event"
)

// Executor runs listeners and callbacks away from the completing goroutine.
type Executor = event.Executor

// Callback receives a future's terminal outcome. Either field may be nil.
// On failure the cause is delivered unwrapped; a cancelled future reports
// ErrCancelled.
type Callback[T any] struct {
	OnResult  func(result T)
	OnFailure func(err error)
}

// ListenableFuture is a future that can be observed. Listeners and callbacks
// registered before completion fire exactly once after it, in registration
// order, on the completing goroutine unless an executor is supplied.
// Listeners registered after completion fire immediately on the registering
// goroutine (or their executor).
type ListenableFuture[T any] interface {
	// Get blocks until the future is terminal. A failed future surfaces its
	// cause wrapped in an ExecutionError; a cancelled one returns
	// ErrCancelled. Context cancellation unwinds the wait without mutating
	// the future.
	Get(ctx context.Context) (T, error)
	// GetTimeout is Get bounded by a timeout, returning ErrTimeout on expiry.
	GetTimeout(timeout time.Duration) (T, error)
	IsDone() bool
	IsCancelled() bool
	// Cancel transitions a still-pending future to cancelled. It never aborts
	// an in-progress task body. The implementations in this package ignore
	// mayInterruptIfRunning; it does not wake or interrupt any worker.
	Cancel(mayInterruptIfRunning bool) bool
	AddListener(listener func())
	AddListenerWithExecutor(listener func(), executor Executor)
	AddCallback(cb Callback[T])
	AddCallbackWithExecutor(cb Callback[T], executor Executor)
}

// ScheduledFuture is a future for work that becomes ready at a known time.
type ScheduledFuture[T any] interface {
	ListenableFuture[T]
	// Delay reports the remaining time until the work is ready; <= 0 means
	// ready now.
	Delay() time.Duration
}

// callbackRunner adapts a typed callback to a completion listener. The
// future must be terminal by the time the returned function runs.
func callbackRunner[T any](f ListenableFuture[T], cb Callback[T]) func() {
	return func() {
		result, err := f.GetTimeout(0)
		if err == nil {
			if cb.OnResult != nil {
				cb.OnResult(result)
			}
			return
		}
		var ee *errs.ExecutionError
		if stderrors.As(err, &ee) {
			err = ee.Cause
		}
		if cb.OnFailure != nil {
			cb.OnFailure(err)
		}
	}
}
