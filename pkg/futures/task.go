package futures

import (
	"context"
	"fmt"
	"sync"
	"time"

	errs "github.com/zmarkan/threadly/pkg/errors"
	"github.com/zmarkan/threadly/pkg/event"
)

type taskState int

const (
	statePending taskState = iota
	stateSucceeded
	stateFailed
	stateCancelled
)

// TaskFuture is a future carrying its own work. Construct it with the
// interior work, hand it to an executor, and return it to the caller. A
// one-shot TaskFuture runs exactly once and then stays terminal; a recurring
// one may be Reset back to pending between runs, with its listeners firing
// once per terminal transition.
type TaskFuture[T any] struct {
	fn        func() (T, error)
	recurring bool
	helper    *event.ListenerHelper

	mu      sync.Mutex
	done    chan struct{}
	state   taskState
	running bool
	result  T
	failure error
}

// NewTaskFuture constructs a one-shot runnable future around fn.
func NewTaskFuture[T any](fn func() (T, error)) *TaskFuture[T] {
	return newTaskFuture(fn, false)
}

// NewRecurringTaskFuture constructs a runnable future that can be Reset and
// re-run. Its listeners are retained across runs and fire at the end of every
// run and on Cancel. A listener added while the future is already terminal
// does not fire immediately: it waits for the next terminal transition, and
// never fires if there is none (for example after Cancel).
func NewRecurringTaskFuture[T any](fn func() (T, error)) *TaskFuture[T] {
	return newTaskFuture(fn, true)
}

// NewRunnableFuture wraps a plain runnable, yielding the provided result
// once it has completed.
func NewRunnableFuture[T any](run func(), result T) *TaskFuture[T] {
	return newTaskFuture(func() (T, error) {
		run()
		return result, nil
	}, false)
}

func newTaskFuture[T any](fn func() (T, error), recurring bool) *TaskFuture[T] {
	return &TaskFuture[T]{
		fn:        fn,
		recurring: recurring,
		helper:    event.NewListenerHelper(!recurring),
		done:      make(chan struct{}),
	}
}

// Run executes the work once, transitioning the future to terminal at the
// end of the run and firing its listeners. A panic in the work is recovered
// and recorded as the failure. Running a future that is not pending is a
// no-op. The task's error, if any, is returned for callers (such as a
// recurring scheduler) that must react to it.
func (f *TaskFuture[T]) Run() error {
	f.mu.Lock()
	if f.state != statePending || f.running {
		f.mu.Unlock()
		return nil
	}
	f.running = true
	f.mu.Unlock()

	result, err := func() (r T, e error) {
		defer func() {
			if rec := recover(); rec != nil {
				e = errs.AsError(rec)
			}
		}()
		return f.fn()
	}()

	f.mu.Lock()
	f.running = false
	if err != nil {
		f.state = stateFailed
		f.failure = err
	} else {
		f.state = stateSucceeded
		f.result = result
	}
	close(f.done)
	f.mu.Unlock()

	f.helper.CallListeners()
	return err
}

// Reset returns a recurring future to pending so it can run again. Reports
// false when the future was cancelled, which ends the recurrence. Panics
// when called on a one-shot future.
func (f *TaskFuture[T]) Reset() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.recurring {
		panic(fmt.Errorf("%w: cannot reset a one-shot future", errs.ErrIllegalState))
	}
	if f.state == stateCancelled {
		return false
	}
	if f.state != statePending {
		f.state = statePending
		var zero T
		f.result = zero
		f.failure = nil
		f.done = make(chan struct{})
	}
	return true
}

// Cancel transitions the future to cancelled iff it is still pending and
// not currently running. A task body is never interrupted once started.
func (f *TaskFuture[T]) Cancel(_ bool) bool {
	f.mu.Lock()
	if f.state != statePending || f.running {
		f.mu.Unlock()
		return false
	}
	f.state = stateCancelled
	close(f.done)
	f.mu.Unlock()

	f.helper.CallListeners()
	return true
}

func (f *TaskFuture[T]) IsDone() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state != statePending
}

func (f *TaskFuture[T]) IsCancelled() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state == stateCancelled
}

func (f *TaskFuture[T]) report() (T, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var zero T
	switch f.state {
	case stateSucceeded:
		return f.result, nil
	case stateFailed:
		return zero, errs.NewExecutionError(f.failure)
	case stateCancelled:
		return zero, errs.ErrCancelled
	default:
		return zero, fmt.Errorf("%w: future not complete", errs.ErrIllegalState)
	}
}

func (f *TaskFuture[T]) doneCh() chan struct{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.done
}

func (f *TaskFuture[T]) Get(ctx context.Context) (T, error) {
	select {
	case <-f.doneCh():
		return f.report()
	case <-ctx.Done():
		var zero T
		return zero, errs.FromContext(ctx.Err())
	}
}

func (f *TaskFuture[T]) GetTimeout(timeout time.Duration) (T, error) {
	if f.IsDone() {
		return f.report()
	}
	t := time.NewTimer(timeout)
	defer t.Stop()
	select {
	case <-f.doneCh():
		return f.report()
	case <-t.C:
		var zero T
		return zero, errs.ErrTimeout
	}
}

func (f *TaskFuture[T]) AddListener(listener func()) {
	f.helper.AddListener(listener)
}

func (f *TaskFuture[T]) AddListenerWithExecutor(listener func(), executor Executor) {
	f.helper.AddListenerWithExecutor(listener, executor)
}

func (f *TaskFuture[T]) AddCallback(cb Callback[T]) {
	f.AddListener(callbackRunner[T](f, cb))
}

func (f *TaskFuture[T]) AddCallbackWithExecutor(cb Callback[T], executor Executor) {
	f.AddListenerWithExecutor(callbackRunner[T](f, cb), executor)
}
