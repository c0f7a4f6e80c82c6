package futures

import (
	"context"
	"fmt"
	"sync"
	"time"

	errs "github.com/zmarkan/threadly/pkg/errors"
	"github.com/zmarkan/threadly/pkg/event"
)

// SettableFuture is a future completed manually, which makes it useful when
// a single result is produced across several goroutines and no executor
// future fits. Exactly one of Set or SetFailure may be called, exactly once;
// a second completion in any combination panics with an illegal-state error.
//
// SettableFuture is not cancellable: Cancel always reports false.
type SettableFuture[T any] struct {
	helper *event.ListenerHelper

	mu        sync.Mutex
	done      chan struct{}
	completed bool
	result    T
	failure   error
}

// NewSettableFuture constructs a future to be completed later.
func NewSettableFuture[T any]() *SettableFuture[T] {
	return &SettableFuture[T]{
		helper: event.NewListenerHelper(true),
		done:   make(chan struct{}),
	}
}

// Set completes the future with result.
func (f *SettableFuture[T]) Set(result T) {
	f.complete(result, nil)
}

// SetFailure completes the future with the given failure. A nil failure is
// substituted with a synthetic one so Get always has a cause to expose.
func (f *SettableFuture[T]) SetFailure(failure error) {
	var zero T
	f.complete(zero, errs.NewExecutionError(failure))
}

func (f *SettableFuture[T]) complete(result T, failure error) {
	f.mu.Lock()
	if f.completed {
		f.mu.Unlock()
		panic(fmt.Errorf("%w: future already completed", errs.ErrIllegalState))
	}
	f.completed = true
	f.result = result
	f.failure = failure
	close(f.done)
	f.mu.Unlock()

	// dispatch outside the lock
	f.helper.CallListeners()
}

func (f *SettableFuture[T]) IsDone() bool {
	select {
	case <-f.done:
		return true
	default:
		return false
	}
}

func (f *SettableFuture[T]) IsCancelled() bool {
	return false
}

func (f *SettableFuture[T]) Cancel(_ bool) bool {
	return false
}

func (f *SettableFuture[T]) report() (T, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failure != nil {
		var zero T
		return zero, f.failure
	}
	return f.result, nil
}

func (f *SettableFuture[T]) Get(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.report()
	case <-ctx.Done():
		var zero T
		return zero, errs.FromContext(ctx.Err())
	}
}

func (f *SettableFuture[T]) GetTimeout(timeout time.Duration) (T, error) {
	if f.IsDone() {
		return f.report()
	}
	t := time.NewTimer(timeout)
	defer t.Stop()
	select {
	case <-f.done:
		return f.report()
	case <-t.C:
		var zero T
		return zero, errs.ErrTimeout
	}
}

func (f *SettableFuture[T]) AddListener(listener func()) {
	f.helper.AddListener(listener)
}

func (f *SettableFuture[T]) AddListenerWithExecutor(listener func(), executor Executor) {
	f.helper.AddListenerWithExecutor(listener, executor)
}

func (f *SettableFuture[T]) AddCallback(cb Callback[T]) {
	f.AddListener(callbackRunner[T](f, cb))
}

func (f *SettableFuture[T]) AddCallbackWithExecutor(cb Callback[T], executor Executor) {
	f.AddListenerWithExecutor(callbackRunner[T](f, cb), executor)
}
