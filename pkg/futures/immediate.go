package futures

import (
	"context"
	"time"

	errs "github.com/zmarkan/threadly/pkg/errors"
)

// immediateFuture is terminal from construction. Listeners run inline on the
// registering goroutine; their panics propagate to the registrant.
type immediateFuture[T any] struct {
	result  T
	failure error
}

// ImmediateResult returns an already-successful future.
func ImmediateResult[T any](result T) ListenableFuture[T] {
	return &immediateFuture[T]{result: result}
}

// ImmediateFailure returns an already-failed future.
func ImmediateFailure[T any](failure error) ListenableFuture[T] {
	return &immediateFuture[T]{failure: errs.NewExecutionError(failure)}
}

func (f *immediateFuture[T]) report() (T, error) {
	if f.failure != nil {
		var zero T
		return zero, f.failure
	}
	return f.result, nil
}

func (f *immediateFuture[T]) Get(context.Context) (T, error)      { return f.report() }
func (f *immediateFuture[T]) GetTimeout(time.Duration) (T, error) { return f.report() }
func (f *immediateFuture[T]) IsDone() bool                        { return true }
func (f *immediateFuture[T]) IsCancelled() bool                   { return false }
func (f *immediateFuture[T]) Cancel(bool) bool                    { return false }

func (f *immediateFuture[T]) AddListener(listener func()) {
	listener()
}

func (f *immediateFuture[T]) AddListenerWithExecutor(listener func(), executor Executor) {
	if executor == nil {
		listener()
		return
	}
	_ = executor.Execute(listener)
}

func (f *immediateFuture[T]) AddCallback(cb Callback[T]) {
	f.AddListener(callbackRunner[T](f, cb))
}

func (f *immediateFuture[T]) AddCallbackWithExecutor(cb Callback[T], executor Executor) {
	f.AddListenerWithExecutor(callbackRunner[T](f, cb), executor)
}
