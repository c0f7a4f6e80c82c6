package scheduler

import (
	"context"
	stderrors "errors"
	"fmt"

	errs "github.com/zmarkan/threadly/pkg/errors"
	"github.com/zmarkan/threadly/pkg/futures"
)

// InvokeAll submits every task and waits for all of them to complete,
// successfully or not. The returned futures are in input order and the list
// always has the same size as the input. When the context expires first,
// tasks not yet done are cancelled and the list is returned as-is.
func (s *PriorityScheduler) InvokeAll(ctx context.Context, tasks []Callable) ([]futures.ListenableFuture[any], error) {
	for _, task := range tasks {
		if task == nil {
			return nil, fmt.Errorf("%w: task collection contains nil", errs.ErrInvalidArgument)
		}
	}

	futs := make([]futures.ListenableFuture[any], 0, len(tasks))
	for _, task := range tasks {
		f, err := s.SubmitCallable(task)
		if err != nil {
			for _, submitted := range futs {
				submitted.Cancel(false)
			}
			return nil, err
		}
		futs = append(futs, f)
	}

	for i, f := range futs {
		if _, err := f.Get(ctx); interrupted(err) {
			for _, remaining := range futs[i:] {
				remaining.Cancel(false)
			}
			break
		}
	}
	return futs, nil
}

// InvokeAny submits every task and returns the first successful result,
// cancelling the rest. When every task fails, the last failure surfaces
// wrapped as an execution failure; when the context expires first, a timeout
// or interruption error is returned.
func (s *PriorityScheduler) InvokeAny(ctx context.Context, tasks []Callable) (any, error) {
	if len(tasks) == 0 {
		return nil, fmt.Errorf("%w: task collection is empty", errs.ErrInvalidArgument)
	}
	for _, task := range tasks {
		if task == nil {
			return nil, fmt.Errorf("%w: task collection contains nil", errs.ErrInvalidArgument)
		}
	}

	type outcome struct {
		value any
		err   error
	}
	outcomes := make(chan outcome, len(tasks))

	futs := make([]futures.ListenableFuture[any], 0, len(tasks))
	defer func() {
		for _, f := range futs {
			f.Cancel(false)
		}
	}()
	for _, task := range tasks {
		f, err := s.SubmitCallable(task)
		if err != nil {
			return nil, err
		}
		f.AddCallback(futures.Callback[any]{
			OnResult:  func(v any) { outcomes <- outcome{value: v} },
			OnFailure: func(err error) { outcomes <- outcome{err: err} },
		})
		futs = append(futs, f)
	}

	var lastErr error
	for range futs {
		select {
		case o := <-outcomes:
			if o.err == nil {
				return o.value, nil
			}
			lastErr = o.err
		case <-ctx.Done():
			return nil, errs.FromContext(ctx.Err())
		}
	}
	return nil, errs.NewExecutionError(lastErr)
}

func interrupted(err error) bool {
	return stderrors.Is(err, errs.ErrTimeout) || stderrors.Is(err, errs.ErrInterrupted)
}
