package scheduler

import (
	"github.com/cenkalti/backoff/v4"

	errs "github.com/zmarkan/threadly/pkg/errors"
	"github.com/zmarkan/threadly/pkg/futures"
)

// ScheduleWithBackoff runs task and, while it keeps failing, reschedules it
// after the policy's next interval. The returned future completes with the
// first successful result, or with the final failure once the policy
// returns backoff.Stop.
//
// The policy is consumed from the scheduler's workers; it must not be shared
// with other retry loops.
func (s *PriorityScheduler) ScheduleWithBackoff(task Callable, policy backoff.BackOff) (futures.ListenableFuture[any], error) {
	if err := errs.AssertNotNil(task, "task"); err != nil {
		return nil, err
	}
	if err := errs.AssertNotNil(policy, "policy"); err != nil {
		return nil, err
	}

	result := futures.NewSettableFuture[any]()
	var attempt Callable
	attempt = func() (any, error) {
		v, err := task()
		if err == nil {
			result.Set(v)
			return v, nil
		}
		next := policy.NextBackOff()
		if next == backoff.Stop {
			result.SetFailure(err)
			return nil, nil
		}
		if _, schedErr := s.ScheduleCallable(attempt, next); schedErr != nil {
			// shutdown raced the retry; surface the task's failure
			result.SetFailure(err)
		}
		return nil, nil
	}

	if _, err := s.SubmitCallable(attempt); err != nil {
		return nil, err
	}
	return result, nil
}
