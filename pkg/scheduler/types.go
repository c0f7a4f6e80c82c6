package scheduler

import (
	"time"

	"github.com/zmarkan/threadly/pkg/futures"
)

// Priority orders ready tasks against each other. When several tasks are
// ready at once, High dispatches before Low; within a priority, FIFO.
type Priority int

const (
	PriorityHigh Priority = iota
	PriorityLow
)

func (p Priority) String() string {
	switch p {
	case PriorityHigh:
		return "high"
	case PriorityLow:
		return "low"
	default:
		return "unknown"
	}
}

// Callable is a unit of work producing a result.
type Callable = func() (any, error)

// Submitter accepts work for asynchronous execution.
type Submitter interface {
	Execute(task func()) error
	Submit(task func()) (futures.ListenableFuture[any], error)
	SubmitWithResult(task func(), result any) (futures.ListenableFuture[any], error)
	SubmitCallable(task Callable) (futures.ListenableFuture[any], error)
}

// Scheduler extends Submitter with delayed and recurring execution.
type Scheduler interface {
	Submitter
	Schedule(task func(), delay time.Duration) (futures.ScheduledFuture[any], error)
	ScheduleCallable(task Callable, delay time.Duration) (futures.ScheduledFuture[any], error)
	ScheduleWithFixedDelay(task func(), initialDelay, period time.Duration) (futures.ScheduledFuture[any], error)
	ScheduleAtFixedRate(task func(), initialDelay, period time.Duration) (futures.ScheduledFuture[any], error)
}

// Config specifies a PriorityScheduler's pool behavior.
type Config struct {
	// PoolSize is the fixed number of workers consuming the queue. Required.
	PoolSize int

	// DefaultPriority applies to submissions that do not name a priority.
	DefaultPriority Priority

	// MaxWaitForLowPriority bounds how long a ready low-priority task may be
	// passed over in favor of high-priority work. Once a low-priority task
	// has waited this long past its ready time, it is dispatched as if it
	// were high priority.
	MaxWaitForLowPriority time.Duration `default:"500ms"`
}
