package scheduler

import (
	"math"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/zmarkan/threadly/pkg/clock"
	"github.com/zmarkan/threadly/pkg/futures"
)

type taskMode int

const (
	modeOneShot taskMode = iota
	modeFixedDelay
	modeFixedRate
)

func (m taskMode) String() string {
	switch m {
	case modeFixedDelay:
		return "fixed-delay"
	case modeFixedRate:
		return "fixed-rate"
	default:
		return "one-shot"
	}
}

// maxDelaySentinel marks a task that has been appended to the queue but not
// yet repositioned to its real ready time.
const maxDelaySentinel = math.MaxInt64

// schedTask is the queue element wrapping a submitted unit of work: the
// future that carries the payload, the priority, the scheduled ready time in
// monotonic milliseconds, and the recurrence settings.
type schedTask struct {
	id       uuid.UUID
	priority Priority
	mode     taskMode
	period   time.Duration
	fut      *futures.TaskFuture[any]

	// readyTime mutates only while the task is outside the queue or through
	// the queue's reposition protocol; pendingReady stages the value applied
	// by AllowDelayUpdate.
	readyTime    atomic.Int64
	pendingReady int64
	running      atomic.Bool
}

func newSchedTask(fn Callable, priority Priority, mode taskMode, period time.Duration) *schedTask {
	t := &schedTask{
		id:       uuid.New(),
		priority: priority,
		mode:     mode,
		period:   period,
	}
	if mode == modeOneShot {
		t.fut = futures.NewTaskFuture(fn)
	} else {
		t.fut = futures.NewRecurringTaskFuture(fn)
	}
	t.readyTime.Store(maxDelaySentinel)
	return t
}

// DelayMillis reports the signed time remaining until the task is ready.
func (t *schedTask) DelayMillis() int64 {
	rt := t.readyTime.Load()
	if rt == maxDelaySentinel {
		return math.MaxInt64
	}
	return rt - clock.AccurateMillis()
}

// AllowDelayUpdate applies the staged ready time. Invoked by the queue while
// holding its lock, after the task has been moved to its new position.
func (t *schedTask) AllowDelayUpdate() {
	t.readyTime.Store(t.pendingReady)
}

// scheduledFuture decorates the task's future with its remaining delay.
type scheduledFuture struct {
	*futures.TaskFuture[any]
	task *schedTask
}

func (f *scheduledFuture) Delay() time.Duration {
	dm := f.task.DelayMillis()
	if dm >= math.MaxInt64/int64(time.Millisecond) {
		return time.Duration(math.MaxInt64)
	}
	return time.Duration(dm) * time.Millisecond
}
