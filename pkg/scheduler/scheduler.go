package scheduler

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/creasty/defaults"
	"go.uber.org/zap"

	"github.com/zmarkan/threadly/pkg/clock"
	"github.com/zmarkan/threadly/pkg/collections"
	errs "github.com/zmarkan/threadly/pkg/errors"
	"github.com/zmarkan/threadly/pkg/futures"
)

const (
	stateActive int32 = iota
	stateShutdown
	stateStopped
)

// PriorityScheduler executes one-shot and recurring tasks across a fixed
// worker pool, honoring task priorities. All workers consume a single
// dynamic delay queue; a task enters the queue with max delay and is
// repositioned to its real ready time under the queue lock.
type PriorityScheduler struct {
	cfg   Config
	log   *zap.SugaredLogger
	queue *collections.DynamicDelayQueue[*schedTask]

	state    atomic.Int32
	wg       sync.WaitGroup
	termOnce sync.Once
	term     chan struct{}
}

// NewPriorityScheduler starts a scheduler with PoolSize eager workers.
func NewPriorityScheduler(cfg Config) (*PriorityScheduler, error) {
	if err := defaults.Set(&cfg); err != nil {
		return nil, fmt.Errorf("applying config defaults: %w", err)
	}
	if err := errs.AssertGreaterThanZero(cfg.PoolSize, "poolSize"); err != nil {
		return nil, err
	}
	if err := errs.AssertNotNegative(int64(cfg.MaxWaitForLowPriority), "maxWaitForLowPriority"); err != nil {
		return nil, err
	}

	s := &PriorityScheduler{
		cfg:   cfg,
		log:   zap.S(),
		queue: collections.NewDynamicDelayQueue[*schedTask](),
		term:  make(chan struct{}),
	}
	s.wg.Add(cfg.PoolSize)
	for i := 0; i < cfg.PoolSize; i++ {
		go s.worker(i)
	}
	return s, nil
}

// Queue returns the underlying delay queue, mainly for inspection.
func (s *PriorityScheduler) Queue() *collections.DynamicDelayQueue[*schedTask] {
	return s.queue
}

func (s *PriorityScheduler) worker(id int) {
	defer s.wg.Done()
	for {
		t, ok := s.nextTask()
		if !ok {
			s.log.Debugw("scheduler worker exiting", "worker", id)
			return
		}
		s.runTask(t)
	}
}

// nextTask blocks until a ready task can be dispatched, or until the
// scheduler has nothing left for this worker to do.
func (s *PriorityScheduler) nextTask() (*schedTask, bool) {
	q := s.queue
	lock := q.GetLock()
	lock.Lock()
	defer lock.Unlock()

	for {
		state := s.state.Load()
		if state == stateStopped {
			return nil, false
		}
		head, ok := q.PeekHead()
		if !ok {
			if state != stateActive {
				// shutdown with a drained queue
				return nil, false
			}
			q.Await()
			continue
		}
		if d := head.DelayMillis(); d > 0 {
			q.AwaitMillis(d)
			continue
		}
		t := s.selectReady(head)
		q.RemoveLocked(t)
		return t, true
	}
}

// selectReady picks among ready tasks: the first ready high-priority task
// wins over a low-priority head, unless the head has already waited past
// MaxWaitForLowPriority, at which point age beats priority. The queue lock
// must be held.
func (s *PriorityScheduler) selectReady(head *schedTask) *schedTask {
	if head.priority == PriorityHigh {
		return head
	}
	waited := clock.AccurateMillis() - head.readyTime.Load()
	if waited >= s.cfg.MaxWaitForLowPriority.Milliseconds() {
		return head
	}

	pick := head
	s.queue.Each(func(_ int, e *schedTask) bool {
		if e.DelayMillis() > 0 {
			// past the ready prefix
			return false
		}
		if e.priority == PriorityHigh {
			pick = e
			return false
		}
		return true
	})
	return pick
}

func (s *PriorityScheduler) runTask(t *schedTask) {
	if t.fut.IsCancelled() {
		return
	}
	t.running.Store(true)
	err := t.fut.Run()
	t.running.Store(false)

	if t.mode == modeOneShot {
		// outcome lives in the future
		return
	}
	if err != nil {
		// a failing run halts the recurrence; nobody is waiting on a
		// recurring future, so the failure goes to the process-wide handler
		errs.UncaughtFailure(fmt.Errorf("recurring task %s halted: %w", t.id, err))
		return
	}
	if s.state.Load() != stateActive || !t.fut.Reset() {
		return
	}

	var next int64
	switch t.mode {
	case modeFixedDelay:
		next = clock.AccurateMillis() + t.period.Milliseconds()
	case modeFixedRate:
		// drift-free cadence; an overrun leaves next in the past, so the
		// task fires again immediately after this completion
		next = t.readyTime.Load() + t.period.Milliseconds()
	}
	t.readyTime.Store(next)
	s.queue.Add(t)
}

// schedule is the single submission path.
func (s *PriorityScheduler) schedule(fn Callable, delay time.Duration, priority Priority, mode taskMode, period time.Duration) (*scheduledFuture, error) {
	if err := errs.AssertNotNil(fn, "task"); err != nil {
		return nil, err
	}
	if err := errs.AssertNotNegative(int64(delay), "delay"); err != nil {
		return nil, err
	}
	if s.state.Load() != stateActive {
		return nil, errs.ErrShutdown
	}

	t := newSchedTask(fn, priority, mode, period)
	s.queue.AddLast(t)
	t.pendingReady = clock.AccurateMillis() + delay.Milliseconds()
	s.queue.Reposition(t, delay.Milliseconds(), t)

	if s.state.Load() == stateStopped {
		// lost the race against ShutdownNow; the drain may have missed us
		if s.queue.Remove(t) {
			t.fut.Cancel(false)
			return nil, errs.ErrShutdown
		}
	}

	s.log.Debugw("task scheduled",
		"task", t.id, "priority", t.priority.String(), "mode", t.mode.String(), "delay", delay)
	return &scheduledFuture{TaskFuture: t.fut, task: t}, nil
}

// Execute submits task for execution at the default priority.
func (s *PriorityScheduler) Execute(task func()) error {
	_, err := s.Submit(task)
	return err
}

// ExecuteWithPriority submits task for execution at the given priority.
func (s *PriorityScheduler) ExecuteWithPriority(task func(), priority Priority) error {
	if task == nil {
		return fmt.Errorf("%w: task cannot be nil", errs.ErrInvalidArgument)
	}
	_, err := s.schedule(runnableCallable(task, nil), 0, priority, modeOneShot, 0)
	return err
}

// Submit submits task and returns a future completing when it has run.
func (s *PriorityScheduler) Submit(task func()) (futures.ListenableFuture[any], error) {
	return s.SubmitWithResult(task, nil)
}

// SubmitWithResult submits task; the future yields result once it has run.
func (s *PriorityScheduler) SubmitWithResult(task func(), result any) (futures.ListenableFuture[any], error) {
	if task == nil {
		return nil, fmt.Errorf("%w: task cannot be nil", errs.ErrInvalidArgument)
	}
	return s.schedule(runnableCallable(task, result), 0, s.cfg.DefaultPriority, modeOneShot, 0)
}

// SubmitCallable submits a result-producing task.
func (s *PriorityScheduler) SubmitCallable(task Callable) (futures.ListenableFuture[any], error) {
	return s.schedule(task, 0, s.cfg.DefaultPriority, modeOneShot, 0)
}

// SubmitCallableWithPriority submits a result-producing task at the given
// priority.
func (s *PriorityScheduler) SubmitCallableWithPriority(task Callable, priority Priority) (futures.ListenableFuture[any], error) {
	return s.schedule(task, 0, priority, modeOneShot, 0)
}

// Schedule runs task once after delay.
func (s *PriorityScheduler) Schedule(task func(), delay time.Duration) (futures.ScheduledFuture[any], error) {
	if task == nil {
		return nil, fmt.Errorf("%w: task cannot be nil", errs.ErrInvalidArgument)
	}
	return s.schedule(runnableCallable(task, nil), delay, s.cfg.DefaultPriority, modeOneShot, 0)
}

// ScheduleCallable runs a result-producing task once after delay.
func (s *PriorityScheduler) ScheduleCallable(task Callable, delay time.Duration) (futures.ScheduledFuture[any], error) {
	return s.schedule(task, delay, s.cfg.DefaultPriority, modeOneShot, 0)
}

// ScheduleCallableWithPriority runs a result-producing task once after delay
// at the given priority.
func (s *PriorityScheduler) ScheduleCallableWithPriority(task Callable, delay time.Duration, priority Priority) (futures.ScheduledFuture[any], error) {
	return s.schedule(task, delay, priority, modeOneShot, 0)
}

// ScheduleWithFixedDelay runs task repeatedly, measuring period from each
// run's completion. period >= 0.
func (s *PriorityScheduler) ScheduleWithFixedDelay(task func(), initialDelay, period time.Duration) (futures.ScheduledFuture[any], error) {
	if task == nil {
		return nil, fmt.Errorf("%w: task cannot be nil", errs.ErrInvalidArgument)
	}
	if err := errs.AssertNotNegative(int64(period), "period"); err != nil {
		return nil, err
	}
	return s.schedule(runnableCallable(task, nil), initialDelay, s.cfg.DefaultPriority, modeFixedDelay, period)
}

// ScheduleAtFixedRate runs task repeatedly, measuring period from each run's
// scheduled start regardless of its duration. period > 0. Runs never overlap
// themselves: an overrun is followed by one immediate catch-up run.
func (s *PriorityScheduler) ScheduleAtFixedRate(task func(), initialDelay, period time.Duration) (futures.ScheduledFuture[any], error) {
	if task == nil {
		return nil, fmt.Errorf("%w: task cannot be nil", errs.ErrInvalidArgument)
	}
	if err := errs.AssertGreaterThanZero(int64(period), "period"); err != nil {
		return nil, err
	}
	return s.schedule(runnableCallable(task, nil), initialDelay, s.cfg.DefaultPriority, modeFixedRate, period)
}

// Shutdown stops accepting new tasks. Workers drain the queue, waiting out
// scheduled delays, and exit once it is empty.
func (s *PriorityScheduler) Shutdown() {
	if !s.state.CompareAndSwap(stateActive, stateShutdown) {
		return
	}
	s.log.Debugw("scheduler shutting down")
	s.queue.Broadcast()
	s.watchTermination()
}

// ShutdownNow stops accepting new tasks, drains the queue, cancels the
// drained tasks' futures and returns them. In-flight tasks are allowed to
// finish; idle workers are woken so they can exit.
func (s *PriorityScheduler) ShutdownNow() []futures.ListenableFuture[any] {
	if s.state.Swap(stateStopped) == stateStopped {
		return nil
	}
	s.log.Debugw("scheduler shutting down now")

	drained := s.queue.DrainAll()
	pending := make([]futures.ListenableFuture[any], 0, len(drained))
	for _, t := range drained {
		t.fut.Cancel(false)
		pending = append(pending, &scheduledFuture{TaskFuture: t.fut, task: t})
	}
	s.queue.Broadcast()
	s.watchTermination()
	return pending
}

func (s *PriorityScheduler) watchTermination() {
	s.termOnce.Do(func() {
		go func() {
			s.wg.Wait()
			close(s.term)
		}()
	})
}

// IsShutdown reports whether shutdown has been requested.
func (s *PriorityScheduler) IsShutdown() bool {
	return s.state.Load() != stateActive
}

// IsTerminated reports whether shutdown has completed: no workers remain.
func (s *PriorityScheduler) IsTerminated() bool {
	if !s.IsShutdown() {
		return false
	}
	select {
	case <-s.term:
		return true
	default:
		return false
	}
}

// AwaitTermination blocks until all workers have exited after a shutdown, or
// the timeout elapses. Reports whether termination was reached.
func (s *PriorityScheduler) AwaitTermination(timeout time.Duration) bool {
	t := time.NewTimer(timeout)
	defer t.Stop()
	select {
	case <-s.term:
		return true
	case <-t.C:
		return false
	}
}

func runnableCallable(task func(), result any) Callable {
	return func() (any, error) {
		task()
		return result, nil
	}
}

var (
	_ Scheduler        = (*PriorityScheduler)(nil)
	_ futures.Executor = (*PriorityScheduler)(nil)
)
