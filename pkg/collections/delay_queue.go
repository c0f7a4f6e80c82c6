package collections

import (
	"context"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/zmarkan/threadly/pkg/clock"
	errs "github.com/zmarkan/threadly/pkg/errors"
)

// Delayed is implemented by queue elements. DelayMillis returns the signed
// time remaining until the element is ready; values <= 0 mean ready now.
type Delayed interface {
	DelayMillis() int64
}

// DelayUpdater is handed into the queue's critical section during a
// reposition. AllowDelayUpdate is the single opportunity for the element to
// mutate the value its DelayMillis returns; it is invoked while the queue
// lock is held and after the element has been moved.
type DelayUpdater interface {
	AllowDelayUpdate()
}

// Item constrains queue elements to comparable Delayed values, so elements
// can be addressed by identity.
type Item interface {
	Delayed
	comparable
}

// DynamicDelayQueue is a blocking priority queue ordered by each element's
// runtime-computed delay. Unlike a plain delay queue, an element's effective
// delay may change after insertion: elements typically enter with
// math.MaxInt64 delay via AddLast and are then moved into place with
// Reposition once their execution time is known.
//
// Elements with equal delay dequeue in insertion order.
type DynamicDelayQueue[T Item] struct {
	lock *QueueLock
	cond *sync.Cond
	list *ConcurrentList[T]
}

// NewDynamicDelayQueue constructs a queue with its own lock.
func NewDynamicDelayQueue[T Item]() *DynamicDelayQueue[T] {
	return NewDynamicDelayQueueWithLock[T](new(QueueLock))
}

// NewDynamicDelayQueueWithLock constructs a queue guarded by the provided
// lock, allowing a caller to coordinate its own waiting with the queue's.
func NewDynamicDelayQueueWithLock[T Item](lock *QueueLock) *DynamicDelayQueue[T] {
	return &DynamicDelayQueue[T]{
		lock: lock,
		cond: sync.NewCond(lock),
		list: NewConcurrentList[T](lock),
	}
}

// GetLock returns the queue's mutex. It must be held while iterating or
// consuming the queue in place.
func (q *DynamicDelayQueue[T]) GetLock() *QueueLock {
	return q.lock
}

// Broadcast wakes every goroutine blocked on the queue. Waiters re-evaluate
// their conditions, so a spurious wake is harmless.
func (q *DynamicDelayQueue[T]) Broadcast() {
	q.lock.Lock()
	q.cond.Broadcast()
	q.lock.Unlock()
}

// insertionEndIndex returns the stable upper-bound index for delayMillis:
// the first position whose element has a strictly larger delay. Inserting
// there keeps equal-delay elements FIFO. The lock must be held.
func (q *DynamicDelayQueue[T]) insertionEndIndex(delayMillis int64) int {
	n := q.list.Len()
	return sort.Search(n, func(i int) bool {
		return q.list.At(i).DelayMillis() > delayMillis
	})
}

// Add inserts e at the position preserving delay order. A zero-valued e is
// tolerated as a no-op returning false.
func (q *DynamicDelayQueue[T]) Add(e T) bool {
	var zero T
	if e == zero {
		return false
	}

	q.lock.Lock()
	q.list.Insert(q.insertionEndIndex(e.DelayMillis()), e)
	q.cond.Signal()
	q.lock.Unlock()

	return true
}

// Put inserts e. The queue is unbounded so this never blocks.
func (q *DynamicDelayQueue[T]) Put(e T) {
	q.Add(e)
}

// Offer inserts e, identically to Add.
func (q *DynamicDelayQueue[T]) Offer(e T) bool {
	return q.Add(e)
}

// OfferTimeout inserts e; the timeout is irrelevant for an unbounded queue.
func (q *DynamicDelayQueue[T]) OfferTimeout(e T, _ time.Duration) bool {
	return q.Add(e)
}

// AddLast appends e unconditionally. This is the fast path for elements that
// carry max delay pending a Reposition. Panics on a zero-valued element.
func (q *DynamicDelayQueue[T]) AddLast(e T) {
	var zero T
	if e == zero {
		panic("collections: cannot add zero-valued element")
	}

	q.lock.Lock()
	q.list.Append(e)
	q.lock.Unlock()
}

// Reposition atomically moves e to the position matching newDelayMillis,
// then invokes updater.AllowDelayUpdate while still holding the lock, and
// finally wakes all waiters. It is expected that e's DelayMillis still
// returns the old value until AllowDelayUpdate is called.
func (q *DynamicDelayQueue[T]) Reposition(e T, newDelayMillis int64, updater DelayUpdater) {
	var zero T
	if e == zero {
		return
	}

	q.lock.Lock()
	// the element is most likely near the tail, having entered via AddLast
	q.list.Reposition(e, q.insertionEndIndex(newDelayMillis), true)
	updater.AllowDelayUpdate()
	q.cond.Broadcast()
	q.lock.Unlock()
}

// SortQueue performs a full sort. Reposition is preferred; this exists for
// when many elements mutated their delays out of band.
func (q *DynamicDelayQueue[T]) SortQueue() {
	q.lock.Lock()
	q.list.Sort(func(a, b T) bool {
		return a.DelayMillis() < b.DelayMillis()
	})
	q.cond.Broadcast()
	q.lock.Unlock()
}

// Peek returns the head iff it is ready. Never blocks.
func (q *DynamicDelayQueue[T]) Peek() (T, bool) {
	next, ok := q.list.Peek()
	if !ok || next.DelayMillis() > 0 {
		var zero T
		return zero, false
	}
	return next, true
}

// PeekHead returns the head regardless of readiness. The lock must be held.
func (q *DynamicDelayQueue[T]) PeekHead() (T, bool) {
	q.requireLock()
	if q.list.Len() == 0 {
		var zero T
		return zero, false
	}
	return q.list.At(0), true
}

// Poll removes and returns the head iff it is ready. The ready check is
// performed lock-free first, then re-verified under the lock.
func (q *DynamicDelayQueue[T]) Poll() (T, bool) {
	var zero T
	next, ok := q.list.Peek()
	if !ok || next.DelayMillis() > 0 {
		return zero, false
	}

	// we likely can win, so take the lock and double check
	q.lock.Lock()
	defer q.lock.Unlock()
	if next, ok = q.list.Peek(); ok && next.DelayMillis() <= 0 {
		return q.list.RemoveIndex(0), true
	}
	return zero, false
}

// PollTimeout waits up to timeout for the head to become ready, removing and
// returning it. Returns false when the timeout elapses first.
func (q *DynamicDelayQueue[T]) PollTimeout(timeout time.Duration) (T, bool) {
	var zero T
	start := clock.AccurateMillis()
	timeoutMs := timeout.Milliseconds()
	remaining := timeoutMs

	q.lock.Lock()
	defer q.lock.Unlock()
	for remaining > 0 {
		if next, ok := q.list.Peek(); ok && next.DelayMillis() <= 0 {
			return q.list.RemoveIndex(0), true
		} else if ok {
			q.AwaitMillis(min(next.DelayMillis(), remaining))
		} else {
			q.AwaitMillis(remaining)
		}
		remaining = timeoutMs - (clock.AccurateMillis() - start)
	}
	return zero, false
}

// Take blocks until the head is ready, then removes and returns it. A
// cancelled context unwinds the wait with an interruption error.
func (q *DynamicDelayQueue[T]) Take(ctx context.Context) (T, error) {
	q.lock.Lock()
	defer q.lock.Unlock()

	next, err := q.blockTillAvailable(ctx)
	if err != nil {
		var zero T
		return zero, err
	}
	q.list.RemoveIndex(0)
	return next, nil
}

// blockTillAvailable waits until the head is ready and returns it without
// removing it. The lock must be held.
func (q *DynamicDelayQueue[T]) blockTillAvailable(ctx context.Context) (T, error) {
	// the wake callback acquires the queue lock, so it cannot slip between a
	// waiter's condition check and its wait
	stop := context.AfterFunc(ctx, q.Broadcast)
	defer stop()

	for {
		if err := ctx.Err(); err != nil {
			var zero T
			return zero, errs.FromContext(err)
		}
		next, ok := q.list.Peek()
		if !ok {
			q.Await()
			continue
		}
		if d := next.DelayMillis(); d > 0 {
			q.AwaitMillis(d)
			continue
		}
		return next, nil
	}
}

// Await blocks until the queue is signalled. The lock must be held; it is
// released while waiting and reacquired before return.
func (q *DynamicDelayQueue[T]) Await() {
	q.requireLock()
	q.cond.Wait()
}

// AwaitMillis blocks until the queue is signalled or ms milliseconds pass.
// The lock must be held; it is released while waiting and reacquired before
// return.
func (q *DynamicDelayQueue[T]) AwaitMillis(ms int64) {
	q.requireLock()
	if ms <= 0 {
		return
	}
	if ms > math.MaxInt64/int64(time.Millisecond) {
		// effectively unbounded; an explicit signal will arrive first
		q.cond.Wait()
		return
	}
	t := time.AfterFunc(time.Duration(ms)*time.Millisecond, q.Broadcast)
	q.cond.Wait()
	t.Stop()
}

// DrainTo removes up to max ready elements under a single lock hold.
func (q *DynamicDelayQueue[T]) DrainTo(max int) []T {
	if max <= 0 {
		return nil
	}

	var drained []T
	q.lock.Lock()
	defer q.lock.Unlock()
	for len(drained) < max {
		next, ok := q.list.Peek()
		if !ok || next.DelayMillis() > 0 {
			break
		}
		drained = append(drained, q.list.RemoveIndex(0))
	}
	return drained
}

// DrainAll removes and returns every element, ready or not, under a single
// lock hold, waking all waiters so they can observe the empty queue.
func (q *DynamicDelayQueue[T]) DrainAll() []T {
	q.lock.Lock()
	defer q.lock.Unlock()

	var all []T
	q.list.Each(func(_ int, e T) bool {
		all = append(all, e)
		return true
	})
	q.list.Clear()
	q.cond.Broadcast()
	return all
}

// Remove removes the identity e from the queue, reporting whether it was
// present.
func (q *DynamicDelayQueue[T]) Remove(e T) bool {
	q.lock.Lock()
	defer q.lock.Unlock()
	return q.list.RemoveValue(e)
}

// RemoveLocked removes the identity e while the caller already holds the
// queue lock.
func (q *DynamicDelayQueue[T]) RemoveLocked(e T) bool {
	q.requireLock()
	return q.list.RemoveValue(e)
}

// Clear removes every element.
func (q *DynamicDelayQueue[T]) Clear() {
	q.lock.Lock()
	q.list.Clear()
	q.lock.Unlock()
}

// Contains reports whether e is present.
func (q *DynamicDelayQueue[T]) Contains(e T) bool {
	return q.list.Contains(e)
}

// Len reports the element count, ready or not.
func (q *DynamicDelayQueue[T]) Len() int {
	return q.list.Len()
}

// IsEmpty reports whether the queue holds no elements.
func (q *DynamicDelayQueue[T]) IsEmpty() bool {
	return q.list.Len() == 0
}

// RemainingCapacity is unbounded.
func (q *DynamicDelayQueue[T]) RemainingCapacity() int {
	return math.MaxInt
}

// Each walks the queue from head to tail. The lock must be held.
func (q *DynamicDelayQueue[T]) Each(fn func(i int, e T) bool) {
	q.list.Each(fn)
}

func (q *DynamicDelayQueue[T]) requireLock() {
	if !q.lock.Held() {
		panic("collections: operation requires the queue lock to be held")
	}
}
