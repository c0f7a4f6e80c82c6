package collections

import (
	"context"
	"fmt"

	errs "github.com/zmarkan/threadly/pkg/errors"
)

// ConsumerIterator consumes ready elements from the head of the queue as it
// advances. The queue lock must be held for the iterator's entire lifetime;
// it detects a head swapped out from under it between Peek and Remove and
// reports a concurrent modification instead of removing the wrong element.
type ConsumerIterator[T Item] struct {
	q    *DynamicDelayQueue[T]
	next T
	has  bool
}

// ConsumeIterator blocks once for head availability, then returns an
// iterator over the live queue. Panics when the queue lock is not held.
func (q *DynamicDelayQueue[T]) ConsumeIterator(ctx context.Context) (*ConsumerIterator[T], error) {
	q.requireLock()

	if _, err := q.blockTillAvailable(ctx); err != nil {
		return nil, err
	}
	return &ConsumerIterator[T]{q: q}, nil
}

func (it *ConsumerIterator[T]) peekReady() (T, bool) {
	next, ok := it.q.list.Peek()
	if !ok || next.DelayMillis() > 0 {
		var zero T
		return zero, false
	}
	return next, true
}

// HasNext reports whether a ready element is available at the head.
func (it *ConsumerIterator[T]) HasNext() bool {
	if !it.has {
		it.next, it.has = it.peekReady()
	}
	return it.has
}

// Peek returns the next ready element without removing it.
func (it *ConsumerIterator[T]) Peek() (T, bool) {
	if !it.has {
		it.next, it.has = it.peekReady()
	}
	return it.next, it.has
}

// Remove removes and returns the element last observed by Peek, or the
// current ready head when nothing was peeked. Returns
// ErrConcurrentModification when the head identity changed since the peek.
func (it *ConsumerIterator[T]) Remove() (T, error) {
	var zero T
	it.q.requireLock()

	if it.has {
		if it.q.list.Len() == 0 {
			return zero, errs.ErrConcurrentModification
		}
		removed := it.q.list.RemoveIndex(0)
		if removed != it.next {
			it.q.list.Insert(0, removed)
			return zero, errs.ErrConcurrentModification
		}
		it.has = false
		return removed, nil
	}

	next, ok := it.peekReady()
	if !ok {
		return zero, fmt.Errorf("%w: no ready element to remove", errs.ErrIllegalState)
	}
	it.q.list.RemoveIndex(0)
	return next, nil
}
