// Package collections provides the ordered structures under the scheduler:
// a concurrent indexable list and a blocking delay queue whose elements may
// change their delay after insertion.
//
// DynamicDelayQueue differs from a conventional delay queue in one way that
// shapes its whole API: an element's delay is a live value. Elements
// typically enter with max delay via AddLast and are moved into place with
// Reposition once their execution time is known:
//
//	queue.AddLast(e)                    // e.DelayMillis() == max
//	e.pending = now + 10ms
//	queue.Reposition(e, 10, e)          // moves e, then calls e.AllowDelayUpdate()
//
// Reposition mutates the queue before the element mutates its delay, under
// the queue lock, via the DelayUpdater capability handed into the critical
// section. This keeps the head-to-tail non-decreasing delay invariant
// observable at every instant the lock is held.
//
// The queue exposes its lock (GetLock) so callers can iterate or consume in
// place; operations that need the lock panic when it is not held.
package collections
