// Package event provides fan-out of completion signals to registered
// listeners, in either a fire-once or fire-every-time mode.
package event

import (
	"fmt"
	"slices"
	"sync"

	errs "github.com/zmarkan/threadly/pkg/errors"
)

// Registration identifies a listener added to a ListenerHelper. Go function
// values are not comparable, so removal goes through the handle returned by
// AddListener rather than by value.
type Registration struct {
	fn       func()
	executor Executor
}

// ListenerHelper multicasts a completion signal to listeners.
//
// In one-shot mode CallListeners is legal exactly once; listeners added
// afterwards run immediately on the adding goroutine (or on their executor),
// and a panic from such an inline run propagates to the caller of
// AddListener.
//
// In repeated mode CallListeners may run any number of times, each time
// invoking the listeners registered at its start, in registration order.
// Listeners added from within a listener fire on the next run.
//
// Listeners are dispatched outside the helper's lock.
type ListenerHelper struct {
	callOnce bool

	mu        sync.Mutex
	called    bool
	listeners []*Registration
}

// NewListenerHelper constructs a helper. With callListenersOnce set the
// helper is in one-shot mode.
func NewListenerHelper(callListenersOnce bool) *ListenerHelper {
	return &ListenerHelper{callOnce: callListenersOnce}
}

// AddListener registers fn to run on the goroutine invoking CallListeners.
func (h *ListenerHelper) AddListener(fn func()) *Registration {
	return h.AddListenerWithExecutor(fn, nil)
}

// AddListenerWithExecutor registers fn to be submitted to executor when the
// completion signal fires. A nil executor means inline dispatch.
func (h *ListenerHelper) AddListenerWithExecutor(fn func(), executor Executor) *Registration {
	if fn == nil {
		return nil
	}
	reg := &Registration{fn: fn, executor: executor}

	h.mu.Lock()
	if h.callOnce && h.called {
		h.mu.Unlock()
		// late addition fires immediately; inline panics propagate to the
		// registrant
		runListener(reg, true)
		return reg
	}
	h.listeners = append(h.listeners, reg)
	h.mu.Unlock()

	return reg
}

// RemoveListener removes a previously added registration, reporting whether
// it was still registered.
func (h *ListenerHelper) RemoveListener(reg *Registration) bool {
	if reg == nil {
		return false
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	i := slices.Index(h.listeners, reg)
	if i < 0 {
		return false
	}
	h.listeners = slices.Delete(h.listeners, i, i+1)
	return true
}

// ClearListeners empties the registered set.
func (h *ListenerHelper) ClearListeners() {
	h.mu.Lock()
	h.listeners = nil
	h.mu.Unlock()
}

// RegisteredListenerCount reports how many listeners would fire on the next
// CallListeners.
func (h *ListenerHelper) RegisteredListenerCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.listeners)
}

// CallListeners fires the completion signal. In one-shot mode a second call
// panics with an illegal-state error. Panics from inline listeners are
// delivered to the uncaught failure handler so that every listener still
// gets its turn.
func (h *ListenerHelper) CallListeners() {
	h.mu.Lock()
	var snapshot []*Registration
	if h.callOnce {
		if h.called {
			h.mu.Unlock()
			panic(fmt.Errorf("%w: listeners have already been called", errs.ErrIllegalState))
		}
		h.called = true
		snapshot = h.listeners
		h.listeners = nil
	} else {
		snapshot = slices.Clone(h.listeners)
	}
	h.mu.Unlock()

	for _, reg := range snapshot {
		runListener(reg, false)
	}
}

func runListener(reg *Registration, propagatePanic bool) {
	if reg.executor != nil {
		if err := reg.executor.Execute(reg.fn); err != nil {
			errs.UncaughtFailure(fmt.Errorf("listener executor rejected listener: %w", err))
		}
		return
	}
	if propagatePanic {
		reg.fn()
		return
	}
	defer func() {
		if r := recover(); r != nil {
			errs.UncaughtFailure(errs.AsError(r))
		}
	}()
	reg.fn()
}
