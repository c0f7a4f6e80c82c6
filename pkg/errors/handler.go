package errors

import (
	"sync/atomic"

	"go.uber.org/zap"
)

// FailureHandler receives failures that have no caller left to report to,
// such as a panic from a completion listener or an error that halted a
// recurring task.
type FailureHandler func(err error)

var uncaughtHandler atomic.Pointer[FailureHandler]

// SetUncaughtFailureHandler replaces the process-wide handler. A nil handler
// restores the default, which logs through zap.
func SetUncaughtFailureHandler(h FailureHandler) {
	if h == nil {
		uncaughtHandler.Store(nil)
		return
	}
	uncaughtHandler.Store(&h)
}

// UncaughtFailure delivers err to the process-wide handler.
func UncaughtFailure(err error) {
	if err == nil {
		return
	}
	if h := uncaughtHandler.Load(); h != nil {
		(*h)(err)
		return
	}
	zap.S().Errorw("uncaught failure from asynchronous task", "error", err)
}
