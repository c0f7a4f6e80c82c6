// Package clock provides monotonic millisecond timestamps with a cached
// last-known value for hot paths that cannot afford a time syscall.
package clock

import (
	"sync/atomic"
	"time"
)

var (
	anchor    = time.Now()
	anchorMs  = anchor.UnixMilli()
	lastKnown atomic.Int64
)

func init() {
	lastKnown.Store(anchorMs)
}

// AccurateMillis returns the current time in milliseconds and refreshes the
// cached value returned by LastKnownMillis. The value is derived from the
// runtime's monotonic reading, so it never moves backwards even if the wall
// clock is adjusted.
func AccurateMillis() int64 {
	now := anchorMs + time.Since(anchor).Milliseconds()
	lastKnown.Store(now)
	return now
}

// LastKnownMillis returns the most recently observed time in milliseconds
// without consulting the system clock. The value is only as fresh as the
// last AccurateMillis call.
func LastKnownMillis() int64 {
	return lastKnown.Load()
}
