package collections

import (
	"sync"
	"sync/atomic"
)

// QueueLock is the single mutex guarding a queue and its backing list. It
// tracks whether it is currently held so that operations which require the
// caller to already own the lock can fail fast on misuse instead of silently
// racing. The check detects an unlocked queue, not which goroutine holds it.
type QueueLock struct {
	mu   sync.Mutex
	held atomic.Bool
}

func (l *QueueLock) Lock() {
	l.mu.Lock()
	l.held.Store(true)
}

func (l *QueueLock) Unlock() {
	l.held.Store(false)
	l.mu.Unlock()
}

// Held reports whether the lock is currently locked.
func (l *QueueLock) Held() bool {
	return l.held.Load()
}
