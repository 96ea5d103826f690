package indexer

import "sync/atomic"

// IndexLock serializes indexing runs without blocking: a second run
// arriving while one is active gets an immediate refusal instead of
// queueing behind a long batch job.
type IndexLock struct {
	held atomic.Bool
}

// TryAcquire takes the lock if it is free and reports whether it did.
func (l *IndexLock) TryAcquire() bool {
	return l.held.CompareAndSwap(false, true)
}

// Release frees the lock for the next run.
func (l *IndexLock) Release() {
	l.held.Store(false)
}
