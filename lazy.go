package halclient

import (
	"context"
	"sync"
	"sync/atomic"
)

// Loader produces the value behind a lazy reference. Deadlines and
// cancellation are the loader's concern and arrive through ctx.
type Loader[T any] func(ctx context.Context) (T, error)

// Lazy is a deferred, memoized value. The loader runs on the first Get, at
// most once per successful resolution, under a per-instance lock; concurrent
// first callers block and observe the same value. Once resolved the value
// never changes.
type Lazy[T any] struct {
	mu       sync.Mutex
	load     Loader[T]
	policy   FailurePolicy
	resolved atomic.Bool
	attempts atomic.Int64
	value    T
	err      error // outcome of the latest failed attempt, guarded by mu
}

// NewLazy wraps load without invoking it.
func NewLazy[T any](load Loader[T], policy FailurePolicy) *Lazy[T] {
	return &Lazy[T]{load: load, policy: policy}
}

// LazyOf returns a lazy reference that is already populated with v.
func LazyOf[T any](v T) *Lazy[T] {
	l := &Lazy[T]{value: v}
	l.resolved.Store(true)
	return l
}

// Get returns the value, loading it on first use.
//
// With RetryOnFailure a failed load leaves the reference unresolved: waiters
// that observed that attempt in flight receive its error, later callers load
// again. With CacheFailure the first error is returned forever.
func (l *Lazy[T]) Get(ctx context.Context) (T, error) {
	seen := l.attempts.Load()
	if l.resolved.Load() {
		return l.value, nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.resolved.Load() {
		return l.value, nil
	}
	var zero T
	if l.err != nil && (l.policy == CacheFailure || l.attempts.Load() != seen) {
		return zero, l.err
	}
	if l.load == nil {
		return zero, newError(CodeMalformedResource, "", "lazy reference has no loader")
	}

	v, err := l.load(ctx)
	l.attempts.Add(1)
	if err != nil {
		l.err = err
		return zero, err
	}
	l.value = v
	l.err = nil
	l.load = nil
	l.resolved.Store(true)
	return v, nil
}

// Peek returns the value without loading it.
func (l *Lazy[T]) Peek() (T, bool) {
	if l.resolved.Load() {
		return l.value, true
	}
	var zero T
	return zero, false
}

// Resolved reports whether the value has been loaded.
func (l *Lazy[T]) Resolved() bool { return l.resolved.Load() }

// Attempts returns how many times the loader has been invoked.
func (l *Lazy[T]) Attempts() int { return int(l.attempts.Load()) }
