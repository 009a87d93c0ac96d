package sqlmap

import (
	"errors"
	"sync"
)

// pendingEntry is one unit of deferred work: a resolver that is retried
// on drain and reports whether it made progress. Pending queues replace
// exception-based control flow: resolve(entry) either succeeds or
// returns a ForwardReferenceError, and the enclosing loop enqueues on
// the latter without unwinding.
type pendingEntry[T any] struct {
	value   T
	resolve func(T) error
}

// pendingQueue[T] holds entries whose resolve function has so far
// returned a ForwardReferenceError. Each queue carries its own lock so
// concurrently-parsed mapper documents never corrupt one another's
// queue.
type pendingQueue[T any] struct {
	mu      sync.Mutex
	entries []pendingEntry[T]
}

func newPendingQueue[T any]() *pendingQueue[T] {
	return &pendingQueue[T]{}
}

// Enqueue adds value to the queue with its resolver, to be retried on
// the next Drain.
func (q *pendingQueue[T]) Enqueue(value T, resolve func(T) error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.entries = append(q.entries, pendingEntry[T]{value: value, resolve: resolve})
}

// TryResolve runs resolve(value) directly. On a ForwardReferenceError it
// enqueues value for a later Drain and swallows the error (the pending
// queue absorbs only ForwardReferenceError); any other error
// propagates to the caller unchanged.
func (q *pendingQueue[T]) TryResolve(value T, resolve func(T) error) error {
	err := resolve(value)
	if err == nil {
		return nil
	}
	var fre *ForwardReferenceError
	if !asForwardReferenceError(err, &fre) {
		return err
	}
	q.Enqueue(value, resolve)
	return nil
}

// Drain retries every entry currently queued. Entries whose resolver
// succeeds are removed; entries that still fail with
// ForwardReferenceError remain queued for the next Drain; any other
// error aborts the drain and propagates, leaving the failing entry and
// every entry not yet retried queued.
func (q *pendingQueue[T]) Drain() error {
	q.mu.Lock()
	pending := q.entries
	q.entries = nil
	q.mu.Unlock()

	var remaining []pendingEntry[T]
	for i, e := range pending {
		err := e.resolve(e.value)
		if err == nil {
			continue
		}
		var fre *ForwardReferenceError
		if asForwardReferenceError(err, &fre) {
			remaining = append(remaining, e)
			continue
		}
		q.mu.Lock()
		q.entries = append(append(remaining, pending[i:]...), q.entries...)
		q.mu.Unlock()
		return err
	}

	q.mu.Lock()
	q.entries = append(remaining, q.entries...)
	q.mu.Unlock()
	return nil
}

// Len reports how many entries remain queued.
func (q *pendingQueue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.entries)
}

// Values returns a snapshot of the values still queued, for reporting an
// unresolved-entries BuilderError at seal time.
func (q *pendingQueue[T]) Values() []T {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]T, len(q.entries))
	for i, e := range q.entries {
		out[i] = e.value
	}
	return out
}

func asForwardReferenceError(err error, target **ForwardReferenceError) bool {
	return errors.As(err, target)
}
