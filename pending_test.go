package sqlmap

import (
	"errors"
	"testing"
)

func TestPendingQueueTryResolveEnqueuesOnForwardReference(t *testing.T) {
	q := newPendingQueue[string]()
	resolvable := false
	resolve := func(v string) error {
		if !resolvable {
			return &ForwardReferenceError{Reference: v}
		}
		return nil
	}

	if err := q.TryResolve("target", resolve); err != nil {
		t.Fatalf("TryResolve returned %v, want nil (absorbed)", err)
	}
	if q.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", q.Len())
	}

	resolvable = true
	if err := q.Drain(); err != nil {
		t.Fatalf("Drain() = %v", err)
	}
	if q.Len() != 0 {
		t.Fatalf("Len() after drain = %d, want 0", q.Len())
	}
}

func TestPendingQueueTryResolvePropagatesOtherErrors(t *testing.T) {
	q := newPendingQueue[string]()
	boom := errors.New("boom")
	err := q.TryResolve("target", func(string) error { return boom })
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want boom", err)
	}
	if q.Len() != 0 {
		t.Fatal("non-forward-reference error must not be enqueued")
	}
}

func TestPendingQueueDrainAbortsOnNonForwardReferenceError(t *testing.T) {
	q := newPendingQueue[string]()
	q.Enqueue("a", func(string) error { return &ForwardReferenceError{Reference: "a"} })
	boom := errors.New("boom")
	q.Enqueue("b", func(string) error { return boom })

	err := q.Drain()
	if !errors.Is(err, boom) {
		t.Fatalf("Drain() = %v, want boom", err)
	}
	if q.Len() != 2 {
		t.Fatalf("Len() = %d, want both entries preserved after abort", q.Len())
	}
}

func TestPendingQueueValues(t *testing.T) {
	q := newPendingQueue[int]()
	q.Enqueue(1, func(int) error { return &ForwardReferenceError{} })
	q.Enqueue(2, func(int) error { return &ForwardReferenceError{} })
	vals := q.Values()
	if len(vals) != 2 || vals[0] != 1 || vals[1] != 2 {
		t.Fatalf("Values() = %v", vals)
	}
}
