package sqlmap

import (
	"testing"
	"time"
)

func TestPerpetualCacheBasics(t *testing.T) {
	c := NewPerpetualCache("ns")
	c.PutObject("k", 1)
	v, ok := c.GetObject("k")
	if !ok || v != 1 {
		t.Fatalf("GetObject = %v, %v", v, ok)
	}
	if c.Size() != 1 {
		t.Fatalf("Size() = %d", c.Size())
	}
	if !c.RemoveObject("k") {
		t.Fatal("RemoveObject should report true for an existing key")
	}
	if _, ok := c.GetObject("k"); ok {
		t.Fatal("expected miss after remove")
	}
}

func TestLruCacheEvictsFromDelegate(t *testing.T) {
	c := NewLruCache(NewPerpetualCache("ns"), 2)
	c.PutObject("a", 1)
	c.PutObject("b", 2)
	c.PutObject("c", 3) // evicts "a" (least recently touched)

	if _, ok := c.GetObject("a"); ok {
		t.Fatal("expected \"a\" evicted")
	}
	if v, ok := c.GetObject("b"); !ok || v != 2 {
		t.Fatalf("GetObject(b) = %v, %v", v, ok)
	}
	if c.Size() != 2 {
		t.Fatalf("Size() = %d, want 2", c.Size())
	}
}

func TestScheduledFlushCacheClearsAfterInterval(t *testing.T) {
	c := NewScheduledFlushCache(NewPerpetualCache("ns"), time.Minute)
	now := time.Now()
	c.now = func() time.Time { return now }
	c.PutObject("k", 1)

	now = now.Add(2 * time.Minute)
	if _, ok := c.GetObject("k"); ok {
		t.Fatal("expected cache flushed once interval elapsed")
	}
}

func TestSerializedCacheReturnsIndependentCopies(t *testing.T) {
	c := NewSerializedCache(NewPerpetualCache("ns"))
	original := map[string]int{"n": 1}
	c.PutObject("k", original)
	original["n"] = 999 // mutate after storing

	got, ok := c.GetObject("k")
	if !ok {
		t.Fatal("expected hit")
	}
	m := got.(map[string]int)
	if m["n"] != 1 {
		t.Fatalf("got %v, want defensive copy unaffected by later mutation", m)
	}
}

func TestBlockingCacheReleasesOnPut(t *testing.T) {
	c := NewBlockingCache(NewPerpetualCache("ns"), 0)
	if _, ok := c.GetObject("k"); ok {
		t.Fatal("expected miss")
	}
	done := make(chan struct{})
	go func() {
		c.PutObject("k", 42)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("PutObject after a miss should not block")
	}
	if v, ok := c.GetObject("k"); !ok || v != 42 {
		t.Fatalf("GetObject = %v, %v", v, ok)
	}
}

func TestCacheBuilderChainAndProperties(t *testing.T) {
	c := NewCacheBuilder("ns").
		WithSize(4).
		WithFlushInterval(0).
		WithReadWrite(true).
		Build()

	c.PutObject("k", "v")
	v, ok := c.GetObject("k")
	if !ok || v != "v" {
		t.Fatalf("GetObject = %v, %v", v, ok)
	}
}

func TestCacheBuilderSerializedWhenNotReadWrite(t *testing.T) {
	c := NewCacheBuilder("ns").WithReadWrite(false).Build()
	c.PutObject("k", []int{1, 2, 3})
	v, ok := c.GetObject("k")
	if !ok {
		t.Fatal("expected hit")
	}
	if got := v.([]int); len(got) != 3 || got[1] != 2 {
		t.Fatalf("got %v", got)
	}
}
