package runner

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
)

func TestRunVisitsEveryItemOnce(t *testing.T) {
	items := make([]int, 37)
	for i := range items {
		items[i] = i
	}

	var mu sync.Mutex
	visits := make(map[int]int)

	failed := Run(context.Background(), items, 10, func(_ context.Context, item int) error {
		mu.Lock()
		visits[item]++
		mu.Unlock()
		if item%8 == 0 { // items 0, 8, 16, 24, 32: five failures
			return errors.New("boom")
		}
		return nil
	})

	if len(visits) != 37 {
		t.Fatalf("visited %d distinct items, want 37", len(visits))
	}
	for item, count := range visits {
		if count != 1 {
			t.Fatalf("item %d visited %d times, want 1", item, count)
		}
	}
	if failed != 5 {
		t.Fatalf("failures = %d, want 5", failed)
	}
}

func TestRunCapsConcurrency(t *testing.T) {
	const limit = 10
	items := make([]int, 37)

	var inFlight, peak int64
	Run(context.Background(), items, limit, func(_ context.Context, _ int) error {
		current := atomic.AddInt64(&inFlight, 1)
		for {
			observed := atomic.LoadInt64(&peak)
			if current <= observed || atomic.CompareAndSwapInt64(&peak, observed, current) {
				break
			}
		}
		atomic.AddInt64(&inFlight, -1)
		return nil
	})

	if got := atomic.LoadInt64(&peak); got > limit {
		t.Fatalf("peak concurrency = %d, exceeds limit %d", got, limit)
	}
}

func TestRunSurvivesPanics(t *testing.T) {
	items := []int{1, 2, 3}
	var completed int64

	failed := Run(context.Background(), items, 2, func(_ context.Context, item int) error {
		if item == 2 {
			panic("unexpected markup")
		}
		atomic.AddInt64(&completed, 1)
		return nil
	})

	if completed != 2 {
		t.Fatalf("completed = %d, want 2", completed)
	}
	if failed != 1 {
		t.Fatalf("failures = %d, want 1", failed)
	}
}

func TestRunEmptyItems(t *testing.T) {
	if failed := Run(context.Background(), nil, 10, func(_ context.Context, _ int) error { return nil }); failed != 0 {
		t.Fatalf("failures = %d, want 0", failed)
	}
}
