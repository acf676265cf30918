// Package runner executes a task over a fixed work queue with a cap on
// simultaneous in-flight operations.
package runner

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
)

// Run processes every item with at most limit tasks in flight. Each item is
// attempted exactly once; a task failure (error or panic) is logged and
// counted, never propagated, so one bad item cannot abort the queue. Run
// returns the failure count once all in-flight tasks have settled.
//
// Completion order across items is unspecified; side effects inside task
// must be order-independent.
func Run[T any](ctx context.Context, items []T, limit int, task func(context.Context, T) error) int {
	if len(items) == 0 {
		return 0
	}
	if limit <= 0 {
		limit = 1
	}
	if limit > len(items) {
		limit = len(items)
	}

	var failures int64
	group := new(errgroup.Group)
	group.SetLimit(limit)

	for _, item := range items {
		item := item
		group.Go(func() error {
			if err := attempt(ctx, item, task); err != nil {
				atomic.AddInt64(&failures, 1)
				slog.Warn("runner task failed", slog.Any("error", err))
			}
			return nil
		})
	}

	// Tasks always return nil to the group, so Wait only synchronizes.
	_ = group.Wait()
	return int(atomic.LoadInt64(&failures))
}

func attempt[T any](ctx context.Context, item T, task func(context.Context, T) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("task panic: %v", r)
		}
	}()
	return task(ctx, item)
}
