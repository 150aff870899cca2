// Package pipeline provides the bounded worker pool shared by the fan-out stages.
package pipeline

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// DefaultWorkers is used when a non-positive worker count is given
const DefaultWorkers = 10

// ForEach calls fn once per item with at most workers calls in flight. Units report their own
// outcome, so fn has no error return. Once ctx is done no further items are scheduled, in-flight
// calls are awaited and ctx.Err() is returned.
func ForEach[T any](ctx context.Context, workers int, items []T, fn func(ctx context.Context, item T)) error {
	if workers <= 0 {
		workers = DefaultWorkers
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for _, item := range items {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if gctx.Err() != nil {
				return nil
			}
			fn(gctx, item)
			return nil
		})
	}

	_ = g.Wait()
	return ctx.Err()
}
