package limiter

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/petcord/compositor/internal/logger"
)

// Result is one slot of a BoundedMap's output. Err is non-nil exactly when
// Value was not produced; BoundedMap never aborts the batch because one
// item failed.
type Result[T any] struct {
	Value T
	Err   error
}

// BoundedMap applies fn to each item with at most limit concurrent calls
// in flight, returning one Result per item in input order. A per-item
// failure never cancels the other in-flight calls or the batch as a
// whole — it only logs the diagnostic and leaves that slot absent.
//
// errgroup.Group is used purely for its SetLimit fan-out gate; its
// first-error-cancels-group behavior is deliberately not used here,
// since the spec requires per-item failure isolation rather than
// all-or-nothing semantics.
func BoundedMap[I any, O any](ctx context.Context, items []I, limit int, fn func(context.Context, I) (O, error)) []Result[O] {
	results := make([]Result[O], len(items))
	if len(items) == 0 {
		return results
	}
	if limit < 1 {
		limit = 1
	}

	var g errgroup.Group
	g.SetLimit(limit)

	for i, item := range items {
		i, item := i, item
		g.Go(func() error {
			value, err := fn(ctx, item)
			if err != nil {
				logger.Warnf("[Limiter] item %d failed: %v", i, err)
				results[i] = Result[O]{Err: err}
				return nil
			}
			results[i] = Result[O]{Value: value}
			return nil
		})
	}
	_ = g.Wait()

	return results
}
