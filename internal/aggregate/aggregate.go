// Package aggregate fans a request out over a list of identifiers and gathers
// the results back in input order.
//
// Aggregation is all-or-nothing: if any call fails the whole aggregate fails
// with an AggregationError naming the member, and no partial results are
// returned. Failed members do not cancel their siblings; every call is awaited
// before Map returns, so nothing keeps running in the background.
package aggregate

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	apierrors "github.com/revodata/databricks-mcp-server/internal/errors"
	"github.com/revodata/databricks-mcp-server/metrics"
)

// Func fetches the result for one identifier
type Func[ID, R any] func(ctx context.Context, id ID) (R, error)

// Map calls fn once per identifier, all concurrently, and returns the results
// in the order of ids. Concurrency against the remote API is bounded by the
// fetcher, not here.
func Map[ID, R any](ctx context.Context, ids []ID, fn Func[ID, R]) ([]R, error) {
	results := make([]R, len(ids))
	if len(ids) == 0 {
		return results, nil
	}
	metrics.FanoutSize.Observe(float64(len(ids)))

	var g errgroup.Group
	for i, id := range ids {
		g.Go(func() (err error) {
			defer func() {
				if r := recover(); r != nil {
					err = &apierrors.AggregationError{Index: i, ID: fmt.Sprint(id), Err: fmt.Errorf("panic: %v", r)}
				}
			}()

			r, err := fn(ctx, id)
			if err != nil {
				return &apierrors.AggregationError{Index: i, ID: fmt.Sprint(id), Err: err}
			}
			results[i] = r
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// FlatMap is Map for calls that return a list each; the lists are
// concatenated in input order.
func FlatMap[ID, R any](ctx context.Context, ids []ID, fn Func[ID, []R]) ([]R, error) {
	nested, err := Map(ctx, ids, fn)
	if err != nil {
		return nil, err
	}

	total := 0
	for _, rs := range nested {
		total += len(rs)
	}
	out := make([]R, 0, total)
	for _, rs := range nested {
		out = append(out, rs...)
	}
	return out, nil
}
