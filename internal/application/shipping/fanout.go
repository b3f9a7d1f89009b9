package shipping

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// InsertFunc inserts one child under parentID and returns its result
type InsertFunc[S, R any] func(ctx context.Context, parentID uint32, child S) (R, error)

// FanOut inserts every child under parentID concurrently. All inserts are
// started before any is awaited, and result[i] always belongs to children[i]
// whatever order the inserts complete in.
//
// If any insert fails the call fails with the error of the lowest failing
// index. Inserts that already succeeded are not undone and siblings are not
// cancelled. An empty children slice returns an empty result without
// calling insert.
func FanOut[S, R any](ctx context.Context, parentID uint32, children []S, insert InsertFunc[S, R]) ([]R, error) {
	results := make([]R, len(children))
	if len(children) == 0 {
		return results, nil
	}

	errs := make([]error, len(children))
	var g errgroup.Group
	for i, child := range children {
		g.Go(func() error {
			results[i], errs[i] = insert(ctx, parentID, child)
			return nil
		})
	}
	_ = g.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return results, nil
}
