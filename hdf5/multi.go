package hdf5

import (
	"context"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// Selection is a rectangular hyperslab: Count elements starting at
// Start along each dimension.
type Selection struct {
	Start []uint64
	Count []uint64
}

// ReadRequest names one dataset read: the dataset, an optional
// selection (nil means the whole extent), and the destination, a
// pointer to a slice of a compatible type.
type ReadRequest struct {
	Dataset *Dataset
	Sel     *Selection
	Dest    any
}

// ReadMulti runs the requests concurrently, bounded by GOMAXPROCS. The
// first failure cancels the batch; requests not yet started are
// skipped, and ctx cancellation stops the batch between requests.
func ReadMulti(ctx context.Context, reqs []ReadRequest) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))

	for i := range reqs {
		i := i
		req := reqs[i]
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			if req.Dataset == nil {
				return fmt.Errorf("request %d: nil dataset", i)
			}
			if err := readOne(req); err != nil {
				return fmt.Errorf("reading %s: %w", req.Dataset.path, err)
			}
			return nil
		})
	}
	return g.Wait()
}

func readOne(req ReadRequest) error {
	if req.Sel == nil {
		return req.Dataset.Read(req.Dest)
	}
	return req.Dataset.ReadSliceInto(req.Sel.Start, req.Sel.Count, req.Dest)
}
