package catalog

import (
	"context"
	"sort"

	"golang.org/x/sync/errgroup"
)

// maxParallelProbes bounds how many datasets Validate checks at once.
const maxParallelProbes = 8

// ValidationResult is the outcome of probing one dataset.
type ValidationResult struct {
	Name   string
	Exists bool
	Err    error
}

// Validate probes every dataset's target concurrently and reports per
// dataset whether it holds data. A failing probe is captured in its
// result, not returned: the report always covers the whole catalog.
func (c *Catalog) Validate(ctx context.Context) []ValidationResult {
	names := c.Names()
	results := make([]ValidationResult, len(names))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallelProbes)

	for i, name := range names {
		g.Go(func() error {
			select {
			case <-gctx.Done():
				results[i] = ValidationResult{Name: name, Err: gctx.Err()}
				return nil
			default:
			}

			exists, err := c.Exists(gctx, name)
			results[i] = ValidationResult{Name: name, Exists: exists, Err: err}
			return nil
		})
	}
	// Goroutines never return errors; failures live in the results.
	_ = g.Wait()

	sort.Slice(results, func(i, j int) bool { return results[i].Name < results[j].Name })
	return results
}
