package probe

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/vertti/sshprobe/pkg/check"
)

// RunAll runs probes in parallel, at most limit at a time (no limit when
// limit <= 0), and returns their results in input order. Probes share no
// state; each opens and closes its own shell.
func RunAll(ctx context.Context, probes []*Probe, limit int) []check.Result {
	results := make([]check.Result, len(probes))

	var g errgroup.Group
	if limit > 0 {
		g.SetLimit(limit)
	}
	for i, p := range probes {
		g.Go(func() error {
			results[i] = p.Run(ctx)
			return nil
		})
	}
	_ = g.Wait()
	return results
}
