package router

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/pgmesh/pgmesh/pkg/mesherr"
	"github.com/pgmesh/pgmesh/pkg/statistics"
)

// QueryAllShards issues the same read statement to every worker primary
// in parallel and merges the row sets. There is no atomicity or snapshot
// guarantee across shards, so it must not be used for writes; it exists
// for cluster-wide scans. Row order across shards is unspecified.
//
// Parameters:
//   - ctx: Caller context; cancelled as soon as any shard fails.
//   - query: The read statement to fan out.
//   - args: Statement parameters, identical for every shard.
//
// Returns:
//   - *Result: The merged rows from all shards.
//   - error: The first shard failure, typed like any routed error.
func (r *Router) QueryAllShards(ctx context.Context, query string, args ...any) (*Result, error) {
	if len(r.workers) == 0 {
		r.stats.RecordError()
		return nil, mesherr.New(mesherr.MESH_NO_SHARDS, "cannot fan out: no worker shards configured")
	}

	start := time.Now()

	g, ctx := errgroup.WithContext(ctx)

	var mu sync.Mutex
	merged := &Result{}

	for _, id := range r.resolver.ShardIDs() {
		h := r.workers[id]
		g.Go(func() error {
			res, err := r.executeWithRetry(ctx, OpRead, func() (*nodeHandle, error) {
				return h, nil
			}, query, args...)
			if err != nil {
				return err
			}

			mu.Lock()
			merged.Rows = append(merged.Rows, res.Rows...)
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		r.stats.RecordError()
		return nil, err
	}

	r.stats.RecordOperation(statistics.OpClassFanout)
	r.stats.RecordLatency(statistics.OpClassFanout, time.Since(start))
	return merged, nil
}
