package router

import (
	"context"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/pgmesh/pgmesh/pkg/mesherr"
	"github.com/pgmesh/pgmesh/pkg/meshlog"
)

// Execute routes one operation per the decision table and runs it with
// retry/backoff:
//
//  1. DDL always goes to the coordinator.
//  2. WRITE with a routing key goes to the resolved worker shard.
//  3. WRITE without a routing key goes to the coordinator.
//  4. READ goes to a healthy replica, round robin; with no healthy
//     replica it degrades to the coordinator.
//  5. DISTRIBUTED is rejected here: multi-shard atomic writes go through
//     the transaction coordinator, cluster-wide scans through
//     QueryAllShards.
//
// Parameters:
//   - ctx: Caller context; its deadline bounds every attempt.
//   - class: The caller-declared operation classification.
//   - routingKey: Optional shard-pinning key for writes; nil routes to
//     the coordinator.
//   - query: The statement to execute.
//   - args: Statement parameters.
//
// Returns:
//   - *Result: Rows for reads, affected-row count for writes and DDL.
//   - error: A typed error: permanent failures surface immediately,
//     transient ones only after retries are exhausted.
func (r *Router) Execute(ctx context.Context, class OperationClass, routingKey any, query string, args ...any) (*Result, error) {
	start := time.Now()

	pick, err := r.targetSelector(class, routingKey)
	if err != nil {
		r.stats.RecordError()
		return nil, err
	}

	res, err := r.executeWithRetry(ctx, class, pick, query, args...)
	if err != nil {
		r.stats.RecordError()
		return nil, err
	}

	r.stats.RecordOperation(class.statClass())
	r.stats.RecordLatency(class.statClass(), time.Since(start))
	return res, nil
}

// targetSelector returns the node-picking function for the operation.
// Selection is deferred into the retry loop so that health changes
// between attempts are observed.
func (r *Router) targetSelector(class OperationClass, routingKey any) (func() (*nodeHandle, error), error) {
	switch class {
	case OpDDL:
		return func() (*nodeHandle, error) { return r.coordinator, nil }, nil
	case OpWrite:
		if routingKey == nil {
			return func() (*nodeHandle, error) { return r.coordinator, nil }, nil
		}
		shardID, err := r.resolver.Resolve(routingKey)
		if err != nil {
			return nil, err
		}
		h, ok := r.workers[shardID]
		if !ok {
			return nil, mesherr.Newf(mesherr.MESH_ROUTING_ERROR, "no worker configured for shard %d", shardID)
		}
		return func() (*nodeHandle, error) {
			if !h.state.Alive() {
				return nil, mesherr.Newf(mesherr.MESH_CONNECTION_ERROR,
					"worker shard %d at %s is marked unhealthy", shardID, h.node.Address())
			}
			return h, nil
		}, nil
	case OpRead:
		return func() (*nodeHandle, error) { return r.pickReadTarget(), nil }, nil
	case OpDistributed:
		return nil, mesherr.New(mesherr.MESH_ROUTING_ERROR,
			"distributed operations are not routed to a single node: use the transaction coordinator for atomic writes or QueryAllShards for cluster-wide scans")
	default:
		return nil, mesherr.Newf(mesherr.MESH_ROUTING_ERROR, "unknown operation class %d", class)
	}
}

// pickReadTarget cycles fairly through the currently healthy replicas.
// Health is re-evaluated on every call; with no healthy replica left the
// read degrades to the coordinator, which is safe for reads.
func (r *Router) pickReadTarget() *nodeHandle {
	var healthy []*nodeHandle
	for _, h := range r.replicas {
		if h.state.Alive() {
			healthy = append(healthy, h)
		}
	}

	if len(healthy) == 0 {
		meshlog.Zero.Debug().Msg("no healthy replica, falling back to coordinator for read")
		return r.coordinator
	}

	idx := r.rrIdx.Inc() - 1
	return healthy[idx%uint64(len(healthy))]
}

func (r *Router) executeWithRetry(ctx context.Context, class OperationClass, pick func() (*nodeHandle, error), query string, args ...any) (*Result, error) {
	b := retry.NewExponential(r.retryCfg.InitialBackoff())
	b = retry.WithJitterPercent(r.retryCfg.JitterPercent, b)
	b = retry.WithCappedDuration(r.retryCfg.MaxBackoff(), b)
	b = retry.WithMaxRetries(r.retryCfg.MaxRetries, b)

	attempt := 0
	var res *Result

	err := retry.Do(ctx, b, func(ctx context.Context) error {
		if attempt > 0 {
			r.stats.RecordRetry()
			meshlog.Zero.Debug().
				Int("attempt", attempt).
				Str("class", class.String()).
				Msg("retrying routed operation")
		}
		attempt++

		res0, err := r.executeOnce(ctx, class, pick, query, args...)
		if err != nil {
			if mesherr.IsRetryable(err) {
				return retry.RetryableError(err)
			}
			return err
		}

		res = res0
		return nil
	})

	if err != nil {
		if mesherr.IsRetryable(err) {
			/* transient failure that survived all attempts */
			return nil, mesherr.Wrap(mesherr.MESH_ROUTING_ERROR, err)
		}
		return nil, err
	}

	return res, nil
}

// executeOnce performs one attempt: pick the target, acquire a pooled
// connection, run the statement and always hand the connection back on
// every exit path. The statement itself runs under the configured
// per-attempt timeout, so a wedged node surfaces as a transient error
// even when the caller supplies no deadline.
func (r *Router) executeOnce(ctx context.Context, class OperationClass, pick func() (*nodeHandle, error), query string, args ...any) (*Result, error) {
	h, err := pick()
	if err != nil {
		return nil, err
	}

	sh, err := h.pool.Connection(ctx)
	if err != nil {
		return nil, err
	}

	sctx, cancel := context.WithTimeout(ctx, r.retryCfg.StatementTimeout())
	defer cancel()

	var res *Result
	switch class {
	case OpRead:
		rows, err2 := sh.Query(sctx, query, args...)
		err = err2
		res = &Result{Rows: rows}
	default:
		affected, err2 := sh.Exec(sctx, query, args...)
		err = err2
		res = &Result{RowsAffected: affected}
	}

	if err != nil {
		err = mesherr.ClassifyExec(err)
		if mesherr.IsRetryable(err) {
			/* the connection is suspect, do not reuse it */
			_ = h.pool.Discard(sh)
		} else {
			_ = h.pool.Put(sh)
		}
		meshlog.Zero.Debug().
			Str("host", h.node.Address()).
			Str("class", class.String()).
			Err(err).
			Msg("routed statement failed")
		return nil, err
	}

	_ = h.pool.Put(sh)
	return res, nil
}
