package router

import (
	"context"

	"go.uber.org/atomic"

	"github.com/pgmesh/pgmesh/pkg/config"
	"github.com/pgmesh/pgmesh/pkg/conn"
	"github.com/pgmesh/pgmesh/pkg/health"
	"github.com/pgmesh/pgmesh/pkg/pool"
	"github.com/pgmesh/pgmesh/pkg/shardres"
	"github.com/pgmesh/pgmesh/pkg/statistics"
	"github.com/pgmesh/pgmesh/pkg/topology"
)

type OperationClass int

const (
	OpRead = OperationClass(iota)
	OpWrite
	OpDDL
	OpDistributed
)

func (c OperationClass) String() string {
	switch c {
	case OpRead:
		return "READ"
	case OpWrite:
		return "WRITE"
	case OpDDL:
		return "DDL"
	case OpDistributed:
		return "DISTRIBUTED"
	}
	return "invalid"
}

func (c OperationClass) statClass() statistics.OperationClass {
	switch c {
	case OpRead:
		return statistics.OpClassRead
	case OpWrite:
		return statistics.OpClassWrite
	default:
		return statistics.OpClassDDL
	}
}

// Result of one routed statement. Reads carry rows, writes and DDL carry
// the affected-row count.
type Result struct {
	RowsAffected int64
	Rows         [][]any
}

/* one node: its descriptor, its pool, its health flag */
type nodeHandle struct {
	node  *topology.Node
	pool  pool.Pool
	state *health.NodeState
}

// Router decides which physical node serves a given operation and
// executes it there through the node's connection pool, retrying
// transient failures with backoff.
type Router struct {
	coordinator *nodeHandle
	workers     map[int]*nodeHandle
	replicas    []*nodeHandle

	resolver *shardres.Resolver
	stats    *statistics.Registry

	retryCfg *config.RetryCfg

	rrIdx *atomic.Uint64
}

// NewRouter builds one pool per configured node and wires the shard
// resolver over the worker shard set. connect is injected so tests can
// substitute fake backends.
//
// Parameters:
//   - cfg: The loaded mesh config.
//   - cluster: The validated cluster topology.
//   - connect: Factory for fresh node connections.
//
// Returns:
//   - *Router: The initialized router.
//   - error: An error if the configured hash function is unknown.
func NewRouter(cfg *config.Mesh, cluster *topology.Cluster, connect conn.ConnectFn) (*Router, error) {
	hf, err := shardres.HashFunctionByName(cfg.HashFunction)
	if err != nil {
		return nil, err
	}

	newHandle := func(node *topology.Node) *nodeHandle {
		return &nodeHandle{
			node: node,
			pool: pool.NewNodePool(func(ctx context.Context) (conn.DBInstance, error) {
				return connect(ctx, node)
			}, node.Address(), &cfg.PoolCfg),
			state: health.NewNodeState(node),
		}
	}

	r := &Router{
		coordinator: newHandle(cluster.Coordinator),
		workers:     map[int]*nodeHandle{},
		resolver:    shardres.NewResolver(cluster.ShardIDs(), hf),
		stats:       statistics.NewRegistry(),
		retryCfg:    &cfg.RetryCfg,
		rrIdx:       atomic.NewUint64(0),
	}

	for id, node := range cluster.Workers {
		r.workers[id] = newHandle(node)
	}
	for _, node := range cluster.Replicas {
		r.replicas = append(r.replicas, newHandle(node))
	}

	return r, nil
}

func (r *Router) Resolver() *shardres.Resolver {
	return r.resolver
}

func (r *Router) Statistics() statistics.Snapshot {
	return r.stats.Snapshot()
}

// WorkerPool exposes the pool of one worker shard; the transaction
// coordinator holds its participant connections through these.
func (r *Router) WorkerPool(shardID int) (pool.Pool, bool) {
	h, ok := r.workers[shardID]
	if !ok {
		return nil, false
	}
	return h.pool, true
}

// ProbeTargets lists every node handle for the background prober.
func (r *Router) ProbeTargets() []health.Target {
	ret := []health.Target{{State: r.coordinator.state, Pool: r.coordinator.pool}}
	for _, id := range r.resolver.ShardIDs() {
		h := r.workers[id]
		ret = append(ret, health.Target{State: h.state, Pool: h.pool})
	}
	for _, h := range r.replicas {
		ret = append(ret, health.Target{State: h.state, Pool: h.pool})
	}
	return ret
}

func (r *Router) Close() error {
	for _, h := range r.allHandles() {
		_ = h.pool.Close()
	}
	return nil
}

func (r *Router) allHandles() []*nodeHandle {
	ret := []*nodeHandle{r.coordinator}
	for _, h := range r.workers {
		ret = append(ret, h)
	}
	ret = append(ret, r.replicas...)
	return ret
}
