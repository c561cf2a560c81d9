package pool

import (
	"context"
	"sync"
	"time"

	"github.com/pgmesh/pgmesh/pkg/config"
	"github.com/pgmesh/pgmesh/pkg/conn"
	"github.com/pgmesh/pgmesh/pkg/mesherr"
	"github.com/pgmesh/pgmesh/pkg/meshlog"
	"github.com/pgmesh/pgmesh/pkg/txstatus"
)

/* pool for single node */

type nodePool struct {
	mu   sync.Mutex
	pool []conn.DBInstance

	queue chan struct{}

	active map[uint]conn.DBInstance

	alloc ConnectionAllocFn

	host string

	connectionLimit int
	acquireTimeout  time.Duration
}

var _ Pool = &nodePool{}

func NewNodePool(allocFn ConnectionAllocFn, host string, cfg *config.PoolCfg) Pool {
	ret := &nodePool{
		mu:              sync.Mutex{},
		pool:            nil,
		active:          make(map[uint]conn.DBInstance),
		alloc:           allocFn,
		host:            host,
		connectionLimit: cfg.ConnectionLimit,
		acquireTimeout:  cfg.AcquireTimeout(),
	}

	ret.queue = make(chan struct{}, ret.connectionLimit)
	for tok := 0; tok < ret.connectionLimit; tok++ {
		ret.queue <- struct{}{}
	}

	meshlog.Zero.Debug().
		Str("host", host).
		Int("tokens", ret.connectionLimit).
		Msg("initialized pool queue with tokens")

	return ret
}

func (h *nodePool) Hostname() string {
	return h.host
}

func (h *nodePool) UsedConnectionCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.active)
}

func (h *nodePool) IdleConnectionCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.pool)
}

func (h *nodePool) QueueResidualSize() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.queue)
}

// Connection acquires a connection to the pool's node, reusing a cached
// one when possible. Acquisition blocks until a pool token is available,
// the acquire timeout elapses, or ctx is done. Timeout yields a typed
// pool-timeout error, which the router treats as transient.
func (h *nodePool) Connection(ctx context.Context) (conn.DBInstance, error) {
	if err := func() error {
		timer := time.NewTimer(h.acquireTimeout)
		defer timer.Stop()

		select {
		case <-h.queue:
			return nil
		case <-ctx.Done():
			return mesherr.Wrap(mesherr.MESH_POOL_TIMEOUT, ctx.Err())
		case <-timer.C:
			return mesherr.Newf(mesherr.MESH_POOL_TIMEOUT,
				"failed to get connection to host %s within %s due to too much concurrent connections", h.host, h.acquireTimeout)
		}
	}(); err != nil {
		return nil, err
	}

	var sh conn.DBInstance

	/* reuse cached connection, if any */
	{
		h.mu.Lock()

		if len(h.pool) > 0 {
			sh, h.pool = h.pool[0], h.pool[1:]
			h.active[sh.ID()] = sh
			h.mu.Unlock()
			meshlog.Zero.Debug().
				Uint("instance", sh.ID()).
				Str("host", h.host).
				Msg("reuse cached connection to node")
			return sh, nil
		}

		h.mu.Unlock()
	}

	/* do not hold the pool mutex while allocating new connection */
	sh, err := h.alloc(ctx)
	if err != nil {
		/* return acquired token */
		h.queue <- struct{}{}
		return nil, mesherr.Wrap(mesherr.MESH_CONNECTION_ERROR, err)
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	h.active[sh.ID()] = sh

	return sh, nil
}

// Discard closes the connection and drops it from the pool.
func (h *nodePool) Discard(sh conn.DBInstance) error {
	meshlog.Zero.Debug().
		Uint("instance", sh.ID()).
		Str("host", h.host).
		Msg("discard connection to node from pool")

	/* do not hold mutex while cleanup server connection */
	err := sh.Close(context.Background())

	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.active[sh.ID()]; !ok {
		// double free
		return nil
	}

	/* acquired tok, release it */
	h.queue <- struct{}{}

	delete(h.active, sh.ID())

	return err
}

// Put returns the connection to the pool for reuse. A connection left
// mid-transaction cannot be reused and is discarded instead.
func (h *nodePool) Put(sh conn.DBInstance) error {
	meshlog.Zero.Debug().
		Uint("instance", sh.ID()).
		Str("host", h.host).
		Msg("put connection back to pool")

	if sh.TxStatus() != txstatus.TXIDLE {
		return h.Discard(sh)
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.active[sh.ID()]; !ok {
		// double free
		return nil
	}

	/* acquired tok, release it */
	h.queue <- struct{}{}

	delete(h.active, sh.ID())

	h.pool = append(h.pool, sh)
	return nil
}

func (h *nodePool) ForEach(cb func(sh conn.DBInstance) error) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, sh := range h.pool {
		if err := cb(sh); err != nil {
			return err
		}
	}

	for _, sh := range h.active {
		if err := cb(sh); err != nil {
			return err
		}
	}
	return nil
}

// Close tears down all idle connections. Active connections are closed
// by their holders via Put/Discard.
func (h *nodePool) Close() error {
	h.mu.Lock()
	idle := h.pool
	h.pool = nil
	h.mu.Unlock()

	for _, sh := range idle {
		_ = sh.Close(context.Background())
	}
	return nil
}
