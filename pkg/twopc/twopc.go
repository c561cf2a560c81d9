package twopc

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/pgmesh/pgmesh/pkg/config"
	"github.com/pgmesh/pgmesh/pkg/conn"
	"github.com/pgmesh/pgmesh/pkg/mesherr"
	"github.com/pgmesh/pgmesh/pkg/meshlog"
	"github.com/pgmesh/pgmesh/pkg/pool"
	"github.com/pgmesh/pgmesh/pkg/router"
)

// Coordinator drives two-phase commit across worker shards. It obtains
// one pooled connection per participant from the router and holds it for
// the whole transaction lifetime.
type Coordinator struct {
	rtr *router.Router
	cfg *config.TwoPCCfg
}

func NewCoordinator(rtr *router.Router, cfg *config.TwoPCCfg) *Coordinator {
	return &Coordinator{
		rtr: rtr,
		cfg: cfg,
	}
}

type participant struct {
	shardID int
	pool    pool.Pool
	sh      conn.DBInstance

	prepared bool
}

// DistributedTx is one in-flight distributed transaction. It is owned by
// a single caller and is not safe for concurrent use.
type DistributedTx struct {
	id    string
	phase Phase

	cfg *config.TwoPCCfg

	/* participant shard ids in ascending order */
	order        []int
	participants map[int]*participant
}

func (tx *DistributedTx) ID() string {
	return tx.id
}

func (tx *DistributedTx) Phase() Phase {
	return tx.phase
}

// Participants returns the participating shard ids in ascending order.
func (tx *DistributedTx) Participants() []int {
	ids := make([]int, len(tx.order))
	copy(ids, tx.order)
	return ids
}

// Begin opens a distributed transaction over the shards resolved from
// shardKeys: one connection is acquired per distinct shard and a local
// transaction started on it. If any shard cannot be opened, every
// already-started local transaction is rolled back and all connections
// released; the transaction never partially starts.
//
// Parameters:
//   - ctx: Caller context.
//   - shardKeys: Routing keys naming the participants; duplicates
//     resolving to the same shard collapse into one participant.
//
// Returns:
//   - *DistributedTx: The open transaction handle.
//   - error: A typed error if resolution or any open step fails.
func (c *Coordinator) Begin(ctx context.Context, shardKeys ...any) (*DistributedTx, error) {
	if len(shardKeys) == 0 {
		return nil, mesherr.New(mesherr.MESH_TX_PROTOCOL_ERROR, "distributed transaction needs at least one shard key")
	}

	shardIDs := map[int]struct{}{}
	for _, key := range shardKeys {
		id, err := c.rtr.Resolver().Resolve(key)
		if err != nil {
			return nil, err
		}
		shardIDs[id] = struct{}{}
	}

	ids := make([]int, 0, len(shardIDs))
	for id := range shardIDs {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	return c.BeginShards(ctx, ids...)
}

// BeginShards is Begin for callers that already know the participant
// shard ids.
func (c *Coordinator) BeginShards(ctx context.Context, shardIDs ...int) (*DistributedTx, error) {
	uid7, err := uuid.NewV7()
	if err != nil {
		return nil, err
	}

	tx := &DistributedTx{
		id:           uid7.String(),
		phase:        PhaseOpen,
		cfg:          c.cfg,
		participants: map[int]*participant{},
	}

	for _, id := range shardIDs {
		p, ok := c.rtr.WorkerPool(id)
		if !ok {
			tx.releaseAll(ctx, true)
			return nil, mesherr.Newf(mesherr.MESH_ROUTING_ERROR, "no worker configured for shard %d", id)
		}

		sh, err := p.Connection(ctx)
		if err != nil {
			tx.releaseAll(ctx, true)
			return nil, err
		}

		part := &participant{shardID: id, pool: p, sh: sh}
		tx.participants[id] = part
		tx.order = append(tx.order, id)

		sctx, cancel := context.WithTimeout(ctx, c.cfg.StatementTimeout())
		_, err = sh.Exec(sctx, "BEGIN")
		cancel()
		if err != nil {
			tx.releaseAll(ctx, true)
			return nil, mesherr.Wrap(mesherr.MESH_CONNECTION_ERROR, err)
		}
	}

	meshlog.Zero.Info().
		Str("txid", tx.id).
		Ints("shards", tx.order).
		Msg("opened distributed transaction")

	return tx, nil
}

// Exec runs a statement inside the transaction on the shard resolved
// from shardKey.
func (c *Coordinator) Exec(ctx context.Context, tx *DistributedTx, shardKey any, query string, args ...any) (int64, error) {
	id, err := c.rtr.Resolver().Resolve(shardKey)
	if err != nil {
		return 0, err
	}
	return tx.ExecOn(ctx, id, query, args...)
}

// ExecOn runs a statement inside the transaction on one participant.
func (tx *DistributedTx) ExecOn(ctx context.Context, shardID int, query string, args ...any) (int64, error) {
	if tx.phase != PhaseOpen {
		return 0, mesherr.Newf(mesherr.MESH_TX_PROTOCOL_ERROR,
			"cannot execute in phase %s", tx.phase)
	}

	part, ok := tx.participants[shardID]
	if !ok {
		return 0, mesherr.Newf(mesherr.MESH_TX_PROTOCOL_ERROR,
			"shard %d is not a participant of transaction %s", shardID, tx.id)
	}

	sctx, cancel := context.WithTimeout(ctx, tx.cfg.StatementTimeout())
	defer cancel()

	affected, err := part.sh.Exec(sctx, query, args...)
	if err != nil {
		return 0, mesherr.ClassifyExec(err)
	}
	return affected, nil
}

// QueryOn runs a read inside the transaction on one participant.
func (tx *DistributedTx) QueryOn(ctx context.Context, shardID int, query string, args ...any) ([][]any, error) {
	if tx.phase != PhaseOpen {
		return nil, mesherr.Newf(mesherr.MESH_TX_PROTOCOL_ERROR,
			"cannot execute in phase %s", tx.phase)
	}

	part, ok := tx.participants[shardID]
	if !ok {
		return nil, mesherr.Newf(mesherr.MESH_TX_PROTOCOL_ERROR,
			"shard %d is not a participant of transaction %s", shardID, tx.id)
	}

	sctx, cancel := context.WithTimeout(ctx, tx.cfg.StatementTimeout())
	defer cancel()

	rows, err := part.sh.Query(sctx, query, args...)
	if err != nil {
		return nil, mesherr.ClassifyExec(err)
	}
	return rows, nil
}

// releaseAll hands every participant connection back to its pool. With
// rollback set, open local transactions are rolled back first.
func (tx *DistributedTx) releaseAll(ctx context.Context, rollback bool) {
	for _, id := range tx.order {
		part := tx.participants[id]
		if part.sh == nil {
			continue
		}

		if rollback {
			sctx, cancel := context.WithTimeout(ctx, tx.cfg.StatementTimeout())
			_, err := part.sh.Exec(sctx, "ROLLBACK")
			cancel()
			if err != nil {
				meshlog.Zero.Debug().
					Str("txid", tx.id).
					Int("shard", part.shardID).
					Err(err).
					Msg("rollback on release failed, discarding connection")
				_ = part.pool.Discard(part.sh)
				part.sh = nil
				continue
			}
		}

		_ = part.pool.Put(part.sh)
		part.sh = nil
	}
}

func (tx *DistributedTx) prepareStmt() string {
	return fmt.Sprintf(`PREPARE TRANSACTION '%s'`, tx.id)
}

func (tx *DistributedTx) commitPreparedStmt() string {
	return fmt.Sprintf(`COMMIT PREPARED '%s'`, tx.id)
}

func (tx *DistributedTx) rollbackPreparedStmt() string {
	return fmt.Sprintf(`ROLLBACK PREPARED '%s'`, tx.id)
}
