package twopc

import (
	"context"
	"fmt"
	"time"

	"github.com/pgmesh/pgmesh/pkg/mesherr"
	"github.com/pgmesh/pgmesh/pkg/meshlog"
)

/*
* Orphaned prepared transactions are an inherent 2PC risk: a shard that
* prepared but never saw its COMMIT PREPARED holds locks until an
* operator resolves it. These entry points are deliberately kept off the
* normal API surface.
 */

// PreparedTxInfo describes one prepared transaction found on a shard.
type PreparedTxInfo struct {
	ShardID  int
	Gid      string
	Prepared time.Time
	Owner    string
	Database string
}

// ListPrepared scans every worker shard for pending prepared
// transactions.
func (c *Coordinator) ListPrepared(ctx context.Context) ([]PreparedTxInfo, error) {
	var ret []PreparedTxInfo

	for _, id := range c.rtr.Resolver().ShardIDs() {
		p, ok := c.rtr.WorkerPool(id)
		if !ok {
			continue
		}

		sh, err := p.Connection(ctx)
		if err != nil {
			return nil, err
		}

		rows, err := sh.Query(ctx, "SELECT gid, prepared, owner, database FROM pg_prepared_xacts")
		if err != nil {
			_ = p.Discard(sh)
			return nil, mesherr.ClassifyExec(err)
		}
		_ = p.Put(sh)

		for _, row := range rows {
			info := PreparedTxInfo{ShardID: id}
			if len(row) >= 4 {
				info.Gid = fmt.Sprintf("%v", row[0])
				if ts, ok := row[1].(time.Time); ok {
					info.Prepared = ts
				}
				info.Owner = fmt.Sprintf("%v", row[2])
				info.Database = fmt.Sprintf("%v", row[3])
			}
			ret = append(ret, info)
		}
	}

	return ret, nil
}

// ForceResolve finishes an orphaned prepared transaction on one shard:
// COMMIT PREPARED when commit is set, ROLLBACK PREPARED otherwise. This
// is a dangerous operator action; resolving the same gid differently on
// different shards breaks atomicity by hand.
//
// Parameters:
//   - ctx: Caller context.
//   - shardID: The shard holding the prepared transaction.
//   - gid: The global transaction id, as issued by Commit.
//   - commit: true to commit, false to roll back.
//
// Returns:
//   - error: A typed error if the shard is unknown or the statement
//     fails.
func (c *Coordinator) ForceResolve(ctx context.Context, shardID int, gid string, commit bool) error {
	if err := validateGid(gid); err != nil {
		return err
	}

	p, ok := c.rtr.WorkerPool(shardID)
	if !ok {
		return mesherr.Newf(mesherr.MESH_ROUTING_ERROR, "no worker configured for shard %d", shardID)
	}

	sh, err := p.Connection(ctx)
	if err != nil {
		return err
	}

	stmt := fmt.Sprintf(`ROLLBACK PREPARED '%s'`, gid)
	if commit {
		stmt = fmt.Sprintf(`COMMIT PREPARED '%s'`, gid)
	}

	if _, err := sh.Exec(ctx, stmt); err != nil {
		_ = p.Discard(sh)
		return mesherr.ClassifyExec(err)
	}
	_ = p.Put(sh)

	meshlog.Zero.Warn().
		Str("txid", gid).
		Int("shard", shardID).
		Bool("commit", commit).
		Msg("force-resolved prepared transaction")

	return nil
}

// validateGid rejects gids that cannot be embedded as a literal. Ours
// are uuids, so the character set is tight.
func validateGid(gid string) error {
	if gid == "" || len(gid) > 200 {
		return mesherr.Newf(mesherr.MESH_TX_PROTOCOL_ERROR, "invalid transaction gid %q", gid)
	}
	for _, c := range gid {
		switch {
		case c >= 'a' && c <= 'z':
		case c >= 'A' && c <= 'Z':
		case c >= '0' && c <= '9':
		case c == '-' || c == '_':
		default:
			return mesherr.Newf(mesherr.MESH_TX_PROTOCOL_ERROR, "invalid character %q in transaction gid", c)
		}
	}
	return nil
}
