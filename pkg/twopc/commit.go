package twopc

import (
	"context"
	"strings"

	"github.com/sethvargo/go-retry"

	"github.com/pgmesh/pgmesh/pkg/mesherr"
	"github.com/pgmesh/pgmesh/pkg/meshlog"
)

// Commit drives the two-phase protocol to completion.
//
// Phase one prepares every participant under a globally unique
// transaction id. Any prepare failure aborts the whole transaction:
// prepared participants get ROLLBACK PREPARED, the rest a plain
// ROLLBACK, and a typed abort error names the failing shard. No commit
// is ever issued unless every participant prepared.
//
// Phase two issues COMMIT PREPARED to each participant, retrying
// per-participant with capped exponential backoff: once prepare has
// globally succeeded the transaction is logically committed, so a
// commit-phase failure is never answered with rollback. If retries run
// out on some shard, a partial-commit error names the stuck shard and
// the transaction id so an operator can finish it manually (see
// ListPrepared/ForceResolve).
//
// Parameters:
//   - ctx: Caller context. Its deadline bounds each statement but a
//     commit-phase timeout still triggers retry, not rollback.
//
// Returns:
//   - error: nil on full commit, an abort error on prepare failure, a
//     partial-commit error when some participant's commit is pending.
func (tx *DistributedTx) Commit(ctx context.Context) error {
	if tx.phase != PhaseOpen {
		return mesherr.Newf(mesherr.MESH_TX_PROTOCOL_ERROR,
			"cannot commit transaction %s in phase %s", tx.id, tx.phase)
	}

	/* first phase */
	tx.phase = PhasePreparing

	for _, id := range tx.order {
		part := tx.participants[id]

		sctx, cancel := context.WithTimeout(ctx, tx.cfg.StatementTimeout())
		_, err := part.sh.Exec(sctx, tx.prepareStmt())
		cancel()

		if err != nil {
			meshlog.Zero.Warn().
				Str("txid", tx.id).
				Int("shard", id).
				Err(err).
				Msg("prepare failed, aborting distributed transaction")
			tx.abortPartialPrepare(ctx)
			return mesherr.Newf(mesherr.MESH_TX_ABORTED,
				"prepare failed on shard %d for transaction %s: %v", id, tx.id, err)
		}
		part.prepared = true
	}

	tx.phase = PhasePrepared

	meshlog.Zero.Info().
		Str("txid", tx.id).
		Msg("first phase succeeded")

	/* second phase: all participants prepared, commit is the only way out */
	tx.phase = PhaseCommitting

	var stuck []int
	for _, id := range tx.order {
		part := tx.participants[id]

		if err := tx.commitParticipant(ctx, part); err != nil {
			meshlog.Zero.Error().
				Str("txid", tx.id).
				Int("shard", id).
				Err(err).
				Msg("commit retries exhausted, prepared transaction left on shard")
			stuck = append(stuck, id)
			_ = part.pool.Discard(part.sh)
			part.sh = nil
			continue
		}

		meshlog.Zero.Info().
			Str("txid", tx.id).
			Int("shard", id).
			Msg("committed on shard")

		_ = part.pool.Put(part.sh)
		part.sh = nil
	}

	if len(stuck) > 0 {
		/* logically committed; the stuck shards need operator attention */
		strs := make([]string, 0, len(stuck))
		for _, id := range stuck {
			strs = append(strs, tx.participants[id].pool.Hostname())
		}
		return mesherr.Newf(mesherr.MESH_TX_PARTIAL_COMMIT,
			"transaction %s is committed but COMMIT PREPARED is still pending on shards %v (%s); resolve manually with COMMIT PREPARED '%s'",
			tx.id, stuck, strings.Join(strs, ", "), tx.id)
	}

	tx.phase = PhaseCommitted
	return nil
}

// commitParticipant retries COMMIT PREPARED with capped exponential
// backoff. Every error is treated as retryable here: commit is
// idempotent under the transaction id and must never regress to abort.
func (tx *DistributedTx) commitParticipant(ctx context.Context, part *participant) error {
	b := retry.NewExponential(tx.cfg.CommitBackoff())
	b = retry.WithCappedDuration(tx.cfg.CommitMaxBackoff(), b)
	b = retry.WithMaxRetries(tx.cfg.CommitRetries, b)

	return retry.Do(context.WithoutCancel(ctx), b, func(rctx context.Context) error {
		sctx, cancel := context.WithTimeout(rctx, tx.cfg.StatementTimeout())
		defer cancel()

		if _, err := part.sh.Exec(sctx, tx.commitPreparedStmt()); err != nil {
			meshlog.Zero.Warn().
				Str("txid", tx.id).
				Int("shard", part.shardID).
				Err(err).
				Msg("commit prepared failed, retrying")
			return retry.RetryableError(err)
		}
		return nil
	})
}

// abortPartialPrepare rolls the transaction back after a prepare-phase
// failure: ROLLBACK PREPARED on participants that did prepare, plain
// ROLLBACK on the rest. All connections are released.
func (tx *DistributedTx) abortPartialPrepare(ctx context.Context) {
	tx.phase = PhaseAborting

	for _, id := range tx.order {
		part := tx.participants[id]
		if part.sh == nil {
			continue
		}

		stmt := "ROLLBACK"
		if part.prepared {
			stmt = tx.rollbackPreparedStmt()
		}

		sctx, cancel := context.WithTimeout(ctx, tx.cfg.StatementTimeout())
		_, err := part.sh.Exec(sctx, stmt)
		cancel()
		if err != nil {
			meshlog.Zero.Warn().
				Str("txid", tx.id).
				Int("shard", id).
				Err(err).
				Msg("rollback during abort failed, discarding connection")
			_ = part.pool.Discard(part.sh)
			part.sh = nil
			continue
		}

		_ = part.pool.Put(part.sh)
		part.sh = nil
	}

	tx.phase = PhaseAborted
}

// Abort rolls back the whole transaction and releases every participant
// connection. Calling Abort on a terminal transaction is a no-op.
func (tx *DistributedTx) Abort(ctx context.Context) error {
	if tx.phase.terminal() {
		return nil
	}
	if tx.phase == PhaseCommitting {
		return mesherr.Newf(mesherr.MESH_TX_PROTOCOL_ERROR,
			"cannot abort transaction %s: commit phase already started", tx.id)
	}

	tx.abortPartialPrepare(ctx)

	meshlog.Zero.Info().
		Str("txid", tx.id).
		Msg("aborted distributed transaction")

	return nil
}
