package shardres

import (
	"sort"

	"github.com/pgmesh/pgmesh/pkg/mesherr"
)

// Resolver deterministically maps a routing key to one of the configured
// worker shards: hash the key's canonical byte form, reduce modulo the
// shard count, index into the sorted shard id list. Shard count is fixed
// for the process lifetime; changing it remaps most keys, so rebalancing
// is an external operation.
type Resolver struct {
	shardIDs []int
	hf       HashFunctionType
}

func NewResolver(shardIDs []int, hf HashFunctionType) *Resolver {
	ids := make([]int, len(shardIDs))
	copy(ids, shardIDs)
	sort.Ints(ids)

	return &Resolver{
		shardIDs: ids,
		hf:       hf,
	}
}

func (r *Resolver) ShardCount() int {
	return len(r.shardIDs)
}

func (r *Resolver) ShardIDs() []int {
	ids := make([]int, len(r.shardIDs))
	copy(ids, r.shardIDs)
	return ids
}

// Resolve maps key to a worker shard id. Pure and deterministic: the
// same key always resolves to the same shard for a fixed shard set.
//
// Parameters:
//   - key: The routing key. Strings, byte slices and integer types are
//     supported.
//
// Returns:
//   - int: The resolved shard id.
//   - error: A no-shards error when no workers are configured, or an
//     encoding error for unsupported key types.
func (r *Resolver) Resolve(key any) (int, error) {
	if len(r.shardIDs) == 0 {
		return 0, mesherr.New(mesherr.MESH_NO_SHARDS,
			"cannot resolve routing key: no worker shards configured")
	}

	buf, err := encodeKey(key)
	if err != nil {
		return 0, err
	}

	h, err := applyHashFunction(buf, r.hf)
	if err != nil {
		return 0, err
	}

	return r.shardIDs[h%uint32(len(r.shardIDs))], nil
}
