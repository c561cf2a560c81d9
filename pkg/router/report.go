package router

import (
	"time"

	"github.com/pgmesh/pgmesh/pkg/statistics"
)

type PoolReport struct {
	UsedConnections int `json:"used_connections"`
	IdleConnections int `json:"idle_connections"`
}

type NodeReport struct {
	Host        string    `json:"host"`
	Role        string    `json:"role"`
	ShardID     int       `json:"shard_id,omitempty"`
	Alive       bool      `json:"alive"`
	LastChecked time.Time `json:"last_checked"`
	Reason      string    `json:"reason"`

	Pool PoolReport `json:"pool"`
}

type ClusterReport struct {
	Coordinator NodeReport   `json:"coordinator"`
	Workers     []NodeReport `json:"workers"`
	Replicas    []NodeReport `json:"replicas"`

	Statistics statistics.Snapshot `json:"statistics"`
}

func (r *Router) nodeReport(h *nodeHandle) NodeReport {
	return NodeReport{
		Host:        h.node.Address(),
		Role:        string(h.node.Role),
		ShardID:     h.node.ShardID,
		Alive:       h.state.Alive(),
		LastChecked: h.state.LastChecked(),
		Reason:      h.state.Reason(),
		Pool: PoolReport{
			UsedConnections: h.pool.UsedConnectionCount(),
			IdleConnections: h.pool.IdleConnectionCount(),
		},
	}
}

// Health returns a read-consistent snapshot of per-node health and the
// operation counters. It reflects the most recent probe outcome within
// one probe interval.
func (r *Router) Health() ClusterReport {
	rep := ClusterReport{
		Coordinator: r.nodeReport(r.coordinator),
		Statistics:  r.stats.Snapshot(),
	}

	for _, id := range r.resolver.ShardIDs() {
		rep.Workers = append(rep.Workers, r.nodeReport(r.workers[id]))
	}
	for _, h := range r.replicas {
		rep.Replicas = append(rep.Replicas, r.nodeReport(h))
	}

	return rep
}
