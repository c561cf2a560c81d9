package health

import (
	"time"

	"go.uber.org/atomic"

	"github.com/pgmesh/pgmesh/pkg/topology"
)

// NodeState is the mutable health flag of one node. The prober is its
// single writer; the router only reads it. Atomic primitives keep the
// hot routing path lock-free.
type NodeState struct {
	node *topology.Node

	alive       *atomic.Bool
	lastChecked *atomic.Time
	reason      *atomic.String
}

// NewNodeState starts out alive so that routing works before the first
// probe completes; the first failed probe flips it.
func NewNodeState(node *topology.Node) *NodeState {
	return &NodeState{
		node:        node,
		alive:       atomic.NewBool(true),
		lastChecked: atomic.NewTime(time.Time{}),
		reason:      atomic.NewString("not probed yet"),
	}
}

func (s *NodeState) Node() *topology.Node {
	return s.node
}

func (s *NodeState) Alive() bool {
	return s.alive.Load()
}

func (s *NodeState) LastChecked() time.Time {
	return s.lastChecked.Load()
}

func (s *NodeState) Reason() string {
	return s.reason.Load()
}

func (s *NodeState) setResult(alive bool, reason string) {
	s.alive.Store(alive)
	s.reason.Store(reason)
	s.lastChecked.Store(time.Now())
}
