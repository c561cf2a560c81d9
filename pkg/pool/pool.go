package pool

import (
	"context"

	"github.com/pgmesh/pgmesh/pkg/conn"
)

// Pool is a bounded set of reusable connections to a single node. Only
// the pool creates or destroys physical connections.
type Pool interface {
	Connection(ctx context.Context) (conn.DBInstance, error)

	Put(sh conn.DBInstance) error
	Discard(sh conn.DBInstance) error

	Hostname() string

	UsedConnectionCount() int
	IdleConnectionCount() int
	QueueResidualSize() int

	ForEach(cb func(sh conn.DBInstance) error) error

	Close() error
}

// ConnectionAllocFn opens one fresh connection for the pool's node.
type ConnectionAllocFn func(ctx context.Context) (conn.DBInstance, error)
