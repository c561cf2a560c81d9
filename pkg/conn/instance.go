package conn

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/atomic"

	"github.com/pgmesh/pgmesh/pkg/meshlog"
	"github.com/pgmesh/pgmesh/pkg/topology"
	"github.com/pgmesh/pgmesh/pkg/txstatus"
)

// DBInstance is one live backend connection to a physical node. The SQL
// engine behind it is opaque: the instance accepts a statement with
// parameters and returns rows or an error, nothing more.
type DBInstance interface {
	txstatus.TxStatusMgr

	ID() uint
	Hostname() string

	Exec(ctx context.Context, query string, args ...any) (int64, error)
	Query(ctx context.Context, query string, args ...any) ([][]any, error)
	Ping(ctx context.Context) error

	Close(ctx context.Context) error
}

// ConnectFn opens a fresh connection to the given node. Injected into
// pools so tests can substitute fake instances.
type ConnectFn func(ctx context.Context, node *topology.Node) (DBInstance, error)

var nextInstanceID = atomic.NewUint64(0)

type PostgreSQLInstance struct {
	conn *pgx.Conn

	id       uint
	hostname string
}

var _ DBInstance = &PostgreSQLInstance{}

// NewInstanceConn dials node and performs the startup handshake within
// connectTimeout.
func NewInstanceConn(ctx context.Context, node *topology.Node, connectTimeout time.Duration) (DBInstance, error) {
	dsn := fmt.Sprintf("host=%s port=%d dbname=%s user=%s password=%s connect_timeout=%d",
		node.Host, node.Port, node.DB, node.Usr, node.Passwd, int(connectTimeout.Seconds()))

	cfg, err := pgx.ParseConfig(dsn)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	pgconn, err := pgx.ConnectConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}

	instance := &PostgreSQLInstance{
		conn:     pgconn,
		id:       uint(nextInstanceID.Inc()),
		hostname: node.Address(),
	}

	meshlog.Zero.Debug().
		Uint("instance", instance.id).
		Str("host", instance.hostname).
		Msg("initialized new postgresql instance connection")

	return instance, nil
}

func (pgi *PostgreSQLInstance) ID() uint {
	return pgi.id
}

func (pgi *PostgreSQLInstance) Hostname() string {
	return pgi.hostname
}

func (pgi *PostgreSQLInstance) TxStatus() txstatus.TXStatus {
	return txstatus.TXStatus(pgi.conn.PgConn().TxStatus())
}

func (pgi *PostgreSQLInstance) Exec(ctx context.Context, query string, args ...any) (int64, error) {
	tag, err := pgi.conn.Exec(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (pgi *PostgreSQLInstance) Query(ctx context.Context, query string, args ...any) ([][]any, error) {
	rows, err := pgi.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ret [][]any
	for rows.Next() {
		vals, err := rows.Values()
		if err != nil {
			return nil, err
		}
		ret = append(ret, vals)
	}
	return ret, rows.Err()
}

func (pgi *PostgreSQLInstance) Ping(ctx context.Context) error {
	return pgi.conn.Ping(ctx)
}

func (pgi *PostgreSQLInstance) Close(ctx context.Context) error {
	return pgi.conn.Close(ctx)
}
