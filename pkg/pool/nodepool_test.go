package pool_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/mock/gomock"

	"github.com/pgmesh/pgmesh/pkg/config"
	"github.com/pgmesh/pgmesh/pkg/conn"
	"github.com/pgmesh/pgmesh/pkg/mesherr"
	mockconn "github.com/pgmesh/pgmesh/pkg/mock/conn"
	"github.com/pgmesh/pgmesh/pkg/pool"
	"github.com/pgmesh/pgmesh/pkg/txstatus"
)

func testPoolCfg(limit int) *config.PoolCfg {
	return &config.PoolCfg{
		ConnectionLimit:  limit,
		AcquireTimeoutMs: 100,
		ConnectTimeoutMs: 100,
	}
}

func TestNodePoolConnectionAcquirePut(t *testing.T) {
	assert := assert.New(t)
	ctrl := gomock.NewController(t)

	shardconn := mockconn.NewMockDBInstance(ctrl)
	shardconn.EXPECT().ID().AnyTimes().Return(uint(1234))
	shardconn.EXPECT().TxStatus().AnyTimes().Return(txstatus.TXIDLE)

	shp := pool.NewNodePool(func(ctx context.Context) (conn.DBInstance, error) {
		return shardconn, nil
	}, "h1", testPoolCfg(1))

	assert.Equal(1, shp.QueueResidualSize())
	assert.Equal(0, shp.IdleConnectionCount())

	sh, err := shp.Connection(context.Background())

	assert.NoError(err)
	assert.Equal(shardconn, sh)

	assert.Equal(0, shp.IdleConnectionCount())
	assert.Equal(0, shp.QueueResidualSize())
	assert.Equal(1, shp.UsedConnectionCount())

	assert.NoError(shp.Put(shardconn))

	assert.Equal(1, shp.QueueResidualSize())
	assert.Equal(1, shp.IdleConnectionCount())
	assert.Equal(0, shp.UsedConnectionCount())
}

func TestNodePoolConnectionAcquireDiscard(t *testing.T) {
	assert := assert.New(t)
	ctrl := gomock.NewController(t)

	shardconn := mockconn.NewMockDBInstance(ctrl)
	shardconn.EXPECT().ID().AnyTimes().Return(uint(1234))
	shardconn.EXPECT().TxStatus().AnyTimes().Return(txstatus.TXIDLE)
	shardconn.EXPECT().Close(gomock.Any()).Times(1)

	shp := pool.NewNodePool(func(ctx context.Context) (conn.DBInstance, error) {
		return shardconn, nil
	}, "h1", testPoolCfg(1))

	sh, err := shp.Connection(context.Background())
	assert.NoError(err)

	assert.NoError(shp.Discard(sh))

	assert.Equal(1, shp.QueueResidualSize())
	assert.Equal(0, shp.IdleConnectionCount())
	assert.Equal(0, shp.UsedConnectionCount())
}

func TestNodePoolReusesCachedConnection(t *testing.T) {
	assert := assert.New(t)
	ctrl := gomock.NewController(t)

	shardconn := mockconn.NewMockDBInstance(ctrl)
	shardconn.EXPECT().ID().AnyTimes().Return(uint(1))
	shardconn.EXPECT().TxStatus().AnyTimes().Return(txstatus.TXIDLE)

	allocs := 0
	shp := pool.NewNodePool(func(ctx context.Context) (conn.DBInstance, error) {
		allocs++
		return shardconn, nil
	}, "h1", testPoolCfg(2))

	for i := 0; i < 5; i++ {
		sh, err := shp.Connection(context.Background())
		assert.NoError(err)
		assert.NoError(shp.Put(sh))
	}

	assert.Equal(1, allocs)
}

func TestNodePoolDiscardsInTxConnectionOnPut(t *testing.T) {
	assert := assert.New(t)
	ctrl := gomock.NewController(t)

	shardconn := mockconn.NewMockDBInstance(ctrl)
	shardconn.EXPECT().ID().AnyTimes().Return(uint(7))
	shardconn.EXPECT().TxStatus().AnyTimes().Return(txstatus.TXACT)
	shardconn.EXPECT().Close(gomock.Any()).Times(1)

	shp := pool.NewNodePool(func(ctx context.Context) (conn.DBInstance, error) {
		return shardconn, nil
	}, "h1", testPoolCfg(1))

	sh, err := shp.Connection(context.Background())
	assert.NoError(err)

	assert.NoError(shp.Put(sh))
	assert.Equal(0, shp.IdleConnectionCount())
	assert.Equal(1, shp.QueueResidualSize())
}

func TestNodePoolAcquireTimeout(t *testing.T) {
	assert := assert.New(t)
	ctrl := gomock.NewController(t)

	shardconn := mockconn.NewMockDBInstance(ctrl)
	shardconn.EXPECT().ID().AnyTimes().Return(uint(1))
	shardconn.EXPECT().TxStatus().AnyTimes().Return(txstatus.TXIDLE)

	shp := pool.NewNodePool(func(ctx context.Context) (conn.DBInstance, error) {
		return shardconn, nil
	}, "h1", testPoolCfg(1))

	_, err := shp.Connection(context.Background())
	assert.NoError(err)

	/* the single token is held, next acquire must time out */
	start := time.Now()
	_, err = shp.Connection(context.Background())
	assert.Error(err)
	assert.GreaterOrEqual(time.Since(start), 100*time.Millisecond)

	var me *mesherr.MeshError
	assert.True(errors.As(err, &me))
	assert.Equal(mesherr.MESH_POOL_TIMEOUT, me.ErrorCode)
	assert.True(mesherr.IsRetryable(err))
}

func TestNodePoolAllocFailureReturnsToken(t *testing.T) {
	assert := assert.New(t)

	shp := pool.NewNodePool(func(ctx context.Context) (conn.DBInstance, error) {
		return nil, errors.New("connection refused")
	}, "h1", testPoolCfg(1))

	_, err := shp.Connection(context.Background())
	assert.Error(err)
	assert.True(mesherr.IsRetryable(err))

	/* failed alloc must not leak the token */
	assert.Equal(1, shp.QueueResidualSize())
}
