package statistics_test

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/pgmesh/pgmesh/pkg/statistics"
)

func TestCountersAccumulate(t *testing.T) {
	assert := assert.New(t)

	reg := statistics.NewRegistry()

	for i := 0; i < 10; i++ {
		reg.RecordOperation(statistics.OpClassRead)
	}
	for i := 0; i < 5; i++ {
		reg.RecordOperation(statistics.OpClassWrite)
	}
	reg.RecordOperation(statistics.OpClassDDL)
	reg.RecordError()
	reg.RecordError()
	reg.RecordRetry()
	reg.RecordRetry()
	reg.RecordRetry()

	snap := reg.Snapshot()
	assert.Equal(int64(10), snap.Reads)
	assert.Equal(int64(5), snap.Writes)
	assert.Equal(int64(1), snap.DDL)
	assert.Equal(int64(2), snap.Errors)
	assert.Equal(int64(3), snap.Retries)
	assert.Equal(int64(18), snap.Total)
}

func TestFanoutCountsAsRead(t *testing.T) {
	assert := assert.New(t)

	reg := statistics.NewRegistry()
	reg.RecordOperation(statistics.OpClassFanout)

	snap := reg.Snapshot()
	assert.Equal(int64(1), snap.Reads)
}

func TestSnapshotIsDetached(t *testing.T) {
	assert := assert.New(t)

	reg := statistics.NewRegistry()
	reg.RecordOperation(statistics.OpClassRead)

	snap := reg.Snapshot()
	reg.RecordOperation(statistics.OpClassRead)
	reg.RecordLatency(statistics.OpClassRead, time.Millisecond)

	assert.Equal(int64(1), snap.Reads)
	assert.Empty(snap.Latency)
}

func TestLatencyQuantiles(t *testing.T) {
	assert := assert.New(t)

	reg := statistics.NewRegistry()
	for i := 1; i <= 100; i++ {
		reg.RecordLatency(statistics.OpClassWrite, time.Duration(i)*time.Millisecond)
	}

	snap := reg.Snapshot()
	q, ok := snap.Latency[statistics.OpClassWrite]
	assert.True(ok)
	assert.InDelta(50, q.P50, 5)
	assert.InDelta(95, q.P95, 5)
	assert.LessOrEqual(q.P50, q.P95)
	assert.LessOrEqual(q.P95, q.P99)
}

func TestConcurrentIncrement(t *testing.T) {
	assert := assert.New(t)

	reg := statistics.NewRegistry()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 1000; j++ {
				reg.RecordOperation(statistics.OpClassRead)
				reg.RecordLatency(statistics.OpClassRead, time.Microsecond)
			}
		}()
	}
	wg.Wait()

	snap := reg.Snapshot()
	assert.Equal(int64(8000), snap.Reads)
	assert.Equal(int64(8000), snap.Total)
}
