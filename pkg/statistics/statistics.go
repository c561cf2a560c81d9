package statistics

import (
	"sync"
	"time"

	"github.com/caio/go-tdigest"
	"go.uber.org/atomic"
)

type OperationClass string

const (
	OpClassRead   = OperationClass("read")
	OpClassWrite  = OperationClass("write")
	OpClassDDL    = OperationClass("ddl")
	OpClassFanout = OperationClass("fanout")
)

// Registry holds the process-wide operation counters plus per-class
// latency digests. Counters are atomic; digests are guarded by a mutex
// since tdigest is not safe for concurrent use. Readers only ever see
// copy-on-read snapshots.
type Registry struct {
	total   *atomic.Int64
	reads   *atomic.Int64
	writes  *atomic.Int64
	ddl     *atomic.Int64
	errors  *atomic.Int64
	retries *atomic.Int64

	mu      sync.Mutex
	latency map[OperationClass]*tdigest.TDigest
}

func NewRegistry() *Registry {
	return &Registry{
		total:   atomic.NewInt64(0),
		reads:   atomic.NewInt64(0),
		writes:  atomic.NewInt64(0),
		ddl:     atomic.NewInt64(0),
		errors:  atomic.NewInt64(0),
		retries: atomic.NewInt64(0),
		latency: make(map[OperationClass]*tdigest.TDigest),
	}
}

func (r *Registry) RecordOperation(class OperationClass) {
	r.total.Inc()
	switch class {
	case OpClassRead, OpClassFanout:
		r.reads.Inc()
	case OpClassWrite:
		r.writes.Inc()
	case OpClassDDL:
		r.ddl.Inc()
	}
}

func (r *Registry) RecordError() {
	r.total.Inc()
	r.errors.Inc()
}

func (r *Registry) RecordRetry() {
	r.retries.Inc()
}

func (r *Registry) RecordLatency(class OperationClass, d time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()

	td, ok := r.latency[class]
	if !ok {
		td, _ = tdigest.New()
		r.latency[class] = td
	}
	_ = td.Add(float64(d.Microseconds()) / 1000)
}

type LatencyQuantiles struct {
	P50 float64 `json:"p50_ms"`
	P95 float64 `json:"p95_ms"`
	P99 float64 `json:"p99_ms"`
}

type Snapshot struct {
	Total   int64 `json:"total"`
	Reads   int64 `json:"reads"`
	Writes  int64 `json:"writes"`
	DDL     int64 `json:"ddl"`
	Errors  int64 `json:"errors"`
	Retries int64 `json:"retries"`

	Latency map[OperationClass]LatencyQuantiles `json:"latency"`
}

// Snapshot returns a read-consistent copy of all counters and latency
// quantiles. The returned value shares no state with the registry.
func (r *Registry) Snapshot() Snapshot {
	snap := Snapshot{
		Total:   r.total.Load(),
		Reads:   r.reads.Load(),
		Writes:  r.writes.Load(),
		DDL:     r.ddl.Load(),
		Errors:  r.errors.Load(),
		Retries: r.retries.Load(),
		Latency: make(map[OperationClass]LatencyQuantiles),
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for class, td := range r.latency {
		snap.Latency[class] = LatencyQuantiles{
			P50: td.Quantile(0.5),
			P95: td.Quantile(0.95),
			P99: td.Quantile(0.99),
		}
	}

	return snap
}
