package health

import (
	"context"
	"sync"
	"time"

	"github.com/pgmesh/pgmesh/pkg/config"
	"github.com/pgmesh/pgmesh/pkg/meshlog"
	"github.com/pgmesh/pgmesh/pkg/pool"
)

// Target binds one node's pool to its health state.
type Target struct {
	State *NodeState
	Pool  pool.Pool
}

// Prober periodically pings every target and flips its health flag.
// Probe failures are expected and never escalate beyond the flag and a
// log line.
type Prober struct {
	targets []Target

	interval time.Duration
	timeout  time.Duration

	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

func NewProber(targets []Target, cfg *config.HealthCfg) *Prober {
	return &Prober{
		targets:  targets,
		interval: cfg.ProbeInterval(),
		timeout:  cfg.ProbeTimeout(),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Run probes all targets once immediately, then on every tick until
// Stop is called. It is meant to run in its own goroutine and shares no
// lock with the caller path beyond each pool's internal synchronization.
func (p *Prober) Run() {
	defer close(p.done)

	p.ProbeAll()

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			p.ProbeAll()
		case <-p.stop:
			return
		}
	}
}

// Stop shuts the probe loop down and waits for it to exit. Safe to call
// more than once.
func (p *Prober) Stop() {
	p.stopOnce.Do(func() { close(p.stop) })
	<-p.done
}

func (p *Prober) ProbeAll() {
	for _, t := range p.targets {
		p.ProbeOnce(t)
	}
}

// ProbeOnce acquires a connection from the target's pool, executes a
// liveness ping within the probe timeout and updates the health flag.
// The probe connection is returned to the pool immediately.
//
// Parameters:
//   - t: The target to probe.
func (p *Prober) ProbeOnce(t Target) {
	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()

	sh, err := t.Pool.Connection(ctx)
	if err != nil {
		meshlog.Zero.Debug().
			Str("host", t.State.Node().Address()).
			Err(err).
			Msg("health probe: failed to acquire connection")
		t.State.setResult(false, "failed to acquire connection: "+err.Error())
		return
	}

	if err := sh.Ping(ctx); err != nil {
		meshlog.Zero.Debug().
			Str("host", t.State.Node().Address()).
			Err(err).
			Msg("health probe: ping failed")
		t.State.setResult(false, "ping failed: "+err.Error())
		_ = t.Pool.Discard(sh)
		return
	}

	t.State.setResult(true, "ok")
	_ = t.Pool.Put(sh)
}
