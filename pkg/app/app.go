package app

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"time"

	"github.com/pgmesh/pgmesh/pkg/config"
	"github.com/pgmesh/pgmesh/pkg/conn"
	"github.com/pgmesh/pgmesh/pkg/health"
	"github.com/pgmesh/pgmesh/pkg/meshlog"
	"github.com/pgmesh/pgmesh/pkg/router"
	"github.com/pgmesh/pgmesh/pkg/topology"
	"github.com/pgmesh/pgmesh/pkg/twopc"
)

// App wires config into a running access layer: topology, per-node
// pools, router, transaction coordinator and the background prober, plus
// an optional HTTP listener for health and statistics snapshots.
type App struct {
	cfg *config.Mesh

	rtr    *router.Router
	coord  *twopc.Coordinator
	prober *health.Prober
}

func NewApp(cfg *config.Mesh) (*App, error) {
	cluster, err := topology.ClusterFromConfig(cfg)
	if err != nil {
		return nil, err
	}

	rtr, err := router.NewRouter(cfg, cluster, func(ctx context.Context, node *topology.Node) (conn.DBInstance, error) {
		return conn.NewInstanceConn(ctx, node, cfg.PoolCfg.ConnectTimeout())
	})
	if err != nil {
		return nil, err
	}

	return &App{
		cfg:    cfg,
		rtr:    rtr,
		coord:  twopc.NewCoordinator(rtr, &cfg.TwoPCCfg),
		prober: health.NewProber(rtr.ProbeTargets(), &cfg.HealthCfg),
	}, nil
}

func (app *App) Router() *router.Router {
	return app.rtr
}

func (app *App) Coordinator() *twopc.Coordinator {
	return app.coord
}

// Run starts the prober and, if configured, the HTTP listener, then
// blocks until ctx is cancelled.
func (app *App) Run(ctx context.Context) error {
	go app.prober.Run()
	defer app.prober.Stop()
	defer func() { _ = app.rtr.Close() }()

	if app.cfg.HttpAddr != "" {
		lis, err := net.Listen("tcp", app.cfg.HttpAddr)
		if err != nil {
			return err
		}

		srv := &http.Server{Handler: app.httpHandler()}
		go func() {
			if err := srv.Serve(lis); err != nil && err != http.ErrServerClosed {
				meshlog.Zero.Error().Err(err).Msg("http listener failed")
			}
		}()
		defer func() {
			sctx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			_ = srv.Shutdown(sctx)
		}()

		meshlog.Zero.Info().Str("addr", app.cfg.HttpAddr).Msg("serving health and statistics")
	}

	<-ctx.Done()
	return nil
}

func (app *App) httpHandler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(app.rtr.Health())
	})

	mux.HandleFunc("/statistics", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(app.rtr.Statistics())
	})

	return mux
}
