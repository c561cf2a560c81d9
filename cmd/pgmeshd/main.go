package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/pgmesh/pgmesh/pkg/app"
	"github.com/pgmesh/pgmesh/pkg/config"
	"github.com/pgmesh/pgmesh/pkg/meshlog"
)

var cfgPath string

var rootCmd = &cobra.Command{
	Use: "pgmeshd --config `path-to-config`",
	CompletionOptions: cobra.CompletionOptions{
		DisableDefaultCmd: true,
	},
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := config.LoadMeshCfg(cfgPath); err != nil {
			return err
		}
		if err := meshlog.UpdateZeroLogLevel(config.MeshConfig().LogLevel); err != nil {
			return err
		}

		a, err := app.NewApp(config.MeshConfig())
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		return a.Run(ctx)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "/etc/pgmesh/pgmesh.yaml", "path to config file")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		meshlog.Zero.Fatal().Err(err).Msg("")
		os.Exit(1)
	}
}
