package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jhoicas/magistral-api/pkg/config"
	"github.com/jhoicas/magistral-api/pkg/logger"
)

// shared recursos compartidos por los subcomandos, cargados en PersistentPreRunE.
type shared struct {
	cfg *config.Config
	log *logger.Logger
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rt := &shared{}
	root := &cobra.Command{
		Use:          "magistral",
		Short:        "Libro de inventario y sustancias controladas para farmacias de manipulación",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("cargar configuración: %w", err)
			}
			rt.cfg = cfg
			rt.log = logger.New(logger.Config{
				Env:   cfg.App.Env,
				Level: cfg.Log.Level,
				File:  cfg.Log.File,
			})
			return nil
		},
		Run: func(cmd *cobra.Command, _ []string) {
			_ = cmd.Help()
		},
	}
	root.AddCommand(newServeCmd(rt), newMigrateCmd(rt), newBalancesCmd(rt))

	if err := root.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
