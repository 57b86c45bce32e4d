package main

import (
	"github.com/spf13/cobra"

	"github.com/jhoicas/magistral-api/internal/infrastructure/postgres"
)

func newMigrateCmd(rt *shared) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Aplica las migraciones pendientes del esquema",
		RunE: func(cmd *cobra.Command, _ []string) error {
			pool, err := openPool(cmd.Context(), rt)
			if err != nil {
				return err
			}
			defer pool.Close()

			n, err := postgres.Migrate(cmd.Context(), pool, rt.log)
			if err != nil {
				return err
			}
			rt.log.Info().Int("applied", n).Msg("esquema actualizado")
			return nil
		},
	}
}
