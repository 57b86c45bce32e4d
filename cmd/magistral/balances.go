package main

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/jhoicas/magistral-api/internal/application/controlled"
	"github.com/jhoicas/magistral-api/internal/application/dto"
)

func newBalancesCmd(rt *shared) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "balances",
		Short: "Balances de período de sustancias controladas",
	}
	cmd.AddCommand(newBalancesGenerateCmd(rt))
	return cmd
}

func newBalancesGenerateCmd(rt *shared) *cobra.Command {
	var (
		establishment string
		start, end    string
		rawMaterials  []string
		actor         string
	)
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Genera los balances del período e imprime el resultado en JSON",
		RunE: func(cmd *cobra.Command, _ []string) error {
			periodStart, err := parsePeriodBound(start, false)
			if err != nil {
				return fmt.Errorf("--start: %w", err)
			}
			periodEnd, err := parsePeriodBound(end, true)
			if err != nil {
				return fmt.Errorf("--end: %w", err)
			}

			be, err := buildBackend(cmd.Context(), rt)
			if err != nil {
				return err
			}
			defer be.Close()

			list, err := be.Balances.Generate(cmd.Context(), controlled.GenerateInput{
				EstablishmentID: establishment,
				PeriodStart:     periodStart,
				PeriodEnd:       periodEnd,
				RawMaterialIDs:  rawMaterials,
				GeneratedBy:     actor,
			})
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(dto.PeriodBalancesFromEntities(list))
		},
	}
	cmd.Flags().StringVar(&establishment, "establishment", "", "ID del establecimiento")
	cmd.Flags().StringVar(&start, "start", "", "inicio del período (YYYY-MM-DD o RFC3339)")
	cmd.Flags().StringVar(&end, "end", "", "fin del período, inclusive (YYYY-MM-DD o RFC3339)")
	cmd.Flags().StringSliceVar(&rawMaterials, "raw-material", nil, "restringir a estas materias primas (repetible)")
	cmd.Flags().StringVar(&actor, "actor", "", "colaborador que genera los balances")
	for _, f := range []string{"establishment", "start", "end", "actor"} {
		_ = cmd.MarkFlagRequired(f)
	}
	return cmd
}

// parsePeriodBound acepta YYYY-MM-DD o RFC3339. Una fecha sola como fin cubre el día completo.
func parsePeriodBound(s string, endOfDay bool) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	d, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return time.Time{}, err
	}
	if endOfDay {
		d = d.Add(24*time.Hour - time.Nanosecond)
	}
	return d, nil
}
