package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newCleanupCmd(run runner) *cobra.Command {
	var maxAgeHours float64

	cmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Remove old processed files from the scratch directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(func(a *app) error {
				report := a.optimizer.Cleanup(maxAgeHours)
				if err := writeJSON(cmd.OutOrStdout(), report); err != nil {
					return err
				}
				if report.Failures > 0 {
					return fmt.Errorf("%d files could not be removed", report.Failures)
				}
				return nil
			})
		},
	}

	cmd.Flags().Float64Var(&maxAgeHours, "max-age-hours", -1, "Remove files older than this (cleanup.max_age_hours when negative)")

	return cmd
}
