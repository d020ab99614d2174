package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"romshelf/internal/client"
	"romshelf/internal/preflight"
)

func newDoctorCommand(ctx *commandContext) *cobra.Command {
	var skipAPI bool

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check library paths, the catalog, and the daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			results := preflight.RunAll(cmd.Context(), cfg)
			if !skipAPI {
				server, err := ctx.serverURL()
				if err != nil {
					return err
				}
				results = append(results, preflight.CheckAPI(cmd.Context(), client.BaseURL(server)))
			}

			failed := preflight.Failed(results)
			if ctx.jsonOutput() {
				if err := writeJSON(cmd, results); err != nil {
					return err
				}
			} else {
				rows := make([][]string, 0, len(results))
				for _, r := range results {
					status := "OK"
					if !r.Passed {
						status = "FAIL"
					}
					rows = append(rows, []string{r.Name, status, r.Detail})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]string{"Check", "Status", "Detail"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignLeft},
				))
			}
			if len(failed) > 0 {
				return fmt.Errorf("%d of %d checks failed", len(failed), len(results))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&skipAPI, "offline", false, "Skip the daemon health check")
	return cmd
}
