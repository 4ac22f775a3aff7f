package main

import (
	"fmt"
	"log/slog"
	"strconv"

	"ai-fitness-planner/internal/app"

	"github.com/spf13/cobra"
)

func newMetricsCommand(ctx *commandContext) *cobra.Command {
	var days int
	cmd := &cobra.Command{
		Use:   "metrics",
		Short: "Show model usage and system health",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(cmd.Context(), app.LocalPlayback, func(a *app.App, _ *slog.Logger) error {
				usage, err := a.Usage(cmd.Context(), days)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()

				rows := make([][]string, 0, len(usage))
				for _, d := range usage {
					rows = append(rows, []string{
						d.Date,
						strconv.Itoa(d.TotalPrompt),
						strconv.Itoa(d.TotalCompletion),
						strconv.Itoa(d.TotalExecution),
						strconv.Itoa(d.CacheHits),
					})
				}
				if len(rows) == 0 {
					fmt.Fprintln(out, "No usage recorded yet.")
				} else {
					fmt.Fprintln(out, renderTable(out,
						[]string{"Date", "Prompt", "Completion", "Executions", "Cache hits"}, rows,
						[]columnAlignment{alignLeft, alignRight, alignRight, alignRight, alignRight}))
				}

				h := a.Health(cmd.Context())
				fmt.Fprintln(out)
				fmt.Fprintln(out, renderTable(out, []string{"Health", "Value"}, [][]string{
					{"Heap", fmt.Sprintf("%d MB", h.AllocMB)},
					{"Process", fmt.Sprintf("%d MB", h.SysMB)},
					{"GC cycles", strconv.Itoa(int(h.NumGC))},
					{"Goroutines", strconv.Itoa(h.Goroutines)},
					{"Data on disk", h.DataDiskSize},
					{"Disk free", h.DiskFree},
					{"Host memory", fmt.Sprintf("%.1f%%", h.HostMemUsed)},
					{"Host CPU", fmt.Sprintf("%.1f%%", h.HostCPUUsed)},
				}, []columnAlignment{alignLeft, alignRight}))
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&days, "days", 7, "Number of days to report")
	return cmd
}

func newMetricsCleanupCommand(ctx *commandContext) *cobra.Command {
	var days int
	cmd := &cobra.Command{
		Use:   "metrics-cleanup",
		Short: "Remove old metric records",
		RunE: func(cmd *cobra.Command, args []string) error {
			if days <= 0 {
				return fmt.Errorf("--days must be positive")
			}
			return ctx.withApp(cmd.Context(), app.LocalPlayback, func(a *app.App, _ *slog.Logger) error {
				affected, err := a.CleanupMetrics(cmd.Context(), days)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Successfully removed %d old metric records.\n", affected)
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&days, "days", 30, "Keep records for the last N days")
	return cmd
}
