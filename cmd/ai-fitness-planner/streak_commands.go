package main

import (
	"fmt"
	"io"
	"log/slog"
	"strconv"

	"ai-fitness-planner/internal/app"
	"ai-fitness-planner/internal/streak"

	"github.com/spf13/cobra"
)

func newStreakCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "streak",
		Short: "Show the workout streak",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(cmd.Context(), app.LocalPlayback, func(a *app.App, _ *slog.Logger) error {
				summary, err := a.Streak(cmd.Context())
				if err != nil {
					return err
				}
				printStreak(cmd.OutOrStdout(), summary)
				return nil
			})
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "checkin",
		Short: "Mark today's workout as done",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(cmd.Context(), app.LocalPlayback, func(a *app.App, _ *slog.Logger) error {
				summary, err := a.CheckIn(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "💪 Checked in for today!")
				printStreak(cmd.OutOrStdout(), summary)
				return nil
			})
		},
	})
	return cmd
}

func printStreak(w io.Writer, s streak.Summary) {
	fmt.Fprintf(w, "Current streak: %d days\nLongest streak: %d days\n\n", s.Current, s.Longest)

	rows := make([][]string, 0, len(s.Calendar))
	for _, d := range s.Calendar {
		done := ""
		if d.Completed {
			done = "✓"
		}
		day := d.DayName
		if d.IsToday {
			day += " (today)"
		}
		rows = append(rows, []string{d.Date, day, strconv.Itoa(d.DayNum), done})
	}
	fmt.Fprintln(w, renderTable(w, []string{"Date", "Day", "#", "Done"}, rows,
		[]columnAlignment{alignLeft, alignLeft, alignRight, alignLeft}))
}
