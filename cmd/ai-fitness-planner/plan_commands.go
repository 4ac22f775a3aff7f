package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"ai-fitness-planner/internal/app"
	"ai-fitness-planner/internal/content"
	"ai-fitness-planner/internal/planner"
	"ai-fitness-planner/internal/render"
	"ai-fitness-planner/internal/segment"
	"ai-fitness-planner/internal/server"

	"github.com/spf13/cobra"
)

func newGenerateCommand(ctx *commandContext) *cobra.Command {
	var d planner.UserDetails
	var gender, goal, level, location, diet string
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate a new workout, diet and motivation plan",
		RunE: func(cmd *cobra.Command, args []string) error {
			d.Gender = planner.Gender(gender)
			d.Goal = planner.Goal(goal)
			d.Level = planner.Level(level)
			d.Location = planner.Location(location)
			d.Diet = planner.Diet(diet)
			if err := d.Normalize().Validate(); err != nil {
				return err
			}
			return ctx.withApp(cmd.Context(), app.LocalPlayback, func(a *app.App, _ *slog.Logger) error {
				b, err := generateWithFacts(cmd.Context(), cmd.ErrOrStderr(), a.Catalog(), func(c context.Context) (*planner.Bundle, error) {
					return a.GeneratePlan(c, d)
				})
				if err != nil {
					return err
				}
				printBundle(cmd.OutOrStdout(), b)
				return nil
			})
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&d.Name, "name", "", "Your name")
	flags.IntVar(&d.Age, "age", 0, "Age in years")
	flags.Float64Var(&d.Height, "height", 0, "Height in cm")
	flags.Float64Var(&d.Weight, "weight", 0, "Weight in kg")
	flags.StringVar(&gender, "gender", "", "male, female or other")
	flags.StringVar(&goal, "goal", "", "weight-loss, muscle-gain, maintenance or endurance")
	flags.StringVar(&level, "level", "", "beginner, intermediate or advanced")
	flags.StringVar(&location, "location", "", "home, gym or outdoor")
	flags.StringVar(&diet, "diet", "", "vegetarian, non-vegetarian, vegan or keto")
	for _, name := range []string{"name", "age", "height", "weight"} {
		_ = cmd.MarkFlagRequired(name)
	}
	return cmd
}

// generateWithFacts runs fn while fitness facts rotate on a terminal.
func generateWithFacts(ctx context.Context, w io.Writer, catalog *content.Catalog, fn func(context.Context) (*planner.Bundle, error)) (*planner.Bundle, error) {
	if !isTerminal(w) {
		return fn(ctx)
	}

	factsCtx, stop := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		content.NewCarousel(catalog.Facts, catalog.FactInterval).Run(factsCtx, func(_ int, fact string) {
			fmt.Fprintf(w, "\r\033[K⏳ %s", fact)
		})
	}()

	b, err := fn(ctx)
	stop()
	<-done
	fmt.Fprint(w, "\r\033[K")
	return b, err
}

func newShowCommand(ctx *commandContext) *cobra.Command {
	var planID string
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the latest plan, or the plan with --plan",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(cmd.Context(), app.LocalPlayback, func(a *app.App, _ *slog.Logger) error {
				b, err := loadPlan(cmd.Context(), a, planID)
				if err != nil {
					return err
				}
				printBundle(cmd.OutOrStdout(), b)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&planID, "plan", "", "Plan id (default latest)")
	return cmd
}

func newExportCommand(ctx *commandContext) *cobra.Command {
	var planID, output string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write a plan to a PDF document",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(cmd.Context(), app.LocalPlayback, func(a *app.App, _ *slog.Logger) error {
				b, err := loadPlan(cmd.Context(), a, planID)
				if err != nil {
					return err
				}
				f, err := os.Create(output)
				if err != nil {
					return fmt.Errorf("create %s: %w", output, err)
				}
				if err := a.ExportPDF(cmd.Context(), b.ID, f); err != nil {
					f.Close()
					os.Remove(output)
					return err
				}
				if err := f.Close(); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Saved %s\n", output)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&planID, "plan", "", "Plan id (default latest)")
	cmd.Flags().StringVarP(&output, "output", "o", server.ExportFilename, "Output file")
	return cmd
}

func newListenCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "listen DAY",
		Short: "Read a workout day of the current plan aloud",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			day, err := strconv.Atoi(args[0])
			if err != nil || day <= 0 {
				return fmt.Errorf("day must be a positive number, got %q", args[0])
			}
			signalCtx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()
			return ctx.withApp(signalCtx, app.LocalPlayback, func(a *app.App, _ *slog.Logger) error {
				return listenDay(signalCtx, cmd.OutOrStdout(), a, day)
			})
		},
	}
}

// listenDay starts playback and waits until it ends, fails or ctx is done.
func listenDay(ctx context.Context, w io.Writer, a *app.App, day int) error {
	b, ok := a.Current()
	if !ok {
		return errors.New("no plan yet; run generate first")
	}
	key := render.DayKey(day)

	updates, unsubscribe := a.Subscribe()
	defer unsubscribe()

	if _, err := a.Listen(ctx, b.ID, key); err != nil {
		if errors.Is(err, app.ErrNoAction) {
			return fmt.Errorf("day %d has nothing to read out", day)
		}
		return err
	}
	fmt.Fprintf(w, "🔊 Playing day %d (Ctrl+C to stop)\n", day)

	for {
		select {
		case <-ctx.Done():
			// Playback may have ended on its own in the meantime.
			_ = a.Stop(b.ID, key)
			return nil
		case u, ok := <-updates:
			if !ok {
				return nil
			}
			if u.Event.Key != key {
				continue
			}
			switch u.Event.Type {
			case render.EventAudioEnded, render.EventAudioStopped:
				return nil
			case render.EventAudioFailed:
				return fmt.Errorf("playback failed: %s", u.Event.Reason)
			}
		}
	}
}

func loadPlan(ctx context.Context, a *app.App, id string) (*planner.Bundle, error) {
	var (
		b   *planner.Bundle
		err error
	)
	if id == "" {
		b, err = a.LatestPlan(ctx)
	} else {
		b, err = a.Plan(ctx, id)
	}
	if errors.Is(err, planner.ErrNotFound) {
		return nil, errors.New("no plan found; run generate first")
	}
	return b, err
}

func printBundle(w io.Writer, b *planner.Bundle) {
	fmt.Fprintf(w, "Plan %s for %s (%s, %s)\n", b.ID, b.Details.Name, b.Source, b.CreatedAt.Local().Format("2006-01-02 15:04"))
	for _, category := range segment.Categories {
		title := strings.ToUpper(string(category))
		fmt.Fprintf(w, "\n%s\n%s\n\n%s\n", title, strings.Repeat("=", len(title)), strings.TrimSpace(b.Plan(category)))
	}

	days := segment.Days(segment.Segment(b.Workout, segment.Workout))
	if len(days) == 0 {
		return
	}
	rows := make([][]string, 0, len(days))
	for _, d := range days {
		rows = append(rows, []string{strconv.Itoa(d.Number), d.Title, strconv.Itoa(len(d.Content))})
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, renderTable(w, []string{"Day", "Title", "Spoken chars"}, rows,
		[]columnAlignment{alignRight, alignLeft, alignRight}))
	fmt.Fprintln(w, "Play a day with: ai-fitness-planner listen DAY")
}
