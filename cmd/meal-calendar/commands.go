package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"

	"kids-meal-calendar/internal/app"
	"kids-meal-calendar/internal/auth"
	"kids-meal-calendar/internal/meal"
	"kids-meal-calendar/internal/seed"
)

var calendarCmd = &cobra.Command{
	Use:   "calendar",
	Short: "Show a month of meals",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withRuntime(func(ctx context.Context, rt *app.Runtime) error {
			m, err := targetMonth(rt.App)
			if err != nil {
				return err
			}
			view, err := rt.App.Render(ctx, childID, m)
			if err != nil {
				return err
			}
			printCalendar(view)
			return nil
		})
	},
}

func printCalendar(view *app.CalendarView) {
	fmt.Printf("%s · %s\n\n", view.Child.Name, view.Label)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	header := []string{""}
	for _, c := range view.Cells[0].Slots {
		header = append(header, c.Label)
	}
	fmt.Fprintln(w, strings.Join(header, "\t"))

	for _, c := range view.Cells {
		if !c.IsCurrentMonth {
			continue
		}
		day := fmt.Sprintf("%s %s", c.Date, c.Weekday)
		if c.IsToday {
			day += " *"
		}
		row := []string{day}
		for _, s := range c.Slots {
			if s.Filled {
				row = append(row, s.Description)
			} else {
				row = append(row, "-")
			}
		}
		fmt.Fprintln(w, strings.Join(row, "\t"))
	}
	w.Flush()
}

var mealCmd = &cobra.Command{
	Use:   "meal",
	Short: "Edit meal records",
}

var mealSetCmd = &cobra.Command{
	Use:   "set <YYYY-MM-DD> <breakfast|lunch|dinner> [description...]",
	Short: "Set or clear one meal slot",
	Long:  "Set the description of a meal slot. Omitting the description clears the slot.",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		slot, err := meal.ParseSlot(args[1])
		if err != nil {
			return err
		}
		desc := strings.Join(args[2:], " ")
		return withRuntime(func(ctx context.Context, rt *app.Runtime) error {
			idx, err := rt.App.SaveMeal(ctx, childID, args[0], slot, desc)
			if err != nil {
				return err
			}
			label := rt.App.Locale().SlotLabel(slot)
			if got, ok := idx.Get(args[0], slot); ok {
				fmt.Printf("✅ %s %s: %s\n", args[0], label, got)
				return nil
			}
			fmt.Printf("🗑  %s %s cleared\n", args[0], label)
			return nil
		})
	},
}

var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Ask the AI for a monthly nutrition summary",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withRuntime(func(ctx context.Context, rt *app.Runtime) error {
			m, err := targetMonth(rt.App)
			if err != nil {
				return err
			}
			fmt.Println("🧑‍⚕️ Analysing...")
			res, err := rt.App.RequestMonthlySummary(ctx, childID, m)
			if err != nil {
				return err
			}

			md := res.Document.Markdown()
			if res.Disclaimer != "" {
				md += "\n---\n\n_" + res.Disclaimer + "_\n"
			}
			renderer, err := glamour.NewTermRenderer(
				glamour.WithAutoStyle(),
				glamour.WithWordWrap(80),
			)
			if err != nil {
				fmt.Println(md)
				return nil
			}
			out, err := renderer.Render(md)
			if err != nil {
				fmt.Println(md)
				return nil
			}
			fmt.Print(out)
			return nil
		})
	},
}

var seedFile string

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load sample children and meals into the database",
	RunE: func(cmd *cobra.Command, args []string) error {
		fixture := seed.Demo()
		if seedFile != "" {
			f, err := seed.Load(seedFile)
			if err != nil {
				return err
			}
			fixture = f
		}
		return withRuntime(func(ctx context.Context, rt *app.Runtime) error {
			if rt.Children == nil {
				return errors.New("seed needs a database; DATABASE_PATH=memory already runs on seed data")
			}
			ids, err := fixture.Apply(ctx, rt.Children, rt.Meals)
			if err != nil {
				return err
			}
			for from, to := range ids {
				fmt.Printf("fixture child %d -> id %d\n", from, to)
			}
			return nil
		})
	},
}

var importMenuCmd = &cobra.Command{
	Use:   "import-menu <url>",
	Short: "Import a school cafeteria menu page",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withRuntime(func(ctx context.Context, rt *app.Runtime) error {
			res, err := rt.App.ImportMenu(ctx, childID, args[0])
			if err != nil {
				return err
			}
			for _, m := range res.Imported {
				fmt.Printf("✅ %s %s: %s\n", m.Date, m.MealType, m.Description)
			}
			for _, s := range res.Skipped {
				fmt.Printf("⚠️  skipped %s\n", s)
			}
			fmt.Printf("%d imported, %d skipped\n", len(res.Imported), len(res.Skipped))
			return nil
		})
	},
}

var exportOut string

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write a month's calendar to an XLSX file",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withRuntime(func(ctx context.Context, rt *app.Runtime) error {
			m, err := targetMonth(rt.App)
			if err != nil {
				return err
			}
			buf, name, err := rt.App.Export(ctx, childID, m)
			if err != nil {
				return err
			}
			path := exportOut
			if path == "" {
				path = name
			}
			if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
				return fmt.Errorf("failed to write %s: %w", path, err)
			}
			fmt.Printf("Saved %s\n", path)
			return nil
		})
	},
}

var cleanupDays int

var metricsCleanupCmd = &cobra.Command{
	Use:   "metrics-cleanup",
	Short: "Remove old LLM usage records",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withRuntime(func(ctx context.Context, rt *app.Runtime) error {
			if rt.Metrics == nil {
				return errors.New("metrics need a database")
			}
			affected, err := rt.Metrics.Cleanup(ctx, cleanupDays)
			if err != nil {
				return fmt.Errorf("cleanup failed: %w", err)
			}
			fmt.Printf("Successfully removed %d old metric records.\n", affected)
			return nil
		})
	},
}

var (
	tokenSubject  string
	tokenChildren []string
	tokenTTL      time.Duration
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Issue an API bearer token",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withRuntime(func(ctx context.Context, rt *app.Runtime) error {
			if rt.Config.JWTSecret == "" {
				return errors.New("JWT_SECRET environment variable not set")
			}
			var ids []int64
			for _, s := range tokenChildren {
				id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
				if err != nil {
					return fmt.Errorf("invalid child id %q: %w", s, err)
				}
				ids = append(ids, id)
			}
			token, err := auth.NewManager(rt.Config.JWTSecret, tokenTTL).GenerateToken(tokenSubject, ids)
			if err != nil {
				return err
			}
			fmt.Println(token)
			return nil
		})
	},
}

func init() {
	addMonthFlag(calendarCmd)
	addMonthFlag(summaryCmd)
	addMonthFlag(exportCmd)

	seedCmd.Flags().StringVar(&seedFile, "file", "", "YAML fixture (default: built-in demo data)")
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "", "output file (default: <name>_<month>_meals.xlsx)")
	metricsCleanupCmd.Flags().IntVar(&cleanupDays, "days", 30, "keep records for the last N days")
	tokenCmd.Flags().StringVar(&tokenSubject, "subject", "parent", "token subject")
	tokenCmd.Flags().StringSliceVar(&tokenChildren, "children", nil, "child ids the token may access (default: all)")
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", 0, "token lifetime (default 720h)")

	mealCmd.AddCommand(mealSetCmd)
	rootCmd.AddCommand(calendarCmd, mealCmd, summaryCmd, seedCmd, importMenuCmd, exportCmd, metricsCleanupCmd, tokenCmd)
}
