package cli

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"chartwatch/internal/models"
	"chartwatch/internal/store"
)

func newHistoryCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Browse stored analysis runs and alerts",
	}

	cmd.AddCommand(newHistoryRunsCmd(app))
	cmd.AddCommand(newHistoryAlertsCmd(app))
	cmd.AddCommand(newHistoryStatsCmd(app))

	return cmd
}

func (app *App) requireStore() (store.DataStore, error) {
	if app.Store == nil {
		return nil, fmt.Errorf("data store unavailable")
	}
	return app.Store, nil
}

func newHistoryRunsCmd(app *App) *cobra.Command {
	var symbol string
	var limit, days int

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List recent analysis runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			dataStore, err := app.requireStore()
			if err != nil {
				return err
			}

			filter := store.RunFilter{
				Symbol: strings.ToUpper(symbol),
				Limit:  limit,
			}
			if days > 0 {
				filter.StartDate = time.Now().AddDate(0, 0, -days)
			}

			runs, err := dataStore.GetRuns(cmd.Context(), filter)
			if err != nil {
				return err
			}

			if output.IsJSON() {
				return output.JSON(runs)
			}
			if len(runs) == 0 {
				output.Dim("No runs found")
				return nil
			}

			table := NewTable(output, "TIME", "SYMBOL", "PROVIDERS", "PROB", "LEVEL", "ALERT")
			for _, run := range runs {
				c := run.Consensus
				if c == nil {
					c = &models.Consensus{}
				}
				alert := "-"
				if c.HasChanges {
					alert = "yes"
					if run.AlertSent {
						alert = "sent"
					}
				}
				table.AddRow(
					run.Timestamp.Format("01-02 15:04"),
					run.Symbol,
					fmt.Sprintf("%d", c.ProviderCount),
					fmt.Sprintf("%.0f%%", c.AvgProbability),
					output.AlertLevelString(string(c.AlertLevel)),
					alert,
				)
			}
			table.Render()
			return nil
		},
	}

	cmd.Flags().StringVarP(&symbol, "symbol", "s", "", "filter by symbol")
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "maximum rows")
	cmd.Flags().IntVar(&days, "days", 0, "only runs from the last N days")

	return cmd
}

func newHistoryAlertsCmd(app *App) *cobra.Command {
	var symbol, level string
	var limit, days int

	cmd := &cobra.Command{
		Use:   "alerts",
		Short: "List delivered trend alerts",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			dataStore, err := app.requireStore()
			if err != nil {
				return err
			}

			filter := store.AlertFilter{
				Symbol: strings.ToUpper(symbol),
				Level:  models.AlertLevel(strings.ToLower(level)),
				Limit:  limit,
			}
			if days > 0 {
				filter.StartDate = time.Now().AddDate(0, 0, -days)
			}

			events, err := dataStore.GetAlertHistory(cmd.Context(), filter)
			if err != nil {
				return err
			}

			if output.IsJSON() {
				return output.JSON(events)
			}
			if len(events) == 0 {
				output.Dim("No alerts found")
				return nil
			}

			table := NewTable(output, "TIME", "SYMBOL", "LEVEL", "PROB", "SENT", "SUMMARY")
			for _, e := range events {
				sent := "no"
				if e.Sent {
					sent = "yes"
				}
				summary := e.Summary
				if len(summary) > 60 {
					summary = summary[:57] + "..."
				}
				table.AddRow(
					e.Timestamp.Format("01-02 15:04"),
					e.Symbol,
					output.AlertLevelString(string(e.Level)),
					fmt.Sprintf("%.0f%%", e.Probability),
					sent,
					summary,
				)
			}
			table.Render()
			return nil
		},
	}

	cmd.Flags().StringVarP(&symbol, "symbol", "s", "", "filter by symbol")
	cmd.Flags().StringVar(&level, "level", "", "filter by alert level")
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "maximum rows")
	cmd.Flags().IntVar(&days, "days", 0, "only alerts from the last N days")

	return cmd
}

func newHistoryStatsCmd(app *App) *cobra.Command {
	var days int

	cmd := &cobra.Command{
		Use:   "stats SYMBOL",
		Short: "Show aggregate run statistics for a symbol",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			dataStore, err := app.requireStore()
			if err != nil {
				return err
			}

			symbol := strings.ToUpper(args[0])
			since := time.Now().AddDate(0, 0, -days)

			stats, err := dataStore.GetRunStats(cmd.Context(), symbol, since)
			if err != nil {
				return err
			}

			if output.IsJSON() {
				return output.JSON(stats)
			}

			output.Bold("%s (last %d days)", symbol, days)
			output.Printf("  Runs:            %d\n", stats.TotalRuns)
			output.Printf("  Alerts Sent:     %d\n", stats.AlertsSent)
			output.Printf("  Avg Probability: %.1f%%\n", stats.AvgProbability)

			if len(stats.ByProvider) > 0 {
				output.Println()
				table := NewTable(output, "PROVIDER", "RUNS", "AVG PROB", "ALERTS")
				names := make([]string, 0, len(stats.ByProvider))
				for name := range stats.ByProvider {
					names = append(names, name)
				}
				sort.Strings(names)
				for _, name := range names {
					ps := stats.ByProvider[name]
					table.AddRow(
						ps.Provider,
						fmt.Sprintf("%d", ps.TotalRuns),
						fmt.Sprintf("%.1f%%", ps.AvgProb),
						fmt.Sprintf("%d", ps.AlertCount),
					)
				}
				table.Render()
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&days, "days", 30, "lookback window in days")

	return cmd
}
