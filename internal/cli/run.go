package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"chartwatch/internal/capture"
	"chartwatch/internal/config"
	"chartwatch/internal/models"
	"chartwatch/internal/pipeline"
	"chartwatch/internal/scheduler"
)

// resolveSymbols returns the symbols from args, falling back to the
// watchlist file and environment.
func (app *App) resolveSymbols(args []string) []string {
	if len(args) > 0 {
		symbols := make([]string, len(args))
		for i, s := range args {
			symbols[i] = strings.ToUpper(s)
		}
		return symbols
	}
	return config.LoadSymbols(app.Config.ConfigDir())
}

func newRunCmd(app *App) *cobra.Command {
	var reuse, noNotify bool

	cmd := &cobra.Command{
		Use:   "run [symbols...]",
		Short: "Run one analysis pass over the watched symbols",
		Long: `Run captures chart screenshots for each symbol, sends them to all
enabled AI providers, consolidates the results, writes reports, and
delivers alerts for significant trend changes.

Without arguments the symbols come from symbols.txt in the config
directory (or the CHARTWATCH_SYMBOLS environment variable).`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			symbols := app.resolveSymbols(args)

			p, err := app.newPipeline(cmd.Context(), false)
			if err != nil {
				return err
			}

			opts := pipeline.Options{
				SkipCapture: reuse,
				SkipNotify:  noNotify,
			}
			return runSymbols(cmd.Context(), output, p, symbols, opts)
		},
	}

	cmd.Flags().BoolVar(&reuse, "reuse", false, "analyze existing screenshots instead of capturing")
	cmd.Flags().BoolVar(&noNotify, "no-notify", false, "skip alert delivery (dry run)")

	return cmd
}

func runSymbols(ctx context.Context, output *Output, p *pipeline.Pipeline, symbols []string, opts pipeline.Options) error {
	var runs []*models.Run
	var failed []string

	for _, symbol := range symbols {
		if err := ctx.Err(); err != nil {
			return err
		}
		run, err := p.RunSymbol(ctx, symbol, opts)
		if err != nil {
			output.Error("%s: %v", symbol, err)
			failed = append(failed, symbol)
			continue
		}
		runs = append(runs, run)
		printRunSummary(output, run)
	}

	if output.IsJSON() {
		return output.JSON(map[string]interface{}{
			"runs":   runs,
			"failed": failed,
		})
	}
	if len(failed) > 0 {
		return fmt.Errorf("%d of %d symbols failed", len(failed), len(symbols))
	}
	return nil
}

func printRunSummary(output *Output, run *models.Run) {
	if output.IsJSON() {
		return
	}
	c := run.Consensus
	output.Bold("%s", run.Symbol)
	output.Printf("  Providers:   %d (agreement %.1f%%)\n", c.ProviderCount, c.ProviderAgreement)
	output.Printf("  Probability: %.1f%% (min %.1f%%, max %.1f%%)\n",
		c.AvgProbability, c.MinProbability, c.MaxProbability)
	output.Printf("  Alert Level: %s\n", output.AlertLevelString(string(c.AlertLevel)))
	if c.HasChanges {
		sent := "not sent"
		if run.AlertSent {
			sent = "sent"
		}
		output.Warning("  ALERT: %s (%s)", c.Summary, sent)
	} else {
		output.Dim("  %s", c.Summary)
	}
	output.Println()
}

func newWatchCmd(app *App) *cobra.Command {
	var noNotify bool

	cmd := &cobra.Command{
		Use:   "watch [symbols...]",
		Short: "Run analysis passes continuously during market hours",
		Long: `Watch runs the analysis pipeline on the configured interval while
the market is open and idles outside market hours, rechecking
periodically. Stop with Ctrl-C.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			symbols := app.resolveSymbols(args)

			p, err := app.newPipeline(cmd.Context(), true)
			if err != nil {
				return err
			}

			opts := pipeline.Options{SkipNotify: noNotify}
			pass := func(ctx context.Context) error {
				return runSymbols(ctx, output, p, symbols, opts)
			}

			if !app.Config.Schedule.Enabled {
				output.Info("Scheduling disabled, running a single pass")
				return pass(cmd.Context())
			}

			sched, err := scheduler.New(app.Config.Schedule, pass, app.Logger)
			if err != nil {
				return err
			}

			output.Info("Watching %s every %s during market hours",
				strings.Join(symbols, ", "), app.Config.Schedule.Interval())

			err = sched.Run(cmd.Context())
			if err == context.Canceled {
				return nil
			}
			return err
		},
	}

	cmd.Flags().BoolVar(&noNotify, "no-notify", false, "skip alert delivery (dry run)")

	return cmd
}

func newCaptureCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "capture [symbols...]",
		Short: "Capture chart screenshots without analyzing them",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			symbols := app.resolveSymbols(args)
			views := app.Config.EnabledViews()

			svc := capture.NewService(app.Config.Capture, app.Logger)

			type captureSummary struct {
				Symbol      string   `json:"symbol"`
				Screenshots []string `json:"screenshots"`
				Failed      []string `json:"failed,omitempty"`
			}
			var summaries []captureSummary

			for _, symbol := range symbols {
				result, err := svc.CaptureSymbol(cmd.Context(), symbol, views)
				if err != nil {
					output.Error("%s: %v", symbol, err)
					continue
				}

				summary := captureSummary{Symbol: result.Symbol}
				for _, shot := range result.Screenshots {
					summary.Screenshots = append(summary.Screenshots, shot.Path)
				}
				for _, view := range result.Failed {
					summary.Failed = append(summary.Failed, string(view))
				}
				summaries = append(summaries, summary)

				if !output.IsJSON() {
					output.Bold("%s", result.Symbol)
					for _, shot := range result.Screenshots {
						marker := "captured"
						if shot.Reused {
							marker = "reused"
						}
						output.Printf("  %-16s %s (%s)\n", shot.View, shot.Path, marker)
					}
					for _, view := range result.Failed {
						output.Error("  %-16s FAILED", view)
					}
				}
			}

			if output.IsJSON() {
				return output.JSON(summaries)
			}
			return nil
		},
	}
	return cmd
}

func newAnalyzeCmd(app *App) *cobra.Command {
	var noNotify bool

	cmd := &cobra.Command{
		Use:   "analyze [symbols...]",
		Short: "Analyze existing screenshots without capturing",
		Long: `Analyze runs the provider analysis and consolidation over
screenshots already in the screenshot directory. Useful after a manual
capture or to re-run analysis with different providers.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			symbols := app.resolveSymbols(args)

			p, err := app.newPipeline(cmd.Context(), false)
			if err != nil {
				return err
			}

			opts := pipeline.Options{SkipCapture: true, SkipNotify: noNotify}
			return runSymbols(cmd.Context(), output, p, symbols, opts)
		},
	}

	cmd.Flags().BoolVar(&noNotify, "no-notify", false, "skip alert delivery (dry run)")

	return cmd
}
