package cli

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"chartwatch/internal/providers"
	"chartwatch/pkg/utils"
)

func newProvidersCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "providers",
		Short: "Inspect and test the configured AI providers",
	}

	cmd.AddCommand(newProvidersListCmd(app))
	cmd.AddCommand(newProvidersTestCmd(app))

	return cmd
}

func newProvidersListCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List configured providers and their availability",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			registry := providers.NewRegistry(cmd.Context(), app.Config, app.Logger)
			available := make(map[string]bool)
			for _, name := range registry.Names() {
				available[name] = true
			}

			type providerRow struct {
				Name      string `json:"name"`
				Enabled   bool   `json:"enabled"`
				Model     string `json:"model"`
				Available bool   `json:"available"`
			}

			p := app.Config.Providers
			rows := []providerRow{
				{"claude", p.Anthropic.Enabled, p.Anthropic.Model, available["claude"]},
				{"perplexity", p.Perplexity.Enabled, p.Perplexity.Model, available["perplexity"]},
				{"google", p.Google.Enabled, p.Google.Model, available["google"]},
				{"openai", p.OpenAI.Enabled, p.OpenAI.Model, available["openai"]},
				{"grok", p.Grok.Enabled, p.Grok.Model, available["grok"]},
			}

			if output.IsJSON() {
				return output.JSON(rows)
			}

			table := NewTable(output, "PROVIDER", "ENABLED", "MODEL", "AVAILABLE")
			for _, r := range rows {
				avail := output.ColoredString(ColorRed, "no")
				if r.Available {
					avail = output.ColoredString(ColorGreen, "yes")
				}
				table.AddRow(r.Name, fmt.Sprintf("%v", r.Enabled), r.Model, avail)
			}
			table.Render()

			if c := registry.Consolidator(); c != nil {
				output.Println()
				output.Dim("Consolidation: %s", app.Config.Providers.ConsolidationProvider)
			}
			return nil
		},
	}
}

func newProvidersTestCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "test",
		Short: "Send a small test request to each available provider",
		Long: `Test sends a tiny synthetic image with a one-word prompt to every
available provider to verify credentials and connectivity.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			registry := providers.NewRegistry(cmd.Context(), app.Config, app.Logger)
			provs := registry.Providers()
			if len(provs) == 0 {
				return fmt.Errorf("no providers available: check credentials.toml and providers.toml")
			}

			imagePath, err := writeTestImage()
			if err != nil {
				return err
			}
			defer os.Remove(imagePath)

			images, err := providers.EncodeImages([]string{imagePath})
			if err != nil {
				return err
			}

			req := providers.Request{
				Symbol: "TEST",
				Prompt: "This is a connectivity test. Reply with the single word OK.",
				Images: images,
			}

			type testResult struct {
				Provider string `json:"provider"`
				OK       bool   `json:"ok"`
				Duration string `json:"duration"`
				Error    string `json:"error,omitempty"`
			}
			var results []testResult

			for _, p := range provs {
				start := time.Now()
				_, err := p.AnalyzeCharts(cmd.Context(), req)
				elapsed := time.Since(start)

				r := testResult{
					Provider: p.Name(),
					OK:       err == nil,
					Duration: utils.FormatDuration(elapsed),
				}
				if err != nil {
					r.Error = err.Error()
					output.Error("✗ %-12s %v", p.Name(), err)
				} else {
					output.Success("✓ %-12s %s", p.Name(), r.Duration)
				}
				results = append(results, r)
			}

			if output.IsJSON() {
				return output.JSON(results)
			}
			return nil
		},
	}
}

// writeTestImage writes a small solid PNG to a temp file.
func writeTestImage() (string, error) {
	img := image.NewRGBA(image.Rect(0, 0, 16, 16))
	for y := 0; y < 16; y++ {
		for x := 0; x < 16; x++ {
			img.Set(x, y, color.RGBA{R: 30, G: 30, B: 30, A: 255})
		}
	}

	path := filepath.Join(os.TempDir(), "chartwatch_test.png")
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("creating test image: %w", err)
	}
	defer f.Close()

	if err := png.Encode(f, img); err != nil {
		return "", fmt.Errorf("encoding test image: %w", err)
	}
	return path, nil
}
