package capture

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/rs/zerolog"

	apperrors "chartwatch/internal/errors"
	"chartwatch/internal/models"
)

// CommandCapturer runs a user-configured external command to capture a
// desktop charting window. The command string may use {symbol} and
// {output} placeholders.
type CommandCapturer struct {
	command string
	logger  zerolog.Logger
}

// NewCommandCapturer builds a capturer around an external command.
func NewCommandCapturer(command string, logger zerolog.Logger) *CommandCapturer {
	return &CommandCapturer{command: command, logger: logger}
}

// Capture substitutes the placeholders, runs the command, and verifies
// the output file exists and is non-empty.
func (c *CommandCapturer) Capture(ctx context.Context, symbol string, view models.ChartView, outputPath string) error {
	expanded := strings.NewReplacer(
		"{symbol}", symbol,
		"{output}", outputPath,
	).Replace(c.command)

	args := strings.Fields(expanded)
	if len(args) == 0 {
		return apperrors.NewCaptureError(symbol, string(view), "empty capture command", nil)
	}

	c.logger.Debug().Str("command", expanded).Msg("Running capture command")

	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	if out, err := cmd.CombinedOutput(); err != nil {
		return apperrors.NewCaptureError(symbol, string(view),
			fmt.Sprintf("command failed: %s", strings.TrimSpace(string(out))), err)
	}

	info, err := os.Stat(outputPath)
	if err != nil {
		return apperrors.NewCaptureError(symbol, string(view), "command produced no output file", err)
	}
	if info.Size() == 0 {
		return apperrors.NewCaptureError(symbol, string(view), "command produced empty file", nil)
	}
	return nil
}
