// Package capture produces chart screenshots for analysis. Views are
// captured either through the browser workspace or through a
// user-configured external command.
package capture

import (
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"chartwatch/internal/config"
	apperrors "chartwatch/internal/errors"
	"chartwatch/internal/logging"
	"chartwatch/internal/models"
)

// Capturer captures one chart view for a symbol into an image file.
type Capturer interface {
	Capture(ctx context.Context, symbol string, view models.ChartView, outputPath string) error
}

// Service coordinates capturing all configured views for a symbol.
type Service struct {
	cfg    config.CaptureConfig
	chrome *ChromeCapturer
	logger zerolog.Logger
}

// NewService builds the capture service. The browser capturer is only
// created when a workspace URL is configured.
func NewService(cfg config.CaptureConfig, logger zerolog.Logger) *Service {
	s := &Service{cfg: cfg, logger: logger}
	if cfg.WorkspaceURL != "" {
		s.chrome = NewChromeCapturer(cfg, logger)
	}
	return s
}

// OutputPath returns the screenshot path for a symbol and view.
func (s *Service) OutputPath(symbol string, view models.ChartView) string {
	return filepath.Join(s.cfg.ScreenshotDir, strings.ToUpper(symbol),
		fmt.Sprintf("%s_%s.png", strings.ToLower(symbol), view))
}

// SymbolDir returns the per-symbol output directory.
func (s *Service) SymbolDir(symbol string) string {
	return filepath.Join(s.cfg.ScreenshotDir, strings.ToUpper(symbol))
}

// CaptureSymbol captures every enabled view for one symbol. Views are
// captured concurrently; a failed view is recorded and skipped rather
// than failing the pass. An error is returned only when no view
// produced a screenshot.
func (s *Service) CaptureSymbol(ctx context.Context, symbol string, views []config.ChartViewConfig) (*models.CaptureResult, error) {
	start := time.Now()
	result := &models.CaptureResult{Symbol: symbol, StartedAt: start}

	if err := os.MkdirAll(s.SymbolDir(symbol), 0755); err != nil {
		return nil, fmt.Errorf("creating screenshot directory: %w", err)
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)

	for _, vc := range views {
		vc := vc
		view := models.ChartView(vc.Name)
		path := s.OutputPath(symbol, view)

		g.Go(func() error {
			shot, err := s.captureView(gctx, symbol, view, vc.Command, path)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				s.logger.Warn().Err(err).
					Str("symbol", symbol).
					Str("view", string(view)).
					Msg("View capture failed, skipping")
				result.Failed = append(result.Failed, view)
				return nil
			}
			result.Screenshots = append(result.Screenshots, shot)
			logging.LogCapture(s.logger, symbol, string(view), shot.Path, shot.Reused)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	result.Duration = time.Since(start)
	if len(result.Screenshots) == 0 {
		return result, fmt.Errorf("symbol %s: %w", symbol, apperrors.ErrNoScreenshots)
	}
	return result, nil
}

func (s *Service) captureView(ctx context.Context, symbol string, view models.ChartView, command, path string) (models.Screenshot, error) {
	if s.cfg.ReuseExisting {
		if info, err := os.Stat(path); err == nil && info.Size() > 0 {
			return models.Screenshot{
				Symbol:     symbol,
				View:       view,
				Path:       path,
				CapturedAt: info.ModTime(),
				Reused:     true,
			}, nil
		}
	}

	var capturer Capturer
	switch {
	case command != "":
		capturer = NewCommandCapturer(command, s.logger)
	case s.chrome != nil:
		capturer = s.chrome
	default:
		return models.Screenshot{}, apperrors.NewCaptureError(symbol, string(view),
			"no capture source configured", nil)
	}

	if err := capturer.Capture(ctx, symbol, view, path); err != nil {
		return models.Screenshot{}, err
	}

	return models.Screenshot{
		Symbol:     symbol,
		View:       view,
		Path:       path,
		CapturedAt: time.Now(),
	}, nil
}

// ExistingScreenshots returns the screenshots already on disk for a
// symbol, keyed to the enabled views.
func (s *Service) ExistingScreenshots(symbol string, views []config.ChartViewConfig) *models.CaptureResult {
	result := &models.CaptureResult{Symbol: symbol, StartedAt: time.Now()}
	for _, vc := range views {
		view := models.ChartView(vc.Name)
		path := s.OutputPath(symbol, view)
		info, err := os.Stat(path)
		if err != nil || info.Size() == 0 {
			result.Failed = append(result.Failed, view)
			continue
		}
		result.Screenshots = append(result.Screenshots, models.Screenshot{
			Symbol:     symbol,
			View:       view,
			Path:       path,
			CapturedAt: info.ModTime(),
			Reused:     true,
		})
	}
	return result
}

// IsBlankImage reports whether the image at path is effectively blank:
// the mean of every RGB channel sits above the whiteness threshold.
func IsBlankImage(path string, threshold float64) (bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return false, fmt.Errorf("opening image: %w", err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return false, fmt.Errorf("decoding image: %w", err)
	}

	return isBlank(img, threshold), nil
}

func isBlank(img image.Image, threshold float64) bool {
	bounds := img.Bounds()
	if bounds.Empty() {
		return true
	}

	// Sample a grid rather than every pixel; blankness is a global
	// property and the grid keeps large screenshots cheap.
	const step = 8
	var sumR, sumG, sumB, n float64
	for y := bounds.Min.Y; y < bounds.Max.Y; y += step {
		for x := bounds.Min.X; x < bounds.Max.X; x += step {
			r, g, b, _ := img.At(x, y).RGBA()
			sumR += float64(r >> 8)
			sumG += float64(g >> 8)
			sumB += float64(b >> 8)
			n++
		}
	}
	if n == 0 {
		return true
	}
	return sumR/n > threshold && sumG/n > threshold && sumB/n > threshold
}
