package capture

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/chromedp/chromedp/kb"
	"github.com/rs/zerolog"

	"chartwatch/internal/config"
	apperrors "chartwatch/internal/errors"
	"chartwatch/internal/models"
)

// ChromeCapturer captures the browser analysis workspace through a
// headless Chrome instance.
type ChromeCapturer struct {
	url            string
	symbolSuffix   string
	pageLoadWait   time.Duration
	renderWait     time.Duration
	blankThreshold float64
	logger         zerolog.Logger
}

// NewChromeCapturer builds a browser capturer from the capture config.
func NewChromeCapturer(cfg config.CaptureConfig, logger zerolog.Logger) *ChromeCapturer {
	pageLoad := cfg.PageLoadWait
	if pageLoad <= 0 {
		pageLoad = 8 * time.Second
	}
	render := cfg.ChartRenderWait
	if render <= 0 {
		render = 12 * time.Second
	}
	threshold := cfg.BlankThreshold
	if threshold <= 0 {
		threshold = 240
	}

	return &ChromeCapturer{
		url:            cfg.WorkspaceURL,
		symbolSuffix:   cfg.SymbolSuffix,
		pageLoadWait:   pageLoad,
		renderWait:     render,
		blankThreshold: threshold,
		logger:         logger,
	}
}

// Capture navigates the workspace, types the symbol query, waits for the
// chart to render, and writes a full-page screenshot. When the frame
// comes back blank the page is reloaded and captured once more.
func (c *ChromeCapturer) Capture(ctx context.Context, symbol string, view models.ChartView, outputPath string) error {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("window-size", "1920,1080"),
	)

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, opts...)
	defer allocCancel()

	browserCtx, browserCancel := chromedp.NewContext(allocCtx)
	defer browserCancel()

	query := symbol + c.symbolSuffix

	var buf []byte
	err := chromedp.Run(browserCtx,
		chromedp.EmulateViewport(1920, 1080),
		chromedp.Navigate(c.url),
		chromedp.Sleep(c.pageLoadWait),
		chromedp.KeyEvent(query),
		chromedp.KeyEvent(kb.Enter),
		chromedp.Sleep(c.renderWait),
		chromedp.FullScreenshot(&buf, 90),
	)
	if err != nil {
		return apperrors.NewCaptureError(symbol, string(view), "browser capture", err)
	}

	if err := os.WriteFile(outputPath, buf, 0644); err != nil {
		return fmt.Errorf("writing screenshot: %w", err)
	}

	blank, err := IsBlankImage(outputPath, c.blankThreshold)
	if err != nil {
		c.logger.Debug().Err(err).Str("path", outputPath).Msg("Blank check failed")
		return nil
	}
	if !blank {
		return nil
	}

	// Blank frame: the workspace sometimes renders an empty canvas on
	// first load. Reload once and recapture.
	c.logger.Warn().Str("symbol", symbol).Str("view", string(view)).
		Msg("Blank frame detected, refreshing")

	err = chromedp.Run(browserCtx,
		chromedp.Reload(),
		chromedp.Sleep(c.pageLoadWait),
		chromedp.KeyEvent(query),
		chromedp.KeyEvent(kb.Enter),
		chromedp.Sleep(c.renderWait),
		chromedp.FullScreenshot(&buf, 90),
	)
	if err != nil {
		return apperrors.NewCaptureError(symbol, string(view), "browser recapture", err)
	}

	if err := os.WriteFile(outputPath, buf, 0644); err != nil {
		return fmt.Errorf("writing screenshot: %w", err)
	}

	blank, err = IsBlankImage(outputPath, c.blankThreshold)
	if err == nil && blank {
		return fmt.Errorf("symbol %s view %s: %w", symbol, view, apperrors.ErrBlankFrame)
	}
	return nil
}
