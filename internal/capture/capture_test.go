package capture

import (
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chartwatch/internal/config"
	apperrors "chartwatch/internal/errors"
	"chartwatch/internal/models"
)

func solidImage(c color.RGBA, w, h int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

func writePNG(t *testing.T, path string, img image.Image) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, img))
}

func TestIsBlank(t *testing.T) {
	white := solidImage(color.RGBA{R: 255, G: 255, B: 255, A: 255}, 64, 64)
	assert.True(t, isBlank(white, 240), "all-white image is blank")

	nearWhite := solidImage(color.RGBA{R: 245, G: 245, B: 245, A: 255}, 64, 64)
	assert.True(t, isBlank(nearWhite, 240), "near-white image is blank")

	dark := solidImage(color.RGBA{R: 20, G: 20, B: 25, A: 255}, 64, 64)
	assert.False(t, isBlank(dark, 240), "dark chart is not blank")

	// A bright image with one dark channel is not blank: every channel
	// must exceed the threshold.
	tinted := solidImage(color.RGBA{R: 250, G: 250, B: 100, A: 255}, 64, 64)
	assert.False(t, isBlank(tinted, 240))

	empty := image.NewRGBA(image.Rect(0, 0, 0, 0))
	assert.True(t, isBlank(empty, 240), "empty image counts as blank")
}

func TestIsBlankImageFile(t *testing.T) {
	dir := t.TempDir()

	blankPath := filepath.Join(dir, "blank.png")
	writePNG(t, blankPath, solidImage(color.RGBA{R: 255, G: 255, B: 255, A: 255}, 32, 32))

	blank, err := IsBlankImage(blankPath, 240)
	require.NoError(t, err)
	assert.True(t, blank)

	_, err = IsBlankImage(filepath.Join(dir, "missing.png"), 240)
	assert.Error(t, err)
}

func TestOutputPath(t *testing.T) {
	svc := NewService(config.CaptureConfig{ScreenshotDir: "/tmp/shots"}, zerolog.Nop())

	path := svc.OutputPath("spy", models.ViewHeikenAshi)
	assert.Equal(t, filepath.Join("/tmp/shots", "SPY", "spy_heiken_ashi.png"), path)

	assert.Equal(t, filepath.Join("/tmp/shots", "SPY"), svc.SymbolDir("Spy"))
}

func TestCaptureSymbolReusesExisting(t *testing.T) {
	dir := t.TempDir()
	svc := NewService(config.CaptureConfig{
		ScreenshotDir: dir,
		ReuseExisting: true,
	}, zerolog.Nop())

	views := []config.ChartViewConfig{
		{Name: "trend_analysis", Enabled: true},
	}

	// Pre-seed the screenshot so no capture source is needed.
	require.NoError(t, os.MkdirAll(svc.SymbolDir("SPY"), 0755))
	writePNG(t, svc.OutputPath("SPY", models.ViewTrendAnalysis),
		solidImage(color.RGBA{R: 20, G: 20, B: 20, A: 255}, 8, 8))

	result, err := svc.CaptureSymbol(context.Background(), "SPY", views)
	require.NoError(t, err)
	require.Len(t, result.Screenshots, 1)
	assert.True(t, result.Screenshots[0].Reused)
	assert.Empty(t, result.Failed)
}

func TestCaptureSymbolNoSourceConfigured(t *testing.T) {
	dir := t.TempDir()
	svc := NewService(config.CaptureConfig{ScreenshotDir: dir}, zerolog.Nop())

	views := []config.ChartViewConfig{
		{Name: "trend_analysis", Enabled: true},
		{Name: "heiken_ashi", Enabled: true},
	}

	result, err := svc.CaptureSymbol(context.Background(), "SPY", views)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrNoScreenshots))
	assert.Len(t, result.Failed, 2)
}

func TestExistingScreenshots(t *testing.T) {
	dir := t.TempDir()
	svc := NewService(config.CaptureConfig{ScreenshotDir: dir}, zerolog.Nop())

	require.NoError(t, os.MkdirAll(svc.SymbolDir("SPY"), 0755))
	writePNG(t, svc.OutputPath("SPY", models.ViewWorkspace),
		solidImage(color.RGBA{R: 20, G: 20, B: 20, A: 255}, 8, 8))

	views := []config.ChartViewConfig{
		{Name: "workspace", Enabled: true},
		{Name: "utbot", Enabled: true}, // not on disk
	}

	result := svc.ExistingScreenshots("SPY", views)
	require.Len(t, result.Screenshots, 1)
	assert.Equal(t, models.ViewWorkspace, result.Screenshots[0].View)
	assert.True(t, result.Screenshots[0].Reused)
	require.Len(t, result.Failed, 1)
	assert.Equal(t, models.ViewUTBot, result.Failed[0])
}

func TestCommandCapturerPlaceholders(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "spy_test.png")

	// cp copies a seed file to the {output} path, standing in for a
	// real window-capture tool.
	seed := filepath.Join(dir, "seed.png")
	writePNG(t, seed, solidImage(color.RGBA{R: 10, G: 10, B: 10, A: 255}, 4, 4))

	c := NewCommandCapturer("cp "+seed+" {output}", zerolog.Nop())
	err := c.Capture(context.Background(), "SPY", models.ViewUTBot, out)
	require.NoError(t, err)

	info, err := os.Stat(out)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))
}

func TestCommandCapturerFailures(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "missing.png")

	c := NewCommandCapturer("false", zerolog.Nop())
	err := c.Capture(context.Background(), "SPY", models.ViewUTBot, out)
	require.Error(t, err)

	var capErr *apperrors.CaptureError
	assert.True(t, errors.As(err, &capErr))

	// A command that succeeds but writes nothing is still a failure.
	c = NewCommandCapturer("true", zerolog.Nop())
	err = c.Capture(context.Background(), "SPY", models.ViewUTBot, out)
	require.Error(t, err)
}
