// Package providers contains the LLM provider adapters used for chart
// analysis. Every adapter accepts the same request shape and returns the
// provider's raw text response; parsing happens upstream.
package providers

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"chartwatch/pkg/utils"
)

// Provider analyzes chart screenshots and returns the raw text response.
type Provider interface {
	Name() string
	AnalyzeCharts(ctx context.Context, req Request) (string, error)
}

// Consolidator merges multiple provider analyses into one decision text.
type Consolidator interface {
	Consolidate(ctx context.Context, prompt string) (string, error)
}

// Request carries the prompt and the encoded screenshots for one call.
type Request struct {
	Symbol string
	Prompt string
	Images []EncodedImage
}

// EncodedImage is a base64-encoded screenshot ready for transport.
type EncodedImage struct {
	Path     string
	MIMEType string
	Data     string // base64, no data-URI prefix
}

// DataURI returns the image as a data URI for OpenAI-style image parts.
func (e EncodedImage) DataURI() string {
	return fmt.Sprintf("data:%s;base64,%s", e.MIMEType, e.Data)
}

// EncodeImageFile reads an image file and base64-encodes it. The MIME
// type is derived from the file extension, defaulting to JPEG.
func EncodeImageFile(path string) (EncodedImage, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return EncodedImage{}, fmt.Errorf("reading image %s: %w", path, err)
	}

	mimeType := "image/jpeg"
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		mimeType = "image/png"
	case ".gif":
		mimeType = "image/gif"
	case ".webp":
		mimeType = "image/webp"
	}

	return EncodedImage{
		Path:     path,
		MIMEType: mimeType,
		Data:     base64.StdEncoding.EncodeToString(data),
	}, nil
}

// EncodeImages encodes a set of image files, skipping ones that cannot
// be read. Returns an error only when nothing could be encoded.
func EncodeImages(paths []string) ([]EncodedImage, error) {
	var images []EncodedImage
	var lastErr error
	for _, path := range paths {
		img, err := EncodeImageFile(path)
		if err != nil {
			lastErr = err
			continue
		}
		images = append(images, img)
	}
	if len(images) == 0 {
		if lastErr != nil {
			return nil, lastErr
		}
		return nil, fmt.Errorf("no images to encode")
	}
	return images, nil
}

// callWithRetry wraps a provider API call with the shared rate-limit
// backoff policy.
func callWithRetry(ctx context.Context, fn func() (string, error)) (string, error) {
	return utils.RetryWithResult(ctx, utils.RateLimitRetryConfig(), fn)
}
