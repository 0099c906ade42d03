package providers

import (
	"context"
	"encoding/base64"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"chartwatch/internal/resilience"
)

func writeImage(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestEncodeImageFile(t *testing.T) {
	raw := []byte{0x89, 0x50, 0x4e, 0x47}
	path := writeImage(t, "chart.png", raw)

	img, err := EncodeImageFile(path)
	if err != nil {
		t.Fatalf("EncodeImageFile: %v", err)
	}
	if img.MIMEType != "image/png" {
		t.Errorf("MIMEType = %s, want image/png", img.MIMEType)
	}
	if img.Data != base64.StdEncoding.EncodeToString(raw) {
		t.Error("data not base64-encoded")
	}
	if !strings.HasPrefix(img.DataURI(), "data:image/png;base64,") {
		t.Errorf("DataURI = %s", img.DataURI())
	}
}

func TestEncodeImageFileMIMETypes(t *testing.T) {
	tests := []struct{ name, want string }{
		{"chart.jpg", "image/jpeg"},
		{"chart.jpeg", "image/jpeg"},
		{"chart.PNG", "image/png"},
		{"chart.webp", "image/webp"},
		{"chart.gif", "image/gif"},
		{"chart", "image/jpeg"},
	}
	for _, tt := range tests {
		path := writeImage(t, tt.name, []byte("x"))
		img, err := EncodeImageFile(path)
		if err != nil {
			t.Fatalf("EncodeImageFile(%s): %v", tt.name, err)
		}
		if img.MIMEType != tt.want {
			t.Errorf("%s: MIMEType = %s, want %s", tt.name, img.MIMEType, tt.want)
		}
	}
}

func TestEncodeImagesSkipsUnreadable(t *testing.T) {
	good := writeImage(t, "good.png", []byte("x"))
	missing := filepath.Join(t.TempDir(), "missing.png")

	images, err := EncodeImages([]string{missing, good})
	if err != nil {
		t.Fatalf("EncodeImages: %v", err)
	}
	if len(images) != 1 || images[0].Path != good {
		t.Errorf("images = %+v", images)
	}
}

func TestEncodeImagesAllUnreadable(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "missing.png")
	if _, err := EncodeImages([]string{missing}); err == nil {
		t.Error("expected error when nothing could be encoded")
	}
}

type scriptedProvider struct {
	name  string
	calls int
	errs  []error
}

func (s *scriptedProvider) Name() string { return s.name }

func (s *scriptedProvider) AnalyzeCharts(ctx context.Context, req Request) (string, error) {
	s.calls++
	if s.calls <= len(s.errs) && s.errs[s.calls-1] != nil {
		return "", s.errs[s.calls-1]
	}
	return "analysis", nil
}

func TestWithBreakerTripsAfterRepeatedFailures(t *testing.T) {
	errAPI := errors.New("upstream unavailable")
	inner := &scriptedProvider{
		name: "claude",
		errs: []error{errAPI, errAPI, errAPI, errAPI},
	}
	p := WithBreaker(inner, resilience.Config{
		FailureThreshold: 3,
		SuccessThreshold: 1,
		Cooldown:         time.Minute,
	})
	ctx := context.Background()

	if p.Name() != "claude" {
		t.Errorf("Name = %s", p.Name())
	}

	for i := 0; i < 3; i++ {
		if _, err := p.AnalyzeCharts(ctx, Request{Symbol: "SPY"}); !errors.Is(err, errAPI) {
			t.Fatalf("call %d: %v", i, err)
		}
	}

	// Circuit is open now; the inner provider must not be called again.
	_, err := p.AnalyzeCharts(ctx, Request{Symbol: "SPY"})
	if err == nil {
		t.Fatal("expected rejection while circuit is open")
	}
	if inner.calls != 3 {
		t.Errorf("inner calls = %d, want 3", inner.calls)
	}
}

func TestWithBreakerPassesThroughSuccess(t *testing.T) {
	inner := &scriptedProvider{name: "google"}
	p := WithBreaker(inner, resilience.DefaultConfig())

	got, err := p.AnalyzeCharts(context.Background(), Request{Symbol: "SPY"})
	if err != nil || got != "analysis" {
		t.Fatalf("got %q, %v", got, err)
	}
}
