// Package testing holds fixtures shared by the transport and bootstrap tests.
package testing

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"testing"

	"screamshot-server/internal/domain/screenshot"
	"screamshot-server/internal/platform/config"
	"screamshot-server/internal/platform/logging"
)

// SetupTestConfig returns the default config rooted in a temp dir, with the
// static site off and an in-memory capture log.
func SetupTestConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()

	cfg := config.DefaultConfig()
	cfg.Server.IP = "127.0.0.1"
	cfg.Log.Level = "DEBUG"
	cfg.Log.Dir = filepath.Join(dir, "logs")
	cfg.Web.Enabled = false
	cfg.Capture.TempDir = dir
	cfg.CaptureLog.Driver = "memory"
	return cfg
}

// SetupTestLogger returns a debug logger that writes nowhere.
func SetupTestLogger(t *testing.T) *logging.Logger {
	t.Helper()
	logger, err := logging.New(logging.Config{Level: "DEBUG", Console: io.Discard})
	if err != nil {
		t.Fatalf("failed to create test logger: %v", err)
	}
	t.Cleanup(func() { _ = logger.Close() })
	return logger
}

// PNGFixture encodes a solid red w x h image.
func PNGFixture(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: 255, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode fixture: %v", err)
	}
	return buf.Bytes()
}

// StaticGenerator answers every capture with data.
func StaticGenerator(data []byte) screenshot.GeneratorFunc {
	return func(context.Context, string, screenshot.Options) ([]byte, error) {
		return data, nil
	}
}

// WriteFile writes content under a fresh temp dir and returns its path.
func WriteFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

// AssertNoTempFiles fails when dir still holds capture files.
func AssertNoTempFiles(t *testing.T, dir string) {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join(dir, "*.png"))
	if err != nil {
		t.Fatalf("glob: %v", err)
	}
	if len(matches) != 0 {
		t.Fatalf("temp files left behind: %v", matches)
	}
}

func AssertNoError(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
