package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestFormatLog(t *testing.T) {
	tests := []struct {
		tag, msg, want string
	}{
		{"HTTP", "server ready", "[HTTP] server ready"},
		{"", "plain", "plain"},
		{"HTTP", "[BOOT] already tagged", "[BOOT] already tagged"},
		{" CAPTURE ", "  done ", "[CAPTURE] done"},
	}
	for _, tt := range tests {
		if got := FormatLog(tt.tag, tt.msg); got != tt.want {
			t.Errorf("FormatLog(%q, %q) = %q, want %q", tt.tag, tt.msg, got, tt.want)
		}
	}
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"DEBUG":   slog.LevelDebug,
		"info":    slog.LevelInfo,
		"Warn":    slog.LevelWarn,
		"error":   slog.LevelError,
		"verbose": slog.LevelInfo,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestLogger_WritesConsoleAndFile(t *testing.T) {
	dir := t.TempDir()
	var console bytes.Buffer

	logger, err := New(Config{Level: "DEBUG", Dir: dir, Filename: "test.log", Console: &console})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	logger.InfoTag(TagHTTP, "listening on %s", ":8000")
	logger.Debug("capture finished", map[string]any{"bytes": 42, "status": "ok"})
	if err := logger.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	out := console.String()
	if !strings.Contains(out, "[HTTP] listening on :8000") {
		t.Errorf("console output missing tagged line: %q", out)
	}
	if !strings.Contains(out, "bytes=42") {
		t.Errorf("console output missing field attrs: %q", out)
	}

	data, err := os.ReadFile(filepath.Join(dir, "test.log"))
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 json lines, got %d: %q", len(lines), data)
	}
	var record map[string]any
	if err := json.Unmarshal([]byte(lines[1]), &record); err != nil {
		t.Fatalf("invalid json line: %v", err)
	}
	if record["status"] != "ok" {
		t.Errorf("expected status=ok in json record, got %v", record)
	}
}

func TestLogger_LevelFilter(t *testing.T) {
	var console bytes.Buffer
	logger, err := New(Config{Level: "WARN", Console: &console})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	logger.Info("hidden")
	logger.Warn("shown")

	if strings.Contains(console.String(), "hidden") {
		t.Error("info record should be filtered at WARN level")
	}
	if !strings.Contains(console.String(), "shown") {
		t.Error("warn record should be written")
	}
}

func TestLogger_NilIsSafe(t *testing.T) {
	var logger *Logger
	logger.Info("nothing")
	logger.ErrorTag(TagBoot, "nothing")
	if err := logger.Close(); err != nil {
		t.Fatalf("Close() on nil logger = %v", err)
	}
	if logger.Slog() == nil {
		t.Fatal("Slog() on nil logger should not be nil")
	}
}

func TestLogger_RotateAndClean(t *testing.T) {
	dir := t.TempDir()
	logger, err := New(Config{Level: "INFO", Dir: dir, Filename: "server.log", Console: &bytes.Buffer{}})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer logger.Close()

	stale := filepath.Join(dir, "server-2000-01-01.log")
	if err := os.WriteFile(stale, []byte("{}\n"), 0o644); err != nil {
		t.Fatalf("write stale log: %v", err)
	}

	logger.Info("before rotation")
	logger.checkAndRotate(time.Now().AddDate(0, 0, 1))
	logger.Info("after rotation")

	archived := filepath.Join(dir, "server-"+time.Now().Format(dateLayout)+".log")
	if _, err := os.Stat(archived); err != nil {
		t.Errorf("expected archived log %s: %v", archived, err)
	}
	if _, err := os.Stat(stale); !os.IsNotExist(err) {
		t.Errorf("expected stale log to be removed, stat err = %v", err)
	}
}
