package observability

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

func TestRecordMetric_AccumulatesCounters(t *testing.T) {
	if _, err := Setup(context.Background(), Config{Enabled: false}, nil); err != nil {
		t.Fatalf("Setup() error = %v", err)
	}

	RecordMetric(context.Background(), "captures", 1, map[string]string{"status": "ok"})
	RecordMetric(context.Background(), "captures", 1, map[string]string{"status": "ok"})
	RecordMetric(context.Background(), "captures", 1, map[string]string{"status": "rejected"})
	RecordMetric(context.Background(), "uptime", 3, nil)

	got := Counters()
	if got["captures{status=ok}"] != 2 {
		t.Errorf("expected 2 ok captures, got %v", got)
	}
	if got["captures{status=rejected}"] != 1 {
		t.Errorf("expected 1 rejected capture, got %v", got)
	}
	if got["uptime"] != 3 {
		t.Errorf("expected uptime=3, got %v", got)
	}
}

func TestStartSpan_LogsWhenEnabled(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	shutdown, err := Setup(context.Background(), Config{Enabled: true}, logger)
	if err != nil {
		t.Fatalf("Setup() error = %v", err)
	}
	defer shutdown(context.Background())

	_, end := StartSpan(context.Background(), "screenshot", "generate")
	end(errors.New("boom"))

	out := buf.String()
	if !strings.Contains(out, "obs span start") || !strings.Contains(out, "obs span end") {
		t.Fatalf("expected span lines, got %q", out)
	}
	if !strings.Contains(out, "boom") {
		t.Errorf("expected error attribute in span end, got %q", out)
	}
}

func TestStartSpan_NoopWhenDisabled(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	if _, err := Setup(context.Background(), Config{Enabled: false}, logger); err != nil {
		t.Fatalf("Setup() error = %v", err)
	}
	buf.Reset()

	_, end := StartSpan(context.Background(), "screenshot", "generate")
	end(nil)
	if buf.Len() != 0 {
		t.Errorf("expected no output when disabled, got %q", buf.String())
	}
	if Enabled() {
		t.Error("Enabled() should be false")
	}
}
