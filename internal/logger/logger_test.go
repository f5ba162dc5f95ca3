package logger

import (
	"log/slog"
	"strings"
	"testing"
)

func TestCaptureRecordsAtOrAboveMin(t *testing.T) {
	capture := NewCapture(slog.LevelWarn)
	log := New(slog.LevelError, capture)

	log.Info("quiet")
	log.Warn("scrape failed", "source", "Local Paper")
	log.Error("issue failed")

	got := capture.String()
	if strings.Contains(got, "quiet") {
		t.Errorf("info line captured: %q", got)
	}
	if !strings.Contains(got, "scrape failed") || !strings.Contains(got, "source=Local Paper") {
		t.Errorf("warning not captured: %q", got)
	}
	if !strings.Contains(got, "issue failed") {
		t.Errorf("error not captured: %q", got)
	}
}

func TestCaptureSurvivesWith(t *testing.T) {
	capture := NewCapture(slog.LevelWarn)
	log := New(slog.LevelError, capture).With("run_id", "abc")

	log.Warn("late warning")
	if !strings.Contains(capture.String(), "late warning") {
		t.Errorf("derived logger bypassed the capture: %q", capture.String())
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in       string
		expected slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"WARNING", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelWarn},
		{"nonsense", slog.LevelWarn},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.expected {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.expected)
		}
	}
}
