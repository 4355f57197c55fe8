package log

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{"debug", slog.LevelDebug, false},
		{"INFO", slog.LevelInfo, false},
		{"", slog.LevelInfo, false},
		{" warn ", slog.LevelWarn, false},
		{"warning", slog.LevelWarn, false},
		{"error", slog.LevelError, false},
		{"trace", slog.LevelInfo, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseLevel(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestNewWritesComponent(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: slog.LevelInfo, Component: ComponentLedger, Output: &buf, NoColor: true})

	logger.Info("Contact added", FieldEntityID, "c1")
	logger.Debug("hidden")

	out := buf.String()
	if !strings.Contains(out, "component=ledger") || !strings.Contains(out, "entity_id=c1") {
		t.Errorf("missing attributes in %q", out)
	}
	if strings.Contains(out, "hidden") {
		t.Errorf("debug message should be filtered at info level: %q", out)
	}
}

func TestWithComponent(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Output: &buf, NoColor: true}).WithComponent(ComponentStorage)

	logger.Warn("Stored snapshot is malformed")
	if !strings.Contains(buf.String(), "component=storage") {
		t.Errorf("expected storage component in %q", buf.String())
	}
}

func TestContextRoundTrip(t *testing.T) {
	logger := New(Config{Output: &bytes.Buffer{}, Component: ComponentWatch})
	ctx := WithContext(context.Background(), logger)

	if got := FromContext(ctx); got != logger {
		t.Fatal("FromContext should return the stored logger")
	}
	if got := FromContext(context.Background()); got == nil || got == logger {
		t.Fatalf("expected fallback logger, got %+v", got)
	}
}
