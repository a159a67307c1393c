package logging

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"
)

func TestCompactHandler_Line(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(newCompactHandler(&buf, slog.LevelInfo, false))

	logger.With(slog.String("pipeline.run_id", "r1")).Warn("stage failed",
		slog.String("pipeline.step", "GovSources"),
		slog.Duration("duration", 1500*time.Millisecond),
		slog.Any("error", errors.New("quota exceeded")),
	)

	line := buf.String()
	want := ` WARN stage failed → {"duration":"1.5s","error":"quota exceeded","pipeline.run_id":"r1","pipeline.step":"GovSources"}` + "\n"
	if !strings.HasSuffix(line, want) {
		t.Errorf("line = %q, want suffix %q", line, want)
	}
	if strings.Contains(line, colorReset) {
		t.Errorf("colours must be off: %q", line)
	}
}

func TestCompactHandler_LevelAndColors(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(newCompactHandler(&buf, slog.LevelWarn, true))

	logger.Info("hidden")
	logger.Error("run failed")

	line := buf.String()
	if strings.Contains(line, "hidden") {
		t.Errorf("INFO record leaked at WARN: %q", line)
	}
	if !strings.Contains(line, colorRed+"ERROR"+colorReset+" run failed\n") {
		t.Errorf("expected a red level, got %q", line)
	}
}

func TestCompactHandler_Groups(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(newCompactHandler(&buf, slog.LevelDebug, false))

	logger.WithGroup("llm").WithGroup("usage").Debug("tokens",
		slog.Int("total", 42),
		slog.Group("split", slog.Int("prompt", 30), slog.Int("completion", 12)),
	)

	want := `{"llm.usage.split.completion":12,"llm.usage.split.prompt":30,"llm.usage.total":42}`
	if !strings.Contains(buf.String(), want) {
		t.Errorf("got %q, want %s", buf.String(), want)
	}
}

func TestCompactHandler_NoAttrs(t *testing.T) {
	var buf bytes.Buffer
	slog.New(newCompactHandler(&buf, slog.LevelInfo, false)).Info("run started")

	if !strings.HasSuffix(buf.String(), " INFO run started\n") {
		t.Errorf("line = %q", buf.String())
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{name: "", want: FormatCompact},
		{name: "JSON", want: FormatJSON},
		{name: " text ", want: FormatText},
	}
	for _, tt := range tests {
		if got, err := ParseFormat(tt.name); err != nil || got != tt.want {
			t.Errorf("ParseFormat(%q) = %q, %v; want %q", tt.name, got, err, tt.want)
		}
	}
	if _, err := ParseFormat("logfmt"); !errors.Is(err, ErrUnknownFormat) {
		t.Errorf("expected ErrUnknownFormat, got %v", err)
	}
}
