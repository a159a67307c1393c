package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		name    string
		want    slog.Level
		wantErr bool
	}{
		{name: "", want: slog.LevelWarn},
		{name: "debug", want: slog.LevelDebug},
		{name: " INFO ", want: slog.LevelInfo},
		{name: "warning", want: slog.LevelWarn},
		{name: "ERROR", want: slog.LevelError},
		{name: "TRACE", wantErr: true},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.name)
		if tt.wantErr {
			if !errors.Is(err, ErrUnknownLevel) {
				t.Errorf("ParseLevel(%q): expected ErrUnknownLevel, got %v", tt.name, err)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, %v; want %v", tt.name, got, err, tt.want)
		}
	}
}

func TestNew_TextHandlerFiltersByLevel(t *testing.T) {
	var buf bytes.Buffer
	logger, closeLog, err := New(Options{Level: "INFO", Format: "text", Stderr: &buf})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer closeLog()

	logger.Debug("hidden")
	logger.Info("stage completed", "pipeline.step", "GovSources")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("debug record leaked at INFO: %s", out)
	}
	if !strings.Contains(out, "pipeline.step=GovSources") {
		t.Errorf("expected a text record, got %s", out)
	}
}

func TestNew_FileGetsJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "polprofile.log")
	logger, closeLog, err := New(Options{Level: "WARN", File: path})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	logger.Warn("profile failed validation", "title", "Chief Minister")
	if err := closeLog(); err != nil {
		t.Fatalf("close: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	var record map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(data), &record); err != nil {
		t.Fatalf("expected one JSON record, got %s: %v", data, err)
	}
	if record["msg"] != "profile failed validation" || record["title"] != "Chief Minister" {
		t.Errorf("unexpected record %v", record)
	}
}

func TestNew_Errors(t *testing.T) {
	if _, _, err := New(Options{Level: "loud"}); !errors.Is(err, ErrUnknownLevel) {
		t.Errorf("expected ErrUnknownLevel, got %v", err)
	}
	if _, _, err := New(Options{Format: "xml"}); !errors.Is(err, ErrUnknownFormat) {
		t.Errorf("expected ErrUnknownFormat, got %v", err)
	}
	if _, _, err := New(Options{File: filepath.Join(t.TempDir(), "no", "such", "dir.log")}); err == nil {
		t.Error("expected an error for an unwritable file")
	}
}
