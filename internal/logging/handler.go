package logging

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"
)

const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorYellow = "\033[33m"
	colorGreen  = "\033[32m"
	colorBlue   = "\033[34m"
)

// compactHandler writes one line per record:
//
//	15:04:05  WARN stage failed → {"error":"quota","pipeline.step":"GovSources"}
//
// Attributes are JSON-encoded with sorted keys. Handlers derived through
// WithAttrs and WithGroup share the writer lock.
type compactHandler struct {
	w      io.Writer
	mu     *sync.Mutex
	level  slog.Leveler
	colors bool
	attrs  map[string]any
	prefix string
}

func newCompactHandler(w io.Writer, level slog.Leveler, colors bool) *compactHandler {
	return &compactHandler{w: w, mu: &sync.Mutex{}, level: level, colors: colors, attrs: map[string]any{}}
}

func (h *compactHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *compactHandler) Handle(_ context.Context, r slog.Record) error {
	buf := make([]byte, 0, 256)
	buf = append(buf, r.Time.Format(time.TimeOnly)...)
	buf = append(buf, ' ')

	level := fmt.Sprintf("%5s", levelName(r.Level))
	if h.colors {
		level = levelColor(r.Level) + level + colorReset
	}
	buf = append(buf, level...)
	buf = append(buf, ' ')
	buf = append(buf, r.Message...)

	attrs := make(map[string]any, len(h.attrs)+r.NumAttrs())
	for k, v := range h.attrs {
		attrs[k] = v
	}
	r.Attrs(func(attr slog.Attr) bool {
		addAttr(attrs, h.prefix, attr)
		return true
	})
	if len(attrs) > 0 {
		encoded, err := json.Marshal(attrs)
		if err != nil {
			encoded = []byte(`{"log_error":"unencodable attributes"}`)
		}
		buf = append(buf, " → "...)
		buf = append(buf, encoded...)
	}
	buf = append(buf, '\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := h.w.Write(buf)
	return err
}

func (h *compactHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := *h
	next.attrs = make(map[string]any, len(h.attrs)+len(attrs))
	for k, v := range h.attrs {
		next.attrs[k] = v
	}
	for _, attr := range attrs {
		addAttr(next.attrs, h.prefix, attr)
	}
	return &next
}

func (h *compactHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	next := *h
	next.prefix = h.prefix + name + "."
	return &next
}

func addAttr(attrs map[string]any, prefix string, attr slog.Attr) {
	value := attr.Value.Resolve()
	if value.Kind() == slog.KindGroup {
		groupPrefix := prefix
		if attr.Key != "" {
			groupPrefix += attr.Key + "."
		}
		for _, member := range value.Group() {
			addAttr(attrs, groupPrefix, member)
		}
		return
	}
	if attr.Key == "" {
		return
	}
	attrs[prefix+attr.Key] = plainValue(value)
}

// plainValue turns values json would encode badly into strings.
func plainValue(value slog.Value) any {
	switch value.Kind() {
	case slog.KindDuration:
		return value.Duration().String()
	case slog.KindTime:
		return value.Time().Format(time.RFC3339)
	case slog.KindAny:
		switch v := value.Any().(type) {
		case error:
			return v.Error()
		case fmt.Stringer:
			return v.String()
		}
	}
	return value.Any()
}

func levelName(level slog.Level) string {
	switch {
	case level < slog.LevelInfo:
		return "DEBUG"
	case level < slog.LevelWarn:
		return "INFO"
	case level < slog.LevelError:
		return "WARN"
	default:
		return "ERROR"
	}
}

func levelColor(level slog.Level) string {
	switch {
	case level < slog.LevelInfo:
		return colorBlue
	case level < slog.LevelWarn:
		return colorGreen
	case level < slog.LevelError:
		return colorYellow
	default:
		return colorRed
	}
}

// Format names accepted by ParseFormat.
const (
	FormatCompact = "compact"
	FormatText    = "text"
	FormatJSON    = "json"
)

// ParseFormat normalises a format name. Empty means compact.
func ParseFormat(name string) (string, error) {
	switch format := strings.ToLower(strings.TrimSpace(name)); format {
	case "":
		return FormatCompact, nil
	case FormatCompact, FormatText, FormatJSON:
		return format, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, name)
	}
}
