package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"
)

// textTimeFormat stamps every text line. Milliseconds make reconnect
// timings readable.
const textTimeFormat = "2006-01-02 15:04:05.000"

const (
	ansiReset = "\033[0m"
	ansiKey   = "\033[36m"
)

// levelStyles maps the lowest level of each band to its label and color.
var levelStyles = []struct {
	min   slog.Level
	label string
	color string
}{
	{slog.LevelError, "ERROR", "\033[31m"},
	{slog.LevelWarn, "WARN ", "\033[33m"},
	{slog.LevelInfo, "INFO ", "\033[32m"},
	{slog.LevelDebug - 100, "DEBUG", "\033[90m"},
}

// ColorTextHandler writes "<time> <LEVEL> <message> key=value ..." lines,
// coloring the level and keys when color is set.
type ColorTextHandler struct {
	w      io.Writer
	mu     *sync.Mutex
	level  slog.Leveler
	color  bool
	prefix string // pre-rendered WithAttrs attributes
	group  string // dotted WithGroup path, with trailing dot
}

// NewColorTextHandler returns a handler writing to w. opts may be nil.
func NewColorTextHandler(w io.Writer, opts *slog.HandlerOptions, color bool) *ColorTextHandler {
	var lvl slog.Leveler = slog.LevelInfo
	if opts != nil && opts.Level != nil {
		lvl = opts.Level
	}
	return &ColorTextHandler{w: w, mu: &sync.Mutex{}, level: lvl, color: color}
}

func (h *ColorTextHandler) Enabled(_ context.Context, lvl slog.Level) bool {
	return lvl >= h.level.Level()
}

func (h *ColorTextHandler) Handle(_ context.Context, r slog.Record) error {
	buf := make([]byte, 0, 256)
	buf = r.Time.AppendFormat(buf, textTimeFormat)
	buf = append(buf, ' ')
	buf = h.appendLevel(buf, r.Level)
	buf = append(buf, ' ')
	buf = append(buf, r.Message...)
	buf = append(buf, h.prefix...)
	r.Attrs(func(a slog.Attr) bool {
		buf = h.appendAttr(buf, h.group, a)
		return true
	})
	buf = append(buf, '\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := h.w.Write(buf)
	return err
}

func (h *ColorTextHandler) appendLevel(buf []byte, lvl slog.Level) []byte {
	for _, s := range levelStyles {
		if lvl < s.min {
			continue
		}
		if h.color {
			return append(append(append(buf, s.color...), s.label...), ansiReset...)
		}
		return append(buf, s.label...)
	}
	return append(buf, "DEBUG"...)
}

func (h *ColorTextHandler) appendAttr(buf []byte, group string, a slog.Attr) []byte {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return buf
	}
	if a.Value.Kind() == slog.KindGroup {
		for _, ga := range a.Value.Group() {
			buf = h.appendAttr(buf, group+a.Key+".", ga)
		}
		return buf
	}

	val := textValue(a.Value)
	if val == "" || strings.ContainsAny(val, " \t\n\"=") {
		val = strconv.Quote(val)
	}

	buf = append(buf, ' ')
	if h.color {
		buf = append(buf, ansiKey...)
	}
	buf = append(buf, group...)
	buf = append(buf, a.Key...)
	if h.color {
		buf = append(buf, ansiReset...)
	}
	buf = append(buf, '=')
	return append(buf, val...)
}

func textValue(v slog.Value) string {
	switch v.Kind() {
	case slog.KindFloat64:
		return strconv.FormatFloat(v.Float64(), 'f', 3, 64)
	case slog.KindTime:
		return v.Time().Format(time.RFC3339)
	case slog.KindAny:
		if err, ok := v.Any().(error); ok {
			return err.Error()
		}
		return fmt.Sprint(v.Any())
	default:
		return v.String()
	}
}

func (h *ColorTextHandler) clone() *ColorTextHandler {
	c := *h
	return &c
}

func (h *ColorTextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	c := h.clone()
	buf := []byte(c.prefix)
	for _, a := range attrs {
		buf = c.appendAttr(buf, c.group, a)
	}
	c.prefix = string(buf)
	return c
}

func (h *ColorTextHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	c := h.clone()
	c.group += name + "."
	return c
}
