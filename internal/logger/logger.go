// Package logger configures structured logging for the Booklog server.
// Development output is a colored single-line format; production emits JSON.
package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"
)

const (
	formatJSON   = "json"
	formatPretty = "pretty"
)

const (
	ansiReset  = "\033[0m"
	ansiRed    = "\033[31m"
	ansiGreen  = "\033[32m"
	ansiYellow = "\033[33m"
	ansiPurple = "\033[35m"
	ansiCyan   = "\033[36m"
	ansiBold   = "\033[1m"
	ansiDim    = "\033[2m"
)

// Logger wraps slog.Logger with a few convenience helpers.
type Logger struct {
	*slog.Logger
}

// Config holds logger configuration.
type Config struct {
	Writer      io.Writer
	Format      string // "json" or "pretty"; derived from Environment when empty
	Environment string
	Level       slog.Level
	AddSource   bool
}

// New creates a logger from cfg.
func New(cfg Config) *Logger {
	w := cfg.Writer
	if w == nil {
		w = os.Stdout
	}

	format := cfg.Format
	if format == "" {
		format = formatPretty
		if cfg.Environment == "production" {
			format = formatJSON
		}
	}

	opts := &slog.HandlerOptions{
		Level:     cfg.Level,
		AddSource: cfg.AddSource,
		ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
			if a.Key == slog.SourceKey {
				if src, ok := a.Value.Any().(*slog.Source); ok {
					src.File = filepath.Base(src.File)
				}
			}
			return a
		},
	}

	var h slog.Handler
	if format == formatJSON {
		h = slog.NewJSONHandler(w, opts)
	} else {
		h = NewPrettyHandler(w, opts)
	}

	return &Logger{Logger: slog.New(h)}
}

// ParseLevel converts a level name to slog.Level, defaulting to info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// PrettyHandler writes records as "15:04:05 LVL message key=value ...".
type PrettyHandler struct {
	opts   slog.HandlerOptions
	mu     *sync.Mutex
	w      io.Writer
	prefix string // dotted group prefix applied to attribute keys
	attrs  []slog.Attr
}

// NewPrettyHandler creates a PrettyHandler writing to w.
func NewPrettyHandler(w io.Writer, opts *slog.HandlerOptions) *PrettyHandler {
	h := &PrettyHandler{w: w, mu: &sync.Mutex{}}
	if opts != nil {
		h.opts = *opts
	}
	return h
}

// Enabled implements slog.Handler.
func (h *PrettyHandler) Enabled(_ context.Context, level slog.Level) bool {
	minLevel := slog.LevelInfo
	if h.opts.Level != nil {
		minLevel = h.opts.Level.Level()
	}
	return level >= minLevel
}

// Handle implements slog.Handler.
func (h *PrettyHandler) Handle(_ context.Context, r slog.Record) error {
	var b strings.Builder
	b.Grow(256)

	b.WriteString(ansiDim + r.Time.Format(time.TimeOnly) + ansiReset + " ")
	label, color := levelLabel(r.Level)
	b.WriteString(color + label + ansiReset + " ")

	if h.opts.AddSource && r.PC != 0 {
		src := r.Source()
		b.WriteString(ansiDim + filepath.Base(src.File) + ":" + strconv.Itoa(src.Line) + ansiReset + " ")
	}

	b.WriteString(ansiBold + r.Message + ansiReset)

	fields := make([]string, 0, len(h.attrs)+r.NumAttrs())
	for _, a := range h.attrs {
		fields = appendAttr(fields, "", a)
	}
	r.Attrs(func(a slog.Attr) bool {
		fields = appendAttr(fields, h.prefix, a)
		return true
	})
	if len(fields) > 0 {
		b.WriteString(" " + ansiCyan + strings.Join(fields, " ") + ansiReset)
	}
	b.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := io.WriteString(h.w, b.String())
	return err
}

// WithAttrs implements slog.Handler.
func (h *PrettyHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := *h
	next.attrs = make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	next.attrs = append(next.attrs, h.attrs...)
	for _, a := range attrs {
		a.Key = h.prefix + a.Key
		next.attrs = append(next.attrs, a)
	}
	return &next
}

// WithGroup implements slog.Handler.
func (h *PrettyHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	next := *h
	next.prefix = h.prefix + name + "."
	return &next
}

func appendAttr(fields []string, prefix string, a slog.Attr) []string {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return fields
	}
	if a.Value.Kind() == slog.KindGroup {
		for _, ga := range a.Value.Group() {
			fields = appendAttr(fields, prefix+a.Key+".", ga)
		}
		return fields
	}
	return append(fields, prefix+a.Key+"="+formatValue(a.Value))
}

func levelLabel(level slog.Level) (string, string) {
	switch {
	case level >= slog.LevelError:
		return "ERR", ansiRed
	case level >= slog.LevelWarn:
		return "WRN", ansiYellow
	case level >= slog.LevelInfo:
		return "INF", ansiGreen
	default:
		return "DBG", ansiPurple
	}
}

func formatValue(v slog.Value) string {
	switch v.Kind() {
	case slog.KindTime:
		return v.Time().Format(time.RFC3339)
	case slog.KindDuration:
		return v.Duration().String()
	case slog.KindString:
		s := v.String()
		if strings.ContainsAny(s, " \t\"") {
			return strconv.Quote(s)
		}
		return s
	default:
		return v.String()
	}
}

// WithError returns a logger carrying an "error" attribute.
func (l *Logger) WithError(err error) *Logger {
	return &Logger{Logger: l.With(slog.String("error", err.Error()))}
}

// WithField returns a logger carrying one extra attribute.
func (l *Logger) WithField(key string, value any) *Logger {
	return &Logger{Logger: l.With(slog.Any(key, value))}
}

// Component returns a logger tagged with the owning component name.
func (l *Logger) Component(name string) *slog.Logger {
	return l.With(slog.String("component", name))
}

// Fatal logs at error level and exits the process.
func (l *Logger) Fatal(msg string, args ...any) {
	l.Error(msg, args...)
	os.Exit(1)
}
