package config

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
)

// LevelTrace logs every command added to a board program.
const LevelTrace slog.Level = slog.LevelDebug - 4

// Trace logs at LevelTrace.
func Trace(logger *slog.Logger, msg string, args ...any) {
	logger.Log(context.Background(), LevelTrace, msg, args...)
}

// ParseLevel parses "trace" or a slog level name.
func ParseLevel(s string) (slog.Level, error) {
	if strings.EqualFold(s, "trace") {
		return LevelTrace, nil
	}

	var l slog.Level
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("log level %q: %w", s, err)
	}

	return l, nil
}

// Handler writes records as "[time] [value]... message" lines. Values added
// with WithAttrs come before the values of the record. Groups only qualify
// keys, which are not printed.
type Handler struct {
	level  slog.Leveler
	attrs  []string
	groups []string
	mu     *sync.Mutex
	out    io.Writer
}

// NewHandler creates a bracketed text handler.
func NewHandler(o io.Writer, opts *slog.HandlerOptions) *Handler {
	if opts == nil {
		opts = &slog.HandlerOptions{}
	}

	level := opts.Level
	if level == nil {
		level = slog.LevelInfo
	}

	return &Handler{out: o, level: level, mu: &sync.Mutex{}}
}

func (h *Handler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}

	h2 := *h
	h2.attrs = append([]string(nil), h.attrs...)

	for _, a := range attrs {
		h2.attrs = appendValues(h2.attrs, a)
	}

	return &h2
}

func (h *Handler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}

	h2 := *h
	h2.groups = append(append([]string(nil), h.groups...), name)

	return &h2
}

func (h *Handler) Handle(_ context.Context, r slog.Record) error {
	strs := []string{r.Time.Format("[2006/01/02 15:04:05]"), levelTag(r.Level)}
	strs = append(strs, h.attrs...)

	r.Attrs(func(a slog.Attr) bool {
		strs = appendValues(strs, a)
		return true
	})

	strs = append(strs, r.Message)

	h.mu.Lock()
	defer h.mu.Unlock()

	_, err := io.WriteString(h.out, strings.Join(strs, " ")+"\n")

	return err
}

// appendValues renders the value of an attribute, flattening groups.
func appendValues(strs []string, a slog.Attr) []string {
	if a.Equal(slog.Attr{}) {
		return strs
	}

	v := a.Value.Resolve()

	if v.Kind() == slog.KindGroup {
		for _, ga := range v.Group() {
			strs = appendValues(strs, ga)
		}

		return strs
	}

	return append(strs, fmt.Sprintf("[%s]", v.String()))
}

func levelTag(l slog.Level) string {
	if l <= LevelTrace {
		return "[TRACE]"
	}

	return "[" + l.String() + "]"
}

// NewLogger creates a logger writing bracketed lines to w.
func NewLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(NewHandler(w, &slog.HandlerOptions{Level: level}))
}
