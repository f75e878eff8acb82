// Package logger provides the console slog handler of the coordinator.
package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/fatih/color"
)

const timeFormat = "2006-01-02T15:04:05.000"

type Config struct {
	// Level is debug, info, warn or error.
	Level string
	Color bool
}

func DefaultConfig() Config {
	return Config{Level: "info", Color: true}
}

// Handler writes one colored line per record: time | level | message key=value...
type Handler struct {
	mu    *sync.Mutex
	w     io.Writer
	level slog.Leveler

	attrs  string
	prefix string

	time, msg, attr *color.Color
	levels          map[slog.Level]*color.Color
}

func NewHandler(w io.Writer, c Config) *Handler {
	h := &Handler{
		mu:    &sync.Mutex{},
		w:     w,
		level: ParseLevel(c.Level),
		time:  color.New(color.FgGreen),
		msg:   color.New(color.FgCyan),
		attr:  color.New(color.FgHiBlack),
		levels: map[slog.Level]*color.Color{
			slog.LevelDebug: color.New(color.FgMagenta),
			slog.LevelInfo:  color.New(color.FgBlue),
			slog.LevelWarn:  color.New(color.FgYellow),
			slog.LevelError: color.New(color.FgRed),
		},
	}

	all := []*color.Color{h.time, h.msg, h.attr}
	for _, l := range h.levels {
		all = append(all, l)
	}
	for _, cl := range all {
		if c.Color {
			cl.EnableColor()
		} else {
			cl.DisableColor()
		}
	}

	return h
}

// ParseLevel maps a level name to its slog level. Unknown names mean info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

func (h *Handler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *Handler) Handle(_ context.Context, r slog.Record) error {
	var b strings.Builder

	b.WriteString(h.time.Sprint(r.Time.Format(timeFormat)))
	b.WriteString(" | ")
	b.WriteString(h.levelColor(r.Level).Sprintf("%-5s", r.Level.String()))
	b.WriteString(" | ")
	b.WriteString(h.msg.Sprint(r.Message))
	b.WriteString(h.attrs)

	r.Attrs(func(a slog.Attr) bool {
		b.WriteString(h.format(h.prefix, a))
		return true
	})
	b.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()

	_, err := io.WriteString(h.w, b.String())
	return err
}

func (h *Handler) levelColor(l slog.Level) *color.Color {
	switch {
	case l >= slog.LevelError:
		return h.levels[slog.LevelError]
	case l >= slog.LevelWarn:
		return h.levels[slog.LevelWarn]
	case l >= slog.LevelInfo:
		return h.levels[slog.LevelInfo]
	}
	return h.levels[slog.LevelDebug]
}

func (h *Handler) format(prefix string, a slog.Attr) string {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return ""
	}

	if a.Value.Kind() == slog.KindGroup {
		p := prefix
		if a.Key != "" {
			p += a.Key + "."
		}
		var b strings.Builder
		for _, ga := range a.Value.Group() {
			b.WriteString(h.format(p, ga))
		}
		return b.String()
	}

	return h.attr.Sprintf(" %s%s=", prefix, a.Key) + fmt.Sprint(a.Value.Any())
}

func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}

	h2 := *h
	var b strings.Builder
	b.WriteString(h.attrs)
	for _, a := range attrs {
		b.WriteString(h.format(h.prefix, a))
	}
	h2.attrs = b.String()
	return &h2
}

func (h *Handler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}

	h2 := *h
	h2.prefix = h.prefix + name + "."
	return &h2
}

// Init installs the console handler on stderr as the default logger.
func Init(c Config) *slog.Logger {
	l := slog.New(NewHandler(os.Stderr, c))
	slog.SetDefault(l)
	return l
}
