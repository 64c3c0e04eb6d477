package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"grimm.is/qdiscwatch/internal/brand"
)

// ConsoleHandler writes syslog-style lines for humans and journald:
//
//	2025-06-15T12:00:00Z qdiscwatch[1234]: [warn] monitor: Flap blocked interface=eth0
type ConsoleHandler struct {
	level slog.Leveler
	w     io.Writer
	mu    *sync.Mutex
	tag   string
	attrs []slog.Attr
}

// NewConsoleHandler returns a handler writing to w. A nil opts or level
// means info.
func NewConsoleHandler(w io.Writer, opts *slog.HandlerOptions) *ConsoleHandler {
	h := &ConsoleHandler{level: slog.LevelInfo, w: w, mu: &sync.Mutex{}, tag: brand.BinaryName}
	if opts != nil && opts.Level != nil {
		h.level = opts.Level
	}
	return h
}

func (h *ConsoleHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

// Handle formats and writes one record.
func (h *ConsoleHandler) Handle(ctx context.Context, r slog.Record) error {
	t := r.Time
	if t.IsZero() {
		t = time.Now()
	}

	buf := t.AppendFormat(make([]byte, 0, 256), time.RFC3339)
	buf = fmt.Appendf(buf, " %s[%d]: [%s] ", h.tag, os.Getpid(), strings.ToLower(r.Level.String()))
	buf = append(appendBody(buf, h.attrs, r), '\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := h.w.Write(buf)
	return err
}

func (h *ConsoleHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	nh := *h
	nh.attrs = append(append([]slog.Attr{}, h.attrs...), attrs...)
	return &nh
}

// WithGroup is a no-op; console output is flat.
func (h *ConsoleHandler) WithGroup(name string) slog.Handler {
	return h
}
