package logging

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"strconv"
	"sync"
	"time"
)

// Severity is an RFC 3164 message severity.
type Severity int

const (
	SeverityError   Severity = 3
	SeverityWarning Severity = 4
	SeverityInfo    Severity = 6
	SeverityDebug   Severity = 7
)

// severityFor maps a slog level onto the nearest syslog severity.
func severityFor(level slog.Level) Severity {
	switch {
	case level >= slog.LevelError:
		return SeverityError
	case level >= slog.LevelWarn:
		return SeverityWarning
	case level >= slog.LevelInfo:
		return SeverityInfo
	}
	return SeverityDebug
}

// Log calls run on the monitor loop, so a dead or wedged server may only
// stall a record briefly. Startup gets a longer dial to report bad addresses.
const (
	dialTimeout   = 5 * time.Second
	redialTimeout = time.Second
	writeTimeout  = time.Second
)

// SyslogConfig describes the remote syslog server.
type SyslogConfig struct {
	Host     string
	Port     int    // 514 if zero
	Protocol string // "udp" (default) or "tcp"
	Tag      string // "qdiscwatch" if empty
	Facility int    // 1 (user) if zero
}

// DefaultSyslogConfig returns sensible defaults.
func DefaultSyslogConfig() SyslogConfig {
	return SyslogConfig{Port: 514, Protocol: "udp", Tag: "qdiscwatch", Facility: 1}
}

// SyslogWriter sends RFC 3164 messages to a remote syslog server. A failed
// write drops the connection; the next write dials again.
type SyslogWriter struct {
	mu       sync.Mutex
	conn     net.Conn
	network  string
	addr     string
	tag      string
	facility int
	hostname string
	closed   bool
}

// NewSyslogWriter dials the server. An unreachable server is an error here
// so that a bad address is reported at startup.
func NewSyslogWriter(cfg SyslogConfig) (*SyslogWriter, error) {
	if cfg.Host == "" {
		return nil, errors.New("syslog host is required")
	}
	def := DefaultSyslogConfig()
	if cfg.Port == 0 {
		cfg.Port = def.Port
	}
	if cfg.Protocol == "" {
		cfg.Protocol = def.Protocol
	}
	if cfg.Tag == "" {
		cfg.Tag = def.Tag
	}
	if cfg.Facility == 0 {
		cfg.Facility = def.Facility
	}

	w := &SyslogWriter{
		network:  cfg.Protocol,
		addr:     net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		tag:      cfg.Tag,
		facility: cfg.Facility,
	}
	if h, err := os.Hostname(); err == nil && h != "" {
		w.hostname = h
	} else {
		w.hostname = cfg.Tag
	}

	conn, err := net.DialTimeout(w.network, w.addr, dialTimeout)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to syslog server %s: %w", w.addr, err)
	}
	w.conn = conn
	return w, nil
}

// WriteMessage sends one message at the given severity.
func (w *SyslogWriter) WriteMessage(sev Severity, msg string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return errors.New("syslog writer closed")
	}
	if w.conn == nil {
		conn, err := net.DialTimeout(w.network, w.addr, redialTimeout)
		if err != nil {
			return fmt.Errorf("syslog reconnect %s: %w", w.addr, err)
		}
		w.conn = conn
	}

	pri := w.facility*8 + int(sev)
	line := fmt.Sprintf("<%d>%s %s %s[%d]: %s", pri, time.Now().Format(time.Stamp), w.hostname, w.tag, os.Getpid(), msg)
	if w.network == "tcp" {
		line += "\n"
	}
	if err := w.conn.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
		w.conn.Close()
		w.conn = nil
		return err
	}
	if _, err := w.conn.Write([]byte(line)); err != nil {
		w.conn.Close()
		w.conn = nil
		return err
	}
	return nil
}

// Close closes the connection. Later writes fail.
func (w *SyslogWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.closed = true
	if w.conn == nil {
		return nil
	}
	err := w.conn.Close()
	w.conn = nil
	return err
}

// SyslogHandler is a slog.Handler that forwards records to a SyslogWriter.
type SyslogHandler struct {
	w     *SyslogWriter
	level slog.Leveler
	attrs []slog.Attr
}

// NewSyslogHandler returns a handler emitting records at or above level.
func NewSyslogHandler(w *SyslogWriter, level slog.Leveler) *SyslogHandler {
	if level == nil {
		level = slog.LevelInfo
	}
	return &SyslogHandler{w: w, level: level}
}

func (h *SyslogHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *SyslogHandler) Handle(_ context.Context, r slog.Record) error {
	body := appendBody(make([]byte, 0, 128), h.attrs, r)
	return h.w.WriteMessage(severityFor(r.Level), string(body))
}

func (h *SyslogHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &SyslogHandler{
		w:     h.w,
		level: h.level,
		attrs: append(append([]slog.Attr{}, h.attrs...), attrs...),
	}
}

func (h *SyslogHandler) WithGroup(string) slog.Handler { return h }
