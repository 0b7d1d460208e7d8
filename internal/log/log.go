package log

import (
	"context"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/go-logr/logr"
	"github.com/go-logr/zerologr"
	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// RecentSize is how many records a RecentHandler keeps.
const RecentSize = 20

type recent struct {
	mu   sync.Mutex
	ch   chan<- tea.Msg
	logs []slog.Record
}

// RecentHandler is a slog.Handler that remembers the latest records and
// optionally forwards them to a tea.Program.
type RecentHandler struct {
	slog.Handler
	level slog.Leveler
	r     *recent
}

// NewRecentHandler wraps handler. Records below level are dropped.
func NewRecentHandler(handler slog.Handler, level slog.Leveler) *RecentHandler {
	if level == nil {
		level = slog.LevelInfo
	}
	return &RecentHandler{
		Handler: handler,
		level:   level,
		r:       &recent{},
	}
}

func (h *RecentHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return level >= h.level.Level() && h.Handler.Enabled(ctx, level)
}

// Handle stores the record and passes it on.
func (h *RecentHandler) Handle(ctx context.Context, r slog.Record) error {
	h.r.mu.Lock()
	h.r.logs = append(h.r.logs, r.Clone())
	if len(h.r.logs) > RecentSize {
		h.r.logs = h.r.logs[1:]
	}
	if h.r.ch != nil {
		select {
		case h.r.ch <- LogMsg(r):
		default:
		}
	}
	h.r.mu.Unlock()

	return h.Handler.Handle(ctx, r)
}

func (h *RecentHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &RecentHandler{Handler: h.Handler.WithAttrs(attrs), level: h.level, r: h.r}
}

func (h *RecentHandler) WithGroup(name string) slog.Handler {
	return &RecentHandler{Handler: h.Handler.WithGroup(name), level: h.level, r: h.r}
}

// Logs returns the stored records, oldest first.
func (h *RecentHandler) Logs() []slog.Record {
	h.r.mu.Lock()
	defer h.r.mu.Unlock()
	return append([]slog.Record(nil), h.r.logs...)
}

// Entry is a stored record flattened for JSON.
type Entry struct {
	Time    time.Time      `json:"time"`
	Level   string         `json:"level"`
	Message string         `json:"message"`
	Attrs   map[string]any `json:"attrs,omitempty"`
}

// Entries returns the stored records as Entry values.
func (h *RecentHandler) Entries() []Entry {
	logs := h.Logs()
	entries := make([]Entry, 0, len(logs))
	for _, r := range logs {
		e := Entry{Time: r.Time, Level: r.Level.String(), Message: r.Message}
		r.Attrs(func(a slog.Attr) bool {
			if e.Attrs == nil {
				e.Attrs = make(map[string]any)
			}
			e.Attrs[a.Key] = a.Value.Resolve().Any()
			return true
		})
		entries = append(entries, e)
	}
	return entries
}

// LogMsg is a tea.Msg that represents a log message.
type LogMsg slog.Record

// SetOutput sets the output channel for the handler. Records are dropped
// rather than block when the channel is full.
func (h *RecentHandler) SetOutput(ch chan<- tea.Msg) {
	h.r.mu.Lock()
	defer h.r.mu.Unlock()
	h.r.ch = ch
}

// Options selects where logs go.
type Options struct {
	// Debug lowers the level to debug and adds the calling source location.
	Debug bool
	// Verbose lowers the level to info. The default is warn.
	Verbose bool
	// File, when set, receives logs through a rotating writer instead of
	// the terminal.
	File string
	// Output overrides both the terminal and File.
	Output io.Writer
}

func (o Options) writer() io.Writer {
	switch {
	case o.Output != nil:
		return o.Output
	case o.File != "":
		return &lumberjack.Logger{
			Filename:   o.File,
			MaxSize:    5, // megabytes
			MaxBackups: 3,
			MaxAge:     28, // days
			Compress:   true,
		}
	default:
		return os.Stderr
	}
}

// Level is the slog level o selects.
func (o Options) Level() slog.Level {
	switch {
	case o.Debug:
		return slog.LevelDebug
	case o.Verbose:
		return slog.LevelInfo
	default:
		return slog.LevelWarn
	}
}

// NewLogr builds the zerolog backed logr.Logger the slog handler writes to.
func NewLogr(o Options) logr.Logger {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnixMs
	zerologr.NameFieldName = "logger"
	zerologr.NameSeparator = "/"
	// slog debug arrives as V(4); filtering happens in RecentHandler.
	zerologr.SetMaxV(4)

	w := o.writer()
	zl := zerolog.New(w)
	if f, ok := w.(*os.File); ok && isatty.IsTerminal(f.Fd()) {
		zl = zl.Output(zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339})
	}
	ctx := zl.With().Timestamp()
	if o.Debug {
		ctx = ctx.Caller()
	}
	zl = ctx.Logger()
	return zerologr.New(&zl)
}

var defaultHandler = NewRecentHandler(slog.NewTextHandler(io.Discard, nil), slog.LevelInfo)

// Init initializes the default logger and returns it.
func Init(o Options) *slog.Logger {
	defaultHandler = NewRecentHandler(logr.ToSlogHandler(NewLogr(o)), o.Level())
	logger := slog.New(defaultHandler)
	slog.SetDefault(logger)
	return logger
}

// Default returns the handler installed by Init.
func Default() *RecentHandler {
	return defaultHandler
}

// SetOutput sets the output channel for the default logger.
func SetOutput(ch chan<- tea.Msg) {
	defaultHandler.SetOutput(ch)
}

// Logs returns the stored log messages from the default logger.
func Logs() []slog.Record {
	return defaultHandler.Logs()
}
