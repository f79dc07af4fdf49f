package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

const (
	// RetentionDays bounds how long rotated log files are kept.
	RetentionDays = 7

	dateLayout = "2006-01-02"
)

// Common tags used across the server.
const (
	TagBoot    = "BOOT"
	TagHTTP    = "HTTP"
	TagBrowser = "BROWSER"
	TagCapture = "CAPTURE"
	TagStore   = "STORE"
	TagAuth    = "AUTH"
	TagMCP     = "MCP"
	TagObs     = "OBSERVABILITY"
)

// Config captures logging configuration options.
type Config struct {
	Level    string
	Dir      string
	Filename string

	// Console receives the human readable stream. Defaults to os.Stdout.
	Console io.Writer
}

var (
	colorReset = "\x1b[0m"
	colorTime  = "\x1b[90m"
	colorDebug = "\x1b[36m"
	colorInfo  = "\x1b[32m"
	colorWarn  = "\x1b[33m"
	colorError = "\x1b[31m"

	tagColors = map[string]string{
		TagBoot:    "\x1b[96m",
		TagHTTP:    "\x1b[95m",
		TagBrowser: "\x1b[94m",
		TagCapture: "\x1b[92m",
		TagStore:   "\x1b[35m",
		TagAuth:    "\x1b[34m",
		TagMCP:     "\x1b[36m",
		TagObs:     "\x1b[90m",
	}
)

// consoleHandler renders one coloured line per record.
type consoleHandler struct {
	writer io.Writer
	level  slog.Level
	mu     sync.Mutex
}

func (h *consoleHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level
}

func (h *consoleHandler) Handle(_ context.Context, r slog.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	var b strings.Builder
	b.WriteString(colorTime)
	b.WriteString("[" + r.Time.Format("2006-01-02 15:04:05.000") + "]")
	b.WriteString(colorReset)
	b.WriteByte(' ')

	if tag, ok := messageTag(r.Message); ok {
		color, known := tagColors[tag]
		if !known {
			color = levelColor(r.Level)
		}
		b.WriteString(color + r.Message + colorReset)
	} else {
		b.WriteString(levelColor(r.Level) + "[" + r.Level.String() + "]" + colorReset)
		b.WriteByte(' ')
		b.WriteString(r.Message)
	}

	if r.NumAttrs() > 0 {
		b.WriteString(" {")
		r.Attrs(func(a slog.Attr) bool {
			fmt.Fprintf(&b, " %s=%v", a.Key, a.Value)
			return true
		})
		b.WriteString(" }")
	}
	b.WriteByte('\n')

	_, err := io.WriteString(h.writer, b.String())
	return err
}

func (h *consoleHandler) WithAttrs([]slog.Attr) slog.Handler { return h }

func (h *consoleHandler) WithGroup(string) slog.Handler { return h }

func levelColor(level slog.Level) string {
	switch {
	case level >= slog.LevelError:
		return colorError
	case level >= slog.LevelWarn:
		return colorWarn
	case level >= slog.LevelInfo:
		return colorInfo
	default:
		return colorDebug
	}
}

func messageTag(msg string) (string, bool) {
	if !strings.HasPrefix(msg, "[") {
		return "", false
	}
	end := strings.IndexByte(msg, ']')
	if end <= 1 {
		return "", false
	}
	return msg[1:end], true
}

// Logger writes JSON records to a daily rotated file and a text line to the console.
// A nil *Logger is valid and discards everything.
type Logger struct {
	config      Config
	level       slog.Level
	jsonLogger  *slog.Logger
	textLogger  *slog.Logger
	logFile     *os.File
	currentDate string
	mu          sync.RWMutex
	ticker      *time.Ticker
	stopCh      chan struct{}
	closeOnce   sync.Once
}

// ParseLevel maps a configured level name to slog.Level. Unknown names map to info.
func ParseLevel(name string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(name)) {
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

// New creates a logger. When cfg.Dir is empty only the console stream is written.
func New(cfg Config) (*Logger, error) {
	level := ParseLevel(cfg.Level)
	console := cfg.Console
	if console == nil {
		console = os.Stdout
	}

	l := &Logger{
		config:      cfg,
		level:       level,
		textLogger:  slog.New(&consoleHandler{writer: console, level: level}),
		currentDate: time.Now().Format(dateLayout),
		stopCh:      make(chan struct{}),
	}

	if cfg.Dir == "" {
		return l, nil
	}
	if cfg.Filename == "" {
		l.config.Filename = "server.log"
	}

	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}
	file, err := os.OpenFile(l.logPath(), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	l.logFile = file
	l.jsonLogger = slog.New(slog.NewJSONHandler(file, &slog.HandlerOptions{Level: level}))
	l.startRotationChecker()

	return l, nil
}

// Nop returns a logger that drops every record.
func Nop() *Logger {
	l, _ := New(Config{Level: "ERROR", Console: io.Discard})
	return l
}

func (l *Logger) logPath() string {
	return filepath.Join(l.config.Dir, l.config.Filename)
}

func (l *Logger) startRotationChecker() {
	l.ticker = time.NewTicker(time.Minute)
	go func() {
		for {
			select {
			case <-l.ticker.C:
				l.checkAndRotate(time.Now())
			case <-l.stopCh:
				return
			}
		}
	}()
}

func (l *Logger) checkAndRotate(now time.Time) {
	today := now.Format(dateLayout)
	l.mu.RLock()
	current := l.currentDate
	l.mu.RUnlock()
	if today == current {
		return
	}
	l.rotate(today)
	l.cleanOldLogs(now)
}

// rotate renames the active file to <base>-<date><ext> and reopens a fresh one.
func (l *Logger) rotate(newDate string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.logFile != nil {
		_ = l.logFile.Close()
	}

	ext := filepath.Ext(l.config.Filename)
	base := strings.TrimSuffix(l.config.Filename, ext)
	archived := filepath.Join(l.config.Dir, fmt.Sprintf("%s-%s%s", base, l.currentDate, ext))
	if _, err := os.Stat(l.logPath()); err == nil {
		if err := os.Rename(l.logPath(), archived); err != nil {
			l.textLogger.Error("rename log file failed", slog.String("error", err.Error()))
		}
	}

	file, err := os.OpenFile(l.logPath(), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		l.textLogger.Error("open rotated log file failed", slog.String("error", err.Error()))
		l.logFile = nil
		l.jsonLogger = nil
		return
	}

	l.logFile = file
	l.currentDate = newDate
	l.jsonLogger = slog.New(slog.NewJSONHandler(file, &slog.HandlerOptions{Level: l.level}))
	l.textLogger.Info("log file rotated", slog.String("date", newDate))
}

func (l *Logger) cleanOldLogs(now time.Time) {
	entries, err := os.ReadDir(l.config.Dir)
	if err != nil {
		l.textLogger.Error("read log dir failed", slog.String("error", err.Error()))
		return
	}

	cutoff := now.AddDate(0, 0, -RetentionDays)
	ext := filepath.Ext(l.config.Filename)
	prefix := strings.TrimSuffix(l.config.Filename, ext) + "-"

	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, prefix) || !strings.HasSuffix(name, ext) {
			continue
		}
		date, err := time.Parse(dateLayout, strings.TrimSuffix(strings.TrimPrefix(name, prefix), ext))
		if err != nil || !date.Before(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(l.config.Dir, name)); err != nil {
			l.textLogger.Error("remove old log failed", slog.String("file", name), slog.String("error", err.Error()))
		}
	}
}

// Close stops rotation and closes the log file.
func (l *Logger) Close() error {
	if l == nil {
		return nil
	}
	var err error
	l.closeOnce.Do(func() {
		if l.ticker != nil {
			l.ticker.Stop()
		}
		close(l.stopCh)
		l.mu.Lock()
		defer l.mu.Unlock()
		if l.logFile != nil {
			err = l.logFile.Close()
			l.logFile = nil
			l.jsonLogger = nil
		}
	})
	return err
}

func (l *Logger) log(level slog.Level, msg string, args ...any) {
	if l == nil {
		return
	}

	var attrs []slog.Attr
	switch {
	case len(args) > 0 && strings.Contains(msg, "%"):
		msg = fmt.Sprintf(msg, args...)
	case len(args) > 0 && args[0] != nil:
		if fields, ok := args[0].(map[string]any); ok {
			keys := make([]string, 0, len(fields))
			for k := range fields {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				attrs = append(attrs, slog.Any(k, fields[k]))
			}
		} else {
			attrs = append(attrs, slog.Any("fields", args[0]))
		}
	}

	l.mu.RLock()
	defer l.mu.RUnlock()
	ctx := context.Background()
	if l.jsonLogger != nil {
		l.jsonLogger.LogAttrs(ctx, level, msg, attrs...)
	}
	l.textLogger.LogAttrs(ctx, level, msg, attrs...)
}

// FormatLog prefixes message with a single tag: FormatLog("HTTP", "ready") -> "[HTTP] ready".
// Messages that already start with "[" are returned unchanged.
func FormatLog(tag, message string) string {
	tag = strings.TrimSpace(tag)
	message = strings.TrimSpace(message)
	if tag == "" || strings.HasPrefix(message, "[") {
		return message
	}
	return "[" + tag + "] " + message
}

func (l *Logger) Debug(msg string, args ...any) { l.log(slog.LevelDebug, msg, args...) }
func (l *Logger) Info(msg string, args ...any)  { l.log(slog.LevelInfo, msg, args...) }
func (l *Logger) Warn(msg string, args ...any)  { l.log(slog.LevelWarn, msg, args...) }
func (l *Logger) Error(msg string, args ...any) { l.log(slog.LevelError, msg, args...) }

func (l *Logger) DebugTag(tag, msg string, args ...any) {
	l.log(slog.LevelDebug, FormatLog(tag, msg), args...)
}

func (l *Logger) InfoTag(tag, msg string, args ...any) {
	l.log(slog.LevelInfo, FormatLog(tag, msg), args...)
}

func (l *Logger) WarnTag(tag, msg string, args ...any) {
	l.log(slog.LevelWarn, FormatLog(tag, msg), args...)
}

func (l *Logger) ErrorTag(tag, msg string, args ...any) {
	l.log(slog.LevelError, FormatLog(tag, msg), args...)
}

// Slog exposes the console logger for libraries that want a *slog.Logger.
func (l *Logger) Slog() *slog.Logger {
	if l == nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.textLogger
}
