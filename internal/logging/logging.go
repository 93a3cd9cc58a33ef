package logging

import (
	"bytes"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

// Environment variables that control the default logger.
const (
	EnvDebug     = "DEBUG"
	EnvLogFile   = "ARXIV_LOG_FILE"
	EnvLogLevel  = "ARXIV_LOG_LEVEL"
	EnvLogFormat = "ARXIV_LOG_FORMAT"
)

const prefix = "arxivmcp"

// Format selects the line encoding.
type Format string

const (
	FormatText   Format = "text"
	FormatJSON   Format = "json"
	FormatLogfmt Format = "logfmt"
)

// Options configures New.
type Options struct {
	Level        log.Level
	Format       Format
	ReportCaller bool
	// TimeFormat is ignored when ReportTimestamp is false.
	ReportTimestamp bool
	TimeFormat      string
}

type AppLogger struct {
	logger *log.Logger
}

var (
	defaultLogger *AppLogger
	once          sync.Once
)

// GetDefault returns the process logger, built from the environment on first use.
func GetDefault() *AppLogger {
	once.Do(func() {
		defaultLogger = NewAppLogger()
	})
	return defaultLogger
}

// Package-level shortcuts for the default logger.
func Info(msg string, keyvals ...interface{}) {
	GetDefault().Info(msg, keyvals...)
}

func Warn(msg string, keyvals ...interface{}) {
	GetDefault().Warn(msg, keyvals...)
}

func Error(msg string, keyvals ...interface{}) {
	GetDefault().Error(msg, keyvals...)
}

func Debug(msg string, keyvals ...interface{}) {
	GetDefault().Debug(msg, keyvals...)
}

// New returns a logger writing to w.
func New(w io.Writer, opts Options) *AppLogger {
	formatter := log.TextFormatter
	switch opts.Format {
	case FormatJSON:
		formatter = log.JSONFormatter
	case FormatLogfmt:
		formatter = log.LogfmtFormatter
	}

	logger := log.NewWithOptions(w, log.Options{
		Level:           opts.Level,
		Formatter:       formatter,
		ReportCaller:    opts.ReportCaller,
		ReportTimestamp: opts.ReportTimestamp,
		TimeFormat:      opts.TimeFormat,
		Prefix:          prefix,
	})
	return &AppLogger{logger: logger}
}

// OptionsFromEnv reads DEBUG, ARXIV_LOG_LEVEL and ARXIV_LOG_FORMAT. DEBUG wins
// over ARXIV_LOG_LEVEL and also turns on caller reporting.
func OptionsFromEnv() Options {
	opts := Options{
		Level:           log.InfoLevel,
		Format:          FormatText,
		ReportTimestamp: true,
		TimeFormat:      time.RFC3339,
	}
	if lvl, err := log.ParseLevel(os.Getenv(EnvLogLevel)); err == nil && os.Getenv(EnvLogLevel) != "" {
		opts.Level = lvl
	}
	switch f := Format(strings.ToLower(os.Getenv(EnvLogFormat))); f {
	case FormatJSON, FormatLogfmt:
		opts.Format = f
	}
	if os.Getenv(EnvDebug) != "" {
		opts.Level = log.DebugLevel
		opts.ReportCaller = true
		opts.TimeFormat = time.Kitchen
	}
	return opts
}

// NewAppLogger builds the process logger from the environment. Output never goes
// to stdout: when the MCP server runs over stdio, stdout carries JSON-RPC frames.
// ARXIV_LOG_FILE redirects output to a file that is truncated on each run; if it
// cannot be opened the logger stays on stderr and says so.
func NewAppLogger() *AppLogger {
	var (
		out     io.Writer = os.Stderr
		openErr error
	)
	path := os.Getenv(EnvLogFile)
	if path != "" {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
		if err == nil {
			out = f
		}
		openErr = err
	}

	al := New(out, OptionsFromEnv())
	if openErr != nil {
		al.Warn("Cannot open log file, logging to stderr", "path", path, "error", openErr)
	}
	al.Debug("Debug logging enabled")
	return al
}

// With returns a child logger that adds keyvals to every entry.
func (al *AppLogger) With(keyvals ...interface{}) *AppLogger {
	return &AppLogger{logger: al.logger.With(keyvals...)}
}

func (al *AppLogger) Info(msg string, keyvals ...interface{}) {
	al.logger.Helper()
	al.logger.Info(msg, keyvals...)
}

func (al *AppLogger) Warn(msg string, keyvals ...interface{}) {
	al.logger.Helper()
	al.logger.Warn(msg, keyvals...)
}

func (al *AppLogger) Error(msg string, keyvals ...interface{}) {
	al.logger.Helper()
	al.logger.Error(msg, keyvals...)
}

func (al *AppLogger) Debug(msg string, keyvals ...interface{}) {
	al.logger.Helper()
	al.logger.Debug(msg, keyvals...)
}

// LogPerformance records how long operation took since start. Meant for defer.
func (al *AppLogger) LogPerformance(operation string, start time.Time) {
	al.logger.Helper()
	al.logger.Debug("Performance",
		"operation", operation,
		"duration", time.Since(start).Round(time.Millisecond),
	)
}

// LogStateTransition records a lifecycle change of a tracked entity, e.g. a
// conversion moving from downloading to converting.
func (al *AppLogger) LogStateTransition(component, from, to string) {
	al.logger.Helper()
	al.logger.Debug("State transition",
		"component", component,
		"from", from,
		"to", to,
	)
}

// NewTestLogger returns a debug-level logger without timestamps writing into a
// buffer that is safe for concurrent writers.
func NewTestLogger() (*AppLogger, *SyncBuffer) {
	buf := &SyncBuffer{}
	return New(buf, Options{Level: log.DebugLevel, Format: FormatText}), buf
}

// NewDiscardLogger returns a logger that drops everything.
func NewDiscardLogger() *AppLogger {
	return New(io.Discard, Options{Level: log.FatalLevel})
}

// SyncBuffer is a bytes.Buffer guarded by a mutex, so background goroutines can
// log into it while a test reads it.
type SyncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *SyncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *SyncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}
