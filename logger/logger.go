package logger

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync/atomic"

	"github.com/rs/zerolog"
)

const (
	FormatJSON    = "json"
	FormatConsole = "console"
	FormatPretty  = "pretty"
)

// Logger is a zerolog logger bound to one service name.
//
// Every method is safe on a nil *Logger so optional loggers can be passed
// around without guards.
type Logger struct {
	logger  zerolog.Logger
	service string
}

// Init replaces the process-wide logger and global level from cfg.
func Init(cfg Config) {
	cfg.ApplyDefaults()
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	global.Store(New(&cfg, ""))
}

// New builds a logger writing to cfg.Output ("stdout" or stderr).
func New(cfg *Config, serviceName string) *Logger {
	var w io.Writer = os.Stderr
	if strings.EqualFold(cfg.Output, "stdout") {
		w = os.Stdout
	}
	return NewWithWriter(cfg, w, serviceName)
}

// NewWithWriter builds a logger writing to w. Unknown levels fall back to
// info.
func NewWithWriter(cfg *Config, w io.Writer, serviceName string) *Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}

	zl := zerolog.New(w)
	if isConsole(cfg.Format) {
		zl = zerolog.New(consoleWriter(w, cfg.NoColor, serviceName))
	}
	zc := zl.Level(level).With()
	if cfg.Timestamp || isConsole(cfg.Format) {
		zc = zc.Timestamp()
	}
	if cfg.Caller {
		zc = zc.Caller()
	}
	if serviceName != "" {
		zc = zc.Str(FieldService, serviceName)
	}
	return &Logger{logger: zc.Logger(), service: serviceName}
}

// NewDefault is a console logger at info level on stderr.
func NewDefault(serviceName string) *Logger {
	return New(&Config{Level: "info", Format: FormatConsole, Timestamp: true}, serviceName)
}

// Nop discards everything.
func Nop() *Logger {
	return &Logger{logger: zerolog.Nop(), service: "nop"}
}

type contextKey string

// ContextWithRequestID stores a request ID for WithContext.
func ContextWithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, contextKey(FieldRequestID), id)
}

// ContextWithCaller stores the name of the code making a call, such as a
// script function, for WithContext.
func ContextWithCaller(ctx context.Context, caller string) context.Context {
	return context.WithValue(ctx, contextKey(FieldCaller), caller)
}

var contextFields = []string{FieldTraceID, FieldSpanID, FieldRequestID, FieldCaller}

// WithContext copies trace, span, request and caller IDs found in ctx onto
// the logger.
func (l *Logger) WithContext(ctx context.Context) *Logger {
	if l == nil || ctx == nil {
		return l
	}
	zc := l.logger.With()
	for _, key := range contextFields {
		if v := ctx.Value(contextKey(key)); v != nil {
			zc = zc.Str(key, fmt.Sprint(v))
		}
	}
	return l.derive(zc)
}

func (l *Logger) WithComponent(name string) *Logger {
	if l == nil {
		return nil
	}
	return l.derive(l.logger.With().Str(FieldComponent, name))
}

func (l *Logger) WithFields(fields map[string]interface{}) *Logger {
	if l == nil {
		return nil
	}
	return l.derive(l.logger.With().Fields(fields))
}

func (l *Logger) WithError(err error) *Logger {
	if l == nil {
		return nil
	}
	return l.derive(l.logger.With().Err(err))
}

func (l *Logger) derive(zc zerolog.Context) *Logger {
	return &Logger{logger: zc.Logger(), service: l.service}
}

func (l *Logger) Debug(msg string, fields ...map[string]interface{}) {
	l.emit(zerolog.DebugLevel, msg, fields)
}

func (l *Logger) Info(msg string, fields ...map[string]interface{}) {
	l.emit(zerolog.InfoLevel, msg, fields)
}

func (l *Logger) Warn(msg string, fields ...map[string]interface{}) {
	l.emit(zerolog.WarnLevel, msg, fields)
}

func (l *Logger) Error(msg string, fields ...map[string]interface{}) {
	l.emit(zerolog.ErrorLevel, msg, fields)
}

// Fatal logs and exits with status 1.
func (l *Logger) Fatal(msg string, fields ...map[string]interface{}) {
	l.emit(zerolog.FatalLevel, msg, fields)
	os.Exit(1)
}

func (l *Logger) emit(level zerolog.Level, msg string, fields []map[string]interface{}) {
	if l == nil {
		return
	}
	event := l.logger.WithLevel(level)
	if event == nil {
		return
	}
	for _, fm := range fields {
		for k, v := range fm {
			if err, ok := v.(error); ok {
				event.AnErr(k, err)
				continue
			}
			event.Interface(k, v)
		}
	}
	event.Msg(msg)
}

var global atomic.Pointer[Logger]

// GetGlobalLogger returns the logger installed by Init, or a default console
// logger before Init runs.
func GetGlobalLogger() *Logger {
	if l := global.Load(); l != nil {
		return l
	}
	global.CompareAndSwap(nil, NewDefault(""))
	return global.Load()
}

// Debug logs on the global logger.
func Debug(msg string, fields ...map[string]interface{}) {
	GetGlobalLogger().Debug(msg, fields...)
}

// Info logs on the global logger.
func Info(msg string, fields ...map[string]interface{}) {
	GetGlobalLogger().Info(msg, fields...)
}

// Error logs on the global logger.
func Error(msg string, fields ...map[string]interface{}) {
	GetGlobalLogger().Error(msg, fields...)
}

// WithComponent tags the global logger.
func WithComponent(name string) *Logger {
	return GetGlobalLogger().WithComponent(name)
}

func isConsole(format string) bool {
	switch strings.ToLower(format) {
	case FormatConsole, FormatPretty:
		return true
	}
	return false
}

// levelTags maps zerolog level names to an ANSI color and a short tag.
var levelTags = map[string][2]string{
	"TRACE": {"90", "TRC"},
	"DEBUG": {"36", "DBG"},
	"INFO":  {"32", "INF"},
	"WARN":  {"33", "WRN"},
	"ERROR": {"31", "ERR"},
	"FATAL": {"35", "FTL"},
}

func consoleWriter(w io.Writer, noColor bool, serviceName string) zerolog.ConsoleWriter {
	paint := func(code, s string) string {
		if noColor || code == "" {
			return s
		}
		return "\033[" + code + "m" + s + "\033[0m"
	}
	prefix := ""
	if len(serviceName) >= 3 {
		prefix = paint("34", "["+strings.ToUpper(serviceName[:3])+"]")
	}
	return zerolog.ConsoleWriter{
		Out:        w,
		TimeFormat: "15:04:05",
		NoColor:    noColor,
		FormatLevel: func(i interface{}) string {
			lvl := strings.ToUpper(fmt.Sprint(i))
			tag, ok := levelTags[lvl]
			if !ok {
				return prefix + "[" + lvl + "]"
			}
			return prefix + paint(tag[0], "["+tag[1]+"]")
		},
		FormatFieldName: func(i interface{}) string { return fmt.Sprint(i) + ":" },
	}
}
