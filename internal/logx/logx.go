// Package logx provides structured logging functionality
package logx

import (
	"os"
	"strings"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is a named view on the global zap logger. Scoped loggers resolve the
// global logger on every call, so they follow Init reconfiguration.
type Logger struct {
	scope string
}

var global atomic.Pointer[zap.Logger]

func init() {
	cfg := getLoggerConfig()
	if IsLocalDev(os.Getenv("APP_ENV")) {
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	} else {
		cfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}
	zl, err := cfg.Build(zap.AddCallerSkip(1))
	if err != nil {
		panic(err)
	}
	global.Store(zl)
}

// IsLocalDev checks if the environment is local development
func IsLocalDev(appEnv string) bool {
	return appEnv == "local" || appEnv == "dev" || appEnv == "development"
}

// GetScope returns the logger for a package or component.
func GetScope(scope string) *Logger {
	return &Logger{scope: scope}
}

func customTimeEncoder(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
	enc.AppendString(t.Format("2006-01-02 15:04:05.000"))
}

func getLoggerConfig() zap.Config {
	config := zap.NewProductionConfig()
	config.Development = false
	config.DisableCaller = false
	config.DisableStacktrace = false
	config.Sampling = nil

	config.EncoderConfig = zapcore.EncoderConfig{
		TimeKey:        "timestamp",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		FunctionKey:    zapcore.OmitKey,
		MessageKey:     "message",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.CapitalColorLevelEncoder,
		EncodeTime:     customTimeEncoder,
		EncodeDuration: zapcore.SecondsDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}
	config.Encoding = "console"
	return config
}

// Init rebuilds the global logger for the given level and format (text|json).
func Init(level, format string) {
	config := getLoggerConfig()
	switch strings.ToLower(format) {
	case "json":
		config.Encoding = "json"
		config.EncoderConfig.EncodeLevel = zapcore.LowercaseLevelEncoder
	default:
		config.Encoding = "console"
		config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	config.Level = zap.NewAtomicLevelAt(parseLevel(level))

	zl, err := config.Build(zap.AddCallerSkip(1))
	if err != nil {
		panic(err)
	}
	if old := global.Swap(zl); old != nil {
		_ = old.Sync()
	}
}

// L returns the global sugared logger.
func L() *zap.SugaredLogger {
	return global.Load().Sugar()
}

// Sync flushes the global logger.
func Sync() error {
	return global.Load().Sync()
}

func parseLevel(s string) zapcore.Level {
	switch strings.ToLower(s) {
	case "debug":
		return zapcore.DebugLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

func (l *Logger) base() *zap.Logger {
	zl := global.Load()
	if l.scope == "" {
		return zl
	}
	return zl.Named(l.scope)
}

// Sugar returns the sugar logger for key-value style logging
func (l *Logger) Sugar() *zap.SugaredLogger {
	return l.base().Sugar()
}

// Zap returns the underlying zap logger for structured logging
func (l *Logger) Zap() *zap.Logger {
	return l.base()
}

// Debug logs a debug message with structured fields
func (l *Logger) Debug(msg string, fields ...zap.Field) {
	l.base().Debug(msg, fields...)
}

// Info logs an info message with structured fields
func (l *Logger) Info(msg string, fields ...zap.Field) {
	l.base().Info(msg, fields...)
}

// Warn logs a warning message with structured fields
func (l *Logger) Warn(msg string, fields ...zap.Field) {
	l.base().Warn(msg, fields...)
}

// Error logs an error message with structured fields
func (l *Logger) Error(msg string, fields ...zap.Field) {
	l.base().Error(msg, fields...)
}
