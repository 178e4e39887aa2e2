// Package logging contains the structured logger shared by the arview packages.
package logging

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"
)

// NewLoggerConfig returns a new default logger config.
func NewLoggerConfig() zap.Config {
	// from https://github.com/uber-go/zap/blob/2314926ec34c23ee21f3dd4399438469668f8097/config.go#L135
	// but disable stacktraces, use same keys as prod, and color levels.
	return zap.Config{
		Level:    zap.NewAtomicLevelAt(zap.InfoLevel),
		Encoding: "console",
		EncoderConfig: zapcore.EncoderConfig{
			TimeKey:        "ts",
			LevelKey:       "level",
			NameKey:        "logger",
			CallerKey:      "caller",
			FunctionKey:    zapcore.OmitKey,
			MessageKey:     "msg",
			StacktraceKey:  "stacktrace",
			LineEnding:     zapcore.DefaultLineEnding,
			EncodeLevel:    zapcore.CapitalColorLevelEncoder,
			EncodeTime:     zapcore.ISO8601TimeEncoder,
			EncodeDuration: zapcore.StringDurationEncoder,
			EncodeCaller:   zapcore.ShortCallerEncoder,
		},
		DisableStacktrace: true,
		OutputPaths:       []string{"stdout"},
		ErrorOutputPaths:  []string{"stderr"},
	}
}

// NewLogger returns a new logger that outputs Info+ logs to stdout in UTC.
func NewLogger(name string) Logger {
	return newWithLevel(name, INFO)
}

// NewDebugLogger returns a new logger that outputs Debug+ logs to stdout in UTC.
func NewDebugLogger(name string) Logger {
	return newWithLevel(name, DEBUG)
}

func newWithLevel(name string, level Level) Logger {
	config := NewLoggerConfig()
	config.EncoderConfig.EncodeTime = utcTimeEncoder
	atomic := zap.NewAtomicLevelAt(level.AsZap())
	config.Level = atomic
	return &impl{
		SugaredLogger: zap.Must(config.Build()).Sugar().Named(name),
		level:         atomic,
	}
}

// NewBlankLogger returns a logger that discards everything. Useful when a caller
// has no interest in diagnostics, e.g. the CLI without --debug.
func NewBlankLogger(name string) Logger {
	atomic := zap.NewAtomicLevelAt(zapcore.DebugLevel)
	return &impl{SugaredLogger: zap.NewNop().Sugar().Named(name), level: atomic}
}

// NewTestLogger returns a new logger that outputs Debug+ logs through the test object.
func NewTestLogger(tb testing.TB) Logger {
	logger, _ := NewObservedTestLogger(tb)
	return logger
}

// NewObservedTestLogger is like NewTestLogger but also saves logs to an in memory observer.
func NewObservedTestLogger(tb testing.TB) (Logger, *observer.ObservedLogs) {
	atomic := zap.NewAtomicLevelAt(zapcore.DebugLevel)
	observerCore, observedLogs := observer.New(atomic)
	base := zaptest.NewLogger(tb, zaptest.Level(atomic), zaptest.WrapOptions(
		zap.WrapCore(func(c zapcore.Core) zapcore.Core {
			return zapcore.NewTee(c, observerCore)
		}),
	))
	return &impl{SugaredLogger: base.Sugar(), level: atomic}, observedLogs
}
