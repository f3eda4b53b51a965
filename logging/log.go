package logging

import (
	"context"
	"os"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

type LoggerKey struct{}

var (
	fallbackOnce sync.Once
	fallback     *zap.Logger
)

func NewContext(ctx context.Context, logger *zap.Logger) context.Context {
	return context.WithValue(ctx, LoggerKey{}, logger)
}

// FromContext returns the logger stored in ctx or a shared console logger.
func FromContext(ctx context.Context) *zap.Logger {
	if logger, ok := ctx.Value(LoggerKey{}).(*zap.Logger); ok {
		return logger
	}
	fallbackOnce.Do(func() {
		fallback = New(zap.DebugLevel, "", false)
	})
	return fallback
}

type options struct {
	maxSizeMB  int
	maxBackups int
}

type OptionFunc func(*options)

// WithRotation limits the size (in MB) of a log file and the number of
// rotated files kept. Zero backups keeps all of them.
func WithRotation(maxSizeMB, maxBackups int) OptionFunc {
	return func(o *options) {
		if maxSizeMB > 0 {
			o.maxSizeMB = maxSizeMB
		}
		o.maxBackups = maxBackups
	}
}

// New creates a logger writing to stdout and, when logFileName is set,
// to a rotated file which always records debug entries.
func New(level zapcore.LevelEnabler, logFileName string, json bool, opts ...OptionFunc) *zap.Logger {
	o := options{maxSizeMB: 500}
	for _, opt := range opts {
		opt(&o)
	}

	var encoder zapcore.Encoder
	if json {
		encoder = zapcore.NewJSONEncoder(zap.NewDevelopmentEncoderConfig())
	} else {
		encoder = zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig())
	}

	cores := []zapcore.Core{zapcore.NewCore(encoder, zapcore.Lock(os.Stdout), level)}
	if logFileName != "" {
		fileLogger := &lumberjack.Logger{
			Filename:   logFileName,
			MaxSize:    o.maxSizeMB,
			MaxBackups: o.maxBackups,
			MaxAge:     28,
			Compress:   true,
		}
		cores = append(cores, zapcore.NewCore(encoder, zapcore.AddSync(fileLogger), zap.DebugLevel))
	}

	return zap.New(zapcore.NewTee(cores...))
}
