// Package logger wraps zap with the service defaults.
package logger

import (
	"context"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

type ctxKey struct{}

type Logger struct {
	Log *zap.Logger

	// FilePath, when set, duplicates output into a rotated file.
	FilePath string
	MaxSize  int // megabytes
	MaxAge   int // days
}

func New() *Logger {
	return &Logger{
		Log:     zap.NewNop(),
		MaxSize: 100,
		MaxAge:  7,
	}
}

func (l *Logger) Init(level string) error {
	// преобразуем текстовый уровень логирования в zap.AtomicLevel
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return err
	}

	if l.FilePath != "" {
		l.Log = l.buildTee(lvl)
		return nil
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = lvl
	zl, err := cfg.Build()
	if err != nil {
		return err
	}

	l.Log = zl
	return nil
}

// buildTee writes JSON to stdout and to a lumberjack-rotated file.
func (l *Logger) buildTee(lvl zap.AtomicLevel) *zap.Logger {
	file := zapcore.AddSync(&lumberjack.Logger{
		Filename:   l.FilePath,
		MaxSize:    l.MaxSize,
		MaxBackups: 7,
		MaxAge:     l.MaxAge,
	})
	out := zapcore.NewMultiWriteSyncer(file, zapcore.AddSync(os.Stdout))

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	core := zapcore.NewCore(zapcore.NewJSONEncoder(encoderConfig), out, lvl)

	return zap.New(core, zap.AddCaller())
}

// WithContext stores a request-scoped logger in ctx.
func WithContext(ctx context.Context, l *zap.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, l)
}

// FromContext returns the request-scoped logger or fallback.
func FromContext(ctx context.Context, fallback *zap.Logger) *zap.Logger {
	if ctx == nil {
		return fallback
	}
	l, ok := ctx.Value(ctxKey{}).(*zap.Logger)
	if !ok || l == nil {
		return fallback
	}
	return l
}
