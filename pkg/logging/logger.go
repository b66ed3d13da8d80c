// Package logging provides the structured logger used across the service.
// The chained WithContext/WithError/WithFields style matches the rest of the
// platform; the implementation is backed by zap.
package logging

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/Ramsey-B/sorrel/pkg/appcontext"
	"github.com/Ramsey-B/sorrel/pkg/tracing"
)

type Logger interface {
	WithContext(ctx context.Context) Logger
	WithError(err error) Logger
	WithField(key string, value any) Logger
	WithFields(fields map[string]any) Logger
	Debug(msg string)
	Debugf(format string, args ...any)
	Info(msg string)
	Infof(format string, args ...any)
	Warn(msg string)
	Warnf(format string, args ...any)
	Error(msg string)
	Errorf(format string, args ...any)
	Fatal(msg string)
	Fatalf(format string, args ...any)
}

type zapLogger struct {
	base *zap.Logger
}

// New builds a Logger at the given level. Pretty output uses the zap
// development encoder; otherwise logs are JSON.
func New(level string, pretty bool) (Logger, error) {
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}

	cfg := zap.NewProductionConfig()
	if pretty {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.Level = lvl

	base, err := cfg.Build(zap.AddCallerSkip(1))
	if err != nil {
		return nil, err
	}
	return &zapLogger{base: base}, nil
}

// NewNop returns a Logger that discards everything. Used in tests.
func NewNop() Logger {
	return &zapLogger{base: zap.NewNop()}
}

func (l *zapLogger) WithContext(ctx context.Context) Logger {
	if ctx == nil {
		return l
	}
	fields := make([]zap.Field, 0, 5)
	if requestID := appcontext.GetRequestID(ctx); requestID != "" {
		fields = append(fields, zap.String("request_id", requestID))
	}
	if runID := appcontext.GetRunID(ctx); runID != "" {
		fields = append(fields, zap.String("run_id", runID))
	}
	if source := appcontext.GetSource(ctx); source != "" {
		fields = append(fields, zap.String("source", source))
	}
	if traceID := tracing.GetTraceID(ctx); traceID != "" {
		fields = append(fields, zap.String("trace_id", traceID))
	}
	if spanID := tracing.GetSpanID(ctx); spanID != "" {
		fields = append(fields, zap.String("span_id", spanID))
	}
	if len(fields) == 0 {
		return l
	}
	return &zapLogger{base: l.base.With(fields...)}
}

func (l *zapLogger) WithError(err error) Logger {
	if err == nil {
		return l
	}
	return &zapLogger{base: l.base.With(zap.Error(err))}
}

func (l *zapLogger) WithField(key string, value any) Logger {
	return &zapLogger{base: l.base.With(zap.Any(key, value))}
}

func (l *zapLogger) WithFields(fields map[string]any) Logger {
	zfields := make([]zap.Field, 0, len(fields))
	for k, v := range fields {
		zfields = append(zfields, zap.Any(k, v))
	}
	return &zapLogger{base: l.base.With(zfields...)}
}

func (l *zapLogger) Debug(msg string)                  { l.base.Debug(msg) }
func (l *zapLogger) Debugf(format string, args ...any) { l.base.Debug(fmt.Sprintf(format, args...)) }
func (l *zapLogger) Info(msg string)                   { l.base.Info(msg) }
func (l *zapLogger) Infof(format string, args ...any)  { l.base.Info(fmt.Sprintf(format, args...)) }
func (l *zapLogger) Warn(msg string)                   { l.base.Warn(msg) }
func (l *zapLogger) Warnf(format string, args ...any)  { l.base.Warn(fmt.Sprintf(format, args...)) }
func (l *zapLogger) Error(msg string)                  { l.base.Error(msg) }
func (l *zapLogger) Errorf(format string, args ...any) { l.base.Error(fmt.Sprintf(format, args...)) }
func (l *zapLogger) Fatal(msg string)                  { l.base.Fatal(msg) }
func (l *zapLogger) Fatalf(format string, args ...any) { l.base.Fatal(fmt.Sprintf(format, args...)) }
