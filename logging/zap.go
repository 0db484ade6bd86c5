// Package logging adapts go.uber.org/zap to the Logger interfaces of the library packages.
package logging

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	FormatJSON    = "json"
	FormatConsole = "console"

	correlationIDKey = "correlation_id"
)

var ErrUnknownFormat = errors.New("unknown log format")

// NewZapLogger builds a production logger with the given level ("debug", "info", ...) and format.
func NewZapLogger(level string, format string) (*zap.Logger, error) {
	parsedLevel, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, err
	}

	var config zap.Config

	switch format {
	case FormatJSON:
		config = zap.NewProductionConfig()
	case FormatConsole:
		config = zap.NewDevelopmentConfig()
		config.Development = false
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}

	config.Level = zap.NewAtomicLevelAt(parsedLevel)
	config.OutputPaths = []string{"stderr"}
	config.EncoderConfig.TimeKey = "time"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return config.Build()
}

// Adapter satisfies Logger and ContextualLogger with a sugared zap logger.
// The args are alternating keys and values, as with log/slog.
type Adapter struct {
	sugar *zap.SugaredLogger
}

func NewAdapter(logger *zap.Logger) *Adapter {
	return &Adapter{sugar: logger.Sugar()}
}

func (a *Adapter) Debug(msg string, args ...any) { a.sugar.Debugw(msg, args...) }
func (a *Adapter) Info(msg string, args ...any)  { a.sugar.Infow(msg, args...) }
func (a *Adapter) Warn(msg string, args ...any)  { a.sugar.Warnw(msg, args...) }
func (a *Adapter) Error(msg string, args ...any) { a.sugar.Errorw(msg, args...) }

func (a *Adapter) DebugContext(ctx context.Context, msg string, args ...any) {
	a.sugar.Debugw(msg, withCorrelationID(ctx, args)...)
}

func (a *Adapter) InfoContext(ctx context.Context, msg string, args ...any) {
	a.sugar.Infow(msg, withCorrelationID(ctx, args)...)
}

func (a *Adapter) WarnContext(ctx context.Context, msg string, args ...any) {
	a.sugar.Warnw(msg, withCorrelationID(ctx, args)...)
}

func (a *Adapter) ErrorContext(ctx context.Context, msg string, args ...any) {
	a.sugar.Errorw(msg, withCorrelationID(ctx, args)...)
}

// Sync flushes buffered entries.
func (a *Adapter) Sync() error {
	return a.sugar.Sync()
}

type correlationIDContextKey struct{}

// WithCorrelationID stores an ID that the ...Context methods add to every entry.
func WithCorrelationID(ctx context.Context, correlationID string) context.Context {
	return context.WithValue(ctx, correlationIDContextKey{}, correlationID)
}

// CorrelationIDFrom returns the ID stored with WithCorrelationID.
func CorrelationIDFrom(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(correlationIDContextKey{}).(string)

	return id, ok
}

func withCorrelationID(ctx context.Context, args []any) []any {
	id, ok := CorrelationIDFrom(ctx)
	if !ok {
		return args
	}

	return append([]any{correlationIDKey, id}, args...)
}
