// Package logging wires HiveMind's zap sink to the logr.Logger interface
// consumed throughout the codebase, mirroring how kagent bridges
// go.uber.org/zap to go-logr/logr via go-logr/zapr.
package logging

import (
	"context"

	"github.com/go-logr/logr"
	"github.com/go-logr/zapr"
	"go.uber.org/zap"
)

type ctxKey struct{}

// New builds the process-wide logr.Logger. devMode selects a
// human-readable console encoder instead of JSON.
func New(devMode bool) (logr.Logger, func(), error) {
	var zc zap.Config
	if devMode {
		zc = zap.NewDevelopmentConfig()
	} else {
		zc = zap.NewProductionConfig()
	}

	zl, err := zc.Build()
	if err != nil {
		return logr.Logger{}, func() {}, err
	}

	return zapr.NewLogger(zl), func() { _ = zl.Sync() }, nil
}

// Into stores the logger in ctx for downstream retrieval via From.
func Into(ctx context.Context, log logr.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, log)
}

// From returns the logger stored in ctx, or a discard logger if absent —
// every call site can unconditionally log without a nil check.
func From(ctx context.Context) logr.Logger {
	if log, ok := ctx.Value(ctxKey{}).(logr.Logger); ok {
		return log
	}
	return logr.Discard()
}
