package observability

import (
	"context"
	"errors"
	"fmt"
	"strings"

	appctx "audition-backend/internal/context"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LoggingConfig holds logger configuration
type LoggingConfig struct {
	Level       string
	Format      string
	Development bool
}

// NewLogger creates a zap logger whose level can be changed at runtime through
// the returned AtomicLevel.
func NewLogger(cfg LoggingConfig) (*zap.Logger, zap.AtomicLevel, error) {
	level := zap.NewAtomicLevelAt(ParseLevel(cfg.Level))

	var zcfg zap.Config
	if cfg.Development {
		zcfg = zap.NewDevelopmentConfig()
	} else {
		zcfg = zap.NewProductionConfig()
	}
	zcfg.Level = level

	switch strings.ToLower(cfg.Format) {
	case "json":
		zcfg.Encoding = "json"
	case "console", "text":
		zcfg.Encoding = "console"
	}

	logger, err := zcfg.Build()
	if err != nil {
		return nil, level, fmt.Errorf("failed to build logger: %w", err)
	}
	return logger, level, nil
}

// ParseLevel parses a level name, falling back to info.
func ParseLevel(level string) zapcore.Level {
	var l zapcore.Level
	if err := l.UnmarshalText([]byte(strings.ToLower(strings.TrimSpace(level)))); err != nil {
		return zapcore.InfoLevel
	}
	return l
}

// LoggerWithContext returns base stamped with the correlation ids of the
// request carried by ctx. Outside of a request, or once the correlation has
// been cleared, base is returned unchanged.
func LoggerWithContext(ctx context.Context, base *zap.Logger) *zap.Logger {
	corr := appctx.CorrelationFromContext(ctx)
	if corr == nil {
		return base
	}
	traceID, spanID := corr.Get()
	if traceID == "" {
		return base
	}
	return base.With(
		zap.String(appctx.TraceIDKey, traceID),
		zap.String(appctx.SpanIDKey, spanID),
	)
}

// ErrorChain returns the message of err and of every error it wraps,
// outermost first.
func ErrorChain(err error) []string {
	var chain []string
	var walk func(error)
	walk = func(e error) {
		for e != nil {
			chain = append(chain, e.Error())
			if multi, ok := e.(interface{ Unwrap() []error }); ok {
				for _, inner := range multi.Unwrap() {
					walk(inner)
				}
				return
			}
			e = errors.Unwrap(e)
		}
	}
	walk(err)
	return chain
}
