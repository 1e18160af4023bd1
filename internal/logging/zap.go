package logging

import (
	"go.uber.org/zap"

	"github.com/driftlock/sluice/types"
)

// ZapLogger implements types.Logger on top of a zap.SugaredLogger.
//
// Each types.Logger method maps onto the sugared logger's key-value variant
// (Debugw, Infow, ...). The sugared logger itself does not implement
// types.Logger: its Debug/Info/... methods take only variadic arguments.
type ZapLogger struct {
	sugar *zap.SugaredLogger
}

var _ types.Logger = (*ZapLogger)(nil)

// NewZap creates a logger backed by the given zap logger.
//
// Parameters:
//   - logger: Configured *zap.Logger (e.g. zap.NewProduction())
//
// Returns:
//   - *ZapLogger: Adapter implementing types.Logger
func NewZap(logger *zap.Logger) *ZapLogger {
	return &ZapLogger{sugar: logger.Sugar()}
}

// Debug logs a debug-level message with optional key-value pairs.
func (l *ZapLogger) Debug(msg string, keysAndValues ...any) {
	l.sugar.Debugw(msg, keysAndValues...)
}

// Info logs an info-level message with optional key-value pairs.
func (l *ZapLogger) Info(msg string, keysAndValues ...any) {
	l.sugar.Infow(msg, keysAndValues...)
}

// Warn logs a warning-level message with optional key-value pairs.
func (l *ZapLogger) Warn(msg string, keysAndValues ...any) {
	l.sugar.Warnw(msg, keysAndValues...)
}

// Error logs an error-level message with optional key-value pairs.
func (l *ZapLogger) Error(msg string, keysAndValues ...any) {
	l.sugar.Errorw(msg, keysAndValues...)
}

// Fatal logs a fatal-level message and exits via zap.
func (l *ZapLogger) Fatal(msg string, keysAndValues ...any) {
	l.sugar.Fatalw(msg, keysAndValues...)
}
