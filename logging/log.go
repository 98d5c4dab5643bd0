// Package logging provides the engine-wide structured diagnostic sink used
// for evaluation-time errors, storage errors, and transaction diagnostics
// (spec.md §4.2/§7).
package logging

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is the package-level logger. Replace it with SetLogger to route
// diagnostics into a host application's own logging pipeline.
var Logger *zap.Logger

func init() {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	config.EncoderConfig.CallerKey = "caller"
	config.EncoderConfig.EncodeCaller = zapcore.ShortCallerEncoder

	var err error
	Logger, err = config.Build(zap.AddCallerSkip(1))
	if err != nil {
		Logger = zap.NewNop()
	}
}

// Debug logs a debug-level diagnostic.
func Debug(msg string, fields ...zap.Field) { Logger.Debug(msg, fields...) }

// Info logs an info-level diagnostic.
func Info(msg string, fields ...zap.Field) { Logger.Info(msg, fields...) }

// Warn logs a warn-level diagnostic.
func Warn(msg string, fields ...zap.Field) { Logger.Warn(msg, fields...) }

// Error logs an error-level diagnostic.
func Error(msg string, fields ...zap.Field) { Logger.Error(msg, fields...) }

// With returns a child logger carrying fields.
func With(fields ...zap.Field) *zap.Logger { return Logger.With(fields...) }

// SetLogger replaces the package-level logger.
func SetLogger(logger *zap.Logger) { Logger = logger }
