// Package dlogger builds zap loggers from the plain string levels
// used in backend configuration maps.
package dlogger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	// LogLevelInfo sets the log level to info
	LogLevelInfo = "info"

	// LogLevelDebug sets the log level to debug
	LogLevelDebug = "debug"

	// LogLevelNone disables logging entirely
	LogLevelNone = "none"
)

// GetLogger returns a production zap logger at the specified level.
//
// The level may be any level name zap understands (debug, info, warn,
// error, ...) or "none" for a no-op logger. An unknown level is an
// error: a store configured with a typo should fail loudly rather
// than log at an unintended level.
func GetLogger(logLevel string) (*zap.Logger, error) {
	if logLevel == "" || logLevel == LogLevelNone {
		return zap.NewNop(), nil
	}

	var level zapcore.Level
	if err := level.UnmarshalText([]byte(logLevel)); err != nil {
		return nil, err
	}

	config := zap.NewProductionConfig()
	config.Level = zap.NewAtomicLevelAt(level)
	config.DisableStacktrace = true
	return config.Build()
}

// MustGetLogger returns a zap logger at the specified level or panics
func MustGetLogger(logLevel string) *zap.Logger {
	logger, err := GetLogger(logLevel)
	if err != nil {
		panic(err)
	}
	return logger
}
