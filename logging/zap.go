// Package logging adapts zap to the logger interface the accounts
// package depends on.
package logging

import (
	"go.uber.org/zap"
)

// ZapLogger wraps a sugared zap logger. The variadic arguments are
// alternating key/value pairs.
type ZapLogger struct {
	sugar *zap.SugaredLogger
}

// New builds a logger for the given environment: "production" selects
// the JSON encoder, everything else the development console encoder.
func New(environment string) (*ZapLogger, error) {
	var base *zap.Logger
	var err error

	if environment == "production" {
		base, err = zap.NewProduction()
	} else {
		base, err = zap.NewDevelopment()
	}
	if err != nil {
		return nil, err
	}

	return &ZapLogger{sugar: base.Sugar()}, nil
}

// FromZap wraps an existing zap logger.
func FromZap(base *zap.Logger) *ZapLogger {
	return &ZapLogger{sugar: base.Sugar()}
}

func (l *ZapLogger) Debug(msg string, args ...any) { l.sugar.Debugw(msg, args...) }
func (l *ZapLogger) Info(msg string, args ...any)  { l.sugar.Infow(msg, args...) }
func (l *ZapLogger) Warn(msg string, args ...any)  { l.sugar.Warnw(msg, args...) }
func (l *ZapLogger) Error(msg string, args ...any) { l.sugar.Errorw(msg, args...) }

// Sync flushes buffered log entries.
func (l *ZapLogger) Sync() error {
	return l.sugar.Sync()
}
