// SPDX-License-Identifier: GPL-3.0-or-later

// Package log is the structured logging facade used by the dnsquery tool.
//
// Fields are passed as a map and emitted in key order, so the same
// call always produces the same line.
package log

import (
	"fmt"
	"slices"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is the logging interface used by the transport and the CLI.
type Logger interface {
	Debug(fields map[string]any, msg string)
	Info(fields map[string]any, msg string)
	Warn(fields map[string]any, msg string)
	Error(fields map[string]any, msg string)
}

var global Logger = newZapLogger(false, zapcore.InfoLevel)

// SetLogger replaces the logger used by the package-level functions.
func SetLogger(l Logger) {
	global = l
}

// GetLogger returns the logger used by the package-level functions.
func GetLogger() Logger {
	return global
}

// Configure installs a zap logger for env ("dev" selects the colored
// console encoder, anything else JSON) and level.
func Configure(env, level string) error {
	lvl, err := zapcore.ParseLevel(strings.ToLower(level))
	if err != nil {
		return fmt.Errorf("invalid log level: %w", err)
	}
	SetLogger(newZapLogger(env != "prod", lvl))
	return nil
}

func Debug(fields map[string]any, msg string) { global.Debug(fields, msg) }
func Info(fields map[string]any, msg string)  { global.Info(fields, msg) }
func Warn(fields map[string]any, msg string)  { global.Warn(fields, msg) }
func Error(fields map[string]any, msg string) { global.Error(fields, msg) }

// zapLogger adapts a [*zap.Logger] to [Logger].
type zapLogger struct {
	base *zap.Logger
}

func newZapLogger(dev bool, level zapcore.Level) Logger {
	config := zap.NewProductionConfig()
	if dev {
		config = zap.NewDevelopmentConfig()
		config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	config.Level = zap.NewAtomicLevelAt(level)
	config.EncoderConfig.TimeKey = "time"
	config.EncoderConfig.MessageKey = "msg"
	config.EncoderConfig.LevelKey = "level"

	// stdout is reserved for the query output
	config.OutputPaths = []string{"stderr"}
	config.ErrorOutputPaths = []string{"stderr"}

	base, err := config.Build()
	if err != nil {
		return NewNoopLogger()
	}
	return &zapLogger{base: base}
}

func (l *zapLogger) Debug(fields map[string]any, msg string) { l.write(zapcore.DebugLevel, fields, msg) }
func (l *zapLogger) Info(fields map[string]any, msg string)  { l.write(zapcore.InfoLevel, fields, msg) }
func (l *zapLogger) Warn(fields map[string]any, msg string)  { l.write(zapcore.WarnLevel, fields, msg) }
func (l *zapLogger) Error(fields map[string]any, msg string) { l.write(zapcore.ErrorLevel, fields, msg) }

// write skips building the fields when level is disabled.
func (l *zapLogger) write(level zapcore.Level, fields map[string]any, msg string) {
	ce := l.base.Check(level, msg)
	if ce == nil {
		return
	}
	ce.Write(zapFields(fields)...)
}

func zapFields(m map[string]any) []zap.Field {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	fields := make([]zap.Field, 0, len(keys))
	for _, k := range keys {
		fields = append(fields, zap.Any(k, m[k]))
	}
	return fields
}

type noopLogger struct{}

func (noopLogger) Debug(map[string]any, string) {}
func (noopLogger) Info(map[string]any, string)  {}
func (noopLogger) Warn(map[string]any, string)  {}
func (noopLogger) Error(map[string]any, string) {}

// NewNoopLogger returns a [Logger] that discards all messages.
func NewNoopLogger() Logger {
	return noopLogger{}
}
