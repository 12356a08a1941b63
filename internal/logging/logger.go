// Package logging provides the structured logger used throughout the
// service: a zap-backed StandardLogger with a chainable With* field
// API. A log/slog-backed Logger exists as well; it is only used when
// installed through SetLogger.
package logging

import (
	"fmt"
	"log/slog"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is the chainable logging interface both the zap-backed and
// slog-backed implementations satisfy, so StandardLogger can swap one
// for the other via SetLogger (tests do this to inject an observer).
type Logger interface {
	WithService(service string) Logger
	WithComponent(component string) Logger
	WithOperation(operation string) Logger
	WithRequestID(requestID string) Logger
	WithUserID(userID string) Logger
	WithSymbol(symbol string) Logger
	WithError(err error) Logger
	WithFields(fields map[string]interface{}) Logger
	WithMetrics(metrics map[string]interface{}) Logger

	Debug(msg string)
	Info(msg string)
	Warn(msg string)
	Error(msg string)

	LogStartup(service, version string, port int)
	LogShutdown(service, reason string)
	LogAPIRequest(method, path string, statusCode int, durationMs int64, userID string)
	LogDatabaseOperation(operation, table string, durationMs int64, rowsAffected int64)
	LogCacheOperation(operation, key string, hit bool, durationMs int64)
	LogBusinessEvent(eventType string, details map[string]interface{})
}

// StandardLogger is the service-wide logger handle; it delegates to
// whichever Logger implementation is currently installed.
type StandardLogger struct {
	impl Logger
}

// NewStandardLogger builds a zap-backed StandardLogger: JSON encoding
// in production, console encoding otherwise, level driven by level.
func NewStandardLogger(level, environment string) *StandardLogger {
	return &StandardLogger{impl: newZapLogger(level, environment)}
}

// SetLogger swaps the active implementation (tests use this to inject
// an observer-backed zap core).
func (s *StandardLogger) SetLogger(l Logger) { s.impl = l }

func (s *StandardLogger) WithService(v string) Logger     { return s.impl.WithService(v) }
func (s *StandardLogger) WithComponent(v string) Logger   { return s.impl.WithComponent(v) }
func (s *StandardLogger) WithOperation(v string) Logger   { return s.impl.WithOperation(v) }
func (s *StandardLogger) WithRequestID(v string) Logger   { return s.impl.WithRequestID(v) }
func (s *StandardLogger) WithUserID(v string) Logger      { return s.impl.WithUserID(v) }
func (s *StandardLogger) WithSymbol(v string) Logger      { return s.impl.WithSymbol(v) }
func (s *StandardLogger) WithError(err error) Logger      { return s.impl.WithError(err) }
func (s *StandardLogger) WithFields(f map[string]interface{}) Logger {
	return s.impl.WithFields(f)
}
func (s *StandardLogger) WithMetrics(m map[string]interface{}) Logger {
	return s.impl.WithMetrics(m)
}

func (s *StandardLogger) Debug(msg string) { s.impl.Debug(msg) }
func (s *StandardLogger) Info(msg string)  { s.impl.Info(msg) }
func (s *StandardLogger) Warn(msg string)  { s.impl.Warn(msg) }
func (s *StandardLogger) Error(msg string) { s.impl.Error(msg) }

func (s *StandardLogger) LogStartup(service, version string, port int) {
	s.impl.LogStartup(service, version, port)
}
func (s *StandardLogger) LogShutdown(service, reason string) { s.impl.LogShutdown(service, reason) }
func (s *StandardLogger) LogAPIRequest(method, path string, statusCode int, durationMs int64, userID string) {
	s.impl.LogAPIRequest(method, path, statusCode, durationMs, userID)
}
func (s *StandardLogger) LogDatabaseOperation(operation, table string, durationMs int64, rowsAffected int64) {
	s.impl.LogDatabaseOperation(operation, table, durationMs, rowsAffected)
}
func (s *StandardLogger) LogCacheOperation(operation, key string, hit bool, durationMs int64) {
	s.impl.LogCacheOperation(operation, key, hit, durationMs)
}
func (s *StandardLogger) LogBusinessEvent(eventType string, details map[string]interface{}) {
	s.impl.LogBusinessEvent(eventType, details)
}

// Logger returns the underlying *zap.Logger when the active
// implementation is zap-backed, and nil otherwise.
func (s *StandardLogger) Logger() *zap.Logger {
	if zl, ok := s.impl.(*zapLogger); ok {
		return zl.logger
	}
	return nil
}

func getZapLevel(level string) zapcore.Level {
	switch level {
	case "debug":
		return zapcore.DebugLevel
	case "info":
		return zapcore.InfoLevel
	case "warn":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// zapLogger is the default, production Logger implementation.
type zapLogger struct {
	logger *zap.Logger
}

func newZapLogger(level, environment string) *zapLogger {
	atomicLevel := zap.NewAtomicLevelAt(getZapLevel(level))

	var encoder zapcore.Encoder
	if environment == "production" {
		cfg := zap.NewProductionEncoderConfig()
		cfg.TimeKey = "time"
		encoder = zapcore.NewJSONEncoder(cfg)
	} else {
		cfg := zap.NewDevelopmentEncoderConfig()
		encoder = zapcore.NewConsoleEncoder(cfg)
	}

	core := zapcore.NewCore(encoder, zapcore.Lock(os.Stdout), atomicLevel)
	logger := zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1))
	return &zapLogger{logger: logger}
}

func (z *zapLogger) with(fields ...zap.Field) Logger {
	return &zapLogger{logger: z.logger.With(fields...)}
}

func (z *zapLogger) WithService(v string) Logger   { return z.with(zap.String("service", v)) }
func (z *zapLogger) WithComponent(v string) Logger { return z.with(zap.String("component", v)) }
func (z *zapLogger) WithOperation(v string) Logger { return z.with(zap.String("operation", v)) }
func (z *zapLogger) WithRequestID(v string) Logger { return z.with(zap.String("request_id", v)) }
func (z *zapLogger) WithUserID(v string) Logger    { return z.with(zap.String("user_id", v)) }
func (z *zapLogger) WithSymbol(v string) Logger    { return z.with(zap.String("symbol", v)) }
func (z *zapLogger) WithError(err error) Logger    { return z.with(zap.Error(err)) }

func (z *zapLogger) WithFields(fields map[string]interface{}) Logger {
	zfields := make([]zap.Field, 0, len(fields))
	for k, v := range fields {
		zfields = append(zfields, zap.Any(k, v))
	}
	return z.with(zfields...)
}

func (z *zapLogger) WithMetrics(metrics map[string]interface{}) Logger {
	return z.with(zap.Any("metrics", metrics))
}

func (z *zapLogger) Debug(msg string) { z.logger.Debug(msg) }
func (z *zapLogger) Info(msg string)  { z.logger.Info(msg) }
func (z *zapLogger) Warn(msg string)  { z.logger.Warn(msg) }
func (z *zapLogger) Error(msg string) { z.logger.Error(msg) }

func (z *zapLogger) LogStartup(service, version string, port int) {
	z.logger.Info("service starting",
		zap.String("service", service), zap.String("version", version),
		zap.Int("port", port), zap.String("event", "startup"))
}

func (z *zapLogger) LogShutdown(service, reason string) {
	z.logger.Info("service stopping",
		zap.String("service", service), zap.String("reason", reason), zap.String("event", "shutdown"))
}

func (z *zapLogger) LogAPIRequest(method, path string, statusCode int, durationMs int64, userID string) {
	z.logger.Info("api request",
		zap.String("method", method), zap.String("path", path),
		zap.Int("status_code", statusCode), zap.Int64("duration_ms", durationMs),
		zap.String("user_id", userID))
}

func (z *zapLogger) LogDatabaseOperation(operation, table string, durationMs int64, rowsAffected int64) {
	z.logger.Info("database operation",
		zap.String("operation", operation), zap.String("table", table),
		zap.Int64("duration_ms", durationMs), zap.Int64("rows_affected", rowsAffected))
}

func (z *zapLogger) LogCacheOperation(operation, key string, hit bool, durationMs int64) {
	z.logger.Info("cache operation",
		zap.String("operation", operation), zap.String("key", key),
		zap.Bool("hit", hit), zap.Int64("duration_ms", durationMs))
}

func (z *zapLogger) LogBusinessEvent(eventType string, details map[string]interface{}) {
	fields := []zap.Field{zap.String("event", "business_event"), zap.String("type", eventType)}
	for k, v := range details {
		fields = append(fields, zap.Any(k, v))
	}
	z.logger.Info("business event", fields...)
}

// fallbackLogger is a degraded-mode Logger backed by log/slog.
// NewStandardLogger never selects it; it takes effect through SetLogger.
type fallbackLogger struct {
	logger *slog.Logger
	attrs  []slog.Attr
}

func newFallbackLogger(w *os.File) *fallbackLogger {
	return &fallbackLogger{logger: slog.New(slog.NewTextHandler(w, nil))}
}

func (f *fallbackLogger) with(attrs ...slog.Attr) Logger {
	return &fallbackLogger{logger: f.logger, attrs: append(append([]slog.Attr(nil), f.attrs...), attrs...)}
}

func (f *fallbackLogger) WithService(v string) Logger   { return f.with(slog.String("service", v)) }
func (f *fallbackLogger) WithComponent(v string) Logger { return f.with(slog.String("component", v)) }
func (f *fallbackLogger) WithOperation(v string) Logger { return f.with(slog.String("operation", v)) }
func (f *fallbackLogger) WithRequestID(v string) Logger { return f.with(slog.String("request_id", v)) }
func (f *fallbackLogger) WithUserID(v string) Logger    { return f.with(slog.String("user_id", v)) }
func (f *fallbackLogger) WithSymbol(v string) Logger    { return f.with(slog.String("symbol", v)) }
func (f *fallbackLogger) WithError(err error) Logger    { return f.with(slog.String("error", err.Error())) }

func (f *fallbackLogger) WithFields(fields map[string]interface{}) Logger {
	attrs := make([]slog.Attr, 0, len(fields))
	for k, v := range fields {
		attrs = append(attrs, slog.Any(k, v))
	}
	return f.with(attrs...)
}

func (f *fallbackLogger) WithMetrics(metrics map[string]interface{}) Logger {
	return f.with(slog.Any("metrics", metrics))
}

func (f *fallbackLogger) log(level slog.Level, msg string) {
	args := make([]any, 0, len(f.attrs)*2)
	for _, a := range f.attrs {
		args = append(args, a)
	}
	f.logger.Log(nil, level, msg, args...)
}

func (f *fallbackLogger) Debug(msg string) { f.log(slog.LevelDebug, msg) }
func (f *fallbackLogger) Info(msg string)  { f.log(slog.LevelInfo, msg) }
func (f *fallbackLogger) Warn(msg string)  { f.log(slog.LevelWarn, msg) }
func (f *fallbackLogger) Error(msg string) { f.log(slog.LevelError, msg) }

func (f *fallbackLogger) LogStartup(service, version string, port int) {
	f.log(slog.LevelInfo, fmt.Sprintf("service starting service=%s version=%s port=%d", service, version, port))
}

func (f *fallbackLogger) LogShutdown(service, reason string) {
	f.log(slog.LevelInfo, fmt.Sprintf("service stopping service=%s reason=%s", service, reason))
}

func (f *fallbackLogger) LogAPIRequest(method, path string, statusCode int, durationMs int64, userID string) {
	f.log(slog.LevelInfo, fmt.Sprintf("api request method=%s path=%s status=%d duration_ms=%d user_id=%s",
		method, path, statusCode, durationMs, userID))
}

func (f *fallbackLogger) LogDatabaseOperation(operation, table string, durationMs int64, rowsAffected int64) {
	f.log(slog.LevelInfo, fmt.Sprintf("database operation operation=%s table=%s duration_ms=%d rows_affected=%d",
		operation, table, durationMs, rowsAffected))
}

func (f *fallbackLogger) LogCacheOperation(operation, key string, hit bool, durationMs int64) {
	f.log(slog.LevelInfo, fmt.Sprintf("cache operation operation=%s key=%s hit=%t duration_ms=%d",
		operation, key, hit, durationMs))
}

func (f *fallbackLogger) LogBusinessEvent(eventType string, details map[string]interface{}) {
	msg := fmt.Sprintf("Business event event=business_event type=%s", eventType)
	for k, v := range details {
		msg += fmt.Sprintf(" %s=%v", k, v)
	}
	f.log(slog.LevelInfo, msg)
}
