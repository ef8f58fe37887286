package logger

import (
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger пишет структурированные JSON-записи с единым набором полей:
// timestamp, level, service, action, message, hostname, request_id.
type Logger struct {
	service string
	z       *zap.Logger
}

func New(service string) *Logger {
	return NewWithLevel(service, os.Getenv("LOG_LEVEL"))
}

func NewWithLevel(service, level string) *Logger {
	encCfg := zapcore.EncoderConfig{
		TimeKey:        "timestamp",
		LevelKey:       "level",
		MessageKey:     "message",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.CapitalLevelEncoder,
		EncodeTime:     zapcore.RFC3339NanoTimeEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
	}
	core := zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), zapcore.Lock(os.Stdout), parseLevel(level))
	z := zap.New(core).With(
		zap.String("service", service),
		zap.String("hostname", hostname()),
	)
	return &Logger{service: service, z: z}
}

// NewNop глушит всё; для тестов.
func NewNop() *Logger { return &Logger{service: "nop", z: zap.NewNop()} }

func (l *Logger) Service() string { return l.service }

// With returns a child logger that adds fields to every entry.
func (l *Logger) With(fields map[string]any) *Logger {
	return &Logger{service: l.service, z: l.z.With(toZap(fields)...)}
}

func (l *Logger) Info(action string, fields map[string]any) {
	l.z.Info(action, entry(action, fields, nil)...)
}

func (l *Logger) Debug(action string, fields map[string]any) {
	l.z.Debug(action, entry(action, fields, nil)...)
}

func (l *Logger) Warn(action string, fields map[string]any) {
	l.z.Warn(action, entry(action, fields, nil)...)
}

func (l *Logger) Error(action string, err error, fields map[string]any) {
	l.z.Error(action, entry(action, fields, err)...)
}

func (l *Logger) Sync() { _ = l.z.Sync() }

func entry(action string, fields map[string]any, err error) []zap.Field {
	out := make([]zap.Field, 0, len(fields)+3)
	out = append(out, zap.String("action", action))
	if _, ok := fields["request_id"]; !ok {
		out = append(out, zap.String("request_id", ""))
	}
	out = append(out, toZap(fields)...)
	if err != nil {
		out = append(out, zap.Dict("error", zap.String("msg", err.Error()), zap.String("type", errType(err))))
	}
	return out
}

func toZap(fields map[string]any) []zap.Field {
	out := make([]zap.Field, 0, len(fields))
	for k, v := range fields {
		out = append(out, zap.Any(k, v))
	}
	return out
}

func parseLevel(s string) zapcore.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return zapcore.DebugLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

func errType(err error) string { return fmt.Sprintf("%T", err) }

func hostname() string { h, _ := os.Hostname(); return h }
