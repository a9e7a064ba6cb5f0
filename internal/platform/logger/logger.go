// Package logger is the structured logger shared by every component. Its
// method set also satisfies the Temporal SDK log.Logger interface.
package logger

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const redacted = "[REDACTED]"

// Keys containing any of these fragments have their values masked.
var sensitiveKeyParts = []string{"password", "secret", "token", "credentials", "authorization"}

type Logger struct {
	s *zap.SugaredLogger
}

// New builds a logger for mode: "production" (or "prod") gives JSON at info
// level, anything else a colored console logger at debug level.
func New(mode string) (*Logger, error) {
	cfg := zap.NewDevelopmentConfig()
	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	if m := strings.ToLower(strings.TrimSpace(mode)); m == "prod" || m == "production" {
		cfg = zap.NewProductionConfig()
	}
	z, err := cfg.Build(zap.AddCallerSkip(1))
	if err != nil {
		return nil, fmt.Errorf("logger: build %q: %w", mode, err)
	}
	return &Logger{s: z.Sugar()}, nil
}

// NewNop discards everything.
func NewNop() *Logger { return &Logger{s: zap.NewNop().Sugar()} }

func (l *Logger) Sync() { _ = l.s.Sync() }

func (l *Logger) Debug(msg string, keyvals ...interface{}) { l.s.Debugw(msg, sanitizeKVs(keyvals)...) }
func (l *Logger) Info(msg string, keyvals ...interface{})  { l.s.Infow(msg, sanitizeKVs(keyvals)...) }
func (l *Logger) Warn(msg string, keyvals ...interface{})  { l.s.Warnw(msg, sanitizeKVs(keyvals)...) }
func (l *Logger) Error(msg string, keyvals ...interface{}) { l.s.Errorw(msg, sanitizeKVs(keyvals)...) }

func (l *Logger) With(keyvals ...interface{}) *Logger {
	return &Logger{s: l.s.With(sanitizeKVs(keyvals)...)}
}

// sanitizeKVs copies keyvals, replacing the value of any credential-like key.
// A trailing key without a value is passed through.
func sanitizeKVs(keyvals []interface{}) []interface{} {
	if len(keyvals) == 0 {
		return keyvals
	}
	out := make([]interface{}, len(keyvals))
	copy(out, keyvals)
	for i := 0; i+1 < len(out); i += 2 {
		if sensitive(fmt.Sprint(out[i])) {
			out[i+1] = redacted
		}
	}
	return out
}

func sensitive(key string) bool {
	key = strings.ToLower(key)
	for _, part := range sensitiveKeyParts {
		if strings.Contains(key, part) {
			return true
		}
	}
	return false
}
