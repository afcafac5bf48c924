// Package logger builds the zap loggers used by the server.  Production
// environments get JSON output, everything else gets the colored console
// encoder.
package logger

import (
    "os"
    "path/filepath"
    "strings"

    "go.uber.org/zap"
    "go.uber.org/zap/zapcore"
)

// New returns a logger for the given APP_ENV value.  LOG_LEVEL overrides the
// default level (info in prod, debug elsewhere).
func New(env string) (*zap.Logger, error) {
    var cfg zap.Config
    if isProd(env) {
        cfg = zap.NewProductionConfig()
    } else {
        cfg = zap.NewDevelopmentConfig()
        cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
    }
    cfg.EncoderConfig.TimeKey = "ts"
    cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
    if lvl := os.Getenv("LOG_LEVEL"); lvl != "" {
        parsed, err := zapcore.ParseLevel(lvl)
        if err == nil {
            cfg.Level = zap.NewAtomicLevelAt(parsed)
        }
    }
    return cfg.Build()
}

// NewFile returns a JSON logger that appends to path, creating the parent
// directory when needed.  The audit consumer writes one line per event
// through it.
func NewFile(path string) (*zap.Logger, error) {
    if dir := filepath.Dir(path); dir != "" && dir != "." {
        if err := os.MkdirAll(dir, 0o755); err != nil {
            return nil, err
        }
    }
    f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
    if err != nil {
        return nil, err
    }
    enc := zap.NewProductionEncoderConfig()
    enc.TimeKey = "ts"
    enc.EncodeTime = zapcore.ISO8601TimeEncoder
    core := zapcore.NewCore(zapcore.NewJSONEncoder(enc), zapcore.AddSync(f), zap.InfoLevel)
    return zap.New(core), nil
}

func isProd(env string) bool {
    switch strings.ToLower(env) {
    case "prod", "production":
        return true
    }
    return false
}
