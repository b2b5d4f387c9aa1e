// Package logger provides the process-wide structured logger built on Zap.
package logger

import (
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	mu    sync.RWMutex
	sugar *zap.SugaredLogger
	once  sync.Once
)

// Init builds the global logger for env. "production" logs JSON at info
// level, "test" discards everything, anything else logs human-readable
// console output at debug level. Only the first call has an effect.
func Init(env string) {
	once.Do(func() {
		base, err := build(env)
		if err != nil {
			base = zap.NewNop()
		}
		mu.Lock()
		sugar = base.Sugar()
		mu.Unlock()
	})
}

func build(env string) (*zap.Logger, error) {
	switch env {
	case "production":
		cfg := zap.NewProductionConfig()
		cfg.EncoderConfig.TimeKey = "ts"
		cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		return cfg.Build()
	case "test":
		return zap.NewNop(), nil
	default:
		return zap.NewDevelopment()
	}
}

// Get returns the global sugared logger, initialising a development logger
// when Init has not been called.
func Get() *zap.SugaredLogger {
	mu.RLock()
	l := sugar
	mu.RUnlock()
	if l != nil {
		return l
	}
	Init("development")
	mu.RLock()
	defer mu.RUnlock()
	return sugar
}

// Sync flushes any buffered log entries. Call this before application exit.
func Sync() {
	mu.RLock()
	defer mu.RUnlock()
	if sugar != nil {
		_ = sugar.Sync()
	}
}
