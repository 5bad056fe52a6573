package logging

import (
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds a JSON logger for prod-like environments and a colored console
// logger otherwise.
func New(env, level string) (*zap.Logger, error) {
	var cfg zap.Config
	if isProdLike(env) {
		cfg = zap.NewProductionConfig()
	} else {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	lvl := zap.NewAtomicLevelAt(zap.InfoLevel)
	if level != "" {
		if err := lvl.UnmarshalText([]byte(strings.ToLower(level))); err != nil {
			return nil, err
		}
	}
	cfg.Level = lvl
	return cfg.Build()
}

// Loggerf adapts a zap logger to the printf-style hook services take.
func Loggerf(l *zap.Logger) func(format string, args ...interface{}) {
	sugar := l.Sugar()
	return func(format string, args ...interface{}) {
		sugar.Infof(format, args...)
	}
}

func isProdLike(env string) bool {
	env = strings.ToLower(strings.TrimSpace(env))
	return env == "prod" || env == "production" || env == "release"
}
