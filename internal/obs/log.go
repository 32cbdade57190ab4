package obs

import (
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LogConfig selects the logger flavor.
type LogConfig struct {
	Service string
	Env     string // dev uses the console encoder
	Level   string // debug, info, warn, error
}

// NewLogger builds the process logger. It never fails: a broken config falls
// back to zap's production defaults.
func NewLogger(cfg LogConfig) *zap.Logger {
	zc := zap.NewProductionConfig()
	if strings.EqualFold(cfg.Env, "dev") {
		zc.Encoding = "console"
		zc.Development = true
	}
	zc.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	zc.EncoderConfig.EncodeDuration = zapcore.StringDurationEncoder
	zc.Level = zap.NewAtomicLevelAt(parseLevel(cfg.Level))

	logger, err := zc.Build()
	if err != nil {
		logger = zap.Must(zap.NewProduction())
	}
	if cfg.Service != "" {
		logger = logger.With(zap.String("service", cfg.Service))
	}
	return logger
}

func parseLevel(lvl string) zapcore.Level {
	switch strings.ToLower(strings.TrimSpace(lvl)) {
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
