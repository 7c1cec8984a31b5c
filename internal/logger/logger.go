package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"typologylab/internal/config"
)

func New(cfg config.Config) (*zap.Logger, error) {
	var zcfg zap.Config
	if cfg.Log.Env == "production" {
		zcfg = zap.NewProductionConfig()
	} else {
		zcfg = zap.NewDevelopmentConfig()
	}
	if cfg.Log.Level != "" {
		level, err := zapcore.ParseLevel(cfg.Log.Level)
		if err != nil {
			return nil, err
		}
		zcfg.Level = zap.NewAtomicLevelAt(level)
	}
	return zcfg.Build()
}
