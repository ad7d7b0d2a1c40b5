package util

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// serviceName tags every log line so aggregated output from the API and the
// receipt worker stays attributable.
const serviceName = "pos-service"

var logger *zap.Logger

// InitLogger initializes the global logger. Production gets JSON output;
// anything else gets the colored console encoder.
func InitLogger(env string) error {
	var config zap.Config

	if env == "production" {
		config = zap.NewProductionConfig()
	} else {
		config = zap.NewDevelopmentConfig()
		config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	built, err := config.Build()
	if err != nil {
		return err
	}

	logger = built.Named(serviceName)
	zap.ReplaceGlobals(logger)
	return nil
}

// GetLogger returns the global logger
func GetLogger() *zap.Logger {
	if logger == nil {
		dev, _ := zap.NewDevelopment()
		logger = dev.Named(serviceName)
	}
	return logger
}

// SyncLogger flushes any buffered log entries
func SyncLogger() {
	if logger != nil {
		_ = logger.Sync()
	}
}
