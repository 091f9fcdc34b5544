package logger

import (
	"os"
	"strings"
	"sync"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	logger *zap.Logger
	once   sync.Once
)

// GetLogger returns zap.Logger instance, but using singleton pattern creates only one reusable instace.
// Packages grab it at init time, so it reads LOG_LEVEL and LOG_FORMAT straight from the env (.env included),
// development config by default
func GetLogger() *zap.Logger {
	once.Do(func() {
		_ = godotenv.Load()
		var err error
		logger, err = build(os.Getenv("LOG_FORMAT"), os.Getenv("LOG_LEVEL"))
		if err != nil {
			panic("failed logger setup : " + err.Error())
		}
	})
	return logger
}

func build(format, level string) (*zap.Logger, error) {
	cfg := zap.NewDevelopmentConfig()
	if strings.EqualFold(format, "json") {
		cfg = zap.NewProductionConfig()
	}
	if level != "" {
		var lvl zapcore.Level
		if err := lvl.UnmarshalText([]byte(level)); err != nil {
			return nil, err
		}
		cfg.Level = zap.NewAtomicLevelAt(lvl)
	}
	return cfg.Build()
}
