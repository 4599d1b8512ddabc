package logger

import "go.uber.org/zap"

// L is the process-wide logger. It is a no-op until Init is called so that
// packages may log during tests without any setup.
var L *zap.Logger = zap.NewNop()

func Init(level, env string) error {
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return err
	}

	var cfg zap.Config
	if env == "development" {
		cfg = zap.NewDevelopmentConfig()
	} else {
		cfg = zap.NewProductionConfig()
	}
	cfg.Level = lvl

	l, err := cfg.Build()
	if err != nil {
		return err
	}
	L = l
	return nil
}
