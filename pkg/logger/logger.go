package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Log глобальный логгер; до Initialize ничего не пишет
var Log = zap.NewNop()

// Initialize ставит production JSON-логгер с заданным уровнем
func Initialize(level string) error {
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return err
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = lvl
	cfg.EncoderConfig.TimeKey = "timestamp"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	l, err := cfg.Build()
	if err != nil {
		return err
	}
	Log = l
	return nil
}

var (
	String   = zap.String
	Int      = zap.Int
	Int64    = zap.Int64
	Bool     = zap.Bool
	Duration = zap.Duration
	Error    = zap.Error
	Any      = zap.Any
	Strings  = zap.Strings
)

// Stringer для uuid и статусов
func Stringer(key string, v interface{ String() string }) zap.Field {
	return zap.Stringer(key, v)
}
