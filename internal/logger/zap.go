package logger

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger wraps zap's SugaredLogger.
type Logger struct {
	*zap.SugaredLogger
}

const appName = "bms-bridge"

// toZapLevel maps a config level; anything zap cannot parse is info.
func toZapLevel(levelStr string) zapcore.Level {
	lvl, err := zapcore.ParseLevel(levelStr)
	if err != nil || lvl > zapcore.ErrorLevel {
		return zapcore.InfoLevel
	}
	return lvl
}

func newConsoleCore(level zapcore.Level) zapcore.Core {
	cfg := zap.NewProductionEncoderConfig()
	cfg.EncodeTime = zapcore.RFC3339TimeEncoder
	cfg.EncodeLevel = zapcore.CapitalLevelEncoder
	cfg.EncodeDuration = zapcore.StringDurationEncoder

	return zapcore.NewCore(
		zapcore.NewConsoleEncoder(cfg),
		zapcore.Lock(os.Stdout),
		zap.NewAtomicLevelAt(level),
	)
}

func newZapLogger(levelStr string) *Logger {
	z := zap.New(newConsoleCore(toZapLevel(levelStr)),
		zap.AddCaller(),
		zap.AddStacktrace(zapcore.ErrorLevel),
		zap.Fields(zap.String("app", appName)),
	)
	return &Logger{SugaredLogger: z.Sugar()}
}
