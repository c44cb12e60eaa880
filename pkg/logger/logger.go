package logger

import (
	"os"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	mu   sync.RWMutex
	base *zap.Logger
)

// Init replaces the process logger. Development mode writes a console
// encoding, production writes JSON.
func Init(level string, development bool) error {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		lvl = zapcore.InfoLevel
	}

	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.TimeKey = "ts"
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	var encoder zapcore.Encoder
	if development {
		encoderCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
		encoder = zapcore.NewConsoleEncoder(encoderCfg)
	} else {
		encoder = zapcore.NewJSONEncoder(encoderCfg)
	}

	core := zapcore.NewCore(encoder, zapcore.AddSync(os.Stderr), lvl)
	l := zap.New(core,
		zap.AddCaller(),
		zap.AddStacktrace(zapcore.ErrorLevel),
		zap.Fields(zap.Int("pid", os.Getpid())),
	)

	mu.Lock()
	base = l
	mu.Unlock()
	return nil
}

// Base returns the process logger, creating a default one on first use.
func Base() *zap.Logger {
	mu.RLock()
	l := base
	mu.RUnlock()
	if l != nil {
		return l
	}
	_ = Init("info", true)
	mu.RLock()
	defer mu.RUnlock()
	return base
}

func MustNamed(name string) *zap.SugaredLogger {
	return Base().Named(name).Sugar()
}

func Sync() {
	_ = Base().Sync()
}
