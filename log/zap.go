package log

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"storyreel/internal/appdirs"
)

var (
	Logger *zap.Logger
	mu     sync.RWMutex
)

const (
	logFileName = "storyreel.log"
	// LevelEnv sets the console level; the log file always records debug.
	LevelEnv = "STORYREEL_LOG_LEVEL"
)

var (
	appDirsResolver = appdirs.Resolve
	getenv          = os.Getenv
)

// InitLogger logs JSON to the log file and human readable lines to stdout.
// It panics when the log file cannot be opened.
func InitLogger() {
	logPath, err := ResolveLogFilePath()
	if err != nil {
		panic("cannot resolve log dir: " + err.Error())
	}
	if err = os.MkdirAll(filepath.Dir(logPath), 0o755); err != nil {
		panic("cannot create log dir: " + err.Error())
	}
	file, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o666)
	if err != nil {
		panic("cannot open log file: " + err.Error())
	}

	level, levelErr := consoleLevel(getenv(LevelEnv))
	logger := zap.New(newCore(zapcore.AddSync(file), zapcore.AddSync(os.Stdout), level), zap.AddCaller())
	if levelErr != nil {
		logger.Warn("ignoring log level", zap.Error(levelErr))
	}
	SetLogger(logger)
}

func newCore(fileSink, consoleSink zapcore.WriteSyncer, console zapcore.Level) zapcore.Core {
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return zapcore.NewTee(
		zapcore.NewCore(zapcore.NewJSONEncoder(encoderConfig), fileSink, zap.DebugLevel),
		zapcore.NewCore(zapcore.NewConsoleEncoder(encoderConfig), consoleSink, console),
	)
}

// consoleLevel defaults to info, and stays there when value does not parse.
func consoleLevel(value string) (zapcore.Level, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return zap.InfoLevel, nil
	}
	level, err := zapcore.ParseLevel(value)
	if err != nil {
		return zap.InfoLevel, fmt.Errorf("%s=%q: %w", LevelEnv, value, err)
	}
	return level, nil
}

// SetLogger replaces the process logger. Tests use it with zaptest/observer cores.
func SetLogger(l *zap.Logger) {
	mu.Lock()
	defer mu.Unlock()
	Logger = l
}

func ResolveLogDir() (string, error) {
	dirs, err := appDirsResolver()
	if err != nil {
		return "", err
	}
	if logDir := strings.TrimSpace(dirs.LogDir); logDir != "" {
		return logDir, nil
	}
	return ".", nil
}

func ResolveLogFilePath() (string, error) {
	logDir, err := ResolveLogDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(logDir, logFileName), nil
}

// GetLogger never returns nil; before InitLogger it hands out a no-op logger.
func GetLogger() *zap.Logger {
	mu.RLock()
	defer mu.RUnlock()
	if Logger == nil {
		return zap.NewNop()
	}
	return Logger
}
