package logger

import (
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	DebugLevel = "debug"
	InfoLevel  = "info"
	WarnLevel  = "warn"
	ErrorLevel = "error"
	FatalLevel = "fatal"
)

// Config selects the level and sink of the process-wide logger.
// An empty File logs to stdout with the console encoder.
type Config struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

var (
	defaultLogger *zap.Logger
	level         = zap.NewAtomicLevelAt(zapcore.InfoLevel)
)

func init() {
	// Replaced from the loaded config once the CLI starts.
	if err := Init(Config{Level: InfoLevel}); err != nil {
		panic(err)
	}
}

// ParseLevel maps a level name onto a zap level. Unknown names fall back to info.
func ParseLevel(name string) zapcore.Level {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case DebugLevel:
		return zapcore.DebugLevel
	case WarnLevel:
		return zapcore.WarnLevel
	case ErrorLevel:
		return zapcore.ErrorLevel
	case FatalLevel:
		return zapcore.FatalLevel
	default:
		return zapcore.InfoLevel
	}
}

// Init rebuilds the global logger from cfg.
func Init(cfg Config) error {
	level.SetLevel(ParseLevel(cfg.Level))

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	encoderConfig.EncodeCaller = zapcore.ShortCallerEncoder

	var core zapcore.Core
	if cfg.File != "" {
		file, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return fmt.Errorf("open log file %s: %w", cfg.File, err)
		}
		core = zapcore.NewCore(zapcore.NewJSONEncoder(encoderConfig), zapcore.AddSync(file), level)
	} else {
		core = zapcore.NewCore(zapcore.NewConsoleEncoder(encoderConfig), zapcore.Lock(os.Stdout), level)
	}

	defaultLogger = zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1))
	return nil
}

// SetLevel changes the level of the running logger without rebuilding it.
func SetLevel(name string) {
	level.SetLevel(ParseLevel(name))
}

// Sync flushes buffered entries.
func Sync() error {
	return defaultLogger.Sync()
}

func Debug(msg string, fields ...interface{}) {
	defaultLogger.Sugar().Debugw(msg, fields...)
}

func Info(msg string, fields ...interface{}) {
	defaultLogger.Sugar().Infow(msg, fields...)
}

func Warn(msg string, fields ...interface{}) {
	defaultLogger.Sugar().Warnw(msg, fields...)
}

func Error(msg string, fields ...interface{}) {
	defaultLogger.Sugar().Errorw(msg, fields...)
}

// Fatal logs and exits the process.
func Fatal(msg string, fields ...interface{}) {
	defaultLogger.Sugar().Fatalw(msg, fields...)
}

// With creates a child logger carrying fields, e.g. the index name.
func With(fields ...interface{}) *zap.SugaredLogger {
	return defaultLogger.WithOptions(zap.AddCallerSkip(-1)).Sugar().With(fields...)
}
