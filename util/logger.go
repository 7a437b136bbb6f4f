package util

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	atomicLevel = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	base        = newSugar()
)

func newSugar() *zap.SugaredLogger {
	encCfg := zap.NewDevelopmentEncoderConfig()
	encCfg.EncodeLevel = zapcore.CapitalLevelEncoder
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), zapcore.Lock(os.Stderr), atomicLevel)
	return zap.New(core).Sugar()
}

func SetLevel(level LogLevel) {
	atomicLevel.SetLevel(level.zapLevel())
}

func Debug(format string, v ...interface{}) {
	base.Debugf(format, v...)
}

func Info(format string, v ...interface{}) {
	base.Infof(format, v...)
}

func Warn(format string, v ...interface{}) {
	base.Warnf(format, v...)
}

func Error(format string, v ...interface{}) {
	base.Errorf(format, v...)
}

func Fatal(format string, v ...interface{}) {
	base.Errorf(format, v...)
	_ = base.Sync()
	os.Exit(1)
}

// Logger is a leveled logger bound to a context prefix, e.g. the partition a
// completed fetch belongs to.
type Logger struct {
	sugar  *zap.SugaredLogger
	prefix string
}

// NewLogger returns a Logger writing through the package logger.
func NewLogger(prefix string) *Logger {
	return &Logger{sugar: base, prefix: prefix}
}

// NewLoggerFrom wraps an existing zap logger. A nil logger discards output.
func NewLoggerFrom(s *zap.SugaredLogger) *Logger {
	if s == nil {
		s = zap.NewNop().Sugar()
	}
	return &Logger{sugar: s}
}

// With returns a child logger carrying structured key/value fields.
func (l *Logger) With(kv ...interface{}) *Logger {
	return &Logger{sugar: l.sugar.With(kv...), prefix: l.prefix}
}

func (l *Logger) Debug(format string, v ...interface{}) {
	l.sugar.Debugf(l.prefix+format, v...)
}

func (l *Logger) Info(format string, v ...interface{}) {
	l.sugar.Infof(l.prefix+format, v...)
}

func (l *Logger) Warn(format string, v ...interface{}) {
	l.sugar.Warnf(l.prefix+format, v...)
}

func (l *Logger) Error(format string, v ...interface{}) {
	l.sugar.Errorf(l.prefix+format, v...)
}
