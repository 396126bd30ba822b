package structured

import (
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ZapLogger implements logger.LoggerInstance with a zap SugaredLogger emitting JSON.
type ZapLogger struct {
	sugar *zap.SugaredLogger
}

// New builds a production JSON logger at the given level.
func New(level string) (*ZapLogger, error) {
	cfg := zap.NewProductionConfig()
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(strings.ToLower(level))); err != nil {
		lvl = zapcore.InfoLevel
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)

	z, err := cfg.Build(zap.AddCallerSkip(2))
	if err != nil {
		return nil, err
	}
	return &ZapLogger{sugar: z.Sugar().With("service", "eden")}, nil
}

// NewFromCore wraps an existing core, for tests that capture output.
func NewFromCore(core zapcore.Core) *ZapLogger {
	return &ZapLogger{sugar: zap.New(core).Sugar()}
}

func (l *ZapLogger) Debug(message string, keyvals ...any) {
	l.sugar.Debugw(message, keyvals...)
}

func (l *ZapLogger) Info(message string, keyvals ...any) {
	l.sugar.Infow(message, keyvals...)
}

func (l *ZapLogger) Warn(message string, keyvals ...any) {
	l.sugar.Warnw(message, keyvals...)
}

func (l *ZapLogger) Error(message string, keyvals ...any) {
	l.sugar.Errorw(message, keyvals...)
}

func (l *ZapLogger) Fatal(message string, keyvals ...any) {
	l.sugar.Fatalw(message, keyvals...)
}

func (l *ZapLogger) Sync() error {
	return l.sugar.Sync()
}
