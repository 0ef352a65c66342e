package logger

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/leandrodaf/improv/sdk/contracts"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ErrMissingLogFile is returned when FileLog is requested without a path.
var ErrMissingLogFile = errors.New("file destination requires a file path")

// ZapLogger implements contracts.Logger on top of Uber's zap.
type ZapLogger struct {
	mu     sync.RWMutex
	logger *zap.Logger
	level  zap.AtomicLevel
}

// NewZapLogger creates a console logger at InfoLevel.
func NewZapLogger() contracts.Logger {
	level := zap.NewAtomicLevelAt(zapcore.InfoLevel)
	l, err := buildConfig(level, "stderr").Build(zap.AddCaller(), zap.AddCallerSkip(2))
	if err != nil {
		l = zap.NewNop()
	}
	return &ZapLogger{logger: l, level: level}
}

// NewWithCore wraps an existing zap core. Used with zaptest/observer in tests.
func NewWithCore(core zapcore.Core) *ZapLogger {
	return &ZapLogger{
		logger: zap.New(core),
		level:  zap.NewAtomicLevelAt(zapcore.DebugLevel),
	}
}

// NewNopLogger returns a logger that discards everything.
func NewNopLogger() contracts.Logger {
	return NewWithCore(zapcore.NewNopCore())
}

func buildConfig(level zap.AtomicLevel, output string) zap.Config {
	cfg := zap.NewProductionConfig()
	cfg.Level = level
	cfg.Encoding = "console"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	cfg.Sampling = nil
	cfg.OutputPaths = []string{output}
	cfg.ErrorOutputPaths = []string{"stderr"}
	return cfg
}

// Info logs a message at the INFO level
func (z *ZapLogger) Info(msg string, fields ...contracts.Field) {
	z.log(zapcore.InfoLevel, msg, fields...)
}

// Error logs a message at the ERROR level
func (z *ZapLogger) Error(msg string, fields ...contracts.Field) {
	z.log(zapcore.ErrorLevel, msg, fields...)
}

// Debug logs a message at the DEBUG level
func (z *ZapLogger) Debug(msg string, fields ...contracts.Field) {
	z.log(zapcore.DebugLevel, msg, fields...)
}

// Warn logs a message at the WARN level
func (z *ZapLogger) Warn(msg string, fields ...contracts.Field) {
	z.log(zapcore.WarnLevel, msg, fields...)
}

// Fatal logs a message at the FATAL level and terminates the application
func (z *ZapLogger) Fatal(msg string, fields ...contracts.Field) {
	z.log(zapcore.FatalLevel, msg, fields...)
}

// Field returns a new field builder.
func (z *ZapLogger) Field() contracts.Field {
	return zapField{}
}

// SetLevel sets the minimum level that reaches the output.
func (z *ZapLogger) SetLevel(level contracts.LogLevel) {
	z.level.SetLevel(toZapLevel(level))
}

// SetDestination redirects output to the console or to a file.
func (z *ZapLogger) SetDestination(dest contracts.LogDestination, filePath ...string) error {
	output := "stderr"
	if dest == contracts.FileLog {
		if len(filePath) == 0 || filePath[0] == "" {
			return ErrMissingLogFile
		}
		output = filePath[0]
	}

	l, err := buildConfig(z.level, output).Build(zap.AddCaller(), zap.AddCallerSkip(2))
	if err != nil {
		return fmt.Errorf("build logger for %s: %w", output, err)
	}

	z.mu.Lock()
	old := z.logger
	z.logger = l
	z.mu.Unlock()
	_ = old.Sync()
	return nil
}

// Sync flushes buffered entries.
func (z *ZapLogger) Sync() error {
	z.mu.RLock()
	defer z.mu.RUnlock()
	return z.logger.Sync()
}

func (z *ZapLogger) log(level zapcore.Level, msg string, fields ...contracts.Field) {
	if !z.level.Enabled(level) {
		return
	}

	zf := make([]zap.Field, 0, len(fields))
	for _, f := range fields {
		if f, ok := f.(zapField); ok && f.field.Key != "" {
			zf = append(zf, f.field)
		}
	}

	z.mu.RLock()
	l := z.logger
	z.mu.RUnlock()

	if ce := l.Check(level, msg); ce != nil {
		ce.Write(zf...)
	}
}

func toZapLevel(level contracts.LogLevel) zapcore.Level {
	switch level {
	case contracts.DebugLevel:
		return zapcore.DebugLevel
	case contracts.WarnLevel:
		return zapcore.WarnLevel
	case contracts.ErrorLevel:
		return zapcore.ErrorLevel
	case contracts.FatalLevel:
		return zapcore.FatalLevel
	}
	return zapcore.InfoLevel
}

// zapField implements contracts.Field
type zapField struct {
	field zap.Field
}

func (f zapField) Bool(key string, val bool) contracts.Field {
	return zapField{zap.Bool(key, val)}
}

func (f zapField) Int(key string, val int) contracts.Field {
	return zapField{zap.Int(key, val)}
}

func (f zapField) Float64(key string, val float64) contracts.Field {
	return zapField{zap.Float64(key, val)}
}

func (f zapField) String(key string, val string) contracts.Field {
	return zapField{zap.String(key, val)}
}

func (f zapField) Strings(key string, val []string) contracts.Field {
	return zapField{zap.Strings(key, val)}
}

func (f zapField) Time(key string, val time.Time) contracts.Field {
	return zapField{zap.Time(key, val)}
}

func (f zapField) Duration(key string, val time.Duration) contracts.Field {
	return zapField{zap.Duration(key, val)}
}

func (f zapField) Int64(key string, val int64) contracts.Field {
	return zapField{zap.Int64(key, val)}
}

func (f zapField) Error(key string, val error) contracts.Field {
	return zapField{zap.NamedError(key, val)}
}

func (f zapField) Uint64(key string, val uint64) contracts.Field {
	return zapField{zap.Uint64(key, val)}
}

func (f zapField) Uint8(key string, val uint8) contracts.Field {
	return zapField{zap.Uint8(key, val)}
}
