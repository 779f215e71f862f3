// Package logging wraps zap with a key/value call style and trace-aware
// context variants. Services take a *Logger; nil receivers fall back to the
// process default so partially wired code never panics.
package logging

import (
	"context"
	"os"
	"sync/atomic"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Level = zapcore.Level

const (
	LevelDebug = zapcore.DebugLevel
	LevelInfo  = zapcore.InfoLevel
	LevelWarn  = zapcore.WarnLevel
	LevelError = zapcore.ErrorLevel
)

type Logger struct {
	core   *zap.Logger
	synced atomic.Bool
}

var processDefault atomic.Pointer[Logger]

func init() {
	processDefault.Store(NewNop())
}

// NewJSON builds a stdout JSON logger at the given level. Stacktraces are
// attached from Error upward.
func NewJSON(level Level) *Logger {
	enc := zap.NewProductionEncoderConfig()
	enc.TimeKey = "time"
	enc.MessageKey = "msg"
	enc.EncodeTime = zapcore.RFC3339NanoTimeEncoder
	enc.EncodeLevel = zapcore.CapitalLevelEncoder
	enc.EncodeDuration = zapcore.StringDurationEncoder

	z := zap.New(
		zapcore.NewCore(zapcore.NewJSONEncoder(enc), zapcore.Lock(os.Stdout), level),
		zap.AddCaller(),
		zap.AddStacktrace(LevelError),
	)
	return &Logger{core: z}
}

func NewNop() *Logger {
	return &Logger{core: zap.NewNop()}
}

func Default() *Logger {
	if l := processDefault.Load(); l != nil {
		return l
	}
	return NewNop()
}

func SetDefault(l *Logger) {
	if l == nil {
		l = NewNop()
	}
	processDefault.Store(l)
}

// Sync flushes buffered entries once; later calls are no-ops.
func (l *Logger) Sync() error {
	if l == nil || l.core == nil {
		return nil
	}
	if !l.synced.CompareAndSwap(false, true) {
		return nil
	}
	return l.core.Sync()
}

// With returns a child logger carrying the given key/value pairs.
func (l *Logger) With(args ...any) *Logger {
	if l == nil || l.core == nil {
		return NewNop()
	}
	return &Logger{core: l.core.With(toFields(args)...)}
}

func (l *Logger) Debug(msg string, args ...any) { l.emit(nil, LevelDebug, msg, args) }
func (l *Logger) Info(msg string, args ...any)  { l.emit(nil, LevelInfo, msg, args) }
func (l *Logger) Warn(msg string, args ...any)  { l.emit(nil, LevelWarn, msg, args) }
func (l *Logger) Error(msg string, args ...any) { l.emit(nil, LevelError, msg, args) }

func (l *Logger) DebugContext(ctx context.Context, msg string, args ...any) {
	l.emit(ctx, LevelDebug, msg, args)
}

func (l *Logger) InfoContext(ctx context.Context, msg string, args ...any) {
	l.emit(ctx, LevelInfo, msg, args)
}

func (l *Logger) WarnContext(ctx context.Context, msg string, args ...any) {
	l.emit(ctx, LevelWarn, msg, args)
}

func (l *Logger) ErrorContext(ctx context.Context, msg string, args ...any) {
	l.emit(ctx, LevelError, msg, args)
}

func (l *Logger) emit(ctx context.Context, level Level, msg string, args []any) {
	if l == nil {
		l = Default()
	}
	ce := l.core.Check(level, msg)
	if ce == nil {
		return
	}
	fields := toFields(args)
	if tid, sid, ok := spanIDs(ctx); ok {
		fields = append(fields, zap.String("trace_id", tid), zap.String("span_id", sid))
	}
	ce.Write(fields...)
}

func spanIDs(ctx context.Context) (traceID, spanID string, ok bool) {
	if ctx == nil {
		return "", "", false
	}
	sc := trace.SpanContextFromContext(ctx)
	if !sc.IsValid() {
		return "", "", false
	}
	return sc.TraceID().String(), sc.SpanID().String(), true
}

// toFields converts alternating key/value args into zap fields. Non-string
// or missing keys degrade to "arg" rather than dropping the value.
func toFields(args []any) []zap.Field {
	if len(args) == 0 {
		return nil
	}
	fields := make([]zap.Field, 0, (len(args)+1)/2)
	for i := 0; i < len(args); i += 2 {
		key, _ := args[i].(string)
		if key == "" {
			key = "arg"
		}
		if i+1 >= len(args) {
			fields = append(fields, zap.Any(key, nil))
			break
		}
		switch v := args[i+1].(type) {
		case error:
			fields = append(fields, zap.NamedError(key, v))
		default:
			fields = append(fields, zap.Any(key, v))
		}
	}
	return fields
}
