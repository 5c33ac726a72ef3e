package observability

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const serviceName = "message-scheduler"

// Log field names shared by every component.
const (
	FieldRequestID = "requestId"
	FieldQueueID   = "queueId"
)

type logFieldsKey struct{}

// logFields are the identifiers a context carries into log lines: the UI call
// that triggered the work and the queue it touched.
type logFields struct {
	requestID string
	queueID   string
}

func NewLogger(level string) (*zap.Logger, error) {
	parsedLevel, err := parseLevel(level)
	if err != nil {
		return nil, err
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(parsedLevel)
	cfg.Sampling = nil
	cfg.EncoderConfig.TimeKey = "timestamp"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.EncoderConfig.EncodeDuration = zapcore.StringDurationEncoder
	cfg.DisableStacktrace = true
	cfg.InitialFields = map[string]any{"service": serviceName}

	logger, err := cfg.Build(zap.AddCaller())
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}

	return logger, nil
}

func parseLevel(level string) (zapcore.Level, error) {
	normalized := strings.ToLower(strings.TrimSpace(level))
	if normalized == "" {
		return zapcore.InfoLevel, nil
	}

	parsed, err := zapcore.ParseLevel(normalized)
	if err != nil {
		return 0, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	return parsed, nil
}

func fieldsFromContext(ctx context.Context) logFields {
	if ctx == nil {
		return logFields{}
	}
	fields, _ := ctx.Value(logFieldsKey{}).(logFields)
	return fields
}

func withFields(ctx context.Context, update func(*logFields)) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	fields := fieldsFromContext(ctx)
	update(&fields)
	return context.WithValue(ctx, logFieldsKey{}, fields)
}

// WithRequestID tags ctx with the id of the UI call that triggered the work.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return withFields(ctx, func(f *logFields) { f.requestID = requestID })
}

// WithQueueID tags ctx with the queue the work belongs to. An empty id clears
// the tag.
func WithQueueID(ctx context.Context, queueID string) context.Context {
	return withFields(ctx, func(f *logFields) { f.queueID = queueID })
}

func RequestIDFromContext(ctx context.Context) (string, bool) {
	id := fieldsFromContext(ctx).requestID
	return id, id != ""
}

func QueueIDFromContext(ctx context.Context) (string, bool) {
	id := fieldsFromContext(ctx).queueID
	return id, id != ""
}

// WithContextLogger returns logger annotated with the identifiers carried by
// ctx. It returns logger itself when ctx carries none.
func WithContextLogger(logger *zap.Logger, ctx context.Context) *zap.Logger {
	if logger == nil {
		return nil
	}

	fields := fieldsFromContext(ctx)
	zapFields := make([]zap.Field, 0, 2)
	if fields.requestID != "" {
		zapFields = append(zapFields, zap.String(FieldRequestID, fields.requestID))
	}
	if fields.queueID != "" {
		zapFields = append(zapFields, zap.String(FieldQueueID, fields.queueID))
	}
	if len(zapFields) == 0 {
		return logger
	}
	return logger.With(zapFields...)
}
