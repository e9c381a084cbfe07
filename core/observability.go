package core

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"
)

// Observer emits one log line plus counter/histogram samples per pipeline
// operation. Both collaborators are optional; a zero Observer is silent.
type Observer struct {
	Logger  Logger
	Metrics MetricsRecorder
}

func (o Observer) Observe(
	ctx context.Context,
	startedAt time.Time,
	operation string,
	err error,
	fields map[string]any,
) {
	operation = normalizeOperation(operation)
	if operation == "" {
		operation = "unknown"
	}
	status := "success"
	if err != nil {
		status = "failure"
	}

	contextFields := cloneFields(fields)
	contextFields["event_type"] = operation
	contextFields["status"] = status
	contextFields["duration_ms"] = time.Since(startedAt).Milliseconds()
	if err != nil {
		contextFields["error"] = err.Error()
	}

	tags := map[string]string{
		"operation": operation,
		"status":    status,
	}
	for _, key := range []string{"provider_id", "channel_id", "direction", "kind"} {
		if value := strings.TrimSpace(fmt.Sprint(contextFields[key])); value != "" && value != "<nil>" {
			tags[key] = value
		}
	}

	if o.Metrics != nil {
		o.Metrics.IncCounter(ctx, "ingest."+operation+".total", 1, cloneTags(tags))
		o.Metrics.ObserveHistogram(
			ctx,
			"ingest."+operation+".duration_ms",
			float64(time.Since(startedAt).Milliseconds()),
			cloneTags(tags),
		)
	}

	if err != nil {
		o.LogError(ctx, operation+" failed", contextFields)
		return
	}
	o.LogInfo(ctx, operation+" succeeded", contextFields)
}

func (o Observer) LogInfo(ctx context.Context, message string, fields map[string]any) {
	o.logWithLevel(ctx, "info", message, fields)
}

func (o Observer) LogError(ctx context.Context, message string, fields map[string]any) {
	o.logWithLevel(ctx, "error", message, fields)
}

func (o Observer) logWithLevel(ctx context.Context, level string, message string, fields map[string]any) {
	if o.Logger == nil {
		return
	}
	logger := o.Logger
	if ctx != nil {
		logger = logger.WithContext(ctx)
	}
	if fieldsLogger, ok := logger.(FieldsLogger); ok {
		logger = fieldsLogger.WithFields(cloneFields(fields))
	}
	args := flattenFields(fields)
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "error":
		logger.Error(message, args...)
	default:
		logger.Info(message, args...)
	}
}

func normalizeOperation(operation string) string {
	return strings.TrimSpace(strings.ToLower(operation))
}

func cloneFields(fields map[string]any) map[string]any {
	copied := make(map[string]any, len(fields))
	for key, value := range fields {
		copied[key] = value
	}
	return copied
}

func flattenFields(fields map[string]any) []any {
	if len(fields) == 0 {
		return nil
	}
	keys := make([]string, 0, len(fields))
	for key := range fields {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	args := make([]any, 0, len(fields)*2)
	for _, key := range keys {
		args = append(args, key, fields[key])
	}
	return args
}
