package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	otellog "go.opentelemetry.io/otel/log"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

type recordingLogger struct {
	otellog.Logger
	records []otellog.Record
}

func (l *recordingLogger) Emit(_ context.Context, record otellog.Record) {
	l.records = append(l.records, record)
}

func TestOtelHook_ForwardsRecords(t *testing.T) {
	recorder := &recordingLogger{}
	var buf bytes.Buffer
	logger := zerolog.New(&buf).Hook(otelHook{logger: recorder})

	logger.Warn().Str("field", "region").Msg("facet field not found")
	logger.Log().Msg("no level")

	require.Len(t, recorder.records, 1)
	assert.Equal(t, "facet field not found", recorder.records[0].Body().AsString())
	assert.Equal(t, otellog.SeverityWarn, recorder.records[0].Severity())
	assert.Equal(t, "warn", recorder.records[0].SeverityText())
}

func TestOtelSeverity(t *testing.T) {
	assert.Equal(t, otellog.SeverityDebug, otelSeverity(zerolog.DebugLevel))
	assert.Equal(t, otellog.SeverityInfo, otelSeverity(zerolog.InfoLevel))
	assert.Equal(t, otellog.SeverityError, otelSeverity(zerolog.ErrorLevel))
	assert.Equal(t, otellog.SeverityFatal, otelSeverity(zerolog.PanicLevel))
}

func TestLoggerFromContext_AddsTraceIDs(t *testing.T) {
	var buf bytes.Buffer
	previous := log.Logger
	log.Logger = zerolog.New(&buf)
	t.Cleanup(func() { log.Logger = previous })

	tp := sdktrace.NewTracerProvider()
	ctx, span := tp.Tracer("test").Start(context.Background(), "search")
	defer span.End()

	LoggerFromContext(ctx).Info().Msg("searching")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, span.SpanContext().TraceID().String(), entry["trace_id"])
	assert.Equal(t, span.SpanContext().SpanID().String(), entry["span_id"])
}

func TestLoggerFromContext_WithoutSpan(t *testing.T) {
	var buf bytes.Buffer
	previous := log.Logger
	log.Logger = zerolog.New(&buf)
	t.Cleanup(func() { log.Logger = previous })

	LoggerFromContext(context.Background()).Info().Msg("searching")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.NotContains(t, entry, "trace_id")
}

func TestRecordMetrics_NilSafe(t *testing.T) {
	ctx := context.Background()
	assert.NotPanics(t, func() {
		RecordRequestMetric(ctx, nil, "GET", "/api/search", 200, 0)
		RecordSearchMetric(ctx, nil, "solr", 3, 0, nil)
		RecordCacheHit(ctx, nil, "/api/search")
		RecordCacheMiss(ctx, nil, "/api/search")
	})
}
