// Package telemetry installs the tracer provider used by the services. Ended
// spans are written to the application log rather than exported.
package telemetry

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// LogProcessor logs every ended span through logrus. Failed spans log at
// error level, the rest at debug.
type LogProcessor struct {
	log logrus.FieldLogger
}

var _ sdktrace.SpanProcessor = (*LogProcessor)(nil)

// NewLogProcessor returns a span processor writing to log
func NewLogProcessor(log logrus.FieldLogger) *LogProcessor {
	return &LogProcessor{log: log}
}

func (p *LogProcessor) OnStart(context.Context, sdktrace.ReadWriteSpan) {}

func (p *LogProcessor) OnEnd(s sdktrace.ReadOnlySpan) {
	sc := s.SpanContext()
	fields := logrus.Fields{
		"span":        s.Name(),
		"trace_id":    sc.TraceID().String(),
		"span_id":     sc.SpanID().String(),
		"duration_ms": durationToMillis(s.EndTime().Sub(s.StartTime())),
	}
	if attrs := s.Attributes(); len(attrs) > 0 {
		fields["attributes"] = attributesToMap(attrs)
	}

	entry := p.log.WithFields(fields)
	status := s.Status()
	if status.Code == codes.Error {
		entry.WithField("error", status.Description).Error("span.end")
		return
	}
	entry.Debug("span.end")
}

func (p *LogProcessor) Shutdown(context.Context) error { return nil }

func (p *LogProcessor) ForceFlush(context.Context) error { return nil }

// Setup installs a global tracer provider feeding log and returns its
// shutdown function
func Setup(log logrus.FieldLogger) func(context.Context) error {
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
		sdktrace.WithSpanProcessor(NewLogProcessor(log)),
	)
	otel.SetTracerProvider(tp)
	return tp.Shutdown
}

func attributesToMap(attrs []attribute.KeyValue) map[string]any {
	out := make(map[string]any, len(attrs))
	for _, kv := range attrs {
		out[string(kv.Key)] = kv.Value.AsInterface()
	}
	return out
}

func durationToMillis(d time.Duration) float64 {
	if d <= 0 {
		return 0
	}
	return float64(d) / float64(time.Millisecond)
}
