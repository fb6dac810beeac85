// Package metrics define los instrumentos OpenTelemetry del proxy y el exporter Prometheus
// que los publica en /metrics.
package metrics

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

const meterName = "convo-proxy"

var latencyBuckets = []float64{
	0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60,
}

// Metrics agrupa los instrumentos. Un *Metrics nil es valido y no registra nada.
type Metrics struct {
	LLMDuration         metric.Float64Histogram
	STTDuration         metric.Float64Histogram
	ProviderRequests    metric.Int64Counter
	ProviderErrors      metric.Int64Counter
	SessionsCreated     metric.Int64Counter
	HTTPRequestDuration metric.Float64Histogram
}

func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.LLMDuration, err = m.Float64Histogram("convo.llm.duration",
		metric.WithDescription("Latency of LLM provider calls."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.STTDuration, err = m.Float64Histogram("convo.stt.duration",
		metric.WithDescription("Latency of speech-to-text transcription."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.ProviderRequests, err = m.Int64Counter("convo.provider.requests",
		metric.WithDescription("Upstream provider calls by provider, kind and status."),
	); err != nil {
		return nil, err
	}
	if met.ProviderErrors, err = m.Int64Counter("convo.provider.errors",
		metric.WithDescription("Upstream provider failures by provider and kind."),
	); err != nil {
		return nil, err
	}
	if met.SessionsCreated, err = m.Int64Counter("convo.sessions.created",
		metric.WithDescription("Conversation sessions created."),
	); err != nil {
		return nil, err
	}
	if met.HTTPRequestDuration, err = m.Float64Histogram("convo.http.request.duration",
		metric.WithDescription("HTTP request latency by method, route and status."),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}
	return met, nil
}

// Noop devuelve instrumentos que descartan todo, para cuando METRICS_ENABLED=false.
func Noop() *Metrics {
	m, _ := NewMetrics(noop.NewMeterProvider())
	return m
}

// RecordProviderCall registra latencia, resultado y error de una llamada upstream.
// kind es "llm" o "stt".
func (m *Metrics) RecordProviderCall(ctx context.Context, provider, kind string, elapsed time.Duration, err error) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.ProviderRequests.Add(ctx, 1, metric.WithAttributes(
		attribute.String("provider", provider),
		attribute.String("kind", kind),
		attribute.String("status", status),
	))
	if err != nil {
		m.ProviderErrors.Add(ctx, 1, metric.WithAttributes(
			attribute.String("provider", provider),
			attribute.String("kind", kind),
		))
	}

	hist := m.LLMDuration
	if kind == "stt" {
		hist = m.STTDuration
	}
	hist.Record(ctx, elapsed.Seconds(), metric.WithAttributes(attribute.String("provider", provider)))
}

func (m *Metrics) RecordSessionCreated(ctx context.Context) {
	if m == nil {
		return
	}
	m.SessionsCreated.Add(ctx, 1)
}

func (m *Metrics) RecordHTTPRequest(ctx context.Context, method, route string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequestDuration.Record(ctx, elapsed.Seconds(), metric.WithAttributes(
		attribute.String("method", method),
		attribute.String("route", route),
		attribute.Int("status", status),
	))
}
