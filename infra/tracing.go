package infra

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.37.0"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

type TelemetryRessources struct {
	TracerProvider    trace.TracerProvider
	Tracer            trace.Tracer
	TextMapPropagator propagation.TextMapPropagator
	Shutdown          func(ctx context.Context) error
}

func NoopTelemetry() TelemetryRessources {
	return TelemetryRessources{
		TracerProvider:    noop.NewTracerProvider(),
		Tracer:            &noop.Tracer{},
		TextMapPropagator: propagation.TraceContext{},
		Shutdown:          func(context.Context) error { return nil },
	}
}

// InitTelemetry exports spans over OTLP gRPC. The exporter reads its endpoint
// from OTEL_EXPORTER_OTLP_ENDPOINT.
func InitTelemetry(ctx context.Context, configuration TelemetryConfiguration, apiVersion string) (TelemetryRessources, error) {
	if !configuration.Enabled {
		return NoopTelemetry(), nil
	}

	exporter, err := otlptracegrpc.New(ctx)
	if err != nil {
		return TelemetryRessources{}, fmt.Errorf("otlptracegrpc.New error: %w", err)
	}

	res, err := resource.New(ctx,
		resource.WithTelemetrySDK(),
		resource.WithAttributes(
			semconv.ServiceNameKey.String(configuration.ApplicationName),
			semconv.ServiceVersion(apiVersion),
		),
	)
	if err != nil {
		return TelemetryRessources{}, fmt.Errorf("resource.New error: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(RouteSampler{SamplingMap: configuration.SamplingMap}),
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)

	propagators := propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagators)

	return TelemetryRessources{
		TracerProvider:    tp,
		Tracer:            tp.Tracer(configuration.ApplicationName),
		TextMapPropagator: propagators,
		Shutdown:          tp.Shutdown,
	}, nil
}

const DEFAULT_SAMPLING_RATE = 0.3

var defaultRoutePrefixSampling = map[string]float64{
	"/health":  0.0,
	"/metrics": 0.0,
	"/docs":    0.0,
	"/ws/chat": 1.0,
}

// RouteSampler samples HTTP spans by route prefix and database spans along with
// their parent.
type RouteSampler struct {
	SamplingMap TelemetrySamplingMap
}

func (RouteSampler) Description() string {
	return "route-sampler"
}

func (rs RouteSampler) ShouldSample(p sdktrace.SamplingParameters) sdktrace.SamplingResult {
	psc := trace.SpanContextFromContext(p.ParentContext)
	if psc.HasTraceID() && !psc.IsSampled() {
		return sdktrace.NeverSample().ShouldSample(p)
	}

	prob := rs.probability(p, psc)

	decision := sdktrace.Drop
	traceId := binary.BigEndian.Uint64(p.TraceID[:8])
	if traceId < uint64(prob*float64(math.MaxUint64)) {
		decision = sdktrace.RecordAndSample
	}

	return sdktrace.SamplingResult{
		Decision:   decision,
		Attributes: p.Attributes,
		Tracestate: psc.TraceState(),
	}
}

func (rs RouteSampler) probability(p sdktrace.SamplingParameters, psc trace.SpanContext) float64 {
	for _, attr := range p.Attributes {
		switch attr.Key {
		case semconv.HTTPRouteKey:
			route := attr.Value.AsString()
			for prefix, prob := range rs.SamplingMap.HttpRoutes {
				if strings.HasPrefix(route, prefix) {
					return prob
				}
			}
			for prefix, prob := range defaultRoutePrefixSampling {
				if strings.HasPrefix(route, prefix) {
					return prob
				}
			}
			return DEFAULT_SAMPLING_RATE
		case semconv.DBQueryTextKey:
			if strings.HasPrefix(p.Name, "prepare ") {
				return 0.0
			}
			if psc.IsSampled() {
				return 1.0
			}
			return DEFAULT_SAMPLING_RATE
		}
	}
	if p.Name == "pool.acquire" {
		return 0.0
	}
	return 1.0
}
