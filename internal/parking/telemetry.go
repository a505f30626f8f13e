package parking

import (
	"context"
	"errors"
	"os"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploghttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/log/global"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
)

const (
	DefaultServiceName  = "parking-levels-service"
	serviceVersion      = "1.0.0"
	DefaultOTLPEndpoint = "http://localhost:4318"
	instrumentationName = "github.com/base-14/examples/go/parking-levels/internal/parking"
)

type shutdowner interface {
	Shutdown(ctx context.Context) error
}

type TelemetryProvider struct {
	tracer    trace.Tracer
	meter     metric.Meter
	providers []shutdowner
}

func NewTelemetryProvider(ctx context.Context, serviceName, otlpEndpoint string) (*TelemetryProvider, error) {
	if serviceName == "" {
		serviceName = DefaultServiceName
	}
	if otlpEndpoint == "" {
		otlpEndpoint = DefaultOTLPEndpoint
	}

	resAttrs := []resource.Option{
		resource.WithAttributes(
			semconv.ServiceName(serviceName),
			semconv.ServiceVersion(serviceVersion),
		),
	}

	if resAttrStr := os.Getenv("OTEL_RESOURCE_ATTRIBUTES"); resAttrStr != "" {
		resAttrs = append(resAttrs, resource.WithFromEnv())
	}

	res, err := resource.New(ctx, resAttrs...)
	if err != nil {
		return nil, err
	}

	// Setup trace exporter
	traceExporter, err := otlptracehttp.New(ctx,
		otlptracehttp.WithEndpointURL(otlpEndpoint+"/v1/traces"),
		otlptracehttp.WithInsecure(), // Use for local development
	)
	if err != nil {
		return nil, err
	}

	tracerProvider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(traceExporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	)

	// Setup metric exporter
	metricExporter, err := otlpmetrichttp.New(ctx,
		otlpmetrichttp.WithEndpointURL(otlpEndpoint+"/v1/metrics"),
		otlpmetrichttp.WithInsecure(), // Use for local development
	)
	if err != nil {
		return nil, err
	}

	meterProvider := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(metricExporter,
			sdkmetric.WithInterval(5*time.Second), // Export every 5 seconds
		)),
	)

	// Setup log exporter
	logExporter, err := otlploghttp.New(ctx,
		otlploghttp.WithEndpointURL(otlpEndpoint+"/v1/logs"),
		otlploghttp.WithInsecure(), // Use for local development
	)
	if err != nil {
		return nil, err
	}

	loggerProvider := sdklog.NewLoggerProvider(
		sdklog.WithProcessor(sdklog.NewBatchProcessor(logExporter)),
		sdklog.WithResource(res),
	)

	// Set global providers
	otel.SetTracerProvider(tracerProvider)
	otel.SetMeterProvider(meterProvider)
	global.SetLoggerProvider(loggerProvider)

	// Set global propagator to tracecontext and baggage
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	tp := NewTelemetryProviderFrom(tracerProvider, meterProvider)
	tp.providers = append(tp.providers, loggerProvider)
	return tp, nil
}

// NewTelemetryProviderFrom wraps existing providers without touching the
// globals. Providers that implement Shutdown are shut down with it.
func NewTelemetryProviderFrom(tracerProvider trace.TracerProvider, meterProvider metric.MeterProvider) *TelemetryProvider {
	tp := &TelemetryProvider{
		tracer: tracerProvider.Tracer(instrumentationName),
		meter:  meterProvider.Meter(instrumentationName),
	}
	for _, p := range []any{tracerProvider, meterProvider} {
		if s, ok := p.(shutdowner); ok {
			tp.providers = append(tp.providers, s)
		}
	}
	return tp
}

func (tp *TelemetryProvider) Tracer() trace.Tracer {
	return tp.tracer
}

func (tp *TelemetryProvider) Meter() metric.Meter {
	return tp.meter
}

func (tp *TelemetryProvider) Shutdown(ctx context.Context) error {
	var errs []error
	for _, p := range tp.providers {
		errs = append(errs, p.Shutdown(ctx))
	}
	return errors.Join(errs...)
}
