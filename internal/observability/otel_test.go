package observability

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/replyloop/go-reply-backend/internal/config"
)

func preserveOTelGlobals(t *testing.T) {
	t.Helper()
	prevTP := otel.GetTracerProvider()
	prevProp := otel.GetTextMapPropagator()
	t.Cleanup(func() {
		otel.SetTracerProvider(prevTP)
		otel.SetTextMapPropagator(prevProp)
	})
}

func enabledConfig(name string, insecure bool) config.OTELConfig {
	return config.OTELConfig{
		Enabled:     true,
		Insecure:    insecure,
		Endpoint:    "localhost:4317",
		ServiceName: name,
		SampleRatio: 1.0,
	}
}

func TestSetupOTel_DisabledIsNoop(t *testing.T) {
	preserveOTelGlobals(t)

	shutdown, err := SetupOTel(context.Background(), config.OTELConfig{Enabled: false}, "v0")
	if err != nil {
		t.Fatalf("SetupOTel: %v", err)
	}
	if shutdown == nil {
		t.Fatal("expected non-nil shutdown func")
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("no-op shutdown: %v", err)
	}
}

func TestSetupOTel_InsecureSetsProvider(t *testing.T) {
	preserveOTelGlobals(t)

	shutdown, err := SetupOTel(context.Background(), enabledConfig("svc-insecure", true), "v1")
	if err != nil {
		t.Fatalf("SetupOTel: %v", err)
	}
	defer func() { _ = shutdown(context.Background()) }()

	if _, ok := otel.GetTracerProvider().(*sdktrace.TracerProvider); !ok {
		t.Fatal("expected *sdktrace.TracerProvider")
	}
	_, span := otel.Tracer("smoke").Start(context.Background(), "root")
	span.End()
}

func TestSetupOTel_TLSSetsProvider(t *testing.T) {
	preserveOTelGlobals(t)

	shutdown, err := SetupOTel(context.Background(), enabledConfig("svc-tls", false), "v1")
	if err != nil {
		t.Fatalf("SetupOTel: %v", err)
	}
	defer func() { _ = shutdown(context.Background()) }()

	if _, ok := otel.GetTracerProvider().(*sdktrace.TracerProvider); !ok {
		t.Fatal("expected *sdktrace.TracerProvider")
	}
}

func TestSetupOTel_ExporterErrorLeavesGlobalsIntact(t *testing.T) {
	preserveOTelGlobals(t)

	orig := newOTLPExporterFn
	defer func() { newOTLPExporterFn = orig }()
	newOTLPExporterFn = func(ctx context.Context, client otlptrace.Client) (*otlptrace.Exporter, error) {
		return nil, errors.New("exporter down")
	}

	prevTP := otel.GetTracerProvider()
	prevProp := otel.GetTextMapPropagator()

	if _, err := SetupOTel(context.Background(), enabledConfig("svc", true), "v0"); err == nil {
		t.Fatal("expected exporter error")
	}
	if otel.GetTracerProvider() != prevTP {
		t.Fatal("tracer provider changed on failure")
	}
	if otel.GetTextMapPropagator() != prevProp {
		t.Fatal("propagator changed on failure")
	}
}

func TestSetupOTel_ResourceErrorLeavesGlobalsIntact(t *testing.T) {
	preserveOTelGlobals(t)

	orig := newServiceResourceFn
	defer func() { newServiceResourceFn = orig }()
	newServiceResourceFn = func(ctx context.Context, serviceName, version string) (*resource.Resource, error) {
		return nil, errors.New("resource failed")
	}

	prevTP := otel.GetTracerProvider()

	if _, err := SetupOTel(context.Background(), enabledConfig("svc", true), "v0"); err == nil {
		t.Fatal("expected resource error")
	}
	if otel.GetTracerProvider() != prevTP {
		t.Fatal("tracer provider changed on failure")
	}
}

func TestSetupOTel_ShutdownWithTimeout(t *testing.T) {
	preserveOTelGlobals(t)

	shutdown, err := SetupOTel(context.Background(), enabledConfig("svc-shutdown", true), "v1")
	if err != nil {
		t.Fatalf("SetupOTel: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 250*time.Millisecond)
	defer cancel()
	if err := shutdown(ctx); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
}
