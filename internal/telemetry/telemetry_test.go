package telemetry

import (
	"context"
	"testing"

	"github.com/summitto/tlsn-prover-gateway/internal/config"
)

func TestSetup_DisabledReturnsNoopShutdown(t *testing.T) {
	t.Parallel()

	shutdown, err := Setup(config.TracingConfig{Enabled: false})
	if err != nil {
		t.Fatalf("Setup() error: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Errorf("no-op shutdown returned error: %v", err)
	}
}

func TestSetup_EnabledInstallsTracerProvider(t *testing.T) {
	t.Parallel()

	shutdown, err := Setup(config.TracingConfig{Enabled: true, ServiceName: "test-service"})
	if err != nil {
		t.Fatalf("Setup() error: %v", err)
	}
	defer shutdown(context.Background())

	tracer := Tracer("test")
	_, span := tracer.Start(context.Background(), "unit-test-span")
	span.End()
}
