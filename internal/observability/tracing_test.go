package observability

import (
	"context"
	"testing"

	"go.opentelemetry.io/otel"
)

func TestSetupTracing_NoEndpoint(t *testing.T) {
	shutdown, err := SetupTracing("placement-service-test", "")
	if err != nil {
		t.Fatalf("setup tracing: %v", err)
	}
	if shutdown == nil {
		t.Fatal("expected non-nil shutdown func")
	}

	tracer := otel.Tracer("observability-test")
	_, span := tracer.Start(context.Background(), "test-span")
	span.End()

	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
}

func TestSetupTracing_WithEndpoint(t *testing.T) {
	// Коллектор не нужен: экспортер создаётся лениво, а без записанных
	// span'ов shutdown ничего не отправляет.
	shutdown, err := SetupTracing("placement-service-test", "http://localhost:14268/api/traces")
	if err != nil {
		t.Fatalf("setup tracing with endpoint: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
}
