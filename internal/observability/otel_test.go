package observability

import (
	"context"
	"testing"

	"go.opentelemetry.io/otel"

	"github.com/yungbote/rag-chatbot/internal/config"
	"github.com/yungbote/rag-chatbot/internal/platform/logger"
)

func TestInitOTelDisabledKeepsGlobalProvider(t *testing.T) {
	before := otel.GetTracerProvider()
	shutdown := InitOTel(context.Background(), logger.NewNop(), "test", config.OtelConfig{})
	if shutdown == nil {
		t.Fatalf("shutdown func must never be nil")
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("noop shutdown: %v", err)
	}
	if otel.GetTracerProvider() != before {
		t.Fatalf("disabled tracing must not replace the global provider")
	}
}
