package observability

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestMetricsNilReceiverIsNoop(t *testing.T) {
	var m *Metrics
	m.ObserveAPI("GET", "/health", 200, time.Millisecond)
	m.APIInflightInc()
	m.APIInflightDec()
	m.ObserveStage("embed", nil, time.Millisecond)
	m.SetEngineState(1)
	if err := m.WritePrometheus(&strings.Builder{}); err != nil {
		t.Fatalf("nil WritePrometheus: %v", err)
	}

	rec := httptest.NewRecorder()
	m.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status: got=%d", rec.Code)
	}
}

func TestMetricsExposition(t *testing.T) {
	m := NewMetrics()
	m.ObserveAPI("POST", "/api/chat", 200, 300*time.Millisecond)
	m.ObserveAPI("POST", "/api/chat", 503, time.Millisecond)
	m.ObserveStage("retrieve", errors.New("boom"), 20*time.Millisecond)
	m.ObserveStage("embed", nil, 10*time.Millisecond)
	m.SetEngineState(1)

	if got := m.apiRequests.Value("POST", "/api/chat", "503"); got != 1 {
		t.Fatalf("503 counter: got=%v", got)
	}
	if got := m.apiLatency.Count("POST", "/api/chat"); got != 2 {
		t.Fatalf("latency observations: got=%d", got)
	}

	rec := httptest.NewRecorder()
	m.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := rec.Body.String()
	for _, want := range []string{
		`rag_api_requests_total{method="POST",route="/api/chat",status="200"} 1`,
		`rag_stage_failures_total{stage="retrieve"} 1`,
		`rag_stage_duration_seconds_count{stage="embed",status="ok"} 1`,
		`rag_api_request_duration_seconds_bucket{method="POST",route="/api/chat",le="0.5"} 2`,
		`rag_api_request_duration_seconds_bucket{method="POST",route="/api/chat",le="0.25"} 1`,
		"rag_engine_state 1",
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("missing %q in:\n%s", want, body)
		}
	}
}

func TestLabelEscaping(t *testing.T) {
	got := labelString([]string{"route"}, []string{"a\"b\\c\nd"})
	if got != `{route="a\"b\\c\nd"}` {
		t.Fatalf("escaped label: %s", got)
	}
	if withLe("", "1") != `{le="1"}` {
		t.Fatalf("withLe empty labels")
	}
}
