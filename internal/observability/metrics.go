package observability

import (
	"io"
	"net/http"
	"strconv"
	"time"
)

// Metrics holds the service's request and pipeline series. A nil *Metrics is a
// valid no-op receiver so callers never need to check whether metrics are on.
type Metrics struct {
	apiRequests *series
	apiLatency  *histogram
	apiInflight *series
	ragStage    *histogram
	ragFailures *series
	engineState *series
	vectorOps   *histogram
}

func NewMetrics() *Metrics {
	return &Metrics{
		apiRequests: newCounter("rag_api_requests_total", "API requests by method/route/status.", "method", "route", "status"),
		apiLatency: newHistogram(
			"rag_api_request_duration_seconds",
			"API request latency in seconds by method/route.",
			[]float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
			"method", "route",
		),
		apiInflight: newGauge("rag_api_inflight_requests", "In-flight API requests."),
		ragStage: newHistogram(
			"rag_stage_duration_seconds",
			"RAG pipeline stage latency in seconds by stage/status.",
			nil,
			"stage", "status",
		),
		ragFailures: newCounter("rag_stage_failures_total", "Failed RAG pipeline stages.", "stage"),
		engineState: newGauge("rag_engine_state", "Engine lifecycle state (0 uninitialized, 1 ready, 2 failed)."),
		vectorOps: newHistogram(
			"rag_vector_operation_duration_seconds",
			"Vector index operation latency by provider/operation/status.",
			[]float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 5},
			"provider", "operation", "status",
		),
	}
}

func (m *Metrics) ObserveAPI(method, route string, status int, dur time.Duration) {
	if m == nil {
		return
	}
	if route == "" {
		route = "unmatched"
	}
	m.apiRequests.Inc(method, route, strconv.Itoa(status))
	m.apiLatency.Observe(dur.Seconds(), method, route)
}

func (m *Metrics) APIInflightInc() {
	if m != nil {
		m.apiInflight.Inc()
	}
}

func (m *Metrics) APIInflightDec() {
	if m != nil {
		m.apiInflight.Dec()
	}
}

// ObserveStage records one pipeline stage (index, embed, retrieve, complete).
func (m *Metrics) ObserveStage(stage string, err error, dur time.Duration) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
		m.ragFailures.Inc(stage)
	}
	m.ragStage.Observe(dur.Seconds(), stage, status)
}

func (m *Metrics) ObserveVectorOperation(provider, operation string, err error, dur time.Duration) {
	if m == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	m.vectorOps.Observe(dur.Seconds(), provider, operation, status)
}

func (m *Metrics) SetEngineState(state int) {
	if m == nil {
		return
	}
	m.engineState.Set(float64(state))
}

func (m *Metrics) WritePrometheus(w io.Writer) error {
	if m == nil {
		return nil
	}
	for _, s := range []interface{ WritePrometheus(io.Writer) error }{
		m.apiRequests, m.apiLatency, m.apiInflight, m.ragStage, m.ragFailures, m.engineState, m.vectorOps,
	} {
		if err := s.WritePrometheus(w); err != nil {
			return err
		}
	}
	return nil
}

func (m *Metrics) ServeHTTP(w http.ResponseWriter, _ *http.Request) {
	if m == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	_ = m.WritePrometheus(w)
}
