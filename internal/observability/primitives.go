package observability

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
)

// series is a labelled set of float samples rendered in Prometheus text format.
type series struct {
	name   string
	help   string
	kind   string
	labels []string

	mu     sync.Mutex
	values map[string]float64
}

func newSeries(kind, name, help string, labels ...string) *series {
	return &series{name: name, help: help, kind: kind, labels: labels, values: map[string]float64{}}
}

func newCounter(name, help string, labels ...string) *series {
	return newSeries("counter", name, help, labels...)
}

func newGauge(name, help string, labels ...string) *series {
	return newSeries("gauge", name, help, labels...)
}

func (s *series) Add(v float64, values ...string) {
	if s == nil {
		return
	}
	key := labelString(s.labels, values)
	s.mu.Lock()
	s.values[key] += v
	s.mu.Unlock()
}

func (s *series) Set(v float64, values ...string) {
	if s == nil {
		return
	}
	key := labelString(s.labels, values)
	s.mu.Lock()
	s.values[key] = v
	s.mu.Unlock()
}

func (s *series) Inc(values ...string) { s.Add(1, values...) }
func (s *series) Dec(values ...string) { s.Add(-1, values...) }

func (s *series) Value(values ...string) float64 {
	if s == nil {
		return 0
	}
	key := labelString(s.labels, values)
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.values[key]
}

func (s *series) WritePrometheus(w io.Writer) error {
	if s == nil {
		return nil
	}
	if _, err := fmt.Fprintf(w, "# HELP %s %s\n# TYPE %s %s\n", s.name, s.help, s.name, s.kind); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, k := range sortedKeys(s.values) {
		if _, err := fmt.Fprintf(w, "%s%s %g\n", s.name, k, s.values[k]); err != nil {
			return err
		}
	}
	return nil
}

type histogram struct {
	name    string
	help    string
	labels  []string
	buckets []float64

	mu     sync.Mutex
	values map[string]*histogramData
}

type histogramData struct {
	counts []uint64
	sum    float64
	total  uint64
}

func newHistogram(name, help string, buckets []float64, labels ...string) *histogram {
	if len(buckets) == 0 {
		buckets = []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30}
	}
	return &histogram{name: name, help: help, labels: labels, buckets: buckets, values: map[string]*histogramData{}}
}

func (h *histogram) Observe(v float64, values ...string) {
	if h == nil {
		return
	}
	key := labelString(h.labels, values)
	h.mu.Lock()
	defer h.mu.Unlock()
	d, ok := h.values[key]
	if !ok {
		d = &histogramData{counts: make([]uint64, len(h.buckets))}
		h.values[key] = d
	}
	d.sum += v
	d.total++
	for i, b := range h.buckets {
		if v <= b {
			d.counts[i]++
		}
	}
}

// Count is the number of observations for one label set.
func (h *histogram) Count(values ...string) uint64 {
	if h == nil {
		return 0
	}
	key := labelString(h.labels, values)
	h.mu.Lock()
	defer h.mu.Unlock()
	if d, ok := h.values[key]; ok {
		return d.total
	}
	return 0
}

func (h *histogram) WritePrometheus(w io.Writer) error {
	if h == nil {
		return nil
	}
	if _, err := fmt.Fprintf(w, "# HELP %s %s\n# TYPE %s histogram\n", h.name, h.help, h.name); err != nil {
		return err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	keys := make([]string, 0, len(h.values))
	for k := range h.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		d := h.values[k]
		for i, b := range h.buckets {
			if _, err := fmt.Fprintf(w, "%s_bucket%s %d\n", h.name, withLe(k, fmt.Sprintf("%g", b)), d.counts[i]); err != nil {
				return err
			}
		}
		if _, err := fmt.Fprintf(w, "%s_bucket%s %d\n%s_sum%s %g\n%s_count%s %d\n",
			h.name, withLe(k, "+Inf"), d.total,
			h.name, k, d.sum,
			h.name, k, d.total,
		); err != nil {
			return err
		}
	}
	return nil
}

func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func labelString(names, values []string) string {
	if len(names) == 0 {
		return ""
	}
	parts := make([]string, len(names))
	for i, name := range names {
		val := "unknown"
		if i < len(values) && values[i] != "" {
			val = values[i]
		}
		parts[i] = name + `="` + escapeLabel(val) + `"`
	}
	return "{" + strings.Join(parts, ",") + "}"
}

var labelEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`)

func escapeLabel(v string) string { return labelEscaper.Replace(v) }

func withLe(labels, le string) string {
	if labels == "" {
		return `{le="` + le + `"}`
	}
	return strings.TrimSuffix(labels, "}") + `,le="` + le + `"}`
}
