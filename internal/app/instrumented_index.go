package app

import (
	"context"
	"time"

	"github.com/yungbote/rag-chatbot/internal/domain"
	"github.com/yungbote/rag-chatbot/internal/observability"
)

type instrumentedVectorIndex struct {
	provider string
	inner    domain.VectorIndex
	metrics  *observability.Metrics
}

func instrumentVectorIndex(provider string, inner domain.VectorIndex, metrics *observability.Metrics) domain.VectorIndex {
	if inner == nil || metrics == nil {
		return inner
	}
	return &instrumentedVectorIndex{provider: provider, inner: inner, metrics: metrics}
}

func (s *instrumentedVectorIndex) EnsureIndex(ctx context.Context, dimension int) error {
	start := time.Now()
	err := s.inner.EnsureIndex(ctx, dimension)
	s.metrics.ObserveVectorOperation(s.provider, "ensure_index", err, time.Since(start))
	return err
}

func (s *instrumentedVectorIndex) Count(ctx context.Context) (int64, error) {
	start := time.Now()
	n, err := s.inner.Count(ctx)
	s.metrics.ObserveVectorOperation(s.provider, "count", err, time.Since(start))
	return n, err
}

func (s *instrumentedVectorIndex) Upsert(ctx context.Context, vectors []domain.IndexedVector) error {
	start := time.Now()
	err := s.inner.Upsert(ctx, vectors)
	s.metrics.ObserveVectorOperation(s.provider, "upsert", err, time.Since(start))
	return err
}

func (s *instrumentedVectorIndex) Query(ctx context.Context, vector []float32, topK int) ([]domain.Match, error) {
	start := time.Now()
	out, err := s.inner.Query(ctx, vector, topK)
	s.metrics.ObserveVectorOperation(s.provider, "query", err, time.Since(start))
	return out, err
}

func (s *instrumentedVectorIndex) Clear(ctx context.Context) error {
	start := time.Now()
	err := s.inner.Clear(ctx)
	s.metrics.ObserveVectorOperation(s.provider, "clear", err, time.Since(start))
	return err
}
