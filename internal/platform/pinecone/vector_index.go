package pinecone

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/yungbote/rag-chatbot/internal/domain"
	"github.com/yungbote/rag-chatbot/internal/platform/logger"
)

type IndexConfig struct {
	IndexName string
	// IndexHost skips the describe_index lookup when set.
	IndexHost    string
	Namespace    string
	Cloud        string
	Region       string
	PollInterval time.Duration
	ReadyTimeout time.Duration
}

// VectorIndex adapts a Pinecone serverless index to domain.VectorIndex.
type VectorIndex struct {
	log *logger.Logger
	pc  Client
	cfg IndexConfig

	mu   sync.Mutex
	host string
}

var _ domain.VectorIndex = (*VectorIndex)(nil)

func NewVectorIndex(log *logger.Logger, pc Client, cfg IndexConfig) (*VectorIndex, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if pc == nil {
		return nil, fmt.Errorf("pinecone client required")
	}
	cfg.IndexName = strings.TrimSpace(cfg.IndexName)
	if cfg.IndexName == "" {
		return nil, fmt.Errorf("missing PINECONE_INDEX_NAME")
	}
	if cfg.Cloud == "" {
		cfg.Cloud = "aws"
	}
	if cfg.Region == "" {
		cfg.Region = "us-east-1"
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 2 * time.Second
	}
	if cfg.ReadyTimeout <= 0 {
		cfg.ReadyTimeout = 2 * time.Minute
	}
	return &VectorIndex{
		log:  log.With("service", "PineconeVectorIndex", "index", cfg.IndexName),
		pc:   pc,
		cfg:  cfg,
		host: strings.TrimSpace(cfg.IndexHost),
	}, nil
}

func (v *VectorIndex) EnsureIndex(ctx context.Context, dimension int) error {
	desc, err := v.pc.DescribeIndex(ctx, v.cfg.IndexName)
	switch {
	case errors.Is(err, ErrIndexNotFound):
		v.log.Info("Pinecone index missing; creating",
			"dimension", dimension,
			"cloud", v.cfg.Cloud,
			"region", v.cfg.Region,
		)
		desc, err = v.pc.CreateIndex(ctx, CreateIndexRequest{
			Name:      v.cfg.IndexName,
			Dimension: dimension,
			Metric:    "cosine",
			Spec:      IndexSpec{Serverless: &ServerlessSpec{Cloud: v.cfg.Cloud, Region: v.cfg.Region}},
		})
		if err != nil {
			return err
		}
	case err != nil:
		return err
	}

	if desc.Dimension != 0 && desc.Dimension != dimension {
		return fmt.Errorf("pinecone index %q dimension mismatch: expected=%d actual=%d", v.cfg.IndexName, dimension, desc.Dimension)
	}
	if !desc.Status.Ready {
		if desc, err = v.waitReady(ctx); err != nil {
			return err
		}
	}
	v.setHost(desc.Host)
	return nil
}

func (v *VectorIndex) waitReady(ctx context.Context) (*IndexDescription, error) {
	ctx, cancel := context.WithTimeout(ctx, v.cfg.ReadyTimeout)
	defer cancel()
	ticker := time.NewTicker(v.cfg.PollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("pinecone index %q not ready: %w", v.cfg.IndexName, ctx.Err())
		case <-ticker.C:
		}
		desc, err := v.pc.DescribeIndex(ctx, v.cfg.IndexName)
		if err != nil {
			return nil, err
		}
		if desc.Status.Ready {
			return desc, nil
		}
		v.log.Debug("waiting for Pinecone index", "state", desc.Status.State)
	}
}

func (v *VectorIndex) Count(ctx context.Context) (int64, error) {
	host, err := v.resolveHost(ctx)
	if err != nil {
		return 0, err
	}
	stats, err := v.pc.DescribeIndexStats(ctx, host)
	if err != nil {
		return 0, err
	}
	if v.cfg.Namespace == "" {
		return stats.TotalVectorCount, nil
	}
	return stats.Namespaces[v.cfg.Namespace].VectorCount, nil
}

func (v *VectorIndex) Upsert(ctx context.Context, vectors []domain.IndexedVector) error {
	if len(vectors) == 0 {
		return nil
	}
	host, err := v.resolveHost(ctx)
	if err != nil {
		return err
	}
	req := UpsertRequest{Namespace: v.cfg.Namespace, Vectors: make([]Vector, 0, len(vectors))}
	for _, iv := range vectors {
		req.Vectors = append(req.Vectors, Vector{ID: iv.ID, Values: iv.Values, Metadata: iv.Metadata.Map()})
	}
	_, err = v.pc.UpsertVectors(ctx, host, req)
	return err
}

func (v *VectorIndex) Query(ctx context.Context, vector []float32, topK int) ([]domain.Match, error) {
	host, err := v.resolveHost(ctx)
	if err != nil {
		return nil, err
	}
	resp, err := v.pc.Query(ctx, host, QueryRequest{
		Namespace:       v.cfg.Namespace,
		Vector:          vector,
		TopK:            topK,
		IncludeMetadata: true,
	})
	if err != nil {
		return nil, err
	}
	out := make([]domain.Match, 0, len(resp.Matches))
	for _, m := range resp.Matches {
		meta := domain.MetadataFromMap(m.Metadata)
		out = append(out, domain.Match{ID: m.ID, Score: m.Score, SourceFile: meta.Source, Text: meta.Text})
	}
	return out, nil
}

func (v *VectorIndex) Clear(ctx context.Context) error {
	host, err := v.resolveHost(ctx)
	if err != nil {
		return err
	}
	return v.pc.DeleteAll(ctx, host, v.cfg.Namespace)
}

func (v *VectorIndex) resolveHost(ctx context.Context) (string, error) {
	v.mu.Lock()
	host := v.host
	v.mu.Unlock()
	if host != "" {
		return host, nil
	}
	desc, err := v.pc.DescribeIndex(ctx, v.cfg.IndexName)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(desc.Host) == "" {
		return "", fmt.Errorf("pinecone describe_index returned empty host")
	}
	v.log.Warn("PINECONE_INDEX_HOST not set; resolved via describe_index", "host", desc.Host)
	v.setHost(desc.Host)
	return desc.Host, nil
}

func (v *VectorIndex) setHost(host string) {
	host = strings.TrimSpace(host)
	if host == "" {
		return
	}
	v.mu.Lock()
	v.host = host
	v.mu.Unlock()
}
