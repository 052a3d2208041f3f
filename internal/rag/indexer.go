package rag

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"

	"github.com/yungbote/rag-chatbot/internal/domain"
	"github.com/yungbote/rag-chatbot/internal/platform/logger"
)

type IndexerConfig struct {
	ChunkWords  int
	BatchSize   int
	Concurrency int
	// DryRun chunks the documents without embedding or upserting.
	DryRun bool
}

type IndexStats struct {
	Files   int
	Chunks  int
	Upserts int
}

// Indexer turns the files of a data directory into vectors in a VectorIndex.
type Indexer struct {
	log      *logger.Logger
	embedder domain.Embedder
	index    domain.VectorIndex
	cfg      IndexerConfig
}

func NewIndexer(log *logger.Logger, embedder domain.Embedder, index domain.VectorIndex, cfg IndexerConfig) (*Indexer, error) {
	if log == nil {
		return nil, errors.New("logger required")
	}
	if embedder == nil || index == nil {
		return nil, errors.New("embedder and vector index required")
	}
	if cfg.ChunkWords <= 0 {
		cfg.ChunkWords = DefaultChunkWords
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}
	return &Indexer{log: log.With("service", "Indexer"), embedder: embedder, index: index, cfg: cfg}, nil
}

func (ix *Indexer) Chunk(docs []Document) []domain.DocumentChunk {
	return ChunkDocuments(docs, ix.cfg.ChunkWords)
}

// ChunkDocuments splits documents into chunks numbered per file from zero.
func ChunkDocuments(docs []Document, words int) []domain.DocumentChunk {
	if words <= 0 {
		words = DefaultChunkWords
	}
	var out []domain.DocumentChunk
	for _, d := range docs {
		for i, text := range ChunkText(d.Text, words) {
			out = append(out, domain.DocumentChunk{Text: text, SourceFile: d.Name, Index: i})
		}
	}
	return out
}

// IndexDirectory loads, chunks, embeds and upserts every supported file in dir.
// Batches are embedded concurrently; each batch is upserted as one call.
func (ix *Indexer) IndexDirectory(ctx context.Context, dir string) (IndexStats, error) {
	ctx, span := tracer.Start(ctx, "rag.index")
	defer span.End()

	docs, err := LoadDocuments(dir)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "load documents")
		return IndexStats{}, err
	}
	chunks := ix.Chunk(docs)
	stats := IndexStats{Files: len(docs), Chunks: len(chunks)}
	span.SetAttributes(attribute.Int("rag.files", stats.Files), attribute.Int("rag.chunks", stats.Chunks))
	ix.log.Info("Documents chunked", "dir", dir, "files", stats.Files, "chunks", stats.Chunks)

	if len(chunks) == 0 {
		ix.log.Warn("No indexable documents found", "dir", dir)
		return stats, nil
	}
	if ix.cfg.DryRun {
		return stats, nil
	}

	var upserted atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(ix.cfg.Concurrency)
	for start := 0; start < len(chunks); start += ix.cfg.BatchSize {
		end := start + ix.cfg.BatchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		batch := chunks[start:end]
		g.Go(func() error {
			n, err := ix.indexBatch(gctx, batch)
			if err != nil {
				return err
			}
			upserted.Add(int64(n))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "index batch")
		return stats, err
	}
	stats.Upserts = int(upserted.Load())
	ix.log.Info("Documents indexed", "files", stats.Files, "chunks", stats.Chunks, "upserted", stats.Upserts)
	return stats, nil
}

func (ix *Indexer) indexBatch(ctx context.Context, batch []domain.DocumentChunk) (int, error) {
	texts := make([]string, len(batch))
	for i, c := range batch {
		texts[i] = c.Text
	}
	vecs, err := ix.embedder.Embed(ctx, texts)
	if err != nil {
		return 0, fmt.Errorf("embed batch starting at %s: %w", batch[0].VectorID(), err)
	}
	if len(vecs) != len(batch) {
		return 0, fmt.Errorf("embed batch: requested=%d returned=%d", len(batch), len(vecs))
	}
	vectors := make([]domain.IndexedVector, len(batch))
	for i, c := range batch {
		vectors[i] = domain.NewIndexedVector(c, vecs[i])
	}
	if err := ix.index.Upsert(ctx, vectors); err != nil {
		return 0, fmt.Errorf("upsert batch starting at %s: %w", batch[0].VectorID(), err)
	}
	ix.log.Debug("Batch upserted", "first_id", batch[0].VectorID(), "size", len(batch))
	return len(batch), nil
}

type BootstrapResult struct {
	Existing int64
	Cleared  bool
	Skipped  bool
	Stats    IndexStats
}

// Bootstrap makes sure the index exists, then indexes dir when the index is
// empty. With reindex the index is cleared first so IDs never pile up.
func (ix *Indexer) Bootstrap(ctx context.Context, dir string, dimension int, reindex bool) (BootstrapResult, error) {
	var res BootstrapResult
	if err := ix.index.EnsureIndex(ctx, dimension); err != nil {
		return res, fmt.Errorf("ensure index: %w", err)
	}
	if reindex && !ix.cfg.DryRun {
		if err := ix.index.Clear(ctx); err != nil {
			return res, fmt.Errorf("clear index: %w", err)
		}
		res.Cleared = true
		ix.log.Info("Index cleared for reindex")
	} else {
		n, err := ix.index.Count(ctx)
		if err != nil {
			return res, fmt.Errorf("count vectors: %w", err)
		}
		res.Existing = n
		if n > 0 && !reindex {
			res.Skipped = true
			ix.log.Info("Index already populated; skipping document indexing", "vectors", n)
			return res, nil
		}
	}
	stats, err := ix.IndexDirectory(ctx, dir)
	res.Stats = stats
	if err != nil {
		return res, err
	}
	return res, nil
}
