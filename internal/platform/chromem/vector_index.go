package chromem

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strconv"
	"strings"
	"sync"

	"github.com/philippgille/chromem-go"

	"github.com/yungbote/rag-chatbot/internal/domain"
	"github.com/yungbote/rag-chatbot/internal/platform/ctxutil"
	"github.com/yungbote/rag-chatbot/internal/platform/logger"
)

type Config struct {
	// Path enables gob persistence under that directory; empty means in-memory.
	Path       string
	Collection string
	Compress   bool
}

// VectorIndex is an embedded chromem-go collection. Embeddings always come from
// the caller, so the collection's own embedding function is never invoked.
type VectorIndex struct {
	log  *logger.Logger
	db   *chromem.DB
	name string

	mu   sync.RWMutex
	coll *chromem.Collection
	dim  int
}

var _ domain.VectorIndex = (*VectorIndex)(nil)

func New(log *logger.Logger, cfg Config) (*VectorIndex, error) {
	if log == nil {
		return nil, errors.New("logger required")
	}
	name := strings.TrimSpace(cfg.Collection)
	if name == "" {
		return nil, errors.New("chromem collection name required")
	}
	var (
		db  *chromem.DB
		err error
	)
	if p := strings.TrimSpace(cfg.Path); p != "" {
		db, err = chromem.NewPersistentDB(p, cfg.Compress)
		if err != nil {
			return nil, fmt.Errorf("open chromem db at %s: %w", p, err)
		}
	} else {
		db = chromem.NewDB()
	}
	log.Info("chromem vector index selected", "collection", name, "path", cfg.Path)
	return &VectorIndex{log: log.With("service", "ChromemVectorIndex"), db: db, name: name}, nil
}

func (v *VectorIndex) EnsureIndex(_ context.Context, dimension int) error {
	if dimension <= 0 {
		return errors.New("dimension must be positive")
	}
	coll, err := v.db.GetOrCreateCollection(v.name, nil, nil)
	if err != nil {
		return fmt.Errorf("chromem collection %q: %w", v.name, err)
	}
	v.mu.Lock()
	v.coll = coll
	v.dim = dimension
	v.mu.Unlock()
	return nil
}

func (v *VectorIndex) collection() (*chromem.Collection, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	if v.coll == nil {
		return nil, errors.New("chromem collection not initialized")
	}
	return v.coll, nil
}

func (v *VectorIndex) Count(_ context.Context) (int64, error) {
	coll, err := v.collection()
	if err != nil {
		return 0, err
	}
	return int64(coll.Count()), nil
}

func (v *VectorIndex) Upsert(ctx context.Context, vectors []domain.IndexedVector) error {
	if len(vectors) == 0 {
		return nil
	}
	coll, err := v.collection()
	if err != nil {
		return err
	}
	docs := make([]chromem.Document, 0, len(vectors))
	for _, iv := range vectors {
		if len(iv.Values) != v.dim {
			return fmt.Errorf("vector %q dimension mismatch: expected=%d got=%d", iv.ID, v.dim, len(iv.Values))
		}
		docs = append(docs, chromem.Document{
			ID:        iv.ID,
			Content:   iv.Metadata.Text,
			Embedding: append([]float32(nil), iv.Values...),
			Metadata: map[string]string{
				domain.MetaSource:     iv.Metadata.Source,
				domain.MetaChunkIndex: strconv.Itoa(iv.Metadata.ChunkIndex),
			},
		})
	}
	if err := coll.AddDocuments(ctxutil.Default(ctx), docs, runtime.NumCPU()); err != nil {
		return fmt.Errorf("chromem add documents: %w", err)
	}
	return nil
}

func (v *VectorIndex) Query(ctx context.Context, vector []float32, topK int) ([]domain.Match, error) {
	coll, err := v.collection()
	if err != nil {
		return nil, err
	}
	if len(vector) != v.dim {
		return nil, fmt.Errorf("query vector dimension mismatch: expected=%d got=%d", v.dim, len(vector))
	}
	// chromem rejects nResults larger than the collection.
	n := topK
	if count := coll.Count(); n > count {
		n = count
	}
	if n <= 0 {
		return []domain.Match{}, nil
	}
	res, err := coll.QueryEmbedding(ctxutil.Default(ctx), append([]float32(nil), vector...), n, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("chromem query: %w", err)
	}
	out := make([]domain.Match, 0, len(res))
	for _, r := range res {
		out = append(out, domain.Match{
			ID:         r.ID,
			Score:      float64(r.Similarity),
			SourceFile: r.Metadata[domain.MetaSource],
			Text:       r.Content,
		})
	}
	return out, nil
}

// Clear drops the collection and creates an empty one under the same name.
func (v *VectorIndex) Clear(_ context.Context) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if err := v.db.DeleteCollection(v.name); err != nil {
		return fmt.Errorf("chromem delete collection: %w", err)
	}
	coll, err := v.db.GetOrCreateCollection(v.name, nil, nil)
	if err != nil {
		return fmt.Errorf("chromem recreate collection: %w", err)
	}
	v.coll = coll
	return nil
}
