package handlers

import (
	"context"
	"net/http"
	"sync/atomic"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/rag-chatbot/internal/domain"
	"github.com/yungbote/rag-chatbot/internal/platform/logger"
	"github.com/yungbote/rag-chatbot/internal/rag"
)

type countingBackend struct {
	embeds      atomic.Int32
	queries     atomic.Int32
	completions atomic.Int32
}

func (b *countingBackend) Embed(_ context.Context, inputs []string) ([][]float32, error) {
	b.embeds.Add(1)
	out := make([][]float32, len(inputs))
	for i := range out {
		out[i] = []float32{1, 0, 0}
	}
	return out, nil
}

func (b *countingBackend) Complete(context.Context, string, string) (string, error) {
	b.completions.Add(1)
	return "Founded in 2010.", nil
}

func (b *countingBackend) EnsureIndex(context.Context, int) error { return nil }
func (b *countingBackend) Count(context.Context) (int64, error) { return 1, nil }
func (b *countingBackend) Upsert(context.Context, []domain.IndexedVector) error { return nil }
func (b *countingBackend) Clear(context.Context) error { return nil }
func (b *countingBackend) Query(context.Context, []float32, int) ([]domain.Match, error) {
	b.queries.Add(1)
	return []domain.Match{{ID: "company_history.txt_0", Score: 0.9, SourceFile: "company_history.txt", Text: "Founded in 2010."}}, nil
}

func newPipelineRouter(t *testing.T) (*gin.Engine, *countingBackend) {
	t.Helper()
	b := &countingBackend{}
	log := logger.NewNop()
	indexer, err := rag.NewIndexer(log, b, b, rag.IndexerConfig{})
	if err != nil {
		t.Fatalf("NewIndexer: %v", err)
	}
	engine, err := rag.NewEngine(log, b, b, b, indexer, rag.EngineConfig{Dimension: 3, DataDir: t.TempDir()})
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	if err := engine.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/api/chat", NewChatHandler(log, engine).Chat)
	return r, b
}

func TestBlankMessageNeverReachesBackends(t *testing.T) {
	for _, body := range []string{`{"message":""}`, `{"message":"  \t\n"}`, `{}`} {
		r, b := newPipelineRouter(t)
		rec := postChat(r, body)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("%s: status got=%d want=400", body, rec.Code)
		}
		if b.embeds.Load() != 0 || b.queries.Load() != 0 || b.completions.Load() != 0 {
			t.Fatalf("%s: backends called embed=%d query=%d complete=%d",
				body, b.embeds.Load(), b.queries.Load(), b.completions.Load())
		}
	}
}

func TestValidMessageCallsEachBackendOnce(t *testing.T) {
	r, b := newPipelineRouter(t)
	rec := postChat(r, `{"message":"When was Acme founded?"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status: got=%d body=%s", rec.Code, rec.Body.String())
	}
	if b.embeds.Load() != 1 || b.queries.Load() != 1 || b.completions.Load() != 1 {
		t.Fatalf("calls embed=%d query=%d complete=%d", b.embeds.Load(), b.queries.Load(), b.completions.Load())
	}
}
