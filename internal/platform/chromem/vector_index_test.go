package chromem

import (
	"context"
	"testing"

	"github.com/yungbote/rag-chatbot/internal/domain"
	"github.com/yungbote/rag-chatbot/internal/platform/logger"
)

func newTestIndex(t *testing.T) *VectorIndex {
	t.Helper()
	v, err := New(logger.NewNop(), Config{Collection: "acme"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := v.EnsureIndex(context.Background(), 3); err != nil {
		t.Fatalf("EnsureIndex: %v", err)
	}
	return v
}

func vec(chunk domain.DocumentChunk, values ...float32) domain.IndexedVector {
	return domain.NewIndexedVector(chunk, values)
}

func TestUpsertQueryCountClear(t *testing.T) {
	ctx := context.Background()
	v := newTestIndex(t)

	if n, err := v.Count(ctx); err != nil || n != 0 {
		t.Fatalf("initial count: n=%d err=%v", n, err)
	}
	matches, err := v.Query(ctx, []float32{1, 0, 0}, 3)
	if err != nil || len(matches) != 0 {
		t.Fatalf("empty query: matches=%v err=%v", matches, err)
	}

	err = v.Upsert(ctx, []domain.IndexedVector{
		vec(domain.DocumentChunk{Text: "Acme was founded in 2010.", SourceFile: "company_history.txt", Index: 0}, 1, 0, 0),
		vec(domain.DocumentChunk{Text: "Support is available 24/7.", SourceFile: "faq.md", Index: 0}, 0, 1, 0),
	})
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if n, _ := v.Count(ctx); n != 2 {
		t.Fatalf("count: want=2 got=%d", n)
	}

	matches, err = v.Query(ctx, []float32{0.9, 0.1, 0}, 3)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(matches) != 2 {
		t.Fatalf("matches: want=2 (clamped) got=%d", len(matches))
	}
	if matches[0].SourceFile != "company_history.txt" || matches[0].ID != "company_history.txt_0" {
		t.Fatalf("top match: %+v", matches[0])
	}
	if matches[0].Text != "Acme was founded in 2010." {
		t.Fatalf("text: %q", matches[0].Text)
	}

	// same ID overwrites
	err = v.Upsert(ctx, []domain.IndexedVector{
		vec(domain.DocumentChunk{Text: "updated", SourceFile: "faq.md", Index: 0}, 0, 1, 0),
	})
	if err != nil {
		t.Fatalf("Upsert overwrite: %v", err)
	}
	if n, _ := v.Count(ctx); n != 2 {
		t.Fatalf("count after overwrite: want=2 got=%d", n)
	}

	if err := v.Clear(ctx); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if n, _ := v.Count(ctx); n != 0 {
		t.Fatalf("count after clear: got=%d", n)
	}
}

func TestDimensionChecks(t *testing.T) {
	ctx := context.Background()
	v := newTestIndex(t)
	if err := v.Upsert(ctx, []domain.IndexedVector{{ID: "a_0", Values: []float32{1, 2}}}); err == nil {
		t.Fatalf("expected upsert dimension error")
	}
	if _, err := v.Query(ctx, []float32{1}, 3); err == nil {
		t.Fatalf("expected query dimension error")
	}
}

func TestUseBeforeEnsure(t *testing.T) {
	v, err := New(logger.NewNop(), Config{Collection: "acme"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := v.Count(context.Background()); err == nil {
		t.Fatalf("expected error before EnsureIndex")
	}
}
