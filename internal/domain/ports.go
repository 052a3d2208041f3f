package domain

import "context"

// Embedder turns texts into fixed-length vectors, one per input, in order.
type Embedder interface {
	Embed(ctx context.Context, inputs []string) ([][]float32, error)
}

// Completer issues a single completion request.
type Completer interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

// VectorIndex is a nearest-neighbor store keyed by vector ID.
type VectorIndex interface {
	// EnsureIndex creates the index when it does not exist and waits until it accepts writes.
	EnsureIndex(ctx context.Context, dimension int) error
	Count(ctx context.Context) (int64, error)
	Upsert(ctx context.Context, vectors []IndexedVector) error
	Query(ctx context.Context, vector []float32, topK int) ([]Match, error)
	// Clear removes every vector while keeping the index itself.
	Clear(ctx context.Context) error
}
