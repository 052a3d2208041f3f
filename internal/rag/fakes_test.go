package rag

import (
	"context"
	"strings"
	"sync"

	"github.com/yungbote/rag-chatbot/internal/domain"
)

var testVocab = []string{"founded", "history", "product", "price", "support", "hours", "refund", "office"}

// keywordEmbedder maps text onto a small keyword vocabulary so nearest
// neighbours are predictable.
type keywordEmbedder struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (k *keywordEmbedder) Embed(_ context.Context, inputs []string) ([][]float32, error) {
	k.mu.Lock()
	k.calls++
	k.mu.Unlock()
	if k.err != nil {
		return nil, k.err
	}
	out := make([][]float32, len(inputs))
	for i, in := range inputs {
		v := make([]float32, len(testVocab)+1)
		words := strings.FieldsFunc(strings.ToLower(in), func(r rune) bool {
			return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9')
		})
		for _, w := range words {
			for j, term := range testVocab {
				if w == term {
					v[j]++
				}
			}
		}
		v[len(testVocab)] = 0.01
		out[i] = v
	}
	return out, nil
}

func (k *keywordEmbedder) Calls() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.calls
}

type recordingCompleter struct {
	mu     sync.Mutex
	calls  int
	system string
	user   string
	reply  string
	err    error
}

func (c *recordingCompleter) Complete(_ context.Context, system, user string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	c.system, c.user = system, user
	if c.err != nil {
		return "", c.err
	}
	return c.reply, nil
}

type fakeIndex struct {
	mu          sync.Mutex
	ensureErr   error
	queryErr    error
	preexisting int64
	matches     []domain.Match
	upserts     [][]domain.IndexedVector
	cleared     int
	queries     int
	ensured     int
}

func (f *fakeIndex) EnsureIndex(context.Context, int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ensured++
	return f.ensureErr
}

func (f *fakeIndex) Count(context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := f.preexisting
	for _, b := range f.upserts {
		n += int64(len(b))
	}
	return n, nil
}

func (f *fakeIndex) Upsert(_ context.Context, vectors []domain.IndexedVector) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.upserts = append(f.upserts, vectors)
	return nil
}

func (f *fakeIndex) Query(context.Context, []float32, int) ([]domain.Match, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries++
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	return f.matches, nil
}

func (f *fakeIndex) Clear(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cleared++
	f.preexisting = 0
	f.upserts = nil
	return nil
}

func (f *fakeIndex) upserted() []domain.IndexedVector {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.IndexedVector
	for _, b := range f.upserts {
		out = append(out, b...)
	}
	return out
}
