package rag

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/yungbote/rag-chatbot/internal/domain"
	"github.com/yungbote/rag-chatbot/internal/platform/chromem"
	"github.com/yungbote/rag-chatbot/internal/platform/logger"
)

func newTestEngine(t *testing.T, emb *keywordEmbedder, comp *recordingCompleter, idx domain.VectorIndex, dir string) *Engine {
	t.Helper()
	ix, err := NewIndexer(logger.NewNop(), emb, idx, IndexerConfig{BatchSize: 100, Concurrency: 2})
	if err != nil {
		t.Fatalf("NewIndexer: %v", err)
	}
	e, err := NewEngine(logger.NewNop(), emb, comp, idx, ix, EngineConfig{
		TopK:      3,
		Dimension: len(testVocab) + 1,
		DataDir:   dir,
	})
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	return e
}

func TestAnswerBeforeInitializeIsNotReady(t *testing.T) {
	emb, comp, idx := &keywordEmbedder{}, &recordingCompleter{}, &fakeIndex{}
	e := newTestEngine(t, emb, comp, idx, t.TempDir())

	if e.State() != StateUninitialized {
		t.Fatalf("state: got=%v", e.State())
	}
	for _, q := range []string{"When was Acme founded?", "", "   "} {
		if _, err := e.Answer(context.Background(), q); !errors.Is(err, ErrNotReady) {
			t.Fatalf("Answer(%q): want ErrNotReady got %v", q, err)
		}
	}
	if emb.Calls() != 0 || comp.calls != 0 || idx.queries != 0 {
		t.Fatalf("no external calls expected: embed=%d complete=%d query=%d", emb.Calls(), comp.calls, idx.queries)
	}
}

func TestInitializeOnceThenReady(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "faq.md", "support hours")
	idx := &fakeIndex{}
	e := newTestEngine(t, &keywordEmbedder{}, &recordingCompleter{}, idx, dir)

	if err := e.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	if e.State() != StateReady || e.InitError() != nil {
		t.Fatalf("state=%v err=%v", e.State(), e.InitError())
	}
	if err := e.Initialize(context.Background()); !errors.Is(err, ErrAlreadyInitialized) {
		t.Fatalf("second Initialize: want ErrAlreadyInitialized got %v", err)
	}
	if idx.ensured != 1 {
		t.Fatalf("EnsureIndex calls: want=1 got=%d", idx.ensured)
	}
}

func TestInitializeConcurrentCallsRunOnce(t *testing.T) {
	idx := &fakeIndex{preexisting: 3}
	e := newTestEngine(t, &keywordEmbedder{}, &recordingCompleter{}, idx, t.TempDir())

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- e.Initialize(context.Background())
		}()
	}
	wg.Wait()
	close(errs)
	var ok, already int
	for err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, ErrAlreadyInitialized):
			already++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if ok != 1 || already != 7 {
		t.Fatalf("ok=%d already=%d", ok, already)
	}
}

func TestInitializeFailureIsSticky(t *testing.T) {
	idx := &fakeIndex{ensureErr: errors.New("invalid api key")}
	e := newTestEngine(t, &keywordEmbedder{}, &recordingCompleter{}, idx, t.TempDir())

	if err := e.Initialize(context.Background()); err == nil {
		t.Fatalf("expected init error")
	}
	if e.State() != StateFailed {
		t.Fatalf("state: want failed got %v", e.State())
	}
	if e.InitError() == nil || !strings.Contains(e.InitError().Error(), "invalid api key") {
		t.Fatalf("init error: %v", e.InitError())
	}
	if _, err := e.Answer(context.Background(), "hello"); !errors.Is(err, ErrNotReady) {
		t.Fatalf("Answer after failure: want ErrNotReady got %v", err)
	}
}

func readyEngine(t *testing.T, emb *keywordEmbedder, comp *recordingCompleter, idx *fakeIndex) *Engine {
	t.Helper()
	idx.preexisting = 1
	e := newTestEngine(t, emb, comp, idx, t.TempDir())
	if err := e.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	return e
}

func TestAnswerBuildsPromptAndDedupesSources(t *testing.T) {
	emb := &keywordEmbedder{}
	comp := &recordingCompleter{reply: "Acme was founded in 2010."}
	idx := &fakeIndex{matches: []domain.Match{
		{ID: "company_history.txt_0", Score: 0.9, SourceFile: "company_history.txt", Text: "Founded in 2010 in Austin."},
		{ID: "faq.md_3", Score: 0.5, SourceFile: "faq.md", Text: "We answer email within a day."},
		{ID: "company_history.txt_1", Score: 0.4, SourceFile: "company_history.txt", Text: "Moved HQ in 2015."},
	}}
	e := readyEngine(t, emb, comp, idx)

	ans, err := e.Answer(context.Background(), "  When was Acme founded?  ")
	if err != nil {
		t.Fatalf("Answer: %v", err)
	}
	if ans.Response != "Acme was founded in 2010." {
		t.Fatalf("response: %q", ans.Response)
	}
	if strings.Join(ans.Sources, ",") != "company_history.txt,faq.md" {
		t.Fatalf("sources: %v", ans.Sources)
	}
	if emb.Calls() != 1 || idx.queries != 1 || comp.calls != 1 {
		t.Fatalf("calls: embed=%d query=%d complete=%d", emb.Calls(), idx.queries, comp.calls)
	}
	if !strings.Contains(comp.user, "[Source: company_history.txt]\nFounded in 2010 in Austin.") {
		t.Fatalf("prompt missing context:\n%s", comp.user)
	}
	if !strings.Contains(comp.user, "User Question: When was Acme founded?\n") {
		t.Fatalf("prompt should carry the trimmed question:\n%s", comp.user)
	}
	if comp.system != SystemPrompt("") {
		t.Fatalf("system prompt: %q", comp.system)
	}
}

func TestAnswerNoMatchesGivesEmptySources(t *testing.T) {
	comp := &recordingCompleter{reply: "I don't have that information."}
	e := readyEngine(t, &keywordEmbedder{}, comp, &fakeIndex{})
	ans, err := e.Answer(context.Background(), "What is the CEO's shoe size?")
	if err != nil {
		t.Fatalf("Answer: %v", err)
	}
	if ans.Sources == nil || len(ans.Sources) != 0 {
		t.Fatalf("sources should be empty non-nil, got %#v", ans.Sources)
	}
}

func TestAnswerEmptyQuestion(t *testing.T) {
	emb := &keywordEmbedder{}
	e := readyEngine(t, emb, &recordingCompleter{}, &fakeIndex{})
	if _, err := e.Answer(context.Background(), " \t"); !errors.Is(err, ErrEmptyQuestion) {
		t.Fatalf("want ErrEmptyQuestion got %v", err)
	}
	if emb.Calls() != 0 {
		t.Fatalf("embedder should not be called")
	}
}

func TestAnswerQueryFailureIsEngineFailure(t *testing.T) {
	comp := &recordingCompleter{reply: "x"}
	idx := &fakeIndex{queryErr: errors.New("pinecone http 503")}
	e := readyEngine(t, &keywordEmbedder{}, comp, idx)

	ans, err := e.Answer(context.Background(), "When was Acme founded?")
	if !errors.Is(err, ErrEngineFailure) {
		t.Fatalf("want ErrEngineFailure got %v", err)
	}
	if ans.Response != "" || ans.Sources != nil {
		t.Fatalf("no partial answer expected: %+v", ans)
	}
	if comp.calls != 0 {
		t.Fatalf("completer must not run after retrieval failure")
	}
}

func TestAnswerCompletionFailure(t *testing.T) {
	comp := &recordingCompleter{err: errors.New("rate limited")}
	e := readyEngine(t, &keywordEmbedder{}, comp, &fakeIndex{})
	if _, err := e.Answer(context.Background(), "hi"); !errors.Is(err, ErrEngineFailure) {
		t.Fatalf("want ErrEngineFailure got %v", err)
	}
}

func TestFoundedQuestionRetrievesCompanyHistory(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "company_history.txt", "Acme Tech Solutions was founded in 2010. Our history began in a garage.")
	writeFile(t, dir, "products.md", "Our product line and price list. Every product ships with a refund guarantee.")
	writeFile(t, dir, "support.md", "Support hours are 9 to 5. Office closed on weekends.")

	idx, err := chromem.New(logger.NewNop(), chromem.Config{Collection: "acme"})
	if err != nil {
		t.Fatalf("chromem.New: %v", err)
	}
	comp := &recordingCompleter{reply: "It was founded in 2010."}
	e := newTestEngine(t, &keywordEmbedder{}, comp, idx, dir)
	if err := e.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize: %v", err)
	}

	known := map[string]bool{"company_history.txt": true, "products.md": true, "support.md": true}
	var first []string
	for i := 0; i < 3; i++ {
		ans, err := e.Answer(context.Background(), "When was Acme Tech Solutions founded?")
		if err != nil {
			t.Fatalf("Answer: %v", err)
		}
		if len(ans.Sources) == 0 || ans.Sources[0] != "company_history.txt" {
			t.Fatalf("sources should start with company_history.txt, got %v", ans.Sources)
		}
		seen := map[string]bool{}
		for _, s := range ans.Sources {
			if !known[s] {
				t.Fatalf("unknown source %q", s)
			}
			if seen[s] {
				t.Fatalf("duplicate source %q", s)
			}
			seen[s] = true
		}
		if i == 0 {
			first = ans.Sources
		} else if strings.Join(first, ",") != strings.Join(ans.Sources, ",") {
			t.Fatalf("sources changed between identical questions: %v vs %v", first, ans.Sources)
		}
	}
}

type recordingObserver struct {
	mu     sync.Mutex
	stages []string
	state  int
}

func (r *recordingObserver) ObserveStage(stage string, err error, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	status := "ok"
	if err != nil {
		status = "error"
	}
	r.stages = append(r.stages, stage+":"+status)
}

func (r *recordingObserver) SetEngineState(state int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state = state
}

func TestEngineReportsStages(t *testing.T) {
	emb := &keywordEmbedder{}
	idx := &fakeIndex{preexisting: 1, queryErr: errors.New("down")}
	obs := &recordingObserver{}
	ix, err := NewIndexer(logger.NewNop(), emb, idx, IndexerConfig{})
	if err != nil {
		t.Fatalf("NewIndexer: %v", err)
	}
	e, err := NewEngine(logger.NewNop(), emb, &recordingCompleter{}, idx, ix, EngineConfig{Dimension: 9, DataDir: t.TempDir(), Observer: obs})
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	if err := e.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	if obs.state != int(StateReady) {
		t.Fatalf("reported state: got=%d", obs.state)
	}
	_, _ = e.Answer(context.Background(), "price")
	if got := strings.Join(obs.stages, ","); got != "index:ok,embed:ok,retrieve:error" {
		t.Fatalf("stages: %s", got)
	}
}
