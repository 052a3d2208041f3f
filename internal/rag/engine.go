package rag

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/yungbote/rag-chatbot/internal/domain"
	"github.com/yungbote/rag-chatbot/internal/platform/logger"
)

var tracer = otel.Tracer("github.com/yungbote/rag-chatbot/internal/rag")

var (
	ErrNotReady           = errors.New("RAG engine not initialized")
	ErrEmptyQuestion      = errors.New("question must not be empty")
	ErrEngineFailure      = errors.New("RAG engine request failed")
	ErrAlreadyInitialized = errors.New("RAG engine initialization already started")
)

type State int32

const (
	StateUninitialized State = iota
	StateReady
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	default:
		return "uninitialized"
	}
}

// StageObserver receives per-stage timings. *observability.Metrics satisfies it.
type StageObserver interface {
	ObserveStage(stage string, err error, dur time.Duration)
	SetEngineState(state int)
}

type nopObserver struct{}

func (nopObserver) ObserveStage(string, error, time.Duration) {}
func (nopObserver) SetEngineState(int) {}

type EngineConfig struct {
	TopK          int
	Dimension     int
	DataDir       string
	Reindex       bool
	AssistantName string
	Observer      StageObserver
}

type Answer struct {
	Response string
	Sources  []string
}

// Engine answers questions from indexed documents. It must be initialized once
// before Answer succeeds.
type Engine struct {
	log       *logger.Logger
	embedder  domain.Embedder
	completer domain.Completer
	index     domain.VectorIndex
	indexer   *Indexer
	cfg       EngineConfig

	mu      sync.RWMutex
	started bool
	state   State
	initErr error
}

func NewEngine(
	log *logger.Logger,
	embedder domain.Embedder,
	completer domain.Completer,
	index domain.VectorIndex,
	indexer *Indexer,
	cfg EngineConfig,
) (*Engine, error) {
	if log == nil {
		return nil, errors.New("logger required")
	}
	if embedder == nil || completer == nil || index == nil || indexer == nil {
		return nil, errors.New("embedder, completer, vector index and indexer are required")
	}
	if cfg.TopK <= 0 {
		cfg.TopK = 3
	}
	if cfg.Dimension <= 0 {
		return nil, errors.New("embedding dimension must be positive")
	}
	if cfg.Observer == nil {
		cfg.Observer = nopObserver{}
	}
	return &Engine{
		log:       log.With("service", "RAGEngine"),
		embedder:  embedder,
		completer: completer,
		index:     index,
		indexer:   indexer,
		cfg:       cfg,
	}, nil
}

func (e *Engine) State() State {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.state
}

// InitError is the cause of a failed initialization, nil otherwise.
func (e *Engine) InitError() error {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.initErr
}

// Initialize prepares the vector index and indexes the data directory when
// needed. Only the first call does any work.
func (e *Engine) Initialize(ctx context.Context) error {
	e.mu.Lock()
	if e.started {
		e.mu.Unlock()
		return ErrAlreadyInitialized
	}
	e.started = true
	e.mu.Unlock()

	start := time.Now()
	e.log.Info("Initializing RAG engine", "data_dir", e.cfg.DataDir, "dimension", e.cfg.Dimension, "reindex", e.cfg.Reindex)
	res, err := e.indexer.Bootstrap(ctx, e.cfg.DataDir, e.cfg.Dimension, e.cfg.Reindex)
	e.cfg.Observer.ObserveStage("index", err, time.Since(start))

	e.mu.Lock()
	defer e.mu.Unlock()
	defer func() { e.cfg.Observer.SetEngineState(int(e.state)) }()
	if err != nil {
		e.state = StateFailed
		e.initErr = err
		e.log.Error("RAG engine initialization failed", "error", err, "duration_ms", time.Since(start).Milliseconds())
		return err
	}
	e.state = StateReady
	e.log.Info("RAG engine ready",
		"existing_vectors", res.Existing,
		"skipped_indexing", res.Skipped,
		"files", res.Stats.Files,
		"chunks", res.Stats.Chunks,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return nil
}

// Answer embeds the question, retrieves the nearest chunks and asks the model
// once. Sources are the distinct matched files in retrieval order.
func (e *Engine) Answer(ctx context.Context, question string) (Answer, error) {
	if e.State() != StateReady {
		return Answer{}, ErrNotReady
	}
	q := strings.TrimSpace(question)
	if q == "" {
		return Answer{}, ErrEmptyQuestion
	}

	ctx, span := tracer.Start(ctx, "rag.answer")
	defer span.End()
	fail := func(stage string, err error) (Answer, error) {
		span.RecordError(err)
		span.SetStatus(codes.Error, stage)
		e.log.Error("RAG request failed", "stage", stage, "error", err)
		return Answer{}, fmt.Errorf("%w: %s: %w", ErrEngineFailure, stage, err)
	}

	stageStart := time.Now()
	embedCtx, embedSpan := tracer.Start(ctx, "rag.embed")
	vecs, err := e.embedder.Embed(embedCtx, []string{q})
	embedSpan.End()
	e.cfg.Observer.ObserveStage("embed", err, time.Since(stageStart))
	if err != nil {
		return fail("embed", err)
	}
	if len(vecs) != 1 || len(vecs[0]) == 0 {
		return fail("embed", fmt.Errorf("expected one vector, got %d", len(vecs)))
	}

	stageStart = time.Now()
	retrieveCtx, retrieveSpan := tracer.Start(ctx, "rag.retrieve")
	matches, err := e.index.Query(retrieveCtx, vecs[0], e.cfg.TopK)
	retrieveSpan.SetAttributes(attribute.Int("rag.matches", len(matches)))
	retrieveSpan.End()
	e.cfg.Observer.ObserveStage("retrieve", err, time.Since(stageStart))
	if err != nil {
		return fail("retrieve", err)
	}

	prompt := BuildUserPrompt(e.cfg.AssistantName, BuildContext(matches), q)
	stageStart = time.Now()
	completeCtx, completeSpan := tracer.Start(ctx, "rag.complete")
	text, err := e.completer.Complete(completeCtx, SystemPrompt(e.cfg.AssistantName), prompt)
	completeSpan.End()
	e.cfg.Observer.ObserveStage("complete", err, time.Since(stageStart))
	if err != nil {
		return fail("complete", err)
	}

	sources := UniqueSources(matches)
	span.SetAttributes(attribute.Int("rag.sources", len(sources)))
	e.log.Debug("RAG answer produced", "question", q, "matches", len(matches), "sources", sources)
	return Answer{Response: text, Sources: sources}, nil
}
