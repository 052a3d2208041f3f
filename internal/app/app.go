package app

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/yungbote/rag-chatbot/internal/config"
	"github.com/yungbote/rag-chatbot/internal/domain"
	httpserver "github.com/yungbote/rag-chatbot/internal/http"
	httpH "github.com/yungbote/rag-chatbot/internal/http/handlers"
	"github.com/yungbote/rag-chatbot/internal/observability"
	"github.com/yungbote/rag-chatbot/internal/platform/logger"
	"github.com/yungbote/rag-chatbot/internal/rag"
)

// Components is the RAG object graph shared by the server and the indexer CLI.
type Components struct {
	LLM     llmProvider
	Index   domain.VectorIndex
	Indexer *rag.Indexer
	Engine  *rag.Engine

	closeIndex func() error
	closeOnce  sync.Once
	closeErr   error
}

// Close releases the vector index. Repeated calls return the first result.
func (c *Components) Close() error {
	if c == nil || c.closeIndex == nil {
		return nil
	}
	c.closeOnce.Do(func() { c.closeErr = c.closeIndex() })
	return c.closeErr
}

// BuildOptions adjust a build for one-off tools.
type BuildOptions struct {
	Reindex bool
	DryRun  bool
	DataDir string
}

func Build(log *logger.Logger, cfg *config.Config, metrics *observability.Metrics, opts BuildOptions) (*Components, error) {
	llm, err := resolveLLMProvider(log, cfg)
	if err != nil {
		return nil, err
	}
	index, closeIndex, err := resolveVectorIndex(log, cfg, metrics)
	if err != nil {
		return nil, err
	}
	fail := func(err error) (*Components, error) {
		_ = closeIndex()
		return nil, err
	}

	indexer, err := rag.NewIndexer(log, llm, index, rag.IndexerConfig{
		ChunkWords:  cfg.RAG.ChunkWords,
		BatchSize:   cfg.RAG.UpsertBatch,
		Concurrency: cfg.RAG.IndexConcurrency,
		DryRun:      opts.DryRun,
	})
	if err != nil {
		return fail(fmt.Errorf("init indexer: %w", err))
	}
	dataDir := cfg.RAG.DataDir
	if opts.DataDir != "" {
		dataDir = opts.DataDir
	}
	engineCfg := rag.EngineConfig{
		TopK:          cfg.RAG.TopK,
		Dimension:     cfg.Vector.Dimension,
		DataDir:       dataDir,
		Reindex:       cfg.RAG.Reindex || opts.Reindex,
		AssistantName: cfg.LLM.AssistantName,
	}
	if metrics != nil {
		engineCfg.Observer = metrics
	}
	engine, err := rag.NewEngine(log, llm, llm, index, indexer, engineCfg)
	if err != nil {
		return fail(fmt.Errorf("init engine: %w", err))
	}
	return &Components{LLM: llm, Index: index, Indexer: indexer, Engine: engine, closeIndex: closeIndex}, nil
}

type App struct {
	Log        *logger.Logger
	Cfg        *config.Config
	Metrics    *observability.Metrics
	Components *Components
	Server     *httpserver.Server
}

func New(log *logger.Logger, cfg *config.Config) (*App, error) {
	if log == nil || cfg == nil {
		return nil, errors.New("logger and config required")
	}
	var metrics *observability.Metrics
	if cfg.Otel.MetricsEnabled {
		metrics = observability.NewMetrics()
	}
	comps, err := Build(log, cfg, metrics, BuildOptions{})
	if err != nil {
		return nil, err
	}

	serviceName := ""
	if cfg.Otel.Enabled {
		serviceName = cfg.Otel.ServiceName
	}
	server := httpserver.NewServer(log, httpserver.ServerConfig{
		Addr:              cfg.HTTP.Addr,
		ReadHeaderTimeout: cfg.HTTP.ReadHeaderTimeout,
		IdleTimeout:       cfg.HTTP.IdleTimeout,
		ShutdownTimeout:   cfg.HTTP.ShutdownTimeout,
	}, httpserver.RouterConfig{
		Log:            log,
		ServiceName:    serviceName,
		AllowedOrigins: cfg.HTTP.AllowedOrigins,
		MaxBodyBytes:   cfg.HTTP.MaxRequestBytes,
		Metrics:        metrics,
		ChatHandler:    httpH.NewChatHandler(log, comps.Engine),
		HealthHandler:  httpH.NewHealthHandler(comps.Engine),
	})

	return &App{Log: log, Cfg: cfg, Metrics: metrics, Components: comps, Server: server}, nil
}

// Run starts serving immediately and initializes the engine in the background;
// chat requests get 503 until initialization finishes.
func (a *App) Run(ctx context.Context) error {
	if a == nil || a.Server == nil {
		return fmt.Errorf("app not initialized")
	}
	shutdownOtel := observability.InitOTel(ctx, a.Log, a.Cfg.Env, a.Cfg.Otel)
	defer func() {
		if err := shutdownOtel(context.Background()); err != nil {
			a.Log.Warn("otel shutdown failed", "error", err)
		}
	}()

	initCtx, cancelInit := context.WithCancel(ctx)
	defer cancelInit()
	initDone := make(chan struct{})
	go func() {
		defer close(initDone)
		if err := a.Components.Engine.Initialize(initCtx); err != nil && !errors.Is(err, rag.ErrAlreadyInitialized) {
			a.Log.Error("engine unavailable; /api/chat will answer 503", "error", err)
		}
	}()

	err := a.Server.Run(ctx)
	// A server that stopped on its own abandons the bootstrap.
	cancelInit()
	<-initDone
	return err
}

func (a *App) Close() {
	if a == nil {
		return
	}
	if a.Components != nil {
		if err := a.Components.Close(); err != nil {
			a.Log.Warn("vector index close failed", "error", err)
		}
	}
	a.Log.Sync()
}
