package app

import (
	"fmt"

	"github.com/yungbote/rag-chatbot/internal/config"
	"github.com/yungbote/rag-chatbot/internal/domain"
	"github.com/yungbote/rag-chatbot/internal/observability"
	"github.com/yungbote/rag-chatbot/internal/platform/chromem"
	"github.com/yungbote/rag-chatbot/internal/platform/logger"
	"github.com/yungbote/rag-chatbot/internal/platform/ollama"
	"github.com/yungbote/rag-chatbot/internal/platform/openai"
	"github.com/yungbote/rag-chatbot/internal/platform/pgvector"
	"github.com/yungbote/rag-chatbot/internal/platform/pinecone"
	"github.com/yungbote/rag-chatbot/internal/platform/qdrant"
)

type closableIndex interface {
	domain.VectorIndex
	Close() error
}

var (
	newOpenAIClient = func(log *logger.Logger, cfg openai.Config) (llmProvider, error) {
		return openai.New(log, cfg)
	}
	newOllamaClient = func(log *logger.Logger, cfg ollama.Config) (llmProvider, error) {
		return ollama.New(log, cfg)
	}
	newPineconeClient = pinecone.New
	newPineconeIndex  = func(log *logger.Logger, pc pinecone.Client, cfg pinecone.IndexConfig) (domain.VectorIndex, error) {
		return pinecone.NewVectorIndex(log, pc, cfg)
	}
	newQdrantIndex = func(log *logger.Logger, cfg qdrant.Config) (domain.VectorIndex, error) {
		return qdrant.NewVectorIndex(log, cfg)
	}
	newPGVectorIndex = func(log *logger.Logger, cfg pgvector.Config) (closableIndex, error) {
		return pgvector.Open(log, cfg)
	}
	newChromemIndex = func(log *logger.Logger, cfg chromem.Config) (domain.VectorIndex, error) {
		return chromem.New(log, cfg)
	}
)

// ProviderError reports which configured backend failed to construct.
type ProviderError struct {
	Kind     string
	Provider string
	Cause    error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s provider %q bootstrap failed: %v", e.Kind, e.Provider, e.Cause)
}

func (e *ProviderError) Unwrap() error { return e.Cause }

// llmProvider serves both halves of the model contract.
type llmProvider interface {
	domain.Embedder
	domain.Completer
}

func resolveLLMProvider(log *logger.Logger, cfg *config.Config) (llmProvider, error) {
	provider := cfg.LLM.Provider
	log.Info("Selecting LLM provider", "provider", provider)

	var (
		p   llmProvider
		err error
	)
	switch provider {
	case config.LLMProviderOpenAI:
		p, err = newOpenAIClient(log, openai.Config{
			APIKey:      cfg.OpenAI.APIKey,
			BaseURL:     cfg.OpenAI.BaseURL,
			Model:       cfg.OpenAI.Model,
			EmbedModel:  cfg.OpenAI.EmbedModel,
			Temperature: cfg.LLM.Temperature,
			MaxTokens:   cfg.LLM.MaxTokens,
			Timeout:     cfg.OpenAI.Timeout,
		})
	case config.LLMProviderOllama:
		p, err = newOllamaClient(log, ollama.Config{
			URL:         cfg.Ollama.URL,
			Model:       cfg.Ollama.Model,
			EmbedModel:  cfg.Ollama.EmbedModel,
			Temperature: cfg.LLM.Temperature,
			MaxTokens:   cfg.LLM.MaxTokens,
		})
	default:
		err = fmt.Errorf("unsupported LLM provider")
	}
	if err != nil {
		return nil, &ProviderError{Kind: "llm", Provider: provider, Cause: err}
	}
	return p, nil
}

// resolveVectorIndex builds the configured index. The returned close func is
// never nil.
func resolveVectorIndex(log *logger.Logger, cfg *config.Config, metrics *observability.Metrics) (domain.VectorIndex, func() error, error) {
	provider := cfg.Vector.Provider
	noClose := func() error { return nil }
	fail := func(err error) (domain.VectorIndex, func() error, error) {
		log.Error("Vector index bootstrap failed", "provider", provider, "error", err)
		return nil, noClose, &ProviderError{Kind: "vector", Provider: provider, Cause: err}
	}

	var (
		idx     domain.VectorIndex
		closeFn = noClose
	)
	switch provider {
	case config.VectorProviderPinecone:
		log.Info("Selecting vector index", "provider", provider, "index", cfg.Pinecone.IndexName, "namespace", cfg.Pinecone.Namespace)
		pc, err := newPineconeClient(log, pinecone.Config{
			APIKey:     cfg.Pinecone.APIKey,
			APIVersion: cfg.Pinecone.APIVersion,
			BaseURL:    cfg.Pinecone.BaseURL,
			Timeout:    cfg.Pinecone.Timeout,
		})
		if err != nil {
			return fail(err)
		}
		vi, err := newPineconeIndex(log, pc, pinecone.IndexConfig{
			IndexName: cfg.Pinecone.IndexName,
			IndexHost: cfg.Pinecone.IndexHost,
			Namespace: cfg.Pinecone.Namespace,
			Cloud:     cfg.Pinecone.Cloud,
			Region:    cfg.Pinecone.Region,
		})
		if err != nil {
			return fail(err)
		}
		idx = vi
	case config.VectorProviderQdrant:
		log.Info("Selecting vector index", "provider", provider, "qdrant_url", cfg.Qdrant.URL, "collection", cfg.Qdrant.Collection)
		vi, err := newQdrantIndex(log, qdrant.Config{
			URL:        cfg.Qdrant.URL,
			APIKey:     cfg.Qdrant.APIKey,
			Collection: cfg.Qdrant.Collection,
			VectorDim:  cfg.Vector.Dimension,
			Timeout:    cfg.Qdrant.Timeout,
		})
		if err != nil {
			return fail(err)
		}
		idx = vi
	case config.VectorProviderPGVector:
		log.Info("Selecting vector index", "provider", provider, "table", cfg.PGVector.Table)
		vi, err := newPGVectorIndex(log, pgvector.Config{DSN: cfg.PGVector.DSN, Table: cfg.PGVector.Table})
		if err != nil {
			return fail(err)
		}
		idx, closeFn = vi, vi.Close
	case config.VectorProviderChromem:
		log.Info("Selecting vector index", "provider", provider, "collection", cfg.Chromem.Collection, "path", cfg.Chromem.Path)
		vi, err := newChromemIndex(log, chromem.Config{Path: cfg.Chromem.Path, Collection: cfg.Chromem.Collection})
		if err != nil {
			return fail(err)
		}
		idx = vi
	default:
		return fail(fmt.Errorf("unsupported vector provider"))
	}
	return instrumentVectorIndex(provider, idx, metrics), closeFn, nil
}
