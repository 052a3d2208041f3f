package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/yungbote/rag-chatbot/internal/platform/envutil"
)

func Default() *Config {
	return &Config{
		Env: "development",
		HTTP: HTTPConfig{
			Addr:              ":8000",
			ReadHeaderTimeout: 5 * time.Second,
			IdleTimeout:       2 * time.Minute,
			ShutdownTimeout:   15 * time.Second,
			MaxRequestBytes:   1 << 20,
			AllowedOrigins:    []string{"http://localhost:3000", "http://localhost:5173"},
		},
		LLM: LLMConfig{
			Provider:      LLMProviderOpenAI,
			Temperature:   0.7,
			MaxTokens:     500,
			AssistantName: "Acme Tech Solutions",
		},
		OpenAI: OpenAIConfig{
			Model:      "gpt-3.5-turbo",
			EmbedModel: "text-embedding-3-small",
			Timeout:    60 * time.Second,
		},
		Ollama: OllamaConfig{
			URL:        "http://localhost:11434",
			Model:      "llama3.2",
			EmbedModel: "nomic-embed-text",
		},
		Vector: VectorConfig{
			Provider:  VectorProviderPinecone,
			Dimension: 1536,
		},
		Pinecone: PineconeConfig{
			IndexName: "acme-tech-chatbot",
			Cloud:     "aws",
			Region:    "us-east-1",
			Timeout:   30 * time.Second,
		},
		Qdrant: QdrantConfig{
			URL:        "http://localhost:6333",
			Collection: "acme-tech-chatbot",
			Timeout:    10 * time.Second,
		},
		PGVector: PGVectorConfig{
			Table: "rag_chunks",
		},
		Chromem: ChromemConfig{
			Collection: "acme-tech-chatbot",
		},
		RAG: RAGConfig{
			DataDir:          "./data",
			TopK:             3,
			ChunkWords:       512,
			UpsertBatch:      100,
			IndexConcurrency: 4,
		},
		Otel: OtelConfig{
			ServiceName: "rag-chatbot",
			SampleRatio: 1,
		},
	}
}

// Load layers defaults, an optional YAML file and environment overrides, then validates.
func Load() (*Config, error) {
	cfg, err := load()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func load() (*Config, error) {
	cfg := Default()

	cfgPath := strings.TrimSpace(os.Getenv("RAG_CONFIG_PATH"))
	if cfgPath == "" {
		if wd, err := os.Getwd(); err == nil {
			p := filepath.Join(wd, "config", "config.yaml")
			if _, err := os.Stat(p); err == nil {
				cfgPath = p
			}
		}
	}
	if cfgPath != "" {
		if err := loadFile(cfgPath, cfg); err != nil {
			return nil, err
		}
	}

	applyEnv(cfg)
	normalize(cfg)
	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	// Decoding onto the defaults keeps every field the file leaves out.
	if err := yaml.Unmarshal(b, cfg); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func applyEnv(cfg *Config) {
	cfg.Env = envutil.String("APP_ENV", cfg.Env)

	if port := envutil.String("PORT", ""); port != "" {
		cfg.HTTP.Addr = ":" + strings.TrimPrefix(port, ":")
	}
	cfg.HTTP.Addr = envutil.String("HTTP_ADDR", cfg.HTTP.Addr)
	cfg.HTTP.AllowedOrigins = envutil.List("CORS_ALLOWED_ORIGINS", cfg.HTTP.AllowedOrigins)

	cfg.LLM.Provider = envutil.String("LLM_PROVIDER", cfg.LLM.Provider)
	cfg.LLM.Temperature = envutil.Float("LLM_TEMPERATURE", cfg.LLM.Temperature)
	cfg.LLM.MaxTokens = envutil.Int("LLM_MAX_TOKENS", cfg.LLM.MaxTokens)
	cfg.LLM.AssistantName = envutil.String("ASSISTANT_NAME", cfg.LLM.AssistantName)

	cfg.OpenAI.APIKey = envutil.String("OPENAI_API_KEY", cfg.OpenAI.APIKey)
	cfg.OpenAI.BaseURL = envutil.String("OPENAI_BASE_URL", cfg.OpenAI.BaseURL)
	cfg.OpenAI.Model = envutil.String("OPENAI_MODEL", cfg.OpenAI.Model)
	cfg.OpenAI.EmbedModel = envutil.String("OPENAI_EMBED_MODEL", cfg.OpenAI.EmbedModel)
	cfg.OpenAI.Timeout = envutil.Seconds("OPENAI_TIMEOUT_SECONDS", cfg.OpenAI.Timeout)

	cfg.Ollama.URL = envutil.String("OLLAMA_URL", cfg.Ollama.URL)
	cfg.Ollama.Model = envutil.String("OLLAMA_MODEL", cfg.Ollama.Model)
	cfg.Ollama.EmbedModel = envutil.String("OLLAMA_EMBED_MODEL", cfg.Ollama.EmbedModel)

	cfg.Vector.Provider = envutil.String("VECTOR_PROVIDER", cfg.Vector.Provider)
	cfg.Vector.Dimension = envutil.Int("EMBEDDING_DIMENSION", cfg.Vector.Dimension)

	cfg.Pinecone.APIKey = envutil.String("PINECONE_API_KEY", cfg.Pinecone.APIKey)
	cfg.Pinecone.BaseURL = envutil.String("PINECONE_BASE_URL", cfg.Pinecone.BaseURL)
	cfg.Pinecone.APIVersion = envutil.String("PINECONE_API_VERSION", cfg.Pinecone.APIVersion)
	cfg.Pinecone.IndexName = envutil.String("PINECONE_INDEX_NAME", cfg.Pinecone.IndexName)
	cfg.Pinecone.IndexHost = envutil.String("PINECONE_INDEX_HOST", cfg.Pinecone.IndexHost)
	cfg.Pinecone.Namespace = envutil.String("PINECONE_NAMESPACE", cfg.Pinecone.Namespace)
	cfg.Pinecone.Cloud = envutil.String("PINECONE_CLOUD", cfg.Pinecone.Cloud)
	cfg.Pinecone.Region = envutil.String("PINECONE_REGION", cfg.Pinecone.Region)

	cfg.Qdrant.URL = envutil.String("QDRANT_URL", cfg.Qdrant.URL)
	cfg.Qdrant.APIKey = envutil.String("QDRANT_API_KEY", cfg.Qdrant.APIKey)
	cfg.Qdrant.Collection = envutil.String("QDRANT_COLLECTION", cfg.Qdrant.Collection)

	cfg.PGVector.DSN = envutil.String("PGVECTOR_DSN", cfg.PGVector.DSN)
	cfg.PGVector.Table = envutil.String("PGVECTOR_TABLE", cfg.PGVector.Table)

	cfg.Chromem.Path = envutil.String("CHROMEM_PATH", cfg.Chromem.Path)
	cfg.Chromem.Collection = envutil.String("CHROMEM_COLLECTION", cfg.Chromem.Collection)

	cfg.RAG.DataDir = envutil.String("RAG_DATA_DIR", cfg.RAG.DataDir)
	cfg.RAG.TopK = envutil.Int("RAG_TOP_K", cfg.RAG.TopK)
	cfg.RAG.ChunkWords = envutil.Int("RAG_CHUNK_WORDS", cfg.RAG.ChunkWords)
	cfg.RAG.UpsertBatch = envutil.Int("RAG_UPSERT_BATCH", cfg.RAG.UpsertBatch)
	cfg.RAG.IndexConcurrency = envutil.Int("RAG_INDEX_CONCURRENCY", cfg.RAG.IndexConcurrency)
	cfg.RAG.Reindex = envutil.Bool("REINDEX", cfg.RAG.Reindex)

	cfg.Otel.ServiceName = envutil.String("OTEL_SERVICE_NAME", cfg.Otel.ServiceName)
	cfg.Otel.Version = envutil.String("SERVICE_VERSION", cfg.Otel.Version)
	cfg.Otel.Enabled = envutil.Bool("OTEL_ENABLED", cfg.Otel.Enabled)
	cfg.Otel.Endpoint = envutil.String("OTEL_EXPORTER_OTLP_ENDPOINT", cfg.Otel.Endpoint)
	cfg.Otel.Insecure = envutil.Bool("OTEL_EXPORTER_OTLP_INSECURE", cfg.Otel.Insecure)
	cfg.Otel.SampleRatio = envutil.Float("OTEL_SAMPLER_RATIO", cfg.Otel.SampleRatio)
	cfg.Otel.MetricsEnabled = envutil.Bool("METRICS_ENABLED", cfg.Otel.MetricsEnabled)
}

func normalize(cfg *Config) {
	cfg.LLM.Provider = strings.ToLower(strings.TrimSpace(cfg.LLM.Provider))
	cfg.Vector.Provider = strings.ToLower(strings.TrimSpace(cfg.Vector.Provider))
	cfg.OpenAI.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.OpenAI.BaseURL), "/")
	cfg.Qdrant.URL = strings.TrimRight(strings.TrimSpace(cfg.Qdrant.URL), "/")
	if cfg.Env == "" {
		cfg.Env = "development"
	}
	if cfg.Otel.SampleRatio < 0 {
		cfg.Otel.SampleRatio = 0
	}
	if cfg.Otel.SampleRatio > 1 {
		cfg.Otel.SampleRatio = 1
	}
	if cfg.HTTP.MaxRequestBytes <= 0 {
		cfg.HTTP.MaxRequestBytes = 1 << 20
	}
}

// LoadOffline is Load for tools that never call a provider. Provider
// credentials are not required.
func LoadOffline() (*Config, error) {
	cfg, err := load()
	if err != nil {
		return nil, err
	}
	if err := errors.Join(cfg.validateSettings()...); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports configuration errors. Credentials are only required for the
// providers that are actually selected.
func (c *Config) Validate() error {
	errs := c.validateProviders()
	errs = append(errs, c.validateSettings()...)
	return errors.Join(errs...)
}

func (c *Config) validateProviders() []error {
	var errs []error

	switch c.LLM.Provider {
	case LLMProviderOpenAI:
		if c.OpenAI.APIKey == "" {
			errs = append(errs, errors.New("OPENAI_API_KEY is required when LLM_PROVIDER=openai"))
		}
	case LLMProviderOllama:
		if c.Ollama.URL == "" {
			errs = append(errs, errors.New("OLLAMA_URL is required when LLM_PROVIDER=ollama"))
		}
	default:
		errs = append(errs, fmt.Errorf("unsupported LLM_PROVIDER %q (expected openai|ollama)", c.LLM.Provider))
	}

	switch c.Vector.Provider {
	case VectorProviderPinecone:
		if c.Pinecone.APIKey == "" {
			errs = append(errs, errors.New("PINECONE_API_KEY is required when VECTOR_PROVIDER=pinecone"))
		}
		if c.Pinecone.IndexName == "" {
			errs = append(errs, errors.New("PINECONE_INDEX_NAME must not be empty"))
		}
	case VectorProviderQdrant:
		if c.Qdrant.URL == "" || c.Qdrant.Collection == "" {
			errs = append(errs, errors.New("QDRANT_URL and QDRANT_COLLECTION are required when VECTOR_PROVIDER=qdrant"))
		}
	case VectorProviderPGVector:
		if c.PGVector.DSN == "" {
			errs = append(errs, errors.New("PGVECTOR_DSN is required when VECTOR_PROVIDER=pgvector"))
		}
	case VectorProviderChromem:
		if c.Chromem.Collection == "" {
			errs = append(errs, errors.New("CHROMEM_COLLECTION must not be empty"))
		}
	default:
		errs = append(errs, fmt.Errorf("unsupported VECTOR_PROVIDER %q (expected pinecone|qdrant|pgvector|chromem)", c.Vector.Provider))
	}
	return errs
}

func (c *Config) validateSettings() []error {
	var errs []error
	if c.Vector.Dimension <= 0 {
		errs = append(errs, fmt.Errorf("EMBEDDING_DIMENSION must be positive, got %d", c.Vector.Dimension))
	}
	if c.RAG.TopK <= 0 {
		errs = append(errs, fmt.Errorf("RAG_TOP_K must be positive, got %d", c.RAG.TopK))
	}
	if c.RAG.ChunkWords <= 0 {
		errs = append(errs, fmt.Errorf("RAG_CHUNK_WORDS must be positive, got %d", c.RAG.ChunkWords))
	}
	if c.RAG.UpsertBatch <= 0 {
		errs = append(errs, fmt.Errorf("RAG_UPSERT_BATCH must be positive, got %d", c.RAG.UpsertBatch))
	}
	if c.RAG.IndexConcurrency <= 0 {
		errs = append(errs, fmt.Errorf("RAG_INDEX_CONCURRENCY must be positive, got %d", c.RAG.IndexConcurrency))
	}
	if c.LLM.MaxTokens <= 0 {
		errs = append(errs, fmt.Errorf("LLM_MAX_TOKENS must be positive, got %d", c.LLM.MaxTokens))
	}
	if strings.TrimSpace(c.HTTP.Addr) == "" {
		errs = append(errs, errors.New("http addr must not be empty"))
	}
	return errs
}
