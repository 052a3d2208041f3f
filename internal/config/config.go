package config

import "time"

const (
	LLMProviderOpenAI = "openai"
	LLMProviderOllama = "ollama"

	VectorProviderPinecone = "pinecone"
	VectorProviderQdrant   = "qdrant"
	VectorProviderPGVector = "pgvector"
	VectorProviderChromem  = "chromem"
)

type HTTPConfig struct {
	Addr              string        `yaml:"addr"`
	ReadHeaderTimeout time.Duration `yaml:"read_header_timeout"`
	IdleTimeout       time.Duration `yaml:"idle_timeout"`
	ShutdownTimeout   time.Duration `yaml:"shutdown_timeout"`
	MaxRequestBytes   int64         `yaml:"max_request_bytes"`
	AllowedOrigins    []string      `yaml:"allowed_origins"`
}

type LLMConfig struct {
	// Provider serves both embeddings and completions.
	Provider      string  `yaml:"provider"`
	Temperature   float64 `yaml:"temperature"`
	MaxTokens     int     `yaml:"max_tokens"`
	AssistantName string  `yaml:"assistant_name"`
}

type OpenAIConfig struct {
	APIKey     string        `yaml:"api_key"`
	BaseURL    string        `yaml:"base_url"`
	Model      string        `yaml:"model"`
	EmbedModel string        `yaml:"embed_model"`
	Timeout    time.Duration `yaml:"timeout"`
}

type OllamaConfig struct {
	URL        string `yaml:"url"`
	Model      string `yaml:"model"`
	EmbedModel string `yaml:"embed_model"`
}

type VectorConfig struct {
	Provider  string `yaml:"provider"`
	Dimension int    `yaml:"dimension"`
}

type PineconeConfig struct {
	APIKey     string        `yaml:"api_key"`
	BaseURL    string        `yaml:"base_url"`
	APIVersion string        `yaml:"api_version"`
	IndexName  string        `yaml:"index_name"`
	IndexHost  string        `yaml:"index_host"`
	Namespace  string        `yaml:"namespace"`
	Cloud      string        `yaml:"cloud"`
	Region     string        `yaml:"region"`
	Timeout    time.Duration `yaml:"timeout"`
}

type QdrantConfig struct {
	URL        string        `yaml:"url"`
	APIKey     string        `yaml:"api_key"`
	Collection string        `yaml:"collection"`
	Timeout    time.Duration `yaml:"timeout"`
}

type PGVectorConfig struct {
	DSN   string `yaml:"dsn"`
	Table string `yaml:"table"`
}

type ChromemConfig struct {
	// Path enables on-disk persistence; empty keeps the index in memory.
	Path       string `yaml:"path"`
	Collection string `yaml:"collection"`
}

type RAGConfig struct {
	DataDir          string `yaml:"data_dir"`
	TopK             int    `yaml:"top_k"`
	ChunkWords       int    `yaml:"chunk_words"`
	UpsertBatch      int    `yaml:"upsert_batch"`
	IndexConcurrency int    `yaml:"index_concurrency"`
	Reindex          bool   `yaml:"reindex"`
}

type OtelConfig struct {
	Enabled        bool    `yaml:"enabled"`
	ServiceName    string  `yaml:"service_name"`
	Version        string  `yaml:"version"`
	Endpoint       string  `yaml:"endpoint"`
	Insecure       bool    `yaml:"insecure"`
	SampleRatio    float64 `yaml:"sample_ratio"`
	MetricsEnabled bool    `yaml:"metrics_enabled"`
}

type Config struct {
	Env      string         `yaml:"env"`
	HTTP     HTTPConfig     `yaml:"http"`
	LLM      LLMConfig      `yaml:"llm"`
	OpenAI   OpenAIConfig   `yaml:"openai"`
	Ollama   OllamaConfig   `yaml:"ollama"`
	Vector   VectorConfig   `yaml:"vector"`
	Pinecone PineconeConfig `yaml:"pinecone"`
	Qdrant   QdrantConfig   `yaml:"qdrant"`
	PGVector PGVectorConfig `yaml:"pgvector"`
	Chromem  ChromemConfig  `yaml:"chromem"`
	RAG      RAGConfig      `yaml:"rag"`
	Otel     OtelConfig     `yaml:"otel"`
}
