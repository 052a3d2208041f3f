package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("RAG_CONFIG_PATH", "")
	t.Chdir(t.TempDir())
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("PINECONE_API_KEY", "pc-test")
}

func TestLoadDefaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.HTTP.Addr != ":8000" {
		t.Fatalf("addr: got=%q", cfg.HTTP.Addr)
	}
	if cfg.Pinecone.IndexName != "acme-tech-chatbot" {
		t.Fatalf("index: got=%q", cfg.Pinecone.IndexName)
	}
	if cfg.OpenAI.EmbedModel != "text-embedding-3-small" || cfg.Vector.Dimension != 1536 {
		t.Fatalf("embedding defaults: %q %d", cfg.OpenAI.EmbedModel, cfg.Vector.Dimension)
	}
	if cfg.RAG.TopK != 3 || cfg.RAG.ChunkWords != 512 || cfg.RAG.UpsertBatch != 100 {
		t.Fatalf("rag defaults: %+v", cfg.RAG)
	}
	if cfg.LLM.Temperature != 0.7 || cfg.LLM.MaxTokens != 500 {
		t.Fatalf("llm defaults: %+v", cfg.LLM)
	}
}

func TestLoadMissingCredentials(t *testing.T) {
	t.Setenv("RAG_CONFIG_PATH", "")
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("PINECONE_API_KEY", "")
	t.Chdir(t.TempDir())

	_, err := Load()
	if err == nil {
		t.Fatalf("expected error for missing credentials")
	}
	for _, want := range []string{"OPENAI_API_KEY", "PINECONE_API_KEY"} {
		if !strings.Contains(err.Error(), want) {
			t.Fatalf("error %q should mention %s", err, want)
		}
	}
}

func TestLoadFileThenEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	body := `
http:
  addr: ":9000"
  shutdown_timeout: 3s
vector:
  provider: chromem
rag:
  data_dir: /srv/docs
  top_k: 5
`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("RAG_CONFIG_PATH", path)
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("PINECONE_API_KEY", "")
	t.Setenv("RAG_TOP_K", "4")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.HTTP.Addr != ":9000" {
		t.Fatalf("addr: got=%q", cfg.HTTP.Addr)
	}
	if cfg.HTTP.ShutdownTimeout != 3*time.Second {
		t.Fatalf("shutdown timeout: got=%v", cfg.HTTP.ShutdownTimeout)
	}
	if cfg.HTTP.ReadHeaderTimeout != 5*time.Second {
		t.Fatalf("unset file field should keep default, got=%v", cfg.HTTP.ReadHeaderTimeout)
	}
	if cfg.Vector.Provider != VectorProviderChromem {
		t.Fatalf("provider: got=%q", cfg.Vector.Provider)
	}
	if cfg.RAG.DataDir != "/srv/docs" {
		t.Fatalf("data dir: got=%q", cfg.RAG.DataDir)
	}
	if cfg.RAG.TopK != 4 {
		t.Fatalf("env should override file top_k: got=%d", cfg.RAG.TopK)
	}
}

func TestLoadPortEnv(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("PORT", "8123")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.HTTP.Addr != ":8123" {
		t.Fatalf("addr: got=%q", cfg.HTTP.Addr)
	}
}

func TestValidateRejectsUnknownProviders(t *testing.T) {
	cfg := Default()
	cfg.OpenAI.APIKey = "sk"
	cfg.Vector.Provider = "milvus"
	cfg.LLM.Provider = "anthropic"
	err := cfg.Validate()
	if err == nil {
		t.Fatalf("expected validation error")
	}
	if !strings.Contains(err.Error(), "milvus") || !strings.Contains(err.Error(), "anthropic") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestEnvironmentComesFromAppEnv(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("LOG_MODE", "prod")
	t.Setenv("APP_ENV", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Env != "development" {
		t.Fatalf("LOG_MODE must not set the environment: got=%q", cfg.Env)
	}

	t.Setenv("APP_ENV", "staging")
	cfg, err = Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Env != "staging" {
		t.Fatalf("env: got=%q", cfg.Env)
	}
}

func TestLoadOfflineSkipsProviderCredentials(t *testing.T) {
	t.Setenv("RAG_CONFIG_PATH", "")
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("PINECONE_API_KEY", "")
	t.Chdir(t.TempDir())

	if _, err := Load(); err == nil {
		t.Fatalf("Load should still require credentials")
	}
	cfg, err := LoadOffline()
	if err != nil {
		t.Fatalf("LoadOffline: %v", err)
	}
	if cfg.RAG.ChunkWords != 512 {
		t.Fatalf("chunk words: got=%d", cfg.RAG.ChunkWords)
	}

	t.Setenv("RAG_CHUNK_WORDS", "0")
	if _, err := LoadOffline(); err == nil || !strings.Contains(err.Error(), "RAG_CHUNK_WORDS") {
		t.Fatalf("LoadOffline should still check settings: %v", err)
	}
}
