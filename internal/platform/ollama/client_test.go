package ollama

import (
	"testing"

	"github.com/yungbote/rag-chatbot/internal/platform/logger"
)

func TestNewValidatesConfig(t *testing.T) {
	cases := []struct {
		name string
		cfg  Config
	}{
		{"missing url", Config{Model: "llama3.2", EmbedModel: "nomic-embed-text"}},
		{"missing model", Config{URL: "http://localhost:11434", EmbedModel: "nomic-embed-text"}},
		{"missing embed model", Config{URL: "http://localhost:11434", Model: "llama3.2"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := New(logger.NewNop(), tc.cfg); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}

func TestNewBuildsClient(t *testing.T) {
	c, err := New(logger.NewNop(), Config{
		URL:        "http://localhost:11434/",
		Model:      "llama3.2",
		EmbedModel: "nomic-embed-text",
		MaxTokens:  500,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if c.model != "llama3.2" || c.maxTokens != 500 {
		t.Fatalf("unexpected client: model=%q max_tokens=%d", c.model, c.maxTokens)
	}
}
