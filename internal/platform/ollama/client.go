package ollama

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms"
	lcollama "github.com/tmc/langchaingo/llms/ollama"

	"github.com/yungbote/rag-chatbot/internal/platform/ctxutil"
	"github.com/yungbote/rag-chatbot/internal/platform/logger"
)

type Config struct {
	URL         string
	Model       string
	EmbedModel  string
	Temperature float64
	MaxTokens   int
}

// Client runs chat completions and embeddings against a local Ollama server.
type Client struct {
	log         *logger.Logger
	chat        llms.Model
	embedder    embeddings.Embedder
	model       string
	temperature float64
	maxTokens   int
}

func New(log *logger.Logger, cfg Config) (*Client, error) {
	if log == nil {
		return nil, errors.New("logger required")
	}
	cfg.URL = strings.TrimRight(strings.TrimSpace(cfg.URL), "/")
	if cfg.URL == "" {
		return nil, errors.New("missing OLLAMA_URL")
	}
	if strings.TrimSpace(cfg.Model) == "" || strings.TrimSpace(cfg.EmbedModel) == "" {
		return nil, errors.New("ollama model and embed model are required")
	}

	chatLLM, err := lcollama.New(
		lcollama.WithServerURL(cfg.URL),
		lcollama.WithModel(cfg.Model),
	)
	if err != nil {
		return nil, fmt.Errorf("init ollama chat model: %w", err)
	}
	embedLLM, err := lcollama.New(
		lcollama.WithServerURL(cfg.URL),
		lcollama.WithModel(cfg.EmbedModel),
	)
	if err != nil {
		return nil, fmt.Errorf("init ollama embed model: %w", err)
	}
	embedder, err := embeddings.NewEmbedder(embedLLM)
	if err != nil {
		return nil, fmt.Errorf("init ollama embedder: %w", err)
	}

	log.Info("Ollama client configured", "url", cfg.URL, "model", cfg.Model, "embed_model", cfg.EmbedModel)
	return &Client{
		log:         log.With("client", "Ollama"),
		chat:        chatLLM,
		embedder:    embedder,
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
	}, nil
}

func (c *Client) Embed(ctx context.Context, inputs []string) ([][]float32, error) {
	if len(inputs) == 0 {
		return [][]float32{}, nil
	}
	vecs, err := c.embedder.EmbedDocuments(ctxutil.Default(ctx), inputs)
	if err != nil {
		return nil, fmt.Errorf("ollama embeddings: %w", err)
	}
	if len(vecs) != len(inputs) {
		return nil, fmt.Errorf("ollama embeddings: requested=%d returned=%d", len(inputs), len(vecs))
	}
	return vecs, nil
}

func (c *Client) Complete(ctx context.Context, system, user string) (string, error) {
	msgs := make([]llms.MessageContent, 0, 2)
	if strings.TrimSpace(system) != "" {
		msgs = append(msgs, llms.TextParts(llms.ChatMessageTypeSystem, system))
	}
	msgs = append(msgs, llms.TextParts(llms.ChatMessageTypeHuman, user))

	opts := []llms.CallOption{llms.WithTemperature(c.temperature)}
	if c.maxTokens > 0 {
		opts = append(opts, llms.WithMaxTokens(c.maxTokens))
	}
	resp, err := c.chat.GenerateContent(ctxutil.Default(ctx), msgs, opts...)
	if err != nil {
		return "", fmt.Errorf("ollama chat completion: %w", err)
	}
	if resp == nil || len(resp.Choices) == 0 {
		return "", errors.New("ollama chat completion: no choices returned")
	}
	return strings.TrimSpace(resp.Choices[0].Content), nil
}
