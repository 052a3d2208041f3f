package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	goopenai "github.com/sashabaranov/go-openai"

	"github.com/yungbote/rag-chatbot/internal/platform/ctxutil"
	"github.com/yungbote/rag-chatbot/internal/platform/logger"
)

type Config struct {
	APIKey      string
	BaseURL     string
	Model       string
	EmbedModel  string
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
}

// Client serves embeddings and chat completions from one OpenAI account.
// It makes exactly one upstream attempt per call.
type Client struct {
	log         *logger.Logger
	api         *goopenai.Client
	model       string
	embedModel  string
	temperature float32
	maxTokens   int
}

func New(log *logger.Logger, cfg Config) (*Client, error) {
	return NewWithHTTPClient(log, cfg, nil)
}

func NewWithHTTPClient(log *logger.Logger, cfg Config, httpClient *http.Client) (*Client, error) {
	if log == nil {
		return nil, errors.New("logger required")
	}
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("missing OPENAI_API_KEY")
	}
	if strings.TrimSpace(cfg.Model) == "" {
		cfg.Model = goopenai.GPT3Dot5Turbo
	}
	if strings.TrimSpace(cfg.EmbedModel) == "" {
		cfg.EmbedModel = string(goopenai.SmallEmbedding3)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}

	apiCfg := goopenai.DefaultConfig(cfg.APIKey)
	if base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"); base != "" {
		if !strings.HasSuffix(base, "/v1") {
			base += "/v1"
		}
		apiCfg.BaseURL = base
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	apiCfg.HTTPClient = httpClient

	log.Info("OpenAI client configured",
		"model", cfg.Model,
		"embed_model", cfg.EmbedModel,
		"base_url", apiCfg.BaseURL,
	)
	return &Client{
		log:         log.With("client", "OpenAI"),
		api:         goopenai.NewClientWithConfig(apiCfg),
		model:       cfg.Model,
		embedModel:  cfg.EmbedModel,
		temperature: float32(cfg.Temperature),
		maxTokens:   cfg.MaxTokens,
	}, nil
}

// Embed returns one vector per input, ordered like inputs.
func (c *Client) Embed(ctx context.Context, inputs []string) ([][]float32, error) {
	if len(inputs) == 0 {
		return [][]float32{}, nil
	}
	clean := make([]string, len(inputs))
	for i, in := range inputs {
		s := strings.TrimSpace(in)
		if s == "" {
			s = " "
		}
		clean[i] = s
	}

	resp, err := c.api.CreateEmbeddings(ctxutil.Default(ctx), goopenai.EmbeddingRequest{
		Model: goopenai.EmbeddingModel(c.embedModel),
		Input: clean,
	})
	if err != nil {
		return nil, wrapAPIError("embeddings", err)
	}

	out := make([][]float32, len(clean))
	for i, d := range resp.Data {
		idx := d.Index
		if idx < 0 || idx >= len(out) || out[idx] != nil {
			idx = i
		}
		if idx >= len(out) {
			continue
		}
		vec := make([]float32, len(d.Embedding))
		for j := range d.Embedding {
			vec[j] = float32(d.Embedding[j])
		}
		out[idx] = vec
	}
	for i := range out {
		if len(out[i]) == 0 {
			return nil, fmt.Errorf("openai embeddings: missing vector for input %d (requested=%d returned=%d)", i, len(clean), len(resp.Data))
		}
	}
	return out, nil
}

// Complete sends a system+user chat completion and returns the first choice.
func (c *Client) Complete(ctx context.Context, system, user string) (string, error) {
	msgs := make([]goopenai.ChatCompletionMessage, 0, 2)
	if strings.TrimSpace(system) != "" {
		msgs = append(msgs, goopenai.ChatCompletionMessage{Role: goopenai.ChatMessageRoleSystem, Content: system})
	}
	msgs = append(msgs, goopenai.ChatCompletionMessage{Role: goopenai.ChatMessageRoleUser, Content: user})

	resp, err := c.api.CreateChatCompletion(ctxutil.Default(ctx), goopenai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    msgs,
		Temperature: c.temperature,
		MaxTokens:   c.maxTokens,
	})
	if err != nil {
		return "", wrapAPIError("chat completion", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("openai chat completion: no choices returned")
	}
	c.log.Debug("chat completion done",
		"model", resp.Model,
		"prompt_tokens", resp.Usage.PromptTokens,
		"completion_tokens", resp.Usage.CompletionTokens,
		"finish_reason", resp.Choices[0].FinishReason,
	)
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// HTTPError exposes the upstream status of a failed call.
type HTTPError struct {
	Op         string
	StatusCode int
	Message    string
	Err        error
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("openai %s http %d: %s", e.Op, e.StatusCode, e.Message)
}

func (e *HTTPError) Unwrap() error { return e.Err }

func (e *HTTPError) HTTPStatusCode() int { return e.StatusCode }

func wrapAPIError(op string, err error) error {
	var apiErr *goopenai.APIError
	if errors.As(err, &apiErr) {
		return &HTTPError{Op: op, StatusCode: apiErr.HTTPStatusCode, Message: apiErr.Message, Err: err}
	}
	var reqErr *goopenai.RequestError
	if errors.As(err, &reqErr) {
		return &HTTPError{Op: op, StatusCode: reqErr.HTTPStatusCode, Message: http.StatusText(reqErr.HTTPStatusCode), Err: err}
	}
	return fmt.Errorf("openai %s: %w", op, err)
}
