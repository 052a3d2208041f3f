package chatui

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/yungbote/rag-chatbot/internal/domain"
)

// APIError is a non-2xx reply from the chat API.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("chat api %d %s: %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("chat api %d: %s", e.Status, e.Message)
}

type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 90 * time.Second}
	}
	return &Client{baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"), http: httpClient}
}

func (c *Client) Chat(ctx context.Context, message string) (domain.ChatResponse, error) {
	body, err := json.Marshal(domain.ChatRequest{Message: message})
	if err != nil {
		return domain.ChatResponse{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return domain.ChatResponse{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return domain.ChatResponse{}, err
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return domain.ChatResponse{}, err
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{Status: resp.StatusCode, Message: strings.TrimSpace(string(raw))}
		var env struct {
			Error struct {
				Message string `json:"message"`
				Code    string `json:"code"`
			} `json:"error"`
		}
		if json.Unmarshal(raw, &env) == nil && env.Error.Message != "" {
			apiErr.Message = env.Error.Message
			apiErr.Code = env.Error.Code
		}
		return domain.ChatResponse{}, apiErr
	}

	var out domain.ChatResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return domain.ChatResponse{}, fmt.Errorf("decode chat response: %w", err)
	}
	if out.Sources == nil {
		out.Sources = []string{}
	}
	return out, nil
}
