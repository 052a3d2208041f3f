package pinecone

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/yungbote/rag-chatbot/internal/platform/ctxutil"
	"github.com/yungbote/rag-chatbot/internal/platform/logger"
)

var ErrIndexNotFound = errors.New("pinecone index not found")

type Client interface {
	DescribeIndex(ctx context.Context, indexName string) (*IndexDescription, error)
	CreateIndex(ctx context.Context, req CreateIndexRequest) (*IndexDescription, error)
	DescribeIndexStats(ctx context.Context, host string) (*IndexStats, error)
	UpsertVectors(ctx context.Context, host string, req UpsertRequest) (*UpsertResponse, error)
	Query(ctx context.Context, host string, req QueryRequest) (*QueryResponse, error)
	DeleteAll(ctx context.Context, host, namespace string) error
}

type Config struct {
	APIKey     string
	APIVersion string
	BaseURL    string
	Timeout    time.Duration
}

type client struct {
	log  *logger.Logger
	cfg  Config
	http *http.Client
}

func New(log *logger.Logger, cfg Config) (Client, error) {
	return NewWithHTTPClient(log, cfg, nil)
}

func NewWithHTTPClient(log *logger.Logger, cfg Config, httpClient *http.Client) (Client, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("missing Pinecone API key")
	}
	if strings.TrimSpace(cfg.APIVersion) == "" {
		cfg.APIVersion = "2025-10"
	}
	if strings.TrimSpace(cfg.BaseURL) == "" {
		cfg.BaseURL = "https://api.pinecone.io"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	return &client{
		log:  log.With("client", "PineconeClient"),
		cfg:  cfg,
		http: httpClient,
	}, nil
}

// -------------------- Control plane --------------------

type IndexDescription struct {
	Name      string `json:"name"`
	Host      string `json:"host"`
	Dimension int    `json:"dimension"`
	Metric    string `json:"metric"`
	Status    struct {
		Ready bool   `json:"ready"`
		State string `json:"state"`
	} `json:"status"`
}

type ServerlessSpec struct {
	Cloud  string `json:"cloud"`
	Region string `json:"region"`
}

type IndexSpec struct {
	Serverless *ServerlessSpec `json:"serverless,omitempty"`
}

type CreateIndexRequest struct {
	Name      string    `json:"name"`
	Dimension int       `json:"dimension"`
	Metric    string    `json:"metric"`
	Spec      IndexSpec `json:"spec"`
}

// DescribeIndex returns ErrIndexNotFound when the index does not exist.
func (c *client) DescribeIndex(ctx context.Context, indexName string) (*IndexDescription, error) {
	indexName = strings.TrimSpace(indexName)
	if indexName == "" {
		return nil, fmt.Errorf("indexName required")
	}
	u := c.controlURL("/indexes/" + indexName)
	out, status, err := doJSON[IndexDescription](c, ctx, http.MethodGet, u, nil)
	if status == http.StatusNotFound {
		return nil, ErrIndexNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("pinecone describe_index: %w", err)
	}
	return out, nil
}

// CreateIndex treats 409 (already exists) as success and describes the existing index.
func (c *client) CreateIndex(ctx context.Context, req CreateIndexRequest) (*IndexDescription, error) {
	if strings.TrimSpace(req.Name) == "" {
		return nil, fmt.Errorf("index name required")
	}
	if req.Dimension <= 0 {
		return nil, fmt.Errorf("index dimension must be positive")
	}
	if req.Metric == "" {
		req.Metric = "cosine"
	}
	out, status, err := doJSON[IndexDescription](c, ctx, http.MethodPost, c.controlURL("/indexes"), req)
	if status == http.StatusConflict {
		return c.DescribeIndex(ctx, req.Name)
	}
	if err != nil {
		return nil, fmt.Errorf("pinecone create_index: %w", err)
	}
	c.log.Info("Pinecone index created", "index", req.Name, "dimension", req.Dimension, "metric", req.Metric)
	return out, nil
}

// -------------------- Data plane --------------------

type NamespaceSummary struct {
	VectorCount int64 `json:"vectorCount"`
}

type IndexStats struct {
	Namespaces       map[string]NamespaceSummary `json:"namespaces"`
	Dimension        int                         `json:"dimension"`
	TotalVectorCount int64                       `json:"totalVectorCount"`
}

func (c *client) DescribeIndexStats(ctx context.Context, host string) (*IndexStats, error) {
	u, err := dataURL(host, "/describe_index_stats")
	if err != nil {
		return nil, err
	}
	out, _, err := doJSON[IndexStats](c, ctx, http.MethodPost, u, map[string]any{})
	if err != nil {
		return nil, fmt.Errorf("pinecone describe_index_stats: %w", err)
	}
	return out, nil
}

type Vector struct {
	ID       string         `json:"id"`
	Values   []float32      `json:"values"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

type UpsertRequest struct {
	Vectors   []Vector `json:"vectors"`
	Namespace string   `json:"namespace,omitempty"`
}

type UpsertResponse struct {
	UpsertedCount int64 `json:"upsertedCount"`
}

func (c *client) UpsertVectors(ctx context.Context, host string, req UpsertRequest) (*UpsertResponse, error) {
	if len(req.Vectors) == 0 {
		return &UpsertResponse{UpsertedCount: 0}, nil
	}
	u, err := dataURL(host, "/vectors/upsert")
	if err != nil {
		return nil, err
	}
	out, _, err := doJSON[UpsertResponse](c, ctx, http.MethodPost, u, req)
	if err != nil {
		return nil, fmt.Errorf("pinecone upsert: %w", err)
	}
	return out, nil
}

type QueryRequest struct {
	Namespace       string         `json:"namespace,omitempty"`
	Vector          []float32      `json:"vector,omitempty"`
	TopK            int            `json:"topK"`
	Filter          map[string]any `json:"filter,omitempty"`
	IncludeValues   bool           `json:"includeValues,omitempty"`
	IncludeMetadata bool           `json:"includeMetadata,omitempty"`
}

type QueryMatch struct {
	ID       string         `json:"id"`
	Score    float64        `json:"score"`
	Values   []float32      `json:"values,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

type QueryResponse struct {
	Matches []QueryMatch `json:"matches"`
}

func (c *client) Query(ctx context.Context, host string, req QueryRequest) (*QueryResponse, error) {
	if req.TopK <= 0 {
		req.TopK = 10
	}
	if len(req.Vector) == 0 {
		return nil, fmt.Errorf("query vector required")
	}
	u, err := dataURL(host, "/query")
	if err != nil {
		return nil, err
	}
	out, _, err := doJSON[QueryResponse](c, ctx, http.MethodPost, u, req)
	if err != nil {
		return nil, fmt.Errorf("pinecone query: %w", err)
	}
	return out, nil
}

// DeleteAll removes every vector in namespace. A missing namespace is not an error.
func (c *client) DeleteAll(ctx context.Context, host, namespace string) error {
	u, err := dataURL(host, "/vectors/delete")
	if err != nil {
		return err
	}
	body := map[string]any{"deleteAll": true}
	if namespace != "" {
		body["namespace"] = namespace
	}
	_, status, err := doJSON[map[string]any](c, ctx, http.MethodPost, u, body)
	if status == http.StatusNotFound {
		return nil
	}
	if err != nil {
		return fmt.Errorf("pinecone delete_all: %w", err)
	}
	return nil
}

// -------------------- helpers --------------------

func (c *client) controlURL(path string) string {
	return strings.TrimRight(c.cfg.BaseURL, "/") + path
}

// dataURL accepts a bare index host (as returned by describe_index) or a full URL.
func dataURL(host, path string) (string, error) {
	host = strings.TrimRight(strings.TrimSpace(host), "/")
	if host == "" {
		return "", fmt.Errorf("host required")
	}
	if !strings.HasPrefix(host, "http://") && !strings.HasPrefix(host, "https://") {
		host = "https://" + host
	}
	return host + path, nil
}

func doJSON[T any](c *client, ctx context.Context, method, url string, body any) (*T, int, error) {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return nil, 0, err
		}
	}

	req, err := http.NewRequestWithContext(ctxutil.Default(ctx), method, url, &buf)
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("Api-Key", c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Pinecone-Api-Version", c.cfg.APIVersion)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, resp.StatusCode, fmt.Errorf("pinecone http %d: %s", resp.StatusCode, truncate(raw, 1024))
	}

	var out T
	if len(bytes.TrimSpace(raw)) == 0 {
		return &out, resp.StatusCode, nil
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, resp.StatusCode, fmt.Errorf("pinecone decode error: %w; raw=%s", err, truncate(raw, 1024))
	}
	return &out, resp.StatusCode, nil
}

func truncate(raw []byte, max int) string {
	if len(raw) <= max {
		return string(raw)
	}
	return string(raw[:max]) + "..."
}
