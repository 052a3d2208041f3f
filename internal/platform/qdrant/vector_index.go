package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/rag-chatbot/internal/domain"
	"github.com/yungbote/rag-chatbot/internal/platform/ctxutil"
	"github.com/yungbote/rag-chatbot/internal/platform/logger"
)

const (
	payloadVectorIDKey = "_vector_id"
	maxErrorBodyBytes  = 1024
)

// Qdrant point IDs must be UUIDs or integers, so vector IDs are mapped through SHA-1 UUIDs.
var pointIDNamespaceUUID = uuid.MustParse("6f1d52a4-5d0b-4c52-9c3e-3f6a1b7e2c10")

// VectorIndex adapts a Qdrant collection to domain.VectorIndex.
type VectorIndex struct {
	log     *logger.Logger
	cfg     Config
	baseURL string
	http    *http.Client
}

var _ domain.VectorIndex = (*VectorIndex)(nil)

type qdrantEnvelope struct {
	Result json.RawMessage `json:"result"`
	Status json.RawMessage `json:"status"`
	Time   float64         `json:"time"`
}

type qdrantSearchResultItem struct {
	ID      json.RawMessage `json:"id"`
	Score   float64         `json:"score"`
	Payload map[string]any  `json:"payload"`
}

func NewVectorIndex(log *logger.Logger, cfg Config) (*VectorIndex, error) {
	return NewVectorIndexWithHTTPClient(log, cfg, nil)
}

func NewVectorIndexWithHTTPClient(log *logger.Logger, cfg Config, httpClient *http.Client) (*VectorIndex, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	v := &VectorIndex{
		log:     log.With("service", "QdrantVectorIndex"),
		cfg:     cfg,
		baseURL: strings.TrimRight(cfg.URL, "/"),
		http:    httpClient,
	}
	log.Info("Qdrant vector index selected",
		"provider", "qdrant",
		"url", v.baseURL,
		"collection", cfg.Collection,
		"vector_dim", cfg.VectorDim,
	)
	return v, nil
}

func (v *VectorIndex) EnsureIndex(ctx context.Context, dimension int) error {
	const op = "ensure_collection"
	if dimension <= 0 {
		dimension = v.cfg.VectorDim
	}
	var result struct {
		Config struct {
			Params struct {
				Vectors struct {
					Size     int    `json:"size"`
					Distance string `json:"distance"`
				} `json:"vectors"`
			} `json:"params"`
		} `json:"config"`
	}
	err := v.doJSON(ctx, op, http.MethodGet, v.collectionPath(""), nil, &result)
	var oe *OperationError
	if errors.As(err, &oe) && oe.Code == OperationErrorNotFound {
		v.log.Info("Qdrant collection missing; creating", "collection", v.cfg.Collection, "dimension", dimension)
		return v.createCollection(ctx, dimension)
	}
	if err != nil {
		return err
	}
	size := result.Config.Params.Vectors.Size
	if size != 0 && size != dimension {
		return &OperationError{
			Code:      OperationErrorValidation,
			Operation: op,
			Message:   fmt.Sprintf("qdrant collection %q vector size mismatch: expected=%d actual=%d", v.cfg.Collection, dimension, size),
		}
	}
	if d := result.Config.Params.Vectors.Distance; d != "" && !strings.EqualFold(d, "cosine") {
		v.log.Warn("Qdrant collection is not using cosine distance", "distance", d)
	}
	return nil
}

func (v *VectorIndex) createCollection(ctx context.Context, dimension int) error {
	req := map[string]any{
		"vectors": map[string]any{"size": dimension, "distance": "Cosine"},
	}
	return v.doJSON(ctx, "create_collection", http.MethodPut, v.collectionPath(""), req, nil)
}

func (v *VectorIndex) Count(ctx context.Context) (int64, error) {
	var result struct {
		Count int64 `json:"count"`
	}
	if err := v.doJSON(ctx, "count", http.MethodPost, v.collectionPath("/points/count"), map[string]any{"exact": true}, &result); err != nil {
		return 0, err
	}
	return result.Count, nil
}

func (v *VectorIndex) Upsert(ctx context.Context, vectors []domain.IndexedVector) error {
	const op = "upsert"
	if len(vectors) == 0 {
		return nil
	}
	points := make([]map[string]any, 0, len(vectors))
	for _, iv := range vectors {
		vectorID := strings.TrimSpace(iv.ID)
		if vectorID == "" {
			return opErr(op, OperationErrorValidation, "vector id is required", nil)
		}
		if len(iv.Values) != v.cfg.VectorDim {
			return opErr(op, OperationErrorValidation,
				fmt.Sprintf("vector %q dimension mismatch: expected=%d got=%d", vectorID, v.cfg.VectorDim, len(iv.Values)), nil)
		}
		payload := iv.Metadata.Map()
		payload[payloadVectorIDKey] = vectorID
		points = append(points, map[string]any{
			"id":      pointID(vectorID),
			"vector":  iv.Values,
			"payload": payload,
		})
	}
	return v.doJSON(ctx, op, http.MethodPut, v.collectionPath("/points?wait=true"), map[string]any{"points": points}, nil)
}

func (v *VectorIndex) Query(ctx context.Context, vector []float32, topK int) ([]domain.Match, error) {
	const op = "query"
	if len(vector) == 0 {
		return nil, opErr(op, OperationErrorValidation, "query vector required", nil)
	}
	if len(vector) != v.cfg.VectorDim {
		return nil, opErr(op, OperationErrorValidation,
			fmt.Sprintf("query vector dimension mismatch: expected=%d got=%d", v.cfg.VectorDim, len(vector)), nil)
	}
	if topK <= 0 {
		topK = 3
	}
	req := map[string]any{
		"vector":       vector,
		"limit":        topK,
		"with_payload": true,
		"with_vector":  false,
	}
	var raw []qdrantSearchResultItem
	if err := v.doJSON(ctx, op, http.MethodPost, v.collectionPath("/points/search"), req, &raw); err != nil {
		return nil, err
	}

	out := make([]domain.Match, 0, len(raw))
	for _, item := range raw {
		id, _ := item.Payload[payloadVectorIDKey].(string)
		if strings.TrimSpace(id) == "" {
			id = decodePointID(item.ID)
		}
		meta := domain.MetadataFromMap(item.Payload)
		out = append(out, domain.Match{ID: id, Score: item.Score, SourceFile: meta.Source, Text: meta.Text})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out, nil
}

// Clear drops and recreates the collection.
func (v *VectorIndex) Clear(ctx context.Context) error {
	err := v.doJSON(ctx, "drop_collection", http.MethodDelete, v.collectionPath(""), nil, nil)
	var oe *OperationError
	if err != nil && !(errors.As(err, &oe) && oe.Code == OperationErrorNotFound) {
		return err
	}
	return v.createCollection(ctx, v.cfg.VectorDim)
}

func (v *VectorIndex) doJSON(ctx context.Context, op, method, path string, in any, out any) error {
	var body io.Reader
	if in != nil {
		var buf bytes.Buffer
		if err := json.NewEncoder(&buf).Encode(in); err != nil {
			return opErr(op, OperationErrorEncodeFailed, "encode request failed", err)
		}
		body = &buf
	}

	req, err := http.NewRequestWithContext(ctxutil.Default(ctx), method, v.baseURL+path, body)
	if err != nil {
		return opErr(op, OperationErrorTransportFailed, "build request failed", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if v.cfg.APIKey != "" {
		req.Header.Set("api-key", v.cfg.APIKey)
	}

	resp, err := v.http.Do(req)
	if err != nil {
		return classifyHTTPCallError(op, "qdrant request failed", err)
	}
	defer resp.Body.Close()

	raw, readErr := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if readErr != nil {
		return opErr(op, OperationErrorDecodeFailed, "read response failed", readErr)
	}
	if resp.StatusCode == http.StatusNotFound {
		return &OperationError{Code: OperationErrorNotFound, Operation: op, StatusCode: resp.StatusCode, Message: truncateBody(raw)}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &OperationError{
			Code:       OperationErrorQueryFailed,
			Operation:  op,
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("qdrant http status=%d body=%q", resp.StatusCode, truncateBody(raw)),
		}
	}

	var envelope qdrantEnvelope
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return opErr(op, OperationErrorDecodeFailed, "decode qdrant envelope failed", err)
	}
	if statusErr := parseEnvelopeStatus(envelope.Status); statusErr != "" {
		return &OperationError{Code: OperationErrorQueryFailed, Operation: op, StatusCode: resp.StatusCode, Message: statusErr}
	}
	if out == nil || len(envelope.Result) == 0 || string(envelope.Result) == "null" {
		return nil
	}
	if err := json.Unmarshal(envelope.Result, out); err != nil {
		return opErr(op, OperationErrorDecodeFailed, "decode qdrant result failed", err)
	}
	return nil
}

func classifyHTTPCallError(op, message string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return opErr(op, OperationErrorTimeout, message, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return opErr(op, OperationErrorTimeout, message, err)
	}
	return opErr(op, OperationErrorTransportFailed, message, err)
}

func parseEnvelopeStatus(raw json.RawMessage) string {
	status := strings.TrimSpace(string(raw))
	if status == "" || status == "null" {
		return ""
	}
	var statusString string
	if err := json.Unmarshal(raw, &statusString); err == nil {
		if strings.EqualFold(statusString, "ok") {
			return ""
		}
		return fmt.Sprintf("qdrant status=%q", statusString)
	}
	var statusObject struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(raw, &statusObject); err == nil && strings.TrimSpace(statusObject.Error) != "" {
		return strings.TrimSpace(statusObject.Error)
	}
	return fmt.Sprintf("qdrant status=%s", status)
}

func truncateBody(raw []byte) string {
	if len(raw) <= maxErrorBodyBytes {
		return string(raw)
	}
	return string(raw[:maxErrorBodyBytes]) + "..."
}

func pointID(vectorID string) string {
	return uuid.NewSHA1(pointIDNamespaceUUID, []byte(vectorID)).String()
}

func (v *VectorIndex) collectionPath(suffix string) string {
	return "/collections/" + v.cfg.Collection + suffix
}

func decodePointID(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var idString string
	if err := json.Unmarshal(raw, &idString); err == nil {
		return strings.TrimSpace(idString)
	}
	var idNumber int64
	if err := json.Unmarshal(raw, &idNumber); err == nil {
		return fmt.Sprintf("%d", idNumber)
	}
	return strings.TrimSpace(string(raw))
}
