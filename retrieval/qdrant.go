package retrieval

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hybridrag/hybridrag/types"
)

// QdrantConfig configures the qdrant-backed index.
//
// Qdrant point IDs must be UUIDs; a stable UUID is derived from each
// document ID so re-indexing the same document overwrites its point.
type QdrantConfig struct {
	Host       string        `json:"host"`
	Port       int           `json:"port"`
	BaseURL    string        `json:"base_url,omitempty"`
	APIKey     string        `json:"api_key,omitempty"`
	Collection string        `json:"collection"`
	VectorSize int           `json:"vector_size"`
	Timeout    time.Duration `json:"timeout,omitempty"`
}

// QdrantIndex implements Retriever on qdrant's REST API.
type QdrantIndex struct {
	cfg     QdrantConfig
	baseURL string
	client  *http.Client
	logger  *zap.Logger

	ensureOnce sync.Once
	ensureErr  error
}

var _ Retriever = (*QdrantIndex)(nil)

// NewQdrantIndex creates a qdrant-backed index.
func NewQdrantIndex(cfg QdrantConfig, logger *zap.Logger) *QdrantIndex {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Host == "" {
		cfg.Host = "localhost"
	}
	if cfg.Port == 0 {
		cfg.Port = 6333
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}

	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = fmt.Sprintf("http://%s:%d", cfg.Host, cfg.Port)
	}

	return &QdrantIndex{
		cfg:     cfg,
		baseURL: baseURL,
		client:  &http.Client{Timeout: cfg.Timeout},
		logger:  logger.With(zap.String("component", "qdrant_index")),
	}
}

var qdrantNamespace = uuid.MustParse("0fb2c3ee-98a1-4c68-9d4e-1b7a6c2d5e3f")

// pointID derives a stable UUID from a document ID.
func pointID(docID string) string {
	return uuid.NewSHA1(qdrantNamespace, []byte(docID)).String()
}

func (s *QdrantIndex) ensureCollection(ctx context.Context) error {
	s.ensureOnce.Do(func() {
		if strings.TrimSpace(s.cfg.Collection) == "" {
			s.ensureErr = types.NewError(types.ErrInternal, "qdrant collection is required")
			return
		}
		body := map[string]any{
			"vectors": map[string]any{
				"size":     s.cfg.VectorSize,
				"distance": "Cosine",
			},
		}
		var out struct{}
		err := s.do(ctx, http.MethodPut, s.collectionPath(""), body, &out)
		if err != nil && !strings.Contains(err.Error(), "status=409") {
			s.ensureErr = err
		}
	})
	return s.ensureErr
}

// Add upserts documents as qdrant points.
func (s *QdrantIndex) Add(ctx context.Context, docs []types.Document) error {
	if err := s.ensureCollection(ctx); err != nil {
		return err
	}

	points := make([]map[string]any, 0, len(docs))
	for _, doc := range docs {
		if doc.Embedding == nil {
			return types.NewError(types.ErrInvalidQuery, "document "+doc.DocID+" has no embedding")
		}
		payload := map[string]any{
			"doc_id":  doc.DocID,
			"content": doc.Content,
			"source":  doc.Source,
		}
		if len(doc.Metadata) > 0 {
			payload["metadata"] = doc.Metadata
		}
		points = append(points, map[string]any{
			"id":      pointID(doc.DocID),
			"vector":  doc.Embedding,
			"payload": payload,
		})
	}

	var out struct{}
	if err := s.do(ctx, http.MethodPut, s.collectionPath("/points?wait=true"),
		map[string]any{"points": points}, &out); err != nil {
		return err
	}

	s.logger.Debug("documents upserted", zap.Int("count", len(docs)))
	return nil
}

// Retrieve searches the collection by vector.
func (s *QdrantIndex) Retrieve(ctx context.Context, embedding []float64, topK int) ([]types.Document, error) {
	if topK <= 0 {
		return []types.Document{}, nil
	}

	body := map[string]any{
		"vector":       embedding,
		"limit":        topK,
		"with_payload": true,
	}

	var out struct {
		Result []struct {
			Score   float64         `json:"score"`
			Payload json.RawMessage `json:"payload"`
		} `json:"result"`
	}
	if err := s.do(ctx, http.MethodPost, s.collectionPath("/points/search"), body, &out); err != nil {
		return nil, err
	}

	docs := make([]types.Document, 0, len(out.Result))
	for _, r := range out.Result {
		var p struct {
			DocID    string            `json:"doc_id"`
			Content  string            `json:"content"`
			Source   string            `json:"source"`
			Metadata map[string]string `json:"metadata"`
		}
		if err := json.Unmarshal(r.Payload, &p); err != nil {
			s.logger.Warn("skipping point with malformed payload", zap.Error(err))
			continue
		}
		docs = append(docs, types.Document{
			DocID:    p.DocID,
			Content:  p.Content,
			Source:   p.Source,
			Metadata: p.Metadata,
			Score:    r.Score,
		})
	}
	return docs, nil
}

// Count returns the exact number of points in the collection.
func (s *QdrantIndex) Count(ctx context.Context) (int, error) {
	var out struct {
		Result struct {
			Count int `json:"count"`
		} `json:"result"`
	}
	err := s.do(ctx, http.MethodPost, s.collectionPath("/points/count"),
		map[string]any{"exact": true}, &out)
	if err != nil {
		return 0, err
	}
	return out.Result.Count, nil
}

func (s *QdrantIndex) collectionPath(suffix string) string {
	return "/collections/" + url.PathEscape(s.cfg.Collection) + suffix
}

func (s *QdrantIndex) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if strings.TrimSpace(s.cfg.APIKey) != "" {
		req.Header.Set("api-key", s.cfg.APIKey)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return types.NewError(types.ErrResourceUnavailable, "qdrant request failed").WithCause(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(resp.Body)
		return types.NewError(types.ErrResourceUnavailable,
			fmt.Sprintf("qdrant %s %s: status=%d body=%s", method, path, resp.StatusCode, string(raw)))
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil && err != io.EOF {
			return types.NewError(types.ErrInternal, "qdrant response decode failed").WithCause(err)
		}
	}
	return nil
}
