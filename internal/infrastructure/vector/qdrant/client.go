package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/quaydocs/corpus-assistant/internal/core/domain"
)

// Client speaks the Qdrant REST API. One client serves every tenant
// collection; methods take the collection name so the registry decides which
// collection a call touches. All backend failures surface as
// ErrStorageUnavailable.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

func New(baseURL string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
}

// CollectionExists asks the backend directly instead of inferring existence
// from creation failures.
func (c *Client) CollectionExists(ctx context.Context, collection string) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.collectionURL(collection), nil)
	if err != nil {
		return false, fmt.Errorf("create exists request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false, storageErr("qdrant collection lookup", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return false, nil
	case resp.StatusCode >= 300:
		return false, storageErr("qdrant collection lookup", statusError(resp))
	}
	return true, nil
}

func (c *Client) CreateCollection(ctx context.Context, collection string, vectorSize int) error {
	body, err := json.Marshal(map[string]any{
		"vectors": map[string]any{
			"size":     vectorSize,
			"distance": "Cosine",
		},
	})
	if err != nil {
		return fmt.Errorf("marshal create collection body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, c.collectionURL(collection), bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create collection request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return storageErr("qdrant create collection", err)
	}
	defer resp.Body.Close()

	// 409 means another writer created it between our existence check and
	// this call; the collection is there either way.
	if resp.StatusCode == http.StatusConflict {
		return nil
	}
	if resp.StatusCode >= 300 {
		return storageErr("qdrant create collection", statusError(resp))
	}
	return nil
}

// HasDocument reports whether any chunk of (tenant, fileName) is already
// indexed, via a filtered scroll with limit 1.
func (c *Client) HasDocument(ctx context.Context, collection, tenant, fileName string) (bool, error) {
	body, err := json.Marshal(map[string]any{
		"limit":        1,
		"with_payload": false,
		"filter": map[string]any{
			"must": []map[string]any{
				matchCondition("metadata.file_name", fileName),
				matchCondition("metadata.company", tenant),
			},
		},
	})
	if err != nil {
		return false, fmt.Errorf("marshal scroll body: %w", err)
	}

	endpoint := c.collectionURL(collection) + "/points/scroll"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return false, fmt.Errorf("create scroll request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false, storageErr("qdrant scroll", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return false, storageErr("qdrant scroll", statusError(resp))
	}

	var scrollResp struct {
		Result struct {
			Points []struct {
				ID any `json:"id"`
			} `json:"points"`
		} `json:"result"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&scrollResp); err != nil {
		return false, storageErr("qdrant scroll", fmt.Errorf("decode response: %w", err))
	}
	return len(scrollResp.Result.Points) > 0, nil
}

// Upsert writes all records as one batch with wait=true, so either the whole
// document's chunks land or the call fails.
func (c *Client) Upsert(ctx context.Context, collection string, records []domain.ChunkRecord) error {
	if len(records) == 0 {
		return nil
	}

	type point struct {
		ID      string         `json:"id"`
		Vector  []float32      `json:"vector"`
		Payload map[string]any `json:"payload"`
	}

	points := make([]point, 0, len(records))
	for _, rec := range records {
		points = append(points, point{
			ID:     rec.ID,
			Vector: rec.Vector,
			Payload: map[string]any{
				"text": rec.Text,
				"metadata": map[string]any{
					"file_name":   rec.FileName,
					"company":     rec.Tenant,
					"start_index": rec.StartIndex,
				},
			},
		})
	}

	body, err := json.Marshal(map[string]any{"points": points})
	if err != nil {
		return fmt.Errorf("marshal upsert body: %w", err)
	}

	endpoint := c.collectionURL(collection) + "/points?wait=true"
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create upsert request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return storageErr("qdrant upsert", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return storageErr("qdrant upsert", statusError(resp))
	}
	return nil
}

// Search runs filtered k-NN restricted to chunks whose company metadata
// matches tenant. The filter is what keeps one tenant's corpus invisible to
// another even though the physical index may hold many tenants.
func (c *Client) Search(ctx context.Context, collection string, queryVector []float32, tenant string, limit int) ([]domain.ScoredPassage, error) {
	body, err := json.Marshal(map[string]any{
		"vector":       queryVector,
		"limit":        limit,
		"with_payload": true,
		"filter": map[string]any{
			"must": []map[string]any{
				matchCondition("metadata.company", tenant),
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("marshal search body: %w", err)
	}

	endpoint := c.collectionURL(collection) + "/points/search"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create search request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, storageErr("qdrant search", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return nil, storageErr("qdrant search", statusError(resp))
	}

	var searchResp struct {
		Result []struct {
			Score   float64        `json:"score"`
			Payload map[string]any `json:"payload"`
		} `json:"result"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&searchResp); err != nil {
		return nil, storageErr("qdrant search", fmt.Errorf("decode response: %w", err))
	}

	out := make([]domain.ScoredPassage, 0, len(searchResp.Result))
	for _, r := range searchResp.Result {
		meta, _ := r.Payload["metadata"].(map[string]any)
		out = append(out, domain.ScoredPassage{
			Text:       payloadString(r.Payload, "text"),
			FileName:   payloadString(meta, "file_name"),
			Tenant:     payloadString(meta, "company"),
			StartIndex: payloadInt(meta, "start_index"),
			Score:      r.Score,
		})
	}
	return out, nil
}

func (c *Client) collectionURL(collection string) string {
	return c.baseURL + "/collections/" + url.PathEscape(collection)
}

func matchCondition(key, value string) map[string]any {
	return map[string]any{
		"key":   key,
		"match": map[string]any{"value": value},
	}
}

func statusError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
	if msg := strings.TrimSpace(string(body)); msg != "" {
		return fmt.Errorf("status %s: %s", resp.Status, msg)
	}
	return fmt.Errorf("status %s", resp.Status)
}

func storageErr(operation string, err error) error {
	return domain.WrapError(domain.ErrStorageUnavailable, operation, err)
}

func payloadString(payload map[string]any, key string) string {
	if payload == nil {
		return ""
	}
	if s, ok := payload[key].(string); ok {
		return s
	}
	return ""
}

func payloadInt(payload map[string]any, key string) int {
	if payload == nil {
		return 0
	}
	switch v := payload[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	default:
		return 0
	}
}
