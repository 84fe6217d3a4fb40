package vector

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Match is one scored point returned by a similarity search.
type Match struct {
	ID      string
	Score   float32
	Payload map[string]interface{}
}

// Client is a minimal REST client to Qdrant. It assumes cosine distance
// and named point IDs in UUID form.
type Client struct {
	baseURL    string
	apiKey     string
	collection string
	client     *http.Client
}

type Config struct {
	URL        string
	APIKey     string
	Collection string
	Timeout    time.Duration
}

func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.URL, "/"),
		apiKey:     cfg.APIKey,
		collection: cfg.Collection,
		client:     &http.Client{Timeout: timeout},
	}
}

func (c *Client) Collection() string {
	return c.collection
}

// EnsureCollection creates the collection if it does not exist. Qdrant
// answers 200 for an existing collection with the same schema.
func (c *Client) EnsureCollection(ctx context.Context, dimension int) error {
	if dimension <= 0 {
		return fmt.Errorf("invalid vector dimension: %d", dimension)
	}
	body := map[string]interface{}{
		"vectors": map[string]interface{}{
			"size":     dimension,
			"distance": "Cosine",
		},
	}
	err := c.do(ctx, http.MethodPut, fmt.Sprintf("/collections/%s", c.collection), body, nil)
	if err != nil && strings.Contains(err.Error(), "already exists") {
		return nil
	}
	return err
}

// Upsert stores vectors with their payloads and returns the generated
// point IDs, one per vector, in order.
func (c *Client) Upsert(ctx context.Context, vectors [][]float32, payloads []map[string]interface{}) ([]string, error) {
	if len(vectors) != len(payloads) {
		return nil, fmt.Errorf("vectors and payloads length mismatch: %d != %d", len(vectors), len(payloads))
	}
	if len(vectors) == 0 {
		return nil, nil
	}
	ids := make([]string, len(vectors))
	points := make([]map[string]interface{}, len(vectors))
	for i := range vectors {
		ids[i] = uuid.NewString()
		points[i] = map[string]interface{}{
			"id":      ids[i],
			"vector":  vectors[i],
			"payload": payloads[i],
		}
	}
	body := map[string]interface{}{"points": points}
	path := fmt.Sprintf("/collections/%s/points?wait=true", c.collection)
	if err := c.do(ctx, http.MethodPut, path, body, nil); err != nil {
		return nil, err
	}
	return ids, nil
}

// Search runs a similarity search. A non-nil filter restricts matches to
// points whose payload fields equal the given values.
func (c *Client) Search(ctx context.Context, vector []float32, limit int, filter map[string]interface{}) ([]*Match, error) {
	if limit <= 0 {
		limit = 5
	}
	body := map[string]interface{}{
		"vector":       vector,
		"limit":        limit,
		"with_payload": true,
	}
	if len(filter) > 0 {
		must := make([]map[string]interface{}, 0, len(filter))
		for field, value := range filter {
			must = append(must, map[string]interface{}{
				"key":   field,
				"match": map[string]interface{}{"value": value},
			})
		}
		body["filter"] = map[string]interface{}{"must": must}
	}
	var resp struct {
		Result []struct {
			ID      string                 `json:"id"`
			Score   float32                `json:"score"`
			Payload map[string]interface{} `json:"payload"`
		} `json:"result"`
	}
	path := fmt.Sprintf("/collections/%s/points/search", c.collection)
	if err := c.do(ctx, http.MethodPost, path, body, &resp); err != nil {
		return nil, err
	}
	matches := make([]*Match, 0, len(resp.Result))
	for _, item := range resp.Result {
		matches = append(matches, &Match{
			ID:      item.ID,
			Score:   item.Score,
			Payload: item.Payload,
		})
	}
	return matches, nil
}

// Retrieve fetches points by ID with their payloads. Missing IDs are
// simply absent from the result.
func (c *Client) Retrieve(ctx context.Context, ids []string) ([]*Match, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	body := map[string]interface{}{
		"ids":          ids,
		"with_payload": true,
	}
	var resp struct {
		Result []struct {
			ID      string                 `json:"id"`
			Payload map[string]interface{} `json:"payload"`
		} `json:"result"`
	}
	path := fmt.Sprintf("/collections/%s/points", c.collection)
	if err := c.do(ctx, http.MethodPost, path, body, &resp); err != nil {
		return nil, err
	}
	matches := make([]*Match, 0, len(resp.Result))
	for _, item := range resp.Result {
		matches = append(matches, &Match{
			ID:      item.ID,
			Payload: item.Payload,
		})
	}
	return matches, nil
}

// Delete removes points by ID and waits for the operation to apply.
func (c *Client) Delete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	body := map[string]interface{}{"points": ids}
	path := fmt.Sprintf("/collections/%s/points/delete?wait=true", c.collection)
	return c.do(ctx, http.MethodPost, path, body, nil)
}

func (c *Client) DeleteCollection(ctx context.Context) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/collections/%s", c.collection), nil, nil)
}

func (c *Client) do(ctx context.Context, method, path string, body interface{}, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("api-key", c.apiKey)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= http.StatusMultipleChoices {
		payload, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("qdrant %s %s failed: %s: %s", method, path, resp.Status, strings.TrimSpace(string(payload)))
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}
