package vector

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"sync"
)

// ChromaConfig holds configuration for a Chroma v2 REST connection.
type ChromaConfig struct {
	Host string
	Port int
}

// Chroma implements Store against the Chroma vector database REST API.
// Chroma v2 expects client-supplied embeddings on both writes and queries,
// which matches the Store contract exactly.
type Chroma struct {
	baseURL    string
	tenant     string
	database   string
	httpClient *http.Client

	mu          sync.Mutex
	collections map[string]string // name -> collection id
	dims        map[string]int    // name -> dimension
}

// NewChroma creates a Chroma-backed store. Collections are resolved lazily
// on first use.
func NewChroma(cfg ChromaConfig) *Chroma {
	return &Chroma{
		baseURL:     fmt.Sprintf("http://%s:%d/api/v2", cfg.Host, cfg.Port),
		tenant:      "default_tenant",
		database:    "default_database",
		httpClient:  &http.Client{},
		collections: make(map[string]string),
		dims:        make(map[string]int),
	}
}

// CreateCollection creates (or reuses) a collection pinned to dim.
func (c *Chroma) CreateCollection(ctx context.Context, name string, dim int) error {
	createURL := fmt.Sprintf("%s/tenants/%s/databases/%s/collections", c.baseURL, c.tenant, c.database)
	payload := map[string]interface{}{
		"name": name,
		"metadata": map[string]interface{}{
			"dim": dim,
		},
		"get_or_create": true,
	}

	var result map[string]interface{}
	if err := c.post(ctx, createURL, payload, &result); err != nil {
		return fmt.Errorf("failed to create collection %s: %w", name, err)
	}

	id, ok := result["id"].(string)
	if !ok {
		return fmt.Errorf("create collection %s: response missing id", name)
	}

	c.mu.Lock()
	c.collections[name] = id
	c.dims[name] = dim
	c.mu.Unlock()

	log.Printf("[vector] Using Chroma collection %s (dim %d)", name, dim)
	return nil
}

// Exists reports whether the named collection exists.
func (c *Chroma) Exists(ctx context.Context, name string) (bool, error) {
	c.mu.Lock()
	if _, ok := c.collections[name]; ok {
		c.mu.Unlock()
		return true, nil
	}
	c.mu.Unlock()

	url := fmt.Sprintf("%s/tenants/%s/databases/%s/collections/%s", c.baseURL, c.tenant, c.database, name)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return false, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false, fmt.Errorf("failed to look up collection %s: %w", name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return false, nil
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return false, fmt.Errorf("collection lookup %s returned status %d: %s", name, resp.StatusCode, string(body))
	}

	var result map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return false, err
	}
	if id, ok := result["id"].(string); ok {
		c.mu.Lock()
		c.collections[name] = id
		if meta, ok := result["metadata"].(map[string]interface{}); ok {
			if dim, ok := meta["dim"].(float64); ok {
				c.dims[name] = int(dim)
			}
		}
		c.mu.Unlock()
	}
	return true, nil
}

// Add writes one record with its caller-supplied embedding.
func (c *Chroma) Add(ctx context.Context, collection string, rec Record) error {
	id, err := c.collectionID(ctx, collection)
	if err != nil {
		return err
	}
	if err := c.checkDim(collection, len(rec.Vector)); err != nil {
		return err
	}

	metadata := map[string]interface{}{}
	for k, v := range rec.Metadata {
		metadata[k] = v
	}

	payload := map[string]interface{}{
		"ids":        []string{rec.ID},
		"documents":  []string{rec.Text},
		"metadatas":  []map[string]interface{}{metadata},
		"embeddings": [][]float32{rec.Vector},
	}

	url := fmt.Sprintf("%s/tenants/%s/databases/%s/collections/%s/add", c.baseURL, c.tenant, c.database, id)
	if err := c.post(ctx, url, payload, nil); err != nil {
		return fmt.Errorf("failed to add record %s to %s: %w", rec.ID, collection, err)
	}
	return nil
}

// chromaQueryResults is the Chroma query response shape: one inner slice
// per query embedding.
type chromaQueryResults struct {
	IDs       [][]string            `json:"ids"`
	Distances [][]float32           `json:"distances"`
	Metadatas [][]map[string]string `json:"metadatas"`
}

// Query returns up to topK neighbors within maxDistance. Neighbors beyond
// the threshold are excluded entirely, not down-weighted.
func (c *Chroma) Query(ctx context.Context, collection string, vec []float32, topK int, maxDistance float32) ([]Neighbor, error) {
	id, err := c.collectionID(ctx, collection)
	if err != nil {
		return nil, err
	}
	if err := c.checkDim(collection, len(vec)); err != nil {
		return nil, err
	}

	payload := map[string]interface{}{
		"query_embeddings": [][]float32{vec},
		"n_results":        topK,
		"include":          []string{"metadatas", "distances"},
	}

	url := fmt.Sprintf("%s/tenants/%s/databases/%s/collections/%s/query", c.baseURL, c.tenant, c.database, id)
	var result chromaQueryResults
	if err := c.post(ctx, url, payload, &result); err != nil {
		return nil, fmt.Errorf("failed to query collection %s: %w", collection, err)
	}

	if len(result.IDs) == 0 {
		return nil, nil
	}

	var neighbors []Neighbor
	for i, hitID := range result.IDs[0] {
		if len(result.Distances) == 0 || len(result.Distances[0]) <= i {
			continue
		}
		distance := result.Distances[0][i]
		if distance > maxDistance {
			continue
		}
		var metadata map[string]string
		if len(result.Metadatas) > 0 && len(result.Metadatas[0]) > i {
			metadata = result.Metadatas[0][i]
		}
		neighbors = append(neighbors, Neighbor{ID: hitID, Distance: distance, Metadata: metadata})
	}
	return neighbors, nil
}

// Flush is a no-op: the Chroma REST API persists writes synchronously.
func (c *Chroma) Flush(ctx context.Context, collection string) error {
	return nil
}

// Close releases the HTTP client's idle connections.
func (c *Chroma) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}

func (c *Chroma) collectionID(ctx context.Context, name string) (string, error) {
	c.mu.Lock()
	id, ok := c.collections[name]
	c.mu.Unlock()
	if ok {
		return id, nil
	}

	exists, err := c.Exists(ctx, name)
	if err != nil {
		return "", err
	}
	if !exists {
		return "", fmt.Errorf("collection %s does not exist", name)
	}

	c.mu.Lock()
	id = c.collections[name]
	c.mu.Unlock()
	return id, nil
}

func (c *Chroma) checkDim(collection string, got int) error {
	c.mu.Lock()
	want, ok := c.dims[collection]
	c.mu.Unlock()
	if ok && want != got {
		return &DimensionError{Collection: collection, Want: want, Got: got}
	}
	return nil
}

func (c *Chroma) post(ctx context.Context, url string, payload interface{}, out interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("status %d: %s", resp.StatusCode, string(body))
	}

	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
