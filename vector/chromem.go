package vector

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/philippgille/chromem-go"
)

// Chromem implements Store on an embedded chromem-go database: no server
// to run, optional on-disk persistence. Used for local deployments and
// tests.
type Chromem struct {
	db *chromem.DB

	mu   sync.Mutex
	dims map[string]int
}

// NewChromem opens (or creates) a persistent embedded store at path. An
// empty path keeps everything in memory.
func NewChromem(path string) (*Chromem, error) {
	var db *chromem.DB
	var err error
	if path == "" {
		db = chromem.NewDB()
	} else {
		db, err = chromem.NewPersistentDB(path, false)
		if err != nil {
			return nil, fmt.Errorf("failed to open chromem db at %s: %w", path, err)
		}
	}
	return &Chromem{db: db, dims: make(map[string]int)}, nil
}

// callerEmbeddings rejects any attempt to have the store embed: vectors
// are always supplied by the caller per the Store contract.
func callerEmbeddings(context.Context, string) ([]float32, error) {
	return nil, errors.New("embeddings are supplied by the caller")
}

// CreateCollection creates (or reuses) a collection pinned to dim.
func (c *Chromem) CreateCollection(ctx context.Context, name string, dim int) error {
	if _, err := c.db.GetOrCreateCollection(name, map[string]string{"dim": fmt.Sprint(dim)}, callerEmbeddings); err != nil {
		return fmt.Errorf("failed to create collection %s: %w", name, err)
	}
	c.mu.Lock()
	c.dims[name] = dim
	c.mu.Unlock()
	return nil
}

// Exists reports whether the named collection exists.
func (c *Chromem) Exists(ctx context.Context, name string) (bool, error) {
	return c.db.GetCollection(name, callerEmbeddings) != nil, nil
}

// Add writes one record with its caller-supplied embedding.
func (c *Chromem) Add(ctx context.Context, collection string, rec Record) error {
	col := c.db.GetCollection(collection, callerEmbeddings)
	if col == nil {
		return fmt.Errorf("collection %s does not exist", collection)
	}
	if err := c.checkDim(collection, len(rec.Vector)); err != nil {
		return err
	}

	doc := chromem.Document{
		ID:        rec.ID,
		Content:   rec.Text,
		Embedding: rec.Vector,
		Metadata:  rec.Metadata,
	}
	if err := col.AddDocument(ctx, doc); err != nil {
		return fmt.Errorf("failed to add record %s to %s: %w", rec.ID, collection, err)
	}
	return nil
}

// Query returns up to topK neighbors within maxDistance. chromem reports
// cosine similarity, converted here to distance = 1 - similarity. topK is
// clamped to the collection size because chromem rejects larger values.
func (c *Chromem) Query(ctx context.Context, collection string, vec []float32, topK int, maxDistance float32) ([]Neighbor, error) {
	col := c.db.GetCollection(collection, callerEmbeddings)
	if col == nil {
		return nil, fmt.Errorf("collection %s does not exist", collection)
	}
	if err := c.checkDim(collection, len(vec)); err != nil {
		return nil, err
	}

	count := col.Count()
	if count == 0 {
		return nil, nil
	}
	if topK > count {
		topK = count
	}

	results, err := col.QueryEmbedding(ctx, vec, topK, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to query collection %s: %w", collection, err)
	}

	var neighbors []Neighbor
	for _, res := range results {
		distance := 1 - res.Similarity
		if distance > maxDistance {
			continue
		}
		neighbors = append(neighbors, Neighbor{ID: res.ID, Distance: distance, Metadata: res.Metadata})
	}
	return neighbors, nil
}

// Flush is a no-op: chromem persists each write when a path is configured.
func (c *Chromem) Flush(ctx context.Context, collection string) error {
	return nil
}

// Close is a no-op for the embedded database.
func (c *Chromem) Close() error {
	return nil
}

func (c *Chromem) checkDim(collection string, got int) error {
	c.mu.Lock()
	want, ok := c.dims[collection]
	c.mu.Unlock()
	if ok && want != got {
		return &DimensionError{Collection: collection, Want: want, Got: got}
	}
	return nil
}
