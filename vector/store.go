package vector

import (
	"context"
	"fmt"
	"time"
)

// Neighbor is one nearest-neighbor hit from a similarity query.
type Neighbor struct {
	ID       string
	Distance float32
	Metadata map[string]string
}

// Record is one embedding written to a collection. Embeddings are computed
// by the caller; the store never embeds.
type Record struct {
	ID       string
	Text     string
	Vector   []float32
	Metadata map[string]string
}

// Store is the vector similarity index boundary. Collections are
// partitioned by a time-bucketed name and carry a fixed dimensionality:
// a collection created with dimension D may only be written and queried
// with vectors of dimension D.
type Store interface {
	CreateCollection(ctx context.Context, name string, dim int) error
	Exists(ctx context.Context, name string) (bool, error)
	Add(ctx context.Context, collection string, rec Record) error
	Query(ctx context.Context, collection string, vec []float32, topK int, maxDistance float32) ([]Neighbor, error)
	Flush(ctx context.Context, collection string) error
	Close() error
}

// DimensionError reports a vector whose length does not match its
// collection's dimensionality.
type DimensionError struct {
	Collection string
	Want       int
	Got        int
}

func (e *DimensionError) Error() string {
	return fmt.Sprintf("collection %s expects dimension %d, got %d", e.Collection, e.Want, e.Got)
}

// CollectionName derives the time-bucketed collection name for a day. The
// embedding model is part of the name so a model change can never mix
// vectors of different dimensionality in one collection.
func CollectionName(model string, day time.Time) string {
	return fmt.Sprintf("news_%s_%s", sanitize(model), day.Format("2006_01_02"))
}

func sanitize(s string) string {
	out := make([]rune, 0, len(s))
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			out = append(out, r)
		default:
			out = append(out, '_')
		}
	}
	return string(out)
}
