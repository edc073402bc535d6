package relevance

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"curator/config"
	"curator/vector"
)

// Scorer rates new items against a corpus of previously rated content. Each
// item is embedded and queried against the day's collection; neighbors
// within the distance threshold contribute their stored user rating,
// weighted by closeness.
type Scorer struct {
	embedder    vector.EmbeddingsProvider
	store       vector.Store
	topK        int
	maxDistance float32
}

// NewScorer builds a scorer over the given embeddings provider and vector
// store. topK and maxDistance fall back to defaults when zero.
func NewScorer(embedder vector.EmbeddingsProvider, store vector.Store, topK int, maxDistance float32) *Scorer {
	if topK <= 0 {
		topK = config.DefaultTopK
	}
	if maxDistance <= 0 {
		maxDistance = config.DefaultMaxDistance
	}
	return &Scorer{
		embedder:    embedder,
		store:       store,
		topK:        topK,
		maxDistance: maxDistance,
	}
}

// CollectionFor returns the collection name for the scorer's model on the
// given day.
func (s *Scorer) CollectionFor(day time.Time) string {
	return vector.CollectionName(s.embedder.ModelName(), day)
}

// EnsureCollection creates the day's collection if it does not exist yet.
func (s *Scorer) EnsureCollection(ctx context.Context, day time.Time) (string, error) {
	name := s.CollectionFor(day)
	exists, err := s.store.Exists(ctx, name)
	if err != nil {
		return "", err
	}
	if !exists {
		if err := s.store.CreateCollection(ctx, name, s.embedder.Dim()); err != nil {
			return "", err
		}
	}
	return name, nil
}

// Score rates text against the given collection. It is a pure read: nothing
// is written to the store. An empty collection yields a neutral zero; embed
// or query failures yield a Failed result rather than an error so callers
// keep the item.
func (s *Scorer) Score(ctx context.Context, collection, text string) Result {
	text = Truncate(strings.TrimSpace(text), config.MaxScoreTextLength)
	if text == "" {
		return ok(0)
	}

	vecs, err := s.embedder.EmbedTexts(ctx, []string{text})
	if err != nil {
		log.Printf("[relevance] embed failed: %v", err)
		return failed(fmt.Errorf("embed: %w", err))
	}

	neighbors, err := s.store.Query(ctx, collection, vecs[0], s.topK, s.maxDistance)
	if err != nil {
		log.Printf("[relevance] query against %s failed: %v", collection, err)
		return failed(fmt.Errorf("query %s: %w", collection, err))
	}
	if len(neighbors) == 0 {
		return ok(0)
	}

	var sum float64
	for _, n := range neighbors {
		rating := neighborRating(n)
		closeness := 1 - float64(n.Distance)
		if closeness < 0 {
			closeness = 0
		}
		sum += (rating / config.MaxUserRating) * closeness
	}
	return ok(sum / float64(len(neighbors)))
}

// Add embeds text and stores it in the collection with the given rating so
// future queries can find it. IDs must be stable fingerprints so re-imports
// overwrite rather than duplicate.
func (s *Scorer) Add(ctx context.Context, collection, id, text string, rating int, meta map[string]string) error {
	text = Truncate(strings.TrimSpace(text), config.MaxScoreTextLength)
	if text == "" {
		return fmt.Errorf("empty text for %s", id)
	}

	vecs, err := s.embedder.EmbedTexts(ctx, []string{text})
	if err != nil {
		return fmt.Errorf("embed: %w", err)
	}

	if meta == nil {
		meta = map[string]string{}
	}
	meta["rating"] = strconv.Itoa(rating)

	return s.store.Add(ctx, collection, vector.Record{
		ID:       id,
		Text:     text,
		Vector:   vecs[0],
		Metadata: meta,
	})
}

func neighborRating(n vector.Neighbor) float64 {
	raw, okMeta := n.Metadata["rating"]
	if !okMeta {
		return 0
	}
	r, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0
	}
	if r < 0 {
		return 0
	}
	if r > config.MaxUserRating {
		return config.MaxUserRating
	}
	return r
}

// Truncate limits text to max bytes on a rune boundary.
func Truncate(text string, max int) string {
	if max <= 0 || len(text) <= max {
		return text
	}
	runes := []rune(text)
	out := make([]rune, 0, len(runes))
	size := 0
	for _, r := range runes {
		size += len(string(r))
		if size > max {
			break
		}
		out = append(out, r)
	}
	return string(out)
}
