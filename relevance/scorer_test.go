package relevance

import (
	"context"
	"errors"
	"testing"
	"time"

	"curator/vector"
)

type fakeEmbedder struct {
	fail bool
}

func (f *fakeEmbedder) EmbedTexts(_ context.Context, texts []string) ([][]float32, error) {
	if f.fail {
		return nil, errors.New("embed down")
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{1, 0, 0}
	}
	return out, nil
}

func (f *fakeEmbedder) ModelName() string { return "fake-model" }
func (f *fakeEmbedder) Dim() int          { return 3 }

type fakeStore struct {
	neighbors   []vector.Neighbor
	failQuery   bool
	added       []vector.Record
	collections map[string]int
}

func newFakeStore() *fakeStore {
	return &fakeStore{collections: make(map[string]int)}
}

func (f *fakeStore) CreateCollection(_ context.Context, name string, dim int) error {
	f.collections[name] = dim
	return nil
}

func (f *fakeStore) Exists(_ context.Context, name string) (bool, error) {
	_, ok := f.collections[name]
	return ok, nil
}

func (f *fakeStore) Add(_ context.Context, _ string, rec vector.Record) error {
	f.added = append(f.added, rec)
	return nil
}

func (f *fakeStore) Query(_ context.Context, _ string, _ []float32, topK int, maxDistance float32) ([]vector.Neighbor, error) {
	if f.failQuery {
		return nil, errors.New("store down")
	}
	var out []vector.Neighbor
	for _, n := range f.neighbors {
		if n.Distance <= maxDistance {
			out = append(out, n)
		}
		if len(out) == topK {
			break
		}
	}
	return out, nil
}

func (f *fakeStore) Flush(_ context.Context, _ string) error { return nil }
func (f *fakeStore) Close() error                            { return nil }

func TestScoreNeutralOnEmptyCollection(t *testing.T) {
	scorer := NewScorer(&fakeEmbedder{}, newFakeStore(), 2, 0.45)
	res := scorer.Score(context.Background(), "c", "some fresh text")

	if !res.Scored() {
		t.Fatalf("expected Ok result, got status %v err %v", res.Status, res.Err)
	}
	if res.Value != 0 {
		t.Errorf("no neighbors must score neutral 0, got %f", res.Value)
	}
}

func TestScoreWeightsRatingAndCloseness(t *testing.T) {
	store := newFakeStore()
	store.neighbors = []vector.Neighbor{
		{ID: "a", Distance: 0.1, Metadata: map[string]string{"rating": "5"}},
		{ID: "b", Distance: 0.3, Metadata: map[string]string{"rating": "3"}},
	}
	scorer := NewScorer(&fakeEmbedder{}, store, 2, 0.45)

	res := scorer.Score(context.Background(), "c", "text")
	if !res.Scored() {
		t.Fatalf("expected Ok, got %v", res.Status)
	}

	// ((5/5)*0.9 + (3/5)*0.7) / 2
	want := (0.9 + 0.42) / 2
	if diff := res.Value - want; diff > 1e-6 || diff < -1e-6 {
		t.Errorf("score = %f, want %f", res.Value, want)
	}
}

func TestScoreIgnoresNeighborsBeyondThreshold(t *testing.T) {
	store := newFakeStore()
	store.neighbors = []vector.Neighbor{
		{ID: "far", Distance: 0.9, Metadata: map[string]string{"rating": "5"}},
	}
	scorer := NewScorer(&fakeEmbedder{}, store, 2, 0.45)

	res := scorer.Score(context.Background(), "c", "text")
	if res.Value != 0 {
		t.Errorf("out-of-threshold neighbors must not contribute, got %f", res.Value)
	}
}

func TestScoreFailedOnEmbedError(t *testing.T) {
	scorer := NewScorer(&fakeEmbedder{fail: true}, newFakeStore(), 2, 0.45)
	res := scorer.Score(context.Background(), "c", "text")

	if res.Status != Failed {
		t.Fatalf("embed failure must yield Failed, got %v", res.Status)
	}
	if res.Score() != FailedScore {
		t.Errorf("Failed projection = %f, want %f", res.Score(), FailedScore)
	}
	if res.Err == nil {
		t.Error("Failed result must carry the cause")
	}
}

func TestScoreFailedOnQueryError(t *testing.T) {
	store := newFakeStore()
	store.failQuery = true
	scorer := NewScorer(&fakeEmbedder{}, store, 2, 0.45)

	res := scorer.Score(context.Background(), "c", "text")
	if res.Status != Failed {
		t.Errorf("query failure must yield Failed, got %v", res.Status)
	}
}

func TestResultProjections(t *testing.T) {
	cases := []struct {
		result Result
		want   float64
	}{
		{Result{Status: Ok, Value: 0.7}, 0.7},
		{Result{Status: Failed}, -1.0},
		{Result{Status: Disabled}, -0.02},
		{Result{Status: Unparsable}, -0.01},
	}
	for _, c := range cases {
		if got := c.result.Score(); got != c.want {
			t.Errorf("status %v projects to %f, want %f", c.result.Status, got, c.want)
		}
	}
}

func TestEnsureCollectionCreatesOnce(t *testing.T) {
	store := newFakeStore()
	scorer := NewScorer(&fakeEmbedder{}, store, 2, 0.45)
	day := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)

	name, err := scorer.EnsureCollection(context.Background(), day)
	if err != nil {
		t.Fatalf("EnsureCollection: %v", err)
	}
	if dim := store.collections[name]; dim != 3 {
		t.Errorf("collection created with dim %d, want embedder dim 3", dim)
	}

	again, err := scorer.EnsureCollection(context.Background(), day)
	if err != nil {
		t.Fatalf("EnsureCollection second call: %v", err)
	}
	if again != name {
		t.Errorf("same day must map to the same collection: %q vs %q", again, name)
	}
}

func TestAddStoresRatingMetadata(t *testing.T) {
	store := newFakeStore()
	scorer := NewScorer(&fakeEmbedder{}, store, 2, 0.45)

	if err := scorer.Add(context.Background(), "c", "id-1", "seed text", 4, nil); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if len(store.added) != 1 {
		t.Fatalf("expected one record, got %d", len(store.added))
	}
	if store.added[0].Metadata["rating"] != "4" {
		t.Errorf("rating metadata = %q", store.added[0].Metadata["rating"])
	}
}

func TestAddRejectsEmptyText(t *testing.T) {
	scorer := NewScorer(&fakeEmbedder{}, newFakeStore(), 2, 0.45)
	if err := scorer.Add(context.Background(), "c", "id", "   ", 3, nil); err == nil {
		t.Error("blank text must be rejected")
	}
}

func TestTruncateRuneBoundary(t *testing.T) {
	s := "héllo wörld"
	out := Truncate(s, 6)
	if len(out) > 6 {
		t.Errorf("truncated to %d bytes, want <= 6", len(out))
	}
	for _, r := range out {
		if r == '�' {
			t.Error("truncation must not split a rune")
		}
	}
	if Truncate("short", 100) != "short" {
		t.Error("under-limit text must pass through")
	}
}
