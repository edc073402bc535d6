package collector

import (
	"context"
	"errors"
	"testing"

	"curator/dedup"
	"curator/llm"
	"curator/relevance"
	"curator/types"
	"curator/vector"
)

type publishedItem struct {
	item  types.CollectedItem
	score float64
}

type fakePublisher struct {
	published []publishedItem
	failIDs   map[string]bool
}

func (f *fakePublisher) Name() string { return "fake" }

func (f *fakePublisher) Publish(_ context.Context, item *types.CollectedItem, score float64) error {
	if f.failIDs[item.ID] {
		return errors.New("sink down")
	}
	f.published = append(f.published, publishedItem{item: *item, score: score})
	return nil
}

type seqEmbedder struct{}

func (seqEmbedder) EmbedTexts(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{1, 0, 0}
	}
	return out, nil
}
func (seqEmbedder) ModelName() string { return "seq" }
func (seqEmbedder) Dim() int          { return 3 }

// seqStore answers queries from a queue, one response per scored item.
type seqStore struct {
	responses [][]vector.Neighbor
	calls     int
}

func (s *seqStore) CreateCollection(_ context.Context, _ string, _ int) error { return nil }
func (s *seqStore) Exists(_ context.Context, _ string) (bool, error)          { return true, nil }
func (s *seqStore) Add(_ context.Context, _ string, _ vector.Record) error    { return nil }
func (s *seqStore) Flush(_ context.Context, _ string) error                   { return nil }
func (s *seqStore) Close() error                                              { return nil }

func (s *seqStore) Query(_ context.Context, _ string, _ []float32, _ int, _ float32) ([]vector.Neighbor, error) {
	if s.calls >= len(s.responses) {
		return nil, nil
	}
	resp := s.responses[s.calls]
	s.calls++
	return resp, nil
}

type countingChat struct {
	reply string
	calls int
}

func (c *countingChat) Complete(_ context.Context, _, _ string) (string, error) {
	c.calls++
	return c.reply, nil
}
func (c *countingChat) ModelName() string { return "counting" }

func rated(rating string, distance float32) []vector.Neighbor {
	return []vector.Neighbor{{ID: "n", Distance: distance, Metadata: map[string]string{"rating": rating}}}
}

func item(id, title string) types.CollectedItem {
	return types.CollectedItem{
		ID:         id,
		SourceName: "src",
		SourceKind: types.SourceWeb,
		Title:      title,
		URL:        "https://example.com/" + id,
		Content:    "content of " + title,
	}
}

func testScope() dedup.Scope {
	return dedup.Scope{Kind: types.SourceWeb, Source: "src"}
}

func TestProcessMarksSeenOnlyAfterPublish(t *testing.T) {
	ctx := context.Background()
	seen := dedup.NewSeenStore(dedup.NewMemoryKV())
	sink := &fakePublisher{failIDs: map[string]bool{"bad": true}}

	p := &Pipeline{Seen: seen, Publisher: sink}
	stats := p.Process(ctx, testScope(), stamp([]types.CollectedItem{item("good", "Good"), item("bad", "Bad")}))

	if stats.Published != 1 || stats.Errors != 1 {
		t.Fatalf("stats = %+v", stats)
	}

	goodSeen, _ := seen.Seen(ctx, testScope(), "good")
	badSeen, _ := seen.Seen(ctx, testScope(), "bad")
	if !goodSeen {
		t.Error("published item must be marked seen")
	}
	if badSeen {
		t.Error("failed publish must leave the item unmarked so the next run retries")
	}
}

func TestProcessNotifiesPublishedObserver(t *testing.T) {
	ctx := context.Background()
	sink := &fakePublisher{failIDs: map[string]bool{"bad": true}}

	var observed []types.CollectedItem
	p := &Pipeline{
		Seen:      dedup.NewSeenStore(dedup.NewMemoryKV()),
		Publisher: sink,
		OnPublished: func(item types.CollectedItem, score float64) {
			observed = append(observed, item)
		},
	}
	p.Process(ctx, testScope(), stamp([]types.CollectedItem{item("good", "Good"), item("bad", "Bad")}))

	if len(observed) != 1 || observed[0].ID != "good" {
		t.Errorf("observer must see exactly the published items, got %v", observed)
	}
}

func TestProcessSkipsDuplicates(t *testing.T) {
	ctx := context.Background()
	seen := dedup.NewSeenStore(dedup.NewMemoryKV())
	sink := &fakePublisher{}
	p := &Pipeline{Seen: seen, Publisher: sink}

	items := stamp([]types.CollectedItem{item("a", "A"), item("b", "B")})
	first := p.Process(ctx, testScope(), items)
	if first.Published != 2 {
		t.Fatalf("first run: %+v", first)
	}

	second := p.Process(ctx, testScope(), items)
	if second.Duplicates != 2 || second.Published != 0 {
		t.Errorf("second run must treat everything as duplicate: %+v", second)
	}
	if len(sink.published) != 2 {
		t.Errorf("sink received %d items", len(sink.published))
	}
}

func TestProcessFiltersByMinScoreButKeepsUnscored(t *testing.T) {
	ctx := context.Background()
	store := &seqStore{responses: [][]vector.Neighbor{
		rated("5", 0.1), // high score
		rated("1", 0.4), // low score, below threshold
	}}
	scorer := relevance.NewScorer(seqEmbedder{}, store, 2, 0.45)
	sink := &fakePublisher{}

	p := &Pipeline{
		Seen:      dedup.NewSeenStore(dedup.NewMemoryKV()),
		Scorer:    scorer,
		Publisher: sink,
		MinScore:  0.5,
	}

	stats := p.Process(ctx, testScope(), stamp([]types.CollectedItem{
		item("high", "High"),
		item("low", "Low"),
		item("unscored", "Unscored"), // seqStore queue exhausted: no neighbors, neutral 0
	}))

	// high passes, low is dropped, unscored (neutral 0 < 0.5) is dropped too;
	// neutral zero is a real score.
	if stats.Published != 1 {
		t.Fatalf("stats = %+v, published items: %v", stats, sink.published)
	}
	if sink.published[0].item.ID != "high" {
		t.Errorf("wrong survivor: %s", sink.published[0].item.ID)
	}
}

func TestProcessScoringOutageNeverDropsItems(t *testing.T) {
	ctx := context.Background()
	// No scorer at all: Disabled projection, below any positive MinScore,
	// but unscored items must pass the filter.
	sink := &fakePublisher{}
	p := &Pipeline{
		Seen:      dedup.NewSeenStore(dedup.NewMemoryKV()),
		Publisher: sink,
		MinScore:  0.5,
	}

	stats := p.Process(ctx, testScope(), stamp([]types.CollectedItem{item("a", "A")}))
	if stats.Published != 1 {
		t.Fatalf("unscored item was dropped: %+v", stats)
	}
	if sink.published[0].score != relevance.DisabledScore {
		t.Errorf("published score = %f, want disabled projection", sink.published[0].score)
	}
}

func TestProcessMaxItemsKeepsBestFirst(t *testing.T) {
	ctx := context.Background()
	store := &seqStore{responses: [][]vector.Neighbor{
		rated("2", 0.4),
		rated("5", 0.05),
		rated("4", 0.2),
	}}
	scorer := relevance.NewScorer(seqEmbedder{}, store, 2, 0.45)
	sink := &fakePublisher{}

	p := &Pipeline{
		Seen:      dedup.NewSeenStore(dedup.NewMemoryKV()),
		Scorer:    scorer,
		Publisher: sink,
		MaxItems:  2,
	}

	stats := p.Process(ctx, testScope(), stamp([]types.CollectedItem{
		item("mid", "Mid"),
		item("best", "Best"),
		item("good", "Good"),
	}))

	if stats.Published != 2 {
		t.Fatalf("stats = %+v", stats)
	}
	if sink.published[0].item.ID != "best" || sink.published[1].item.ID != "good" {
		t.Errorf("cap must keep the best-scored items: %v", sink.published)
	}
}

func TestProcessSummaryCacheSkipsSecondCall(t *testing.T) {
	ctx := context.Background()
	kv := dedup.NewMemoryKV()
	chat := &countingChat{reply: "a summary"}
	// Publisher fails the first run, so the item is retried on the second.
	sink := &fakePublisher{failIDs: map[string]bool{"a": true}}

	p := &Pipeline{
		Seen:       dedup.NewSeenStore(kv),
		Cache:      dedup.NewResultCache(kv),
		Summarizer: llm.NewSummarizer(chat),
		Publisher:  sink,
	}

	items := stamp([]types.CollectedItem{item("a", "A")})
	p.Process(ctx, testScope(), items)
	if chat.calls != 1 {
		t.Fatalf("first run should summarize once, got %d", chat.calls)
	}

	sink.failIDs = nil
	stats := p.Process(ctx, testScope(), items)
	if stats.Published != 1 {
		t.Fatalf("retry run: %+v", stats)
	}
	if chat.calls != 1 {
		t.Errorf("cached summary must not call the model again, got %d calls", chat.calls)
	}
	if sink.published[0].item.Summary != "a summary" {
		t.Errorf("summary = %q", sink.published[0].item.Summary)
	}
}

func TestProcessSummarizerFailureFallsBackToContent(t *testing.T) {
	ctx := context.Background()
	sink := &fakePublisher{}
	p := &Pipeline{
		Seen:       dedup.NewSeenStore(dedup.NewMemoryKV()),
		Summarizer: llm.NewSummarizer(failingChat{}),
		Publisher:  sink,
	}

	stats := p.Process(ctx, testScope(), stamp([]types.CollectedItem{item("a", "A")}))
	if stats.Published != 1 {
		t.Fatalf("item must still publish: %+v", stats)
	}
	if sink.published[0].item.Summary != "" {
		t.Errorf("failed summary must stay empty, got %q", sink.published[0].item.Summary)
	}
	if stats.Errors != 1 {
		t.Errorf("summarizer failure should be counted: %+v", stats)
	}
}

type failingChat struct{}

func (failingChat) Complete(_ context.Context, _, _ string) (string, error) {
	return "", errors.New("model down")
}
func (failingChat) ModelName() string { return "failing" }

func TestProcessRankingAttachesTags(t *testing.T) {
	ctx := context.Background()
	chat := &countingChat{reply: `{"topics":[{"topic":"go","category":"tech","score":0.9},{"topic":"go","category":"tech","score":0.8}],"overall_score":0.9}`}
	sink := &fakePublisher{}

	p := &Pipeline{
		Seen:           dedup.NewSeenStore(dedup.NewMemoryKV()),
		Ranker:         llm.NewRanker(chat),
		RankingEnabled: true,
		Publisher:      sink,
	}

	p.Process(ctx, testScope(), stamp([]types.CollectedItem{item("a", "A")}))
	tags := sink.published[0].item.Tags
	if len(tags) != 1 || tags[0] != "go" {
		t.Errorf("tags = %v, duplicate topics must collapse", tags)
	}
}

func TestProcessRankingDisabled(t *testing.T) {
	ctx := context.Background()
	chat := &countingChat{reply: `{"topics":[{"topic":"go"}]}`}
	sink := &fakePublisher{}

	p := &Pipeline{
		Seen:           dedup.NewSeenStore(dedup.NewMemoryKV()),
		Ranker:         llm.NewRanker(chat),
		RankingEnabled: false,
		Publisher:      sink,
	}

	p.Process(ctx, testScope(), stamp([]types.CollectedItem{item("a", "A")}))
	if chat.calls != 0 {
		t.Error("disabled ranking must not call the model")
	}
	if len(sink.published[0].item.Tags) != 0 {
		t.Errorf("tags = %v", sink.published[0].item.Tags)
	}
}

func TestProcessEmptyBatch(t *testing.T) {
	p := &Pipeline{
		Seen:      dedup.NewSeenStore(dedup.NewMemoryKV()),
		Publisher: &fakePublisher{},
	}
	stats := p.Process(context.Background(), testScope(), nil)
	if stats != (types.RunStats{}) {
		t.Errorf("empty batch: %+v", stats)
	}
}
