// Package collector pulls items from configured sources and pushes the
// survivors downstream: pull, dedup, score, summarize, rank, publish. Every
// stage recovers per item; one bad article never aborts a run.
package collector

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"sort"
	"strings"
	"time"

	"curator/dedup"
	"curator/llm"
	"curator/publish"
	"curator/relevance"
	"curator/types"
)

// Pipeline is the shared post-pull half of every collector. Seen and
// Publisher are required; the other stages are optional and skipped when
// nil.
type Pipeline struct {
	Seen       *dedup.SeenStore
	Cache      *dedup.ResultCache
	Scorer     *relevance.Scorer
	Summarizer *llm.Summarizer
	Ranker     *llm.Ranker
	Publisher  publish.Publisher

	// RankingEnabled gates the topic classification stage. When off, items
	// carry the disabled score projection instead of topics.
	RankingEnabled bool

	// MinScore drops items whose real relevance score is below it. Items
	// whose score could not be computed are never dropped here.
	MinScore float64

	// MaxItems caps how many items one run publishes, best first. Zero
	// means no cap.
	MaxItems int

	// OnPublished, when set, observes every successfully published item
	// with its score projection. The CLI uses it to carry published items
	// into the archived run record.
	OnPublished func(item types.CollectedItem, score float64)
}

type scoredItem struct {
	item  types.CollectedItem
	score relevance.Result
}

// Process runs its items through dedup, scoring, summarization, ranking and
// publishing, returning per-run stats. Items are marked seen only after a
// successful publish, so failures are retried on the next run.
func (p *Pipeline) Process(ctx context.Context, scope dedup.Scope, items []types.CollectedItem) types.RunStats {
	stats := types.RunStats{Total: len(items)}
	if len(items) == 0 {
		return stats
	}

	fresh := p.dropSeen(ctx, scope, items, &stats)
	scored := p.scoreAll(ctx, fresh, &stats)
	kept := p.filter(scored)

	for i := range kept {
		item := &kept[i].item

		p.summarize(ctx, scope, item, &stats)
		p.rank(ctx, scope, item, &stats)

		if err := p.Publisher.Publish(ctx, item, kept[i].score.Score()); err != nil {
			log.Printf("[collector] Publish failed for %s: %v", item.Title, err)
			stats.Errors++
			continue
		}
		stats.Published++
		if p.OnPublished != nil {
			p.OnPublished(*item, kept[i].score.Score())
		}

		if err := p.Seen.MarkSeen(ctx, scope, item.ID); err != nil {
			// The item is already out the door; at worst the next run
			// re-publishes it.
			log.Printf("[collector] Failed to mark %s seen: %v", item.ID, err)
			stats.Errors++
		}
	}

	log.Printf("[collector] %s: total=%d duplicates=%d errors=%d published=%d",
		scope, stats.Total, stats.Duplicates, stats.Errors, stats.Published)
	return stats
}

func (p *Pipeline) dropSeen(ctx context.Context, scope dedup.Scope, items []types.CollectedItem, stats *types.RunStats) []types.CollectedItem {
	fresh := make([]types.CollectedItem, 0, len(items))
	for _, item := range items {
		seen, err := p.Seen.Seen(ctx, scope, item.ID)
		if err != nil {
			// A broken seen store must not drop content. Treat as unseen.
			log.Printf("[collector] Seen check failed for %s: %v", item.ID, err)
			stats.Errors++
		}
		if seen {
			stats.Duplicates++
			continue
		}
		fresh = append(fresh, item)
	}
	return fresh
}

func (p *Pipeline) scoreAll(ctx context.Context, items []types.CollectedItem, stats *types.RunStats) []scoredItem {
	scored := make([]scoredItem, 0, len(items))
	for _, item := range items {
		res := relevance.Result{Status: relevance.Disabled}
		if p.Scorer != nil {
			collection, err := p.Scorer.EnsureCollection(ctx, item.CollectedAt)
			if err != nil {
				log.Printf("[collector] Collection setup failed: %v", err)
				res = relevance.Result{Status: relevance.Failed, Err: err}
			} else {
				res = p.Scorer.Score(ctx, collection, scoreText(&item))
			}
			if res.Status == relevance.Failed {
				stats.Errors++
			}
		}
		scored = append(scored, scoredItem{item: item, score: res})
	}
	return scored
}

// filter applies the relevance threshold and the run cap. Only items with a
// real score can fall below MinScore; unscored items pass through so a
// scoring outage never silently discards content. Ordering is by score
// descending with input order as the tie break.
func (p *Pipeline) filter(scored []scoredItem) []scoredItem {
	kept := make([]scoredItem, 0, len(scored))
	for _, s := range scored {
		if s.score.Scored() && s.score.Value < p.MinScore {
			log.Printf("[collector] Dropping %q: score %.3f below %.3f",
				s.item.Title, s.score.Value, p.MinScore)
			continue
		}
		kept = append(kept, s)
	}

	sort.SliceStable(kept, func(i, j int) bool {
		return kept[i].score.Score() > kept[j].score.Score()
	})

	if p.MaxItems > 0 && len(kept) > p.MaxItems {
		kept = kept[:p.MaxItems]
	}
	return kept
}

// summarize fills item.Summary, consulting the cache before the model. A
// summarizer failure leaves the raw content as the fallback body.
func (p *Pipeline) summarize(ctx context.Context, scope dedup.Scope, item *types.CollectedItem, stats *types.RunStats) {
	if p.Summarizer == nil {
		return
	}

	if p.Cache != nil {
		if cached, ok, err := p.Cache.GetSummary(ctx, scope, item.ID); err == nil && ok {
			item.Summary = cached
			return
		}
	}

	summary, err := p.Summarizer.Summarize(ctx, item.Title, item.Content)
	if err != nil {
		log.Printf("[collector] Summarize failed for %s, publishing raw content: %v", item.Title, err)
		stats.Errors++
		return
	}
	item.Summary = summary

	if p.Cache != nil {
		if err := p.Cache.SetSummary(ctx, scope, item.ID, summary); err != nil {
			log.Printf("[collector] Failed to cache summary for %s: %v", item.ID, err)
		}
	}
}

// rank attaches topic tags from the classifier, cache first. Disabled or
// failed ranking leaves the item untagged.
func (p *Pipeline) rank(ctx context.Context, scope dedup.Scope, item *types.CollectedItem, stats *types.RunStats) {
	if !p.RankingEnabled || p.Ranker == nil {
		return
	}

	text := item.Summary
	if text == "" {
		text = item.Content
	}

	if p.Cache != nil {
		if raw, ok, err := p.Cache.GetRanking(ctx, scope, item.ID); err == nil && ok {
			if ranking, err := llm.ParseRanking(raw); err == nil {
				item.Tags = topicTags(ranking)
				return
			}
		}
	}

	ranking, err := p.Ranker.Rank(ctx, item.Title, text)
	if err != nil {
		var unparsable *llm.UnparsableError
		if errors.As(err, &unparsable) {
			log.Printf("[collector] Unparsable ranking for %s", item.Title)
		} else {
			log.Printf("[collector] Ranking failed for %s: %v", item.Title, err)
		}
		stats.Errors++
		return
	}
	item.Tags = topicTags(ranking)

	if p.Cache != nil {
		if raw, err := json.Marshal(ranking); err == nil {
			if err := p.Cache.SetRanking(ctx, scope, item.ID, string(raw)); err != nil {
				log.Printf("[collector] Failed to cache ranking for %s: %v", item.ID, err)
			}
		}
	}
}

func topicTags(r *llm.Ranking) []string {
	seen := map[string]bool{}
	var tags []string
	for _, t := range r.Topics {
		name := strings.TrimSpace(t.Topic)
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		tags = append(tags, name)
	}
	return tags
}

func scoreText(item *types.CollectedItem) string {
	if item.Summary != "" {
		return item.Title + "\n" + item.Summary
	}
	return item.Title + "\n" + item.Content
}

// stamp fills the collection timestamp on items that lack one.
func stamp(items []types.CollectedItem) []types.CollectedItem {
	now := time.Now().UTC()
	for i := range items {
		if items[i].CollectedAt.IsZero() {
			items[i].CollectedAt = now
		}
	}
	return items
}
