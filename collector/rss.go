package collector

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/mmcdole/gofeed"

	"curator/config"
	"curator/dedup"
	"curator/extract"
	"curator/types"
	"curator/webfetch"
)

// RSSCollector pulls feed sources. Fetches are conditional: the transport
// sends If-Modified-Since from the previous successful pull, and a 304
// short-circuits the run before the feed is even parsed.
type RSSCollector struct {
	Pipeline *Pipeline

	// HoursBack bounds how old a feed entry may be and still be collected.
	HoursBack int

	mu          sync.Mutex
	lastFetched map[string]time.Time
}

func NewRSSCollector(pipeline *Pipeline, hoursBack int) *RSSCollector {
	if hoursBack <= 0 {
		hoursBack = config.DefaultHoursBack
	}
	return &RSSCollector{
		Pipeline:    pipeline,
		HoursBack:   hoursBack,
		lastFetched: make(map[string]time.Time),
	}
}

// Collect pulls one feed source and runs its items through the pipeline.
func (c *RSSCollector) Collect(ctx context.Context, source types.Source) (types.RunStats, error) {
	scope := dedup.Scope{Kind: types.SourceRSS, Source: source.Name}

	transport, err := webfetch.NewTransport(webfetch.TransportConfig{
		UserAgent: source.UserAgent,
		Proxy:     source.Proxy,
		Headers:   source.Headers,
	})
	if err != nil {
		return types.RunStats{}, fmt.Errorf("transport for %s: %w", source.Name, err)
	}

	raw, err := transport.Fetch(ctx, source.URL, c.since(source.URL))
	if errors.Is(err, webfetch.ErrNotModified) {
		log.Printf("[collector] Feed %s not modified, skipping", source.Name)
		return types.RunStats{}, nil
	}
	if err != nil {
		var rateLimited *webfetch.RateLimitedError
		if errors.As(err, &rateLimited) {
			log.Printf("[collector] Feed %s rate limited", source.Name)
		}
		return types.RunStats{}, fmt.Errorf("fetch feed %s: %w", source.Name, err)
	}
	c.markFetched(source.URL)

	feed, err := gofeed.NewParser().ParseString(string(raw.Body))
	if err != nil {
		return types.RunStats{}, fmt.Errorf("parse feed %s: %w", source.Name, err)
	}

	items := c.itemsFromFeed(ctx, transport, source, feed)
	log.Printf("[collector] Feed %s: %d entries, %d within window", source.Name, len(feed.Items), len(items))

	return c.Pipeline.Process(ctx, scope, stamp(items)), nil
}

func (c *RSSCollector) itemsFromFeed(ctx context.Context, transport *webfetch.Transport, source types.Source, feed *gofeed.Feed) []types.CollectedItem {
	cutoff := time.Now().Add(-time.Duration(c.HoursBack) * time.Hour)

	count := source.FeedCount
	if count <= 0 {
		count = config.DefaultFeedCount
	}

	var items []types.CollectedItem
	for _, entry := range feed.Items {
		// Feeds list newest first; stopping early also skips the full
		// article fetches for entries past the cap.
		if len(items) >= count {
			break
		}
		var published time.Time
		if entry.PublishedParsed != nil {
			published = *entry.PublishedParsed
		} else if entry.UpdatedParsed != nil {
			published = *entry.UpdatedParsed
		}
		// Undated entries are kept; dropping them would lose whole feeds
		// that never set a date.
		if !published.IsZero() && published.Before(cutoff) {
			continue
		}

		content := entry.Content
		if content == "" {
			content = entry.Description
		}

		if source.FetchFullArticle && entry.Link != "" {
			if full := c.fetchFullArticle(ctx, transport, source, entry.Link); full != "" {
				content = full
			}
		}
		if content == "" && entry.Link != "" {
			// Some feeds ship link-only entries; pull the article itself
			// before giving up on the entry.
			content = c.fetchFullArticle(ctx, transport, source, entry.Link)
		}
		if content == "" {
			log.Printf("[collector] Skipping empty entry %q from %s", entry.Title, source.Name)
			continue
		}

		author := ""
		if len(entry.Authors) > 0 {
			author = entry.Authors[0].Name
		}

		key := dedup.PublishedKey(published, entry.Published)
		items = append(items, types.CollectedItem{
			ID:          dedup.FeedFingerprint(source.Name, entry.Title, key),
			SourceName:  source.Name,
			SourceKind:  types.SourceRSS,
			Title:       entry.Title,
			URL:         entry.Link,
			Author:      author,
			Content:     content,
			PublishedAt: published,
		})
	}
	return items
}

// fetchFullArticle pulls the entry's own page and extracts its body. Any
// failure falls back to the feed-provided content.
func (c *RSSCollector) fetchFullArticle(ctx context.Context, transport *webfetch.Transport, source types.Source, link string) string {
	page, _, err := transport.FetchPage(ctx, link)
	if err != nil {
		log.Printf("[collector] Full article fetch failed for %s: %v", link, err)
		return ""
	}
	result := extract.FromHTML(page, link, source.Selector)
	return result.Content
}

func (c *RSSCollector) since(url string) time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastFetched[url]
}

func (c *RSSCollector) markFetched(url string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastFetched[url] = time.Now().UTC()
}
