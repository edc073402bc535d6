package collector

import (
	"context"
	"fmt"
	"log"
	"time"

	"curator/dedup"
	"curator/extract"
	"curator/types"
	"curator/webfetch"
)

// WebCollector pulls page sources: a single article page, or an index page
// fanned out over its links when digest splitting is on. Browser-mode
// sources get a headless browser session that is always released, even when
// collection fails partway.
type WebCollector struct {
	Pipeline *Pipeline
}

func NewWebCollector(pipeline *Pipeline) *WebCollector {
	return &WebCollector{Pipeline: pipeline}
}

// Collect pulls one web source and runs its items through the pipeline.
func (c *WebCollector) Collect(ctx context.Context, source types.Source) (types.RunStats, error) {
	scope := dedup.Scope{Kind: types.SourceWeb, Source: source.Name}

	fetcher, cleanup, err := c.fetcher(source)
	if err != nil {
		return types.RunStats{}, fmt.Errorf("fetcher for %s: %w", source.Name, err)
	}
	defer cleanup()

	var items []types.CollectedItem
	if source.DigestSplitting {
		items, err = c.collectDigest(ctx, fetcher, source)
	} else {
		items, err = c.collectPage(ctx, fetcher, source)
	}
	if err != nil {
		return types.RunStats{}, err
	}

	return c.Pipeline.Process(ctx, scope, stamp(items)), nil
}

// fetcher builds the page fetcher for a source. The cleanup func must be
// called on every exit path; for plain HTTP it is a no-op.
func (c *WebCollector) fetcher(source types.Source) (extract.PageFetcher, func(), error) {
	cfg := webfetch.TransportConfig{
		UserAgent: source.UserAgent,
		Proxy:     source.Proxy,
		Headers:   source.Headers,
	}

	if source.BrowserMode {
		session, err := webfetch.NewBrowserSession(cfg, browserWaitSelector(source))
		if err != nil {
			return nil, nil, err
		}
		return session, session.Close, nil
	}

	transport, err := webfetch.NewTransport(cfg)
	if err != nil {
		return nil, nil, err
	}
	return transport, func() {}, nil
}

// browserWaitSelector picks what a browser session waits on per page. For
// digest sources the selector targets article bodies and is absent from
// the index page, so those sessions wait for network idle everywhere.
func browserWaitSelector(source types.Source) string {
	if source.DigestSplitting {
		return ""
	}
	return source.Selector
}

func (c *WebCollector) collectPage(ctx context.Context, fetcher extract.PageFetcher, source types.Source) ([]types.CollectedItem, error) {
	page, lastModified, err := fetcher.FetchPage(ctx, source.URL)
	if err != nil {
		return nil, fmt.Errorf("fetch page %s: %w", source.URL, err)
	}

	result := extract.FromHTML(page, source.URL, source.Selector)
	if result.Content == "" {
		log.Printf("[collector] No content extracted from %s", source.URL)
		return nil, nil
	}

	title := result.Title
	if title == "" {
		title = source.Name
	}

	return []types.CollectedItem{{
		ID:          dedup.WebFingerprint(result.Author, title, source.URL),
		SourceName:  source.Name,
		SourceKind:  types.SourceWeb,
		Title:       title,
		URL:         dedup.CleanURL(source.URL),
		Author:      result.Author,
		Content:     result.Content,
		PublishedAt: lastModified,
	}}, nil
}

func (c *WebCollector) collectDigest(ctx context.Context, fetcher extract.PageFetcher, source types.Source) ([]types.CollectedItem, error) {
	splitter := extract.NewDigestSplitter(fetcher, source.Selector, source.DigestLimit)
	split, err := splitter.Split(ctx, source.URL)
	if err != nil {
		return nil, fmt.Errorf("split digest %s: %w", source.URL, err)
	}

	items := make([]types.CollectedItem, 0, len(split))
	for _, article := range split {
		title := article.Title
		if title == "" {
			title = article.URL
		}
		items = append(items, types.CollectedItem{
			ID:          dedup.WebFingerprint(article.Author, title, article.URL),
			SourceName:  source.Name,
			SourceKind:  types.SourceWeb,
			Title:       title,
			URL:         dedup.CleanURL(article.URL),
			Author:      article.Author,
			Content:     article.Content,
			PublishedAt: article.PublishedAt,
		})
	}
	return items, nil
}

// Runner drives all enabled sources of both kinds and aggregates stats. It
// is the unit both the CLI and the HTTP trigger call into.
type Runner struct {
	RSS *RSSCollector
	Web *WebCollector
}

// RunAll collects every source, RSS first, then web. Per-source failures
// are logged and counted; the run continues.
func (r *Runner) RunAll(ctx context.Context, sources []types.Source) types.RunStats {
	var total types.RunStats
	started := time.Now()

	for _, source := range sources {
		var stats types.RunStats
		var err error

		switch source.Kind {
		case types.SourceRSS:
			stats, err = r.RSS.Collect(ctx, source)
		case types.SourceWeb:
			stats, err = r.Web.Collect(ctx, source)
		default:
			log.Printf("[collector] Unknown source kind %q for %s", source.Kind, source.Name)
			continue
		}
		if err != nil {
			log.Printf("[collector] Source %s failed: %v", source.Name, err)
			total.Errors++
			continue
		}

		total.Total += stats.Total
		total.Duplicates += stats.Duplicates
		total.Errors += stats.Errors
		total.Published += stats.Published
	}

	log.Printf("[collector] Run finished in %s: total=%d duplicates=%d errors=%d published=%d",
		time.Since(started).Round(time.Millisecond),
		total.Total, total.Duplicates, total.Errors, total.Published)
	return total
}
