package extract

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"net/url"
	"time"

	"github.com/PuerkitoBio/goquery"

	"curator/config"
)

// PageFetcher fetches one page and reports its Last-Modified time when the
// transport observed one.
type PageFetcher interface {
	FetchPage(ctx context.Context, url string) ([]byte, time.Time, error)
}

// Item is one article extracted during digest splitting.
type Item struct {
	Result
	URL         string
	PublishedAt time.Time
}

// DigestSplitter turns one index/listing page into up to limit extracted
// articles by fanning the extractor out over the page's outbound links.
type DigestSplitter struct {
	fetcher  PageFetcher
	selector string
	limit    int
}

// NewDigestSplitter wires a page fetcher; limit defaults when non-positive.
func NewDigestSplitter(fetcher PageFetcher, selector string, limit int) *DigestSplitter {
	if limit <= 0 {
		limit = config.DefaultDigestLimit
	}
	return &DigestSplitter{fetcher: fetcher, selector: selector, limit: limit}
}

// Split fetches the index page once, harvests its anchors in order of first
// appearance, and extracts at most limit of them. A single article's
// failure is logged and skipped; it never aborts the remaining items.
// Items whose extracted content is empty are dropped, not returned as
// placeholders. Each call re-fetches the index page.
func (d *DigestSplitter) Split(ctx context.Context, indexURL string) ([]Item, error) {
	html, _, err := d.fetcher.FetchPage(ctx, indexURL)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch digest index %s: %w", indexURL, err)
	}
	if len(html) == 0 {
		return nil, nil
	}

	links := LinksFromHTML(indexURL, html)
	log.Printf("[extract] Found %d URLs in digest %s", len(links), indexURL)

	visit := len(links)
	if visit > d.limit {
		visit = d.limit
	}

	items := make([]Item, 0, visit)
	for _, link := range links[:visit] {
		pageHTML, lastModified, err := d.fetcher.FetchPage(ctx, link)
		if err != nil {
			log.Printf("[extract] Failed to fetch digest item %s: %v", link, err)
			continue
		}

		result := FromHTML(pageHTML, link, d.selector)
		if result.Content == "" {
			continue
		}

		items = append(items, Item{Result: result, URL: link, PublishedAt: lastModified})
		log.Printf("[extract] Extracted digest item: %.50s", result.Title)
	}

	log.Printf("[extract] Extracted %d articles from digest %s", len(items), indexURL)
	return items, nil
}

// LinksFromHTML extracts all anchor hrefs from html, resolved to absolute
// URLs against baseURL, in order of first appearance. Duplicates are kept;
// collapsing them is the identity engine's job.
func LinksFromHTML(baseURL string, html []byte) []string {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		log.Printf("[extract] Failed to parse digest page %s: %v", baseURL, err)
		return nil
	}

	base, err := url.Parse(baseURL)
	if err != nil {
		log.Printf("[extract] Invalid digest base URL %s: %v", baseURL, err)
		return nil
	}

	var links []string
	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href, ok := sel.Attr("href")
		if !ok || href == "" {
			return
		}
		ref, err := url.Parse(href)
		if err != nil {
			return
		}
		links = append(links, base.ResolveReference(ref).String())
	})

	return links
}
