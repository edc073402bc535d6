package extract

import (
	"bytes"
	"fmt"
	"log"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"
)

// Result is the normalized output of content extraction. Empty Content
// means nothing was extracted; it is a normal outcome, not an error.
type Result struct {
	Author   string
	Title    string
	Content  string
	Language string
}

// FromHTML extracts the meaningful article content out of raw HTML.
//
// When selector is non-empty the first matching node's text is taken;
// no match yields empty content. Without a selector the generic
// readability extraction produces the best-effort main body text.
// Metadata (author, title) is extracted independently so a metadata
// failure never blocks content extraction, and vice versa.
func FromHTML(html []byte, pageURL, selector string) Result {
	if len(html) == 0 {
		return Result{}
	}

	var content string
	if selector != "" {
		extracted, err := Select(html, selector, false)
		if err != nil {
			log.Printf("[extract] Selector extraction failed for %s: %v", pageURL, err)
		}
		content = extracted
	} else {
		content = readable(html, pageURL)
	}

	if content == "" {
		return Result{}
	}

	author, title := Meta(html, pageURL)

	return Result{
		Author:   author,
		Title:    title,
		Content:  content,
		Language: detectLang(html),
	}
}

// Select applies a CSS selector and returns the first match's text content,
// or its inner HTML when rawMarkup is true. No match returns empty content
// and no error; a parse failure is an error.
func Select(html []byte, selector string, rawMarkup bool) (string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return "", fmt.Errorf("failed to parse document: %w", err)
	}

	sel := doc.Find(selector).First()
	if sel.Length() == 0 {
		log.Printf("[extract] No content found for selector: %s", selector)
		return "", nil
	}

	if rawMarkup {
		inner, err := sel.Html()
		if err != nil {
			return "", fmt.Errorf("failed to serialize selection: %w", err)
		}
		return inner, nil
	}

	return strings.TrimSpace(sel.Text()), nil
}

// Meta extracts (author, title) from document metadata: OpenGraph tags
// first, then conventional meta tags, then the title element.
func Meta(html []byte, pageURL string) (string, string) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		log.Printf("[extract] Metadata parse failed for %s: %v", pageURL, err)
		return "", ""
	}

	author := metaContent(doc,
		`meta[property="article:author"]`,
		`meta[name="author"]`,
		`meta[property="og:article:author"]`,
	)

	title := metaContent(doc,
		`meta[property="og:title"]`,
		`meta[name="twitter:title"]`,
	)
	if title == "" {
		title = strings.TrimSpace(doc.Find("title").First().Text())
	}

	return author, title
}

func metaContent(doc *goquery.Document, selectors ...string) string {
	for _, sel := range selectors {
		if v, ok := doc.Find(sel).First().Attr("content"); ok {
			if trimmed := strings.TrimSpace(v); trimmed != "" {
				return trimmed
			}
		}
	}
	return ""
}

// readable runs the generic boilerplate-removal extraction, discarding
// navigation, ads, and footers.
func readable(html []byte, pageURL string) string {
	parsed, err := url.Parse(pageURL)
	if err != nil {
		parsed = &url.URL{}
	}

	article, err := readability.FromReader(bytes.NewReader(html), parsed)
	if err != nil {
		log.Printf("[extract] Readability extraction failed for %s: %v", pageURL, err)
		return ""
	}

	return strings.TrimSpace(article.TextContent)
}

func detectLang(html []byte) string {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return ""
	}
	lang, _ := doc.Find("html").First().Attr("lang")
	return lang
}
