package types

// SourceKind identifies the collector family a source belongs to.
type SourceKind string

const (
	SourceRSS SourceKind = "rss"
	SourceWeb SourceKind = "web"

	// SourceSeed marks manually imported reference articles; it is a
	// dedup scope, not a collector family.
	SourceSeed SourceKind = "seed"
)

// Source is a configured origin to collect from. Sources are managed
// out-of-band (edited in the source list, not by the pipeline) and are
// read-only to the collectors.
type Source struct {
	Name    string     `yaml:"name" json:"name"`
	URL     string     `yaml:"url" json:"url"`
	Kind    SourceKind `yaml:"kind" json:"kind"`
	Enabled bool       `yaml:"enabled" json:"enabled"`

	// Selector is a CSS selector applied before generic extraction.
	// Empty means fall back to readability extraction.
	Selector string `yaml:"selector,omitempty" json:"selector,omitempty"`

	// BrowserMode drives a headless browser session instead of a plain GET,
	// for pages that only render content via JavaScript.
	BrowserMode bool `yaml:"browser_mode,omitempty" json:"browser_mode,omitempty"`

	// DigestSplitting treats the source URL as an index page and fans out
	// over its outbound links, up to DigestLimit articles.
	DigestSplitting bool `yaml:"digest_splitting,omitempty" json:"digest_splitting,omitempty"`
	DigestLimit     int  `yaml:"digest_limit,omitempty" json:"digest_limit,omitempty"`

	// FetchFullArticle makes the RSS collector pull each entry's page and
	// extract the full body instead of relying on the feed summary.
	FetchFullArticle bool `yaml:"fetch_full_article,omitempty" json:"fetch_full_article,omitempty"`

	// FeedCount caps how many entries one pull takes from the feed, in
	// feed order. Zero uses the default.
	FeedCount int `yaml:"feed_count,omitempty" json:"feed_count,omitempty"`

	Proxy     string            `yaml:"proxy,omitempty" json:"proxy,omitempty"`
	UserAgent string            `yaml:"user_agent,omitempty" json:"user_agent,omitempty"`
	Headers   map[string]string `yaml:"headers,omitempty" json:"headers,omitempty"`
}
