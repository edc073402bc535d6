package config

import "time"

// Fetch Transport Constants
const (
	// DefaultUserAgent identifies the collector to remote servers.
	DefaultUserAgent = "Curator/1.0"

	// FetchTimeout bounds a single HTTP GET.
	FetchTimeout = 60 * time.Second

	// BrowserNavigationTimeout bounds a headless-browser page load.
	BrowserNavigationTimeout = 30 * time.Second

	// BrowserSelectorTimeout bounds waiting for a selector to become visible.
	BrowserSelectorTimeout = 30 * time.Second
)

// Collection Constants
const (
	// DefaultFeedCount is the number of entries pulled per RSS source.
	DefaultFeedCount = 3

	// DefaultDigestLimit caps how many linked articles a digest page fans
	// out to when the source does not set its own limit.
	DefaultDigestLimit = 30

	// DefaultHoursBack is the lookback window for pulled items.
	DefaultHoursBack = 24
)

// Relevance Scoring Constants
const (
	// DefaultTopK is the number of nearest neighbors considered per query.
	DefaultTopK = 2

	// DefaultMaxDistance excludes neighbors farther than this from any
	// score computation.
	DefaultMaxDistance = 0.45

	// MaxScoreTextLength truncates the text sent to the embedder.
	MaxScoreTextLength = 1024

	// MaxUserRating is the rating scale ceiling used to normalize neighbor
	// contributions.
	MaxUserRating = 5
)

// Cache and Dedup Constants
const (
	// CacheTTL controls how long LLM summary/rank results stay cached.
	CacheTTL = 7 * 24 * time.Hour

	// SeedTTL is the retention for manually-seeded reference metadata.
	SeedTTL = 90 * 24 * time.Hour

	// SummaryMaxLength truncates article content before summarization.
	SummaryMaxLength = 20000
)
