package dedup

import (
	"testing"
	"time"
)

func TestFeedFingerprintStableAcrossTimestampJitter(t *testing.T) {
	morning := time.Date(2026, 3, 14, 8, 15, 0, 0, time.UTC)
	evening := time.Date(2026, 3, 14, 21, 45, 33, 912e6, time.FixedZone("CET", 3600))

	a := FeedFingerprint("hn", "Go 1.25 released", PublishedKey(morning, ""))
	b := FeedFingerprint("hn", "Go 1.25 released", PublishedKey(evening.UTC(), ""))

	if a != b {
		t.Errorf("same-day timestamps should fingerprint identically: %s vs %s", a, b)
	}

	nextDay := time.Date(2026, 3, 15, 8, 15, 0, 0, time.UTC)
	c := FeedFingerprint("hn", "Go 1.25 released", PublishedKey(nextDay, ""))
	if a == c {
		t.Error("different days should produce different fingerprints")
	}
}

func TestFeedFingerprintScopedBySource(t *testing.T) {
	key := PublishedKey(time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC), "")
	a := FeedFingerprint("source-a", "Same Title", key)
	b := FeedFingerprint("source-b", "Same Title", key)
	if a == b {
		t.Error("same title under different sources must not collide")
	}
}

func TestPublishedKeyFallsBackToRawString(t *testing.T) {
	raw := "not-a-parsable-date"
	if got := PublishedKey(time.Time{}, raw); got != raw {
		t.Errorf("expected raw fallback %q, got %q", raw, got)
	}
}

func TestWebFingerprintCollapsesURLVariants(t *testing.T) {
	a := WebFingerprint("jane", "Post", "https://example.com/post?utm_source=x")
	b := WebFingerprint("jane", "Post", "https://example.com/post#section-2")
	c := WebFingerprint("jane", "Post", "https://example.com/post")

	if a != c || b != c {
		t.Error("query and fragment variants must share a fingerprint")
	}

	d := WebFingerprint("jane", "Post", "https://example.com/other")
	if d == c {
		t.Error("different paths must not collide")
	}
}

func TestWebFingerprintIncludesAuthor(t *testing.T) {
	a := WebFingerprint("jane", "Post", "https://example.com/post")
	b := WebFingerprint("john", "Post", "https://example.com/post")
	if a == b {
		t.Error("author participates in the fingerprint")
	}
}

func TestCleanURLIdempotent(t *testing.T) {
	u := "https://example.com/a?b=c#d"
	once := CleanURL(u)
	twice := CleanURL(once)
	if once != twice {
		t.Errorf("CleanURL must be idempotent: %q vs %q", once, twice)
	}
	if once != "https://example.com/a" {
		t.Errorf("unexpected cleaned URL %q", once)
	}
}

func TestNormalizedTitleWhitespace(t *testing.T) {
	a := FeedFingerprint("s", "  Hello   World ", "2026-01-02")
	b := FeedFingerprint("s", "Hello World", "2026-01-02")
	if a != b {
		t.Error("whitespace variants of a title must fingerprint identically")
	}
}
