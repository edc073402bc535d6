package dedup

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"
)

// PublishedKey normalizes a feed item's published date for fingerprinting.
// Upstream feed timestamps are not byte-stable between fetches (sub-second
// and timezone jitter), so the key is truncated to day granularity. Items
// without a parsed date fall back to the raw published string.
func PublishedKey(published time.Time, raw string) string {
	if published.IsZero() {
		return raw
	}
	return published.Format("2006-01-02")
}

// FeedFingerprint computes the stable id of a feed item from
// (source_name, title, day-granularity published key). Only fields that are
// stable run-to-run participate; two pulls of the same entry always hash
// the same.
func FeedFingerprint(sourceName, title, publishedKey string) string {
	return hash(sourceName + "|" + normalizeTitle(title) + "|" + publishedKey)
}

// WebFingerprint computes the stable id of a web or digest item from
// (author, title, cleaned URL). Query-string variants of the same article
// collapse because the URL is cleaned first.
func WebFingerprint(author, title, rawURL string) string {
	return hash(author + "|" + normalizeTitle(title) + "|" + CleanURL(rawURL))
}

// CleanURL removes the query string and fragment, so tracking-parameter
// variants of one article share a fingerprint. Idempotent.
func CleanURL(url string) string {
	url, _, _ = strings.Cut(url, "?")
	url, _, _ = strings.Cut(url, "#")
	return url
}

func normalizeTitle(title string) string {
	return strings.Join(strings.Fields(strings.TrimSpace(title)), " ")
}

func hash(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}
