package types

import "time"

// CollectedItem is one piece of content pulled from a Source. The ID is a
// content fingerprint computed from stable fields only, so repeated pulls of
// the same logical item collapse to the same ID. Items are immutable once
// created within a run.
type CollectedItem struct {
	ID          string     `json:"id"`
	SourceName  string     `json:"source_name"`
	SourceKind  SourceKind `json:"source_kind"`
	Title       string     `json:"title"`
	URL         string     `json:"url"`
	Author      string     `json:"author,omitempty"`
	Content     string     `json:"content"`
	Summary     string     `json:"summary,omitempty"`
	PublishedAt time.Time  `json:"published_at"`
	CollectedAt time.Time  `json:"collected_at"`
	Tags        []string   `json:"tags,omitempty"`
}

// RunStats is the per-run summary reported at the end of every batch,
// regardless of partial failures.
type RunStats struct {
	Total      int `json:"total"`
	Duplicates int `json:"duplicates"`
	Errors     int `json:"errors"`
	Published  int `json:"published"`
}
