// Package archive persists run records so collection runs can be audited
// and replayed. Each run is stored as one JSON document keyed by collector
// kind and start time.
package archive

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"curator/types"
)

// RunRecord is the durable trace of one collection run.
type RunRecord struct {
	Kind      string                `json:"kind"`
	StartedAt time.Time             `json:"started_at"`
	Duration  time.Duration         `json:"duration"`
	Stats     types.RunStats        `json:"stats"`
	Items     []types.CollectedItem `json:"items,omitempty"`
}

// Archiver stores and retrieves run records.
type Archiver interface {
	SaveRun(ctx context.Context, rec *RunRecord) error
	LoadRun(ctx context.Context, kind string, startedAt time.Time) (*RunRecord, error)
	HasRun(ctx context.Context, kind string, startedAt time.Time) (bool, error)
	// ListRuns returns up to max stored run keys for a collector kind, in
	// lexicographic (chronological) order.
	ListRuns(ctx context.Context, kind string, max int) ([]string, error)
}

// runKey builds the storage key for a run: runs/<kind>/<RFC3339 start>.json
func runKey(kind string, startedAt time.Time) string {
	return fmt.Sprintf("runs/%s/%s.json", kind, startedAt.UTC().Format("2006-01-02T15-04-05Z"))
}

// DirArchiver stores run records as files under a local directory.
type DirArchiver struct {
	Root string
}

func NewDirArchiver(root string) *DirArchiver {
	return &DirArchiver{Root: root}
}

func (d *DirArchiver) SaveRun(_ context.Context, rec *RunRecord) error {
	path := filepath.Join(d.Root, filepath.FromSlash(runKey(rec.Kind, rec.StartedAt)))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("archive mkdir: %w", err)
	}
	b, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("archive encode: %w", err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("archive write: %w", err)
	}
	return nil
}

func (d *DirArchiver) HasRun(_ context.Context, kind string, startedAt time.Time) (bool, error) {
	path := filepath.Join(d.Root, filepath.FromSlash(runKey(kind, startedAt)))
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (d *DirArchiver) ListRuns(_ context.Context, kind string, max int) ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(d.Root, "runs", kind, "*.json"))
	if err != nil {
		return nil, fmt.Errorf("archive list: %w", err)
	}
	keys := make([]string, 0, len(matches))
	for _, m := range matches {
		if max > 0 && len(keys) >= max {
			break
		}
		rel, err := filepath.Rel(d.Root, m)
		if err != nil {
			continue
		}
		keys = append(keys, filepath.ToSlash(rel))
	}
	return keys, nil
}

func (d *DirArchiver) LoadRun(_ context.Context, kind string, startedAt time.Time) (*RunRecord, error) {
	path := filepath.Join(d.Root, filepath.FromSlash(runKey(kind, startedAt)))
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("archive read: %w", err)
	}
	var rec RunRecord
	if err := json.Unmarshal(b, &rec); err != nil {
		return nil, fmt.Errorf("archive decode: %w", err)
	}
	return &rec, nil
}
