package dedup

import (
	"context"
	"fmt"
	"time"

	"curator/types"
)

// KV describes the minimal key-value functionality required by the seen
// store and the result cache.
type KV interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Close() error
}

// Scope bounds dedup uniqueness: the same title under two different
// (kind, source) pairs is not a duplicate.
type Scope struct {
	Kind   types.SourceKind
	Source string
}

func (s Scope) String() string {
	return fmt.Sprintf("%s:%s", s.Kind, s.Source)
}

// SeenStore is the exact-fingerprint "already seen" gate. Records are
// append-only: first writer wins, and entries live until external TTL
// eviction.
type SeenStore struct {
	kv KV
}

// NewSeenStore wraps a key-value backend.
func NewSeenStore(kv KV) *SeenStore {
	return &SeenStore{kv: kv}
}

// Seen reports whether an item fingerprint was already recorded in scope.
func (s *SeenStore) Seen(ctx context.Context, scope Scope, id string) (bool, error) {
	_, ok, err := s.kv.Get(ctx, seenKey(scope, id))
	if err != nil {
		return false, fmt.Errorf("failed to check seen state for %s/%s: %w", scope, id, err)
	}
	return ok, nil
}

// MarkSeen records an item fingerprint. Call this only after the item has
// been durably handed off downstream: marking after publish means a crash
// between fetch and publish causes a safe re-fetch, never silent loss.
func (s *SeenStore) MarkSeen(ctx context.Context, scope Scope, id string) error {
	return s.MarkSeenFor(ctx, scope, id, 0)
}

// MarkSeenFor records an item fingerprint with an explicit retention.
// Seeded reference entries use this so their markers expire with the seed
// data instead of living forever.
func (s *SeenStore) MarkSeenFor(ctx context.Context, scope Scope, id string, ttl time.Duration) error {
	value := time.Now().UTC().Format(time.RFC3339)
	if err := s.kv.Set(ctx, seenKey(scope, id), value, ttl); err != nil {
		return fmt.Errorf("failed to mark %s/%s seen: %w", scope, id, err)
	}
	return nil
}

func seenKey(scope Scope, id string) string {
	return fmt.Sprintf("seen:%s:%s", scope, id)
}
