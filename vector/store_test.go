package vector

import (
	"testing"
	"time"
)

func TestCollectionNameFormat(t *testing.T) {
	day := time.Date(2026, 7, 9, 14, 30, 0, 0, time.UTC)
	got := CollectionName("embed-english-v3.0", day)
	want := "news_embed_english_v3_0_2026_07_09"
	if got != want {
		t.Errorf("CollectionName = %q, want %q", got, want)
	}
}

func TestCollectionNameDistinctPerModel(t *testing.T) {
	day := time.Date(2026, 7, 9, 0, 0, 0, 0, time.UTC)
	a := CollectionName("model-a", day)
	b := CollectionName("model-b", day)
	if a == b {
		t.Error("different models must not share a collection")
	}
}

func TestCollectionNameDistinctPerDay(t *testing.T) {
	a := CollectionName("m", time.Date(2026, 7, 9, 23, 59, 0, 0, time.UTC))
	b := CollectionName("m", time.Date(2026, 7, 10, 0, 1, 0, 0, time.UTC))
	if a == b {
		t.Error("different days must not share a collection")
	}
}

func TestDimensionErrorMessage(t *testing.T) {
	err := &DimensionError{Collection: "c", Want: 1024, Got: 768}
	msg := err.Error()
	if msg == "" {
		t.Fatal("empty error message")
	}
}
