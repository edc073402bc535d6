// Command seed imports rated reference articles into the vector store so
// relevance scoring has neighbors to compare new items against.
//
// Input is a JSON array of {"title", "url", "content", "rating"} objects.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"os"
	"strings"
	"time"

	"curator/bootstrap"
	"curator/config"
	"curator/dedup"
	"curator/types"
)

type seedArticle struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Content string `json:"content"`
	Rating  int    `json:"rating"`
}

func main() {
	input := flag.String("input", "seeds.json", "path to the seed article file")
	flag.Parse()

	config.LoadEnv()

	raw, err := os.ReadFile(*input)
	if err != nil {
		log.Fatalf("failed to read %s: %v", *input, err)
	}
	var seeds []seedArticle
	if err := json.Unmarshal(raw, &seeds); err != nil {
		log.Fatalf("failed to parse %s: %v", *input, err)
	}

	ctx := context.Background()
	deps, err := bootstrap.Build(ctx, bootstrap.Options{})
	if err != nil {
		log.Fatalf("failed to build pipeline: %v", err)
	}
	defer deps.Close()

	if deps.Scorer == nil {
		log.Fatal("seeding requires an embedding provider (set COHERE_API_KEY or OPENAI_API_KEY)")
	}

	collection, err := deps.Scorer.EnsureCollection(ctx, time.Now())
	if err != nil {
		log.Fatalf("failed to prepare collection: %v", err)
	}

	scope := dedup.Scope{Kind: types.SourceSeed, Source: "manual"}

	imported, skipped, errors := 0, 0, 0
	for i, seed := range seeds {
		text := strings.TrimSpace(seed.Title + "\n" + seed.Content)
		if text == "" {
			log.Printf("[%d/%d] Skipping empty seed", i+1, len(seeds))
			skipped++
			continue
		}
		if seed.Rating < 0 || seed.Rating > config.MaxUserRating {
			log.Printf("[%d/%d] Skipping %q: rating %d out of range", i+1, len(seeds), seed.Title, seed.Rating)
			skipped++
			continue
		}

		id := dedup.WebFingerprint("", seed.Title, seed.URL)
		if seen, err := deps.Seen.Seen(ctx, scope, id); err == nil && seen {
			log.Printf("[%d/%d] Skipping %q: already imported", i+1, len(seeds), seed.Title)
			skipped++
			continue
		}

		meta := map[string]string{"seed": "true"}
		if seed.URL != "" {
			meta["url"] = dedup.CleanURL(seed.URL)
		}

		if err := deps.Scorer.Add(ctx, collection, id, text, seed.Rating, meta); err != nil {
			log.Printf("[%d/%d] Failed to import %q: %v", i+1, len(seeds), seed.Title, err)
			errors++
			continue
		}
		// Seed markers expire with the reference data; re-imports after
		// that window re-embed deliberately.
		if err := deps.Seen.MarkSeenFor(ctx, scope, id, config.SeedTTL); err != nil {
			log.Printf("[%d/%d] Failed to record %q as imported: %v", i+1, len(seeds), seed.Title, err)
		}
		imported++
	}

	if err := deps.Store.Flush(ctx, collection); err != nil {
		log.Printf("Flush failed: %v", err)
	}

	log.Printf("Seed import into %s done: imported=%d skipped=%d errors=%d",
		collection, imported, skipped, errors)
	if errors > 0 && imported == 0 {
		os.Exit(1)
	}
}
