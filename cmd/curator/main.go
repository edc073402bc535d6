// Command curator runs one collection pass over the configured sources and
// exits. Intended for cron-style scheduling; the long-running HTTP trigger
// lives in the root binary.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"curator/archive"
	"curator/bootstrap"
	"curator/config"
	"curator/types"
)

func main() {
	sourcesPath := flag.String("sources", "sources.yaml", "path to the YAML source list")
	kind := flag.String("kind", "", "collect only this source kind (rss or web)")
	hoursBack := flag.Int("hours-back", 0, "lookback window in hours (default from HOURS_BACK or 24)")
	minScore := flag.Float64("min-score", 0, "drop items scoring below this relevance value")
	maxItems := flag.Int("max-items", 0, "cap on published items per run (0 = unlimited)")
	targets := flag.String("targets", "", "comma-separated publish targets (console,notion); default uses whatever the environment configures")
	restore := flag.String("restore", "", "republish an archived run instead of collecting (RFC3339 start time, needs -kind)")
	listRuns := flag.Bool("list-runs", false, "list archived runs for -kind and exit")
	flag.Parse()

	config.LoadEnv()

	ctx := context.Background()
	deps, err := bootstrap.Build(ctx, bootstrap.Options{
		HoursBack: *hoursBack,
		MinScore:  *minScore,
		MaxItems:  *maxItems,
		Targets:   splitTargets(*targets),
	})
	if err != nil {
		log.Fatalf("failed to build pipeline: %v", err)
	}
	defer deps.Close()

	if *listRuns {
		if deps.Archiver == nil {
			log.Fatal("listing runs requires an archive backend (set S3_BUCKET or ARCHIVE_DIR)")
		}
		keys, err := deps.Archiver.ListRuns(ctx, runKind(*kind), 0)
		if err != nil {
			log.Fatalf("failed to list runs: %v", err)
		}
		for _, key := range keys {
			fmt.Println(key)
		}
		return
	}

	if *restore != "" {
		restoreRun(ctx, deps, runKind(*kind), *restore)
		return
	}

	sources, err := config.LoadSources(*sourcesPath)
	if err != nil {
		log.Fatalf("failed to load sources: %v", err)
	}
	if *kind != "" {
		sources = filterKind(sources, types.SourceKind(*kind))
	}
	if len(sources) == 0 {
		log.Fatalf("no enabled sources matched (file=%s kind=%q)", *sourcesPath, *kind)
	}
	log.Printf("Collecting from %d sources", len(sources))

	var published []types.CollectedItem
	deps.Pipeline.OnPublished = func(item types.CollectedItem, _ float64) {
		published = append(published, item)
	}

	started := time.Now()
	stats := deps.Runner.RunAll(ctx, sources)

	if deps.Archiver != nil {
		rec := &archive.RunRecord{
			Kind:      runKind(*kind),
			StartedAt: started,
			Duration:  time.Since(started),
			Stats:     stats,
			Items:     published,
		}
		if err := deps.Archiver.SaveRun(ctx, rec); err != nil {
			log.Printf("Failed to archive run: %v", err)
		}
	}

	if stats.Errors > 0 && stats.Published == 0 {
		os.Exit(1)
	}
}

// restoreRun republishes the items of an archived run. The items were
// already summarized and tagged when archived, so they go straight to the
// publisher rather than back through the pipeline.
func restoreRun(ctx context.Context, deps *bootstrap.Deps, kind, startedAt string) {
	if deps.Archiver == nil {
		log.Fatal("restoring requires an archive backend (set S3_BUCKET or ARCHIVE_DIR)")
	}
	started, err := time.Parse(time.RFC3339, startedAt)
	if err != nil {
		log.Fatalf("bad -restore time %q: %v", startedAt, err)
	}

	ok, err := deps.Archiver.HasRun(ctx, kind, started)
	if err != nil {
		log.Fatalf("failed to check archive: %v", err)
	}
	if !ok {
		log.Fatalf("no archived %s run at %s", kind, startedAt)
	}

	rec, err := deps.Archiver.LoadRun(ctx, kind, started)
	if err != nil {
		log.Fatalf("failed to load run: %v", err)
	}

	republished, failed := 0, 0
	for i := range rec.Items {
		if err := deps.Publisher.Publish(ctx, &rec.Items[i], 0); err != nil {
			log.Printf("Failed to republish %q: %v", rec.Items[i].Title, err)
			failed++
			continue
		}
		republished++
	}
	log.Printf("Restored %s run from %s: republished=%d failed=%d",
		kind, startedAt, republished, failed)
	if failed > 0 && republished == 0 {
		os.Exit(1)
	}
}

func splitTargets(list string) []string {
	var out []string
	for _, name := range strings.Split(list, ",") {
		if name = strings.TrimSpace(name); name != "" {
			out = append(out, name)
		}
	}
	return out
}

func runKind(kind string) string {
	if kind == "" {
		return "all"
	}
	return kind
}

func filterKind(sources []types.Source, kind types.SourceKind) []types.Source {
	var out []types.Source
	for _, s := range sources {
		if s.Kind == kind {
			out = append(out, s)
		}
	}
	return out
}
