// Package bootstrap wires the pipeline from environment configuration. It
// is shared by the server and the CLI binaries so the two always build the
// same stack.
package bootstrap

import (
	"context"
	"fmt"
	"log"
	"os"

	"curator/archive"
	"curator/collector"
	"curator/config"
	"curator/dedup"
	"curator/llm"
	"curator/publish"
	"curator/relevance"
	"curator/vector"
)

// Deps holds the wired pipeline components. Close releases the ones that
// hold connections.
type Deps struct {
	KV        dedup.KV
	Seen      *dedup.SeenStore
	Cache     *dedup.ResultCache
	Store     vector.Store
	Embedder  vector.EmbeddingsProvider
	Scorer    *relevance.Scorer
	Publisher publish.Publisher
	Archiver  archive.Archiver
	Pipeline  *collector.Pipeline
	Runner    *collector.Runner
}

// Options are the per-invocation knobs layered over the environment.
// Zero values defer to environment variables and defaults.
type Options struct {
	HoursBack int
	MinScore  float64
	MaxItems  int

	// Targets names the publish destinations explicitly ("console",
	// "notion"). Empty selects every destination the environment
	// configures.
	Targets []string
}

// Build wires every component from the environment. Components without
// configuration are left nil and their pipeline stages disabled; only the
// seen store is mandatory.
func Build(ctx context.Context, opts Options) (*Deps, error) {
	d := &Deps{}

	kv, err := buildKV()
	if err != nil {
		return nil, err
	}
	d.KV = kv
	d.Seen = dedup.NewSeenStore(kv)
	d.Cache = dedup.NewResultCache(kv)

	d.Embedder = vector.NewDefaultEmbeddingsProvider(os.Getenv("EMBEDDING_MODEL"))
	if d.Embedder != nil {
		store, err := buildVectorStore()
		if err != nil {
			d.Close()
			return nil, err
		}
		d.Store = store
		d.Scorer = relevance.NewScorer(
			d.Embedder,
			store,
			config.GetEnvInt("RELEVANCE_TOP_K", config.DefaultTopK),
			float32(config.GetEnvFloat("RELEVANCE_MAX_DISTANCE", float64(config.DefaultMaxDistance))),
		)
	} else {
		log.Printf("[bootstrap] No embedding provider configured, relevance scoring disabled")
	}

	chat := llm.NewDefaultChat(os.Getenv("CHAT_MODEL"))
	var summarizer *llm.Summarizer
	var ranker *llm.Ranker
	if chat != nil {
		summarizer = llm.NewSummarizer(chat)
		ranker = llm.NewRanker(chat)
	} else {
		log.Printf("[bootstrap] No chat backend configured, summaries and ranking disabled")
	}

	d.Publisher, err = buildPublisher(opts.Targets)
	if err != nil {
		d.Close()
		return nil, err
	}
	d.Archiver = buildArchiver(ctx)

	minScore := opts.MinScore
	if minScore == 0 {
		minScore = config.GetEnvFloat("MIN_SCORE", 0)
	}
	maxItems := opts.MaxItems
	if maxItems == 0 {
		maxItems = config.GetEnvInt("MAX_ITEMS", 0)
	}

	d.Pipeline = &collector.Pipeline{
		Seen:           d.Seen,
		Cache:          d.Cache,
		Scorer:         d.Scorer,
		Summarizer:     summarizer,
		Ranker:         ranker,
		Publisher:      d.Publisher,
		RankingEnabled: config.GetEnvBool("RANKING_ENABLED", true),
		MinScore:       minScore,
		MaxItems:       maxItems,
	}

	hoursBack := opts.HoursBack
	if hoursBack == 0 {
		hoursBack = config.GetEnvInt("HOURS_BACK", config.DefaultHoursBack)
	}
	d.Runner = &collector.Runner{
		RSS: collector.NewRSSCollector(d.Pipeline, hoursBack),
		Web: collector.NewWebCollector(d.Pipeline),
	}
	return d, nil
}

// Close releases held connections. Safe on a partially built Deps.
func (d *Deps) Close() {
	if d.Store != nil {
		if err := d.Store.Close(); err != nil {
			log.Printf("[bootstrap] Vector store close: %v", err)
		}
	}
	if d.KV != nil {
		if err := d.KV.Close(); err != nil {
			log.Printf("[bootstrap] KV close: %v", err)
		}
	}
}

// buildKV connects to Redis when REDIS_ADDR is set, otherwise falls back to
// the in-process store.
func buildKV() (dedup.KV, error) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		log.Printf("[bootstrap] REDIS_ADDR not set, using in-memory seen store")
		return dedup.NewMemoryKV(), nil
	}
	kv, err := dedup.NewRedisKV(dedup.RedisConfig{
		Addr:     addr,
		Password: os.Getenv("REDIS_PASSWORD"),
		DB:       config.GetEnvInt("REDIS_DB", 0),
	})
	if err != nil {
		return nil, fmt.Errorf("redis: %w", err)
	}
	return kv, nil
}

// buildVectorStore selects the vector backend: a Chroma server when
// CHROMA_HOST is set, else an embedded chromem store (persistent when
// VECTOR_PATH is set, in-memory otherwise).
func buildVectorStore() (vector.Store, error) {
	if host := os.Getenv("CHROMA_HOST"); host != "" {
		return vector.NewChroma(vector.ChromaConfig{
			Host: host,
			Port: config.GetEnvInt("CHROMA_PORT", 8000),
		}), nil
	}
	store, err := vector.NewChromem(os.Getenv("VECTOR_PATH"))
	if err != nil {
		return nil, fmt.Errorf("chromem: %w", err)
	}
	return store, nil
}

// buildPublisher assembles the publish destinations. With no explicit
// selection every destination the environment configures is used, falling
// back to the console; an explicit selection fails on names the
// environment cannot satisfy.
func buildPublisher(selected []string) (publish.Publisher, error) {
	notion := func() (publish.Publisher, error) {
		token := os.Getenv("NOTION_TOKEN")
		if token == "" {
			return nil, fmt.Errorf("notion target requires NOTION_TOKEN")
		}
		database := os.Getenv("NOTION_DATABASE_ID")
		if database == "" {
			return nil, fmt.Errorf("notion target requires NOTION_DATABASE_ID")
		}
		return publish.NewNotionPublisher(token, database), nil
	}

	var targets []publish.Publisher
	if len(selected) > 0 {
		for _, name := range selected {
			switch name {
			case "console":
				targets = append(targets, publish.ConsolePublisher{})
			case "notion":
				p, err := notion()
				if err != nil {
					return nil, err
				}
				targets = append(targets, p)
			default:
				return nil, fmt.Errorf("unknown publish target %q", name)
			}
		}
	} else if os.Getenv("NOTION_TOKEN") != "" {
		p, err := notion()
		if err != nil {
			log.Printf("[bootstrap] Skipping Notion: %v", err)
		} else {
			targets = append(targets, p)
		}
	}
	if len(targets) == 0 {
		return publish.ConsolePublisher{}, nil
	}
	if len(targets) == 1 {
		return targets[0], nil
	}
	return publish.Fanout{Targets: targets}, nil
}

// buildArchiver prefers S3 when a bucket is configured, then a local
// directory, then none.
func buildArchiver(ctx context.Context) archive.Archiver {
	if bucket := os.Getenv("S3_BUCKET"); bucket != "" {
		archiver, err := archive.NewS3Archiver(ctx, archive.S3Config{
			Bucket:       bucket,
			Region:       os.Getenv("S3_REGION"),
			Profile:      os.Getenv("S3_PROFILE"),
			UsePathStyle: config.GetEnvBool("S3_USE_PATH_STYLE", false),
		})
		if err != nil {
			log.Printf("[bootstrap] S3 archiver init failed, runs will not be archived: %v", err)
			return nil
		}
		return archiver
	}
	if dir := os.Getenv("ARCHIVE_DIR"); dir != "" {
		return archive.NewDirArchiver(dir)
	}
	return nil
}
