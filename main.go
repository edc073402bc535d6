package main

import (
	"context"
	"log"
	"net/http"
	"os"

	"curator/api"
	"curator/bootstrap"
	"curator/config"
)

func main() {
	config.LoadEnv()

	sourcesPath := config.GetEnvOrDefault("SOURCES_FILE", "sources.yaml")
	sources, err := config.LoadSources(sourcesPath)
	if err != nil {
		log.Fatalf("failed to load sources: %v", err)
	}
	log.Printf("Loaded %d enabled sources from %s", len(sources), sourcesPath)

	deps, err := bootstrap.Build(context.Background(), bootstrap.Options{})
	if err != nil {
		log.Fatalf("failed to build pipeline: %v", err)
	}
	defer deps.Close()

	addr := ":8080"
	if v := os.Getenv("PORT"); v != "" {
		addr = ":" + v
	}

	server := api.NewServer(deps.Runner, sources)
	r := server.NewRouter()
	log.Printf("Starting API server on %s", addr)
	log.Println("API endpoints available:")
	log.Println("  GET  /api/health")
	log.Println("  POST /api/collect")
	log.Println("  POST /api/collect/rss")
	log.Println("  POST /api/collect/web")

	if err := http.ListenAndServe(addr, r); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
