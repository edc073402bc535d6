package api

import (
	"context"
	"log"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"

	"curator/types"
)

var runMu sync.Mutex

// RegisterCollectRoutes registers the collection trigger routes.
func (s *Server) RegisterCollectRoutes(r *gin.Engine) {
	g := r.Group("/api/collect")
	g.POST("", s.handleCollectAll)
	g.POST("/rss", s.handleCollectRSS)
	g.POST("/web", s.handleCollectWeb)
}

// handleCollectAll starts a full collection run across every enabled
// source. The run happens in the background; the response is an immediate
// acknowledgement.
func (s *Server) handleCollectAll(c *gin.Context) {
	s.startRun(c, s.sources)
}

func (s *Server) handleCollectRSS(c *gin.Context) {
	s.startRun(c, filterKind(s.sources, types.SourceRSS))
}

func (s *Server) handleCollectWeb(c *gin.Context) {
	s.startRun(c, filterKind(s.sources, types.SourceWeb))
}

func (s *Server) startRun(c *gin.Context, sources []types.Source) {
	if len(sources) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no matching sources configured"})
		return
	}

	if !runMu.TryLock() {
		c.JSON(http.StatusConflict, gin.H{"error": "a collection run is already in progress"})
		return
	}

	go func() {
		defer runMu.Unlock()
		stats := s.runner.RunAll(context.Background(), sources)
		log.Printf("[api] Triggered run done: published=%d errors=%d", stats.Published, stats.Errors)
	}()

	c.JSON(http.StatusAccepted, gin.H{
		"status":  "started",
		"sources": len(sources),
	})
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
