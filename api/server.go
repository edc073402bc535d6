package api

import (
	"github.com/gin-gonic/gin"

	"curator/collector"
	"curator/types"
)

// Server exposes collection triggers over HTTP. Runs are started
// asynchronously; at most one run per kind is in flight at a time.
type Server struct {
	runner  *collector.Runner
	sources []types.Source
}

// NewServer wires the runner and the configured source list.
func NewServer(runner *collector.Runner, sources []types.Source) *Server {
	return &Server{runner: runner, sources: sources}
}

// NewRouter constructs a Gin engine with registered routes.
func (s *Server) NewRouter() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	s.RegisterCollectRoutes(r)
	RegisterHealthRoutes(r)
	return r
}
