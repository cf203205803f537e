// Package api wires the storage/replication/index engines to HTTP using
// gin, following spec.md's wire protocol exactly: one JSON-over-HTTP verb
// per operation, no content negotiation, no versioning.
package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"durablekv/internal/index"
	"durablekv/internal/replication"
	"durablekv/internal/store"
)

// Searcher is implemented by *index.Engine. Kept as an interface here so
// Server works whether or not the index feature is enabled.
type Searcher interface {
	SearchFullText(query string) []string
	SearchSimilar(query string, topK int) []index.Scored
}

// Server holds everything a request handler needs. repl and searcher are
// nil when the corresponding feature is disabled for this node.
type Server struct {
	kv       store.KV
	repl     *replication.Engine
	searcher Searcher
	metrics  *Metrics
	logger   *zap.Logger
}

// NewServer builds a Server. kv is required; repl and searcher are
// optional (nil disables cluster routes / search routes respectively).
func NewServer(kv store.KV, repl *replication.Engine, searcher Searcher, metrics *Metrics, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if metrics == nil {
		metrics = NewMetrics()
	}
	return &Server{kv: kv, repl: repl, searcher: searcher, metrics: metrics, logger: logger}
}

// NewRouter builds the gin.Engine for s: the standalone routes always,
// plus /status, /promote_to_primary and /replicate/* when s.repl is set.
// /search and /search_similar are always routed and answer 404 when
// s.searcher is nil.
func NewRouter(s *Server) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(RequestID(), Recovery(s.logger), Logger(s.logger))

	r.GET("/get", s.handleGet)
	r.POST("/set", s.handleSet)
	r.POST("/delete", s.handleDelete)
	r.POST("/bulk_set", s.handleBulkSet)
	r.GET("/search", s.handleSearch)
	r.GET("/search_similar", s.handleSearchSimilar)
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.metrics.registry, promhttp.HandlerOpts{})))

	if s.repl != nil {
		r.GET("/status", s.handleStatus)
		r.POST("/promote_to_primary", s.handlePromote)
		r.POST("/replicate/set", s.handleReplicateSet)
		r.POST("/replicate/delete", s.handleReplicateDelete)
		r.POST("/replicate/bulk_set", s.handleReplicateBulkSet)
	}

	return r
}

func (s *Server) writeOp(op string, do func() error) error {
	start := time.Now()
	err := do()
	s.metrics.fsyncSeconds.Observe(time.Since(start).Seconds())
	if err == nil {
		s.metrics.observeWrite(op)
	}
	return err
}
