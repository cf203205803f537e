package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"durablekv/internal/replication"
	"durablekv/internal/store"
)

// setRequest is the /set body. Items in bulkSetRequest reuse [2]any pairs
// to match the wire protocol's `[[k,v],...]` shape exactly.
type setRequest struct {
	Key        string  `json:"key"`
	Value      any     `json:"value"`
	DebugFlaky float64 `json:"debug_flaky"`
}

type deleteRequest struct {
	Key        string  `json:"key"`
	DebugFlaky float64 `json:"debug_flaky"`
}

type bulkSetRequest struct {
	Items      [][2]any `json:"items"`
	DebugFlaky float64  `json:"debug_flaky"`
}

func (s *Server) handleGet(c *gin.Context) {
	key := c.Query("key")
	if key == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing key"})
		return
	}
	value, ok := s.kv.Get(key)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"found": false})
		return
	}
	c.JSON(http.StatusOK, gin.H{"found": true, "value": value})
}

func (s *Server) handleSet(c *gin.Context) {
	var req setRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Key == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing key"})
		return
	}

	err := s.writeOp("set", func() error {
		return s.kv.Set(req.Key, req.Value, req.DebugFlaky)
	})
	if s.handleWriteError(c, err) {
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (s *Server) handleDelete(c *gin.Context) {
	var req deleteRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Key == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing key"})
		return
	}

	err := s.writeOp("delete", func() error {
		return s.kv.Delete(req.Key, req.DebugFlaky)
	})
	if s.handleWriteError(c, err) {
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (s *Server) handleBulkSet(c *gin.Context) {
	var req bulkSetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed request"})
		return
	}
	items := make([]store.Pair, 0, len(req.Items))
	for _, pair := range req.Items {
		key, ok := pair[0].(string)
		if !ok || key == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "malformed request"})
			return
		}
		items = append(items, store.Pair{Key: key, Value: pair[1]})
	}

	err := s.writeOp("bulk_set", func() error {
		return s.kv.BulkSet(items, req.DebugFlaky)
	})
	if s.handleWriteError(c, err) {
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// handleWriteError maps a write-path error to its HTTP response. Returns
// true if it wrote a response (caller should stop), false on nil error.
func (s *Server) handleWriteError(c *gin.Context, err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, replication.ErrNotPrimary) {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "not primary"})
		return true
	}
	s.logger.Error("write failed", zap.Error(err))
	c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	return true
}

func (s *Server) handleSearch(c *gin.Context) {
	if s.searcher == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "search not enabled"})
		return
	}
	keys := s.searcher.SearchFullText(c.Query("q"))
	if keys == nil {
		keys = []string{}
	}
	c.JSON(http.StatusOK, gin.H{"keys": keys})
}

func (s *Server) handleSearchSimilar(c *gin.Context) {
	if s.searcher == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "search not enabled"})
		return
	}
	topK := 10
	if raw := c.Query("top_k"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			topK = n
		}
	}
	results := s.searcher.SearchSimilar(c.Query("q"), topK)
	out := make([]gin.H, len(results))
	for i, r := range results {
		out[i] = gin.H{"key": r.Key, "score": r.Score}
	}
	c.JSON(http.StatusOK, gin.H{"results": out})
}
