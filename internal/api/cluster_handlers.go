package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"durablekv/internal/replication"
	"durablekv/internal/store"
)

func (s *Server) handleStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"role":    string(s.repl.Role()),
		"primary": s.repl.Role() == replication.RolePrimary,
	})
}

func (s *Server) handlePromote(c *gin.Context) {
	s.repl.PromoteToPrimary()
	c.JSON(http.StatusOK, gin.H{"ok": true, "role": "primary"})
}

// replicationApplier is the subset of *replication.Engine that applies an
// already-decided-durable write. s.kv is asserted against it rather than
// calling s.repl directly, so that when the index feature is enabled
// s.kv is the *index.Engine wrapping s.repl and replicated writes get
// reindexed the same way client writes do — calling s.repl here would
// quietly bypass the index on every secondary.
type replicationApplier interface {
	ApplyReplicateSet(key string, value any) error
	ApplyReplicateDelete(key string) error
	ApplyReplicateBulkSet(items []store.Pair) error
}

type replicateSetRequest struct {
	Key   string `json:"key"`
	Value any    `json:"value"`
}

func (s *Server) handleReplicateSet(c *gin.Context) {
	var req replicateSetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed request"})
		return
	}
	if err := s.kv.(replicationApplier).ApplyReplicateSet(req.Key, req.Value); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

type replicateDeleteRequest struct {
	Key string `json:"key"`
}

func (s *Server) handleReplicateDelete(c *gin.Context) {
	var req replicateDeleteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed request"})
		return
	}
	if err := s.kv.(replicationApplier).ApplyReplicateDelete(req.Key); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

type replicateBulkSetRequest struct {
	Items [][2]any `json:"items"`
}

func (s *Server) handleReplicateBulkSet(c *gin.Context) {
	var req replicateBulkSetRequest
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
	if err := s.kv.(replicationApplier).ApplyReplicateBulkSet(items); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}
