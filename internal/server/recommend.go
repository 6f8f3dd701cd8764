package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/ekarhu/tropeshelf/internal/catalog"
	"github.com/ekarhu/tropeshelf/internal/recommend"
)

func (s *Server) recommendations(c *gin.Context) {
	var req recommend.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	req.ContextType = strings.TrimSpace(req.ContextType)
	req.ContextID = strings.TrimSpace(req.ContextID)
	if req.ContextID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "context_id required"})
		return
	}

	switch req.ContextType {
	case "book", "genre", "mood":
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "context_type must be book, genre or mood"})
		return
	}

	sessionID := s.sessionID(c)
	candidates, err := s.assembler.Assemble(c.Request.Context(), sessionID, req)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "context book not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "recommendation failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"context_type": req.ContextType,
		"context_id":   req.ContextID,
		"items":        candidates,
	})
}
