package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ekarhu/tropeshelf/internal/enrichment"
)

type enrichReq struct {
	Limit  int  `json:"limit"`
	Offset int  `json:"offset"`
	Force  bool `json:"force"`
}

func (s *Server) enrich(c *gin.Context) {
	var req enrichReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	result, err := s.orchestrator.Run(c.Request.Context(), enrichment.BatchOptions{
		Limit:  req.Limit,
		Offset: req.Offset,
		Force:  req.Force,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "enrichment failed"})
		return
	}

	c.JSON(http.StatusOK, result)
}

type recategorizeReq struct {
	Limit int `json:"limit"`
}

func (s *Server) recategorize(c *gin.Context) {
	var req recategorizeReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	result, err := s.recat.Run(c.Request.Context(), req.Limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "recategorization failed"})
		return
	}

	c.JSON(http.StatusOK, result)
}
