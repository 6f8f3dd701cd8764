package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/ekarhu/tropeshelf/internal/catalog"
)

func (s *Server) listBooks(c *gin.Context) {
	filter := catalog.Filter{
		Genre:     strings.TrimSpace(c.Query("genre")),
		Mood:      strings.TrimSpace(c.Query("mood")),
		Trope:     strings.TrimSpace(c.Query("trope")),
		HeatLevel: strings.TrimSpace(c.Query("heat_level")),
		Limit:     parseInt(c.Query("limit"), 20),
		Offset:    parseInt(c.Query("offset"), 0),
	}

	books, err := s.store.ListBooks(c.Request.Context(), filter)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"limit":  filter.Limit,
		"offset": filter.Offset,
		"items":  books,
	})
}

func (s *Server) getBook(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "book id required"})
		return
	}

	book, err := s.store.GetBook(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "book not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "lookup failed"})
		return
	}

	c.JSON(http.StatusOK, book)
}
