package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/ekarhu/tropeshelf/internal/catalog"
)

const duplicateReviewMessage = "You've already shared your thoughts on this one. Come back tomorrow!"

type createReviewReq struct {
	Reviewer string `json:"reviewer"`
	Rating   int    `json:"rating"`
	Text     string `json:"text"`
}

func (s *Server) createReview(c *gin.Context) {
	bookID := strings.TrimSpace(c.Param("id"))
	if bookID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "book id required"})
		return
	}

	var req createReviewReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	if req.Rating < 1 || req.Rating > 5 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "rating must be between 1 and 5"})
		return
	}

	text := strings.TrimSpace(req.Text)
	if len(text) < 10 || len(text) > 2000 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "review text must be between 10 and 2000 characters"})
		return
	}

	if _, err := s.store.GetBook(c.Request.Context(), bookID); err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "book not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "lookup failed"})
		return
	}

	review := &catalog.Review{
		BookID:   bookID,
		Reviewer: strings.TrimSpace(req.Reviewer),
		Rating:   req.Rating,
		Text:     text,
		ClientIP: c.ClientIP(),
	}

	if err := s.store.CreateReview(c.Request.Context(), review); err != nil {
		if errors.Is(err, catalog.ErrDuplicateReview) {
			c.JSON(http.StatusTooManyRequests, gin.H{"error": duplicateReviewMessage})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "create failed"})
		return
	}

	c.JSON(http.StatusCreated, review)
}

func (s *Server) listReviews(c *gin.Context) {
	bookID := strings.TrimSpace(c.Param("id"))
	if bookID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "book id required"})
		return
	}

	limit := parseInt(c.Query("limit"), 20)
	offset := parseInt(c.Query("offset"), 0)

	reviews, err := s.store.ListReviews(c.Request.Context(), bookID, limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"limit":  limit,
		"offset": offset,
		"items":  reviews,
	})
}
