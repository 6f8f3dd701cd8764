// Package server exposes the catalog, recommendation and admin APIs over
// HTTP.
package server

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ekarhu/tropeshelf/internal/catalog"
	"github.com/ekarhu/tropeshelf/internal/enrichment"
	"github.com/ekarhu/tropeshelf/internal/recommend"
	"github.com/ekarhu/tropeshelf/internal/taxonomy"
)

const sessionCookie = "tropeshelf_session"

// Server wires the catalog store and pipeline services into an HTTP router.
type Server struct {
	store        *catalog.Store
	assembler    *recommend.Assembler
	sessions     recommend.SessionCache
	orchestrator *enrichment.Orchestrator
	recat        *taxonomy.Recategorizer
	router       *gin.Engine
}

// New builds a Server with all routes registered.
func New(store *catalog.Store, assembler *recommend.Assembler, sessions recommend.SessionCache,
	orchestrator *enrichment.Orchestrator, recat *taxonomy.Recategorizer) *Server {
	s := &Server{
		store:        store,
		assembler:    assembler,
		sessions:     sessions,
		orchestrator: orchestrator,
		recat:        recat,
	}
	s.router = s.buildRouter()
	return s
}

// Handler returns the underlying HTTP handler, for serving and for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) buildRouter() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	_ = router.SetTrustedProxies([]string{"127.0.0.1"})

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	router.GET("/ready", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		if err := s.store.Ping(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":   "not_ready",
				"db_error": err.Error(),
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	books := router.Group("/books")
	books.GET("", s.listBooks)
	books.GET("/:id", s.getBook)
	books.GET("/:id/reviews", s.listReviews)
	books.POST("/:id/reviews", s.createReview)

	router.POST("/recommendations", s.recommendations)
	router.DELETE("/session", s.endSession)

	admin := router.Group("/admin")
	admin.POST("/enrich", s.enrich)
	admin.POST("/recategorize", s.recategorize)

	return router
}

// sessionID returns a stable per-browser session identifier. The header
// wins when set; otherwise the cookie is used, minted on first contact.
func (s *Server) sessionID(c *gin.Context) string {
	if id := c.GetHeader("X-Session-ID"); id != "" {
		return id
	}
	if id, err := c.Cookie(sessionCookie); err == nil && id != "" {
		return id
	}
	id := uuid.NewString()
	c.SetCookie(sessionCookie, id, 0, "/", "", false, true)
	return id
}

func (s *Server) endSession(c *gin.Context) {
	id := s.sessionID(c)
	if s.sessions != nil {
		s.sessions.EndSession(id)
	}
	c.JSON(http.StatusOK, gin.H{"status": "ended"})
}

func parseInt(value string, fallback int) int {
	if value == "" {
		return fallback
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return n
}
