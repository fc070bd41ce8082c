package ui

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"tennisweb/models"
	"tennisweb/ports"
)

// Matcher is the slice of the match orchestrator the HTTP surface needs
type Matcher interface {
	NextAI(ctx context.Context, be ports.MatchBackend, exclude *models.ExclusionSet, limit int, modelName string) (*models.MatchResult, error)
}

// ChatReplier streams assistant replies
type ChatReplier interface {
	Reply(ctx context.Context, turns []models.ChatTurn, sink ports.TokenSink) error
}

// GatewayFactory builds a per-request backend gateway carrying the caller's
// bearer token. The server never holds user credentials itself.
type GatewayFactory func(token string) ports.MatchBackend

// Server is the public HTTP surface
type Server struct {
	router     *gin.Engine
	match      Matcher
	chat       ChatReplier
	newGateway GatewayFactory
	log        zerolog.Logger
}

func NewServer(match Matcher, chat ChatReplier, newGateway GatewayFactory, log zerolog.Logger) *Server {
	s := &Server{
		router:     gin.New(),
		match:      match,
		chat:       chat,
		newGateway: newGateway,
		log:        log.With().Str("component", "ui").Logger(),
	}

	s.router.Use(requestID(), requestLogger(s.log), gin.Recovery())

	s.router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := s.router.Group("/api")
	api.POST("/chat", s.handleChat)
	api.POST("/match/ai", s.handleMatchAI)

	return s
}

// Handler exposes the router for wrapping with outer middleware
func (s *Server) Handler() http.Handler {
	return s.router
}
