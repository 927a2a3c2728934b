package handler

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/healrag/healrag/internal/middleware"
	"github.com/healrag/healrag/internal/pkg/response"
)

type RouterDeps struct {
	Search        *SearchHandler
	Chat          *ChatHandler
	Conversations *ConversationHandler
	Ingest        *IngestHandler
	JWTSecret     []byte
	ChatRateLimit time.Duration
}

func RegisterRoutes(api *gin.RouterGroup, deps RouterDeps) {
	api.GET("/health", func(c *gin.Context) {
		response.Success(c, gin.H{"status": "ok"})
	})

	authGroup := api.Group("")
	authGroup.Use(middleware.JWTAuth(deps.JWTSecret))

	authGroup.POST("/search", deps.Search.Search)

	chatGroup := authGroup.Group("")
	chatGroup.Use(middleware.RateLimit(deps.ChatRateLimit))
	chatGroup.POST("/chat", deps.Chat.Chat)
	chatGroup.POST("/chat/stream", deps.Chat.ChatStream)
	authGroup.DELETE("/sessions/:id", deps.Chat.ClearSession)

	authGroup.GET("/conversations", deps.Conversations.List)
	authGroup.GET("/conversations/:id", deps.Conversations.Get)

	if deps.Ingest != nil {
		authGroup.POST("/admin/reindex", deps.Ingest.Reindex)
	}
}
