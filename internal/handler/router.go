package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/tomehq/tome/internal/pkg/response"
)

type RouterDeps struct {
	Books *BookHandler
	Chat  *ChatHandler
}

func RegisterRoutes(api *gin.RouterGroup, deps RouterDeps) {
	api.GET("/health", func(c *gin.Context) {
		response.Success(c, gin.H{"status": "ok"})
	})

	api.POST("/books/ingest", deps.Books.Ingest)
	api.GET("/books/:id", deps.Books.Get)
	api.GET("/books/:id/chunks", deps.Books.Chunks)
	api.GET("/books/:id/source", deps.Books.GetSource)
	api.DELETE("/books/:id", deps.Books.Delete)

	api.POST("/chat", deps.Chat.Chat)
	api.POST("/retrieve", deps.Chat.Retrieve)
	api.POST("/sessions", deps.Chat.CreateSession)
	api.GET("/sessions/:id/history", deps.Chat.History)
}
