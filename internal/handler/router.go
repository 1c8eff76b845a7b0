package handler

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kweaver00/askgraph/internal/middleware"
)

type RouterDeps struct {
	Auth         *AuthHandler
	Graph        *GraphHandler
	FAQs         *FAQHandler
	Chat         *ChatHandler
	Documents    *DocumentHandler
	WS           *WSHandler
	JWTSecret    []byte
	UploadWindow time.Duration
}

func RegisterRoutes(api *gin.RouterGroup, deps RouterDeps) {
	api.POST("/auth/register", deps.Auth.Register)
	api.POST("/auth/login", deps.Auth.Login)

	authGroup := api.Group("")
	authGroup.Use(middleware.JWTAuth(deps.JWTSecret))

	authGroup.POST("/workflows", deps.Graph.CreateWorkflow)
	authGroup.GET("/workflows", deps.Graph.ListWorkflows)
	authGroup.DELETE("/workflows/:id", deps.Graph.DeleteWorkflow)
	authGroup.POST("/nodes", deps.Graph.CreateNode)
	authGroup.GET("/nodes", deps.Graph.ListNodes)
	authGroup.DELETE("/nodes/:id", deps.Graph.DeleteNode)
	authGroup.GET("/nodes/:id/answers", deps.Graph.Answers)
	authGroup.POST("/edges", deps.Graph.CreateEdge)
	authGroup.DELETE("/edges/:id", deps.Graph.DeleteEdge)

	authGroup.POST("/faqs", deps.FAQs.Create)
	authGroup.GET("/faqs", deps.FAQs.List)
	authGroup.GET("/faqs/categories", deps.FAQs.Categories)
	authGroup.GET("/faqs/:id", deps.FAQs.Get)
	authGroup.PUT("/faqs/:id", deps.FAQs.Update)
	authGroup.DELETE("/faqs/:id", deps.FAQs.Delete)

	authGroup.POST("/chat/sessions", deps.Chat.CreateSession)
	authGroup.GET("/chat/sessions", deps.Chat.ListSessions)
	authGroup.GET("/chat/sessions/:id/messages", deps.Chat.ListMessages)
	authGroup.POST("/chat/ask", deps.Chat.Ask)

	uploadGroup := authGroup.Group("")
	uploadGroup.Use(middleware.RateLimit(deps.UploadWindow))
	uploadGroup.POST("/documents", deps.Documents.Upload)
	authGroup.GET("/documents", deps.Documents.List)
	authGroup.GET("/documents/:id", deps.Documents.Get)
	authGroup.POST("/documents/:id/reprocess", deps.Documents.Reprocess)
	authGroup.DELETE("/documents/:id", deps.Documents.Delete)

	authGroup.GET("/ws/chat", deps.WS.Chat)
}
