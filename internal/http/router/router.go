package router

import (
	"github.com/gin-gonic/gin"

	"github.com/octorelay/octorelay/internal/http/handler/webhook"
)

type Handlers struct {
	GitHubWebhook *webhook.GitHubWebhookHandler
}

func SetupRoutes(router *gin.Engine, handlers Handlers) {
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	WebhookRouter(router, handlers.GitHubWebhook)
}
