package router

import (
	"github.com/gin-gonic/gin"

	"github.com/octorelay/octorelay/internal/http/handler/webhook"
)

func WebhookRouter(router gin.IRoutes, handler *webhook.GitHubWebhookHandler) {
	router.POST("/github-webhook", handler.HandleEvent)
}
