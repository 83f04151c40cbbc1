package router

import (
	"echoloom-api/core/middleware"
	"echoloom-api/modules/chat/controller"

	"github.com/labstack/echo/v4"
)

type ChatRouter struct {
	ChatController *controller.ChatController
}

func NewChatRouter(chatController *controller.ChatController) *ChatRouter {
	return &ChatRouter{ChatController: chatController}
}

// Setup registers chat routes under the meeting resource
func (r *ChatRouter) Setup(e *echo.Echo, mw *middleware.Middleware) {
	v1 := e.Group("/api/v1")

	chat := v1.Group("/private/meetings/:id/chat", mw.AuthMiddleware())
	chat.POST("", r.ChatController.SendMessage)
	chat.GET("", r.ChatController.GetMessages)
	chat.POST("/attachments", r.ChatController.CreateAttachmentURL)
}
