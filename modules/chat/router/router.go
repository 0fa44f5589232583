package router

import (
	"chatcal/core/middleware"
	"chatcal/modules/chat/controller"

	"github.com/labstack/echo/v4"
)

type ChatRouter struct {
	controller *controller.ChatController
}

func NewChatRouter(controller *controller.ChatController) *ChatRouter {
	return &ChatRouter{
		controller: controller,
	}
}

func (r *ChatRouter) Setup(e *echo.Echo, mw *middleware.Middleware) {
	v1 := e.Group("/api/v1")

	chatRoutes := v1.Group("/private")
	chatRoutes.Use(mw.AuthMiddleware())

	chatRoutes.POST("/unified-chat", r.controller.UnifiedChat)

	chatRoutes.GET("/conversations", r.controller.ListConversations)
	chatRoutes.GET("/conversations/:id", r.controller.GetConversation)
	chatRoutes.DELETE("/conversations/:id", r.controller.DeleteConversation)

	chatRoutes.GET("/images/:conversation/:file", r.controller.GetImage)
}
