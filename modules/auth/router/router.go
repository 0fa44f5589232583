package router

import (
	"chatcal/core/middleware"
	"chatcal/modules/auth/controller"

	"github.com/labstack/echo/v4"
)

type AuthRouter struct {
	controller *controller.AuthController
}

func NewAuthRouter(controller *controller.AuthController) *AuthRouter {
	return &AuthRouter{
		controller: controller,
	}
}

func (r *AuthRouter) Setup(e *echo.Echo, mw *middleware.Middleware) {
	v1 := e.Group("/api/v1")

	v1.POST("/public/auth/google/verify", r.controller.GoogleLogin)

	private := v1.Group("/private/auth")
	private.Use(mw.AuthMiddleware())
	private.GET("/me", r.controller.Me)
}
