package auth

import (
	"github.com/labstack/echo/v4"

	"chatcal/core/config"
	"chatcal/core/database"
	"chatcal/core/middleware"
	"chatcal/modules/auth/controller"
	"chatcal/modules/auth/repository"
	"chatcal/modules/auth/router"
	"chatcal/modules/auth/service"
)

func Init(e *echo.Echo, db database.Database, cfg *config.Config) {
	repo := repository.NewAuthRepository(&db)
	authService := service.NewAuthService(repo, cfg)
	ctrl := controller.NewAuthController(authService)

	router.NewAuthRouter(ctrl).Setup(e, middleware.NewMiddleware())
}
