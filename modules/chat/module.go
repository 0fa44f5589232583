package chat

import (
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"chatcal/core/config"
	"chatcal/core/database"
	"chatcal/core/errors"
	"chatcal/core/middleware"
	authrepo "chatcal/modules/auth/repository"
	"chatcal/modules/chat/controller"
	"chatcal/modules/chat/repository"
	"chatcal/modules/chat/router"
	"chatcal/modules/chat/service"
)

func Init(e *echo.Echo, db database.Database, cfg *config.Config) {
	repo := repository.NewConversationRepository(&db)
	ai := service.NewOpenAIClient(cfg.OpenAI)
	images := service.NewS3ImageStore(cfg.S3)
	chatService := service.NewChatService(repo, ai, images)

	users := authrepo.NewAuthRepository(&db)
	resolver := controller.ResolverFunc(func(c echo.Context, googleSub string) (uuid.UUID, error) {
		user, err := users.GetUserByGoogleSub(c.Request().Context(), googleSub)
		if err != nil {
			return uuid.Nil, errors.NewAppError(errors.ErrUnauthorized, "unknown user", err)
		}
		return user.ID, nil
	})

	ctrl := controller.NewChatController(chatService, resolver)
	router.NewChatRouter(ctrl).Setup(e, middleware.NewMiddleware())
}
