package calendar

import (
	"context"

	"github.com/labstack/echo/v4"

	"chatcal/core/cache"
	"chatcal/core/config"
	"chatcal/core/database"
	"chatcal/core/middleware"
	"chatcal/core/utils"
	"chatcal/modules/calendar/controller"
	"chatcal/modules/calendar/repository"
	"chatcal/modules/calendar/router"
	"chatcal/modules/calendar/service"
)

// Init wires the calendar module and returns the session so the background
// worker can drive token keep-fresh and state cleanup.
func Init(e *echo.Echo, db database.Database, c cache.Cache, cfg *config.Config) (*service.CalendarSession, repository.OAuthStateRepository, error) {
	cipher, err := utils.NewTokenCipher(cfg.TokenCipherKey)
	if err != nil {
		return nil, nil, err
	}

	store := repository.NewRedisCredentialStore(c, cipher)
	states := repository.NewOAuthStateRepository(&db)
	tokens := service.NewGoogleTokenClient(cfg.GoogleAPI)

	session := service.NewCalendarSession(store, tokens, states, cfg.GoogleAPI)
	session.Resume(context.Background())

	ctrl := controller.NewCalendarController(session)
	router.NewCalendarRouter(ctrl).Setup(e, middleware.NewMiddleware())

	return session, states, nil
}
