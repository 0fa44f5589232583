package middleware

import (
	"net/http"
	"strings"

	"chatcal/core/controller"
	"chatcal/core/errors"
	"chatcal/core/utils"

	"github.com/labstack/echo/v4"
)

const userContextKey = "auth_user"

type Middleware struct{}

func NewMiddleware() *Middleware {
	return &Middleware{}
}

// AuthMiddleware validates the bearer token and stores its claims in the
// request context.
func (m *Middleware) AuthMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header.Get("Authorization")
			if header == "" {
				return c.JSON(http.StatusUnauthorized, controller.NewErrorResponse(
					http.StatusUnauthorized, errors.ErrMissingAuthorizationHeader, "missing Authorization header"))
			}

			token := strings.TrimPrefix(header, "Bearer ")
			if token == header {
				return c.JSON(http.StatusUnauthorized, controller.NewErrorResponse(
					http.StatusUnauthorized, errors.ErrInvalidTokenFormat, "Authorization header must be a Bearer token"))
			}

			tokenData, err := utils.ValidateAndParseToken(token)
			if err != nil {
				return c.JSON(http.StatusUnauthorized, controller.NewErrorResponse(
					http.StatusUnauthorized, errors.ErrUnauthorized, "invalid or expired token"))
			}

			c.Set(userContextKey, tokenData)
			return next(c)
		}
	}
}

// UserFromContext returns the authenticated user's claims, or nil when the
// request was not authenticated.
func UserFromContext(c echo.Context) *utils.TokenData {
	if data, ok := c.Get(userContextKey).(*utils.TokenData); ok {
		return data
	}
	return nil
}
