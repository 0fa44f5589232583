package controller

import (
	"github.com/labstack/echo/v4"

	"chatcal/core/controller"
	"chatcal/core/errors"
	"chatcal/core/logger"
	"chatcal/core/middleware"
	"chatcal/modules/auth/dto"
	"chatcal/modules/auth/service"
)

type AuthController struct {
	controller.BaseController
	service service.AuthServiceInterface
}

func NewAuthController(service service.AuthServiceInterface) *AuthController {
	return &AuthController{
		BaseController: controller.NewBaseController(),
		service:        service,
	}
}

func (ctrl *AuthController) GoogleLogin(c echo.Context) error {
	var req dto.GoogleLoginRequest
	if err := c.Bind(&req); err != nil {
		logger.Error("AuthController:GoogleLogin:Bind:Error", "error", err)
		return ctrl.ErrorResponse(c, errors.NewAppError(errors.ErrInvalidRequestData, "invalid request body", err))
	}

	resp, err := ctrl.service.LoginWithGoogle(c.Request().Context(), req.IDToken)
	if err != nil {
		return ctrl.ErrorResponse(c, err)
	}
	return ctrl.SuccessResponse(c, resp, "Login successful")
}

func (ctrl *AuthController) Me(c echo.Context) error {
	user := middleware.UserFromContext(c)

	profile, err := ctrl.service.Profile(c.Request().Context(), user.UserID)
	if err != nil {
		return ctrl.ErrorResponse(c, err)
	}
	return ctrl.SuccessResponse(c, profile, "Profile fetched")
}
