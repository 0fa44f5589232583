package controller

import (
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"chatcal/core/controller"
	"chatcal/core/errors"
	"chatcal/core/logger"
	"chatcal/core/middleware"
	"chatcal/modules/chat/dto"
	"chatcal/modules/chat/service"
)

type ChatController struct {
	controller.BaseController
	service service.ChatServiceInterface
	userIDs UserIDResolver
}

// UserIDResolver maps the authenticated Google subject onto the local user
// row id. The auth module provides the implementation.
type UserIDResolver interface {
	ResolveUserID(c echo.Context) (uuid.UUID, error)
}

func NewChatController(service service.ChatServiceInterface, userIDs UserIDResolver) *ChatController {
	return &ChatController{
		BaseController: controller.NewBaseController(),
		service:        service,
		userIDs:        userIDs,
	}
}

func (ctrl *ChatController) UnifiedChat(c echo.Context) error {
	userID, err := ctrl.userIDs.ResolveUserID(c)
	if err != nil {
		return ctrl.ErrorResponse(c, err)
	}

	var req dto.UnifiedChatRequest
	if err := c.Bind(&req); err != nil {
		logger.Error("ChatController:UnifiedChat:Bind:Error", "error", err)
		return ctrl.ErrorResponse(c, errors.NewAppError(errors.ErrInvalidRequestData, "invalid request body", err))
	}

	resp, err := ctrl.service.UnifiedChat(c.Request().Context(), userID, req)
	if err != nil {
		return ctrl.ErrorResponse(c, err)
	}
	return ctrl.SuccessResponse(c, resp, "Chat reply generated")
}

func (ctrl *ChatController) ListConversations(c echo.Context) error {
	userID, err := ctrl.userIDs.ResolveUserID(c)
	if err != nil {
		return ctrl.ErrorResponse(c, err)
	}

	page := 1
	if raw := c.QueryParam("page"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			return ctrl.ErrorResponse(c, errors.NewAppError(errors.ErrInvalidInput, "page must be a positive integer", err))
		}
		page = parsed
	}

	conversations, err := ctrl.service.ListConversations(c.Request().Context(), userID, page)
	if err != nil {
		return ctrl.ErrorResponse(c, err)
	}
	return ctrl.SuccessResponse(c, conversations, "Conversations fetched")
}

func (ctrl *ChatController) GetConversation(c echo.Context) error {
	userID, err := ctrl.userIDs.ResolveUserID(c)
	if err != nil {
		return ctrl.ErrorResponse(c, err)
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return ctrl.ErrorResponse(c, errors.NewAppError(errors.ErrInvalidInput, "invalid conversation id", err))
	}

	detail, err := ctrl.service.GetConversation(c.Request().Context(), userID, id)
	if err != nil {
		return ctrl.ErrorResponse(c, err)
	}
	return ctrl.SuccessResponse(c, detail, "Conversation fetched")
}

func (ctrl *ChatController) DeleteConversation(c echo.Context) error {
	userID, err := ctrl.userIDs.ResolveUserID(c)
	if err != nil {
		return ctrl.ErrorResponse(c, err)
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return ctrl.ErrorResponse(c, errors.NewAppError(errors.ErrInvalidInput, "invalid conversation id", err))
	}

	if err := ctrl.service.DeleteConversation(c.Request().Context(), userID, id); err != nil {
		return ctrl.ErrorResponse(c, err)
	}
	return ctrl.SuccessResponse(c, nil, "Conversation deleted")
}

// GetImage redirects to a short-lived signed URL for a generated image.
func (ctrl *ChatController) GetImage(c echo.Context) error {
	conversation := c.Param("conversation")
	file := c.Param("file")
	if conversation == "" || file == "" {
		return ctrl.ErrorResponse(c, errors.NewAppError(errors.ErrInvalidInput, "invalid image path", nil))
	}

	signed, err := ctrl.service.ImageURL(c.Request().Context(), "images/"+conversation+"/"+file)
	if err != nil {
		return ctrl.ErrorResponse(c, err)
	}
	return c.Redirect(http.StatusFound, signed)
}

// ResolverFunc adapts a plain lookup function to UserIDResolver.
type ResolverFunc func(c echo.Context, googleSub string) (uuid.UUID, error)

func (f ResolverFunc) ResolveUserID(c echo.Context) (uuid.UUID, error) {
	user := middleware.UserFromContext(c)
	if user == nil {
		return uuid.Nil, errors.NewAppError(errors.ErrUnauthorized, "authentication required", nil)
	}
	return f(c, user.UserID)
}
