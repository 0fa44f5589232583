package controller

import (
	goerrors "errors"
	"strconv"

	"github.com/labstack/echo/v4"

	"chatcal/core/controller"
	"chatcal/core/errors"
	"chatcal/core/logger"
	"chatcal/core/middleware"
	"chatcal/modules/calendar/dto"
	"chatcal/modules/calendar/service"
)

type CalendarController struct {
	controller.BaseController
	session *service.CalendarSession
}

func NewCalendarController(session *service.CalendarSession) *CalendarController {
	return &CalendarController{
		BaseController: controller.NewBaseController(),
		session:        session,
	}
}

func (ctrl *CalendarController) GetConnectURL(c echo.Context) error {
	resp, err := ctrl.session.ConnectURL(c.Request().Context())
	if err != nil {
		return ctrl.ErrorResponse(c, ctrl.mapError(err))
	}
	return ctrl.SuccessResponse(c, resp, "Consent URL generated")
}

func (ctrl *CalendarController) Connect(c echo.Context) error {
	user := middleware.UserFromContext(c)

	var req dto.ConnectRequest
	if err := c.Bind(&req); err != nil {
		logger.Error("CalendarController:Connect:Bind:Error", "error", err)
		return ctrl.ErrorResponse(c, errors.NewAppError(errors.ErrInvalidRequestData, "invalid request body", err))
	}

	if err := ctrl.session.Connect(c.Request().Context(), req, user.Email); err != nil {
		return ctrl.ErrorResponse(c, ctrl.mapError(err))
	}
	return ctrl.SuccessResponse(c, nil, "Calendar connected")
}

func (ctrl *CalendarController) Disconnect(c echo.Context) error {
	ctrl.session.Disconnect(c.Request().Context())
	return ctrl.SuccessResponse(c, nil, "Calendar disconnected")
}

func (ctrl *CalendarController) Status(c echo.Context) error {
	user := middleware.UserFromContext(c)

	resp, err := ctrl.session.Status(c.Request().Context(), user.Email)
	if err != nil {
		return ctrl.ErrorResponse(c, ctrl.mapError(err))
	}
	return ctrl.SuccessResponse(c, resp, "Connection status")
}

func (ctrl *CalendarController) ListEvents(c echo.Context) error {
	user := middleware.UserFromContext(c)

	timeMin := c.QueryParam("time_min")
	maxResults := 0
	if raw := c.QueryParam("max_results"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			return ctrl.ErrorResponse(c, errors.NewAppError(errors.ErrInvalidInput, "max_results must be an integer", err))
		}
		maxResults = parsed
	}

	events, err := ctrl.session.ListEvents(c.Request().Context(), user.Email, timeMin, maxResults)
	if err != nil {
		return ctrl.ErrorResponse(c, ctrl.mapError(err))
	}
	return ctrl.SuccessResponse(c, dto.EventListResponse{Events: events}, "Events fetched")
}

func (ctrl *CalendarController) CreateEvent(c echo.Context) error {
	user := middleware.UserFromContext(c)

	var input dto.EventInput
	if err := c.Bind(&input); err != nil {
		logger.Error("CalendarController:CreateEvent:Bind:Error", "error", err)
		return ctrl.ErrorResponse(c, errors.NewAppError(errors.ErrInvalidRequestData, "invalid request body", err))
	}

	event, err := ctrl.session.CreateEvent(c.Request().Context(), user.Email, input)
	if err != nil {
		return ctrl.ErrorResponse(c, ctrl.mapError(err))
	}
	return ctrl.SuccessResponse(c, event, "Event created")
}

func (ctrl *CalendarController) UpdateEvent(c echo.Context) error {
	user := middleware.UserFromContext(c)

	var input dto.EventInput
	if err := c.Bind(&input); err != nil {
		logger.Error("CalendarController:UpdateEvent:Bind:Error", "error", err)
		return ctrl.ErrorResponse(c, errors.NewAppError(errors.ErrInvalidRequestData, "invalid request body", err))
	}

	event, err := ctrl.session.UpdateEvent(c.Request().Context(), user.Email, c.Param("id"), input)
	if err != nil {
		return ctrl.ErrorResponse(c, ctrl.mapError(err))
	}
	return ctrl.SuccessResponse(c, event, "Event updated")
}

func (ctrl *CalendarController) DeleteEvent(c echo.Context) error {
	user := middleware.UserFromContext(c)

	if err := ctrl.session.DeleteEvent(c.Request().Context(), user.Email, c.Param("id")); err != nil {
		return ctrl.ErrorResponse(c, ctrl.mapError(err))
	}
	return ctrl.SuccessResponse(c, nil, "Event deleted")
}

// mapError translates the session's error taxonomy into the response
// envelope's codes. Provider error bodies ride along unmodified.
func (ctrl *CalendarController) mapError(err error) error {
	var (
		exchangeErr   *service.ExchangeError
		refreshErr    *service.RefreshError
		transportErr  *service.TransportError
		validationErr *service.ValidationError
	)

	switch {
	case goerrors.Is(err, service.ErrNotConnected):
		return errors.NewAppError(errors.ErrCalendarDisconnected, "calendar is not connected", err)
	case goerrors.Is(err, service.ErrOwnerMismatch):
		return errors.NewAppError(errors.ErrOwnerMismatch, "calendar is connected to a different account", err)
	case goerrors.Is(err, service.ErrInvalidState):
		return errors.NewAppError(errors.ErrInvalidInput, "invalid or expired oauth state", err)
	case goerrors.As(err, &validationErr):
		return errors.NewAppError(errors.ErrInvalidInput, validationErr.Error(), err)
	case goerrors.As(err, &exchangeErr):
		return errors.NewAppError(errors.ErrExchangeFailed, exchangeErr.Error(), err)
	case goerrors.As(err, &refreshErr):
		return errors.NewAppError(errors.ErrRefreshFailed, "calendar authorization expired, reconnect required", err)
	case goerrors.As(err, &transportErr):
		return errors.NewAppError(errors.ErrProviderTransport, transportErr.Error(), err)
	default:
		return errors.NewAppError(errors.ErrInternalServer, "calendar operation failed", err)
	}
}
