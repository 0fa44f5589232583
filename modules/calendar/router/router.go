package router

import (
	"chatcal/core/middleware"
	"chatcal/modules/calendar/controller"

	"github.com/labstack/echo/v4"
)

type CalendarRouter struct {
	controller *controller.CalendarController
}

func NewCalendarRouter(controller *controller.CalendarController) *CalendarRouter {
	return &CalendarRouter{
		controller: controller,
	}
}

func (r *CalendarRouter) Setup(e *echo.Echo, mw *middleware.Middleware) {
	v1 := e.Group("/api/v1")

	calendarRoutes := v1.Group("/private/calendar")
	calendarRoutes.Use(mw.AuthMiddleware())

	// Connection lifecycle
	calendarRoutes.GET("/connect-url", r.controller.GetConnectURL)
	calendarRoutes.POST("/connect", r.controller.Connect)
	calendarRoutes.DELETE("/connection", r.controller.Disconnect)
	calendarRoutes.GET("/status", r.controller.Status)

	// Events
	calendarRoutes.GET("/events", r.controller.ListEvents)
	calendarRoutes.POST("/events", r.controller.CreateEvent)
	calendarRoutes.PATCH("/events/:id", r.controller.UpdateEvent)
	calendarRoutes.DELETE("/events/:id", r.controller.DeleteEvent)
}
