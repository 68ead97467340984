package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/auditorium-netlock/internal/handler"
	"github.com/iliyamo/auditorium-netlock/internal/middleware"
	"github.com/iliyamo/auditorium-netlock/internal/model"
)

// RegisterRooms registers the read routes available to every signed-in
// role.  Only the registry listing goes through the response cache; lock
// status is always read fresh from the store.
func RegisterRooms(e *echo.Echo, h *handler.RoomHandler, jwtSecret string, cache echo.MiddlewareFunc) {
	g := e.Group(
		"/v1",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleOperator, model.RoleViewer),
	)
	g.GET("/rooms", h.List, cache)
	g.GET("/rooms/status", h.StatusAll)
	g.GET("/rooms/:id/status", h.StatusOne)
	g.GET("/auditoriums/status", h.LegacyStatus)
}
