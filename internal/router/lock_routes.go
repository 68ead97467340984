package router // router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/auditorium-netlock/internal/handler"
	"github.com/iliyamo/auditorium-netlock/internal/middleware"
	"github.com/iliyamo/auditorium-netlock/internal/model"
)

// RegisterLocks registers the OPERATOR-only actions.  The rate limiter runs
// after JWTAuth so buckets can be keyed per user.
func RegisterLocks(e *echo.Echo, h *handler.LockHandler, jwtSecret string, limit echo.MiddlewareFunc) {
	g := e.Group(
		"/v1",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleOperator),
		limit,
	)
	g.POST("/rooms/:id/disable", h.Disable)
	g.POST("/rooms/:id/enable", h.Enable)
	g.POST("/rooms/:id/check", h.Check)

	// routes kept for clients of the original auditorium API
	g.POST("/auditoriums/lock", h.LegacyLock)
	g.POST("/auditoriums/unlock", h.LegacyUnlock)
	g.POST("/check_network", h.LegacyCheck)
}
