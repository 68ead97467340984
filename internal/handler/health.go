package handler // declare the package name; contains HTTP handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// Health is the liveness probe: the process is up and serving.
func Health(c echo.Context) error {
	return c.String(http.StatusOK, "ok")
}

// Readiness is satisfied by the lock manager once its rows are loaded.
type Readiness interface {
	Ready() bool
}

// Ready is the readiness probe.  It answers 503 until the lock manager has
// loaded its state, so load balancers hold traffic during startup.
func Ready(r Readiness) echo.HandlerFunc {
	return func(c echo.Context) error {
		if !r.Ready() {
			return c.JSON(http.StatusServiceUnavailable, errorBody(CodeUnavailable, "lock manager not ready"))
		}
		return c.String(http.StatusOK, "ready")
	}
}
