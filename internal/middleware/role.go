package middleware // middleware provides shared request processing for handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// RequireRole lets the request through only when the identity stored by
// JWTAuth has one of roles; everyone else gets 403.
func RequireRole(roles ...string) echo.MiddlewareFunc {
	allowed := make(map[string]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			id, ok := IdentityFrom(c)
			if !ok {
				return errorJSON(c, http.StatusUnauthorized, "unauthorized", "missing identity")
			}
			if !allowed[id.Role] {
				return errorJSON(c, http.StatusForbidden, "forbidden", "role "+id.Role+" may not perform this action")
			}
			return next(c)
		}
	}
}
