package middleware // declare the middleware package; contains reusable HTTP middleware functions

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/auditorium-netlock/internal/utils"
)

// JWTAuth validates the Bearer access token and stores the caller's
// identity in the context.  Handlers read it back with IdentityFrom.
func JWTAuth(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			auth := c.Request().Header.Get(echo.HeaderAuthorization)
			raw, found := strings.CutPrefix(auth, "Bearer ")
			if !found || strings.TrimSpace(raw) == "" {
				return errorJSON(c, http.StatusUnauthorized, "unauthorized", "missing bearer token")
			}
			id, err := utils.ParseAccessToken(secret, strings.TrimSpace(raw))
			if err != nil {
				return errorJSON(c, http.StatusUnauthorized, "unauthorized", "invalid or expired token")
			}
			c.Set(identityKey, id)
			return next(c)
		}
	}
}
