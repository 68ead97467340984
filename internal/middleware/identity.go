package middleware

import (
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/auditorium-netlock/internal/utils"
)

// identityKey is the echo context key holding the verified utils.Identity.
const identityKey = "identity"

// IdentityFrom returns the identity stored by JWTAuth.
func IdentityFrom(c echo.Context) (utils.Identity, bool) {
	id, ok := c.Get(identityKey).(utils.Identity)
	return id, ok
}

// Actor names the caller in logs and lock events: the email when the token
// carries one, the numeric id otherwise, "anon" for unauthenticated calls.
func Actor(c echo.Context) string {
	id, ok := IdentityFrom(c)
	switch {
	case !ok:
		return "anon"
	case id.Email != "":
		return id.Email
	default:
		return "user:" + strconv.FormatUint(id.UserID, 10)
	}
}

// userKey identifies the caller in rate-limit keys.
func userKey(c echo.Context) string {
	if id, ok := IdentityFrom(c); ok {
		return strconv.FormatUint(id.UserID, 10)
	}
	return "anon"
}

func errorJSON(c echo.Context, status int, code, msg string) error {
	return c.JSON(status, echo.Map{"error": code, "message": msg})
}
