package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	"github.com/iliyamo/auditorium-netlock/internal/model"
)

// Error codes carried in the "error" field of every error body.
const (
	CodeUnknownRoom  = "unknown_room"
	CodeValidation   = "validation_error"
	CodeActuator     = "actuator_error"
	CodeUnauthorized = "unauthorized"
	CodeUnavailable  = "unavailable"
	CodeInternal     = "internal_error"
)

func errorBody(code, msg string) echo.Map {
	return echo.Map{"error": code, "message": msg}
}

// respondError maps the lock subsystem's sentinel errors to a status code.
// Unknown errors are logged and reported as 500 without detail.
func respondError(c echo.Context, err error) error {
	var status int
	var code string
	switch {
	case errors.Is(err, model.ErrUnknownRoom):
		status, code = http.StatusNotFound, CodeUnknownRoom
	case errors.Is(err, model.ErrValidation):
		status, code = http.StatusBadRequest, CodeValidation
	case errors.Is(err, model.ErrActuator):
		status, code = http.StatusBadGateway, CodeActuator
	case errors.Is(err, model.ErrUnauthorized):
		status, code = http.StatusUnauthorized, CodeUnauthorized
	case errors.Is(err, model.ErrUnavailable):
		status, code = http.StatusServiceUnavailable, CodeUnavailable
	default:
		log.Error().Err(err).Str("path", c.Path()).Msg("unhandled error")
		return c.JSON(http.StatusInternalServerError, errorBody(CodeInternal, "internal error"))
	}
	if status >= 500 {
		log.Warn().Err(err).Str("path", c.Path()).Int("status", status).Msg("request failed")
	}
	return c.JSON(status, errorBody(code, err.Error()))
}
