package handler

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"

	"github.com/iliyamo/auditorium-netlock/internal/model"
)

func TestRespondErrorStatus(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{model.ErrUnknownRoom, http.StatusNotFound},
		{fmt.Errorf("bad: %w", model.ErrValidation), http.StatusBadRequest},
		{fmt.Errorf("x: %w: %w", model.ErrActuator, errors.New("timeout")), http.StatusBadGateway},
		{model.ErrUnauthorized, http.StatusUnauthorized},
		{model.ErrUnavailable, http.StatusServiceUnavailable},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	e := echo.New()
	for _, tc := range cases {
		rec := httptest.NewRecorder()
		c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
		assert.NoError(t, respondError(c, tc.err))
		assert.Equal(t, tc.want, rec.Code, tc.err.Error())
	}
}
