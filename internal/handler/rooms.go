package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/auditorium-netlock/internal/model"
	"github.com/iliyamo/auditorium-netlock/internal/registry"
)

// StatusReader is the read side used by observers.
type StatusReader interface {
	Snapshot(ctx context.Context) ([]model.RoomStatus, error)
	Room(ctx context.Context, id int) (model.RoomStatus, error)
}

// RoomHandler serves the room registry and the lock status of rooms.
type RoomHandler struct {
	Rooms  *registry.Registry
	Status StatusReader
}

func NewRoomHandler(reg *registry.Registry, st StatusReader) *RoomHandler {
	return &RoomHandler{Rooms: reg, Status: st}
}

// List returns the registry with labels and floor-plan polygons.
func (h *RoomHandler) List(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{"rooms": h.Rooms.Rooms()})
}

// StatusAll returns {room_id, label, enabled, unlock_at} for every room in
// registry order.
func (h *RoomHandler) StatusAll(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	snap, err := h.Status.Snapshot(ctx)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"rooms": snap})
}

// StatusOne returns the status of the room in the :id path parameter.
func (h *RoomHandler) StatusOne(c echo.Context) error {
	id, err := roomIDParam(c)
	if err != nil {
		return respondError(c, err)
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	st, err := h.Status.Room(ctx, id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, st)
}

// legacyStatus is the row shape of the original /auditoriums/status list.
type legacyStatus struct {
	AuditoriumNumber int        `json:"auditorium_number"`
	IsNetworkOn      bool       `json:"is_network_on"`
	UnlockTime       *time.Time `json:"unlock_time"`
}

// LegacyStatus serves the snapshot in the field names older clients use.
func (h *RoomHandler) LegacyStatus(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	snap, err := h.Status.Snapshot(ctx)
	if err != nil {
		return respondError(c, err)
	}
	out := make([]legacyStatus, 0, len(snap))
	for _, s := range snap {
		out = append(out, legacyStatus{AuditoriumNumber: s.RoomID, IsNetworkOn: s.Enabled, UnlockTime: s.UnlockAt})
	}
	return c.JSON(http.StatusOK, out)
}

func roomIDParam(c echo.Context) (int, error) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return 0, validationError("room id must be an integer")
	}
	return id, nil
}
