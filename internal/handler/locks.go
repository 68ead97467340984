package handler

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/auditorium-netlock/internal/lock"
	"github.com/iliyamo/auditorium-netlock/internal/middleware"
	"github.com/iliyamo/auditorium-netlock/internal/model"
	"github.com/iliyamo/auditorium-netlock/internal/registry"
)

// LockService performs lock transitions; *lock.Manager implements it.
type LockService interface {
	Disable(ctx context.Context, req lock.DisableRequest) (model.RoomLock, error)
	Enable(ctx context.Context, roomID int, actor string) (model.RoomLock, error)
	Check(ctx context.Context, roomID int) (string, error)
}

// actionTimeout covers an actuator call plus the store commit.  The manager
// bounds the actuator itself, so this only cuts off a stuck store.
const actionTimeout = 30 * time.Second

// LockHandler exposes the operator actions.
type LockHandler struct {
	Rooms *registry.Registry
	Locks LockService
}

func NewLockHandler(reg *registry.Registry, svc LockService) *LockHandler {
	return &LockHandler{Rooms: reg, Locks: svc}
}

// ----- DTOs -----

type disableReq struct {
	DurationMinutes *int   `json:"duration_minutes"`
	Reason          string `json:"reason"`
}

// legacyDefaultMinutes is the lock length the /auditoriums/lock route
// applies when the body carries no duration.
const legacyDefaultMinutes = 60

// legacyLockReq is the body of the original /auditoriums/lock|unlock
// routes.  A missing duration means legacyDefaultMinutes.
type legacyLockReq struct {
	Number   int    `json:"number"`
	Duration *int   `json:"duration"`
	Reason   string `json:"reason"`
}

type actionResp struct {
	Message string           `json:"message"`
	Lock    model.RoomStatus `json:"lock"`
}

type checkResp struct {
	Message string `json:"message"`
	RoomID  int    `json:"room_id"`
	Output  string `json:"output"`
}

// Disable handles POST /v1/rooms/:id/disable.
func (h *LockHandler) Disable(c echo.Context) error {
	id, err := roomIDParam(c)
	if err != nil {
		return respondError(c, err)
	}
	var req disableReq
	if err := c.Bind(&req); err != nil {
		return respondError(c, validationError("invalid body"))
	}
	return h.disable(c, id, req.DurationMinutes, req.Reason)
}

// Enable handles POST /v1/rooms/:id/enable.
func (h *LockHandler) Enable(c echo.Context) error {
	id, err := roomIDParam(c)
	if err != nil {
		return respondError(c, err)
	}
	return h.enable(c, id)
}

// Check handles POST /v1/rooms/:id/check.
func (h *LockHandler) Check(c echo.Context) error {
	id, err := roomIDParam(c)
	if err != nil {
		return respondError(c, err)
	}
	return h.check(c, id)
}

// LegacyCheck handles POST /v1/check_network.
func (h *LockHandler) LegacyCheck(c echo.Context) error {
	var req legacyLockReq
	if err := c.Bind(&req); err != nil || req.Number == 0 {
		return respondError(c, validationError("number is required"))
	}
	return h.check(c, req.Number)
}

// LegacyLock handles POST /v1/auditoriums/lock.
func (h *LockHandler) LegacyLock(c echo.Context) error {
	var req legacyLockReq
	if err := c.Bind(&req); err != nil || req.Number == 0 {
		return respondError(c, validationError("number is required"))
	}
	if req.Duration == nil {
		d := legacyDefaultMinutes
		req.Duration = &d
	}
	return h.disable(c, req.Number, req.Duration, req.Reason)
}

// LegacyUnlock handles POST /v1/auditoriums/unlock.
func (h *LockHandler) LegacyUnlock(c echo.Context) error {
	var req legacyLockReq
	if err := c.Bind(&req); err != nil || req.Number == 0 {
		return respondError(c, validationError("number is required"))
	}
	return h.enable(c, req.Number)
}

func (h *LockHandler) disable(c echo.Context, roomID int, minutes *int, reason string) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), actionTimeout)
	defer cancel()

	l, err := h.Locks.Disable(ctx, lock.DisableRequest{
		RoomID:  roomID,
		Minutes: minutes,
		Reason:  reason,
		Actor:   middleware.Actor(c),
	})
	if err != nil {
		return respondError(c, err)
	}
	msg := fmt.Sprintf("room %d disabled indefinitely", roomID)
	if l.UnlockAt != nil {
		msg = fmt.Sprintf("room %d disabled until %s", roomID, l.UnlockAt.UTC().Format(time.RFC3339))
	}
	return h.respond(c, msg, l)
}

func (h *LockHandler) enable(c echo.Context, roomID int) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), actionTimeout)
	defer cancel()

	l, err := h.Locks.Enable(ctx, roomID, middleware.Actor(c))
	if err != nil {
		return respondError(c, err)
	}
	return h.respond(c, fmt.Sprintf("room %d enabled", roomID), l)
}

func (h *LockHandler) check(c echo.Context, roomID int) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), actionTimeout)
	defer cancel()

	out, err := h.Locks.Check(ctx, roomID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, checkResp{Message: "Network status checked", RoomID: roomID, Output: out})
}

func (h *LockHandler) respond(c echo.Context, msg string, l model.RoomLock) error {
	// the manager already validated the id, so the lookup cannot miss
	room, _ := h.Rooms.Lookup(l.RoomID)
	return c.JSON(http.StatusOK, actionResp{Message: msg, Lock: model.StatusOf(room, l)})
}

func validationError(msg string) error {
	return fmt.Errorf("%s: %w", msg, model.ErrValidation)
}
