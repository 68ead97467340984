// Package client talks to the netlock HTTP API.  It implements the
// reconciler's poll source and action sink and maps error responses back
// onto the sentinel errors in package model.
package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/iliyamo/auditorium-netlock/internal/model"
	"github.com/iliyamo/auditorium-netlock/internal/reconciler"
)

var _ reconciler.Client = (*Client)(nil)

// ErrForbidden is returned when the bearer may read but not act.
var ErrForbidden = errors.New("forbidden")

// ErrRateLimited is returned for a 429 from the action routes.
var ErrRateLimited = errors.New("rate limited")

// DefaultTimeout bounds one HTTP exchange.  Actions wait for the actuator,
// so this is longer than a plain status read needs.
const DefaultTimeout = 30 * time.Second

// Client is safe for concurrent use.  It never retries: a 401 in
// particular must reach the caller untouched.
type Client struct {
	http *resty.Client
}

// New returns a client for the API rooted at baseURL.  token may be empty
// for Login.
func New(baseURL, token string) *Client {
	rc := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetTimeout(DefaultTimeout).
		SetRetryCount(0).
		SetHeader("Accept", "application/json")
	if token != "" {
		rc.SetAuthToken(token)
	}
	return &Client{http: rc}
}

// SetToken replaces the bearer token, typically after Login.
func (c *Client) SetToken(token string) { c.http.SetAuthToken(token) }

type apiError struct {
	Code    string `json:"error"`
	Message string `json:"message"`
}

type statusResp struct {
	Rooms []model.RoomStatus `json:"rooms"`
}

type actionResp struct {
	Message string           `json:"message"`
	Lock    model.RoomStatus `json:"lock"`
}

type disableBody struct {
	DurationMinutes *int   `json:"duration_minutes,omitempty"`
	Reason          string `json:"reason,omitempty"`
}

type loginResp struct {
	AccessToken string `json:"access_token"`
}

// Identity is the bearer as seen by the server.
type Identity struct {
	ID     uint64 `json:"id"`
	Email  string `json:"email"`
	Role   string `json:"role"`
	CanAct bool   `json:"can_act"`
}

// Login exchanges credentials for an access token and starts using it.
func (c *Client) Login(ctx context.Context, email, password string) (string, error) {
	var out loginResp
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(map[string]string{"email": email, "password": password}).
		SetResult(&out).
		SetError(&apiError{}).
		Post("/v1/auth/login")
	if err := check(resp, err); err != nil {
		return "", err
	}
	if out.AccessToken == "" {
		return "", errors.New("login: empty access token")
	}
	c.SetToken(out.AccessToken)
	return out.AccessToken, nil
}

// Me returns the identity behind the current token.
func (c *Client) Me(ctx context.Context) (Identity, error) {
	var out Identity
	resp, err := c.http.R().SetContext(ctx).SetResult(&out).SetError(&apiError{}).Get("/v1/me")
	if err := check(resp, err); err != nil {
		return Identity{}, err
	}
	return out, nil
}

// Status fetches the authoritative snapshot in registry order.
func (c *Client) Status(ctx context.Context) ([]model.RoomStatus, error) {
	var out statusResp
	resp, err := c.http.R().SetContext(ctx).SetResult(&out).SetError(&apiError{}).Get("/v1/rooms/status")
	if err := check(resp, err); err != nil {
		return nil, err
	}
	return out.Rooms, nil
}

// Rooms fetches the registry.
func (c *Client) Rooms(ctx context.Context) ([]model.Room, error) {
	var out struct {
		Rooms []model.Room `json:"rooms"`
	}
	resp, err := c.http.R().SetContext(ctx).SetResult(&out).SetError(&apiError{}).Get("/v1/rooms")
	if err := check(resp, err); err != nil {
		return nil, err
	}
	return out.Rooms, nil
}

// Disable turns the room's network off.  A nil minutes asks for an
// indefinite lock.
func (c *Client) Disable(ctx context.Context, roomID int, minutes *int, reason string) (string, error) {
	return c.action(ctx, roomID, "disable", disableBody{DurationMinutes: minutes, Reason: reason})
}

// Enable turns the room's network back on.
func (c *Client) Enable(ctx context.Context, roomID int) (string, error) {
	return c.action(ctx, roomID, "enable", nil)
}

// Check asks the server's actuator for a report on the room's network.
func (c *Client) Check(ctx context.Context, roomID int) (string, error) {
	var out struct {
		Output string `json:"output"`
	}
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&out).
		SetError(&apiError{}).
		Post("/v1/rooms/" + strconv.Itoa(roomID) + "/check")
	if err := check(resp, err); err != nil {
		return "", err
	}
	return out.Output, nil
}

func (c *Client) action(ctx context.Context, roomID int, verb string, body any) (string, error) {
	var out actionResp
	req := c.http.R().SetContext(ctx).SetResult(&out).SetError(&apiError{})
	if body != nil {
		req.SetBody(body)
	}
	resp, err := req.Post("/v1/rooms/" + strconv.Itoa(roomID) + "/" + verb)
	if err := check(resp, err); err != nil {
		return "", err
	}
	return out.Message, nil
}

func check(resp *resty.Response, err error) error {
	if err != nil {
		return fmt.Errorf("netlock request: %w", err)
	}
	if !resp.IsError() {
		return nil
	}
	msg := strings.TrimSpace(resp.String())
	if e, ok := resp.Error().(*apiError); ok && e.Message != "" {
		msg = e.Message
	}
	sentinel := sentinelFor(resp.StatusCode())
	if sentinel == nil {
		return fmt.Errorf("netlock: unexpected status %d: %s", resp.StatusCode(), msg)
	}
	return fmt.Errorf("%w: %s", sentinel, msg)
}

func sentinelFor(status int) error {
	switch status {
	case http.StatusUnauthorized:
		return model.ErrUnauthorized
	case http.StatusForbidden:
		return ErrForbidden
	case http.StatusNotFound:
		return model.ErrUnknownRoom
	case http.StatusBadRequest:
		return model.ErrValidation
	case http.StatusBadGateway:
		return model.ErrActuator
	case http.StatusServiceUnavailable:
		return model.ErrUnavailable
	case http.StatusTooManyRequests:
		return ErrRateLimited
	}
	return nil
}
