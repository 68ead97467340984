package handler

import (
	"context" // provides context with cancellation for DB calls
	"database/sql"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	"github.com/iliyamo/auditorium-netlock/internal/config"
	"github.com/iliyamo/auditorium-netlock/internal/middleware"
	"github.com/iliyamo/auditorium-netlock/internal/model"
	"github.com/iliyamo/auditorium-netlock/internal/repository"
	"github.com/iliyamo/auditorium-netlock/internal/utils"
)

// UserStore is the account storage used by the auth endpoints.
type UserStore interface {
	Create(ctx context.Context, email, password, role string, cost int) (uint64, error)
	GetByEmail(ctx context.Context, email string) (model.User, error)
	GetByID(ctx context.Context, id uint64) (model.User, error)
}

// TokenStore keeps hashed refresh tokens.
type TokenStore interface {
	StoreRefresh(ctx context.Context, userID uint64, tokenHash string, exp time.Time) error
	ValidateRefresh(ctx context.Context, tokenHash string) (uint64, error)
	Rotate(ctx context.Context, userID uint64, oldHash, newHash string, exp time.Time) error
	RevokeByHash(ctx context.Context, tokenHash string) error
	RevokeAllForUser(ctx context.Context, userID uint64) error
}

// AuthHandler bundles dependencies for auth endpoints.
type AuthHandler struct {
	Cfg    config.Config
	Users  UserStore
	Tokens TokenStore
}

func NewAuthHandler(cfg config.Config, u UserStore, t TokenStore) *AuthHandler {
	return &AuthHandler{Cfg: cfg, Users: u, Tokens: t}
}

// ----- DTOs -----

type registerReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"` // only honoured on the operator-only user route
}

// loginReq accepts JSON or a form post; username is an alias of email so
// OAuth2-style password forms work unchanged.
type loginReq struct {
	Email    string `json:"email" form:"email"`
	Username string `json:"username" form:"username"`
	Password string `json:"password" form:"password"`
}

type refreshReq struct {
	RefreshToken string `json:"refresh_token"`
}

type tokenPart struct {
	Token   string    `json:"token"`
	Expires time.Time `json:"expires"`
}
type userPart struct {
	ID    uint64 `json:"id"`
	Email string `json:"email"`
	Role  string `json:"role"`
}
type authResp struct {
	User        userPart  `json:"user"`
	Access      tokenPart `json:"access"`
	Refresh     tokenPart `json:"refresh"`
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
}

const minPasswordLen = 8

// Register creates a VIEWER account and returns tokens immediately.
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorBody(CodeValidation, "invalid body"))
	}
	u, status, body := h.create(c, req.Email, req.Password, model.RoleViewer)
	if body != nil {
		return c.JSON(status, body)
	}
	return h.issue(c, http.StatusCreated, u)
}

// CreateUser lets an operator add an account with an explicit role.
func (h *AuthHandler) CreateUser(c echo.Context) error {
	var req registerReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorBody(CodeValidation, "invalid body"))
	}
	role := strings.ToUpper(strings.TrimSpace(req.Role))
	if role != model.RoleOperator && role != model.RoleViewer {
		return c.JSON(http.StatusBadRequest, errorBody(CodeValidation, "role must be OPERATOR or VIEWER"))
	}
	u, status, body := h.create(c, req.Email, req.Password, role)
	if body != nil {
		return c.JSON(status, body)
	}
	log.Info().Str("actor", middleware.Actor(c)).Str("email", u.Email).Str("role", u.Role).Msg("user created")
	return c.JSON(http.StatusCreated, userPart{ID: u.ID, Email: u.Email, Role: u.Role})
}

func (h *AuthHandler) create(c echo.Context, email, password, role string) (model.User, int, echo.Map) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || !strings.Contains(email, "@") {
		return model.User{}, http.StatusBadRequest, errorBody(CodeValidation, "valid email required")
	}
	if len(password) < minPasswordLen {
		return model.User{}, http.StatusBadRequest, errorBody(CodeValidation, "password must be at least 8 characters")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	uid, err := h.Users.Create(ctx, email, password, role, h.Cfg.BcryptCost)
	if err != nil {
		if errors.Is(err, repository.ErrEmailExists) {
			return model.User{}, http.StatusConflict, errorBody("email_exists", "email already exists")
		}
		log.Error().Err(err).Msg("create user")
		return model.User{}, http.StatusInternalServerError, errorBody(CodeInternal, "create user failed")
	}
	return model.User{ID: uid, Email: email, Role: role, IsActive: true}, 0, nil
}

// Login verifies credentials and returns a new token pair.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorBody(CodeValidation, "invalid body"))
	}
	email := req.Email
	if email == "" {
		email = req.Username
	}
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, errorBody(CodeValidation, "email/password required"))
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, err := h.Users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return c.JSON(http.StatusUnauthorized, errorBody(CodeUnauthorized, "invalid credentials"))
		}
		log.Error().Err(err).Msg("load user")
		return c.JSON(http.StatusInternalServerError, errorBody(CodeInternal, "query failed"))
	}
	if !u.IsActive || !utils.VerifyPassword(u.PasswordHash, req.Password) {
		return c.JSON(http.StatusUnauthorized, errorBody(CodeUnauthorized, "invalid credentials"))
	}
	return h.issue(c, http.StatusOK, u)
}

// issue signs an access token, stores a fresh refresh token and answers.
func (h *AuthHandler) issue(c echo.Context, status int, u model.User) error {
	access, err := utils.NewAccessToken(h.Cfg.JWTSecret, utils.Identity{UserID: u.ID, Email: u.Email, Role: u.Role}, h.Cfg.AccessTTLMin)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, errorBody(CodeInternal, "issue access failed"))
	}
	refresh, err := utils.NewRefreshToken(h.Cfg.RefreshTTLDays)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, errorBody(CodeInternal, "issue refresh failed"))
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	if err := h.Tokens.StoreRefresh(ctx, u.ID, utils.HashRefreshRaw(refresh.Raw), refresh.Exp); err != nil {
		log.Error().Err(err).Msg("store refresh token")
		return c.JSON(http.StatusInternalServerError, errorBody(CodeInternal, "save refresh failed"))
	}
	return c.JSON(status, newAuthResp(u, access, refresh))
}

func newAuthResp(u model.User, access utils.AccessToken, refresh utils.RefreshToken) authResp {
	return authResp{
		User:        userPart{ID: u.ID, Email: u.Email, Role: u.Role},
		Access:      tokenPart{Token: access.Token, Expires: access.Exp},
		Refresh:     tokenPart{Token: refresh.Raw, Expires: refresh.Exp}, // raw back to client
		AccessToken: access.Token,
		TokenType:   "bearer",
	}
}

// Refresh validates the refresh token by hash and rotates it.
func (h *AuthHandler) Refresh(c echo.Context) error {
	var req refreshReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.RefreshToken) == "" {
		return c.JSON(http.StatusBadRequest, errorBody(CodeValidation, "refresh_token required"))
	}
	hash := utils.HashRefreshRaw(strings.TrimSpace(req.RefreshToken))

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	userID, err := h.Tokens.ValidateRefresh(ctx, hash)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, errorBody(CodeUnauthorized, "invalid refresh"))
	}
	u, err := h.Users.GetByID(ctx, userID)
	if err != nil || !u.IsActive {
		return c.JSON(http.StatusUnauthorized, errorBody(CodeUnauthorized, "invalid refresh"))
	}

	access, err := utils.NewAccessToken(h.Cfg.JWTSecret, utils.Identity{UserID: u.ID, Email: u.Email, Role: u.Role}, h.Cfg.AccessTTLMin)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, errorBody(CodeInternal, "issue access failed"))
	}
	next, err := utils.NewRefreshToken(h.Cfg.RefreshTTLDays)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, errorBody(CodeInternal, "issue refresh failed"))
	}
	if err := h.Tokens.Rotate(ctx, userID, hash, utils.HashRefreshRaw(next.Raw), next.Exp); err != nil {
		if errors.Is(err, repository.ErrRefreshInvalid) {
			return c.JSON(http.StatusUnauthorized, errorBody(CodeUnauthorized, "invalid refresh"))
		}
		log.Error().Err(err).Msg("rotate refresh token")
		return c.JSON(http.StatusInternalServerError, errorBody(CodeInternal, "save refresh failed"))
	}
	return c.JSON(http.StatusOK, newAuthResp(u, access, next))
}

// Logout revokes one refresh token when the body carries it, otherwise every
// refresh token of the bearer.  It is mounted without JWTAuth so a client
// holding only a refresh token can still log out.
func (h *AuthHandler) Logout(c echo.Context) error {
	var req refreshReq
	_ = c.Bind(&req)
	refreshToken := strings.TrimSpace(req.RefreshToken)

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if refreshToken != "" {
		hash := utils.HashRefreshRaw(refreshToken)
		if _, err := h.Tokens.ValidateRefresh(ctx, hash); err != nil {
			return c.JSON(http.StatusUnauthorized, errorBody(CodeUnauthorized, "invalid refresh token"))
		}
		if err := h.Tokens.RevokeByHash(ctx, hash); err != nil {
			return c.JSON(http.StatusInternalServerError, errorBody(CodeInternal, "logout failed"))
		}
		return c.NoContent(http.StatusNoContent)
	}

	raw, ok := strings.CutPrefix(c.Request().Header.Get(echo.HeaderAuthorization), "Bearer ")
	if !ok {
		return c.JSON(http.StatusBadRequest, errorBody(CodeValidation, "provide Authorization header or refresh_token"))
	}
	id, err := utils.ParseAccessToken(h.Cfg.JWTSecret, strings.TrimSpace(raw))
	if err != nil {
		return c.JSON(http.StatusUnauthorized, errorBody(CodeUnauthorized, "invalid token"))
	}
	if err := h.Tokens.RevokeAllForUser(ctx, id.UserID); err != nil {
		return c.JSON(http.StatusInternalServerError, errorBody(CodeInternal, "logout failed"))
	}
	return c.NoContent(http.StatusNoContent)
}

// Me returns the identity of the bearer.
func (h *AuthHandler) Me(c echo.Context) error {
	id, ok := middleware.IdentityFrom(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, errorBody(CodeUnauthorized, "missing identity"))
	}
	return c.JSON(http.StatusOK, meResp{
		userPart: userPart{ID: id.UserID, Email: id.Email, Role: id.Role},
		CanAct:   model.IsOperator(id.Role),
	})
}

type meResp struct {
	userPart
	CanAct bool `json:"can_act"`
}
