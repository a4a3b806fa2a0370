package handler

import (
	"net/http" // HTTP status codes and primitives

	"github.com/labstack/echo/v4" // Echo framework for HTTP routing

	"github.com/devmadlani/auth-service/internal/apperrors"  // error taxonomy
	"github.com/devmadlani/auth-service/internal/middleware" // caller identity and cookie names
	"github.com/devmadlani/auth-service/internal/service"    // identity flows
)

// AuthHandler bundles dependencies for auth endpoints.
type AuthHandler struct {
	Auth    *service.AuthService
	Cookies CookieConfig
}

func NewAuthHandler(auth *service.AuthService, cookies CookieConfig) *AuthHandler {
	return &AuthHandler{Auth: auth, Cookies: cookies}
}

// ----- DTOs -----

type idResp struct {
	ID uint64 `json:"id"`
}

// Register: create a customer and start its session. Any role in the body
// is ignored.
func (h *AuthHandler) Register(c echo.Context) error {
	var req service.RegisterInput
	if err := bind(c, &req); err != nil {
		return err
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	sess, err := h.Auth.Register(ctx, req)
	if err != nil {
		return err
	}
	h.Cookies.setSession(c, sess)
	return c.JSON(http.StatusCreated, idResp{ID: sess.UserID})
}

// Login: verify credentials and start a new session.
func (h *AuthHandler) Login(c echo.Context) error {
	var req service.LoginInput
	if err := bind(c, &req); err != nil {
		return err
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	sess, err := h.Auth.Login(ctx, req)
	if err != nil {
		return err
	}
	h.Cookies.setSession(c, sess)
	return c.JSON(http.StatusOK, idResp{ID: sess.UserID})
}

// Self: the authenticated user, without its password hash.
func (h *AuthHandler) Self(c echo.Context) error {
	id, ok := middleware.IdentityFrom(c)
	if !ok {
		return apperrors.Unauthorized("Access token is missing")
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	u, err := h.Auth.Self(ctx, id.UserID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, u)
}

// Refresh: rotate the refresh token cookie and issue a new pair.
func (h *AuthHandler) Refresh(c echo.Context) error {
	raw := ""
	if ck, err := c.Cookie(middleware.RefreshTokenCookie); err == nil {
		raw = ck.Value
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	sess, err := h.Auth.Refresh(ctx, raw)
	if err != nil {
		return err
	}
	h.Cookies.setSession(c, sess)
	return c.JSON(http.StatusOK, idResp{ID: sess.UserID})
}

// Logout: revoke the presented refresh token (protected) and clear both
// cookies.
func (h *AuthHandler) Logout(c echo.Context) error {
	id, ok := middleware.IdentityFrom(c)
	if !ok {
		return apperrors.Unauthorized("Access token is missing")
	}
	raw := ""
	if ck, err := c.Cookie(middleware.RefreshTokenCookie); err == nil {
		raw = ck.Value
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	if err := h.Auth.Logout(ctx, id.UserID, raw); err != nil {
		return err
	}
	h.Cookies.clearSession(c)
	return c.JSON(http.StatusOK, struct{}{})
}
