package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/devmadlani/auth-service/internal/middleware"
	"github.com/devmadlani/auth-service/internal/service"
)

// CookieConfig scopes the credential cookies.
type CookieConfig struct {
	Domain     string
	Secure     bool
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

func (cc CookieConfig) cookie(name, value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Domain:   cc.Domain,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   cc.Secure,
		SameSite: http.SameSiteStrictMode,
	}
}

// setSession writes both credential cookies.
func (cc CookieConfig) setSession(c echo.Context, s service.Session) {
	c.SetCookie(cc.cookie(middleware.AccessTokenCookie, s.AccessToken, int(cc.AccessTTL/time.Second)))
	c.SetCookie(cc.cookie(middleware.RefreshTokenCookie, s.RefreshToken, int(cc.RefreshTTL/time.Second)))
}

// clearSession expires both credential cookies.
func (cc CookieConfig) clearSession(c echo.Context) {
	c.SetCookie(cc.cookie(middleware.AccessTokenCookie, "", -1))
	c.SetCookie(cc.cookie(middleware.RefreshTokenCookie, "", -1))
}
