package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/devmadlani/auth-service/internal/apperrors"
	"github.com/devmadlani/auth-service/internal/keys"
)

// JWKS serves the public verification keys of p. Clients may cache the
// response for an hour.
func JWKS(p keys.Provider) echo.HandlerFunc {
	return func(c echo.Context) error {
		set, err := keys.JWKS(c.Request().Context(), p)
		if err != nil {
			return apperrors.Internal("handler.JWKS", "Failed to load verification keys", err)
		}
		c.Response().Header().Set("Cache-Control", "public, max-age=3600")
		return c.JSON(http.StatusOK, set)
	}
}
