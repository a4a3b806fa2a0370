package middleware

import (
    "context"

    "github.com/labstack/echo/v4"

    "github.com/devmadlani/auth-service/internal/apperrors"
    "github.com/devmadlani/auth-service/internal/token"
)

// AccessTokenCookie and RefreshTokenCookie name the credential cookies.
const (
    AccessTokenCookie  = "accessToken"
    RefreshTokenCookie = "refreshToken"
)

// TokenVerifier checks a raw access token. *token.Verifier implements it.
type TokenVerifier interface {
    Verify(ctx context.Context, raw string) (token.Claims, error)
}

var errMissingToken = apperrors.Unauthorized("Access token is missing")

// Authenticate returns an Echo middleware that reads the access token from
// the accessToken cookie, verifies it and attaches the resulting Identity to
// both the echo context and the request context. The Authorization header
// is never consulted. Any failure ends the request with 401 before a
// downstream role check can run.
func Authenticate(v TokenVerifier) echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            cookie, err := c.Cookie(AccessTokenCookie)
            if err != nil || cookie.Value == "" {
                return errMissingToken
            }

            req := c.Request()
            claims, err := v.Verify(req.Context(), cookie.Value)
            if err != nil {
                return err
            }
            id, err := identityFromClaims(claims)
            if err != nil {
                return &apperrors.Error{Code: apperrors.EUnauthorized, Msg: "Invalid or expired access token", Err: err}
            }

            c.Set(identityKey, id)
            c.SetRequest(req.WithContext(NewContextWithIdentity(req.Context(), id)))
            return next(c)
        }
    }
}
