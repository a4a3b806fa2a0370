package middleware // middleware provides shared request processing for handlers

import (
    "github.com/labstack/echo/v4" // echo provides middleware chaining and context

    "github.com/devmadlani/auth-service/internal/apperrors"
)

var errForbidden = apperrors.Forbidden("You don't have enough permissions")

// CanAccess returns a middleware function that lets the request through
// only when the authenticated role is one of roles.  Comparison is
// case-sensitive.  A request without an identity or without a role is
// rejected with 403, so CanAccess must always be mounted after
// Authenticate, which answers unauthenticated requests with 401 first.
func CanAccess(roles ...string) echo.MiddlewareFunc {
    // Build a set of allowed roles for constant-time lookups.
    allowed := make(map[string]bool, len(roles))
    for _, r := range roles {
        allowed[r] = true
    }
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            id, ok := IdentityFrom(c)
            if !ok || id.Role == "" || !allowed[id.Role] {
                return errForbidden
            }
            return next(c)
        }
    }
}
