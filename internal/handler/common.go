package handler // handler defines http handlers

import (
	"context" // context bounds storage calls per request
	"strconv" // strconv converts path and query strings to numbers
	"time"    // time sets the per-request storage timeout

	"github.com/labstack/echo/v4" // echo defines request context types

	"github.com/devmadlani/auth-service/internal/apperrors"  // apperrors builds the invalid-param error
	"github.com/devmadlani/auth-service/internal/middleware" // middleware exposes the caller identity
	"github.com/devmadlani/auth-service/internal/repository" // repository defines listing queries
)

// storageTimeout bounds every storage round trip made for one request.
const storageTimeout = 5 * time.Second

// requestContext derives a context from the request that expires after storageTimeout
func requestContext(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), storageTimeout)
}

// parseID reads the numeric path parameter name
func parseID(c echo.Context, name string) (uint64, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64) // ids are positive integers
	if err != nil || id == 0 {
		return 0, apperrors.Invalid(apperrors.Param(name, "Invalid url param"))
	}
	return id, nil
}

// listQuery reads currentPage, perPage, q and role from the query string.
// Malformed numbers fall back to the defaults rather than failing.
func listQuery(c echo.Context) repository.ListQuery {
	q := repository.ListQuery{
		Search: c.QueryParam("q"),
		Role:   c.QueryParam("role"),
	}
	if n, err := strconv.Atoi(c.QueryParam("currentPage")); err == nil {
		q.Page = n
	}
	if n, err := strconv.Atoi(c.QueryParam("perPage")); err == nil {
		q.PerPage = n
	}
	return q.Normalize()
}

// actorID is the id of the authenticated caller, zero when there is none
func actorID(c echo.Context) uint64 {
	if id, ok := middleware.IdentityFromContext(c.Request().Context()); ok {
		return id.UserID
	}
	return 0
}

// bind decodes the JSON body into dst, mapping decode failures to a validation error
func bind(c echo.Context, dst any) error {
	if err := c.Bind(dst); err != nil {
		return &apperrors.Error{Code: apperrors.EInvalid, Msg: "Invalid request body", Err: err}
	}
	return nil
}
