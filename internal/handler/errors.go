package handler

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/devmadlani/auth-service/internal/apperrors"
	"github.com/devmadlani/auth-service/internal/logger"
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Errors []apperrors.FieldError `json:"errors"`
}

// ErrorHandler renders every error returned by a handler or middleware as
// an ErrorResponse. Server errors are logged at error level, everything
// else at debug.
func ErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	status, body := renderError(err)

	log := logger.FromContext(c.Request().Context())
	if status >= http.StatusInternalServerError {
		log.Error("request failed", zap.Int("status", status), zap.Error(err))
	} else {
		log.Debug("request rejected", zap.Int("status", status), zap.Error(err))
	}

	if c.Request().Method == http.MethodHead {
		err = c.NoContent(status)
	} else {
		err = c.JSON(status, body)
	}
	if err != nil {
		log.Error("failed to write error response", zap.Error(err))
	}
}

func renderError(err error) (int, ErrorResponse) {
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code, ErrorResponse{Errors: []apperrors.FieldError{{
			Type: typeForStatus(he.Code),
			Msg:  httpErrorMessage(he),
		}}}
	}

	code := apperrors.ErrorCode(err)
	status := apperrors.StatusCode(code)
	if fields := apperrors.ErrorFields(err); len(fields) > 0 {
		return status, ErrorResponse{Errors: fields}
	}
	return status, ErrorResponse{Errors: []apperrors.FieldError{{
		Type: apperrors.TypeName(code),
		Msg:  apperrors.ErrorMessage(err),
	}}}
}

// typeForStatus names framework errors (unknown route, wrong method,
// oversized body) in the same vocabulary as application errors.
func typeForStatus(status int) string {
	switch status {
	case http.StatusBadRequest, http.StatusUnprocessableEntity, http.StatusRequestEntityTooLarge, http.StatusUnsupportedMediaType:
		return apperrors.TypeName(apperrors.EInvalid)
	case http.StatusUnauthorized:
		return apperrors.TypeName(apperrors.EUnauthorized)
	case http.StatusForbidden:
		return apperrors.TypeName(apperrors.EForbidden)
	case http.StatusNotFound, http.StatusMethodNotAllowed:
		return apperrors.TypeName(apperrors.ENotFound)
	case http.StatusTooManyRequests:
		return apperrors.TypeName(apperrors.ETooManyRequests)
	}
	return apperrors.TypeName(apperrors.EInternal)
}

func httpErrorMessage(he *echo.HTTPError) string {
	if he.Code >= http.StatusInternalServerError {
		return apperrors.ErrorMessage(nil)
	}
	if s, ok := he.Message.(string); ok {
		return s
	}
	return fmt.Sprint(he.Message)
}
