package util

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/kwenta-ph/kwenta/backend/pkg/ai"
	"github.com/kwenta-ph/kwenta/backend/pkg/common"
	"github.com/kwenta-ph/kwenta/backend/pkg/logger"
)

const (
	CodeBadRequest         = "BAD_REQUEST"
	CodeUnauthorized       = "UNAUTHORIZED"
	CodeNotFound           = "NOT_FOUND"
	CodeNoPath             = "NO_PATH"
	CodeRateLimited        = "RATE_LIMITED"
	CodeStoreUnavailable   = "STORE_UNAVAILABLE"
	CodeServiceUnavailable = "SERVICE_UNAVAILABLE"
	CodeInternal           = "INTERNAL"
)

type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ErrorBody struct {
	Error ErrorDetail `json:"error"`
}

// Error writes the error body with status.
func Error(c echo.Context, status int, code, message string) error {
	return c.JSON(status, ErrorBody{Error: ErrorDetail{Code: code, Message: message}})
}

// FromError maps err onto the error taxonomy. Internal errors are logged
// and answered with a generic message.
func FromError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, common.ErrNotFound):
		return Error(c, http.StatusNotFound, CodeNotFound, err.Error())
	case errors.Is(err, common.ErrMalformedInput):
		return Error(c, http.StatusBadRequest, CodeBadRequest, err.Error())
	case errors.Is(err, common.ErrStoreUnavailable):
		logger.Warn("[Server] Graph store unavailable", "path", c.Path(), "err", err)
		return Error(c, http.StatusServiceUnavailable, CodeStoreUnavailable, "The graph store is temporarily unavailable.")
	case errors.Is(err, ai.ErrNotConfigured):
		return Error(c, http.StatusServiceUnavailable, CodeServiceUnavailable, "Chat is not configured on this server.")
	case errors.Is(err, context.DeadlineExceeded):
		return Error(c, http.StatusServiceUnavailable, CodeStoreUnavailable, "The query timed out.")
	}
	logger.Error("[Server] Request failed", "path", c.Path(), "err", err)
	return Error(c, http.StatusInternalServerError, CodeInternal, "An unexpected error occurred. Please try again later.")
}
