package ginserver

import (
	"errors"
	"log/slog"
	"net/http"

	gin "github.com/gin-gonic/gin"

	domainauth "wanderlust/internal/domain/auth"
	"wanderlust/internal/domain/shared/failure"
)

type errorResponse struct {
	Error  string              `json:"error"`
	Kind   string              `json:"kind"`
	Fields []failure.Violation `json:"fields,omitempty"`
}

func statusFor(err error) int {
	if errors.Is(err, domainauth.ErrInvalidCredentials) {
		return http.StatusUnauthorized
	}
	switch failure.KindOf(err) {
	case failure.KindValidation:
		return http.StatusBadRequest
	case failure.KindNotFound:
		return http.StatusNotFound
	case failure.KindForbidden:
		return http.StatusForbidden
	case failure.KindConflict, failure.KindUnavailable, failure.KindInvalidState, failure.KindDuplicate:
		return http.StatusConflict
	case failure.KindStorageUnavailable:
		return http.StatusServiceUnavailable
	case failure.KindUnsupported:
		return http.StatusNotImplemented
	default:
		return http.StatusInternalServerError
	}
}

// respondError renders err with the status of its failure kind. Unknown errors
// are logged and hidden behind a generic message.
func respondError(c *gin.Context, logger *slog.Logger, err error) {
	status := statusFor(err)
	body := errorResponse{Error: err.Error(), Kind: string(failure.KindOf(err))}
	if verr := failure.AsValidation(err); verr != nil {
		body.Fields = verr.Violations
	}
	if status >= http.StatusInternalServerError {
		if logger == nil {
			logger = slog.Default()
		}
		logger.ErrorContext(c.Request.Context(), "request failed", "path", c.FullPath(), "status", status, "error", err)
		if status == http.StatusInternalServerError {
			body.Error = "internal error"
		}
	}
	c.AbortWithStatusJSON(status, body)
}

func badRequest(c *gin.Context, field, reason string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, errorResponse{
		Error:  "invalid request",
		Kind:   string(failure.KindValidation),
		Fields: []failure.Violation{{Field: field, Reason: reason}},
	})
}

func unavailable(c *gin.Context, what string) {
	c.AbortWithStatusJSON(http.StatusServiceUnavailable, errorResponse{Error: what + " unavailable", Kind: string(failure.KindStorageUnavailable)})
}

// bindJSON decodes the body; an empty body is accepted when optional is set.
func bindJSON(c *gin.Context, out any, optional bool) bool {
	if optional && c.Request.ContentLength == 0 {
		return true
	}
	if err := c.ShouldBindJSON(out); err != nil {
		badRequest(c, "body", err.Error())
		return false
	}
	return true
}
