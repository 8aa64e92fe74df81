package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/sparknexora/backoffice/internal/application/auth"
	"github.com/sparknexora/backoffice/internal/application/console"
	"github.com/sparknexora/backoffice/internal/domain/shared"
	"github.com/sparknexora/backoffice/internal/infrastructure/apiclient"
	"github.com/sparknexora/backoffice/internal/infrastructure/validation"
	"github.com/sparknexora/backoffice/internal/interfaces/http/dto"
	"github.com/sparknexora/backoffice/internal/interfaces/http/middleware"
)

// LoginPath is where a signed-out operator is sent
const LoginPath = "/login"

// BaseHandler provides common handler utilities
type BaseHandler struct{}

// getRequestID extracts the request ID from the context
func getRequestID(c *gin.Context) string {
	if id := c.GetString(middleware.RequestIDKey); id != "" {
		return id
	}
	return c.GetHeader(middleware.RequestIDHeader)
}

// Success sends a success response
func (h *BaseHandler) Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, dto.NewSuccessResponse(data))
}

// SuccessWithMeta sends a success response with pagination meta
func (h *BaseHandler) SuccessWithMeta(c *gin.Context, data any, total, page, totalPages int) {
	c.JSON(http.StatusOK, dto.NewSuccessResponseWithMeta(data, total, page, totalPages))
}

// Created sends a 201 created response
func (h *BaseHandler) Created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, dto.NewSuccessResponse(data))
}

// NoContent sends a 204 no content response
func (h *BaseHandler) NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

// Error sends an error response with the appropriate status code
func (h *BaseHandler) Error(c *gin.Context, statusCode int, code, message string) {
	requestID := getRequestID(c)
	c.JSON(statusCode, dto.NewErrorResponseWithRequestID(code, message, requestID))
}

// ErrorWithCode sends an error response, deriving status code from error code
func (h *BaseHandler) ErrorWithCode(c *gin.Context, code, message string) {
	h.Error(c, dto.GetHTTPStatus(code), code, message)
}

// BadRequest sends a 400 bad request response
func (h *BaseHandler) BadRequest(c *gin.Context, message string) {
	h.Error(c, http.StatusBadRequest, dto.ErrCodeBadRequest, message)
}

// InvalidJSON sends a 400 response for a body that does not parse
func (h *BaseHandler) InvalidJSON(c *gin.Context) {
	h.Error(c, http.StatusBadRequest, dto.ErrCodeInvalidJSON, "Request body is not valid JSON")
}

// NotFound sends a 404 not found response
func (h *BaseHandler) NotFound(c *gin.Context, message string) {
	h.Error(c, http.StatusNotFound, dto.ErrCodeNotFound, message)
}

// Unauthorized sends a 401 response pointing the client at the login page
func (h *BaseHandler) Unauthorized(c *gin.Context, code, message string) {
	resp := dto.NewErrorResponseWithRequestID(code, message, getRequestID(c))
	resp.Error.Redirect = LoginPath
	c.JSON(http.StatusUnauthorized, resp)
}

// InternalError sends a 500 internal server error response
func (h *BaseHandler) InternalError(c *gin.Context, message string) {
	h.Error(c, http.StatusInternalServerError, dto.ErrCodeInternal, message)
}

// TooManyRequests sends a 429 too many requests response
func (h *BaseHandler) TooManyRequests(c *gin.Context, message string) {
	h.Error(c, http.StatusTooManyRequests, dto.ErrCodeRateLimited, message)
}

// ValidationError sends a 400 validation error response with details
func (h *BaseHandler) ValidationError(c *gin.Context, details []dto.ValidationDetail) {
	c.JSON(http.StatusBadRequest, dto.NewValidationErrorResponse(
		"Please correct the highlighted fields",
		getRequestID(c),
		details,
	))
}

// HandleDomainError converts domain errors to HTTP responses
func (h *BaseHandler) HandleDomainError(c *gin.Context, err error) {
	var domainErr *shared.DomainError
	if errors.As(err, &domainErr) {
		code := dto.NormalizeErrorCode(domainErr.Code)
		if code == dto.ErrCodeUnauthorized {
			h.Unauthorized(c, code, domainErr.Message)
			return
		}
		h.ErrorWithCode(c, code, domainErr.Message)
		return
	}

	// Unknown error type - return as internal error
	h.InternalError(c, "An unexpected error occurred")
}

// HandleError is a generic error handler covering form, login, backend and domain errors
func (h *BaseHandler) HandleError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)

	var (
		verr     *validation.Error
		loginErr *auth.LoginError
		rejected *apiclient.ServerRejectedError
		domain   *shared.DomainError
	)
	switch {
	case errors.As(err, &verr):
		details := make([]dto.ValidationDetail, 0, len(verr.Fields))
		for _, f := range verr.Fields {
			details = append(details, dto.ValidationDetail{Field: f.Field, Message: f.Message})
		}
		h.ValidationError(c, details)
	case errors.As(err, &loginErr):
		h.Error(c, http.StatusUnauthorized, dto.ErrCodeLoginFailed, loginErr.Message)
	case errors.Is(err, apiclient.ErrUnauthorized):
		h.Unauthorized(c, dto.ErrCodeSessionExpired, "Your session has expired. Please log in again.")
	case errors.As(err, &rejected):
		h.backendRejected(c, rejected)
	case errors.Is(err, apiclient.ErrNetworkUnreachable):
		h.ErrorWithCode(c, dto.ErrCodeBackendUnavailable, "Unable to reach the server. Please try again.")
	case errors.Is(err, apiclient.ErrMalformedResponse):
		h.ErrorWithCode(c, dto.ErrCodeBackendMalformed, "Unexpected response from server")
	case errors.As(err, &domain):
		h.HandleDomainError(c, err)
	case errors.Is(err, context.DeadlineExceeded):
		h.ErrorWithCode(c, dto.ErrCodeBackendUnavailable, "The server took too long to respond")
	default:
		h.InternalError(c, "An unexpected error occurred")
	}
}

// backendRejected passes 4xx answers through and reports 5xx as a bad gateway
func (h *BaseHandler) backendRejected(c *gin.Context, rejected *apiclient.ServerRejectedError) {
	if rejected.NotFound() {
		h.NotFound(c, rejected.UserMessage("Not found"))
		return
	}
	status := http.StatusBadGateway
	if rejected.Status >= 400 && rejected.Status < 500 {
		status = rejected.Status
	}
	h.Error(c, status, dto.ErrCodeBackendRejected, rejected.UserMessage("The server could not complete the request"))
}

// isAborted reports a cancelled destructive action, which is not a failure
func isAborted(err error) bool {
	return errors.Is(err, console.ErrConfirmationAborted)
}
