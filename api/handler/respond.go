package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/drover/models"
)

// asServiceError coerces any error into a ServiceError so the API edge can
// map it onto a status code.
func asServiceError(err error) *models.ServiceError {
	if svcErr, ok := err.(*models.ServiceError); ok {
		return svcErr
	}
	return models.NewServiceError(models.ErrCodeInternal, err.Error(), err)
}

// statusFor translates error codes to HTTP status codes.
func statusFor(e *models.ServiceError) int {
	switch e.Code {
	case models.ErrCodeInvalidInput:
		return http.StatusBadRequest
	case models.ErrCodeNotFound:
		return http.StatusNotFound
	case models.ErrCodeNavigation:
		return http.StatusBadGateway
	case models.ErrCodePoolTimeout:
		return http.StatusServiceUnavailable
	case models.ErrCodeBrowserUnavailable:
		return http.StatusServiceUnavailable
	case models.ErrCodeRateLimited:
		return http.StatusTooManyRequests
	case models.ErrCodeUnauthorized:
		return http.StatusUnauthorized
	case models.ErrCodeCanceled:
		return http.StatusRequestTimeout
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes a structured error envelope.
func respondError(c *gin.Context, err error) {
	svcErr := asServiceError(err)
	c.JSON(statusFor(svcErr), gin.H{
		"success": false,
		"error":   svcErr.ToDetail(),
	})
}
