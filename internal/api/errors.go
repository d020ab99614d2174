package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"romshelf/internal/logging"
	"romshelf/internal/services"
)

// statusFor maps a service error to its HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, services.ErrNotFound), errors.Is(err, services.ErrSourceFileMissing):
		return http.StatusNotFound
	case errors.Is(err, services.ErrAlreadyExists):
		return http.StatusConflict
	case errors.Is(err, services.ErrInvalidRequest):
		return http.StatusBadRequest
	case errors.Is(err, services.ErrUnauthorized):
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// errorCode is services.Code with source misses reported as not_found.
func errorCode(err error) string {
	if errors.Is(err, services.ErrSourceFileMissing) {
		return "not_found"
	}
	return services.Code(err)
}

func writeError(c *gin.Context, err error) {
	status := statusFor(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		logging.WithContext(c.Request.Context(), loggerFrom(c)).Error("request failed",
			logging.String("path", c.FullPath()),
			logging.Error(err),
		)
		message = "internal server error"
	}
	c.AbortWithStatusJSON(status, ErrorEnvelope{Error: APIError{Message: message, Code: errorCode(err)}})
}

func badRequest(c *gin.Context, message string) {
	writeError(c, services.Wrap(services.ErrInvalidRequest, "api", c.FullPath(), message, nil))
}
