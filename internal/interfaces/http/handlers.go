package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/garyjia/notion-invoice/internal/application/service"
	"github.com/garyjia/notion-invoice/internal/domain/apperr"
)

// Response represents a standard JSON response
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
	Field   string      `json:"field,omitempty"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status      string            `json:"status"`
	Timestamp   string            `json:"timestamp"`
	Version     string            `json:"version"`
	Environment string            `json:"environment"`
	Checks      map[string]string `json:"checks,omitempty"`
}

const msgInvalidBody = "요청 본문이 올바르지 않습니다."

// HealthCheck handles GET /health
func (s *Server) HealthCheck(c *gin.Context) {
	healthy := true
	var checks map[string]string
	if s.health != nil {
		healthy, checks = s.health(c.Request.Context())
	}

	response := HealthResponse{
		Status:      "healthy",
		Timestamp:   time.Now().UTC().Format(time.RFC3339),
		Version:     s.config.Version,
		Environment: s.config.Environment,
		Checks:      checks,
	}
	status := http.StatusOK
	if !healthy {
		response.Status = "unhealthy"
		status = http.StatusServiceUnavailable
	}

	c.JSON(status, Response{
		Success: healthy,
		Data:    response,
	})
}

// statusFor maps an error onto the HTTP status returned to the caller
func statusFor(err error) int {
	if errors.Is(err, service.ErrShareExpired) {
		return http.StatusGone
	}

	switch apperr.KindOf(err) {
	case apperr.KindValidation:
		return http.StatusBadRequest
	case apperr.KindAuth:
		return http.StatusUnauthorized
	case apperr.KindForbidden:
		return http.StatusForbidden
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindRateLimited:
		return http.StatusTooManyRequests
	case apperr.KindNetwork:
		return http.StatusBadGateway
	case apperr.KindTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// errorResponse builds the envelope for err. Unclassified errors never leak
// their text.
func errorResponse(err error) Response {
	resp := Response{Success: false}

	var appErr *apperr.Error
	switch {
	case errors.As(err, &appErr):
		resp.Error = appErr.Message
		resp.Field = appErr.Field
	case errors.Is(err, service.ErrShareExpired):
		resp.Error = service.ErrShareExpired.Error()
	default:
		resp.Error = apperr.UserMessage(apperr.KindUnknown)
	}
	return resp
}

// writeError sends the classified error response and logs server-side failures
func writeError(c *gin.Context, logger Logger, msg string, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		logger.Error(msg, "path", c.FullPath(), "error", detail(err))
	} else {
		logger.Warn(msg, "path", c.FullPath(), "status", status, "error", err.Error())
	}
	c.JSON(status, errorResponse(err))
}

// abortWithError stops the handler chain with the classified error response
func abortWithError(c *gin.Context, err error) {
	c.AbortWithStatusJSON(statusFor(err), errorResponse(err))
}

func detail(err error) string {
	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		return appErr.Detail()
	}
	return err.Error()
}

func badRequest(c *gin.Context) {
	c.JSON(http.StatusBadRequest, Response{
		Success: false,
		Error:   msgInvalidBody,
	})
}
