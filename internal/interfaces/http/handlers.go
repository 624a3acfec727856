package http

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/sefapa/sgpd/internal/application/service"
	domainwf "github.com/sefapa/sgpd/internal/domain/workflow"
)

const (
	// ActorHeader identifies the calling profile. Authentication happens upstream.
	ActorHeader = "X-Profile-ID"

	actorKey = "actor_id"
	version  = "1.0.0"
)

// Handlers contains all HTTP request handlers
type Handlers struct {
	services       Services
	maxUploadBytes int64
	logger         Logger
}

// NewHandlers creates a new Handlers instance
func NewHandlers(services Services, maxUploadBytes int64, logger Logger) *Handlers {
	return &Handlers{
		services:       services,
		maxUploadBytes: maxUploadBytes,
		logger:         logger,
	}
}

// Response represents a standard JSON response
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Version   string `json:"version"`
}

// HealthCheck handles GET /health
func (h *Handlers) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, Response{
		Success: true,
		Data: HealthResponse{
			Status:    "healthy",
			Timestamp: time.Now().UTC().Format(time.RFC3339),
			Version:   version,
		},
	})
}

func requireActor() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor := strings.TrimSpace(c.GetHeader(ActorHeader))
		if actor == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, Response{
				Success: false,
				Error:   ActorHeader + " header is required",
			})
			return
		}
		c.Set(actorKey, actor)
		c.Next()
	}
}

func actorID(c *gin.Context) string {
	return c.GetString(actorKey)
}

func ok(c *gin.Context, status int, data interface{}) {
	c.JSON(status, Response{Success: true, Data: data})
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, Response{Success: false, Error: msg})
}

// fail writes err with the status of its kind. Unclassified errors are logged and hidden.
func (h *Handlers) fail(c *gin.Context, op string, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		h.logger.Error("Request failed", "op", op, "path", c.Request.URL.Path, "error", err)
		msg = op + " failed"
	}
	c.JSON(status, Response{Success: false, Error: msg})
}

// statusFor maps the domain error kinds onto HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, domainwf.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domainwf.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, domainwf.ErrAuthorization):
		return http.StatusForbidden
	case errors.Is(err, domainwf.ErrConcurrentModification):
		return http.StatusConflict
	case errors.Is(err, domainwf.ErrInvalidTransition),
		errors.Is(err, domainwf.ErrGuardFailed),
		errors.Is(err, domainwf.ErrInvalidState),
		errors.Is(err, domainwf.ErrIncompleteSubmission):
		return http.StatusUnprocessableEntity
	case errors.Is(err, service.ErrConferenceUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
