// Package v1 provides the version 1 HTTP handlers.
package v1

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/shank50/supportbotai/internal/domain"
	"github.com/shank50/supportbotai/internal/service"
)

// Version is reported by the health endpoint.
var Version = "0.1.0"

// Handler handles HTTP requests.
type Handler struct {
	service *service.Service
}

// NewHandler creates a new handler.
func NewHandler(service *service.Service) *Handler {
	return &Handler{
		service: service,
	}
}

// RegisterRoutes registers the public routes. chatMiddleware wraps turn
// submission only.
func (h *Handler) RegisterRoutes(e *echo.Echo, chatMiddleware ...echo.MiddlewareFunc) {
	e.POST("/v1/sessions", h.CreateSession)
	e.GET("/v1/sessions/:session_id", h.GetSession)
	e.GET("/v1/sessions/:session_id/messages", h.GetSessionMessages)
	e.GET("/v1/sessions/:session_id/summary", h.GetSessionSummary)
	e.GET("/v1/sessions/:session_id/events", h.GetSessionEvents)

	e.POST("/v1/chat", h.Chat, chatMiddleware...)

	// Analytics
	e.GET("/v1/admin/sessions", h.ListSessions)
	e.GET("/v1/admin/escalations", h.ListEscalations)

	e.GET("/health", h.Health)
}

// Health returns health status.
func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status":  "healthy",
		"version": Version,
	})
}

// errorStatus maps service errors onto HTTP status codes.
func errorStatus(err error) int {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidInput):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func writeError(c echo.Context, err error) error {
	status := errorStatus(err)
	if status == http.StatusInternalServerError {
		c.Logger().Errorf("request failed: %v", err)
	}
	return c.JSON(status, map[string]string{"error": err.Error()})
}
