package v1

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/shank50/supportbotai/internal/domain"
	"github.com/shank50/supportbotai/internal/repository"
)

// ListSessions lists sessions, newest first.
// GET /v1/admin/sessions?limit=
func (h *Handler) ListSessions(c echo.Context) error {
	limit := 0
	if l := c.QueryParam("limit"); l != "" {
		if val, err := strconv.Atoi(l); err == nil {
			limit = val
		}
	}
	sessions, err := h.service.ListSessions(c.Request().Context(), limit)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"sessions": sessions,
	})
}

// ListEscalations lists escalations across sessions, newest first.
// GET /v1/admin/escalations?resolved=true|false&limit=
func (h *Handler) ListEscalations(c echo.Context) error {
	var filter repository.EscalationFilter
	if r := c.QueryParam("resolved"); r != "" {
		resolved, err := strconv.ParseBool(r)
		if err != nil {
			return writeError(c, fmt.Errorf("resolved must be true or false: %w", domain.ErrInvalidInput))
		}
		filter.Resolved = &resolved
	}
	if l := c.QueryParam("limit"); l != "" {
		if val, err := strconv.Atoi(l); err == nil {
			filter.Limit = val
		}
	}

	escalations, err := h.service.ListEscalations(c.Request().Context(), filter)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"escalations": escalations,
	})
}
