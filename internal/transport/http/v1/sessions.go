package v1

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/shank50/supportbotai/internal/domain"
)

// CreateSession starts a conversation.
// POST /v1/sessions
func (h *Handler) CreateSession(c echo.Context) error {
	session, err := h.service.CreateSession(c.Request().Context())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, domain.CreateSessionResponse{
		SessionID: session.SessionID,
		Session:   session,
	})
}

// GetSession returns the conversation snapshot.
// GET /v1/sessions/:session_id
func (h *Handler) GetSession(c echo.Context) error {
	snapshot, err := h.service.GetSnapshot(c.Request().Context(), c.Param("session_id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, snapshot)
}

// GetSessionMessages retrieves messages for a session.
// GET /v1/sessions/:session_id/messages
func (h *Handler) GetSessionMessages(c echo.Context) error {
	messages, err := h.service.GetMessages(c.Request().Context(), c.Param("session_id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"messages": messages,
	})
}

// GetSessionSummary asks the model for a short summary.
// GET /v1/sessions/:session_id/summary
func (h *Handler) GetSessionSummary(c echo.Context) error {
	summary, err := h.service.Summarize(c.Request().Context(), c.Param("session_id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, domain.SummaryResponse{Summary: summary})
}

// GetSessionEvents retrieves the turn trace of a session.
// GET /v1/sessions/:session_id/events?after_ts=&types=a,b&limit=
func (h *Handler) GetSessionEvents(c echo.Context) error {
	limit := 100
	if l := c.QueryParam("limit"); l != "" {
		if val, err := strconv.Atoi(l); err == nil && val > 0 {
			limit = val
		}
	}
	afterTs := int64(0)
	if t := c.QueryParam("after_ts"); t != "" {
		if val, err := strconv.ParseInt(t, 10, 64); err == nil {
			afterTs = val
		}
	}
	var types []string
	for _, t := range strings.Split(c.QueryParam("types"), ",") {
		if t = strings.TrimSpace(t); t != "" {
			types = append(types, t)
		}
	}

	events, err := h.service.GetSessionEvents(c.Request().Context(), c.Param("session_id"), afterTs, types, limit)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"events": events,
	})
}
