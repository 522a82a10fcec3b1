package v1

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/shank50/supportbotai/internal/domain"
)

// Chat submits one user message and returns the completed turn.
// POST /v1/chat
func (h *Handler) Chat(c echo.Context) error {
	var req domain.ChatRequest
	if err := c.Bind(&req); err != nil {
		return writeError(c, fmt.Errorf("invalid request body: %w", domain.ErrInvalidInput))
	}

	result, err := h.service.ProcessTurn(c.Request().Context(), req.SessionID, req.Message)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, result)
}
