// Package http provides the HTTP server implementation.
package http

import (
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/shank50/supportbotai/internal/service"
	ratelimit "github.com/shank50/supportbotai/internal/transport/http/middleware"
	v1 "github.com/shank50/supportbotai/internal/transport/http/v1"
	"github.com/shank50/supportbotai/internal/transport/ws"
)

// NewServer creates and configures the public HTTP server. limiter may be
// nil to disable rate limiting of turn submission.
func NewServer(svc *service.Service, stream *ws.Server, limiter *ratelimit.RateLimiter) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	// Client IPs come from the socket; forwarding headers are not trusted.
	e.IPExtractor = echo.ExtractIPDirect()

	// Middleware
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	var chatMiddleware []echo.MiddlewareFunc
	if limiter != nil {
		chatMiddleware = append(chatMiddleware, limiter.Middleware())
	}

	// Register Routes
	v1.NewHandler(svc).RegisterRoutes(e, chatMiddleware...)
	if stream != nil {
		e.GET("/v1/sessions/:session_id/stream", stream.HandleStream)
	}

	return e
}
