package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/shank50/supportbotai/internal/adapter/llm"
	"github.com/shank50/supportbotai/internal/config"
	"github.com/shank50/supportbotai/internal/faq"
	"github.com/shank50/supportbotai/internal/hub"
	"github.com/shank50/supportbotai/internal/observability"
	"github.com/shank50/supportbotai/internal/repository"
	"github.com/shank50/supportbotai/internal/responder"
	"github.com/shank50/supportbotai/internal/service"
	server "github.com/shank50/supportbotai/internal/transport/http"
	ratelimit "github.com/shank50/supportbotai/internal/transport/http/middleware"
	"github.com/shank50/supportbotai/internal/transport/ws"
	"github.com/shank50/supportbotai/policy"
)

func newServeCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, cfg)
		},
	}
}

func runServe(ctx context.Context, cfg *config.Config) error {
	logger := observability.NewLogger(os.Stderr, cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)

	logger.Info("starting supportbot",
		"version", Version,
		"http_port", cfg.HTTPPort,
		"database", cfg.DatabaseURL,
		"mode", cfg.Mode,
		"ai_model", cfg.AIModel)

	// Initialize store
	db, err := repository.NewSQLiteStore(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to initialize store: %w", err)
	}
	defer db.Close()

	corpus, err := faq.Load(cfg.FAQPath)
	if err != nil {
		return fmt.Errorf("failed to load faq corpus: %w", err)
	}
	logger.Info("faq corpus loaded", "faqs", corpus.Len())

	llmClient := llm.NewClient(cfg.Mode, llm.OpenAIConfig{
		BaseURL: cfg.AIBaseURL,
		APIKey:  cfg.AIAPIKey,
		Model:   cfg.AIModel,
	})
	resp := responder.New(llmClient, corpus, responder.Options{
		HistoryWindow: cfg.HistoryWindow,
		Timeout:       cfg.AITimeout,
		Logger:        logger,
	})

	policyEngine, err := policy.NewEngine(ctx, "", logger)
	if err != nil {
		return fmt.Errorf("failed to initialize policy engine: %w", err)
	}

	hubCtx, stopHub := context.WithCancel(context.Background())
	defer stopHub()
	h := hub.New(logger)
	go h.Run(hubCtx)

	svc := service.New(db, resp, policyEngine, h, service.Options{
		MaxMessageLength: cfg.MaxMessageLength,
		Logger:           logger,
	})

	limiter := ratelimit.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
	go pruneLimiter(hubCtx, limiter)

	stream := ws.NewServer(svc, h, ws.Options{}, logger)
	e := server.NewServer(svc, stream, limiter)

	errCh := make(chan error, 1)
	go func() {
		addr := fmt.Sprintf(":%d", cfg.HTTPPort)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()
	logger.Info("API started", "port", cfg.HTTPPort)

	select {
	case <-ctx.Done():
	case err := <-errCh:
		return fmt.Errorf("failed to start server: %w", err)
	}

	logger.Info("shutting down supportbot")

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Warn("failed to shutdown server gracefully", "error", err)
	}
	stopHub()

	logger.Info("supportbot stopped")
	return nil
}

func pruneLimiter(ctx context.Context, limiter *ratelimit.RateLimiter) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			limiter.Prune(10 * time.Minute)
		}
	}
}
