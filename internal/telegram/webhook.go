package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-telegram/bot"

	"github.com/RisAbd/sayfasayicibot/internal/database"
)

// WebhookServer serves the inbound webhook endpoint and the health check.
type WebhookServer struct {
	httpServer *http.Server
	logger     *slog.Logger
}

// NewWebhookServer builds the chi-routed HTTP server. Telegram posts
// updates to /webhook/{token}; a token segment that does not match the
// configured bot token is rejected with 404.
func NewWebhookServer(listenAddr, token string, b *bot.Bot, store database.Store, logger *slog.Logger) *WebhookServer {
	if logger == nil {
		logger = slog.Default()
	}
	log := logger.With("component", "webhook_server")

	webhook := b.WebhookHandler()

	r := chi.NewRouter()
	r.Use(chimw.Recoverer)

	r.Post("/webhook/{token}", func(w http.ResponseWriter, req *http.Request) {
		if chi.URLParam(req, "token") != token {
			log.WarnContext(req.Context(), "Webhook request with mismatched token segment", "remote_addr", req.RemoteAddr)
			http.NotFound(w, req)
			return
		}
		webhook(w, req)
	})

	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		if err := store.Ping(req.Context()); err != nil {
			log.ErrorContext(req.Context(), "Health check failed", "error", err)
			http.Error(w, "unhealthy", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	return &WebhookServer{
		httpServer: &http.Server{
			Addr:              listenAddr,
			Handler:           r,
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       30 * time.Second,
			WriteTimeout:      30 * time.Second,
		},
		logger: log,
	}
}

// Start runs the HTTP server until it is shut down.
func (s *WebhookServer) Start() error {
	s.logger.Info("Starting webhook HTTP server", "addr", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("webhook server failed: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the HTTP server.
func (s *WebhookServer) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down webhook HTTP server")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("webhook server shutdown failed: %w", err)
	}
	return nil
}

// WebhookTarget derives the full webhook URL to register with Telegram.
// When the configured URL carries no path, the token-bearing webhook path
// is appended.
func WebhookTarget(webhookURL, token string) (string, error) {
	u, err := url.Parse(webhookURL)
	if err != nil {
		return "", fmt.Errorf("invalid webhook url: %w", err)
	}
	if u.Path == "" || u.Path == "/" {
		u.Path = "/webhook/" + token
	}
	return u.String(), nil
}

// EnsureWebhook registers the webhook URL with Telegram when the currently
// registered one differs.
func EnsureWebhook(ctx context.Context, b *bot.Bot, logger *slog.Logger, webhookURL, token string) error {
	if logger == nil {
		logger = slog.Default()
	}
	log := logger.With("component", "webhook_bootstrap")

	target, err := WebhookTarget(webhookURL, token)
	if err != nil {
		return err
	}

	info, err := b.GetWebhookInfo(ctx)
	if err != nil {
		return fmt.Errorf("failed to get webhook info: %w", err)
	}

	if info.URL == target {
		log.Info("Webhook already registered", "url", redactToken(target, token))
		return nil
	}

	if info.URL != "" {
		if _, err := b.DeleteWebhook(ctx, &bot.DeleteWebhookParams{}); err != nil {
			return fmt.Errorf("failed to delete stale webhook: %w", err)
		}
	}

	if _, err := b.SetWebhook(ctx, &bot.SetWebhookParams{URL: target}); err != nil {
		return fmt.Errorf("failed to set webhook: %w", err)
	}

	log.Info("Webhook registered", "url", redactToken(target, token))
	return nil
}

// redactToken keeps the bot token out of log output.
func redactToken(s, token string) string {
	if token == "" {
		return s
	}
	return strings.ReplaceAll(s, token, "<token>")
}
