// Command server runs the meal calendar HTTP API and, when configured, the
// Telegram webhook.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"go.uber.org/zap"

	"kids-meal-calendar/internal/app"
	"kids-meal-calendar/internal/auth"
	"kids-meal-calendar/internal/config"
	"kids-meal-calendar/internal/logging"
	"kids-meal-calendar/internal/server"
	"kids-meal-calendar/internal/telegram"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Load Configuration
	if err := config.LoadDotEnv(""); err != nil {
		return err
	}
	cfg, err := config.NewFromEnv()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return err
	}
	defer logger.Sync()

	// 2. Wire the application
	ctx := context.Background()
	rt, err := app.Build(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer rt.Close()

	var dataPath string
	if cfg.DatabasePath != app.MemoryDatabase {
		dataPath = filepath.Dir(cfg.DatabasePath)
	}
	opts := []server.Option{
		server.WithLogger(logger.Named("http")),
		server.WithDataPath(dataPath),
	}
	if cfg.JWTSecret != "" {
		opts = append(opts, server.WithAuth(auth.NewManager(cfg.JWTSecret, 0)))
	} else {
		logger.Warn("JWT_SECRET not set, API authentication disabled")
	}

	// 3. Optional Telegram Bot
	extra := map[string]http.Handler{}
	if cfg.TelegramBotToken != "" && cfg.TelegramWebhookURL != "" {
		u, err := url.Parse(cfg.TelegramWebhookURL)
		if err != nil {
			return fmt.Errorf("invalid TELEGRAM_WEBHOOK_URL: %w", err)
		}
		bot, err := telegram.NewBot(cfg.TelegramBotToken, cfg.TelegramWebhookURL, rt.App, telegram.Options{
			AllowedUserIDs: cfg.TelegramAllowedUserIDs,
			ChildID:        cfg.TelegramChildID,
			AdminID:        cfg.AdminTelegramID,
			DataPath:       dataPath,
		}, logger.Named("telegram"))
		if err != nil {
			return fmt.Errorf("failed to initialize telegram bot: %w", err)
		}
		path := u.Path
		if path == "" {
			path = "/"
		}
		extra["POST "+path] = bot
	}

	// 4. Start Server with Graceful Shutdown
	srv := server.NewServer(":"+cfg.Port, rt.App, extra, opts...)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-quit:
	}
	logger.Info("shutting down server")

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctxShutdown); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	logger.Info("server exiting")
	return nil
}
