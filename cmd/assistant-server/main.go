// cmd/assistant-server/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"bank-assistant/internal/api"
	"bank-assistant/internal/app"
	"bank-assistant/internal/common/auth"
	"bank-assistant/internal/common/camunda"
	"bank-assistant/internal/common/config"
	"bank-assistant/internal/common/logger"
	"bank-assistant/pkg/registry"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}

	zapLog, err := logger.NewFromConfig(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init failed: %v\n", err)
		os.Exit(1)
	}
	defer zapLog.Sync()

	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting assistant server...",
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Environment),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	assistant, err := app.New(ctx, cfg, log, app.Options{})
	if err != nil {
		zapLog.Fatal("assistant init failed", zap.Error(err))
	}
	defer assistant.Close()

	// --- Corpus watcher ---
	if cfg.Assistant.WatchCorpus {
		watcher, err := assistant.WatchCorpus(ctx)
		if err != nil {
			zapLog.Error("corpus watcher failed to start", zap.Error(err))
		} else {
			defer watcher.Close()
			zapLog.Info("corpus watcher started", zap.String("path", cfg.Assistant.KnowledgeBasePath))
		}
	}

	// --- Job workers ---
	if cfg.Camunda.Enabled() {
		zeebe, err := camunda.NewClient(cfg.Camunda)
		if err != nil {
			zapLog.Fatal("zeebe client failed", zap.Error(err))
		}
		activities := registry.Default()
		if cfg.Camunda.RegistryPath != "" {
			if activities, err = registry.LoadRegistry(cfg.Camunda.RegistryPath); err != nil {
				zapLog.Fatal("activity registry failed", zap.Error(err))
			}
		}
		workers := camunda.NewWorkers(zeebe, zapLog)
		assistant.RegisterWorkers(workers, activities)
		defer workers.Close()
		zapLog.Info("job workers registered", zap.Int("count", workers.Count()))
	}

	// --- HTTP server ---
	var tokens api.TokenValidator
	if kc := cfg.Auth.Keycloak; kc.URL != "" {
		tokens = auth.NewKeycloakClient(kc.URL, kc.Realm, kc.ClientID, kc.ClientSecret, kc.RequiredRole)
	}

	server := api.NewServer(api.Config{
		RateLimitPerSec: cfg.Server.RateLimitPerSec,
		RateLimitBurst:  cfg.Server.RateLimitBurst,
		RequestTimeout:  config.GetDuration(cfg.Server.WriteTimeout),
	}, assistant.Orchestrator, tokens, app.APILogger(log))

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      server.Routes(),
		ReadTimeout:  config.GetDuration(cfg.Server.ReadTimeout),
		WriteTimeout: config.GetDuration(cfg.Server.WriteTimeout),
	}

	go func() {
		zapLog.Info("HTTP server listening", zap.String("addr", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLog.Error("HTTP server failed", zap.Error(err))
			stop()
		}
	}()

	// --- Graceful Shutdown ---
	<-ctx.Done()
	zapLog.Info("Shutdown signal received, stopping server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("Error shutting down HTTP server", zap.Error(err))
	}

	zapLog.Info("Assistant server stopped gracefully")
}
