package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"audition-backend/internal/config"
	"audition-backend/internal/di"
	"audition-backend/internal/observability"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx)
		},
	}
}

func newLoader() *config.Loader {
	dir := configDir
	if dir == "" {
		dir = os.Getenv("CONFIG_DIR")
	}
	env := environment
	if env == "" {
		env = os.Getenv("ENVIRONMENT")
	}
	return config.NewLoader(dir, config.Environment(strings.ToLower(env)))
}

func serve(ctx context.Context) error {
	loader := newLoader()
	cfg, err := loader.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	container, cleanup, err := di.InitializeContainer(ctx, cfg, di.Version(version))
	if err != nil {
		return fmt.Errorf("failed to initialize container: %w", err)
	}
	defer cleanup()
	logger := container.Logger

	logger.Info("Configuration loaded", zap.Strings("sources", cfg.LoadedFrom))

	watcher, err := config.NewWatcher(loader, cfg, logger)
	if err != nil {
		logger.Warn("Configuration hot reloading unavailable", zap.Error(err))
	} else {
		defer watcher.Stop()
		watcher.OnChange(func(c *config.Config) {
			container.Logging.Level.SetLevel(observability.ParseLevel(c.Logging.Level))
		})
	}

	srv := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      container.Router.Setup(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("Starting server",
			zap.String("address", cfg.Server.Address),
			zap.String("environment", string(cfg.Environment)),
			zap.String("version", version),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	logger.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown error", zap.Error(err))
		return err
	}
	logger.Info("Server stopped")
	return nil
}
