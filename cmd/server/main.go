package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/mlenko/lagerdb/internal/api"
	"github.com/mlenko/lagerdb/internal/auth"
	"github.com/mlenko/lagerdb/internal/config"
	"github.com/mlenko/lagerdb/internal/db"
	"github.com/mlenko/lagerdb/internal/inventory"
	"github.com/mlenko/lagerdb/internal/labels"
	"github.com/mlenko/lagerdb/internal/logging"
	"github.com/mlenko/lagerdb/internal/model"
	"github.com/mlenko/lagerdb/internal/notify"
	"github.com/mlenko/lagerdb/internal/store"
)

func main() {
	cfg := config.Load()

	logger, err := logging.New(cfg.Logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()
	zap.ReplaceGlobals(logger)

	if err := run(cfg, logger); err != nil {
		logger.Fatal("server exited", zap.Error(err))
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	database, err := db.Open(cfg.DB.Path)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer database.Close()

	if err := db.Migrate(database); err != nil {
		return fmt.Errorf("migrating database: %w", err)
	}
	logger.Info("database ready", zap.String("path", cfg.DB.Path))

	ctx := context.Background()

	if err := bootstrapAdmin(ctx, database, logger); err != nil {
		return fmt.Errorf("bootstrapping admin: %w", err)
	}

	jwtSecret := cfg.Server.JWTSecret
	if jwtSecret == "" {
		jwtSecret, err = store.GetJWTSecret(ctx, database)
		if err != nil {
			return fmt.Errorf("loading JWT secret: %w", err)
		}
	}

	gen := labels.NewFileGenerator(cfg.Server.DataDir, cfg.Server.BaseURL)

	var notifier notify.Notifier = notify.Noop{}
	if cfg.Notify.WebhookURL != "" {
		notifier = notify.NewWebhook(cfg.Notify.WebhookURL, cfg.Server.BaseURL,
			time.Duration(cfg.Notify.TimeoutSec)*time.Second)
		logger.Info("webhook notifications enabled", zap.String("url", cfg.Notify.WebhookURL))
	}

	svc := inventory.NewService(database, logger, gen, notifier)
	handler := api.NewRouter(database, jwtSecret, svc, gen, logger)

	server := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	// Graceful shutdown on SIGINT/SIGTERM.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-quit
		logger.Info("shutdown signal received", zap.String("signal", sig.String()))

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("server forced to shutdown", zap.Error(err))
		}
	}()

	logger.Info("server started", zap.String("addr", cfg.Server.Addr))
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}

	logger.Info("server stopped")
	return nil
}

// bootstrapAdmin creates the initial admin account on an empty user table
// and prints the generated password once.
func bootstrapAdmin(ctx context.Context, database *sql.DB, logger *zap.Logger) error {
	users, err := store.ListUsers(ctx, database)
	if err != nil {
		return err
	}
	if len(users) > 0 {
		return nil
	}

	password, err := auth.GeneratePassword()
	if err != nil {
		return err
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}
	if _, err := store.CreateUser(ctx, database, "admin", hash, model.RoleAdmin); err != nil {
		return err
	}

	logger.Info("admin account created", zap.String("username", "admin"))
	fmt.Println("Admin account created:")
	fmt.Println("  Username: admin")
	fmt.Printf("  Password: %s\n", password)
	fmt.Println("Save this password, it cannot be recovered.")
	return nil
}
