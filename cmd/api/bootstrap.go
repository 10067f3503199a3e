package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/BradenHooton/lockgate/internal/config"
	"github.com/BradenHooton/lockgate/internal/models"
)

type adminEnsurer interface {
	EnsureAdmin(ctx context.Context, email, password, name string) (*models.User, error)
}

// bootstrapAdmin creates the configured admin account. A configured admin
// that cannot be created is a startup error.
func bootstrapAdmin(ctx context.Context, cfg config.AdminConfig, users adminEnsurer, logger *slog.Logger) error {
	if cfg.Email == "" {
		logger.Info("no ADMIN_EMAIL set, skipping admin user creation")
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	admin, err := users.EnsureAdmin(ctx, cfg.Email, cfg.Password, cfg.Name)
	if err != nil {
		return fmt.Errorf("failed to ensure admin user: %w", err)
	}

	logger.Info("admin user ready", slog.String("user_id", admin.ID))
	return nil
}
