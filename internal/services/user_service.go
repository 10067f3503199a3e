package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/BradenHooton/lockgate/internal/models"
	"github.com/BradenHooton/lockgate/pkg/auth"
	"github.com/BradenHooton/lockgate/pkg/logger"
)

// AccountRepository is the user storage used for account administration
type AccountRepository interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	Create(ctx context.Context, user *models.User) (*models.User, error)
	UpdateStatus(ctx context.Context, id, status string) error
}

// UserService handles account administration
type UserService struct {
	repo       AccountRepository
	bcryptCost int
	logger     *slog.Logger
}

// NewUserService creates a new UserService
func NewUserService(repo AccountRepository, logger *slog.Logger) *UserService {
	return &UserService{
		repo:       repo,
		bcryptCost: auth.DefaultBcryptCost,
		logger:     logger,
	}
}

// WithBcryptCost overrides the bcrypt cost used for new accounts
func (s *UserService) WithBcryptCost(cost int) *UserService {
	s.bcryptCost = cost
	return s
}

// CreateUser validates the password, hashes it and stores a new account
func (s *UserService) CreateUser(ctx context.Context, email, password, name, role string) (*models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	if _, err := s.repo.GetByEmail(ctx, email); err == nil {
		return nil, models.ErrConflict
	} else if !errors.Is(err, models.ErrNotFound) {
		s.logger.ErrorContext(ctx, "failed to check existing user", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	if err := auth.ValidatePassword(password); err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrBadRequest, err)
	}

	hash, err := auth.HashPasswordWithCost(password, s.bcryptCost)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to hash password", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	created, err := s.repo.Create(ctx, &models.User{
		Email:        email,
		PasswordHash: hash,
		Name:         name,
		Role:         role,
		Status:       models.UserStatusActive,
	})
	if err != nil {
		if errors.Is(err, models.ErrConflict) {
			return nil, models.ErrConflict
		}
		s.logger.ErrorContext(ctx, "failed to create user", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	s.logger.InfoContext(ctx, "user created",
		slog.String("user_id", created.ID),
		slog.String("email", logger.SanitizedEmail(created.Email)),
		slog.String("role", created.Role))
	return created, nil
}

// EnsureAdmin creates the bootstrap administrator unless the email already exists
func (s *UserService) EnsureAdmin(ctx context.Context, email, password, name string) (*models.User, error) {
	existing, err := s.repo.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err == nil {
		if existing.Role != models.RoleAdmin {
			s.logger.WarnContext(ctx, "bootstrap admin email belongs to a non-admin account",
				slog.String("user_id", existing.ID))
		}
		return existing, nil
	}
	if !errors.Is(err, models.ErrNotFound) {
		return nil, fmt.Errorf("failed to look up bootstrap admin: %w", err)
	}

	return s.CreateUser(ctx, email, password, name, models.RoleAdmin)
}

// SetStatus changes an account's status. Disabled and suspended accounts cannot log in.
func (s *UserService) SetStatus(ctx context.Context, id, status string) error {
	switch status {
	case models.UserStatusActive, models.UserStatusSuspended, models.UserStatusDisabled:
	default:
		return fmt.Errorf("%w: unknown status %q", models.ErrBadRequest, status)
	}

	if err := s.repo.UpdateStatus(ctx, id, status); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.ErrNotFound
		}
		s.logger.ErrorContext(ctx, "failed to update user status", slog.String("user_id", id), slog.Any("error", err))
		return models.ErrInternalServer
	}

	s.logger.InfoContext(ctx, "user status changed", slog.String("user_id", id), slog.String("status", status))
	return nil
}
