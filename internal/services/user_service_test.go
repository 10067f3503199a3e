package services_test

import (
	"context"
	"testing"

	"github.com/BradenHooton/lockgate/internal/models"
	"github.com/BradenHooton/lockgate/internal/services"
	pkgauth "github.com/BradenHooton/lockgate/pkg/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestUserService_EnsureAdmin_Creates(t *testing.T) {
	var created *models.User
	repo := &services.MockUserRepository{
		CreateFunc: func(ctx context.Context, user *models.User) (*models.User, error) {
			user.ID = "admin-1"
			created = user
			return user, nil
		},
	}
	svc := services.NewUserService(repo, services.NewTestLogger()).WithBcryptCost(bcrypt.MinCost)

	user, err := svc.EnsureAdmin(context.Background(), " Admin@Example.com ", "SecureP@ss123", "Admin")

	require.NoError(t, err)
	assert.Equal(t, "admin-1", user.ID)
	assert.Equal(t, "admin@example.com", created.Email)
	assert.Equal(t, models.RoleAdmin, created.Role)
	assert.Equal(t, models.UserStatusActive, created.Status)
	assert.NoError(t, pkgauth.ComparePassword(created.PasswordHash, "SecureP@ss123"))
}

func TestUserService_EnsureAdmin_ExistingIsReturned(t *testing.T) {
	existing := services.NewTestUser("admin-1", "admin@example.com", "hash")
	repo := &services.MockUserRepository{
		GetByEmailFunc: func(ctx context.Context, email string) (*models.User, error) { return existing, nil },
		CreateFunc: func(ctx context.Context, user *models.User) (*models.User, error) {
			t.Fatal("must not create a second admin")
			return nil, nil
		},
	}
	svc := services.NewUserService(repo, services.NewTestLogger())

	user, err := svc.EnsureAdmin(context.Background(), "admin@example.com", "SecureP@ss123", "Admin")

	require.NoError(t, err)
	assert.Same(t, existing, user)
}

func TestUserService_CreateUser_WeakPassword(t *testing.T) {
	svc := services.NewUserService(&services.MockUserRepository{}, services.NewTestLogger())

	_, err := svc.CreateUser(context.Background(), "user@example.com", "short", "User", models.RoleUser)

	assert.ErrorIs(t, err, models.ErrBadRequest)
}

func TestUserService_CreateUser_Duplicate(t *testing.T) {
	repo := &services.MockUserRepository{
		GetByEmailFunc: func(ctx context.Context, email string) (*models.User, error) {
			return services.NewTestUser("u1", email, ""), nil
		},
	}
	svc := services.NewUserService(repo, services.NewTestLogger())

	_, err := svc.CreateUser(context.Background(), "user@example.com", "SecureP@ss123", "User", models.RoleUser)

	assert.ErrorIs(t, err, models.ErrConflict)
}

func TestUserService_SetStatus(t *testing.T) {
	var gotID, gotStatus string
	repo := &services.MockUserRepository{
		UpdateStatusFunc: func(ctx context.Context, id, status string) error {
			gotID, gotStatus = id, status
			if id == "ghost" {
				return models.ErrNotFound
			}
			return nil
		},
	}
	svc := services.NewUserService(repo, services.NewTestLogger())
	ctx := context.Background()

	require.NoError(t, svc.SetStatus(ctx, "u1", models.UserStatusSuspended))
	assert.Equal(t, "u1", gotID)
	assert.Equal(t, models.UserStatusSuspended, gotStatus)

	assert.ErrorIs(t, svc.SetStatus(ctx, "u1", "banished"), models.ErrBadRequest)
	assert.ErrorIs(t, svc.SetStatus(ctx, "ghost", models.UserStatusActive), models.ErrNotFound)
}
