package repositories

import (
	"context"
	"fmt"

	"github.com/BradenHooton/lockgate/internal/database"
	"github.com/BradenHooton/lockgate/internal/models"
	"github.com/jackc/pgx/v5"
)

// SecurityStateRepository stores lockout state in the users row.
// Update holds a row lock for the whole read-modify-write, so concurrent
// failures for one account are serialized while other accounts proceed.
type SecurityStateRepository struct {
	db *database.DB
}

// NewSecurityStateRepository creates a new SecurityStateRepository
func NewSecurityStateRepository(db *database.DB) *SecurityStateRepository {
	return &SecurityStateRepository{db: db}
}

func scanSecurityState(row rowScanner) (models.SecurityState, error) {
	var state models.SecurityState

	err := row.Scan(&state.FailedAttemptCount, &state.LockedUntil, &state.LastLoginAt)
	if err != nil {
		return models.SecurityState{}, database.MapPostgresError(err)
	}

	return state, nil
}

// Get loads the security state for an account
func (r *SecurityStateRepository) Get(ctx context.Context, accountID string) (models.SecurityState, error) {
	query := `SELECT failed_login_attempts, locked_until, last_login_at FROM users WHERE id = $1`

	return scanSecurityState(r.db.Pool.QueryRow(ctx, query, accountID))
}

// Update atomically loads the state, applies fn, and saves the result.
// An error from fn aborts the transaction and is returned unchanged.
func (r *SecurityStateRepository) Update(
	ctx context.Context,
	accountID string,
	fn func(models.SecurityState) (models.SecurityState, error),
) (models.SecurityState, error) {
	var result models.SecurityState

	err := r.db.WithTransaction(ctx, func(tx pgx.Tx) error {
		selectQuery := `
			SELECT failed_login_attempts, locked_until, last_login_at
			FROM users WHERE id = $1
			FOR UPDATE
		`

		current, err := scanSecurityState(tx.QueryRow(ctx, selectQuery, accountID))
		if err != nil {
			return err
		}

		next, err := fn(current)
		if err != nil {
			return err
		}

		updateQuery := `
			UPDATE users
			SET failed_login_attempts = $1, locked_until = $2, last_login_at = $3, updated_at = NOW()
			WHERE id = $4
		`

		if _, err := tx.Exec(ctx, updateQuery, next.FailedAttemptCount, next.LockedUntil, next.LastLoginAt, accountID); err != nil {
			return fmt.Errorf("failed to save security state: %w", database.MapPostgresError(err))
		}

		result = next
		return nil
	})
	if err != nil {
		return models.SecurityState{}, err
	}

	return result, nil
}
