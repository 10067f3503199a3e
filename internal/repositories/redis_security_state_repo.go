package repositories

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/BradenHooton/lockgate/internal/models"
	"github.com/redis/go-redis/v9"
)

const (
	securityStateKeyPrefix = "lockout:state:"

	fieldFailedAttempts = "failed_attempts"
	fieldLockedUntil    = "locked_until"
	fieldLastLoginAt    = "last_login_at"

	defaultMaxTxRetries = 25
)

// ErrTooMuchContention is returned when an optimistic update keeps losing the WATCH race
var ErrTooMuchContention = errors.New("security state update retries exhausted")

// AccountChecker reports whether an account exists. The Redis store only holds
// lockout state, so it asks the account source before treating a missing key as zero state.
type AccountChecker interface {
	Exists(ctx context.Context, accountID string) (bool, error)
}

// RedisSecurityStateRepository keeps lockout state in a Redis hash per account,
// updated with WATCH/MULTI so concurrent writers never lose an increment.
type RedisSecurityStateRepository struct {
	client     *redis.Client
	accounts   AccountChecker
	maxRetries int
}

// NewRedisSecurityStateRepository creates a Redis-backed store. accounts may be nil,
// in which case every account id is treated as existing.
func NewRedisSecurityStateRepository(client *redis.Client, accounts AccountChecker) *RedisSecurityStateRepository {
	return &RedisSecurityStateRepository{
		client:     client,
		accounts:   accounts,
		maxRetries: defaultMaxTxRetries,
	}
}

// WithMaxRetries overrides how many times a conflicting update is retried
func (r *RedisSecurityStateRepository) WithMaxRetries(n int) *RedisSecurityStateRepository {
	if n > 0 {
		r.maxRetries = n
	}
	return r
}

func securityStateKey(accountID string) string {
	return securityStateKeyPrefix + accountID
}

// Get loads the security state for an account
func (r *RedisSecurityStateRepository) Get(ctx context.Context, accountID string) (models.SecurityState, error) {
	values, err := r.client.HGetAll(ctx, securityStateKey(accountID)).Result()
	if err != nil {
		return models.SecurityState{}, fmt.Errorf("failed to load security state: %w", err)
	}

	return r.decode(ctx, accountID, values)
}

// Update atomically loads the state, applies fn, and saves the result
func (r *RedisSecurityStateRepository) Update(
	ctx context.Context,
	accountID string,
	fn func(models.SecurityState) (models.SecurityState, error),
) (models.SecurityState, error) {
	key := securityStateKey(accountID)
	var result models.SecurityState

	txf := func(tx *redis.Tx) error {
		values, err := tx.HGetAll(ctx, key).Result()
		if err != nil {
			return fmt.Errorf("failed to load security state: %w", err)
		}

		current, err := r.decode(ctx, accountID, values)
		if err != nil {
			return err
		}

		next, err := fn(current)
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Del(ctx, key)
			pipe.HSet(ctx, key, encodeSecurityState(next))
			return nil
		})
		if err != nil {
			return err
		}

		result = next
		return nil
	}

	for attempt := 0; attempt < r.maxRetries; attempt++ {
		err := r.client.Watch(ctx, txf, key)
		if err == nil {
			return result, nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return models.SecurityState{}, err
	}

	return models.SecurityState{}, ErrTooMuchContention
}

// CountLocked scans every state hash and counts locks still active at now
func (r *RedisSecurityStateRepository) CountLocked(ctx context.Context, now time.Time) (int64, error) {
	var count int64
	iter := r.client.Scan(ctx, 0, securityStateKeyPrefix+"*", 500).Iterator()
	for iter.Next(ctx) {
		raw, err := r.client.HGet(ctx, iter.Val(), fieldLockedUntil).Result()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			return 0, fmt.Errorf("failed to read lock state: %w", err)
		}

		until, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			continue
		}
		if now.Before(until) {
			count++
		}
	}
	if err := iter.Err(); err != nil {
		return 0, fmt.Errorf("failed to scan security states: %w", err)
	}
	return count, nil
}

func (r *RedisSecurityStateRepository) decode(ctx context.Context, accountID string, values map[string]string) (models.SecurityState, error) {
	if len(values) == 0 {
		if r.accounts != nil {
			exists, err := r.accounts.Exists(ctx, accountID)
			if err != nil {
				return models.SecurityState{}, err
			}
			if !exists {
				return models.SecurityState{}, models.ErrNotFound
			}
		}
		return models.SecurityState{}, nil
	}

	return decodeSecurityState(values)
}

func encodeSecurityState(state models.SecurityState) map[string]interface{} {
	fields := map[string]interface{}{
		fieldFailedAttempts: state.FailedAttemptCount,
	}
	if state.LockedUntil != nil {
		fields[fieldLockedUntil] = state.LockedUntil.UTC().Format(time.RFC3339Nano)
	}
	if state.LastLoginAt != nil {
		fields[fieldLastLoginAt] = state.LastLoginAt.UTC().Format(time.RFC3339Nano)
	}
	return fields
}

func decodeSecurityState(values map[string]string) (models.SecurityState, error) {
	var state models.SecurityState

	if raw, ok := values[fieldFailedAttempts]; ok {
		count, err := strconv.Atoi(raw)
		if err != nil || count < 0 {
			return models.SecurityState{}, fmt.Errorf("invalid %s value %q", fieldFailedAttempts, raw)
		}
		state.FailedAttemptCount = count
	}

	lockedUntil, err := parseOptionalTime(values, fieldLockedUntil)
	if err != nil {
		return models.SecurityState{}, err
	}
	state.LockedUntil = lockedUntil

	lastLogin, err := parseOptionalTime(values, fieldLastLoginAt)
	if err != nil {
		return models.SecurityState{}, err
	}
	state.LastLoginAt = lastLogin

	return state, nil
}

func parseOptionalTime(values map[string]string, field string) (*time.Time, error) {
	raw, ok := values[field]
	if !ok || raw == "" {
		return nil, nil
	}

	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", field, raw, err)
	}
	return &t, nil
}
