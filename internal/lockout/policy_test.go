package lockout_test

import (
	"testing"
	"time"

	"github.com/BradenHooton/lockgate/internal/lockout"
	"github.com/BradenHooton/lockgate/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func newPolicy(t *testing.T, threshold int, duration time.Duration) *lockout.Policy {
	t.Helper()
	p, err := lockout.NewPolicy(lockout.Config{Threshold: threshold, Duration: duration})
	require.NoError(t, err)
	return p
}

func ptr(t time.Time) *time.Time {
	return &t
}

func TestNewPolicy_RejectsInvalidConfig(t *testing.T) {
	tests := []struct {
		name string
		cfg  lockout.Config
	}{
		{"zero threshold", lockout.Config{Threshold: 0, Duration: time.Minute}},
		{"negative threshold", lockout.Config{Threshold: -3, Duration: time.Minute}},
		{"zero duration", lockout.Config{Threshold: 5, Duration: 0}},
		{"negative duration", lockout.Config{Threshold: 5, Duration: -time.Second}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := lockout.NewPolicy(tt.cfg)
			assert.Error(t, err)
			assert.Nil(t, p)
		})
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := lockout.DefaultConfig()
	assert.Equal(t, 5, cfg.Threshold)
	assert.Equal(t, 15*time.Minute, cfg.Duration)
	assert.NoError(t, cfg.Validate())
}

func TestIsLocked(t *testing.T) {
	p := newPolicy(t, 5, 15*time.Minute)

	assert.False(t, p.IsLocked(models.SecurityState{}, t0), "zero state is unlocked")

	state := models.SecurityState{FailedAttemptCount: 5, LockedUntil: ptr(t0.Add(time.Minute))}
	assert.True(t, p.IsLocked(state, t0))
	assert.True(t, p.IsLocked(state, t0.Add(time.Minute-time.Nanosecond)))
	assert.False(t, p.IsLocked(state, t0.Add(time.Minute)), "lock ends exactly at LockedUntil")
	assert.False(t, p.IsLocked(state, t0.Add(time.Hour)))
}

func TestRecordFailure_BelowThresholdNeverLocks(t *testing.T) {
	for threshold := 1; threshold <= 10; threshold++ {
		p := newPolicy(t, threshold, 15*time.Minute)
		state := models.SecurityState{}
		now := t0

		for i := 0; i < threshold-1; i++ {
			state = p.RecordFailure(state, now)
			assert.False(t, p.IsLocked(state, now), "threshold=%d failure=%d", threshold, i+1)
			assert.Nil(t, state.LockedUntil)
			now = now.Add(time.Second)
		}
		assert.Equal(t, threshold-1, state.FailedAttemptCount)
	}
}

func TestRecordFailure_ThresholdLocksFromTriggeringFailure(t *testing.T) {
	duration := 15 * time.Minute
	for threshold := 1; threshold <= 10; threshold++ {
		p := newPolicy(t, threshold, duration)
		state := models.SecurityState{}
		now := t0

		for i := 0; i < threshold; i++ {
			now = t0.Add(time.Duration(i) * time.Second)
			state = p.RecordFailure(state, now)
		}

		assert.True(t, p.IsLocked(state, now), "threshold=%d", threshold)
		require.NotNil(t, state.LockedUntil)
		assert.Equal(t, now.Add(duration), *state.LockedUntil)
		assert.Equal(t, threshold, state.FailedAttemptCount)
	}
}

func TestRecordFailure_ConcreteScenario(t *testing.T) {
	p := newPolicy(t, 5, 15*time.Minute)
	state := models.SecurityState{}

	for i := 0; i < 5; i++ {
		state = p.RecordFailure(state, t0.Add(time.Duration(i)*time.Second))
	}

	fifth := t0.Add(4 * time.Second)
	assert.True(t, p.IsLocked(state, fifth))
	require.NotNil(t, state.LockedUntil)
	assert.Equal(t, fifth.Add(15*time.Minute), *state.LockedUntil)

	assert.False(t, p.IsLocked(state, t0.Add(19*time.Minute+4*time.Second)))
}

func TestRecordFailure_WhileLockedDoesNotExtend(t *testing.T) {
	p := newPolicy(t, 3, 10*time.Minute)
	state := models.SecurityState{}
	for i := 0; i < 3; i++ {
		state = p.RecordFailure(state, t0)
	}
	require.NotNil(t, state.LockedUntil)
	until := *state.LockedUntil

	later := t0.Add(5 * time.Minute)
	state = p.RecordFailure(state, later)
	state = p.RecordFailure(state, later.Add(time.Minute))

	assert.Equal(t, 5, state.FailedAttemptCount, "counter still increments")
	require.NotNil(t, state.LockedUntil)
	assert.Equal(t, until, *state.LockedUntil, "lock is not extended")
}

func TestRecordFailure_AfterLapsedLockLocksAgain(t *testing.T) {
	p := newPolicy(t, 3, 10*time.Minute)
	state := models.SecurityState{}
	for i := 0; i < 3; i++ {
		state = p.RecordFailure(state, t0)
	}

	afterExpiry := t0.Add(11 * time.Minute)
	require.False(t, p.IsLocked(state, afterExpiry))
	assert.Equal(t, 1, p.RemainingAttempts(state, afterExpiry))

	next := p.RecordFailure(state, afterExpiry)
	assert.True(t, p.IsLocked(next, afterExpiry))
	assert.Equal(t, afterExpiry.Add(10*time.Minute), *next.LockedUntil)
	assert.True(t, p.LockTriggered(state, next, afterExpiry))
}

func TestRecordFailure_DoesNotMutateInput(t *testing.T) {
	p := newPolicy(t, 1, time.Minute)
	lastLogin := t0.Add(-time.Hour)
	state := models.SecurityState{LastLoginAt: &lastLogin}

	next := p.RecordFailure(state, t0)

	assert.Equal(t, 0, state.FailedAttemptCount)
	assert.Nil(t, state.LockedUntil)
	assert.Equal(t, 1, next.FailedAttemptCount)
	require.NotNil(t, next.LastLoginAt)
	assert.NotSame(t, state.LastLoginAt, next.LastLoginAt)
}

func TestRecordSuccess_AlwaysResets(t *testing.T) {
	p := newPolicy(t, 5, 15*time.Minute)
	states := []models.SecurityState{
		{},
		{FailedAttemptCount: 3},
		{FailedAttemptCount: 5, LockedUntil: ptr(t0.Add(10 * time.Minute))},
		{FailedAttemptCount: 9, LockedUntil: ptr(t0.Add(-10 * time.Minute))},
	}

	for _, state := range states {
		next := p.RecordSuccess(state, t0)
		assert.Equal(t, 0, next.FailedAttemptCount)
		assert.Nil(t, next.LockedUntil)
		require.NotNil(t, next.LastLoginAt)
		assert.Equal(t, t0, *next.LastLoginAt)

		again := p.RecordSuccess(next, t0)
		assert.Equal(t, next, again, "idempotent")
	}
}

func TestRecordSuccess_ConcreteScenario(t *testing.T) {
	p := newPolicy(t, 5, 15*time.Minute)

	next := p.RecordSuccess(models.SecurityState{FailedAttemptCount: 3}, t0)

	assert.Equal(t, 0, next.FailedAttemptCount)
	assert.Nil(t, next.LockedUntil)
}

func TestUnlock(t *testing.T) {
	p := newPolicy(t, 5, 15*time.Minute)
	lastLogin := t0.Add(-24 * time.Hour)
	state := models.SecurityState{
		FailedAttemptCount: 5,
		LockedUntil:        ptr(t0.Add(10 * time.Minute)),
		LastLoginAt:        &lastLogin,
	}

	next := p.Unlock(state)

	assert.Equal(t, 0, next.FailedAttemptCount)
	assert.Nil(t, next.LockedUntil)
	assert.Equal(t, lastLogin, *next.LastLoginAt, "unlock does not count as a login")
	for _, at := range []time.Time{t0, t0.Add(5 * time.Minute), t0.Add(time.Hour)} {
		assert.False(t, p.IsLocked(next, at))
	}

	assert.Equal(t, models.SecurityState{}, p.Unlock(models.SecurityState{}))
}

func TestUnlockTime(t *testing.T) {
	p := newPolicy(t, 5, 15*time.Minute)

	assert.Nil(t, p.UnlockTime(models.SecurityState{}))

	until := t0.Add(-time.Minute)
	got := p.UnlockTime(models.SecurityState{FailedAttemptCount: 5, LockedUntil: &until})
	require.NotNil(t, got)
	assert.Equal(t, until, *got, "lapsed lock is returned verbatim")
}

func TestLockTriggered(t *testing.T) {
	p := newPolicy(t, 2, time.Minute)
	state := p.RecordFailure(models.SecurityState{}, t0)
	locked := p.RecordFailure(state, t0)
	stillLocked := p.RecordFailure(locked, t0.Add(time.Second))

	assert.False(t, p.LockTriggered(models.SecurityState{}, state, t0))
	assert.True(t, p.LockTriggered(state, locked, t0))
	assert.False(t, p.LockTriggered(locked, stillLocked, t0.Add(time.Second)))
}

func TestRetryAfterAndRemainingAttempts(t *testing.T) {
	p := newPolicy(t, 3, 15*time.Minute)

	assert.Equal(t, time.Duration(0), p.RetryAfter(models.SecurityState{}, t0))
	assert.Equal(t, 3, p.RemainingAttempts(models.SecurityState{}, t0))

	state := p.RecordFailure(models.SecurityState{}, t0)
	assert.Equal(t, 2, p.RemainingAttempts(state, t0))

	state = p.RecordFailure(state, t0)
	state = p.RecordFailure(state, t0)
	assert.Equal(t, 0, p.RemainingAttempts(state, t0))
	assert.Equal(t, 15*time.Minute, p.RetryAfter(state, t0))
	assert.Equal(t, 5*time.Minute, p.RetryAfter(state, t0.Add(10*time.Minute)))
	assert.Equal(t, time.Duration(0), p.RetryAfter(state, t0.Add(15*time.Minute)))
}

func TestLazyExpiry(t *testing.T) {
	p := newPolicy(t, 5, 15*time.Minute)
	state := models.SecurityState{FailedAttemptCount: 5, LockedUntil: ptr(t0.Add(15 * time.Minute))}

	for _, offset := range []time.Duration{0, time.Minute, 14 * time.Minute} {
		assert.True(t, p.IsLocked(state, t0.Add(offset)))
	}
	for _, offset := range []time.Duration{15 * time.Minute, 16 * time.Minute, 48 * time.Hour} {
		assert.False(t, p.IsLocked(state, t0.Add(offset)))
	}
	assert.NotNil(t, state.LockedUntil, "expiry never clears the field")
}
