package services

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/BradenHooton/lockgate/internal/models"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
)

// NewTestLogger returns a logger that discards output
func NewTestLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

// FixedClock returns a settable clock for tests
type FixedClock struct {
	mu  sync.Mutex
	now time.Time
}

func NewFixedClock(t time.Time) *FixedClock {
	return &FixedClock{now: t}
}

func (c *FixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *FixedClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// MockUserRepository implements the user lookups for testing
type MockUserRepository struct {
	GetByIDFunc      func(ctx context.Context, id string) (*models.User, error)
	GetByEmailFunc   func(ctx context.Context, email string) (*models.User, error)
	CreateFunc       func(ctx context.Context, user *models.User) (*models.User, error)
	UpdateStatusFunc func(ctx context.Context, id, status string) error
}

func (m *MockUserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, models.ErrNotFound
}

func (m *MockUserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	if m.GetByEmailFunc != nil {
		return m.GetByEmailFunc(ctx, email)
	}
	return nil, models.ErrNotFound
}

func (m *MockUserRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, user)
	}
	return nil, models.ErrInternalServer
}

func (m *MockUserRepository) UpdateStatus(ctx context.Context, id, status string) error {
	if m.UpdateStatusFunc != nil {
		return m.UpdateStatusFunc(ctx, id, status)
	}
	return nil
}

// MockSecurityStateStore is an in-memory SecurityStateStore. Unknown accounts
// return ErrNotFound unless registered with Put. GetFunc/UpdateErr override behavior.
type MockSecurityStateStore struct {
	mu        sync.Mutex
	states    map[string]models.SecurityState
	GetFunc   func(ctx context.Context, accountID string) (models.SecurityState, error)
	UpdateErr error
	Updates   int
}

func NewMockSecurityStateStore() *MockSecurityStateStore {
	return &MockSecurityStateStore{states: make(map[string]models.SecurityState)}
}

// Put registers an account with the given state
func (m *MockSecurityStateStore) Put(accountID string, state models.SecurityState) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.states[accountID] = state
}

// State returns the stored state for assertions
func (m *MockSecurityStateStore) State(accountID string) models.SecurityState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.states[accountID]
}

func (m *MockSecurityStateStore) Get(ctx context.Context, accountID string) (models.SecurityState, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx, accountID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	state, ok := m.states[accountID]
	if !ok {
		return models.SecurityState{}, models.ErrNotFound
	}
	return state.Clone(), nil
}

func (m *MockSecurityStateStore) Update(ctx context.Context, accountID string, fn func(models.SecurityState) (models.SecurityState, error)) (models.SecurityState, error) {
	if m.UpdateErr != nil {
		return models.SecurityState{}, m.UpdateErr
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	current, ok := m.states[accountID]
	if !ok {
		return models.SecurityState{}, models.ErrNotFound
	}

	next, err := fn(current.Clone())
	if err != nil {
		return models.SecurityState{}, err
	}

	m.states[accountID] = next
	m.Updates++
	return next.Clone(), nil
}

// MockAuditSink records emitted events
type MockAuditSink struct {
	mu       sync.Mutex
	Events   []models.LockoutEvent
	EmitFunc func(ctx context.Context, event models.LockoutEvent) error
}

func (m *MockAuditSink) Emit(ctx context.Context, event models.LockoutEvent) error {
	m.mu.Lock()
	m.Events = append(m.Events, event)
	m.mu.Unlock()

	if m.EmitFunc != nil {
		return m.EmitFunc(ctx, event)
	}
	return nil
}

// Recorded returns a copy of the events emitted so far
func (m *MockAuditSink) Recorded() []models.LockoutEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.LockoutEvent(nil), m.Events...)
}

// MockAuditLogRepository records created audit logs
type MockAuditLogRepository struct {
	mu                     sync.Mutex
	Created                []*models.AuditLog
	CreateFunc             func(ctx context.Context, log *models.AuditLog) (*models.AuditLog, error)
	GetByTargetIDFunc      func(ctx context.Context, targetID string, limit, offset int) ([]*models.AuditLog, error)
	CountByTargetIDFunc    func(ctx context.Context, targetID string) (int64, error)
	GetRecentByEventTypeFn func(ctx context.Context, eventType string, limit int) ([]*models.AuditLog, error)
	CountSinceFunc         func(ctx context.Context, eventType string, since time.Time) (int64, error)
}

func (m *MockAuditLogRepository) Create(ctx context.Context, log *models.AuditLog) (*models.AuditLog, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, log)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Created = append(m.Created, log)
	return log, nil
}

func (m *MockAuditLogRepository) GetByTargetID(ctx context.Context, targetID string, limit, offset int) ([]*models.AuditLog, error) {
	if m.GetByTargetIDFunc != nil {
		return m.GetByTargetIDFunc(ctx, targetID, limit, offset)
	}
	return []*models.AuditLog{}, nil
}

func (m *MockAuditLogRepository) CountByTargetID(ctx context.Context, targetID string) (int64, error) {
	if m.CountByTargetIDFunc != nil {
		return m.CountByTargetIDFunc(ctx, targetID)
	}
	return 0, nil
}

func (m *MockAuditLogRepository) GetRecentByEventType(ctx context.Context, eventType string, limit int) ([]*models.AuditLog, error) {
	if m.GetRecentByEventTypeFn != nil {
		return m.GetRecentByEventTypeFn(ctx, eventType, limit)
	}
	return []*models.AuditLog{}, nil
}

func (m *MockAuditLogRepository) CountByEventTypeSince(ctx context.Context, eventType string, since time.Time) (int64, error) {
	if m.CountSinceFunc != nil {
		return m.CountSinceFunc(ctx, eventType, since)
	}
	return 0, nil
}

// MockRateLimitRepository implements RateLimitRepository for testing
type MockRateLimitRepository struct {
	mu               sync.Mutex
	Attempts         []*models.LoginAttempt
	IPCountFunc      func(ctx context.Context, ipAddress string, since time.Time) (int, error)
	DeviceCountFunc  func(ctx context.Context, fingerprint string, since time.Time) (int, error)
	RecordAttemptErr error
}

func (m *MockRateLimitRepository) RecordAttempt(ctx context.Context, attempt *models.LoginAttempt) error {
	if m.RecordAttemptErr != nil {
		return m.RecordAttemptErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Attempts = append(m.Attempts, attempt)
	return nil
}

func (m *MockRateLimitRepository) GetFailedAttemptCountByIP(ctx context.Context, ipAddress string, since time.Time) (int, error) {
	if m.IPCountFunc != nil {
		return m.IPCountFunc(ctx, ipAddress, since)
	}
	return 0, nil
}

func (m *MockRateLimitRepository) GetFailedAttemptCountByDevice(ctx context.Context, fingerprint string, since time.Time) (int, error) {
	if m.DeviceCountFunc != nil {
		return m.DeviceCountFunc(ctx, fingerprint, since)
	}
	return 0, nil
}

// MockEmailSender records sent messages
type MockEmailSender struct {
	mu       sync.Mutex
	Sent     []EmailMessage
	SendFunc func(ctx context.Context, msg EmailMessage) error
}

func (m *MockEmailSender) Send(ctx context.Context, msg EmailMessage) error {
	m.mu.Lock()
	m.Sent = append(m.Sent, msg)
	m.mu.Unlock()

	if m.SendFunc != nil {
		return m.SendFunc(ctx, msg)
	}
	return nil
}

// Messages returns a copy of the sent messages
func (m *MockEmailSender) Messages() []EmailMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]EmailMessage(nil), m.Sent...)
}

// MockSESClient implements SESClient for testing
type MockSESClient struct {
	Inputs        []*ses.SendEmailInput
	SendEmailFunc func(ctx context.Context, params *ses.SendEmailInput) (*ses.SendEmailOutput, error)
}

func (m *MockSESClient) SendEmail(ctx context.Context, params *ses.SendEmailInput, _ ...func(*ses.Options)) (*ses.SendEmailOutput, error) {
	m.Inputs = append(m.Inputs, params)
	if m.SendEmailFunc != nil {
		return m.SendEmailFunc(ctx, params)
	}
	return &ses.SendEmailOutput{MessageId: aws.String("test-message-id")}, nil
}

// MockTokenIssuer implements TokenIssuer for testing
type MockTokenIssuer struct {
	GenerateFunc func(userID, email, role string) (string, error)
}

func (m *MockTokenIssuer) GenerateAccessToken(userID, email, role string) (string, error) {
	if m.GenerateFunc != nil {
		return m.GenerateFunc(userID, email, role)
	}
	return "access-token-" + userID, nil
}

// NewTestUser creates an active user with the given password hash
func NewTestUser(id, email, passwordHash string) *models.User {
	return &models.User{
		ID:           id,
		Email:        email,
		PasswordHash: passwordHash,
		Name:         "Test User",
		Role:         models.RoleUser,
		Status:       models.UserStatusActive,
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}
}

// NewTestUserWithStatus creates a user with the given status
func NewTestUserWithStatus(id, email, status string) *models.User {
	user := NewTestUser(id, email, "")
	user.Status = status
	return user
}
