package subscription

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/mpp365/backend/internal/domain/shared"
	"github.com/mpp365/backend/internal/domain/subscription"
)

// MockTrialAbuseRepository is a mock implementation of subscription.TrialAbuseRepository
type MockTrialAbuseRepository struct {
	mock.Mock
}

func (m *MockTrialAbuseRepository) Create(ctx context.Context, record *subscription.TrialAbuseRecord) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

func (m *MockTrialAbuseRepository) FindByID(ctx context.Context, id uuid.UUID) (*subscription.TrialAbuseRecord, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*subscription.TrialAbuseRecord), args.Error(1)
}

func (m *MockTrialAbuseRepository) HasBlockedIP(ctx context.Context, ip string) (bool, error) {
	args := m.Called(ctx, ip)
	return args.Bool(0), args.Error(1)
}

func (m *MockTrialAbuseRepository) CountByIPSince(ctx context.Context, ip string, since time.Time) (int64, error) {
	args := m.Called(ctx, ip, since)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockTrialAbuseRepository) CountByTenantEmailSince(ctx context.Context, emails []string, since time.Time) (int64, error) {
	args := m.Called(ctx, emails, since)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockTrialAbuseRepository) CountByAnyEmailSince(ctx context.Context, email string, since time.Time) (int64, error) {
	args := m.Called(ctx, email, since)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockTrialAbuseRepository) Block(ctx context.Context, id uuid.UUID, reason string) error {
	args := m.Called(ctx, id, reason)
	return args.Error(0)
}

func (m *MockTrialAbuseRepository) BlockIP(ctx context.Context, ip, reason string) (int64, error) {
	args := m.Called(ctx, ip, reason)
	return args.Get(0).(int64), args.Error(1)
}

var limiterNow = time.Date(2025, 3, 15, 12, 0, 0, 0, time.UTC)

func newTestLimiter(repo *MockTrialAbuseRepository) *TrialLimiter {
	l := NewTrialLimiter(repo, DefaultTrialLimits(), nil)
	l.now = func() time.Time { return limiterNow }
	return l
}

func testAttempt() TrialAttempt {
	return TrialAttempt{
		OriginIP:    "190.5.1.20",
		TenantEmail: "Info@Acme.hn",
		UserEmail:   "ana@acme.hn",
	}
}

func TestTrialLimiter_Check(t *testing.T) {
	ctx := context.Background()
	since := limiterNow.Add(-30 * 24 * time.Hour)

	t.Run("accepts under every limit", func(t *testing.T) {
		repo := new(MockTrialAbuseRepository)
		repo.On("HasBlockedIP", ctx, "190.5.1.20").Return(false, nil)
		repo.On("CountByIPSince", ctx, "190.5.1.20", since).Return(int64(2), nil)
		repo.On("CountByTenantEmailSince", ctx, []string{"info@acme.hn", "ana@acme.hn"}, since).Return(int64(1), nil)
		repo.On("CountByAnyEmailSince", ctx, "ana@acme.hn", since).Return(int64(1), nil)

		require.NoError(t, newTestLimiter(repo).Check(ctx, testAttempt()))
		repo.AssertExpectations(t)
		repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("blocked ip short-circuits before counting", func(t *testing.T) {
		repo := new(MockTrialAbuseRepository)
		repo.On("HasBlockedIP", ctx, "190.5.1.20").Return(true, nil)

		err := newTestLimiter(repo).Check(ctx, testAttempt())

		var rej *TrialRejection
		require.ErrorAs(t, err, &rej)
		assert.Equal(t, ReasonBlockedIP, rej.Reason)
		assert.Contains(t, rej.Message, "contact support")
		repo.AssertNotCalled(t, "CountByIPSince", mock.Anything, mock.Anything, mock.Anything)
		repo.AssertNotCalled(t, "CountByTenantEmailSince", mock.Anything, mock.Anything, mock.Anything)
		repo.AssertNotCalled(t, "CountByAnyEmailSince", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("ip at limit is rejected", func(t *testing.T) {
		repo := new(MockTrialAbuseRepository)
		repo.On("HasBlockedIP", ctx, "190.5.1.20").Return(false, nil)
		repo.On("CountByIPSince", ctx, "190.5.1.20", since).Return(int64(3), nil)

		err := newTestLimiter(repo).Check(ctx, testAttempt())

		var rej *TrialRejection
		require.ErrorAs(t, err, &rej)
		assert.Equal(t, ReasonIPLimit, rej.Reason)
		assert.True(t, errors.Is(err, ErrTrialLimit))
		repo.AssertNotCalled(t, "CountByTenantEmailSince", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("tenant email used twice is rejected", func(t *testing.T) {
		repo := new(MockTrialAbuseRepository)
		repo.On("HasBlockedIP", ctx, "190.5.1.20").Return(false, nil)
		repo.On("CountByIPSince", ctx, "190.5.1.20", since).Return(int64(0), nil)
		repo.On("CountByTenantEmailSince", ctx, []string{"info@acme.hn", "ana@acme.hn"}, since).Return(int64(2), nil)

		err := newTestLimiter(repo).Check(ctx, testAttempt())

		var rej *TrialRejection
		require.ErrorAs(t, err, &rej)
		assert.Equal(t, ReasonTenantEmail, rej.Reason)
		repo.AssertNotCalled(t, "CountByAnyEmailSince", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("user email used twice is rejected", func(t *testing.T) {
		repo := new(MockTrialAbuseRepository)
		repo.On("HasBlockedIP", ctx, "190.5.1.20").Return(false, nil)
		repo.On("CountByIPSince", ctx, "190.5.1.20", since).Return(int64(0), nil)
		repo.On("CountByTenantEmailSince", ctx, mock.Anything, since).Return(int64(0), nil)
		repo.On("CountByAnyEmailSince", ctx, "ana@acme.hn", since).Return(int64(2), nil)

		err := newTestLimiter(repo).Check(ctx, testAttempt())

		var rej *TrialRejection
		require.ErrorAs(t, err, &rej)
		assert.Equal(t, ReasonUserEmail, rej.Reason)
	})

	t.Run("same tenant and user email is counted once", func(t *testing.T) {
		repo := new(MockTrialAbuseRepository)
		repo.On("HasBlockedIP", ctx, "190.5.1.20").Return(false, nil)
		repo.On("CountByIPSince", ctx, "190.5.1.20", since).Return(int64(0), nil)
		repo.On("CountByTenantEmailSince", ctx, []string{"ana@acme.hn"}, since).Return(int64(0), nil)
		repo.On("CountByAnyEmailSince", ctx, "ana@acme.hn", since).Return(int64(0), nil)

		in := testAttempt()
		in.TenantEmail = "ANA@acme.hn"
		require.NoError(t, newTestLimiter(repo).Check(ctx, in))
		repo.AssertExpectations(t)
	})

	t.Run("repository errors are wrapped", func(t *testing.T) {
		repo := new(MockTrialAbuseRepository)
		boom := errors.New("db down")
		repo.On("HasBlockedIP", ctx, "190.5.1.20").Return(false, boom)

		err := newTestLimiter(repo).Check(ctx, testAttempt())
		require.Error(t, err)
		assert.ErrorIs(t, err, boom)
		assert.False(t, errors.Is(err, ErrTrialLimit))
	})
}

func TestTrialRejection_DomainError(t *testing.T) {
	rej := &TrialRejection{Reason: ReasonIPLimit, Message: "limit reached"}
	de := rej.DomainError()
	assert.Equal(t, "TRIAL_LIMIT", de.Code)
	assert.Equal(t, "limit reached", de.Message)
	assert.False(t, errors.Is(rej, shared.ErrNotFound))
}

func TestNewTrialLimiter_Defaults(t *testing.T) {
	l := NewTrialLimiter(new(MockTrialAbuseRepository), TrialLimits{IPLimit: 5}, nil)
	assert.Equal(t, 5, l.Limits().IPLimit)
	assert.Equal(t, 2, l.Limits().EmailLimit)
	assert.Equal(t, 30*24*time.Hour, l.Limits().Window)
}
