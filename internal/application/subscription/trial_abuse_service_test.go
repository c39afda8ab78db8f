package subscription

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mpp365/backend/internal/domain/shared"
	"github.com/mpp365/backend/internal/domain/subscription"
	"github.com/mpp365/backend/internal/infrastructure/persistence"
)

func TestTrialAbuseService_BlocksFeedTheLimiter(t *testing.T) {
	ctx := context.Background()
	repo := persistence.NewGormTrialAbuseRepository(newTestDB(t))
	svc := NewTrialAbuseService(repo, nil)
	limiter := NewTrialLimiter(repo, DefaultTrialLimits(), nil)

	attempt := TrialAttempt{OriginIP: "201.220.1.1", TenantEmail: "a@x.hn", UserEmail: "b@x.hn"}
	require.NoError(t, limiter.Check(ctx, attempt), "no records yet")

	n, err := svc.BlockIP(ctx, "201.220.1.1", "chargeback fraud")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	err = limiter.Check(ctx, attempt)
	var rej *TrialRejection
	require.ErrorAs(t, err, &rej)
	assert.Equal(t, ReasonBlockedIP, rej.Reason)

	record := subscription.NewTrialAbuseRecord("10.1.1.1", "c@x.hn", "d@x.hn", "0801", nil)
	require.NoError(t, repo.Create(ctx, record))
	require.NoError(t, svc.BlockRecord(ctx, record.ID, "duplicate tax id"))
	blocked, err := repo.HasBlockedIP(ctx, "10.1.1.1")
	require.NoError(t, err)
	assert.True(t, blocked)

	assert.ErrorIs(t, svc.BlockRecord(ctx, uuid.New(), "x"), shared.ErrNotFound)
	_, err = svc.BlockIP(ctx, " ", "x")
	assert.ErrorIs(t, err, shared.ErrInvalidInput)
}
