package subscription

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/mpp365/backend/internal/domain/shared"
	"github.com/mpp365/backend/internal/domain/subscription"
	"go.uber.org/zap"
)

// TrialAbuseService is the administrator side of the trial-abuse ledger
type TrialAbuseService struct {
	records subscription.TrialAbuseRepository
	logger  *zap.Logger
}

// NewTrialAbuseService creates a new TrialAbuseService
func NewTrialAbuseService(records subscription.TrialAbuseRepository, logger *zap.Logger) *TrialAbuseService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TrialAbuseService{records: records, logger: logger}
}

// BlockRecord flags one ledger record, banning its origin IP
func (s *TrialAbuseService) BlockRecord(ctx context.Context, id uuid.UUID, reason string) error {
	if err := s.records.Block(ctx, id, strings.TrimSpace(reason)); err != nil {
		return err
	}
	s.logger.Info("Trial record blocked", zap.String("record_id", id.String()))
	return nil
}

// BlockIP bans an origin IP from starting new trials
func (s *TrialAbuseService) BlockIP(ctx context.Context, ip, reason string) (int64, error) {
	ip = strings.TrimSpace(ip)
	if ip == "" {
		return 0, shared.NewDomainError("INVALID_INPUT", "IP address is required")
	}
	n, err := s.records.BlockIP(ctx, ip, strings.TrimSpace(reason))
	if err != nil {
		return 0, err
	}
	s.logger.Info("Origin IP blocked for trials",
		zap.String("origin_ip", ip),
		zap.Int64("records", n))
	return n, nil
}
