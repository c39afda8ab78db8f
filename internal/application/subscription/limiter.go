package subscription

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mpp365/backend/internal/domain/shared"
	"github.com/mpp365/backend/internal/domain/subscription"
	"go.uber.org/zap"
)

// TrialLimits bounds how many trials one origin may start
type TrialLimits struct {
	IPLimit    int
	EmailLimit int
	Window     time.Duration
}

// DefaultTrialLimits returns 3 trials per IP and 2 per e-mail every 30 days
func DefaultTrialLimits() TrialLimits {
	return TrialLimits{
		IPLimit:    3,
		EmailLimit: 2,
		Window:     30 * 24 * time.Hour,
	}
}

// TrialAttempt is the part of a sign-up the limiter looks at
type TrialAttempt struct {
	OriginIP    string
	TenantEmail string
	UserEmail   string
}

// Rejection reasons
const (
	ReasonBlockedIP   = "blocked_ip"
	ReasonIPLimit     = "ip_limit"
	ReasonTenantEmail = "tenant_email_used"
	ReasonUserEmail   = "user_email_used"
)

// TrialRejection is returned when a sign-up must not create a trial.
// It matches shared.DomainError code TRIAL_LIMIT through errors.Is.
type TrialRejection struct {
	Reason  string
	Message string
}

// ErrTrialLimit is the sentinel every TrialRejection matches
var ErrTrialLimit = shared.NewDomainError("TRIAL_LIMIT", "Trial limit reached")

func (r *TrialRejection) Error() string { return r.Message }

// Is implements errors.Is
func (r *TrialRejection) Is(target error) bool {
	return target == ErrTrialLimit
}

// DomainError exposes the rejection as a domain error for HTTP mapping
func (r *TrialRejection) DomainError() *shared.DomainError {
	return shared.NewDomainError(ErrTrialLimit.Code, r.Message)
}

// TrialLimiter checks a sign-up against the trial-abuse ledger.
// It only reads; recording the accepted attempt is the caller's job.
type TrialLimiter struct {
	records subscription.TrialAbuseRepository
	limits  TrialLimits
	now     func() time.Time
	logger  *zap.Logger
}

// NewTrialLimiter creates a new TrialLimiter
func NewTrialLimiter(records subscription.TrialAbuseRepository, limits TrialLimits, logger *zap.Logger) *TrialLimiter {
	def := DefaultTrialLimits()
	if limits.IPLimit <= 0 {
		limits.IPLimit = def.IPLimit
	}
	if limits.EmailLimit <= 0 {
		limits.EmailLimit = def.EmailLimit
	}
	if limits.Window <= 0 {
		limits.Window = def.Window
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TrialLimiter{
		records: records,
		limits:  limits,
		now:     time.Now,
		logger:  logger,
	}
}

// Limits returns the effective limits
func (l *TrialLimiter) Limits() TrialLimits {
	return l.limits
}

// Check returns nil when the attempt may start a trial and a *TrialRejection
// otherwise. A blocked IP is rejected before anything is counted.
func (l *TrialLimiter) Check(ctx context.Context, in TrialAttempt) error {
	ip := strings.TrimSpace(in.OriginIP)
	tenantEmail := subscription.NormalizeEmail(in.TenantEmail)
	userEmail := subscription.NormalizeEmail(in.UserEmail)
	since := l.now().Add(-l.limits.Window)

	if ip != "" {
		blocked, err := l.records.HasBlockedIP(ctx, ip)
		if err != nil {
			return fmt.Errorf("check blocked ip: %w", err)
		}
		if blocked {
			return l.reject(ReasonBlockedIP, "Registrations from your network are blocked. Please contact support.", ip)
		}

		n, err := l.records.CountByIPSince(ctx, ip, since)
		if err != nil {
			return fmt.Errorf("count trials by ip: %w", err)
		}
		if n >= int64(l.limits.IPLimit) {
			return l.reject(ReasonIPLimit,
				fmt.Sprintf("The monthly limit of %d trial registrations from your network has been reached.", l.limits.IPLimit), ip)
		}
	}

	if tenantEmail != "" {
		emails := []string{tenantEmail}
		if userEmail != "" && userEmail != tenantEmail {
			emails = append(emails, userEmail)
		}
		n, err := l.records.CountByTenantEmailSince(ctx, emails, since)
		if err != nil {
			return fmt.Errorf("count trials by tenant email: %w", err)
		}
		if n >= int64(l.limits.EmailLimit) {
			return l.reject(ReasonTenantEmail, "This e-mail address has already been used for a trial.", ip)
		}
	}

	if userEmail != "" {
		n, err := l.records.CountByAnyEmailSince(ctx, userEmail, since)
		if err != nil {
			return fmt.Errorf("count trials by user email: %w", err)
		}
		if n >= int64(l.limits.EmailLimit) {
			return l.reject(ReasonUserEmail, "This e-mail address has already been used for a trial.", ip)
		}
	}

	return nil
}

func (l *TrialLimiter) reject(reason, message, ip string) *TrialRejection {
	l.logger.Info("Trial registration rejected",
		zap.String("reason", reason),
		zap.String("origin_ip", ip))
	return &TrialRejection{Reason: reason, Message: message}
}
