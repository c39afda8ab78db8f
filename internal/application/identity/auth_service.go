package identity

import (
	"context"
	"errors"
	"time"

	"github.com/mpp365/backend/internal/domain/identity"
	"github.com/mpp365/backend/internal/domain/shared"
	"github.com/mpp365/backend/internal/infrastructure/auth"
	"go.uber.org/zap"
)

var (
	ErrInvalidCredentials = shared.NewDomainError("INVALID_CREDENTIALS", "Invalid username or password")
	ErrAccountInactive    = shared.NewDomainError("ACCOUNT_DEACTIVATED", "Account has been deactivated")
	ErrTenantInactive     = shared.NewDomainError("TENANT_INACTIVE", "The company account is disabled")
	ErrTokenInvalid       = shared.NewDomainError("TOKEN_INVALID", "Invalid or expired token")
)

// AuthService handles authentication operations
type AuthService struct {
	userRepo   identity.UserRepository
	tenantRepo identity.TenantRepository
	jwtService *auth.JWTService
	blacklist  auth.TokenBlacklist
	logger     *zap.Logger
}

// NewAuthService creates a new authentication service
func NewAuthService(
	userRepo identity.UserRepository,
	tenantRepo identity.TenantRepository,
	jwtService *auth.JWTService,
	blacklist auth.TokenBlacklist,
	logger *zap.Logger,
) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthService{
		userRepo:   userRepo,
		tenantRepo: tenantRepo,
		jwtService: jwtService,
		blacklist:  blacklist,
		logger:     logger,
	}
}

// Login authenticates a user and returns tokens
func (s *AuthService) Login(ctx context.Context, input LoginInput) (*LoginResult, error) {
	s.logger.Info("Login attempt", zap.String("username", input.Username))

	user, err := s.userRepo.FindByUsername(ctx, input.Username)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			s.logger.Warn("User not found during login", zap.String("username", input.Username))
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if !user.VerifyPassword(input.Password) {
		s.logger.Warn("Invalid password attempt", zap.String("username", input.Username))
		return nil, ErrInvalidCredentials
	}
	if !user.CanLogin() {
		s.logger.Warn("Login attempt for deactivated account", zap.String("username", input.Username))
		return nil, ErrAccountInactive
	}

	slug, err := s.tenantSlug(ctx, user)
	if err != nil {
		return nil, err
	}

	principal := user.Principal(slug)
	tokens, err := s.jwtService.GenerateTokenPair(principal)
	if err != nil {
		s.logger.Error("Failed to generate token pair", zap.Error(err))
		return nil, err
	}

	if err := s.userRepo.RecordLogin(ctx, user.ID, time.Now()); err != nil {
		// Don't fail the login - just log the error
		s.logger.Error("Failed to record login", zap.Error(err))
	}

	s.logger.Info("User logged in successfully",
		zap.String("username", user.Username),
		zap.String("user_id", user.ID.String()),
		zap.String("ip", input.IP))

	return &LoginResult{Tokens: tokens, User: toUserInfo(user, slug)}, nil
}

// tenantSlug resolves the user's tenant. A tenant user whose tenant row is
// missing is a data-integrity bug and is reported as such.
func (s *AuthService) tenantSlug(ctx context.Context, user *identity.User) (string, error) {
	if user.TenantID == nil {
		if !user.Privileged {
			s.logger.Error("Non-privileged user has no tenant", zap.String("user_id", user.ID.String()))
			return "", identity.ErrUserWithoutTenant
		}
		return "", nil
	}
	tenant, err := s.tenantRepo.FindByID(ctx, *user.TenantID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			s.logger.Error("User references a missing tenant",
				zap.String("user_id", user.ID.String()),
				zap.String("tenant_id", user.TenantID.String()))
			return "", identity.ErrUserWithoutTenant
		}
		return "", err
	}
	if !tenant.Active && !user.Privileged {
		return "", ErrTenantInactive
	}
	return tenant.Slug, nil
}

// Refresh exchanges a refresh token for a new pair and revokes the old one
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*LoginResult, error) {
	claims, err := s.jwtService.ValidateRefreshToken(refreshToken)
	if err != nil {
		s.logger.Warn("Refresh token validation failed", zap.Error(err))
		return nil, ErrTokenInvalid
	}
	revoked, err := s.blacklist.IsRevoked(ctx, claims.ID)
	if err != nil {
		return nil, err
	}
	if revoked {
		return nil, ErrTokenInvalid
	}

	p, err := claims.Principal()
	if err != nil {
		return nil, ErrTokenInvalid
	}
	user, err := s.userRepo.FindByID(ctx, p.UserID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, ErrTokenInvalid
		}
		return nil, err
	}
	if !user.CanLogin() {
		return nil, ErrAccountInactive
	}
	slug, err := s.tenantSlug(ctx, user)
	if err != nil {
		return nil, err
	}

	tokens, err := s.jwtService.GenerateTokenPair(user.Principal(slug))
	if err != nil {
		return nil, err
	}
	if err := s.blacklist.Revoke(ctx, claims.ID, claims.RemainingTTL()); err != nil {
		s.logger.Warn("Failed to revoke rotated refresh token", zap.Error(err))
	}
	return &LoginResult{Tokens: tokens, User: toUserInfo(user, slug)}, nil
}

// Logout revokes the session's access token and, when given, its refresh token
func (s *AuthService) Logout(ctx context.Context, input LogoutInput) error {
	if input.AccessTokenID != "" {
		if err := s.blacklist.Revoke(ctx, input.AccessTokenID, input.AccessTokenTTL); err != nil {
			return err
		}
	}
	if input.RefreshToken != "" {
		claims, err := s.jwtService.ValidateRefreshToken(input.RefreshToken)
		if err == nil {
			if err := s.blacklist.Revoke(ctx, claims.ID, claims.RemainingTTL()); err != nil {
				return err
			}
		}
	}
	return nil
}

// IssueTokens signs a session for an already authenticated user
func (s *AuthService) IssueTokens(user *identity.User, tenantSlug string) (*auth.TokenPair, error) {
	return s.jwtService.GenerateTokenPair(user.Principal(tenantSlug))
}

func toUserInfo(u *identity.User, slug string) UserInfo {
	info := UserInfo{
		ID:         u.ID,
		TenantID:   u.TenantID,
		TenantSlug: slug,
		Username:   u.Username,
		FullName:   u.FullName,
		Email:      u.Email,
		Role:       u.Role,
		Privileged: u.Privileged,
	}
	switch {
	case u.Privileged:
		info.Home = "/select-tenant/"
	case slug != "":
		info.Home = "/" + slug + "/"
	default:
		info.Home = "/login/"
	}
	return info
}
