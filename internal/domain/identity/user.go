package identity

import (
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/mpp365/backend/internal/domain/shared"
)

// Password cost for bcrypt
const bcryptCost = 12

var (
	usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_\-.@]+$`)
	emailPattern    = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
)

var ErrUserWithoutTenant = shared.NewDomainError("USER_WITHOUT_TENANT", "Only privileged operators may exist without a tenant")

// User is an account that signs in. Every user except the privileged
// operator belongs to exactly one tenant.
type User struct {
	shared.BaseAggregateRoot
	TenantID     *uuid.UUID
	Username     string
	Email        string
	FullName     string
	Phone        string
	PasswordHash string
	Role         Role
	Privileged   bool
	Active       bool
	LastLoginAt  *time.Time
}

// NewUser creates a tenant user
func NewUser(tenantID uuid.UUID, username, password string, role Role) (*User, error) {
	if tenantID == uuid.Nil {
		return nil, ErrUserWithoutTenant
	}
	if !role.IsValid() {
		return nil, shared.NewDomainError("INVALID_ROLE", "Unknown role: "+string(role))
	}
	u, err := newUser(username, password)
	if err != nil {
		return nil, err
	}
	tid := tenantID
	u.TenantID = &tid
	u.Role = role
	u.AddDomainEvent(NewUserCreatedEvent(u))
	return u, nil
}

// NewOperator creates the privileged back-office operator
func NewOperator(username, password string) (*User, error) {
	u, err := newUser(username, password)
	if err != nil {
		return nil, err
	}
	u.Role = RoleOwner
	u.Privileged = true
	u.AddDomainEvent(NewUserCreatedEvent(u))
	return u, nil
}

func newUser(username, password string) (*User, error) {
	if err := validateUsername(username); err != nil {
		return nil, err
	}
	if err := validatePassword(password); err != nil {
		return nil, err
	}
	hash, err := hashPassword(password)
	if err != nil {
		return nil, shared.NewDomainError("PASSWORD_HASH_ERROR", "Failed to hash password")
	}
	return &User{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Username:          strings.ToLower(strings.TrimSpace(username)),
		PasswordHash:      hash,
		Active:            true,
	}, nil
}

// SetProfile sets the contact details
func (u *User) SetProfile(fullName, email, phone string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if email != "" {
		if err := validateEmail(email); err != nil {
			return err
		}
	}
	if len(fullName) > 200 {
		return shared.NewDomainError("INVALID_NAME", "Full name cannot exceed 200 characters")
	}
	if len(phone) > 50 {
		return shared.NewDomainError("INVALID_PHONE", "Phone cannot exceed 50 characters")
	}
	u.FullName = strings.TrimSpace(fullName)
	u.Email = email
	u.Phone = strings.TrimSpace(phone)
	u.Touch()
	u.IncrementVersion()
	return nil
}

// SetPassword replaces the password hash
func (u *User) SetPassword(password string) error {
	if err := validatePassword(password); err != nil {
		return err
	}
	hash, err := hashPassword(password)
	if err != nil {
		return shared.NewDomainError("PASSWORD_HASH_ERROR", "Failed to hash password")
	}
	u.PasswordHash = hash
	u.Touch()
	u.IncrementVersion()
	return nil
}

// VerifyPassword checks the password against the stored hash
func (u *User) VerifyPassword(password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) == nil
}

// RecordLogin stamps a successful sign-in
func (u *User) RecordLogin(at time.Time) {
	u.LastLoginAt = &at
	u.Touch()
}

// Deactivate disables sign-in
func (u *User) Deactivate() {
	u.Active = false
	u.Touch()
	u.IncrementVersion()
}

// CanLogin checks whether the account may sign in
func (u *User) CanLogin() bool {
	return u.Active
}

// Validate checks the tenant invariant of a loaded user
func (u *User) Validate() error {
	if !u.Privileged && (u.TenantID == nil || *u.TenantID == uuid.Nil) {
		return ErrUserWithoutTenant
	}
	return nil
}

// Principal returns the request identity of this user
func (u *User) Principal(tenantSlug string) *Principal {
	p := &Principal{
		UserID:     u.ID,
		TenantSlug: tenantSlug,
		Username:   u.Username,
		Role:       u.Role,
		Privileged: u.Privileged,
	}
	if u.TenantID != nil {
		tid := *u.TenantID
		p.TenantID = &tid
	}
	return p
}

func validateUsername(username string) error {
	username = strings.TrimSpace(username)
	if username == "" {
		return shared.NewDomainError("INVALID_USERNAME", "Username cannot be empty")
	}
	if len(username) < 3 {
		return shared.NewDomainError("INVALID_USERNAME", "Username must be at least 3 characters")
	}
	if len(username) > 150 {
		return shared.NewDomainError("INVALID_USERNAME", "Username cannot exceed 150 characters")
	}
	if !usernamePattern.MatchString(username) {
		return shared.NewDomainError("INVALID_USERNAME", "Username can only contain letters, numbers, @, underscores, hyphens, and dots")
	}
	return nil
}

func validatePassword(password string) error {
	if len(password) < 8 {
		return shared.NewDomainError("INVALID_PASSWORD", "Password must be at least 8 characters")
	}
	if len(password) > 72 {
		return shared.NewDomainError("INVALID_PASSWORD", "Password cannot exceed 72 characters")
	}
	return nil
}

func validateEmail(email string) error {
	if len(email) > 200 {
		return shared.NewDomainError("INVALID_EMAIL", "Email cannot exceed 200 characters")
	}
	if !emailPattern.MatchString(email) {
		return shared.NewDomainError("INVALID_EMAIL", "Invalid email format")
	}
	return nil
}

func hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
