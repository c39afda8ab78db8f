package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/mpp365/backend/internal/domain/identity"
)

// UserModel is the persistence model for the User aggregate
type UserModel struct {
	AggregateModel
	TenantID     *uuid.UUID    `gorm:"type:uuid;index"`
	Username     string        `gorm:"type:varchar(150);not null;uniqueIndex"`
	Email        string        `gorm:"type:varchar(254)"`
	FullName     string        `gorm:"type:varchar(200)"`
	Phone        string        `gorm:"type:varchar(50)"`
	PasswordHash string        `gorm:"type:varchar(255);not null"`
	Role         identity.Role `gorm:"type:varchar(20);not null;default:'readonly'"`
	Privileged   bool          `gorm:"not null;default:false"`
	Active       bool          `gorm:"not null;default:true"`
	LastLoginAt  *time.Time
}

// TableName returns the table name for GORM
func (UserModel) TableName() string {
	return "users"
}

// ToDomain converts the persistence model to a domain User
func (m *UserModel) ToDomain() *identity.User {
	return &identity.User{
		BaseAggregateRoot: m.ToDomainAggregateRoot(),
		TenantID:          m.TenantID,
		Username:          m.Username,
		Email:             m.Email,
		FullName:          m.FullName,
		Phone:             m.Phone,
		PasswordHash:      m.PasswordHash,
		Role:              m.Role,
		Privileged:        m.Privileged,
		Active:            m.Active,
		LastLoginAt:       m.LastLoginAt,
	}
}

// FromDomain populates the persistence model from a domain User
func (m *UserModel) FromDomain(u *identity.User) {
	m.FromDomainAggregateRoot(u.BaseAggregateRoot)
	m.TenantID = u.TenantID
	m.Username = u.Username
	m.Email = u.Email
	m.FullName = u.FullName
	m.Phone = u.Phone
	m.PasswordHash = u.PasswordHash
	m.Role = u.Role
	m.Privileged = u.Privileged
	m.Active = u.Active
	m.LastLoginAt = u.LastLoginAt
}

// UserModelFromDomain creates a new persistence model from a domain User
func UserModelFromDomain(u *identity.User) *UserModel {
	m := &UserModel{}
	m.FromDomain(u)
	return m
}
