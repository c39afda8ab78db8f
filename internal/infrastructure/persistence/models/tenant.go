package models

import (
	"time"

	"github.com/mpp365/backend/internal/domain/identity"
	"github.com/mpp365/backend/internal/domain/subscription"
)

// TenantModel is the persistence model for the Tenant aggregate
type TenantModel struct {
	AggregateModel
	Name                   string              `gorm:"type:varchar(200);not null"`
	Slug                   string              `gorm:"type:varchar(220);not null;uniqueIndex"`
	TaxID                  string              `gorm:"column:tax_id;type:varchar(20)"`
	Email                  string              `gorm:"type:varchar(254)"`
	Phone                  string              `gorm:"type:varchar(30)"`
	Address                string              `gorm:"type:text"`
	Active                 bool                `gorm:"not null;default:true"`
	SubscriptionType       subscription.Type   `gorm:"type:varchar(20);not null;default:'trial'"`
	SubscriptionStatus     subscription.Status `gorm:"type:varchar(20);not null;default:'trial';index"`
	SubscriptionStart      *time.Time          `gorm:"type:date"`
	SubscriptionExpiration *time.Time          `gorm:"type:date;index"`
	SetupFeePaid           bool                `gorm:"not null;default:false"`
	EquipmentIncluded      bool                `gorm:"not null;default:false"`
	RegistrationIP         string              `gorm:"column:registration_ip;type:varchar(45)"`
	ChosenPlan             string              `gorm:"type:varchar(50)"`
}

// TableName returns the table name for GORM
func (TenantModel) TableName() string {
	return "tenants"
}

// ToDomain converts the persistence model to a domain Tenant
func (m *TenantModel) ToDomain() *identity.Tenant {
	return &identity.Tenant{
		BaseAggregateRoot:      m.ToDomainAggregateRoot(),
		Name:                   m.Name,
		Slug:                   m.Slug,
		TaxID:                  m.TaxID,
		Email:                  m.Email,
		Phone:                  m.Phone,
		Address:                m.Address,
		Active:                 m.Active,
		SubscriptionType:       m.SubscriptionType,
		SubscriptionStatus:     m.SubscriptionStatus,
		SubscriptionStart:      datePtr(m.SubscriptionStart),
		SubscriptionExpiration: datePtr(m.SubscriptionExpiration),
		SetupFeePaid:           m.SetupFeePaid,
		EquipmentIncluded:      m.EquipmentIncluded,
		RegistrationIP:         m.RegistrationIP,
		ChosenPlan:             m.ChosenPlan,
	}
}

// FromDomain populates the persistence model from a domain Tenant
func (m *TenantModel) FromDomain(t *identity.Tenant) {
	m.FromDomainAggregateRoot(t.BaseAggregateRoot)
	m.Name = t.Name
	m.Slug = t.Slug
	m.TaxID = t.TaxID
	m.Email = t.Email
	m.Phone = t.Phone
	m.Address = t.Address
	m.Active = t.Active
	m.SubscriptionType = t.SubscriptionType
	m.SubscriptionStatus = t.SubscriptionStatus
	m.SubscriptionStart = datePtr(t.SubscriptionStart)
	m.SubscriptionExpiration = datePtr(t.SubscriptionExpiration)
	m.SetupFeePaid = t.SetupFeePaid
	m.EquipmentIncluded = t.EquipmentIncluded
	m.RegistrationIP = t.RegistrationIP
	m.ChosenPlan = t.ChosenPlan
}

// TenantModelFromDomain creates a new persistence model from a domain Tenant
func TenantModelFromDomain(t *identity.Tenant) *TenantModel {
	m := &TenantModel{}
	m.FromDomain(t)
	return m
}
