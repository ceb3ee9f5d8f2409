package models

import (
	"time"
)

// Organization owns an account's data. New organizations start a 14-day
// trial; after that the subscription status gates uploads and generation.
type Organization struct {
	ID                 uint       `json:"id" gorm:"primaryKey"`
	AccountID          string     `json:"accountId" gorm:"uniqueIndex;not null"`
	Name               string     `json:"name" gorm:"not null"`
	Slug               string     `json:"slug" gorm:"not null"`
	TrialEndsAt        *time.Time `json:"trialEndsAt"`
	SubscriptionStatus string     `json:"subscriptionStatus" gorm:"default:'trialing'"` // trialing, active, canceled, past_due
	StripeCustomerID   *string    `json:"-"`
	CreatedAt          time.Time  `json:"createdAt"`
	UpdatedAt          time.Time  `json:"updatedAt"`
}

type OrganizationMember struct {
	ID             uint      `json:"id" gorm:"primaryKey"`
	OrganizationID uint      `json:"organizationId" gorm:"not null;index"`
	UserID         uint      `json:"userId" gorm:"not null;index"`
	Role           string    `json:"role" gorm:"not null;default:'owner'"`
	CreatedAt      time.Time `json:"createdAt"`

	Organization *Organization `json:"organization,omitempty" gorm:"foreignKey:OrganizationID"`
}

func (Organization) TableName() string {
	return "organizations"
}

func (OrganizationMember) TableName() string {
	return "organization_members"
}
