package services

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/looplens/backend/internal/models"
	"gorm.io/gorm"
)

// OrganizationService resolves the account key for a user and gates uploads
// and generation on trial/subscription state.
type OrganizationService struct {
	db *gorm.DB
}

func NewOrganizationService(db *gorm.DB) *OrganizationService {
	return &OrganizationService{db: db}
}

// OrganizationForUser returns the user's organization via their first
// membership, or nil when they have none.
func (s *OrganizationService) OrganizationForUser(userID uint) (*models.Organization, error) {
	var member models.OrganizationMember
	err := s.db.Where("user_id = ?", userID).Order("id").First(&member).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up organization membership: %w", err)
	}

	var org models.Organization
	if err := s.db.First(&org, member.OrganizationID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load organization: %w", err)
	}
	return &org, nil
}

// AccountIDForUser returns the key under which the user's data lives:
// the organization's account key, or a legacy per-user key for users
// without an organization.
func (s *OrganizationService) AccountIDForUser(userID uint) (string, error) {
	org, err := s.OrganizationForUser(userID)
	if err != nil {
		return "", err
	}
	if org != nil {
		return org.AccountID, nil
	}
	return fmt.Sprintf("user:%d", userID), nil
}

// CanUploadOrGenerate reports whether the organization may upload logs or
// run generation. Users without an organization are allowed (legacy).
func CanUploadOrGenerate(org *models.Organization) bool {
	if org == nil {
		return true
	}
	if org.TrialEndsAt != nil && time.Now().UTC().Before(org.TrialEndsAt.UTC()) {
		return true
	}
	status := strings.ToLower(strings.TrimSpace(org.SubscriptionStatus))
	return status == "active" || status == "trialing"
}

var slugPattern = regexp.MustCompile(`[^a-z0-9]+`)

func slugFromName(name string) string {
	slug := strings.Trim(slugPattern.ReplaceAllString(strings.ToLower(name), "-"), "-")
	if slug == "" {
		slug = "org"
	}
	return truncateRunes(slug, 64)
}

// CreateOrganization creates an organization with a 14-day trial and makes
// the user its owner. Returns the existing organization when the user is
// already a member of one.
func (s *OrganizationService) CreateOrganization(userID uint, name string) (*models.Organization, bool, error) {
	existing, err := s.OrganizationForUser(userID)
	if err != nil {
		return nil, false, err
	}
	if existing != nil {
		return existing, false, nil
	}

	trialEnds := time.Now().UTC().Add(14 * 24 * time.Hour)
	org := models.Organization{
		AccountID:          uuid.NewString(),
		Name:               name,
		Slug:               slugFromName(name),
		TrialEndsAt:        &trialEnds,
		SubscriptionStatus: "trialing",
	}
	if err := s.db.Create(&org).Error; err != nil {
		return nil, false, fmt.Errorf("failed to create organization: %w", err)
	}

	member := models.OrganizationMember{
		OrganizationID: org.ID,
		UserID:         userID,
		Role:           "owner",
	}
	if err := s.db.Create(&member).Error; err != nil {
		return nil, false, fmt.Errorf("failed to create organization membership: %w", err)
	}
	return &org, true, nil
}
