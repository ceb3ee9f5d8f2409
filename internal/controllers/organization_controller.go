package controllers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/looplens/backend/internal/logger"
	"github.com/looplens/backend/internal/services"
	"gorm.io/gorm"
)

type OrganizationController struct {
	db         *gorm.DB
	orgService *services.OrganizationService
}

func NewOrganizationController(db *gorm.DB, orgService *services.OrganizationService) *OrganizationController {
	return &OrganizationController{db: db, orgService: orgService}
}

type CreateOrganizationRequest struct {
	Name string `json:"name" binding:"required"`
}

// Create sets up an organization with a 14-day trial and makes the caller
// its owner. Idempotent: a user who already belongs to an organization
// gets that one back.
func (ctrl *OrganizationController) Create(c *gin.Context) {
	userID, exists := c.Get("userID")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid session."})
		return
	}

	var req CreateOrganizationRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Name) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Organization name is required."})
		return
	}

	org, created, err := ctrl.orgService.CreateOrganization(userID.(uint), strings.TrimSpace(req.Name))
	if err != nil {
		logger.WithError(err, "organization").Error("failed to create organization")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create organization."})
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
		logger.Info("organization created", map[string]interface{}{"org_id": org.ID, "user_id": userID})
	}
	c.JSON(status, gin.H{"organization": org, "created": created})
}

// Me returns the caller's organization (nil for legacy users) plus whether
// uploads and generation are currently allowed.
func (ctrl *OrganizationController) Me(c *gin.Context) {
	acct, ok := resolveAccount(c, ctrl.orgService)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"organization": acct.Org,
		"account_id":   acct.AccountID,
		"can_upload":   services.CanUploadOrGenerate(acct.Org),
	})
}
