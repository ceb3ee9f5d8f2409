package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/looplens/backend/internal/models"
	"github.com/looplens/backend/internal/services"
)

// accountContext carries the resolved tenant identity for one request.
type accountContext struct {
	UserID    uint
	AccountID string
	Org       *models.Organization
}

// resolveAccount maps the authenticated user to the account key their data
// lives under. Writes the error response and returns false on failure.
func resolveAccount(c *gin.Context, orgService *services.OrganizationService) (*accountContext, bool) {
	userID, exists := c.Get("userID")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid session."})
		return nil, false
	}
	id, ok := userID.(uint)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid session."})
		return nil, false
	}

	org, err := orgService.OrganizationForUser(id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to resolve account."})
		return nil, false
	}

	acct := &accountContext{UserID: id, Org: org}
	if org != nil {
		acct.AccountID = org.AccountID
	} else {
		acct.AccountID, err = orgService.AccountIDForUser(id)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to resolve account."})
			return nil, false
		}
	}
	return acct, true
}
