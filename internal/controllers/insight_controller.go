package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/looplens/backend/internal/config"
	"github.com/looplens/backend/internal/logger"
	"github.com/looplens/backend/internal/models"
	"github.com/looplens/backend/internal/services"
	"gorm.io/gorm"
)

type InsightController struct {
	db         *gorm.DB
	cfg        *config.Config
	engine     *services.InsightEngine
	orgService *services.OrganizationService
	limiter    *services.RateLimiter
}

func NewInsightController(db *gorm.DB, cfg *config.Config, engine *services.InsightEngine, orgService *services.OrganizationService, limiter *services.RateLimiter) *InsightController {
	return &InsightController{db: db, cfg: cfg, engine: engine, orgService: orgService, limiter: limiter}
}

// Generate runs the insight engine over the account's logs and stores the
// resulting failure patterns. A provider failure aborts the run with no
// partial writes.
func (ctrl *InsightController) Generate(c *gin.Context) {
	requestID := uuid.NewString()[:8]
	acct, ok := resolveAccount(c, ctrl.orgService)
	if !ok {
		return
	}
	if acct.Org != nil && !services.CanUploadOrGenerate(acct.Org) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Trial ended. Subscribe to generate insights ($20/month)."})
		return
	}
	if !ctrl.limiter.Allow(acct.AccountID, "insights/generate") {
		logger.WithAccount(acct.AccountID, requestID).Warn("insight generation rate limited")
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "Too many requests. Please try again in a few minutes."})
		return
	}

	var logs []models.AILog
	if err := ctrl.db.Where("account_id = ?", acct.AccountID).Find(&logs).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load logs."})
		return
	}
	if len(logs) == 0 {
		c.JSON(http.StatusOK, gin.H{"ok": true, "count": 0, "insights": []models.Insight{}, "message": "No logs to analyze. Upload AI logs first."})
		return
	}

	insights, err := ctrl.engine.Run(c.Request.Context(), logs, acct.AccountID)
	if err != nil {
		if errors.Is(err, services.ErrProviderUnavailable) {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Insight generation not configured."})
			return
		}
		logger.WithError(err, "insight_engine").WithField("account_id", acct.AccountID).WithField("request_id", requestID).Error("insight generation failed")
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Insight generation failed. Please try again later."})
		return
	}
	if len(insights) == 0 {
		logger.WithAccount(acct.AccountID, requestID).Info("no negative feedback patterns found")
		c.JSON(http.StatusOK, gin.H{"ok": true, "count": 0, "insights": []models.Insight{}, "message": "No negative feedback patterns found in your logs."})
		return
	}

	if err := ctrl.db.CreateInBatches(insights, insertBatchSize).Error; err != nil {
		logger.WithError(err, "insight_engine").Error("failed to store insights")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to store insights."})
		return
	}
	logger.WithAccount(acct.AccountID, requestID).WithField("count", len(insights)).Info("insights generated")
	c.JSON(http.StatusOK, gin.H{"ok": true, "count": len(insights), "insights": insights})
}

// List returns the account's insights, newest first.
func (ctrl *InsightController) List(c *gin.Context) {
	acct, ok := resolveAccount(c, ctrl.orgService)
	if !ok {
		return
	}
	var insights []models.Insight
	if err := ctrl.db.Where("account_id = ?", acct.AccountID).Order("created_at DESC").Find(&insights).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load insights."})
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": insights})
}
