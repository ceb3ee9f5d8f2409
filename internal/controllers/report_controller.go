package controllers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/looplens/backend/internal/logger"
	"github.com/looplens/backend/internal/models"
	"github.com/looplens/backend/internal/services"
	"gorm.io/gorm"
)

// reportWindow is how far back the weekly report looks for cards.
const reportWindow = 14 * 24 * time.Hour

type ReportController struct {
	db         *gorm.DB
	composer   *services.ReportComposer
	orgService *services.OrganizationService
}

func NewReportController(db *gorm.DB, composer *services.ReportComposer, orgService *services.OrganizationService) *ReportController {
	return &ReportController{db: db, composer: composer, orgService: orgService}
}

// Weekly composes the weekly report from Decision Cards created in the
// trailing two weeks. Reports are derived on demand and never stored.
func (ctrl *ReportController) Weekly(c *gin.Context) {
	acct, ok := resolveAccount(c, ctrl.orgService)
	if !ok {
		return
	}
	since := time.Now().UTC().Add(-reportWindow)
	var cards []models.DecisionCard
	if err := ctrl.db.Where("account_id = ? AND created_at >= ?", acct.AccountID, since).Find(&cards).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load Decision Cards."})
		return
	}
	if len(cards) == 0 {
		c.JSON(http.StatusOK, gin.H{"ok": true, "report": nil, "message": "No Decision Cards in the last 14 days. Generate Decision Cards first."})
		return
	}

	report := ctrl.composer.GenerateWeeklyReport(c.Request.Context(), cards)
	logger.WithAccount(acct.AccountID, "").WithField("cards", len(cards)).Info("weekly report composed")
	c.JSON(http.StatusOK, gin.H{"ok": true, "report": report})
}
