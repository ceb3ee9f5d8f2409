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

type DecisionCardController struct {
	db          *gorm.DB
	cfg         *config.Config
	synthesizer *services.CardSynthesizer
	orgService  *services.OrganizationService
	limiter     *services.RateLimiter
}

func NewDecisionCardController(db *gorm.DB, cfg *config.Config, synthesizer *services.CardSynthesizer, orgService *services.OrganizationService, limiter *services.RateLimiter) *DecisionCardController {
	return &DecisionCardController{db: db, cfg: cfg, synthesizer: synthesizer, orgService: orgService, limiter: limiter}
}

// Generate creates Decision Cards for every insight that has none yet.
// Running it again without new insights produces zero new cards.
func (ctrl *DecisionCardController) Generate(c *gin.Context) {
	requestID := uuid.NewString()[:8]
	acct, ok := resolveAccount(c, ctrl.orgService)
	if !ok {
		return
	}
	if acct.Org != nil && !services.CanUploadOrGenerate(acct.Org) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Trial ended. Subscribe to generate Decision Cards ($20/month)."})
		return
	}
	if !ctrl.limiter.Allow(acct.AccountID, "decision_cards/generate") {
		logger.WithAccount(acct.AccountID, requestID).Warn("card generation rate limited")
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "Too many requests. Please try again in a few minutes."})
		return
	}

	var insights []models.Insight
	if err := ctrl.db.Where("account_id = ?", acct.AccountID).Find(&insights).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load insights."})
		return
	}
	if len(insights) == 0 {
		c.JSON(http.StatusOK, gin.H{"ok": true, "count": 0, "cards": []models.DecisionCard{}, "message": "No insights found. Generate insights first."})
		return
	}

	var existing []models.DecisionCard
	if err := ctrl.db.Select("id", "insight_id").Where("account_id = ?", acct.AccountID).Find(&existing).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load existing cards."})
		return
	}
	existingByInsight := make(map[uint][]models.DecisionCard)
	for _, card := range existing {
		existingByInsight[card.InsightID] = append(existingByInsight[card.InsightID], card)
	}

	cards, err := ctrl.synthesizer.Generate(c.Request.Context(), insights, existingByInsight, acct.AccountID)
	if err != nil {
		if errors.Is(err, services.ErrProviderUnavailable) {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Decision Card generation not configured."})
			return
		}
		logger.WithError(err, "card_synthesizer").WithField("account_id", acct.AccountID).WithField("request_id", requestID).Error("card generation failed")
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Decision Card generation failed. Please try again later."})
		return
	}
	if len(cards) == 0 {
		logger.WithAccount(acct.AccountID, requestID).Info("no new decision cards generated")
		c.JSON(http.StatusOK, gin.H{"ok": true, "count": 0, "cards": []models.DecisionCard{}, "message": "No new Decision Cards generated (existing cards may already cover current insights)."})
		return
	}

	if err := ctrl.db.CreateInBatches(cards, insertBatchSize).Error; err != nil {
		logger.WithError(err, "card_synthesizer").Error("failed to store decision cards")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to store Decision Cards."})
		return
	}
	logger.WithAccount(acct.AccountID, requestID).WithField("count", len(cards)).Info("decision cards generated")
	c.JSON(http.StatusOK, gin.H{"ok": true, "count": len(cards), "cards": cards})
}

type scoredCard struct {
	models.DecisionCard
	PriorityScore float64 `json:"priorityScore"`
}

// List returns the account's cards sorted by priority, with the top 3
// surfaced separately.
func (ctrl *DecisionCardController) List(c *gin.Context) {
	acct, ok := resolveAccount(c, ctrl.orgService)
	if !ok {
		return
	}
	var cards []models.DecisionCard
	if err := ctrl.db.Where("account_id = ?", acct.AccountID).Order("created_at DESC").Find(&cards).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load Decision Cards."})
		return
	}

	services.SortCardsByPriority(cards)
	scored := make([]scoredCard, 0, len(cards))
	for _, card := range cards {
		scored = append(scored, scoredCard{DecisionCard: card, PriorityScore: services.PriorityScore(card)})
	}
	top3 := scored[:min(3, len(scored))]
	c.JSON(http.StatusOK, gin.H{"cards": scored, "top_3_this_week": top3})
}

// Get returns one card owned by the account.
func (ctrl *DecisionCardController) Get(c *gin.Context) {
	acct, ok := resolveAccount(c, ctrl.orgService)
	if !ok {
		return
	}
	var card models.DecisionCard
	if err := ctrl.db.Where("id = ? AND account_id = ?", c.Param("id"), acct.AccountID).First(&card).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Card not found."})
		return
	}
	c.JSON(http.StatusOK, card)
}

type UpdateCardRequest struct {
	Status string `json:"status" binding:"required"`
}

// UpdateStatus marks a card open or done. Status is the only mutable field.
func (ctrl *DecisionCardController) UpdateStatus(c *gin.Context) {
	acct, ok := resolveAccount(c, ctrl.orgService)
	if !ok {
		return
	}
	var req UpdateCardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "status must be 'open' or 'done'."})
		return
	}
	if req.Status != string(models.CardStatusOpen) && req.Status != string(models.CardStatusDone) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "status must be 'open' or 'done'."})
		return
	}

	result := ctrl.db.Model(&models.DecisionCard{}).
		Where("id = ? AND account_id = ?", c.Param("id"), acct.AccountID).
		Update("status", req.Status)
	if result.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update card."})
		return
	}
	if result.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Card not found."})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "status": req.Status})
}
