package controllers

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/looplens/backend/internal/config"
	"github.com/looplens/backend/internal/logger"
	"github.com/looplens/backend/internal/models"
	"github.com/looplens/backend/internal/services"
	"github.com/stripe/stripe-go/v78"
	"github.com/stripe/stripe-go/v78/checkout/session"
	"github.com/stripe/stripe-go/v78/webhook"
	"gorm.io/gorm"
)

type BillingController struct {
	db         *gorm.DB
	cfg        *config.Config
	orgService *services.OrganizationService
}

func NewBillingController(db *gorm.DB, cfg *config.Config, orgService *services.OrganizationService) *BillingController {
	stripe.Key = cfg.StripeSecretKey
	return &BillingController{db: db, cfg: cfg, orgService: orgService}
}

// CreateCheckoutSession starts a Stripe subscription checkout for the
// caller's organization. The organization id travels in the subscription
// metadata so the webhook can route status updates back.
func (ctrl *BillingController) CreateCheckoutSession(c *gin.Context) {
	if ctrl.cfg.StripeSecretKey == "" || ctrl.cfg.StripePriceID == "" {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Billing not configured."})
		return
	}
	acct, ok := resolveAccount(c, ctrl.orgService)
	if !ok {
		return
	}
	if acct.Org == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Create an organization before subscribing."})
		return
	}

	orgID := strconv.FormatUint(uint64(acct.Org.ID), 10)
	params := &stripe.CheckoutSessionParams{
		Mode:              stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		ClientReferenceID: stripe.String(orgID),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Price:    stripe.String(ctrl.cfg.StripePriceID),
				Quantity: stripe.Int64(1),
			},
		},
		SubscriptionData: &stripe.CheckoutSessionSubscriptionDataParams{
			Metadata: map[string]string{"organization_id": orgID},
		},
		SuccessURL: stripe.String(ctrl.cfg.FrontendBaseURL + "/billing/success"),
		CancelURL:  stripe.String(ctrl.cfg.FrontendBaseURL + "/billing/cancel"),
	}
	s, err := session.New(params)
	if err != nil {
		logger.WithError(err, "billing").WithField("org_id", acct.Org.ID).Error("checkout session creation failed")
		c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to start checkout."})
		return
	}
	c.JSON(http.StatusOK, gin.H{"url": s.URL})
}

// Webhook receives Stripe subscription lifecycle events and updates the
// organization's subscription status. Unverifiable signatures are rejected.
func (ctrl *BillingController) Webhook(c *gin.Context) {
	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, 1<<20))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read request body."})
		return
	}
	event, err := webhook.ConstructEvent(payload, c.GetHeader("Stripe-Signature"), ctrl.cfg.StripeWebhookSecret)
	if err != nil {
		logger.WithError(err, "billing").Warn("webhook signature verification failed")
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid signature."})
		return
	}

	switch string(event.Type) {
	case "customer.subscription.created", "customer.subscription.updated":
		var sub stripe.Subscription
		if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Malformed event payload."})
			return
		}
		ctrl.applySubscription(&sub, string(sub.Status))
	case "customer.subscription.deleted":
		var sub stripe.Subscription
		if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Malformed event payload."})
			return
		}
		ctrl.applySubscription(&sub, "canceled")
	default:
		// Other event types are acknowledged without action.
	}
	c.JSON(http.StatusOK, gin.H{"received": true})
}

func (ctrl *BillingController) applySubscription(sub *stripe.Subscription, status string) {
	orgID := sub.Metadata["organization_id"]
	if orgID == "" {
		logger.Warn("subscription event without organization metadata", map[string]interface{}{"subscription": sub.ID})
		return
	}
	updates := map[string]interface{}{"subscription_status": status}
	if sub.Customer != nil && sub.Customer.ID != "" {
		updates["stripe_customer_id"] = sub.Customer.ID
	}
	result := ctrl.db.Model(&models.Organization{}).Where("id = ?", orgID).Updates(updates)
	if result.Error != nil {
		logger.WithError(result.Error, "billing").Error("failed to update subscription status")
		return
	}
	if result.RowsAffected == 0 {
		logger.Warn("subscription event for unknown organization", map[string]interface{}{"org_id": orgID})
		return
	}
	logger.Info("subscription status updated", map[string]interface{}{
		"org_id": orgID,
		"status": status,
	})
}
