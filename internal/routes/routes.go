package routes

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/looplens/backend/internal/config"
	"github.com/looplens/backend/internal/controllers"
	"github.com/looplens/backend/internal/middleware"
	"github.com/looplens/backend/internal/services"
	"gorm.io/gorm"
)

// SetupRoutes configures all application routes
func SetupRoutes(r *gin.Engine, db *gorm.DB, cfg *config.Config) {
	// Initialize services
	provider := services.NewOpenAIProvider(cfg)
	orgService := services.NewOrganizationService(db)
	limiter := services.NewRateLimiter(10, 10*time.Minute)
	engine := services.NewInsightEngine(provider)
	synthesizer := services.NewCardSynthesizer(provider)
	composer := services.NewReportComposer(provider)

	// Initialize controllers
	authController := controllers.NewAuthController(db)
	userController := controllers.NewUserController(db)
	ingestionController := controllers.NewIngestionController(db, cfg, orgService, limiter)
	insightController := controllers.NewInsightController(db, cfg, engine, orgService, limiter)
	cardController := controllers.NewDecisionCardController(db, cfg, synthesizer, orgService, limiter)
	reportController := controllers.NewReportController(db, composer, orgService)
	orgController := controllers.NewOrganizationController(db, orgService)
	billingController := controllers.NewBillingController(db, cfg, orgService)

	// API routes
	api := r.Group("/api/v1")
	{
		// Auth routes
		auth := api.Group("/auth")
		{
			auth.POST("/login", authController.Login)
			auth.POST("/register", authController.Register)
		}

		// Stripe calls back without a session token
		api.POST("/billing/webhook", billingController.Webhook)

		// Protected routes
		protected := api.Group("/")
		protected.Use(middleware.AuthMiddleware())
		{
			protected.POST("/auth/refresh", authController.RefreshToken)

			// Users
			users := protected.Group("/users")
			{
				users.GET("/me", userController.GetCurrentUser)
			}

			// Log ingestion
			logs := protected.Group("/logs")
			{
				logs.POST("/upload", ingestionController.Upload)
				logs.GET("/status", ingestionController.Status)
				logs.GET("/schema", ingestionController.Schema)
			}

			// Insights
			insights := protected.Group("/insights")
			{
				insights.POST("/generate", insightController.Generate)
				insights.GET("", insightController.List)
			}

			// Decision Cards
			cards := protected.Group("/decision-cards")
			{
				cards.POST("/generate", cardController.Generate)
				cards.GET("", cardController.List)
				cards.GET("/:id", cardController.Get)
				cards.PATCH("/:id", cardController.UpdateStatus)
			}

			// Reports
			reports := protected.Group("/reports")
			{
				reports.GET("/weekly", reportController.Weekly)
			}

			// Organizations and billing
			orgs := protected.Group("/organizations")
			{
				orgs.POST("", orgController.Create)
				orgs.GET("/me", orgController.Me)
			}
			protected.POST("/billing/checkout", billingController.CreateCheckoutSession)
		}
	}
}
