package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/looplens/backend/internal/config"
	"github.com/looplens/backend/internal/db"
	"github.com/looplens/backend/internal/logger"
	"github.com/looplens/backend/internal/middleware"
	"github.com/looplens/backend/internal/routes"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func CORSMiddleware(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", cfg.CORSOrigin)
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Origin, Content-Type, Authorization")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Max-Age", "86400")

		// Handle preflight request
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusOK)
			return
		}

		c.Next()
	}
}

func main() {
	// Initialize logger first
	logger.Initialize()

	// Load environment variables
	if err := godotenv.Load(); err != nil {
		logger.Warn("No .env file found, using environment variables", nil)
	}

	cfg := config.Load()

	// Connect to database
	db.Connect(cfg)
	db.AutoMigrate()

	// Set Gin mode
	if os.Getenv("GIN_MODE") == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Create router without default middleware
	r := gin.New()

	r.RedirectTrailingSlash = false
	r.RedirectFixedPath = false

	r.Use(middleware.CustomLoggerMiddleware())
	r.Use(CORSMiddleware(cfg))
	r.Use(gin.Recovery())

	// Health check
	r.GET("/health", func(c *gin.Context) {
		dbStatus := "ok"
		var dbError string
		if db.DB == nil {
			dbStatus = "error"
			dbError = "database connection not initialized"
		} else if sqlDB, err := db.DB.DB(); err != nil {
			dbStatus = "error"
			dbError = err.Error()
		} else if err := sqlDB.Ping(); err != nil {
			dbStatus = "error"
			dbError = err.Error()
		}

		statusCode := http.StatusOK
		overall := "ok"
		if dbStatus != "ok" {
			statusCode = http.StatusServiceUnavailable
			overall = "error"
		}

		c.JSON(statusCode, gin.H{
			"status":    overall,
			"timestamp": time.Now().UTC().Format(time.RFC3339),
			"version":   "1.0.0",
			"services": gin.H{
				"database": gin.H{
					"status": dbStatus,
					"error":  dbError,
				},
			},
		})
	})

	// Setup routes
	routes.SetupRoutes(r, db.DB, cfg)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Port),
		Handler: r,
	}

	logger.Info("Starting LoopLens backend server", map[string]interface{}{
		"port":     cfg.Port,
		"gin_mode": gin.Mode(),
	})

	// Start server in a goroutine
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}()

	// Wait for shutdown signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)
	<-sigChan
	logger.Info("Shutting down server gracefully...", nil)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", map[string]interface{}{
			"error": err.Error(),
		})
	} else {
		logger.Info("Server exited gracefully", nil)
	}
}
