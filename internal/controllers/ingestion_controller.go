package controllers

import (
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/looplens/backend/internal/config"
	"github.com/looplens/backend/internal/logger"
	"github.com/looplens/backend/internal/models"
	"github.com/looplens/backend/internal/services"
	"gorm.io/gorm"
)

const insertBatchSize = 500

var allowedCSVTypes = map[string]bool{"text/csv": true, "application/csv": true, "text/plain": true}
var allowedJSONTypes = map[string]bool{"application/json": true}

type IngestionController struct {
	db         *gorm.DB
	cfg        *config.Config
	orgService *services.OrganizationService
	limiter    *services.RateLimiter
}

func NewIngestionController(db *gorm.DB, cfg *config.Config, orgService *services.OrganizationService, limiter *services.RateLimiter) *IngestionController {
	return &IngestionController{db: db, cfg: cfg, orgService: orgService, limiter: limiter}
}

type uploadResponse struct {
	OK       bool                `json:"ok"`
	Stored   int                 `json:"stored"`
	Errors   []services.RowError `json:"errors"`
	Warnings []string            `json:"warnings"`
}

func newUploadResponse(ok bool, stored int, errs []services.RowError, warnings []string) uploadResponse {
	if errs == nil {
		errs = []services.RowError{}
	}
	if warnings == nil {
		warnings = []string{}
	}
	return uploadResponse{OK: ok, Stored: stored, Errors: errs, Warnings: warnings}
}

// Upload accepts one CSV or JSON file of interaction logs, validates every
// row, stores the valid ones and reports per-row errors for the rest.
func (ic *IngestionController) Upload(c *gin.Context) {
	requestID := uuid.NewString()[:8]
	acct, ok := resolveAccount(c, ic.orgService)
	if !ok {
		return
	}
	if acct.Org != nil && !services.CanUploadOrGenerate(acct.Org) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Trial ended. Subscribe to continue uploading logs ($20/month)."})
		return
	}
	if !ic.limiter.Allow(acct.AccountID, "ingestion/upload") {
		logger.WithAccount(acct.AccountID, requestID).Warn("upload rate limited")
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "Too many uploads. Please try again in a few minutes."})
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No file uploaded"})
		return
	}
	if fileHeader.Size > ic.cfg.MaxUploadBytes {
		logger.WithAccount(acct.AccountID, requestID).WithField("size", fileHeader.Size).Warn("upload rejected: too large")
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{
			"error": fmt.Sprintf("File too large. Maximum size is %dMB.", ic.cfg.MaxUploadBytes/(1024*1024)),
		})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read uploaded file"})
		return
	}
	defer file.Close()
	content, err := io.ReadAll(io.LimitReader(file, ic.cfg.MaxUploadBytes+1))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read uploaded file"})
		return
	}
	if int64(len(content)) > ic.cfg.MaxUploadBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{
			"error": fmt.Sprintf("File too large. Maximum size is %dMB.", ic.cfg.MaxUploadBytes/(1024*1024)),
		})
		return
	}
	if len(content) == 0 {
		c.JSON(http.StatusOK, newUploadResponse(false, 0, []services.RowError{{Row: 0, Error: "File is empty."}}, nil))
		return
	}

	// Extension decides the format; the declared content type is advisory
	// and only cross-checked for obvious mismatches.
	contentType := strings.TrimSpace(strings.ToLower(strings.Split(fileHeader.Header.Get("Content-Type"), ";")[0]))
	ext := strings.ToLower(filepath.Ext(fileHeader.Filename))

	var validRows []models.AILog
	var rowErrors []services.RowError
	switch ext {
	case ".json":
		if contentType != "" && contentType != "application/octet-stream" && !allowedJSONTypes[contentType] {
			c.JSON(http.StatusOK, newUploadResponse(false, 0, []services.RowError{{Row: 0, Error: "File must be JSON (content-type application/json)."}}, nil))
			return
		}
		validRows, rowErrors = services.ParseJSONRows(content, acct.AccountID)
	case ".csv":
		if contentType != "" && contentType != "application/octet-stream" && !allowedCSVTypes[contentType] {
			c.JSON(http.StatusOK, newUploadResponse(false, 0, []services.RowError{{Row: 0, Error: "File must be CSV (content-type text/csv or application/csv)."}}, nil))
			return
		}
		validRows, rowErrors = services.ParseCSVRows(content, acct.AccountID)
	default:
		c.JSON(http.StatusOK, newUploadResponse(false, 0, []services.RowError{{Row: 0, Error: "File must be .csv or .json."}}, nil))
		return
	}

	if len(validRows) == 0 {
		logger.WithAccount(acct.AccountID, requestID).WithField("errors", len(rowErrors)).Info("upload had no valid rows")
		var warnings []string
		if len(rowErrors) > 0 {
			warnings = []string{"No valid rows to store."}
		}
		c.JSON(http.StatusOK, newUploadResponse(false, 0, capErrors(rowErrors, 50), warnings))
		return
	}

	// Chunked inserts respect payload-size limits; earlier chunks stay
	// committed if a later one fails.
	if err := ic.db.CreateInBatches(validRows, insertBatchSize).Error; err != nil {
		logger.WithError(err, "ingestion").Error("failed to store log records")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to store log records."})
		return
	}

	var warnings []string
	if len(rowErrors) > 0 {
		warnings = append(warnings, fmt.Sprintf("%d row(s) had validation errors and were skipped.", len(rowErrors)))
	}
	logger.WithAccount(acct.AccountID, requestID).WithField("stored", len(validRows)).WithField("errors", len(rowErrors)).Info("upload stored")
	c.JSON(http.StatusOK, newUploadResponse(true, len(validRows), capErrors(rowErrors, 30), warnings))
}

func capErrors(errs []services.RowError, limit int) []services.RowError {
	if len(errs) > limit {
		return errs[:limit]
	}
	return errs
}

// Status is a readiness probe for the ingestion path.
func (ic *IngestionController) Status(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "Ingestion ready. Upload logs to get started."})
}

// Schema documents the upload contract: required and optional fields plus a
// sample row.
func (ic *IngestionController) Schema(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"required": []string{"session_id", "timestamp", "input", "output", "feedback_type", "feedback_value"},
		"optional": []string{"user_id", "tags", "metadata"},
		"sample_row": gin.H{
			"session_id":     "sess_abc123",
			"timestamp":      "2024-01-15T10:30:00Z",
			"input":          "What is the return policy?",
			"output":         "Our return policy allows...",
			"feedback_type":  "thumb_down",
			"feedback_value": "-1",
			"user_id":        "user_1",
			"tags":           []string{"returns", "support"},
			"metadata":       gin.H{},
		},
	})
}
