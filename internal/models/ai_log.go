package models

import (
	"time"

	"github.com/lib/pq"
)

// AILog is one logged prompt/response interaction with user feedback.
// Rows only reach this table after passing ingestion validation.
type AILog struct {
	ID            uint           `json:"id" gorm:"primaryKey"`
	AccountID     string         `json:"accountId" gorm:"not null;index"`
	SessionID     string         `json:"sessionId" gorm:"not null"`
	Timestamp     time.Time      `json:"timestamp" gorm:"not null;index"`
	UserID        *string        `json:"userId"`
	Input         string         `json:"input" gorm:"type:text;not null"`
	Output        string         `json:"output" gorm:"type:text;not null"`
	FeedbackType  string         `json:"feedbackType" gorm:"not null"`
	FeedbackValue *string        `json:"feedbackValue"`
	Tags          pq.StringArray `json:"tags" gorm:"type:text[]"`
	Metadata      JSONB          `json:"metadata" gorm:"type:jsonb"`
	CreatedAt     time.Time      `json:"createdAt"`
}

func (AILog) TableName() string {
	return "ai_logs"
}
