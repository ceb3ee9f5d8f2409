package models

import (
	"time"

	"github.com/lib/pq"
)

type CardStatus string

const (
	CardStatusOpen CardStatus = "open"
	CardStatusDone CardStatus = "done"
)

// DecisionCard is one concrete recommended action derived from an Insight.
// Status is the only field that may change after creation.
type DecisionCard struct {
	ID                uint           `json:"id" gorm:"primaryKey"`
	AccountID         string         `json:"accountId" gorm:"not null;index"`
	InsightID         uint           `json:"insightId" gorm:"not null;index"`
	Problem           string         `json:"problem" gorm:"type:text;not null"`
	EvidenceSnippets  pq.StringArray `json:"evidenceSnippets" gorm:"type:text[]"`
	RecommendedAction string         `json:"recommendedAction" gorm:"type:text;not null"`
	ImpactLevel       int            `json:"impactLevel" gorm:"not null"`
	EffortEstimate    int            `json:"effortEstimate" gorm:"not null"`
	ConfidenceScore   float64        `json:"confidenceScore" gorm:"not null"`
	Status            CardStatus     `json:"status" gorm:"not null;default:'open'"`
	CreatedAt         time.Time      `json:"createdAt"`
	UpdatedAt         time.Time      `json:"updatedAt"`

	Insight *Insight `json:"insight,omitempty" gorm:"foreignKey:InsightID"`
}

func (DecisionCard) TableName() string {
	return "decision_cards"
}
