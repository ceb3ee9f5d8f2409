package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// Snippet is one input/output excerpt from a clustered conversation.
type Snippet struct {
	Input  string `json:"input"`
	Output string `json:"output"`
}

// SnippetList stores example snippets as a jsonb array
type SnippetList []Snippet

func (s SnippetList) Value() (driver.Value, error) {
	if s == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(s)
}

func (s *SnippetList) Scan(value any) error {
	if value == nil {
		*s = SnippetList{}
		return nil
	}
	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported type for SnippetList: %T", value)
	}
	return json.Unmarshal(data, s)
}

// RootCause is the plain-language explanation of a failure pattern.
type RootCause struct {
	FailureCause    string `json:"failure_cause"`
	UserExpectation string `json:"user_expectation"`
	SystemBehavior  string `json:"system_behavior"`
}

func (r RootCause) Value() (driver.Value, error) {
	return json.Marshal(r)
}

func (r *RootCause) Scan(value any) error {
	if value == nil {
		*r = RootCause{}
		return nil
	}
	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported type for RootCause: %T", value)
	}
	return json.Unmarshal(data, r)
}

// Insight is a detected recurring failure pattern. Rows are created only by
// the insight engine and never updated; regeneration inserts new rows.
type Insight struct {
	ID              uint        `json:"id" gorm:"primaryKey"`
	AccountID       string      `json:"accountId" gorm:"not null;index"`
	Title           string      `json:"title" gorm:"not null"`
	Description     string      `json:"description" gorm:"type:text"`
	ExampleSnippets SnippetList `json:"exampleSnippets" gorm:"type:jsonb"`
	Frequency       int         `json:"frequency" gorm:"not null"`
	AvgFeedback     *float64    `json:"avgFeedback"`
	RootCause       RootCause   `json:"rootCause" gorm:"type:jsonb"`
	CreatedAt       time.Time   `json:"createdAt"`
}

func (Insight) TableName() string {
	return "insights"
}
