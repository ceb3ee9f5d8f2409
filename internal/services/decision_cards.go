package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/looplens/backend/internal/logger"
	"github.com/looplens/backend/internal/models"
)

// CardSynthesizer turns unresolved Insights into 1-3 Decision Cards each.
type CardSynthesizer struct {
	provider AIProvider
}

func NewCardSynthesizer(provider AIProvider) *CardSynthesizer {
	return &CardSynthesizer{provider: provider}
}

// insightPayload is the compact prompt sent to the model per insight.
type insightPayload struct {
	Title           string           `json:"title"`
	Description     string           `json:"description"`
	RootCause       models.RootCause `json:"root_cause"`
	Frequency       int              `json:"frequency"`
	AvgFeedback     *float64         `json:"avg_feedback"`
	ExampleSnippets []models.Snippet `json:"example_snippets"`
}

// Generate produces cards for every insight that has none yet. Insights
// already covered by a card are skipped, so regeneration is idempotent. A
// model response that is not a JSON array yields zero cards for that insight
// without failing the batch; a provider transport error fails the whole run.
func (s *CardSynthesizer) Generate(ctx context.Context, insights []models.Insight, existingByInsight map[uint][]models.DecisionCard, accountID string) ([]models.DecisionCard, error) {
	var all []models.DecisionCard
	for _, insight := range insights {
		if insight.ID == 0 {
			continue
		}
		if len(existingByInsight[insight.ID]) > 0 {
			continue
		}

		payload := insightPayload{
			Title:           insight.Title,
			Description:     insight.Description,
			RootCause:       insight.RootCause,
			Frequency:       insight.Frequency,
			AvgFeedback:     insight.AvgFeedback,
			ExampleSnippets: insight.ExampleSnippets[:min(3, len(insight.ExampleSnippets))],
		}
		payloadJSON, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to encode insight payload: %w", err)
		}

		response, err := s.provider.Complete(ctx, DECISION_CARD_SYSTEM_PROMPT, fmt.Sprintf(DECISION_CARD_USER_PROMPT, payloadJSON))
		if err != nil {
			return nil, fmt.Errorf("card synthesis failed for insight %d: %w", insight.ID, err)
		}

		cards := parseCards(response)
		if len(cards) == 0 {
			logger.WithProvider("decision_cards", accountID).WithField("insight_id", insight.ID).Warn("model returned no usable cards for insight")
			continue
		}
		for _, card := range cards {
			card.AccountID = accountID
			card.InsightID = insight.ID
			all = append(all, card)
		}
	}
	return all, nil
}

// parseCards validates and repairs one model response. Non-JSON or non-array
// responses yield zero cards; non-object array elements are skipped so one
// stray element never discards the valid cards around it. Out-of-range
// numbers are defaulted and clamped, long strings truncated.
func parseCards(response string) []models.DecisionCard {
	clean := stripCodeFence(response)
	var items []any
	if err := json.Unmarshal([]byte(clean), &items); err != nil {
		return nil
	}

	var cards []models.DecisionCard
	for _, raw := range items {
		item, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		card := models.DecisionCard{
			Problem:           truncateRunes(strings.TrimSpace(stringify(item["problem"])), 500),
			RecommendedAction: truncateRunes(strings.TrimSpace(stringify(item["recommended_action"])), 800),
			ImpactLevel:       clampInt(coerceInt(item["impact_level"], 3), 1, 5),
			EffortEstimate:    clampInt(coerceInt(item["effort_estimate"], 3), 1, 5),
			ConfidenceScore:   clampFloat(coerceFloat(item["confidence_score"], 0.6), 0.0, 1.0),
			Status:            models.CardStatusOpen,
		}
		if list, ok := item["evidence_snippets"].([]any); ok {
			for _, s := range list[:min(3, len(list))] {
				card.EvidenceSnippets = append(card.EvidenceSnippets, stringify(s))
			}
		}
		cards = append(cards, card)
	}
	return cards
}

func coerceInt(v any, fallback int) int {
	switch t := v.(type) {
	case float64:
		return int(t)
	case string:
		if n, err := strconv.ParseFloat(strings.TrimSpace(t), 64); err == nil {
			return int(n)
		}
	}
	return fallback
}

func coerceFloat(v any, fallback float64) float64 {
	switch t := v.(type) {
	case float64:
		return t
	case string:
		if f, err := strconv.ParseFloat(strings.TrimSpace(t), 64); err == nil {
			return f
		}
	}
	return fallback
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampFloat(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
