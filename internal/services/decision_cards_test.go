package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/looplens/backend/internal/models"
)

func TestGenerateSkipsCoveredInsights(t *testing.T) {
	provider := &fakeProvider{
		completeFn: func(systemPrompt, userPrompt string) (string, error) {
			return `[{"problem": "p", "recommended_action": "a", "impact_level": 4, "effort_estimate": 2, "confidence_score": 0.8}]`, nil
		},
	}
	synth := NewCardSynthesizer(provider)

	insights := []models.Insight{
		{ID: 1, Title: "covered"},
		{ID: 2, Title: "uncovered"},
	}
	existing := map[uint][]models.DecisionCard{
		1: {{ID: 10, InsightID: 1}},
	}

	cards, err := synth.Generate(context.Background(), insights, existing, "acct-1")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if provider.completeCalls != 1 {
		t.Errorf("Expected 1 model call, got %d", provider.completeCalls)
	}
	if len(cards) != 1 {
		t.Fatalf("Expected 1 card, got %d", len(cards))
	}
	if cards[0].InsightID != 2 {
		t.Errorf("Expected card for insight 2, got %d", cards[0].InsightID)
	}
	if cards[0].AccountID != "acct-1" {
		t.Errorf("Expected account acct-1, got %q", cards[0].AccountID)
	}
	if cards[0].Status != models.CardStatusOpen {
		t.Errorf("Expected new card open, got %q", cards[0].Status)
	}
}

func TestGenerateAllCoveredProducesNoCards(t *testing.T) {
	provider := &fakeProvider{
		completeFn: func(systemPrompt, userPrompt string) (string, error) {
			t.Fatal("Complete should not be called when every insight is covered")
			return "", nil
		},
	}
	synth := NewCardSynthesizer(provider)

	insights := []models.Insight{{ID: 1}, {ID: 2}}
	existing := map[uint][]models.DecisionCard{
		1: {{ID: 10}},
		2: {{ID: 11}},
	}
	cards, err := synth.Generate(context.Background(), insights, existing, "acct-1")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(cards) != 0 {
		t.Errorf("Expected no cards, got %d", len(cards))
	}
}

func TestGenerateProviderErrorFatal(t *testing.T) {
	provider := &fakeProvider{
		completeFn: func(systemPrompt, userPrompt string) (string, error) {
			return "", errors.New("upstream down")
		},
	}
	synth := NewCardSynthesizer(provider)

	_, err := synth.Generate(context.Background(), []models.Insight{{ID: 1}}, nil, "acct-1")
	if err == nil {
		t.Fatal("Expected provider error to fail the run")
	}
}

func TestGenerateNonArrayResponseIsNonFatal(t *testing.T) {
	provider := &fakeProvider{
		completeFn: func(systemPrompt, userPrompt string) (string, error) {
			return "Sorry, I cannot produce cards right now.", nil
		},
	}
	synth := NewCardSynthesizer(provider)

	cards, err := synth.Generate(context.Background(), []models.Insight{{ID: 1}}, nil, "acct-1")
	if err != nil {
		t.Fatalf("Non-JSON response should not fail the run: %v", err)
	}
	if len(cards) != 0 {
		t.Errorf("Expected zero cards, got %d", len(cards))
	}
}

func TestParseCardsClampsAndDefaults(t *testing.T) {
	response := `[{
		"problem": "` + strings.Repeat("p", 600) + `",
		"recommended_action": "` + strings.Repeat("a", 900) + `",
		"impact_level": 9,
		"effort_estimate": 0,
		"confidence_score": 1.7,
		"evidence_snippets": ["e1", "e2", "e3", "e4", "e5"]
	}, {
		"problem": "minimal",
		"recommended_action": "do it"
	}]`

	cards := parseCards(response)
	if len(cards) != 2 {
		t.Fatalf("Expected 2 cards, got %d", len(cards))
	}

	first := cards[0]
	if len(first.Problem) != 500 {
		t.Errorf("Expected problem truncated to 500, got %d", len(first.Problem))
	}
	if len(first.RecommendedAction) != 800 {
		t.Errorf("Expected action truncated to 800, got %d", len(first.RecommendedAction))
	}
	if first.ImpactLevel != 5 {
		t.Errorf("Expected impact clamped to 5, got %d", first.ImpactLevel)
	}
	if first.EffortEstimate != 1 {
		t.Errorf("Expected effort clamped to 1, got %d", first.EffortEstimate)
	}
	if first.ConfidenceScore != 1.0 {
		t.Errorf("Expected confidence clamped to 1.0, got %f", first.ConfidenceScore)
	}
	if len(first.EvidenceSnippets) != 3 {
		t.Errorf("Expected at most 3 evidence snippets, got %d", len(first.EvidenceSnippets))
	}

	second := cards[1]
	if second.ImpactLevel != 3 || second.EffortEstimate != 3 {
		t.Errorf("Expected missing levels to default to 3, got impact=%d effort=%d", second.ImpactLevel, second.EffortEstimate)
	}
	if second.ConfidenceScore != 0.6 {
		t.Errorf("Expected missing confidence to default to 0.6, got %f", second.ConfidenceScore)
	}
}

func TestParseCardsSkipsNonObjectElements(t *testing.T) {
	response := `[
		{"problem": "p1", "recommended_action": "a1", "impact_level": 4, "effort_estimate": 2, "confidence_score": 0.8},
		"stray string",
		42,
		{"problem": "p2", "recommended_action": "a2"}
	]`

	cards := parseCards(response)
	if len(cards) != 2 {
		t.Fatalf("Expected 2 cards from mixed array, got %d", len(cards))
	}
	if cards[0].Problem != "p1" || cards[1].Problem != "p2" {
		t.Errorf("Unexpected cards: %q, %q", cards[0].Problem, cards[1].Problem)
	}
}

func TestParseCardsFencedArray(t *testing.T) {
	response := "```json\n[{\"problem\": \"p\", \"recommended_action\": \"a\"}]\n```"
	cards := parseCards(response)
	if len(cards) != 1 {
		t.Fatalf("Expected fenced array to parse, got %d cards", len(cards))
	}
}

func TestCoerceNumericStrings(t *testing.T) {
	if got := coerceInt("4", 3); got != 4 {
		t.Errorf("coerceInt(\"4\") = %d, want 4", got)
	}
	if got := coerceInt("junk", 3); got != 3 {
		t.Errorf("coerceInt(\"junk\") = %d, want fallback 3", got)
	}
	if got := coerceFloat("0.9", 0.6); got != 0.9 {
		t.Errorf("coerceFloat(\"0.9\") = %f, want 0.9", got)
	}
	if got := coerceFloat(nil, 0.6); got != 0.6 {
		t.Errorf("coerceFloat(nil) = %f, want fallback 0.6", got)
	}
}
