package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/looplens/backend/internal/models"
)

func TestPriorityScore(t *testing.T) {
	tests := []struct {
		impact     int
		confidence float64
		effort     int
		want       float64
	}{
		{5, 1.0, 1, 14},
		{3, 0.6, 3, 6},
		{1, 0.0, 5, -3},
	}

	for _, test := range tests {
		card := models.DecisionCard{ImpactLevel: test.impact, ConfidenceScore: test.confidence, EffortEstimate: test.effort}
		if got := PriorityScore(card); got != test.want {
			t.Errorf("PriorityScore(impact=%d conf=%.1f effort=%d) = %f, want %f", test.impact, test.confidence, test.effort, got, test.want)
		}
	}
}

func TestSortCardsByPriority(t *testing.T) {
	cards := []models.DecisionCard{
		{ID: 1, ImpactLevel: 1, ConfidenceScore: 0.5, EffortEstimate: 5},
		{ID: 2, ImpactLevel: 5, ConfidenceScore: 0.9, EffortEstimate: 1},
		{ID: 3, ImpactLevel: 3, ConfidenceScore: 0.6, EffortEstimate: 3},
	}
	SortCardsByPriority(cards)

	if cards[0].ID != 2 || cards[1].ID != 3 || cards[2].ID != 1 {
		t.Errorf("Unexpected order: %d %d %d", cards[0].ID, cards[1].ID, cards[2].ID)
	}
}

func TestSortCardsByPriorityStable(t *testing.T) {
	// Equal scores keep input order
	cards := []models.DecisionCard{
		{ID: 1, ImpactLevel: 3, ConfidenceScore: 0.6, EffortEstimate: 3},
		{ID: 2, ImpactLevel: 3, ConfidenceScore: 0.6, EffortEstimate: 3},
	}
	SortCardsByPriority(cards)
	if cards[0].ID != 1 || cards[1].ID != 2 {
		t.Errorf("Expected stable order, got %d %d", cards[0].ID, cards[1].ID)
	}
}

func TestGenerateWeeklyReportEmpty(t *testing.T) {
	composer := NewReportComposer(nil)
	report := composer.GenerateWeeklyReport(context.Background(), nil)

	if len(report.Top3Issues) != 0 {
		t.Errorf("Expected no issues, got %d", len(report.Top3Issues))
	}
	if report.FocusFix != nil {
		t.Errorf("Expected no focus fix, got %+v", report.FocusFix)
	}
	if report.ThingNotToChange != fallbackKeepDoing {
		t.Errorf("Expected fallback sentence, got %q", report.ThingNotToChange)
	}
	if !strings.Contains(report.SummaryMarkdown, "# Weekly AI Product Report") {
		t.Errorf("Expected markdown header, got %q", report.SummaryMarkdown)
	}
}

func TestGenerateWeeklyReportPicksTop3(t *testing.T) {
	provider := &fakeProvider{
		completeFn: func(systemPrompt, userPrompt string) (string, error) {
			return "Keep the fast response times.", nil
		},
	}
	composer := NewReportComposer(provider)

	cards := []models.DecisionCard{
		{ID: 1, Problem: "low", RecommendedAction: "fix low", ImpactLevel: 1, ConfidenceScore: 0.2, EffortEstimate: 5},
		{ID: 2, Problem: "high", RecommendedAction: "fix high", ImpactLevel: 5, ConfidenceScore: 0.9, EffortEstimate: 1},
		{ID: 3, Problem: "mid", RecommendedAction: "fix mid", ImpactLevel: 3, ConfidenceScore: 0.6, EffortEstimate: 3},
		{ID: 4, Problem: "also low", RecommendedAction: "fix also", ImpactLevel: 1, ConfidenceScore: 0.1, EffortEstimate: 5},
	}
	report := composer.GenerateWeeklyReport(context.Background(), cards)

	if len(report.Top3Issues) != 3 {
		t.Fatalf("Expected 3 issues, got %d", len(report.Top3Issues))
	}
	if report.Top3Issues[0].ID != 2 {
		t.Errorf("Expected highest priority card first, got %d", report.Top3Issues[0].ID)
	}
	if report.FocusFix == nil || report.FocusFix.ID != 2 {
		t.Errorf("Expected focus fix to be card 2, got %+v", report.FocusFix)
	}
	if report.ThingNotToChange != "Keep the fast response times." {
		t.Errorf("Unexpected keep-doing text: %q", report.ThingNotToChange)
	}
	if !strings.Contains(report.SummaryMarkdown, "## Top 3 issues") {
		t.Errorf("Expected issues section in markdown")
	}
	if !strings.Contains(report.SummaryMarkdown, "## 1 thing to fix this week") {
		t.Errorf("Expected focus section in markdown")
	}
	if !strings.Contains(report.StandupCopy, "This week: fix high") {
		t.Errorf("Unexpected standup copy: %q", report.StandupCopy)
	}

	// Input slice order must stay untouched
	if cards[0].ID != 1 {
		t.Errorf("Expected caller's slice unmodified, got first card %d", cards[0].ID)
	}
}

func TestThingNotToChangeDegradesToFallback(t *testing.T) {
	provider := &fakeProvider{
		completeFn: func(systemPrompt, userPrompt string) (string, error) {
			return "", errors.New("model down")
		},
	}
	composer := NewReportComposer(provider)

	cards := []models.DecisionCard{{ID: 1, Problem: "p", ImpactLevel: 3, ConfidenceScore: 0.5, EffortEstimate: 2}}
	report := composer.GenerateWeeklyReport(context.Background(), cards)
	if report.ThingNotToChange != fallbackKeepDoing {
		t.Errorf("Expected fallback on model error, got %q", report.ThingNotToChange)
	}
}

func TestThingNotToChangeEmptyModelText(t *testing.T) {
	provider := &fakeProvider{
		completeFn: func(systemPrompt, userPrompt string) (string, error) {
			return "   ", nil
		},
	}
	composer := NewReportComposer(provider)

	cards := []models.DecisionCard{{ID: 1, Problem: "p", ImpactLevel: 3, ConfidenceScore: 0.5, EffortEstimate: 2}}
	report := composer.GenerateWeeklyReport(context.Background(), cards)
	if report.ThingNotToChange != "Keep iterating on the top fix; don't context-switch." {
		t.Errorf("Unexpected empty-text fallback: %q", report.ThingNotToChange)
	}
}
