package services

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/looplens/backend/internal/logger"
	"github.com/looplens/backend/internal/models"
)

const fallbackKeepDoing = "Keep focusing on one high-impact fix this week; don't spread effort across everything."

// PriorityScore ranks a card: higher impact and confidence, lower effort
// means more urgent.
func PriorityScore(card models.DecisionCard) float64 {
	return float64(card.ImpactLevel)*2 + card.ConfidenceScore*5 - float64(card.EffortEstimate)
}

// SortCardsByPriority orders cards descending by priority score, stably.
func SortCardsByPriority(cards []models.DecisionCard) {
	sort.SliceStable(cards, func(i, j int) bool {
		return PriorityScore(cards[i]) > PriorityScore(cards[j])
	})
}

// ReportIssue is one entry in the weekly report's top-3 list.
type ReportIssue struct {
	ID                uint   `json:"id"`
	Problem           string `json:"problem"`
	RecommendedAction string `json:"recommended_action"`
	ImpactLevel       int    `json:"impact_level"`
	EffortEstimate    int    `json:"effort_estimate"`
}

// ReportFocus is the single card the team should fix this week.
type ReportFocus struct {
	ID                uint   `json:"id"`
	Problem           string `json:"problem"`
	RecommendedAction string `json:"recommended_action"`
}

// WeeklyReport is derived on every request, never persisted.
type WeeklyReport struct {
	Top3Issues       []ReportIssue `json:"top_3_issues"`
	FocusFix         *ReportFocus  `json:"focus_fix"`
	ThingNotToChange string        `json:"thing_not_to_change"`
	SummaryMarkdown  string        `json:"summary_markdown"`
	StandupCopy      string        `json:"standup_copy"`
}

// ReportComposer assembles the weekly report from scored cards.
type ReportComposer struct {
	provider AIProvider
}

func NewReportComposer(provider AIProvider) *ReportComposer {
	return &ReportComposer{provider: provider}
}

// GenerateWeeklyReport sorts cards by priority, takes the top 3 plus a focus
// fix, and asks the model for one thing not to change (with a fixed fallback
// when the model is unavailable or fails).
func (r *ReportComposer) GenerateWeeklyReport(ctx context.Context, cards []models.DecisionCard) *WeeklyReport {
	sorted := make([]models.DecisionCard, len(cards))
	copy(sorted, cards)
	SortCardsByPriority(sorted)

	top3 := sorted[:min(3, len(sorted))]
	report := &WeeklyReport{
		Top3Issues:       make([]ReportIssue, 0, len(top3)),
		ThingNotToChange: r.thingNotToChange(ctx, top3),
	}
	for _, c := range top3 {
		report.Top3Issues = append(report.Top3Issues, ReportIssue{
			ID:                c.ID,
			Problem:           c.Problem,
			RecommendedAction: c.RecommendedAction,
			ImpactLevel:       c.ImpactLevel,
			EffortEstimate:    c.EffortEstimate,
		})
	}
	if len(top3) > 0 {
		report.FocusFix = &ReportFocus{
			ID:                top3[0].ID,
			Problem:           top3[0].Problem,
			RecommendedAction: top3[0].RecommendedAction,
		}
	}

	report.SummaryMarkdown = renderMarkdown(top3, report.FocusFix, report.ThingNotToChange)
	report.StandupCopy = renderStandup(report.FocusFix, report.ThingNotToChange)
	return report
}

// thingNotToChange suggests one positive pattern to keep. Model failure
// degrades to a fixed sentence, never an error.
func (r *ReportComposer) thingNotToChange(ctx context.Context, top3 []models.DecisionCard) string {
	if r.provider == nil || len(top3) == 0 {
		return fallbackKeepDoing
	}
	problems := make([]string, 0, len(top3))
	for _, c := range top3 {
		problems = append(problems, truncateRunes(c.Problem, 100))
	}
	text, err := r.provider.Complete(ctx, KEEP_DOING_SYSTEM_PROMPT, fmt.Sprintf(KEEP_DOING_USER_PROMPT, strings.Join(problems, "; ")))
	if err != nil {
		logger.WithError(err, "report_composer").Warn("keep-doing suggestion failed, using fallback")
		return fallbackKeepDoing
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "Keep iterating on the top fix; don't context-switch."
	}
	return truncateRunes(text, 300)
}

func renderMarkdown(top3 []models.DecisionCard, focus *ReportFocus, keepDoing string) string {
	var lines []string
	lines = append(lines, "# Weekly AI Product Report", "")
	lines = append(lines, "## Top 3 issues")
	for i, c := range top3 {
		lines = append(lines, fmt.Sprintf("%d. **%s**", i+1, c.Problem))
		lines = append(lines, fmt.Sprintf("   -> %s", c.RecommendedAction))
		lines = append(lines, "")
	}
	if focus != nil {
		lines = append(lines, "## 1 thing to fix this week")
		lines = append(lines, fmt.Sprintf("**%s**", focus.Problem))
		lines = append(lines, focus.RecommendedAction)
		lines = append(lines, "")
	}
	lines = append(lines, "## 1 thing not to change")
	lines = append(lines, keepDoing)
	return strings.Join(lines, "\n")
}

func renderStandup(focus *ReportFocus, keepDoing string) string {
	var parts []string
	if focus != nil {
		parts = append(parts, fmt.Sprintf("This week: %s", focus.RecommendedAction))
	}
	parts = append(parts, fmt.Sprintf("Keep: %s", keepDoing))
	return strings.Join(parts, " ")
}
