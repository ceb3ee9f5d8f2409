package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/looplens/backend/internal/models"
)

// fakeProvider is a scriptable AIProvider for engine, synthesizer and
// composer tests.
type fakeProvider struct {
	embedCalls    int
	completeCalls int
	embedFn       func(texts []string) ([][]float64, error)
	completeFn    func(systemPrompt, userPrompt string) (string, error)
}

func (f *fakeProvider) Embed(ctx context.Context, texts []string) ([][]float64, error) {
	f.embedCalls++
	if f.embedFn == nil {
		vectors := make([][]float64, len(texts))
		for i := range vectors {
			vectors[i] = []float64{1, 0, 0}
		}
		return vectors, nil
	}
	return f.embedFn(texts)
}

func (f *fakeProvider) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	f.completeCalls++
	if f.completeFn == nil {
		return "{}", nil
	}
	return f.completeFn(systemPrompt, userPrompt)
}

func strPtr(s string) *string { return &s }

func TestIsNegativeFeedback(t *testing.T) {
	tests := []struct {
		feedbackType  string
		feedbackValue *string
		want          bool
	}{
		{"thumb_down", nil, true},
		{"thumbs_down", nil, true},
		{"negative", nil, true},
		{"down", nil, true},
		{"  Thumb_Down  ", nil, true},
		{"thumb_up", strPtr("1"), false},
		{"thumbs_up", nil, false},
		{"positive", nil, false},
		{"up", nil, false},
		{"rating", strPtr("1"), true},
		{"rating", strPtr("2.5"), true},
		{"rating", strPtr("3"), false},
		{"rating", strPtr("4"), false},
		{"rating", strPtr("oops"), false},
		{"rating", nil, false},
		{"", nil, false},
	}

	for _, test := range tests {
		log := models.AILog{FeedbackType: test.feedbackType, FeedbackValue: test.feedbackValue}
		if got := IsNegativeFeedback(log); got != test.want {
			t.Errorf("IsNegativeFeedback(type=%q value=%v) = %v, want %v", test.feedbackType, test.feedbackValue, got, test.want)
		}
	}
}

func TestClusterCount(t *testing.T) {
	tests := []struct {
		n    int
		want int
	}{
		{1, 1},
		{2, 1},
		{3, 1},
		{5, 1},
		{6, 2},
		{12, 4},
		{29, 9},
		{30, 10},
		{50, 10},
		{2000, 10},
	}

	for _, test := range tests {
		got := clusterCount(test.n)
		if got != test.want {
			t.Errorf("clusterCount(%d) = %d, want %d", test.n, got, test.want)
		}
		if got < 1 || got > min(10, test.n) {
			t.Errorf("clusterCount(%d) = %d, outside [1, min(10, n)]", test.n, got)
		}
	}
}

func TestRunNoNegativeLogs(t *testing.T) {
	provider := &fakeProvider{
		embedFn: func(texts []string) ([][]float64, error) {
			t.Fatal("Embed should not be called when there is no negative feedback")
			return nil, nil
		},
	}
	engine := NewInsightEngine(provider)

	logs := []models.AILog{
		{FeedbackType: "thumb_up"},
		{FeedbackType: "positive"},
	}
	insights, err := engine.Run(context.Background(), logs, "acct-1")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if insights != nil {
		t.Errorf("Expected nil insights, got %v", insights)
	}
}

func TestRunSingleCluster(t *testing.T) {
	provider := &fakeProvider{
		completeFn: func(systemPrompt, userPrompt string) (string, error) {
			return `{"failure_cause": "Bot cannot export data", "user_expectation": "a CSV download", "system_behavior": "refused the request"}`, nil
		},
	}
	engine := NewInsightEngine(provider)

	logs := []models.AILog{
		{Input: "export csv", Output: "no", FeedbackType: "thumb_down", FeedbackValue: strPtr("1"), Timestamp: time.Now()},
		{Input: "download data", Output: "cannot", FeedbackType: "thumb_down", FeedbackValue: strPtr("2"), Timestamp: time.Now()},
		{Input: "get spreadsheet", Output: "nope", FeedbackType: "thumb_down", Timestamp: time.Now()},
	}
	insights, err := engine.Run(context.Background(), logs, "acct-1")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(insights) != 1 {
		t.Fatalf("Expected 1 insight for k=1, got %d", len(insights))
	}

	insight := insights[0]
	if insight.Frequency != 3 {
		t.Errorf("Expected frequency 3, got %d", insight.Frequency)
	}
	if insight.Title != "Bot cannot export data" {
		t.Errorf("Unexpected title: %q", insight.Title)
	}
	if insight.Description != "Users expected: a CSV download. System behaved: refused the request" {
		t.Errorf("Unexpected description: %q", insight.Description)
	}
	if len(insight.ExampleSnippets) != 3 {
		t.Errorf("Expected 3 snippets, got %d", len(insight.ExampleSnippets))
	}
	if insight.AvgFeedback == nil || *insight.AvgFeedback != 1.5 {
		t.Errorf("Expected avg feedback 1.5, got %v", insight.AvgFeedback)
	}
	if insight.AccountID != "acct-1" {
		t.Errorf("Expected account acct-1, got %q", insight.AccountID)
	}
}

func TestRunEmbedErrorAborts(t *testing.T) {
	provider := &fakeProvider{
		embedFn: func(texts []string) ([][]float64, error) {
			return nil, errors.New("boom")
		},
	}
	engine := NewInsightEngine(provider)

	logs := []models.AILog{{Input: "q", Output: "a", FeedbackType: "thumb_down"}}
	insights, err := engine.Run(context.Background(), logs, "acct-1")
	if err == nil {
		t.Fatal("Expected error when embedding fails")
	}
	if insights != nil {
		t.Errorf("Expected no partial insights, got %v", insights)
	}
}

func TestRunTitleAndDescriptionFallbacks(t *testing.T) {
	provider := &fakeProvider{
		completeFn: func(systemPrompt, userPrompt string) (string, error) {
			return "{}", nil
		},
	}
	engine := NewInsightEngine(provider)

	logs := []models.AILog{
		{Input: "q1", Output: "a1", FeedbackType: "thumb_down"},
		{Input: "q2", Output: "a2", FeedbackType: "thumb_down"},
	}
	insights, err := engine.Run(context.Background(), logs, "acct-1")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(insights) != 1 {
		t.Fatalf("Expected 1 insight, got %d", len(insights))
	}
	if insights[0].Title != "Negative feedback pattern (2 conversations)" {
		t.Errorf("Unexpected fallback title: %q", insights[0].Title)
	}
	if !strings.HasPrefix(insights[0].Description, "Pattern: 2 similar conversations") {
		t.Errorf("Expected summary fallback description, got %q", insights[0].Description)
	}
}

func TestDecodeRootCause(t *testing.T) {
	root, parsed := decodeRootCause(`{"failure_cause": "c", "user_expectation": "e", "system_behavior": "b"}`)
	if !parsed {
		t.Fatal("Expected valid JSON to parse")
	}
	if root.FailureCause != "c" || root.UserExpectation != "e" || root.SystemBehavior != "b" {
		t.Errorf("Unexpected root cause: %+v", root)
	}

	root, parsed = decodeRootCause("```json\n{\"failure_cause\": \"fenced\"}\n```")
	if !parsed || root.FailureCause != "fenced" {
		t.Errorf("Expected fenced JSON to parse, got %+v parsed=%v", root, parsed)
	}

	raw := strings.Repeat("x", 300)
	root, parsed = decodeRootCause(raw)
	if parsed {
		t.Fatal("Expected raw text not to parse as JSON")
	}
	if root.FailureCause != strings.Repeat("x", 200) {
		t.Errorf("Expected raw text truncated to 200 chars, got %d", len(root.FailureCause))
	}
}

func TestAverageFeedback(t *testing.T) {
	logs := []models.AILog{
		{FeedbackValue: strPtr("1")},
		{FeedbackValue: strPtr("2")},
		{FeedbackValue: nil},
		{FeedbackValue: strPtr("abc")},
	}
	avg := averageFeedback(logs)
	if avg == nil || *avg != 1.5 {
		t.Errorf("Expected 1.5, got %v", avg)
	}

	if avg := averageFeedback([]models.AILog{{FeedbackValue: nil}}); avg != nil {
		t.Errorf("Expected nil for no parseable values, got %v", avg)
	}
}

func TestTruncateRunes(t *testing.T) {
	if got := truncateRunes("héllo", 3); got != "hél" {
		t.Errorf("Expected rune-safe truncation, got %q", got)
	}
	if got := truncateRunes("ok", 10); got != "ok" {
		t.Errorf("Expected short string unchanged, got %q", got)
	}
}
