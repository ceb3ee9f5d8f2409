package services

import (
	"context"
	"errors"
	"testing"

	"github.com/looplens/backend/internal/config"
	"github.com/looplens/backend/internal/models"
)

func TestOpenAIProviderUnconfigured(t *testing.T) {
	provider := NewOpenAIProvider(&config.Config{})

	if _, err := provider.Embed(context.Background(), []string{"text"}); !errors.Is(err, ErrProviderUnavailable) {
		t.Errorf("Embed without API key: expected ErrProviderUnavailable, got %v", err)
	}
	if _, err := provider.Complete(context.Background(), "system", "user"); !errors.Is(err, ErrProviderUnavailable) {
		t.Errorf("Complete without API key: expected ErrProviderUnavailable, got %v", err)
	}
}

func TestRunPropagatesProviderUnavailable(t *testing.T) {
	engine := NewInsightEngine(NewOpenAIProvider(&config.Config{}))

	logs := []models.AILog{{Input: "q", Output: "a", FeedbackType: "thumb_down"}}
	_, err := engine.Run(context.Background(), logs, "acct-1")
	if !errors.Is(err, ErrProviderUnavailable) {
		t.Errorf("Expected ErrProviderUnavailable to surface through the engine, got %v", err)
	}
}

func TestStripCodeFence(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"```json\n{\"a\": 1}\n```", `{"a": 1}`},
		{"```\n[]\n```", "[]"},
		{`{"a": 1}`, `{"a": 1}`},
	}

	for _, test := range tests {
		if got := stripCodeFence(test.input); got != test.want {
			t.Errorf("stripCodeFence(%q) = %q, want %q", test.input, got, test.want)
		}
	}
}
