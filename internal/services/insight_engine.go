package services

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/looplens/backend/internal/logger"
	"github.com/looplens/backend/internal/models"
)

// MaxNegativeLogs caps the engine's working set so downstream embedding and
// clustering cost stays bounded regardless of upload volume.
const MaxNegativeLogs = 2000

var negativeFeedbackTypes = map[string]bool{
	"thumb_down":  true,
	"thumbs_down": true,
	"negative":    true,
	"down":        true,
}

var positiveFeedbackTypes = map[string]bool{
	"thumb_up":  true,
	"thumbs_up": true,
	"positive":  true,
	"up":        true,
}

// IsNegativeFeedback classifies one record from its categorical tag, falling
// back to the numeric feedback value (<3.0 is negative). Unrecognized input
// defaults to not-negative and never errors.
func IsNegativeFeedback(log models.AILog) bool {
	ft := strings.ToLower(strings.TrimSpace(log.FeedbackType))
	if negativeFeedbackTypes[ft] {
		return true
	}
	if positiveFeedbackTypes[ft] {
		return false
	}
	if log.FeedbackValue != nil {
		if v, err := strconv.ParseFloat(strings.TrimSpace(*log.FeedbackValue), 64); err == nil {
			return v < 3.0
		}
	}
	return false
}

// clusterCount picks k for n documents: roughly one cluster per three
// documents, at least 1, at most 10, never more than n.
func clusterCount(n int) int {
	k := min(10, max(1, n/3))
	return min(k, n)
}

// truncateRunes trims s to at most n characters (not bytes).
func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

// InsightEngine clusters negative-feedback logs into failure patterns and
// explains each one with the completion provider.
type InsightEngine struct {
	provider AIProvider
}

func NewInsightEngine(provider AIProvider) *InsightEngine {
	return &InsightEngine{provider: provider}
}

// decodeRootCause parses the explainer response. When the model did not
// return valid JSON the raw text (truncated) becomes the failure cause and
// the second return value is false so callers can tell the difference.
func decodeRootCause(text string) (models.RootCause, bool) {
	clean := stripCodeFence(text)
	var root models.RootCause
	if err := json.Unmarshal([]byte(clean), &root); err != nil {
		return models.RootCause{FailureCause: truncateRunes(clean, 200)}, false
	}
	return root, true
}

// Run filters to negative feedback, caps to the newest MaxNegativeLogs,
// embeds, clusters and explains. Returns one Insight per non-empty cluster,
// not yet persisted. An embedding or explanation failure aborts the whole
// run with no partial result.
func (e *InsightEngine) Run(ctx context.Context, logs []models.AILog, accountID string) ([]models.Insight, error) {
	var negative []models.AILog
	for _, l := range logs {
		if IsNegativeFeedback(l) {
			negative = append(negative, l)
		}
	}
	if len(negative) == 0 {
		return nil, nil
	}

	if len(negative) > MaxNegativeLogs {
		sort.SliceStable(negative, func(i, j int) bool {
			return negative[i].Timestamp.After(negative[j].Timestamp)
		})
		negative = negative[:MaxNegativeLogs]
	}

	texts := make([]string, len(negative))
	for i, l := range negative {
		texts[i] = fmt.Sprintf("input: %s\noutput: %s", truncateRunes(l.Input, 2000), truncateRunes(l.Output, 2000))
	}

	embeddings, err := e.provider.Embed(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("insight engine embedding step failed: %w", err)
	}
	if len(embeddings) != len(negative) {
		return nil, fmt.Errorf("insight engine got %d embeddings for %d logs", len(embeddings), len(negative))
	}

	NormalizeRows(embeddings)
	n := len(negative)
	k := clusterCount(n)
	labels := KMeans(embeddings, DefaultKMeansConfig(k))

	logger.WithAccount(accountID, "").WithField("negative_logs", n).WithField("clusters", k).Info("clustering negative feedback")

	var insights []models.Insight
	for c := 0; c < k; c++ {
		var members []models.AILog
		for i, label := range labels {
			if label == c {
				members = append(members, negative[i])
			}
		}
		if len(members) == 0 {
			continue
		}

		snippets := make(models.SnippetList, 0, 5)
		for _, m := range members[:min(5, len(members))] {
			snippets = append(snippets, models.Snippet{
				Input:  truncateRunes(m.Input, 300),
				Output: truncateRunes(m.Output, 300),
			})
		}

		avgFeedback := averageFeedback(members)
		summary := fmt.Sprintf(
			"Pattern: %d similar conversations with negative feedback. Example: user said \"%s...\" and got \"%s...\"",
			len(members), truncateRunes(members[0].Input, 150), truncateRunes(members[0].Output, 150),
		)

		response, err := e.provider.Complete(ctx, EXPLAIN_CLUSTER_SYSTEM_PROMPT, fmt.Sprintf(EXPLAIN_CLUSTER_USER_PROMPT, summary))
		if err != nil {
			return nil, fmt.Errorf("insight engine explanation step failed: %w", err)
		}
		root, parsed := decodeRootCause(response)
		if !parsed {
			logger.WithProvider("explain_cluster", accountID).Warn("explainer returned non-JSON, using raw text as failure cause")
		}

		title := truncateRunes(root.FailureCause, 200)
		if title == "" {
			title = fmt.Sprintf("Negative feedback pattern (%d conversations)", len(members))
		}
		description := truncateRunes(fmt.Sprintf("Users expected: %s. System behaved: %s", root.UserExpectation, root.SystemBehavior), 500)
		if root.UserExpectation == "" && root.SystemBehavior == "" {
			description = truncateRunes(summary, 500)
		}

		insights = append(insights, models.Insight{
			AccountID:       accountID,
			Title:           title,
			Description:     description,
			ExampleSnippets: snippets,
			Frequency:       len(members),
			AvgFeedback:     avgFeedback,
			RootCause:       root,
		})
	}
	return insights, nil
}

// averageFeedback is the mean of the parseable numeric feedback values,
// rounded to 2 decimals, or nil if none parse.
func averageFeedback(logs []models.AILog) *float64 {
	var sum float64
	var count int
	for _, l := range logs {
		if l.FeedbackValue == nil {
			continue
		}
		if v, err := strconv.ParseFloat(strings.TrimSpace(*l.FeedbackValue), 64); err == nil {
			sum += v
			count++
		}
	}
	if count == 0 {
		return nil
	}
	avg := math.Round(sum/float64(count)*100) / 100
	return &avg
}
