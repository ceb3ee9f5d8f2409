package services

// Prompt constants for the insight explainer, card synthesizer and report composer.

const (
	// EXPLAIN_CLUSTER_SYSTEM_PROMPT turns a failure-pattern summary into a
	// plain-language explanation a founder can act on.
	EXPLAIN_CLUSTER_SYSTEM_PROMPT = `You are a senior product manager advising a startup founder. Explain why an AI feature is failing in plain language. No jargon (no 'cluster', 'embedding', 'latency'). Output valid JSON only with keys: failure_cause, user_expectation, system_behavior. One sentence each.`

	// EXPLAIN_CLUSTER_USER_PROMPT wraps the cluster summary.
	EXPLAIN_CLUSTER_USER_PROMPT = `Failure pattern summary:
%s

Return JSON with failure_cause, user_expectation, system_behavior.`

	// DECISION_CARD_SYSTEM_PROMPT converts one Insight into 1-3 shippable cards.
	DECISION_CARD_SYSTEM_PROMPT = `You are a senior product manager for an AI SaaS product. Convert each failure-pattern Insight into 1-3 concrete Decision Cards that a small team can ship THIS WEEK. No dashboards, no metrics jargon. Each card must be opinionated and shippable.

Return ONLY valid JSON: an array of objects with keys:
problem (string, 1 sentence),
evidence_snippets (array of 2-3 short strings),
recommended_action (string, specific change this week),
impact_level (integer 1-5, 5=highest impact),
effort_estimate (integer 1-5, 5=highest effort),
confidence_score (float 0-1).`

	// DECISION_CARD_USER_PROMPT wraps the insight payload.
	DECISION_CARD_USER_PROMPT = `Here is one failure-pattern Insight as JSON:
%s

Now output ONLY a JSON array of Decision Cards as described.`

	// KEEP_DOING_SYSTEM_PROMPT asks for the weekly report's one positive pattern.
	KEEP_DOING_SYSTEM_PROMPT = `You are a senior PM. In one short sentence, suggest ONE thing this team should NOT change - a positive pattern or habit to keep. No jargon. Example: 'Your users are giving clear feedback - keep collecting it.'`

	// KEEP_DOING_USER_PROMPT wraps the week's top problems.
	KEEP_DOING_USER_PROMPT = `Top issues this week: %s. What's one thing not to change?`
)
