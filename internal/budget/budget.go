// Package budget estimates prompt size and trims conversation history so a
// chat turn stays inside the model's context window. The estimate is a
// character heuristic of about 4 characters per token.
package budget

import (
	"github.com/cloudwego/eino/schema"
)

const (
	// charsPerToken is the character-to-token ratio used for estimation.
	charsPerToken = 4

	// messageOverhead is the per-message framing cost most chat APIs charge.
	messageOverhead = 4

	// DefaultMaxContextTokens is the input budget when MAX_CONTEXT_TOKENS is
	// unset. It fits 8k-context models with room left for the answer.
	DefaultMaxContextTokens = 6000
)

// Estimate returns a rough token count for s.
func Estimate(s string) int {
	n := len(s) / charsPerToken
	if n == 0 && len(s) > 0 {
		return 1
	}
	return n
}

// EstimateMessages sums the estimated cost of role and content for msgs.
func EstimateMessages(msgs []*schema.Message) int {
	total := 0
	for _, m := range msgs {
		total += messageOverhead + Estimate(string(m.Role)) + Estimate(m.Content)
	}
	return total
}

// TrimHistory drops history messages oldest-first until fixed plus history
// fits in maxTokens. fixed (system prompt and the current user message) is
// never trimmed. After trimming, a leading assistant message whose question
// was dropped is removed too, so the kept history always opens with the
// customer's side of an exchange.
func TrimHistory(fixed, history []*schema.Message, maxTokens int) []*schema.Message {
	if len(history) == 0 {
		return history
	}

	fixedTokens := EstimateMessages(fixed)
	trimmed := false
	for len(history) > 0 && fixedTokens+EstimateMessages(history) > maxTokens {
		history = history[1:]
		trimmed = true
	}
	if trimmed && len(history) > 0 && history[0].Role == schema.Assistant {
		history = history[1:]
	}
	return history
}

// Exceeds reports whether msgs alone are over maxTokens.
func Exceeds(msgs []*schema.Message, maxTokens int) bool {
	return EstimateMessages(msgs) > maxTokens
}
