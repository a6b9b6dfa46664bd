// Package trigger decides when the conversation should be interrupted to
// request the visitor's contact details.
//
// The engine is a pure decision function over a read-only view of the
// transcript. Arming, firing and re-arming are owned by the session
// controller; the engine itself keeps no state, so it can be swapped for
// a scoring model without touching the controller.
package trigger

import (
	"strings"
)

// Reason explains why a decision fired.
type Reason string

const (
	ReasonIntentKeyword    Reason = "intent_keyword"
	ReasonInteractionCount Reason = "interaction_count"
)

// View is the read-only conversation slice an engine evaluates.
type View struct {
	// LatestAgentText is the text of the agent message that was just
	// appended. Empty when the latest append was not an agent message.
	LatestAgentText string

	// VisitorTurns is the number of visitor messages in the transcript.
	VisitorTurns int
}

// Decision is the engine's verdict for one evaluation.
type Decision struct {
	Fire    bool
	Reason  Reason
	Keyword string
}

// Engine evaluates a conversation view. Implementations must be pure:
// same view, same decision.
type Engine interface {
	Evaluate(v View) Decision
}

// DefaultKeywords is the fixed intent set matched against agent replies.
// The product serves the Spanish-speaking market first, so both English
// and Spanish terms are included.
var DefaultKeywords = []string{
	"contact", "price", "visit", "schedule",
	"contacto", "precio", "visita", "agendar",
}

const defaultFallbackTurns = 2

// KeywordEngine fires on a case-insensitive substring match of the latest
// agent message against a fixed keyword set, with a deterministic
// interaction-count fallback: when the visitor reaches the turn threshold
// without a keyword match, the fallback fires exactly at that turn.
type KeywordEngine struct {
	keywords      []string
	fallbackTurns int
}

// NewKeywordEngine creates an engine with the default intent keywords and
// a two-visitor-turn fallback threshold.
func NewKeywordEngine() *KeywordEngine {
	return NewKeywordEngineWith(DefaultKeywords, defaultFallbackTurns)
}

// NewKeywordEngineWith creates an engine with a custom keyword set and
// fallback threshold. A threshold <= 0 disables the fallback rule.
func NewKeywordEngineWith(keywords []string, fallbackTurns int) *KeywordEngine {
	normalized := make([]string, 0, len(keywords))
	for _, kw := range keywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw == "" {
			continue
		}
		normalized = append(normalized, kw)
	}
	return &KeywordEngine{
		keywords:      normalized,
		fallbackTurns: fallbackTurns,
	}
}

// Evaluate applies the keyword rule, then the interaction-count fallback.
func (e *KeywordEngine) Evaluate(v View) Decision {
	if text := strings.ToLower(v.LatestAgentText); text != "" {
		for _, kw := range e.keywords {
			if strings.Contains(text, kw) {
				return Decision{Fire: true, Reason: ReasonIntentKeyword, Keyword: kw}
			}
		}
	}

	// Deterministic fallback: fire at the exact turn the threshold is
	// crossed, so repeated evaluations of later turns stay quiet.
	if e.fallbackTurns > 0 && v.VisitorTurns == e.fallbackTurns {
		return Decision{Fire: true, Reason: ReasonInteractionCount}
	}

	return Decision{}
}
