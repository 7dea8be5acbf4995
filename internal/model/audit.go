package model

import "time"

// Routing decisions recorded in RoutingMetadata.
const (
	RoutingDeterministic       = "deterministic"
	RoutingAIIntentExtraction  = "ai_intent_extraction"
	RoutingClarificationNeeded = "clarification_needed"
	RoutingDirectQuery         = "direct_query"
)

// RoutingMetadata carries per-turn routing diagnostics.
type RoutingMetadata struct {
	RoutingDecision          string   `json:"routing_decision"`
	DeterministicConfidence  *float64 `json:"deterministic_confidence,omitempty"`
	DeterministicMatch       string   `json:"deterministic_match,omitempty"`
	OpenAIInvoked            bool     `json:"openai_invoked"`
	SafeMode                 bool     `json:"safe_mode"`
	PrivacyMode              bool     `json:"privacy_mode"`
}

// ExecutedQuery records one query from the plan with its executed row count.
type ExecutedQuery struct {
	Name     string `json:"name"`
	SQL      string `json:"sql"`
	RowCount int    `json:"rowCount"`
}

// Audit is the structured record attached to every analytical response.
// SharedWithAI lists the privacy measures in effect: "PII_redacted" when
// Privacy Mode redacted the catalog before any external call,
// "safe_mode_no_raw_rows" when Safe Mode blocked row-level output.
type Audit struct {
	DatasetID       string           `json:"datasetId"`
	DatasetName     string           `json:"datasetName,omitempty"`
	AnalysisType    AnalysisType     `json:"analysisType,omitempty"`
	TimePeriod      TimePeriod       `json:"timePeriod,omitempty"`
	AIAssist        bool             `json:"aiAssist"`
	SafeMode        bool             `json:"safeMode"`
	PrivacyMode     bool             `json:"privacyMode"`
	ExecutedQueries []ExecutedQuery  `json:"executedQueries,omitempty"`
	SharedWithAI    []string         `json:"sharedWithAI,omitempty"`
	GeneratedAt     time.Time        `json:"generatedAt"`
	RoutingMetadata *RoutingMetadata `json:"routingMetadata,omitempty"`
}
