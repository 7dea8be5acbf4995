package model

import (
	"encoding/json"
	"time"
)

// ChatRequest is the request body for POST /chat. Exactly one of Message or
// Intent must be present after whitespace trimming; Value is required with
// Intent. Mode flags are pointers so the handler can distinguish "absent"
// (fall back to header or default) from an explicit false.
type ChatRequest struct {
	DatasetID       string          `json:"datasetId"`
	ConversationID  string          `json:"conversationId,omitempty"`
	Message         string          `json:"message,omitempty"`
	Intent          string          `json:"intent,omitempty"`
	Value           any             `json:"value,omitempty"`
	PrivacyMode     *bool           `json:"privacyMode,omitempty"`
	SafeMode        *bool           `json:"safeMode,omitempty"`
	AIAssist        *bool           `json:"aiAssist,omitempty"`
	ResultsContext  *ResultsContext `json:"resultsContext,omitempty"`
	DefaultsContext json.RawMessage `json:"defaultsContext,omitempty"`
}

// ResponseType discriminates the four chat response shapes.
type ResponseType string

const (
	TypeNeedsClarification ResponseType = "needs_clarification"
	TypeIntentAcknowledged ResponseType = "intent_acknowledged"
	TypeRunQueries         ResponseType = "run_queries"
	TypeFinalAnswer        ResponseType = "final_answer"
)

// ChatResponse is the response body for POST /chat. Which fields are set
// depends on Type; Type and ConversationID are always present.
type ChatResponse struct {
	Type           ResponseType `json:"type"`
	ConversationID string       `json:"conversationId"`

	// needs_clarification
	Question      string   `json:"question,omitempty"`
	Choices       []string `json:"choices,omitempty"`
	Intent        Intent   `json:"intent,omitempty"`
	AllowFreeText *bool    `json:"allowFreeText,omitempty"`

	// intent_acknowledged
	Value any            `json:"value,omitempty"`
	State map[string]any `json:"state,omitempty"`

	// run_queries
	Queries     []PlannedQuery `json:"queries,omitempty"`
	Explanation string         `json:"explanation,omitempty"`

	// final_answer (Message also carries intent_acknowledged text)
	Message string  `json:"message,omitempty"`
	Tables  []Table `json:"tables,omitempty"`

	Audit           *Audit           `json:"audit,omitempty"`
	RoutingMetadata *RoutingMetadata `json:"routing_metadata,omitempty"`
}

// ExecuteRequest is the request body for POST /queries/execute.
type ExecuteRequest struct {
	DatasetID string         `json:"datasetId"`
	Queries   []PlannedQuery `json:"queries"`
	SafeMode  *bool          `json:"safeMode,omitempty"`
}

// ExecuteResponse is the response body for POST /queries/execute.
type ExecuteResponse struct {
	Results []QueryResult `json:"results"`
}

// RegisterRequest is the request body for POST /datasets.
type RegisterRequest struct {
	Name     string `json:"name"`
	FilePath string `json:"filePath"`
}

// Report is a persisted final_answer snapshot.
type Report struct {
	ID             string    `json:"id"`
	DatasetID      string    `json:"dataset_id"`
	DatasetName    string    `json:"dataset_name"`
	ConversationID string    `json:"conversation_id"`
	Question       string    `json:"question"`
	Answer         string    `json:"answer"`
	Tables         []Table   `json:"tables,omitempty"`
	Audit          *Audit    `json:"audit,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// APIError is the standard error response envelope.
type APIError struct {
	Error ErrorDetail  `json:"error"`
	Meta  ResponseMeta `json:"meta"`
}

// ErrorDetail describes an API error.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// ResponseMeta contains request metadata included in every error response.
type ResponseMeta struct {
	RequestID string    `json:"request_id"`
	Timestamp time.Time `json:"timestamp"`
}

// ErrorCode constants for standard API error codes.
const (
	ErrCodeProtocolViolation = "PROTOCOL_VIOLATION"
	ErrCodeDatasetNotFound   = "DATASET_NOT_FOUND"
	ErrCodeFileUnreadable    = "FILE_UNREADABLE"
	ErrCodeValidationFailed  = "VALIDATION_FAILED"
	ErrCodeQueryTimeout      = "QUERY_TIMEOUT"
	ErrCodeEngineError       = "ENGINE_ERROR"
	ErrCodeNotFound          = "NOT_FOUND"
	ErrCodeInternal          = "INTERNAL"
)

// SharedWithAI trail entries.
const (
	SharedPIIRedacted       = "PII_redacted"
	SharedSafeModeNoRawRows = "safe_mode_no_raw_rows"
)
