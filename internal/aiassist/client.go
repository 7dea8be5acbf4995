// Package aiassist calls an OpenAI-compatible chat-completions endpoint to
// extract a structured intent record from a free-text question.
//
// The extractor is invoked only when the deterministic router scored below
// the acceptance threshold, AI Assist is on for the request, and an API key
// is configured. Its sole output is the five-field classification record; it
// never produces SQL or free-form prose the rest of the pipeline would have
// to trust.
package aiassist

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/Kal-El-1412/Nalyze-sub001/internal/model"
)

// Unspecified is the sentinel the extractor returns for fields the message
// did not determine.
const Unspecified = "unspecified"

var (
	// ErrNotConfigured means no API key is set; the state machine turns
	// this into instructional text, never a 500.
	ErrNotConfigured = errors.New("aiassist: no API key configured")

	// ErrInvalidResponse means the provider reply could not be parsed as
	// the expected JSON record.
	ErrInvalidResponse = errors.New("Invalid response format from AI")
)

// Extraction is the five-field classification record. Every field is either
// a value from its closed set or the string "unspecified".
type Extraction struct {
	AnalysisType string `json:"analysis_type"`
	TimePeriod   string `json:"time_period"`
	Metric       string `json:"metric"`
	GroupBy      string `json:"group_by"`
	DateColumn   string `json:"date_column"`
}

// Config holds client settings; zero values get defaults from New.
type Config struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

// Client talks to one OpenAI-compatible endpoint.
type Client struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
	logger     *slog.Logger
}

// New creates a Client. The API key may be empty; Configured reports
// whether extraction is possible.
func New(cfg Config, logger *slog.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.Model == "" {
		cfg.Model = "gpt-4o-mini"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &Client{
		apiKey:     cfg.APIKey,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		model:      cfg.Model,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     logger,
	}
}

// Configured reports whether an API key is present.
func (c *Client) Configured() bool {
	return c != nil && c.apiKey != ""
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

const systemPrompt = `You classify analytical questions about a tabular dataset.
Respond with ONLY a JSON object with exactly these fields:
  "analysis_type": one of "row_count", "top_categories", "trend", "outliers", "data_quality", or "unspecified"
  "time_period": one of "last_7_days", "last_30_days", "last_90_days", "all_time", or "unspecified"
  "metric": a numeric column name from the schema, or "unspecified"
  "group_by": a categorical column name from the schema, or "unspecified"
  "date_column": a date column name from the schema, or "unspecified"
Do not write SQL. Do not ask questions. Do not add any text outside the JSON object.`

// Extract classifies message against the (possibly redacted) catalog. The
// caller is responsible for redacting the catalog under Privacy Mode before
// it reaches this method.
func (c *Client) Extract(ctx context.Context, message string, cat *model.Catalog) (Extraction, error) {
	if !c.Configured() {
		return Extraction{}, ErrNotConfigured
	}

	body, err := json.Marshal(chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: buildUserPrompt(message, cat)},
		},
		MaxTokens:   256,
		Temperature: 0,
	})
	if err != nil {
		return Extraction{}, fmt.Errorf("aiassist: marshal request: %w", err)
	}

	content, err := c.complete(ctx, body)
	if err != nil {
		return Extraction{}, err
	}
	return parseExtraction(content, c.logger)
}

func (c *Client) complete(ctx context.Context, body []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("aiassist: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("aiassist: request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("aiassist: read response: %w", err)
	}

	var parsed chatResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return "", fmt.Errorf("aiassist: decode response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		msg := resp.Status
		if parsed.Error != nil && parsed.Error.Message != "" {
			msg = parsed.Error.Message
		}
		return "", fmt.Errorf("aiassist: provider error: %s", msg)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("aiassist: provider returned no choices")
	}
	return parsed.Choices[0].Message.Content, nil
}

// Probe sends a minimal request to verify connectivity and credentials.
func (c *Client) Probe(ctx context.Context) error {
	if !c.Configured() {
		return ErrNotConfigured
	}
	body, err := json.Marshal(chatRequest{
		Model:     c.model,
		Messages:  []chatMessage{{Role: "user", Content: "ping"}},
		MaxTokens: 1,
	})
	if err != nil {
		return fmt.Errorf("aiassist: marshal probe: %w", err)
	}
	_, err = c.complete(ctx, body)
	return err
}

func buildUserPrompt(message string, cat *model.Catalog) string {
	var b strings.Builder
	b.WriteString("Dataset schema:\n")
	if cat != nil {
		for _, col := range cat.Columns {
			fmt.Fprintf(&b, "- %s (%s)\n", col.Name, col.Type)
		}
	}
	b.WriteString("\nQuestion: ")
	b.WriteString(message)
	return b.String()
}

// parseExtraction decodes the model reply. Code-fence wrappers are stripped
// by brace matching; null and empty fields normalize to "unspecified".
func parseExtraction(content string, logger *slog.Logger) (Extraction, error) {
	jsonStr := extractJSON(content)
	if jsonStr == "" {
		logParseFailure(logger, content)
		return Extraction{}, ErrInvalidResponse
	}

	// Pointers distinguish null/missing from empty so both normalize the
	// same way.
	var raw struct {
		AnalysisType *string `json:"analysis_type"`
		TimePeriod   *string `json:"time_period"`
		Metric       *string `json:"metric"`
		GroupBy      *string `json:"group_by"`
		DateColumn   *string `json:"date_column"`
	}
	if err := json.Unmarshal([]byte(jsonStr), &raw); err != nil {
		logParseFailure(logger, content)
		return Extraction{}, ErrInvalidResponse
	}

	return Extraction{
		AnalysisType: normalizeField(raw.AnalysisType),
		TimePeriod:   normalizeField(raw.TimePeriod),
		Metric:       normalizeField(raw.Metric),
		GroupBy:      normalizeField(raw.GroupBy),
		DateColumn:   normalizeField(raw.DateColumn),
	}, nil
}

func normalizeField(p *string) string {
	if p == nil {
		return Unspecified
	}
	v := strings.TrimSpace(*p)
	if v == "" {
		return Unspecified
	}
	return v
}

// extractJSON finds the first balanced JSON object in a reply, which skips
// any markdown fence the model wrapped around it.
func extractJSON(response string) string {
	start := strings.Index(response, "{")
	if start == -1 {
		return ""
	}
	depth := 0
	for i := start; i < len(response); i++ {
		switch response[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return response[start : i+1]
			}
		}
	}
	return ""
}

func logParseFailure(logger *slog.Logger, content string) {
	if logger == nil {
		return
	}
	const maxLogged = 500
	if len(content) > maxLogged {
		content = content[:maxLogged] + "..."
	}
	logger.Warn("intent extraction returned unparseable content", "raw", content)
}
