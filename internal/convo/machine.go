package convo

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/Kal-El-1412/Nalyze-sub001/internal/aiassist"
	"github.com/Kal-El-1412/Nalyze-sub001/internal/model"
	"github.com/Kal-El-1412/Nalyze-sub001/internal/planner"
	"github.com/Kal-El-1412/Nalyze-sub001/internal/privacy"
	"github.com/Kal-El-1412/Nalyze-sub001/internal/router"
	"github.com/Kal-El-1412/Nalyze-sub001/internal/sqlcheck"
)

// Extractor is the optional external intent-extraction collaborator.
type Extractor interface {
	Configured() bool
	Extract(ctx context.Context, message string, cat *model.Catalog) (aiassist.Extraction, error)
}

// Machine interprets chat turns: it updates conversation context and decides
// between clarification, AI intent extraction, planning, and summarization.
// User-caused problems always map to a response shape; HandleTurn never
// fails a turn with an error.
type Machine struct {
	store     *Store
	extractor Extractor
	logger    *slog.Logger
}

// NewMachine creates a Machine. extractor may be nil when no AI provider is
// configured.
func NewMachine(store *Store, extractor Extractor, logger *slog.Logger) *Machine {
	return &Machine{store: store, extractor: extractor, logger: logger}
}

// Turn is one validated chat turn. Exactly one of Message or Intent is set;
// the HTTP layer enforces the envelope rules before constructing a Turn.
type Turn struct {
	ConversationID string
	Dataset        *model.Dataset
	Message        string
	Intent         model.Intent
	Value          string
	AIAssist       bool
	SafeMode       bool
	PrivacyMode    bool
	Results        *model.ResultsContext
}

const (
	msgAIUnavailable = "AI Assist is turned on, but no AI provider API key is configured. " +
		"Set OPENAI_API_KEY and restart the service, or turn AI Assist off and pick an analysis from the buttons."

	msgAIInvalidResponse = "Invalid response format from AI. " +
		"Try rephrasing your question, or pick an analysis type manually."

	msgGuidance = "I can analyze this dataset in five ways: row counts, top categories, " +
		"trends over time, outliers, and data quality checks. Ask for one of those directly, " +
		"or enable AI Assist to let me interpret more open-ended questions."
)

// HandleTurn runs one turn against the conversation's context. Turns with
// the same conversation id serialize in arrival order on the conversation
// lock.
func (m *Machine) HandleTurn(ctx context.Context, t Turn) *model.ChatResponse {
	conv := m.store.Get(t.ConversationID)
	conv.mu.Lock()
	defer conv.mu.Unlock()

	meta := &model.RoutingMetadata{
		SafeMode:    t.SafeMode,
		PrivacyMode: t.PrivacyMode,
	}

	if t.Intent != "" {
		meta.RoutingDecision = model.RoutingDirectQuery
		applyIntent(&conv.Context, t.Intent, t.Value)
		return m.afterIntent(ctx, conv, t, meta)
	}

	c := &conv.Context
	if ready(c) {
		meta.RoutingDecision = model.RoutingDirectQuery
		return m.dispatch(ctx, conv, t, meta)
	}

	d := router.Route(t.Message)
	conf := d.Confidence
	meta.DeterministicConfidence = &conf
	if d.Type != "" {
		meta.DeterministicMatch = string(d.Type)
	}

	switch {
	case d.Confidence >= router.Accept:
		meta.RoutingDecision = model.RoutingDeterministic
		c.AnalysisType = d.Type
		if d.Params.TimePeriod != "" {
			c.TimePeriod = d.Params.TimePeriod
		}
		if d.Params.Limit > 0 {
			c.Limit = d.Params.Limit
		}
		forceWholeDataset(c)

	case t.AIAssist && m.extractor != nil && m.extractor.Configured():
		meta.RoutingDecision = model.RoutingAIIntentExtraction
		meta.OpenAIInvoked = true
		cat := t.Dataset.Catalog
		if t.PrivacyMode {
			cat = privacy.RedactCatalog(cat)
		}
		ext, err := m.extractor.Extract(ctx, t.Message, cat)
		if err != nil {
			m.logger.Warn("intent extraction failed", "conversation_id", conv.ID, "error", err)
			return m.finalAnswer(conv, t, meta, aiErrorMessage(err))
		}
		mergeExtraction(c, ext)
		forceWholeDataset(c)

	case t.AIAssist:
		// AI Assist on but no key configured: instructional text, never 500.
		meta.RoutingDecision = model.RoutingClarificationNeeded
		return m.finalAnswer(conv, t, meta, msgAIUnavailable)

	case !c.ClarificationAsked:
		c.ClarificationAsked = true
		meta.RoutingDecision = model.RoutingClarificationNeeded
		return m.clarifyAnalysisType(conv, t, meta)

	default:
		// Second unresolved free-text turn: static guidance instead of a
		// clarification loop. The intent path stays usable.
		meta.RoutingDecision = model.RoutingClarificationNeeded
		return m.finalAnswer(conv, t, meta, msgGuidance)
	}

	if !ready(c) {
		if c.AnalysisType.Valid() {
			return m.clarifyTimePeriod(conv, t, meta)
		}
		return m.clarifyAnalysisType(conv, t, meta)
	}
	return m.dispatch(ctx, conv, t, meta)
}

// afterIntent finishes an intent turn. A click that completes the context
// dispatches immediately; a click that leaves the time period open is
// acknowledged with a prompt for the missing field.
func (m *Machine) afterIntent(ctx context.Context, conv *Conversation, t Turn, meta *model.RoutingMetadata) *model.ChatResponse {
	c := &conv.Context
	if ready(c) {
		return m.dispatch(ctx, conv, t, meta)
	}
	if !c.AnalysisType.Valid() {
		// Only reachable on the intent path, e.g. a time period was picked
		// before any analysis type.
		return m.clarifyAnalysisType(conv, t, meta)
	}

	msg := "Got it — " + c.AnalysisType.Label() + " analysis. Which time period should it cover?"
	return &model.ChatResponse{
		Type:            model.TypeIntentAcknowledged,
		ConversationID:  conv.ID,
		Intent:          t.Intent,
		Value:           t.Value,
		State:           stateSnapshot(c),
		Message:         msg,
		RoutingMetadata: meta,
	}
}

// dispatch runs step 4: summarize a results repost, otherwise plan.
func (m *Machine) dispatch(ctx context.Context, conv *Conversation, t Turn, meta *model.RoutingMetadata) *model.ChatResponse {
	_ = ctx
	c := &conv.Context

	if t.Results != nil {
		sum := planner.Summarize(c.AnalysisType, t.Results.Results)
		audit := m.buildAudit(conv, t, meta)
		audit.ExecutedQueries = executedQueries(c, t.Results)
		return &model.ChatResponse{
			Type:            model.TypeFinalAnswer,
			ConversationID:  conv.ID,
			Message:         sum.Message,
			Tables:          sum.Tables,
			Audit:           audit,
			RoutingMetadata: meta,
		}
	}

	plan, err := planner.Build(c.AnalysisType, t.Dataset.Catalog, planner.Options{
		TimePeriod: c.TimePeriod,
		Limit:      c.Limit,
		SafeMode:   t.SafeMode,
		Metric:     c.Metric,
		GroupBy:    c.GroupBy,
		DateColumn: c.DateColumn,
	})
	if err != nil {
		// Readiness guarantees a valid analysis type, so this is a bug; fail
		// soft with guidance rather than a 500.
		m.logger.Error("planner rejected a ready context", "conversation_id", conv.ID, "error", err)
		return m.finalAnswer(conv, t, meta, msgGuidance)
	}

	for _, q := range plan.Queries {
		if cerr := sqlcheck.Check(q.SQL, t.SafeMode); cerr != nil {
			rej := sqlcheck.AsRejection(cerr)
			return &model.ChatResponse{
				Type:            model.TypeNeedsClarification,
				ConversationID:  conv.ID,
				Question:        rej.Message + " Would you like to try something else?",
				Choices:         []string{"Ask a different question", "View dataset info"},
				AllowFreeText:   boolPtr(false),
				Audit:           m.buildAudit(conv, t, meta),
				RoutingMetadata: meta,
			}
		}
	}

	c.LastPlannedQueries = plan.Queries
	return &model.ChatResponse{
		Type:            model.TypeRunQueries,
		ConversationID:  conv.ID,
		Queries:         plan.Queries,
		Explanation:     plan.Explanation,
		Audit:           m.buildAudit(conv, t, meta),
		RoutingMetadata: meta,
	}
}

func (m *Machine) clarifyAnalysisType(conv *Conversation, t Turn, meta *model.RoutingMetadata) *model.ChatResponse {
	choices := make([]string, 0, len(model.AllAnalysisTypes))
	for _, at := range model.AllAnalysisTypes {
		choices = append(choices, at.Label())
	}
	return &model.ChatResponse{
		Type:            model.TypeNeedsClarification,
		ConversationID:  conv.ID,
		Question:        "What kind of analysis would you like?",
		Choices:         choices,
		Intent:          model.IntentSetAnalysisType,
		AllowFreeText:   boolPtr(false),
		Audit:           m.buildAudit(conv, t, meta),
		RoutingMetadata: meta,
	}
}

func (m *Machine) clarifyTimePeriod(conv *Conversation, t Turn, meta *model.RoutingMetadata) *model.ChatResponse {
	choices := make([]string, 0, len(model.AllTimePeriods))
	for _, p := range model.AllTimePeriods {
		choices = append(choices, p.Label())
	}
	return &model.ChatResponse{
		Type:            model.TypeNeedsClarification,
		ConversationID:  conv.ID,
		Question:        "Which time period should the analysis cover?",
		Choices:         choices,
		Intent:          model.IntentSetTimePeriod,
		AllowFreeText:   boolPtr(false),
		Audit:           m.buildAudit(conv, t, meta),
		RoutingMetadata: meta,
	}
}

func (m *Machine) finalAnswer(conv *Conversation, t Turn, meta *model.RoutingMetadata, msg string) *model.ChatResponse {
	return &model.ChatResponse{
		Type:            model.TypeFinalAnswer,
		ConversationID:  conv.ID,
		Message:         msg,
		Audit:           m.buildAudit(conv, t, meta),
		RoutingMetadata: meta,
	}
}

func (m *Machine) buildAudit(conv *Conversation, t Turn, meta *model.RoutingMetadata) *model.Audit {
	c := &conv.Context
	audit := &model.Audit{
		DatasetID:       t.Dataset.ID,
		DatasetName:     t.Dataset.Name,
		AIAssist:        t.AIAssist,
		SafeMode:        t.SafeMode,
		PrivacyMode:     t.PrivacyMode,
		GeneratedAt:     time.Now().UTC(),
		RoutingMetadata: meta,
	}
	if c.AnalysisType.Valid() {
		audit.AnalysisType = c.AnalysisType
	}
	if c.TimePeriod != "" {
		audit.TimePeriod = c.TimePeriod
	}
	// The redaction marker is a statement of fact, not of configuration:
	// it appears only when the catalog actually had columns to redact.
	if t.PrivacyMode && privacy.HasPII(t.Dataset.Catalog) {
		audit.SharedWithAI = append(audit.SharedWithAI, model.SharedPIIRedacted)
	}
	if t.SafeMode {
		audit.SharedWithAI = append(audit.SharedWithAI, model.SharedSafeModeNoRawRows)
	}
	return audit
}

// executedQueries joins reposted results with the saved plan by name so the
// audit carries the SQL that actually ran.
func executedQueries(c *Context, results *model.ResultsContext) []model.ExecutedQuery {
	planned := make(map[string]string, len(c.LastPlannedQueries))
	for _, q := range c.LastPlannedQueries {
		planned[q.Name] = q.SQL
	}
	out := make([]model.ExecutedQuery, 0, len(results.Results))
	for _, r := range results.Results {
		out = append(out, model.ExecutedQuery{
			Name:     r.Name,
			SQL:      planned[r.Name],
			RowCount: r.RowCount,
		})
	}
	return out
}

// applyIntent merges one structured click into the context. Display labels
// map to internal values; unknown values pass through unchanged and are
// caught by the readiness check.
func applyIntent(c *Context, intent model.Intent, value string) {
	v := model.NormalizeIntentValue(value)
	switch intent {
	case model.IntentSetAnalysisType:
		c.AnalysisType = model.AnalysisType(v)
	case model.IntentSetTimePeriod:
		c.TimePeriod = model.TimePeriod(v)
	case model.IntentSetMetric:
		c.Metric = v
	case model.IntentSetGroupBy:
		c.GroupBy = v
	case model.IntentSetDateColumn:
		c.DateColumn = v
	}
	forceWholeDataset(c)
}

// mergeExtraction folds the AI record into the context, treating the
// "unspecified" sentinel as missing and ignoring values outside the closed
// sets.
func mergeExtraction(c *Context, ext aiassist.Extraction) {
	if ext.AnalysisType != aiassist.Unspecified {
		if at := model.AnalysisType(ext.AnalysisType); at.Valid() {
			c.AnalysisType = at
		}
	}
	if ext.TimePeriod != aiassist.Unspecified {
		if p := model.TimePeriod(ext.TimePeriod); p.Valid() && p != model.PeriodUnspecified {
			c.TimePeriod = p
		}
	}
	if ext.Metric != aiassist.Unspecified {
		c.Metric = ext.Metric
	}
	if ext.GroupBy != aiassist.Unspecified {
		c.GroupBy = ext.GroupBy
	}
	if ext.DateColumn != aiassist.Unspecified {
		c.DateColumn = ext.DateColumn
	}
}

// forceWholeDataset pins all_time for analyses defined over the entire
// dataset. The forcing happens here, exactly once per turn; the planner
// trusts context.
func forceWholeDataset(c *Context) {
	if c.AnalysisType.WholeDataset() {
		c.TimePeriod = model.PeriodAllTime
	}
}

// ready is the readiness predicate: a valid analysis type, plus a time
// period unless the analysis covers the whole dataset.
func ready(c *Context) bool {
	if !c.AnalysisType.Valid() {
		return false
	}
	if c.AnalysisType.WholeDataset() {
		return true
	}
	return c.TimePeriod != "" && c.TimePeriod != model.PeriodUnspecified
}

func aiErrorMessage(err error) string {
	if errors.Is(err, aiassist.ErrInvalidResponse) {
		return msgAIInvalidResponse
	}
	if errors.Is(err, aiassist.ErrNotConfigured) {
		return msgAIUnavailable
	}
	return "The AI intent service could not be reached. Try again in a moment, or pick an analysis type manually."
}

func stateSnapshot(c *Context) map[string]any {
	state := map[string]any{}
	if c.AnalysisType != "" {
		state["analysis_type"] = string(c.AnalysisType)
	}
	if c.TimePeriod != "" {
		state["time_period"] = string(c.TimePeriod)
	}
	if c.Metric != "" {
		state["metric"] = c.Metric
	}
	if c.GroupBy != "" {
		state["group_by"] = c.GroupBy
	}
	if c.DateColumn != "" {
		state["date_column"] = c.DateColumn
	}
	return state
}

func boolPtr(b bool) *bool { return &b }
