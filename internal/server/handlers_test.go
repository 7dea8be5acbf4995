package server

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kal-El-1412/Nalyze-sub001/internal/convo"
	"github.com/Kal-El-1412/Nalyze-sub001/internal/engine"
	"github.com/Kal-El-1412/Nalyze-sub001/internal/model"
	"github.com/Kal-El-1412/Nalyze-sub001/internal/registry"
	"github.com/Kal-El-1412/Nalyze-sub001/internal/reports"
)

type testEnv struct {
	handler  http.Handler
	registry *registry.Registry
	reports  *reports.Store
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	logger := slog.New(slog.DiscardHandler)

	reg, err := registry.Open(t.TempDir())
	require.NoError(t, err)
	reps, err := reports.Open(t.TempDir())
	require.NoError(t, err)

	eng := engine.New(logger, engine.Options{})
	t.Cleanup(eng.Close)

	srv := New(ServerConfig{
		Registry:            reg,
		Reports:             reps,
		Engine:              eng,
		Machine:             convo.NewMachine(convo.NewStore(), nil, logger),
		Logger:              logger,
		Port:                0,
		ReadTimeout:         5 * time.Second,
		WriteTimeout:        5 * time.Second,
		Version:             "test",
		MaxRequestBodyBytes: 1 << 20,
	})
	return &testEnv{handler: srv.Handler(), registry: reg, reports: reps}
}

// seedDataset installs an already-ingested dataset so chat turns never have
// to touch the engine.
func (e *testEnv) seedDataset(t *testing.T) {
	t.Helper()
	require.NoError(t, e.registry.Put(model.Dataset{
		ID:         "ds-1",
		Name:       "sales",
		SourceType: "csv",
		FilePath:   "/data/sales.csv",
		Status:     model.DatasetIngested,
		CreatedAt:  time.Now().UTC(),
		Catalog: &model.Catalog{
			RowCount: 1748,
			Columns: []model.Column{
				{Name: "order_date", Type: model.TypeDate},
				{Name: "category", Type: model.TypeText},
				{Name: "amount", Type: model.TypeDouble},
			},
		},
	}))
}

func (e *testEnv) do(t *testing.T, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var r *http.Request
	if body == "" {
		r = httptest.NewRequest(method, path, nil)
	} else {
		r = httptest.NewRequest(method, path, bytes.NewBufferString(body))
		r.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		r.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	e.handler.ServeHTTP(w, r)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) model.APIError {
	t.Helper()
	var apiErr model.APIError
	require.NoError(t, json.NewDecoder(w.Body).Decode(&apiErr))
	return apiErr
}

func TestChatEnvelopeViolations(t *testing.T) {
	env := newTestEnv(t)
	env.seedDataset(t)

	cases := []struct {
		name string
		body string
	}{
		{"both message and intent", `{"datasetId":"ds-1","message":"hi","intent":"set_analysis_type","value":"Trend"}`},
		{"neither", `{"datasetId":"ds-1"}`},
		{"whitespace message", `{"datasetId":"ds-1","message":"   "}`},
		{"intent without value", `{"datasetId":"ds-1","intent":"set_analysis_type"}`},
		{"unknown intent", `{"datasetId":"ds-1","intent":"make_coffee","value":"espresso"}`},
		{"missing dataset id", `{"message":"how many rows"}`},
	}
	for _, tc := range cases {
		w := env.do(t, http.MethodPost, "/chat", tc.body, nil)
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code, tc.name)
		assert.Equal(t, model.ErrCodeProtocolViolation, decodeError(t, w).Error.Code, tc.name)
	}
}

func TestChatUnknownDataset(t *testing.T) {
	env := newTestEnv(t)
	w := env.do(t, http.MethodPost, "/chat", `{"datasetId":"ds-404","message":"how many rows"}`, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, model.ErrCodeDatasetNotFound, decodeError(t, w).Error.Code)
}

func TestChatDeterministicRowCount(t *testing.T) {
	env := newTestEnv(t)
	env.seedDataset(t)

	w := env.do(t, http.MethodPost, "/chat", `{"datasetId":"ds-1","message":"how many rows are there?"}`, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp model.ChatResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, model.TypeRunQueries, resp.Type)
	assert.True(t, strings.HasPrefix(resp.ConversationID, "conv-"), "minted id: %s", resp.ConversationID)
	require.Len(t, resp.Queries, 1)
	assert.Equal(t, "SELECT COUNT(*) as row_count FROM data", resp.Queries[0].SQL)
}

func TestChatKeepsClientConversationID(t *testing.T) {
	env := newTestEnv(t)
	env.seedDataset(t)

	w := env.do(t, http.MethodPost, "/chat",
		`{"datasetId":"ds-1","conversationId":"conv-abc","message":"row count"}`, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp model.ChatResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, "conv-abc", resp.ConversationID)
}

func TestChatModeFlagPrecedence(t *testing.T) {
	env := newTestEnv(t)
	env.seedDataset(t)

	// Header sets safe mode on; body is silent.
	w := env.do(t, http.MethodPost, "/chat", `{"datasetId":"ds-1","message":"row count"}`,
		map[string]string{"X-Safe-Mode": "true"})
	var resp model.ChatResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	require.NotNil(t, resp.Audit)
	assert.True(t, resp.Audit.SafeMode)

	// Body false beats header true.
	w = env.do(t, http.MethodPost, "/chat", `{"datasetId":"ds-1","message":"row count","safeMode":false}`,
		map[string]string{"X-Safe-Mode": "true"})
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	require.NotNil(t, resp.Audit)
	assert.False(t, resp.Audit.SafeMode)

	// Privacy defaults on when nothing sets it.
	w = env.do(t, http.MethodPost, "/chat", `{"datasetId":"ds-1","message":"row count"}`, nil)
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	require.NotNil(t, resp.Audit)
	assert.True(t, resp.Audit.PrivacyMode)
}

func TestChatToleratesUnknownFields(t *testing.T) {
	env := newTestEnv(t)
	env.seedDataset(t)

	w := env.do(t, http.MethodPost, "/chat",
		`{"datasetId":"ds-1","message":"row count","defaultsContext":{"theme":"dark"},"clientVersion":"9.9"}`, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestExecuteValidation(t *testing.T) {
	env := newTestEnv(t)
	env.seedDataset(t)

	w := env.do(t, http.MethodPost, "/queries/execute", `{"datasetId":"ds-1"}`, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, model.ErrCodeValidationFailed, decodeError(t, w).Error.Code)

	w = env.do(t, http.MethodPost, "/queries/execute",
		`{"datasetId":"ds-404","queries":[{"name":"row_count","sql":"SELECT COUNT(*) FROM data"}]}`, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestReportsCRUD(t *testing.T) {
	env := newTestEnv(t)
	env.seedDataset(t)

	w := env.do(t, http.MethodPost, "/reports",
		`{"dataset_id":"ds-1","dataset_name":"sales","question":"how many rows?","answer":"This dataset has **1,748** rows."}`, nil)
	require.Equal(t, http.StatusCreated, w.Code)

	var created model.Report
	require.NoError(t, json.NewDecoder(w.Body).Decode(&created))
	assert.True(t, strings.HasPrefix(created.ID, "rpt-"))
	assert.False(t, created.CreatedAt.IsZero())

	w = env.do(t, http.MethodGet, "/reports?datasetId=ds-1", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list struct {
		Reports []model.Report `json:"reports"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&list))
	require.Len(t, list.Reports, 1)

	w = env.do(t, http.MethodGet, "/reports/"+created.ID, "", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = env.do(t, http.MethodDelete, "/reports/"+created.ID, "", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = env.do(t, http.MethodGet, "/reports/"+created.ID, "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, model.ErrCodeNotFound, decodeError(t, w).Error.Code)
}

func TestCreateReportRequiresRegisteredDataset(t *testing.T) {
	env := newTestEnv(t)
	w := env.do(t, http.MethodPost, "/reports",
		`{"dataset_id":"ds-404","answer":"something"}`, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestListDatasets(t *testing.T) {
	env := newTestEnv(t)
	env.seedDataset(t)

	w := env.do(t, http.MethodGet, "/datasets", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list struct {
		Datasets []model.Dataset `json:"datasets"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&list))
	require.Len(t, list.Datasets, 1)
	assert.Equal(t, "ds-1", list.Datasets[0].ID)

	w = env.do(t, http.MethodGet, "/datasets/ds-1", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = env.do(t, http.MethodGet, "/datasets/ds-404", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRegisterDatasetRejectsUnsupportedFormat(t *testing.T) {
	env := newTestEnv(t)
	w := env.do(t, http.MethodPost, "/datasets", `{"name":"notes","filePath":"/tmp/notes.txt"}`, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, model.ErrCodeValidationFailed, decodeError(t, w).Error.Code)
}

func TestRegisterDatasetMissingFile(t *testing.T) {
	env := newTestEnv(t)
	w := env.do(t, http.MethodPost, "/datasets", `{"name":"ghost","filePath":"/definitely/not/here.csv"}`, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, model.ErrCodeFileUnreadable, decodeError(t, w).Error.Code)
}

func TestTestAIConnectionDisabled(t *testing.T) {
	env := newTestEnv(t)
	w := env.do(t, http.MethodGet, "/test-ai-connection", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var resp map[string]string
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, "disabled", resp["status"])
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)
	w := env.do(t, http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var resp map[string]any
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, "ok", resp["status"])
	assert.Equal(t, "test", resp["version"])
}

func TestRequestIDHonoredAndMinted(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/health", "", map[string]string{"X-Request-ID": "req-42"})
	assert.Equal(t, "req-42", w.Header().Get("X-Request-ID"))

	w = env.do(t, http.MethodGet, "/health", "", nil)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestErrorEnvelopeCarriesMeta(t *testing.T) {
	env := newTestEnv(t)
	w := env.do(t, http.MethodPost, "/chat", `{"datasetId":"ds-404","message":"hi"}`,
		map[string]string{"X-Request-ID": "req-7"})
	apiErr := decodeError(t, w)
	assert.Equal(t, "req-7", apiErr.Meta.RequestID)
	assert.False(t, apiErr.Meta.Timestamp.IsZero())
}
