package server

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/fieldbook/internal/config"
	"github.com/matzehuels/fieldbook/pkg/errors"
	"github.com/matzehuels/fieldbook/pkg/fieldbook"
	"github.com/matzehuels/fieldbook/pkg/observability"
	"github.com/matzehuels/fieldbook/pkg/pipeline"
	"github.com/matzehuels/fieldbook/pkg/store"
)

func newTestServer(t *testing.T, reg *prometheus.Registry) *httptest.Server {
	t.Helper()
	logger := log.New(io.Discard)
	cfg := &config.Server{MaxGenotypes: 20}
	s := New(cfg, pipeline.NewRunner(nil, nil, logger), store.NewMemory(), logger, reg)
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func do(t *testing.T, method, url, body string) (*http.Response, []byte) {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, url, rd)
	require.NoError(t, err)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, data
}

const layoutBody = `{"name":"trial","genotypes":["A","B","C","D","E","F"],"blocks":2,"seed":7}`

func createLayout(t *testing.T, ts *httptest.Server) layoutResponse {
	t.Helper()
	resp, data := do(t, http.MethodPost, ts.URL+"/api/v1/layouts", layoutBody)
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(data))
	var out layoutResponse
	require.NoError(t, json.Unmarshal(data, &out))
	return out
}

func errorCode(t *testing.T, data []byte) string {
	t.Helper()
	var body errorBody
	require.NoError(t, json.Unmarshal(data, &body))
	return body.Error.Code
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t, nil)
	resp, data := do(t, http.MethodGet, ts.URL+"/healthz", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(data), `"status":"ok"`)
}

func TestCreateAndGetLayout(t *testing.T) {
	ts := newTestServer(t, nil)
	created := createLayout(t, ts)

	assert.True(t, store.ValidID(created.ID))
	assert.Equal(t, "trial", created.Name)
	assert.Equal(t, 12, created.Book.Len())
	assert.True(t, created.Report.OK())

	resp, data := do(t, http.MethodGet, ts.URL+"/api/v1/layouts/"+created.ID, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var rec store.Record
	require.NoError(t, json.Unmarshal(data, &rec))
	assert.Equal(t, created.ID, rec.ID)
	assert.Equal(t, created.Book.Plots, rec.Book.Plots)

	resp, data = do(t, http.MethodGet, ts.URL+"/api/v1/layouts", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var list struct {
		Layouts []store.Record `json:"layouts"`
	}
	require.NoError(t, json.Unmarshal(data, &list))
	require.Len(t, list.Layouts, 1)
	assert.Equal(t, created.ID, list.Layouts[0].ID)
}

func TestCreateLayoutSameSeedSamePlots(t *testing.T) {
	ts := newTestServer(t, nil)
	a := createLayout(t, ts)
	b := createLayout(t, ts)
	assert.NotEqual(t, a.ID, b.ID)
	assert.Equal(t, a.Book.Plots, b.Book.Plots)
}

func TestCreateLayoutValidation(t *testing.T) {
	ts := newTestServer(t, nil)

	tests := []struct {
		name   string
		body   string
		status int
		code   string
		field  string
	}{
		{"malformed", `{"genotypes":`, http.StatusBadRequest, "INVALID_INPUT", ""},
		{"one block", `{"genotypes":["A","B"],"blocks":1}`, http.StatusBadRequest, "INVALID_INPUT", "blocks"},
		{"no genotypes", `{"blocks":2}`, http.StatusBadRequest, "INVALID_INPUT", "genotypes"},
		{"bad alongside", `{"genotypes":["A","B"],"blocks":2,"alongside":"diagonal"}`, http.StatusBadRequest, "INVALID_INPUT", "alongside"},
		{"duplicate", `{"genotypes":["A","A"],"blocks":2}`, http.StatusBadRequest, "DUPLICATE_GENOTYPE", ""},
		{"capacity mismatch", `{"genotypes":["A","B","C"],"blocks":2,"columns":3,"variable_capacity":true,"capacities":[1,1]}`, http.StatusBadRequest, "CAPACITY_MISMATCH", ""},
		{"huge columns", `{"genotypes":["A","B"],"blocks":2,"columns":1000000000}`, http.StatusBadRequest, "INVALID_INPUT", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, data := do(t, http.MethodPost, ts.URL+"/api/v1/layouts", tt.body)
			assert.Equal(t, tt.status, resp.StatusCode, string(data))
			var body errorBody
			require.NoError(t, json.Unmarshal(data, &body))
			assert.Equal(t, tt.code, body.Error.Code)
			if tt.field != "" {
				assert.Contains(t, body.Error.Fields, tt.field)
			}
		})
	}
}

func TestCreateLayoutGenotypeLimit(t *testing.T) {
	ts := newTestServer(t, nil)
	names := make([]string, 21)
	for i := range names {
		names[i] = "G" + string(rune('a'+i))
	}
	body, err := json.Marshal(map[string]any{"genotypes": names, "blocks": 2})
	require.NoError(t, err)

	resp, data := do(t, http.MethodPost, ts.URL+"/api/v1/layouts", string(body))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "INVALID_GENOTYPES", errorCode(t, data))
}

func TestLayoutNotFound(t *testing.T) {
	ts := newTestServer(t, nil)
	for _, path := range []string{
		"/api/v1/layouts/not-a-uuid",
		"/api/v1/layouts/6f1c1a52-3f39-4a8e-9d55-0a8f6b5f2c10",
		"/api/v1/layouts/6f1c1a52-3f39-4a8e-9d55-0a8f6b5f2c10/verify",
	} {
		resp, data := do(t, http.MethodGet, ts.URL+path, "")
		assert.Equal(t, http.StatusNotFound, resp.StatusCode, path)
		assert.Equal(t, "NOT_FOUND", errorCode(t, data), path)
	}
}

func TestDeleteLayout(t *testing.T) {
	ts := newTestServer(t, nil)
	created := createLayout(t, ts)

	resp, _ := do(t, http.MethodDelete, ts.URL+"/api/v1/layouts/"+created.ID, "")
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, _ = do(t, http.MethodDelete, ts.URL+"/api/v1/layouts/"+created.ID, "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestVerifyStoredLayout(t *testing.T) {
	ts := newTestServer(t, nil)
	created := createLayout(t, ts)

	resp, data := do(t, http.MethodGet, ts.URL+"/api/v1/layouts/"+created.ID+"/verify", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var out verifyResponse
	require.NoError(t, json.Unmarshal(data, &out))
	assert.True(t, out.OK)
	assert.Equal(t, []string{"A", "B", "C", "D", "E", "F"}, out.Report.Genotypes)
}

func TestVerifyPostedBook(t *testing.T) {
	ts := newTestServer(t, nil)
	book := &fieldbook.Book{
		Blocks: 2,
		Plots: []fieldbook.Plot{
			{Number: 101, Block: 1, Row: 1, Column: 1, Genotype: "A"},
			{Number: 102, Block: 1, Row: 1, Column: 2, Genotype: "B"},
			{Number: 201, Block: 2, Row: 1, Column: 1, Genotype: "A"},
			{Number: 202, Block: 2, Row: 1, Column: 1, Genotype: "B"},
		},
	}
	body, err := json.Marshal(map[string]any{"book": book, "genotypes": []string{"A", "B", "C"}})
	require.NoError(t, err)

	resp, data := do(t, http.MethodPost, ts.URL+"/api/v1/verify", string(body))
	require.Equal(t, http.StatusOK, resp.StatusCode, string(data))
	var out verifyResponse
	require.NoError(t, json.Unmarshal(data, &out))
	assert.False(t, out.OK)
	assert.Len(t, out.Report.Problems, 2)
	assert.NotEmpty(t, out.Report.WithinBlock)

	resp, data = do(t, http.MethodPost, ts.URL+"/api/v1/verify", `{}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "INVALID_INPUT", errorCode(t, data))
}

func TestRenderLayout(t *testing.T) {
	ts := newTestServer(t, nil)
	created := createLayout(t, ts)
	base := ts.URL + "/api/v1/layouts/" + created.ID + "/render/"

	resp, data := do(t, http.MethodGet, base+"svg?numbers=true", "")
	require.Equal(t, http.StatusOK, resp.StatusCode, string(data))
	assert.Equal(t, "image/svg+xml", resp.Header.Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(data, []byte("<svg")) || bytes.Contains(data, []byte("<svg")))

	resp, data = do(t, http.MethodGet, base+"csv", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "fieldbook-"+created.ID+".csv")
	back, err := fieldbook.ReadCSV(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, created.Book.Len(), back.Len())

	resp, data = do(t, http.MethodGet, base+"dot", "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "INVALID_FORMAT", errorCode(t, data))

	resp, data = do(t, http.MethodGet, base+"gif", "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "INVALID_FORMAT", errorCode(t, data))

	resp, data = do(t, http.MethodGet, base+"svg?viz=pie", "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "INVALID_VIZ_TYPE", errorCode(t, data))

	resp, _ = do(t, http.MethodGet, base+"svg?numbers=maybe", "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestMetricsEndpoint(t *testing.T) {
	defer observability.Reset()
	reg := prometheus.NewRegistry()
	NewMetrics(reg).Install()

	ts := newTestServer(t, reg)
	createLayout(t, ts)

	resp, data := do(t, http.MethodGet, ts.URL+"/metrics", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	text := string(data)
	assert.Contains(t, text, "fieldbook_layouts_generated_total 1")
	assert.Contains(t, text, `fieldbook_verifications_total{ok="true"} 1`)
	assert.Contains(t, text, `route="/api/v1/layouts`)
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{errors.New(errors.ErrCodeInvalidBlocks, "x"), http.StatusBadRequest},
		{errors.New(errors.ErrCodeInsufficientCapacity, "x"), http.StatusBadRequest},
		{errors.New(errors.ErrCodeNotFound, "x"), http.StatusNotFound},
		{errors.New(errors.ErrCodeTimeout, "x"), http.StatusGatewayTimeout},
		{errors.New(errors.ErrCodeStorage, "x"), http.StatusInternalServerError},
		{io.EOF, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := statusFor(tt.err); got != tt.want {
			t.Errorf("statusFor(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}
