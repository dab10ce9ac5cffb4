package http_test

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	httpadapter "github.com/pepaaran/ingestr/internal/adapter/http"
	"github.com/pepaaran/ingestr/internal/pipeline"
)

type mockPipeline struct {
	readyErr error
	statuses []pipeline.SourceStatus
}

func (m *mockPipeline) CheckReadiness(_ context.Context) error { return m.readyErr }
func (m *mockPipeline) Status() []pipeline.SourceStatus        { return m.statuses }

func newTestServer(p *mockPipeline) *httpadapter.Server {
	return httpadapter.NewServer(":0", p, p, slog.Default())
}

func TestHealthzReturns200(t *testing.T) {
	srv := newTestServer(&mockPipeline{})
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)

	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
}

func TestReadyzReturns200WhenReady(t *testing.T) {
	srv := newTestServer(&mockPipeline{})
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/readyz", nil)

	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ready", body["status"])
}

func TestReadyzReturns503WhenNotReady(t *testing.T) {
	srv := newTestServer(&mockPipeline{readyErr: fmt.Errorf("no ingestion run has completed yet")})
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/readyz", nil)

	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "not ready", body["status"])
	assert.Equal(t, "no ingestion run has completed yet", body["error"])
}

func TestStatuszReportsSources(t *testing.T) {
	srv := newTestServer(&mockPipeline{statuses: []pipeline.SourceStatus{
		{Name: "climate", Kind: "monthly-stack", OK: true, Records: 48, Columns: []string{"tc", "vpd"}},
		{Name: "ndep", Kind: "annual-series", OK: false, Error: "source unavailable"},
	}})
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/statusz", nil)

	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Sources []pipeline.SourceStatus `json:"sources"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Sources, 2)
	assert.Equal(t, "climate", body.Sources[0].Name)
	assert.True(t, body.Sources[0].OK)
	assert.Equal(t, []string{"tc", "vpd"}, body.Sources[0].Columns)
	assert.False(t, body.Sources[1].OK)
	assert.Equal(t, "source unavailable", body.Sources[1].Error)
}

func TestStatuszBeforeFirstRun(t *testing.T) {
	srv := newTestServer(&mockPipeline{})
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/statusz", nil)

	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"sources":[]}`, rec.Body.String())
}

func TestMetricsEndpoint(t *testing.T) {
	srv := newTestServer(&mockPipeline{})
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)

	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}
