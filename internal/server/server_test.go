package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Benny93/propfinder-go/internal/config"
	"github.com/Benny93/propfinder-go/internal/dataset/datasettest"
	"github.com/Benny93/propfinder-go/internal/finder"
	"github.com/Benny93/propfinder-go/internal/graph"
	"github.com/Benny93/propfinder-go/internal/metrics"
)

type stubSearcher struct {
	results  map[string][]graph.PropertyID
	probeErr error
}

func (s *stubSearcher) Search(_ context.Context, term string, _ int) ([]graph.PropertyID, error) {
	return s.results[term], nil
}

func (s *stubSearcher) Probe(context.Context) error {
	return s.probeErr
}

func newTestServer(t *testing.T, searcher *stubSearcher) (*Server, *metrics.Metrics) {
	t.Helper()

	cfg := config.Default()
	cfg.Server.Mode = "test"
	cfg.Server.Host = "localhost"
	cfg.Server.Port = 8080

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	m := metrics.New()
	f := finder.New(searcher, datasettest.Load(t), cfg.Finder, log)

	s := New(cfg, f, m, log)
	s.Setup()
	return s, m
}

func birthSearcher() *stubSearcher {
	return &stubSearcher{results: map[string][]graph.PropertyID{
		"birth": {"P569", "P19", "P570"},
	}}
}

func get(t *testing.T, s *Server, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func decodeResults(t *testing.T, w *httptest.ResponseRecorder) []map[string]any {
	t.Helper()
	var results []map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &results), w.Body.String())
	return results
}

func qnodes(results []map[string]any) []string {
	ids := make([]string, len(results))
	for i, r := range results {
		ids[i], _ = r["qnode"].(string)
	}
	return ids
}

func TestSetup(t *testing.T) {
	t.Parallel()

	s, _ := newTestServer(t, birthSearcher())

	require.NotNil(t, s.router)
	require.NotNil(t, s.server)
	assert.Equal(t, "localhost:8080", s.server.Addr)
}

func TestSearch(t *testing.T) {
	t.Parallel()

	s, m := newTestServer(t, birthSearcher())

	w := get(t, s, "/search?label=birth&filter=false")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))

	results := decodeResults(t, w)
	assert.ElementsMatch(t, []string{"P569", "P19", "P570"}, qnodes(results))
	for _, r := range results {
		assert.Contains(t, r, "description")
		assert.NotContains(t, r, "pagerank", "extra info is off by default")
	}

	assert.Equal(t, 1.0, testutil.ToFloat64(m.SearchRequests.WithLabelValues("http", "200")))
}

func TestSearch_Versioned(t *testing.T) {
	t.Parallel()

	s, _ := newTestServer(t, birthSearcher())

	w := get(t, s, "/api/v1/search?label=birth&size=2")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decodeResults(t, w), 2)
}

func TestSearch_Params(t *testing.T) {
	t.Parallel()

	s, _ := newTestServer(t, birthSearcher())

	t.Run("DataType", func(t *testing.T) {
		w := get(t, s, "/search?label=birth&data_type=time&filter=0")
		require.Equal(t, http.StatusOK, w.Code)
		assert.ElementsMatch(t, []string{"P569", "P570"}, qnodes(decodeResults(t, w)))
	})

	t.Run("FilterDropsNoItem", func(t *testing.T) {
		w := get(t, s, "/search?label=birth&filter=true")
		require.Equal(t, http.StatusOK, w.Code)
		assert.NotContains(t, qnodes(decodeResults(t, w)), "P570")
	})

	t.Run("ExtraInfo", func(t *testing.T) {
		w := get(t, s, "/search?label=birth&data_type=time&filter=false&extra_info=true&size=1")
		require.Equal(t, http.StatusOK, w.Code)

		results := decodeResults(t, w)
		require.Len(t, results, 1)
		r := results[0]
		for _, key := range []string{"qnode", "description", "label", "alias", "pagerank", "statements", "score", "data_type"} {
			assert.Contains(t, r, key)
		}
		assert.Equal(t, "time", r["data_type"])
	})

	t.Run("NoMatches", func(t *testing.T) {
		w := get(t, s, "/search?label=zzzz")
		require.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, "[]", w.Body.String())
	})
}

func TestSearch_BadRequest(t *testing.T) {
	t.Parallel()

	s, m := newTestServer(t, birthSearcher())

	tests := []struct {
		name   string
		target string
	}{
		{"MissingLabel", "/search"},
		{"BlankLabel", "/search?label=%20"},
		{"SizeNotInteger", "/search?label=birth&size=ten"},
		{"SizeZero", "/search?label=birth&size=0"},
		{"UnknownDataType", "/search?label=birth&data_type=colour"},
		{"UnknownScope", "/search?label=birth&scope=everything"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := get(t, s, tt.target)
			require.Equal(t, http.StatusBadRequest, w.Code)

			var resp ErrorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, "invalid_request", resp.Error)
			assert.Equal(t, http.StatusBadRequest, resp.Code)
			assert.NotEmpty(t, resp.Message)
		})
	}

	assert.Equal(t, float64(len(tests)), testutil.ToFloat64(m.SearchRequests.WithLabelValues("http", "400")))
}

func TestSearch_BackendDown(t *testing.T) {
	t.Parallel()

	searcher := birthSearcher()
	searcher.probeErr = errors.New("status 502")
	s, _ := newTestServer(t, searcher)

	w := get(t, s, "/search?label=birth")
	require.Equal(t, http.StatusServiceUnavailable, w.Code)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "service_unavailable", resp.Error)
	assert.Equal(t, http.StatusServiceUnavailable, resp.Code)
}

func TestInfo(t *testing.T) {
	t.Parallel()

	s, _ := newTestServer(t, birthSearcher())

	w := get(t, s, "/api/v1/properties/P569")
	require.Equal(t, http.StatusOK, w.Code)

	var r map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &r))
	assert.Equal(t, "P569", r["qnode"])
	assert.Equal(t, []any{"date of birth"}, r["label"])
	assert.Equal(t, []any{"birth date", "born on"}, r["alias"])

	w = get(t, s, "/api/v1/properties/P9999")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHealthEndpoints(t *testing.T) {
	t.Parallel()

	s, m := newTestServer(t, birthSearcher())

	w := get(t, s, "/health")
	require.Equal(t, http.StatusOK, w.Code)
	var health map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &health))
	assert.Equal(t, "healthy", health["status"])
	assert.Contains(t, health, "dataset")

	assert.Equal(t, http.StatusOK, get(t, s, "/live").Code)
	assert.Equal(t, http.StatusOK, get(t, s, "/ready").Code)

	w = get(t, s, "/metrics")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "propfinder_search_duration_seconds")
	assert.NotContains(t, w.Body.String(), "propfinder_search_requests_total", "no search yet")

	require.Equal(t, http.StatusOK, get(t, s, "/search?label=birth").Code)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SearchRequests.WithLabelValues("http", "200")))

	w = get(t, s, "/metrics")
	assert.Contains(t, w.Body.String(), `propfinder_search_requests_total{status="200",surface="http"} 1`)
}

func TestReady_BackendDown(t *testing.T) {
	t.Parallel()

	searcher := birthSearcher()
	searcher.probeErr = errors.New("connection refused")
	s, _ := newTestServer(t, searcher)

	w := get(t, s, "/ready")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "connection refused")
}

func TestCORSPreflight(t *testing.T) {
	t.Parallel()

	s, _ := newTestServer(t, birthSearcher())

	req := httptest.NewRequest(http.MethodOptions, "/search", nil)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestParseFlag(t *testing.T) {
	t.Parallel()

	for _, v := range []string{"true", "TRUE", "1", " True "} {
		assert.True(t, parseFlag(v), v)
	}
	for _, v := range []string{"false", "0", "yes", ""} {
		assert.False(t, parseFlag(v), v)
	}
}
