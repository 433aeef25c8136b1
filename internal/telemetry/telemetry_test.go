package telemetry

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/vinodismyname/salesdash/internal/loader"
)

func TestObserveLoad(t *testing.T) {
	m := NewMetrics()
	m.ObserveLoad(loader.SourceRemote, false, time.Millisecond, nil)
	m.ObserveLoad(loader.SourceRemote, true, time.Millisecond, nil)
	m.ObserveLoad(loader.SourceRemote, true, time.Millisecond, nil)
	m.ObserveLoad("", false, 0, errors.New("boom"))

	require.Equal(t, 1.0, testutil.ToFloat64(m.loads.WithLabelValues("remote", "miss")))
	require.Equal(t, 2.0, testutil.ToFloat64(m.loads.WithLabelValues("remote", "hit")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.loads.WithLabelValues("invalid", "error")))

	m.ObserveCacheSize(3)
	require.Equal(t, 3.0, testutil.ToFloat64(m.cacheEntries))
}

func TestObservePanelAndToolCall(t *testing.T) {
	m := NewMetrics()
	m.ObservePanel("scatter", "svg")
	m.ObserveToolCall("load_dataset", false)
	m.ObserveToolCall("load_dataset", true)
	require.Equal(t, 1.0, testutil.ToFloat64(m.panels.WithLabelValues("scatter", "svg")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.toolCalls.WithLabelValues("load_dataset", "ok")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.toolCalls.WithLabelValues("load_dataset", "error")))
}

func TestInstrument_RoutePattern(t *testing.T) {
	m := NewMetrics()
	r := chi.NewRouter()
	r.Use(m.Instrument)
	r.Get("/charts/{panel}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	for _, p := range []string{"/charts/a", "/charts/b", "/missing"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, p, nil))
	}
	require.Equal(t, 2.0, testutil.ToFloat64(m.httpRequests.WithLabelValues("/charts/{panel}", "GET", "418")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.httpRequests.WithLabelValues("unmatched", "GET", "404")))

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Contains(t, rec.Body.String(), "salesdash_http_request_duration_seconds")
}

func TestBuildHooks_CountsToolCalls(t *testing.T) {
	var buf bytes.Buffer
	m := NewMetrics()
	hooks := BuildHooks(zerolog.New(&buf), m)

	req := &mcp.CallToolRequest{}
	req.Params.Name = "group_metrics"
	for _, fn := range hooks.OnAfterCallTool {
		fn(context.Background(), 1, req, &mcp.CallToolResult{IsError: true})
	}
	require.Equal(t, 1.0, testutil.ToFloat64(m.toolCalls.WithLabelValues("group_metrics", "error")))
	require.Contains(t, buf.String(), `"level":"warn"`)
	require.Contains(t, buf.String(), `"tool":"group_metrics"`)
}
