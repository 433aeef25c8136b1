package http

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/vinodismyname/salesdash/internal/dashboard"
	"github.com/vinodismyname/salesdash/internal/dataset"
	"github.com/vinodismyname/salesdash/internal/loader"
	"github.com/vinodismyname/salesdash/internal/telemetry"
)

type stubLoader struct {
	entry *loader.Entry
	err   error
}

func (s *stubLoader) Load(ctx context.Context, raw string) (*loader.Entry, bool, error) {
	if s.err != nil {
		return nil, false, s.err
	}
	return s.entry, false, nil
}

func (s *stubLoader) Get(id string) (*loader.Entry, bool) {
	if s.entry != nil && s.entry.ID == id {
		return s.entry, true
	}
	return nil, false
}

func salesEntry(t *testing.T) *loader.Entry {
	t.Helper()
	ds := dataset.New(
		dataset.Column{Name: "Country", Kind: dataset.KindText},
		dataset.Column{Name: "Segment", Kind: dataset.KindText},
		dataset.Column{Name: "Sales", Kind: dataset.KindNumeric},
		dataset.Column{Name: "Units", Kind: dataset.KindNumeric},
	)
	add := func(c, s string, sales, units float64) {
		require.NoError(t, ds.Append(dataset.Text(c), dataset.Text(s), dataset.Number(sales), dataset.Number(units)))
	}
	add("Canada", "Government", 100, 1)
	add("France", "Midmarket", 300, 3)
	add("Canada", "Midmarket", 50, 2)
	add("France", "Midmarket", 100, 4)
	return &loader.Entry{ID: "ds-1", Source: loader.Source{Key: "https://example.com/data.xlsx"}, Dataset: ds}
}

func newTestRouter(t *testing.T, l dashboard.Loader, mutate ...func(*Options)) http.Handler {
	t.Helper()
	svc := dashboard.New(dashboard.Options{
		Loader:   l,
		Schema:   dataset.DefaultSchema(),
		Source:   "https://example.com/data.xlsx",
		Title:    "Sales Data Visualization Dashboard",
		Subtitle: "Sales performance by country and segment",
	})
	opts := Options{Service: svc, Logger: zerolog.Nop(), CORSOrigins: []string{"*"}}
	for _, m := range mutate {
		m(&opts)
	}
	return NewRouter(opts)
}

func get(t *testing.T, h http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.NewDecoder(rec.Body).Decode(v))
}

func TestDashboardPage(t *testing.T) {
	h := newTestRouter(t, &stubLoader{entry: salesEntry(t)})
	rec := get(t, h, "/?explore_x=Country&explore_y=Segment")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))
	require.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))

	body := rec.Body.String()
	require.Contains(t, body, "<h1>Sales Data Visualization Dashboard</h1>")
	require.Contains(t, body, "Data Preview")
	require.Contains(t, body, "Aggregated Metrics by Country and Segment")
	require.Contains(t, body, "/charts/scatter.svg")
	require.Contains(t, body, "/charts/explorer.svg?explore_x=Country&amp;explore_y=Segment")
	require.Contains(t, body, `name="scatter_x"`)
	require.Contains(t, body, "Total Sales by Country")
	require.NotContains(t, body, "Unable to load")
}

func TestDashboardPage_LoadFailure(t *testing.T) {
	h := newTestRouter(t, &stubLoader{err: loader.ErrStatus})
	rec := get(t, h, "/")
	require.Equal(t, http.StatusBadGateway, rec.Code)
	body := rec.Body.String()
	require.Contains(t, body, "Unable to load the sales data.")
	require.Contains(t, body, "<h1>Sales Data Visualization Dashboard</h1>")
	require.NotContains(t, body, "<img")
}

func TestAPI_Columns(t *testing.T) {
	h := newTestRouter(t, &stubLoader{entry: salesEntry(t)})
	rec := get(t, h, "/api/columns")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp columnsResponse
	decode(t, rec, &resp)
	require.Equal(t, "ds-1", resp.DatasetID)
	require.Equal(t, columnInfo{Name: "Country", Kind: "text"}, resp.Columns[0])
	require.Contains(t, resp.Numeric, "sales_ratio")
}

func TestAPI_Preview(t *testing.T) {
	h := newTestRouter(t, &stubLoader{entry: salesEntry(t)})

	rec := get(t, h, "/api/preview?rows=2")
	require.Equal(t, http.StatusOK, rec.Code)
	var resp previewResponse
	decode(t, rec, &resp)
	require.Len(t, resp.Rows, 2)
	require.Equal(t, 4, resp.Total)

	rec = get(t, h, "/api/preview")
	decode(t, rec, &resp)
	require.Len(t, resp.Rows, 4, "default preview is larger than the dataset")

	rec = get(t, h, "/api/preview?rows=zero")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	var apiErr APIError
	decode(t, rec, &apiErr)
	require.Equal(t, "VALIDATION", apiErr.ErrorCode)
}

func TestAPI_PreviewRowCap(t *testing.T) {
	h := newTestRouter(t, &stubLoader{entry: salesEntry(t)}, func(o *Options) { o.MaxPreviewRows = 3 })

	rec := get(t, h, "/api/preview?rows=3")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = get(t, h, "/api/preview?rows=4")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	var apiErr APIError
	decode(t, rec, &apiErr)
	require.Equal(t, "VALIDATION", apiErr.ErrorCode)
	require.Contains(t, apiErr.Message, "between 1 and 3")
}

func TestAPI_GroupsAndPanels(t *testing.T) {
	h := newTestRouter(t, &stubLoader{entry: salesEntry(t)})

	rec := get(t, h, "/api/groups")
	require.Equal(t, http.StatusOK, rec.Code)
	var groups struct {
		Groups []struct {
			Country string  `json:"country"`
			Segment string  `json:"segment"`
			Total   float64 `json:"total_sales_by_group"`
		} `json:"groups"`
	}
	decode(t, rec, &groups)
	require.Len(t, groups.Groups, 3)
	require.Equal(t, "France", groups.Groups[2].Country)
	require.Equal(t, 400.0, groups.Groups[2].Total)

	rec = get(t, h, "/api/panels?explore_x=Country&explore_y=Segment")
	require.Equal(t, http.StatusOK, rec.Code)
	var panels struct {
		Panels []struct {
			ID    string `json:"id"`
			Chart struct {
				Kind  string `json:"kind"`
				Title string `json:"title"`
			} `json:"chart"`
		} `json:"panels"`
	}
	decode(t, rec, &panels)
	require.Len(t, panels.Panels, 5)
	require.Equal(t, "explorer", panels.Panels[4].ID)
	require.Equal(t, "grouped_bar", panels.Panels[4].Chart.Kind)
}

func TestAPI_LoadFailure(t *testing.T) {
	h := newTestRouter(t, &stubLoader{err: loader.ErrFetch})
	rec := get(t, h, "/api/groups")
	require.Equal(t, http.StatusBadGateway, rec.Code)
	var apiErr APIError
	decode(t, rec, &apiErr)
	require.Equal(t, "LOAD_FAILED", apiErr.ErrorCode)
}

func TestCharts(t *testing.T) {
	h := newTestRouter(t, &stubLoader{entry: salesEntry(t)})

	rec := get(t, h, "/charts/country_totals.svg")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "image/svg+xml", rec.Header().Get("Content-Type"))
	require.Contains(t, rec.Body.String(), "<svg")

	rec = get(t, h, "/charts/avg_vs_ratio.png")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "image/png", rec.Header().Get("Content-Type"))

	rec = get(t, h, "/charts/pie.svg")
	require.Equal(t, http.StatusNotFound, rec.Code)
	var apiErr APIError
	decode(t, rec, &apiErr)
	require.Equal(t, "INVALID_PANEL", apiErr.ErrorCode)

	rec = get(t, h, "/charts/scatter.gif")
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHealthAndMetrics(t *testing.T) {
	metrics := telemetry.NewMetrics()
	h := newTestRouter(t, &stubLoader{entry: salesEntry(t)}, func(o *Options) { o.Metrics = metrics })

	rec := get(t, h, "/healthz")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"status":"ok"`)

	get(t, h, "/api/columns")
	rec = get(t, h, "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	require.Contains(t, string(body), `salesdash_http_requests_total{method="GET",route="/api/columns",status="200"} 1`)
}

func TestRateLimit(t *testing.T) {
	h := newTestRouter(t, &stubLoader{entry: salesEntry(t)}, func(o *Options) {
		o.RateLimit = 0.01
		o.RateBurst = 1
	})
	require.Equal(t, http.StatusOK, get(t, h, "/api/groups").Code)
	rec := get(t, h, "/api/groups")
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	require.Equal(t, "100", rec.Header().Get("Retry-After"))

	require.Equal(t, http.StatusOK, get(t, h, "/healthz").Code, "health checks bypass the limiter")
}

func TestCORS(t *testing.T) {
	h := newTestRouter(t, &stubLoader{entry: salesEntry(t)})
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("Origin", "https://example.org")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestNotFound(t *testing.T) {
	h := newTestRouter(t, &stubLoader{entry: salesEntry(t)})
	rec := get(t, h, "/nope")
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.True(t, strings.Contains(rec.Body.String(), "route not found"))
}
