package registry

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/stretchr/testify/require"

	"github.com/vinodismyname/salesdash/internal/dashboard"
	"github.com/vinodismyname/salesdash/internal/dataset"
	"github.com/vinodismyname/salesdash/internal/insights"
	"github.com/vinodismyname/salesdash/internal/loader"
	"github.com/vinodismyname/salesdash/internal/runtime"
	"github.com/vinodismyname/salesdash/internal/security"
	"github.com/vinodismyname/salesdash/pkg/pagination"
)

const testSource = "https://example.com/data.xlsx"

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

func salesEntry(t *testing.T, n int) *loader.Entry {
	t.Helper()
	ds := dataset.New(
		dataset.Column{Name: "Country", Kind: dataset.KindText},
		dataset.Column{Name: "Segment", Kind: dataset.KindText},
		dataset.Column{Name: "Sales", Kind: dataset.KindNumeric},
		dataset.Column{Name: "Units", Kind: dataset.KindNumeric},
	)
	countries := []string{"Canada", "France", "Germany"}
	segments := []string{"Government", "Midmarket"}
	for i := 0; i < n; i++ {
		require.NoError(t, ds.Append(
			dataset.Text(countries[i%len(countries)]),
			dataset.Text(segments[i%len(segments)]),
			dataset.Number(float64(10*(i+1))),
			dataset.Number(float64(i)),
		))
	}
	return &loader.Entry{ID: "ds-1", Source: loader.Source{Key: testSource}, Format: loader.FormatXLSX, Dataset: ds}
}

func newTools(t *testing.T, l dashboard.Loader) *DashboardTools {
	t.Helper()
	svc := dashboard.New(dashboard.Options{Loader: l, Schema: dataset.DefaultSchema(), Source: testSource})
	limits := runtime.NewLimits(2, 1)
	limits.PreviewRowLimit = 4
	reg := New()
	reg.WithModel("gpt-4")
	return NewDashboardTools(svc, reg, limits, 3)
}

func errorText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.True(t, res.IsError)
	require.NotEmpty(t, res.Content)
	tc, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok)
	return tc.Text
}

func TestLoadDataset(t *testing.T) {
	tools := newTools(t, &stubLoader{entry: salesEntry(t, 6)})
	res := tools.LoadDataset(context.Background(), LoadDatasetInput{})
	require.False(t, res.IsError)
	out, ok := res.StructuredContent.(LoadDatasetOutput)
	require.True(t, ok)
	require.Equal(t, "ds-1", out.DatasetID)
	require.Equal(t, "xlsx", out.Format)
	require.Equal(t, 6, out.Rows)
	require.Contains(t, out.Columns, "sales_ratio")
	require.Equal(t, 4, out.PreviewRowLimit)
}

func TestLoadDataset_ErrorCodes(t *testing.T) {
	cases := []struct {
		err  error
		code string
	}{
		{fmt.Errorf("%w: 404", loader.ErrStatus), "LOAD_FAILED"},
		{loader.ErrTooLarge, "FILE_TOO_LARGE"},
		{loader.ErrUnsupportedFormat, "UNSUPPORTED_FORMAT"},
		{loader.ErrEmpty, "EMPTY_DATASET"},
		{security.ErrNotAllowed, "PERMISSION_DENIED"},
		{context.DeadlineExceeded, "TIMEOUT"},
		{errors.New("socket closed"), "LOAD_FAILED"},
	}
	for _, tc := range cases {
		tools := newTools(t, &stubLoader{err: tc.err})
		text := errorText(t, tools.LoadDataset(context.Background(), LoadDatasetInput{Source: testSource}))
		require.True(t, strings.HasPrefix(text, tc.code+":"), text)
	}
}

func TestLoadDataset_InvalidSource(t *testing.T) {
	tools := newTools(t, &stubLoader{entry: salesEntry(t, 1)})
	text := errorText(t, tools.LoadDataset(context.Background(), LoadDatasetInput{Source: "ftp://example.com/x.csv"}))
	require.True(t, strings.HasPrefix(text, "VALIDATION:"), text)
}

func TestLoadDataset_SchemaMismatch(t *testing.T) {
	e := &loader.Entry{ID: "x", Dataset: dataset.New(dataset.Column{Name: "Sales", Kind: dataset.KindNumeric})}
	tools := newTools(t, &stubLoader{entry: e})
	text := errorText(t, tools.LoadDataset(context.Background(), LoadDatasetInput{}))
	require.True(t, strings.HasPrefix(text, "SCHEMA:"), text)
}

func TestPreviewDataset_Paging(t *testing.T) {
	tools := newTools(t, &stubLoader{entry: salesEntry(t, 7)})
	ctx := context.Background()

	res := tools.PreviewDataset(ctx, PreviewDatasetInput{DatasetID: "ds-1"})
	require.False(t, res.IsError)
	first := res.StructuredContent.(PreviewDatasetOutput)
	require.Len(t, first.Rows, 3, "default page size")
	require.Equal(t, 7, first.Meta.Total)
	require.True(t, first.Meta.Truncated)
	require.NotEmpty(t, first.Meta.NextCursor)
	require.Positive(t, first.Meta.ApproxTokens)
	require.Equal(t, 8192, first.Meta.ModelContextTokens)

	res = tools.PreviewDataset(ctx, PreviewDatasetInput{Cursor: first.Meta.NextCursor})
	require.False(t, res.IsError)
	second := res.StructuredContent.(PreviewDatasetOutput)
	require.Equal(t, 3, second.Meta.Offset)
	require.Len(t, second.Rows, 3)

	res = tools.PreviewDataset(ctx, PreviewDatasetInput{Cursor: second.Meta.NextCursor})
	third := res.StructuredContent.(PreviewDatasetOutput)
	require.Len(t, third.Rows, 1)
	require.False(t, third.Meta.Truncated)
	require.Empty(t, third.Meta.NextCursor)
}

func TestPreviewDataset_RowsCapped(t *testing.T) {
	tools := newTools(t, &stubLoader{entry: salesEntry(t, 7)})
	res := tools.PreviewDataset(context.Background(), PreviewDatasetInput{DatasetID: "ds-1", Rows: 100})
	require.Len(t, res.StructuredContent.(PreviewDatasetOutput).Rows, 4)
}

func TestPreviewDataset_Errors(t *testing.T) {
	tools := newTools(t, &stubLoader{entry: salesEntry(t, 7)})
	ctx := context.Background()

	text := errorText(t, tools.PreviewDataset(ctx, PreviewDatasetInput{}))
	require.True(t, strings.HasPrefix(text, "VALIDATION:"), text)

	text = errorText(t, tools.PreviewDataset(ctx, PreviewDatasetInput{DatasetID: "nope"}))
	require.True(t, strings.HasPrefix(text, "INVALID_DATASET:"), text)

	text = errorText(t, tools.PreviewDataset(ctx, PreviewDatasetInput{Cursor: "!!!"}))
	require.True(t, strings.HasPrefix(text, "CURSOR_INVALID:"), text)

	stale, err := pagination.EncodeCursor(pagination.Cursor{Did: "ds-1", Off: 3, Ps: 3, N: 99})
	require.NoError(t, err)
	text = errorText(t, tools.PreviewDataset(ctx, PreviewDatasetInput{Cursor: stale}))
	require.True(t, strings.HasPrefix(text, "CURSOR_INVALID:"), text)

	expired, err := pagination.EncodeCursor(pagination.Cursor{Did: "gone", Off: 3, Ps: 3, N: 7})
	require.NoError(t, err)
	text = errorText(t, tools.PreviewDataset(ctx, PreviewDatasetInput{Cursor: expired}))
	require.True(t, strings.HasPrefix(text, "CURSOR_INVALID:"), text)
}

func TestGroupMetricsAndColumns(t *testing.T) {
	tools := newTools(t, &stubLoader{entry: salesEntry(t, 6)})
	ctx := context.Background()

	res := tools.GroupMetrics(ctx, DatasetRef{DatasetID: "ds-1"})
	require.False(t, res.IsError)
	groups := res.StructuredContent.(GroupMetricsOutput).Groups
	require.Len(t, groups, 6)
	require.Equal(t, "Canada", groups[0].Country)

	res = tools.ListColumns(ctx, DatasetRef{DatasetID: "ds-1"})
	require.False(t, res.IsError)
	cols := res.StructuredContent.(ListColumnsOutput)
	require.Equal(t, ColumnInfo{Name: "Country", Kind: "text"}, cols.Columns[0])
	require.Contains(t, cols.Numeric, "avg_sales_by_group")
	require.NotContains(t, cols.Numeric, "Country")

	text := errorText(t, tools.ListColumns(ctx, DatasetRef{}))
	require.True(t, strings.HasPrefix(text, "VALIDATION:"), text)
}

func TestChartPanel(t *testing.T) {
	tools := newTools(t, &stubLoader{entry: salesEntry(t, 6)})
	ctx := context.Background()

	res := tools.ChartPanel(ctx, ChartPanelInput{DatasetID: "ds-1", Panel: "explorer", ExploreX: "Country", ExploreY: "Segment"})
	require.False(t, res.IsError)
	out := res.StructuredContent.(ChartPanelOutput)
	require.Equal(t, "Bar Chart: Country vs Segment", out.Panel.Chart.Title)
	require.Nil(t, out.Image)
	require.Len(t, res.Content, 1)

	res = tools.ChartPanel(ctx, ChartPanelInput{DatasetID: "ds-1", Panel: "country_totals", Format: "svg", IncludeImage: true})
	require.False(t, res.IsError)
	out = res.StructuredContent.(ChartPanelOutput)
	require.NotNil(t, out.Image)
	require.Equal(t, "image/svg+xml", out.Image.MIMEType)
	require.Len(t, res.Content, 2)
	img, ok := res.Content[1].(mcp.ImageContent)
	require.True(t, ok)
	raw, err := base64.StdEncoding.DecodeString(img.Data)
	require.NoError(t, err)
	require.Contains(t, string(raw), "<svg")

	text := errorText(t, tools.ChartPanel(ctx, ChartPanelInput{DatasetID: "ds-1", Panel: "pie"}))
	require.True(t, strings.HasPrefix(text, "VALIDATION: panel must be one of"), text)

	text = errorText(t, tools.ChartPanel(ctx, ChartPanelInput{DatasetID: "ds-1", Panel: "scatter", Format: "gif"}))
	require.True(t, strings.HasPrefix(text, "VALIDATION:"), text)
}

func TestSalesConcentration(t *testing.T) {
	tools := newTools(t, &stubLoader{entry: salesEntry(t, 6)})
	ctx := context.Background()

	res := tools.SalesConcentration(ctx, ConcentrationInput{DatasetID: "ds-1", TopN: 2})
	require.False(t, res.IsError)
	out := res.StructuredContent.(ConcentrationOutput)
	require.Equal(t, "Country", out.Dimension)
	require.Equal(t, 3, out.GroupCount)
	require.Equal(t, "Germany", out.Groups[0].Name)
	require.InDelta(t, 0.429, out.Groups[0].Share, 0.001)
	require.InDelta(t, 0.238, out.OtherShare, 0.001)
	require.InDelta(t, 0.351, out.HHI, 0.001)
	require.Equal(t, insights.HighlyConcentrated, out.Band)

	res = tools.SalesConcentration(ctx, ConcentrationInput{DatasetID: "ds-1", Dimension: "segment"})
	out = res.StructuredContent.(ConcentrationOutput)
	require.Equal(t, "Midmarket", out.Groups[0].Name)
	require.Equal(t, 210.0, out.Total)

	text := errorText(t, tools.SalesConcentration(ctx, ConcentrationInput{DatasetID: "ds-1", Dimension: "region"}))
	require.True(t, strings.HasPrefix(text, "VALIDATION:"), text)
	text = errorText(t, tools.SalesConcentration(ctx, ConcentrationInput{DatasetID: "gone"}))
	require.True(t, strings.HasPrefix(text, "INVALID_DATASET:"), text)
}

func TestRegisterDashboardTools(t *testing.T) {
	reg := New()
	srv := server.NewMCPServer("test", "0.0.0", server.WithToolCapabilities(true))
	RegisterDashboardTools(srv, reg, newTools(t, &stubLoader{entry: salesEntry(t, 1)}))

	tools, err := reg.Tools(context.Background())
	require.NoError(t, err)
	names := make([]string, len(tools))
	for i, tool := range tools {
		names[i] = tool.Name
	}
	require.Equal(t, []string{"chart_panel", "group_metrics", "list_columns", "load_dataset", "preview_dataset", "sales_concentration"}, names)

	filter := NewDisabledToolFilter([]string{" Chart_Panel "})
	visible := filter.FilterTools(context.Background(), tools)
	require.Len(t, visible, 5)
	require.True(t, filter.Disabled("chart_panel"))
}

func TestEstimateTokens(t *testing.T) {
	require.Zero(t, EstimateTokens(""))
	require.Equal(t, 1, EstimateTokens("ab"))
	require.Equal(t, 3, EstimateTokens("twelve chars"))
}
