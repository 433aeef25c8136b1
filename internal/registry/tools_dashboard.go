package registry

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/vinodismyname/salesdash/internal/insights"
	"github.com/vinodismyname/salesdash/internal/pipeline"
	"github.com/vinodismyname/salesdash/internal/presenter"
)

// --- Input / Output Schemas (typed for discovery) ---

// LoadDatasetInput defines parameters for loading a sales workbook.
type LoadDatasetInput struct {
	Source string `json:"source,omitempty" validate:"omitempty,source" jsonschema_description:"http(s) URL or allowed local path of an .xlsx/.xls workbook; empty selects the configured source"`
}

// LoadDatasetOutput documents the response fields for load_dataset.
type LoadDatasetOutput struct {
	DatasetID       string               `json:"dataset_id" jsonschema_description:"Server-assigned dataset handle ID"`
	Source          string               `json:"source" jsonschema_description:"Normalized source the dataset was read from"`
	Format          string               `json:"format" jsonschema_description:"Workbook format: xlsx or xls"`
	CacheHit        bool                 `json:"cache_hit" jsonschema_description:"True when the parsed source was served from cache"`
	Rows            int                  `json:"rows" jsonschema_description:"Rows after cleaning"`
	Columns         []string             `json:"columns" jsonschema_description:"Column names including derived metrics"`
	Clean           pipeline.CleanReport `json:"clean" jsonschema_description:"Imputed and dropped row counts"`
	MaxPayloadBytes int                  `json:"maxPayloadBytes" jsonschema_description:"Effective payload size limit in bytes"`
	PreviewRowLimit int                  `json:"previewRowLimit" jsonschema_description:"Maximum rows per preview page"`
}

// PreviewDatasetInput defines parameters for paging through the aggregated dataset.
type PreviewDatasetInput struct {
	DatasetID string `json:"dataset_id,omitempty" validate:"required_without=Cursor" jsonschema_description:"Dataset handle ID (ignored when cursor is set)"`
	Cursor    string `json:"cursor,omitempty" validate:"omitempty,cursor" jsonschema_description:"Opaque nextCursor from a previous page"`
	Rows      int    `json:"rows,omitempty" validate:"gte=0" jsonschema_description:"Rows per page (bounded)"`
	Model     string `json:"model,omitempty" jsonschema_description:"Model name used to report its context window next to the token estimate"`
}

// PageMeta captures paging/truncation metadata.
type PageMeta struct {
	Total              int    `json:"total"`
	Offset             int    `json:"offset"`
	Returned           int    `json:"returned"`
	Truncated          bool   `json:"truncated"`
	NextCursor         string `json:"nextCursor,omitempty"`
	ApproxTokens       int    `json:"approxTokens"`
	ModelContextTokens int    `json:"modelContextTokens,omitempty"`
}

// PreviewDatasetOutput documents a preview page.
type PreviewDatasetOutput struct {
	DatasetID string           `json:"dataset_id"`
	Columns   []string         `json:"columns"`
	Rows      []map[string]any `json:"rows"`
	Meta      PageMeta         `json:"meta"`
}

// DatasetRef addresses a loaded dataset.
type DatasetRef struct {
	DatasetID string `json:"dataset_id" validate:"required" jsonschema_description:"Dataset handle ID from load_dataset"`
}

// GroupMetricsOutput lists per (country, segment) metrics.
type GroupMetricsOutput struct {
	DatasetID string              `json:"dataset_id"`
	Groups    []pipeline.GroupRow `json:"groups"`
}

// ColumnInfo describes one column of the aggregated dataset.
type ColumnInfo struct {
	Name string `json:"name"`
	Kind string `json:"kind" jsonschema_description:"numeric, text or time"`
}

// ListColumnsOutput documents columns and the numeric subset used by scatter pickers.
type ListColumnsOutput struct {
	DatasetID string       `json:"dataset_id"`
	Columns   []ColumnInfo `json:"columns"`
	Numeric   []string     `json:"numeric"`
}

// ChartPanelInput selects a panel and its axis choices.
type ChartPanelInput struct {
	DatasetID    string `json:"dataset_id" validate:"required" jsonschema_description:"Dataset handle ID"`
	Panel        string `json:"panel" validate:"required,panel" jsonschema_description:"One of scatter, country_totals, segment_totals, avg_vs_ratio, explorer"`
	ScatterX     string `json:"scatter_x,omitempty" jsonschema_description:"Numeric column for the scatter X axis"`
	ScatterY     string `json:"scatter_y,omitempty" jsonschema_description:"Numeric column for the scatter Y axis"`
	ExploreX     string `json:"explore_x,omitempty" jsonschema_description:"Explorer X column"`
	ExploreY     string `json:"explore_y,omitempty" jsonschema_description:"Explorer Y column"`
	Format       string `json:"format,omitempty" validate:"chartfmt" jsonschema_description:"Image format when include_image is set: svg or png"`
	IncludeImage bool   `json:"include_image,omitempty" jsonschema_description:"Attach the rendered chart as image content"`
}

func (in ChartPanelInput) selection() presenter.Selection {
	return presenter.Selection{ScatterX: in.ScatterX, ScatterY: in.ScatterY, ExploreX: in.ExploreX, ExploreY: in.ExploreY}
}

// ChartPanelOutput carries the built panel.
type ChartPanelOutput struct {
	DatasetID string          `json:"dataset_id"`
	Panel     presenter.Panel `json:"panel"`
	Image     *ImageMeta      `json:"image,omitempty"`
}

// ConcentrationInput selects the grouping column for sales_concentration.
type ConcentrationInput struct {
	DatasetID string `json:"dataset_id" validate:"required" jsonschema_description:"Dataset handle ID"`
	Dimension string `json:"dimension,omitempty" validate:"omitempty,oneof=country segment" jsonschema_description:"Group by country (default) or segment"`
	TopN      int    `json:"top_n,omitempty" validate:"gte=0,lte=10" jsonschema_description:"Groups to list individually (default 5, max 10)"`
}

// ConcentrationOutput carries the share breakdown and HHI band.
type ConcentrationOutput struct {
	DatasetID string `json:"dataset_id"`
	insights.Concentration
}

// ImageMeta describes an attached chart image.
type ImageMeta struct {
	MIMEType string `json:"mimeType"`
	Bytes    int    `json:"bytes"`
}

// RegisterDashboardTools defines the dashboard tools and wires them to tools.
func RegisterDashboardTools(s *server.MCPServer, reg *Registry, tools *DashboardTools) {
	load := mcp.NewTool(
		"load_dataset",
		mcp.WithDescription("Load a sales workbook (first sheet), clean it and aggregate Sales by (Country, Segment). Returns a dataset_id used by the other tools. Sources are cached; errors include LOAD_FAILED, UNSUPPORTED_FORMAT, FILE_TOO_LARGE, PERMISSION_DENIED and SCHEMA."),
		mcp.WithTitleAnnotation("Load dataset"),
		mcp.WithInputSchema[LoadDatasetInput](),
		mcp.WithOutputSchema[LoadDatasetOutput](),
	)
	s.AddTool(load, mcp.NewTypedToolHandler(func(ctx context.Context, req mcp.CallToolRequest, in LoadDatasetInput) (*mcp.CallToolResult, error) {
		return tools.LoadDataset(ctx, in), nil
	}))
	reg.Register(load)

	preview := mcp.NewTool(
		"preview_dataset",
		mcp.WithDescription("Page through the cleaned and aggregated rows. Pass dataset_id for the first page, then the returned nextCursor. Pages are bounded by the preview row limit and payload size."),
		mcp.WithTitleAnnotation("Preview dataset"),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithInputSchema[PreviewDatasetInput](),
		mcp.WithOutputSchema[PreviewDatasetOutput](),
	)
	s.AddTool(preview, mcp.NewTypedToolHandler(func(ctx context.Context, req mcp.CallToolRequest, in PreviewDatasetInput) (*mcp.CallToolResult, error) {
		return tools.PreviewDataset(ctx, in), nil
	}))
	reg.Register(preview)

	groups := mcp.NewTool(
		"group_metrics",
		mcp.WithDescription("Return one row per (Country, Segment) with the first Sales value, avg_sales_by_group and total_sales_by_group."),
		mcp.WithTitleAnnotation("Group metrics"),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithInputSchema[DatasetRef](),
		mcp.WithOutputSchema[GroupMetricsOutput](),
	)
	s.AddTool(groups, mcp.NewTypedToolHandler(func(ctx context.Context, req mcp.CallToolRequest, in DatasetRef) (*mcp.CallToolResult, error) {
		return tools.GroupMetrics(ctx, in), nil
	}))
	reg.Register(groups)

	columns := mcp.NewTool(
		"list_columns",
		mcp.WithDescription("List the aggregated dataset's columns with their kinds and the numeric columns available to scatter plots."),
		mcp.WithTitleAnnotation("List columns"),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithInputSchema[DatasetRef](),
		mcp.WithOutputSchema[ListColumnsOutput](),
	)
	s.AddTool(columns, mcp.NewTypedToolHandler(func(ctx context.Context, req mcp.CallToolRequest, in DatasetRef) (*mcp.CallToolResult, error) {
		return tools.ListColumns(ctx, in), nil
	}))
	reg.Register(columns)

	chart := mcp.NewTool(
		"chart_panel",
		mcp.WithDescription("Build one dashboard panel (scatter, country_totals, segment_totals, avg_vs_ratio, explorer) for the given axis selection. Unknown axis names fall back to the first valid column. Set include_image to attach the rendered SVG or PNG."),
		mcp.WithTitleAnnotation("Chart panel"),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithInputSchema[ChartPanelInput](),
		mcp.WithOutputSchema[ChartPanelOutput](),
	)
	s.AddTool(chart, mcp.NewTypedToolHandler(func(ctx context.Context, req mcp.CallToolRequest, in ChartPanelInput) (*mcp.CallToolResult, error) {
		return tools.ChartPanel(ctx, in), nil
	}))
	reg.Register(chart)

	conc := mcp.NewTool(
		"sales_concentration",
		mcp.WithDescription("Report how concentrated Sales is across countries or segments: the Top-N groups with their share of total Sales, the share of all other groups, and the HHI with its band (unconcentrated < 0.15 <= moderately_concentrated < 0.25 <= highly_concentrated)."),
		mcp.WithTitleAnnotation("Sales concentration"),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithInputSchema[ConcentrationInput](),
		mcp.WithOutputSchema[ConcentrationOutput](),
	)
	s.AddTool(conc, mcp.NewTypedToolHandler(func(ctx context.Context, req mcp.CallToolRequest, in ConcentrationInput) (*mcp.CallToolResult, error) {
		return tools.SalesConcentration(ctx, in), nil
	}))
	reg.Register(conc)
}
