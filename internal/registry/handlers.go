package registry

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/rs/zerolog"

	"github.com/vinodismyname/salesdash/internal/dashboard"
	"github.com/vinodismyname/salesdash/internal/insights"
	"github.com/vinodismyname/salesdash/internal/loader"
	"github.com/vinodismyname/salesdash/internal/pipeline"
	"github.com/vinodismyname/salesdash/internal/presenter"
	"github.com/vinodismyname/salesdash/internal/runtime"
	"github.com/vinodismyname/salesdash/internal/security"
	"github.com/vinodismyname/salesdash/pkg/mcperr"
	"github.com/vinodismyname/salesdash/pkg/pagination"
	"github.com/vinodismyname/salesdash/pkg/validation"
)

// DashboardTools implements the dashboard MCP tools on top of a dashboard.Service.
type DashboardTools struct {
	svc         *dashboard.Service
	reg         *Registry
	limits      runtime.Limits
	previewRows int
}

// NewDashboardTools constructs the tool handlers. previewRows is the default page size.
func NewDashboardTools(svc *dashboard.Service, reg *Registry, limits runtime.Limits, previewRows int) *DashboardTools {
	if previewRows <= 0 {
		previewRows = limits.PageSize
	}
	return &DashboardTools{svc: svc, reg: reg, limits: limits, previewRows: previewRows}
}

// LoadDataset loads and aggregates a source.
func (t *DashboardTools) LoadDataset(ctx context.Context, in LoadDatasetInput) *mcp.CallToolResult {
	if msg := validation.ValidateStruct(in); msg != "" {
		return mcperr.FromText(msg)
	}
	p, err := t.svc.Prepare(ctx, strings.TrimSpace(in.Source))
	if err != nil {
		return toolError(ctx, err, mcperr.LoadFailed)
	}
	ds := p.Dataset()
	out := LoadDatasetOutput{
		DatasetID:       p.Entry.ID,
		Source:          p.Entry.Source.Key,
		Format:          string(p.Entry.Format),
		CacheHit:        p.CacheHit,
		Rows:            ds.Len(),
		Columns:         ds.Names(),
		Clean:           p.Result.Clean,
		MaxPayloadBytes: t.limits.MaxPayloadBytes,
		PreviewRowLimit: t.limits.PreviewRowLimit,
	}
	summary := fmt.Sprintf("dataset_id=%s rows=%d columns=%d cache_hit=%v imputed=%d dropped=%d",
		out.DatasetID, out.Rows, len(out.Columns), out.CacheHit, out.Clean.Imputed, out.Clean.Dropped)
	return mcp.NewToolResultStructured(out, summary)
}

// PreviewDataset returns one page of the aggregated dataset.
func (t *DashboardTools) PreviewDataset(ctx context.Context, in PreviewDatasetInput) *mcp.CallToolResult {
	if msg := validation.ValidateStruct(in); msg != "" {
		return mcperr.FromText(msg)
	}

	cur := pagination.Cursor{Did: strings.TrimSpace(in.DatasetID), Ps: t.pageSize(in.Rows)}
	fromCursor := strings.TrimSpace(in.Cursor) != ""
	if fromCursor {
		c, err := pagination.DecodeCursor(in.Cursor)
		if err != nil {
			return mcperr.New(mcperr.CursorInvalid, err.Error())
		}
		cur = *c
		cur.Ps = t.pageSize(cur.Ps)
	}

	p, err := t.svc.PrepareByID(ctx, cur.Did)
	if err != nil {
		if fromCursor && errors.Is(err, dashboard.ErrDatasetNotFound) {
			return mcperr.New(mcperr.CursorInvalid, "dataset expired")
		}
		return toolError(ctx, err, mcperr.PreviewFailed)
	}
	ds := p.Dataset()
	if fromCursor && cur.N != ds.Len() {
		return mcperr.New(mcperr.CursorInvalid, "dataset changed since the cursor was issued")
	}
	cur.N = ds.Len()

	page := ds.Slice(cur.Off, cur.Ps)
	rows := page.Records()
	payload, err := json.Marshal(rows)
	if err != nil {
		return mcperr.New(mcperr.PreviewFailed, err.Error())
	}
	if t.limits.MaxPayloadBytes > 0 && len(payload) > t.limits.MaxPayloadBytes {
		return mcperr.Wrapf(mcperr.PayloadTooLarge, "page of %d rows is %d bytes (limit %d)", page.Len(), len(payload), t.limits.MaxPayloadBytes)
	}

	meta := PageMeta{
		Total:        cur.N,
		Offset:       cur.Off,
		Returned:     page.Len(),
		ApproxTokens: EstimateTokens(string(payload)),
	}
	if t.reg != nil {
		meta.ModelContextTokens = t.reg.ModelContextSize(in.Model)
	}
	if next, ok := pagination.Next(cur, page.Len()); ok {
		token, err := pagination.EncodeCursor(next)
		if err != nil {
			return mcperr.New(mcperr.CursorBuildFailed, err.Error())
		}
		meta.Truncated = true
		meta.NextCursor = token
	}

	out := PreviewDatasetOutput{DatasetID: cur.Did, Columns: ds.Names(), Rows: rows, Meta: meta}
	summary := fmt.Sprintf("rows %d-%d of %d truncated=%v", cur.Off, cur.Off+meta.Returned, meta.Total, meta.Truncated)
	return mcp.NewToolResultStructured(out, summary)
}

func (t *DashboardTools) pageSize(n int) int {
	if n <= 0 {
		n = t.previewRows
	}
	if t.limits.PreviewRowLimit > 0 && n > t.limits.PreviewRowLimit {
		n = t.limits.PreviewRowLimit
	}
	return n
}

// GroupMetrics returns the per-group metrics table.
func (t *DashboardTools) GroupMetrics(ctx context.Context, in DatasetRef) *mcp.CallToolResult {
	if msg := validation.ValidateStruct(in); msg != "" {
		return mcperr.FromText(msg)
	}
	p, err := t.svc.PrepareByID(ctx, in.DatasetID)
	if err != nil {
		return toolError(ctx, err, mcperr.PreviewFailed)
	}
	out := GroupMetricsOutput{DatasetID: in.DatasetID, Groups: p.Result.Table}

	lines := []string{fmt.Sprintf("groups=%d", len(out.Groups))}
	for i, g := range out.Groups {
		if i == 10 {
			lines = append(lines, fmt.Sprintf("... %d more", len(out.Groups)-i))
			break
		}
		lines = append(lines, fmt.Sprintf("- %s / %s mean=%.2f total=%.2f", g.Country, g.Segment, g.Mean, g.Total))
	}
	res := mcp.NewToolResultStructured(out, lines[0])
	res.Content = []mcp.Content{mcp.NewTextContent(strings.Join(lines, "\n"))}
	return res
}

// ListColumns describes the aggregated dataset's columns.
func (t *DashboardTools) ListColumns(ctx context.Context, in DatasetRef) *mcp.CallToolResult {
	if msg := validation.ValidateStruct(in); msg != "" {
		return mcperr.FromText(msg)
	}
	p, err := t.svc.PrepareByID(ctx, in.DatasetID)
	if err != nil {
		return toolError(ctx, err, mcperr.PreviewFailed)
	}
	ds := p.Dataset()
	out := ListColumnsOutput{DatasetID: in.DatasetID, Numeric: ds.NumericColumns()}
	for _, c := range ds.Columns {
		out.Columns = append(out.Columns, ColumnInfo{Name: c.Name, Kind: c.Kind.String()})
	}
	summary := fmt.Sprintf("columns=%d numeric=%s", len(out.Columns), strings.Join(out.Numeric, ","))
	return mcp.NewToolResultStructured(out, summary)
}

// ChartPanel builds a panel and optionally attaches the rendered image.
func (t *DashboardTools) ChartPanel(ctx context.Context, in ChartPanelInput) *mcp.CallToolResult {
	if msg := validation.ValidateStruct(in); msg != "" {
		return mcperr.FromText(msg)
	}
	id, err := presenter.ParsePanel(in.Panel)
	if err != nil {
		return mcperr.New(mcperr.InvalidPanel, err.Error())
	}
	format, err := presenter.ParseFormat(strings.ToLower(in.Format))
	if err != nil {
		return mcperr.New(mcperr.Validation, err.Error())
	}
	p, err := t.svc.PrepareByID(ctx, in.DatasetID)
	if err != nil {
		return toolError(ctx, err, mcperr.RenderFailed)
	}
	sel := in.selection()
	panel, err := t.svc.Presenter().Panel(p.Dataset(), id, sel)
	if err != nil {
		return toolError(ctx, err, mcperr.RenderFailed)
	}
	out := ChartPanelOutput{DatasetID: in.DatasetID, Panel: panel}

	summary := panel.Heading
	if panel.Chart != nil {
		summary = panel.Chart.Title
	}
	if panel.Warning != "" {
		summary += ": " + panel.Warning
	}
	if !in.IncludeImage || panel.Chart == nil {
		return mcp.NewToolResultStructured(out, summary)
	}

	var buf bytes.Buffer
	if err := t.svc.Chart(ctx, p, id, sel, format, &buf); err != nil {
		return toolError(ctx, err, mcperr.RenderFailed)
	}
	out.Image = &ImageMeta{MIMEType: format.ContentType(), Bytes: buf.Len()}
	res := mcp.NewToolResultStructured(out, summary)
	res.Content = append(res.Content, mcp.NewImageContent(base64.StdEncoding.EncodeToString(buf.Bytes()), format.ContentType()))
	return res
}

// SalesConcentration computes Top-N share and HHI of the measure per group.
func (t *DashboardTools) SalesConcentration(ctx context.Context, in ConcentrationInput) *mcp.CallToolResult {
	if msg := validation.ValidateStruct(in); msg != "" {
		return mcperr.FromText(msg)
	}
	p, err := t.svc.PrepareByID(ctx, in.DatasetID)
	if err != nil {
		return toolError(ctx, err, mcperr.InsightFailed)
	}
	schema := t.svc.Schema()
	dim := schema.Country
	if in.Dimension == "segment" {
		dim = schema.Segment
	}
	c, err := insights.Concentrate(p.Dataset(), dim, schema.Measure, in.TopN)
	if err != nil {
		return toolError(ctx, err, mcperr.InsightFailed)
	}
	out := ConcentrationOutput{DatasetID: in.DatasetID, Concentration: c}

	lines := []string{fmt.Sprintf("%s: hhi=%.3f band=%s groups=%d", dim, c.HHI, c.Band, c.GroupCount)}
	for _, g := range c.Groups {
		lines = append(lines, fmt.Sprintf("- %s %.1f%%", g.Name, g.Share*100))
	}
	if c.OtherShare > 0 {
		lines = append(lines, fmt.Sprintf("- other %.1f%%", c.OtherShare*100))
	}
	res := mcp.NewToolResultStructured(out, lines[0])
	res.Content = []mcp.Content{mcp.NewTextContent(strings.Join(lines, "\n"))}
	return res
}

// toolError maps pipeline errors to catalog codes, using fallback for the rest.
func toolError(ctx context.Context, err error, fallback mcperr.Code) *mcp.CallToolResult {
	code := fallback
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		code = mcperr.Timeout
	case errors.Is(err, security.ErrNotAllowed), errors.Is(err, security.ErrUnsupportedExtension),
		errors.Is(err, security.ErrNotFound), errors.Is(err, security.ErrInvalidURL):
		code = mcperr.PermissionDenied
	case errors.Is(err, loader.ErrEmptySource):
		code = mcperr.Validation
	case errors.Is(err, loader.ErrTooLarge):
		code = mcperr.FileTooLarge
	case errors.Is(err, loader.ErrUnsupportedFormat):
		code = mcperr.UnsupportedFormat
	case errors.Is(err, loader.ErrEmpty):
		code = mcperr.EmptyDataset
	case errors.Is(err, loader.ErrFetch), errors.Is(err, loader.ErrStatus):
		code = mcperr.LoadFailed
	case errors.Is(err, pipeline.ErrSchema):
		code = mcperr.SchemaMismatch
	case errors.Is(err, dashboard.ErrDatasetNotFound):
		code = mcperr.InvalidDataset
	case errors.Is(err, presenter.ErrUnknownPanel):
		code = mcperr.InvalidPanel
	case errors.Is(err, presenter.ErrFormat):
		code = mcperr.Validation
	}
	zerolog.Ctx(ctx).Debug().Err(err).Str("code", string(code)).Msg("tool error")
	return mcperr.New(code, err.Error())
}
