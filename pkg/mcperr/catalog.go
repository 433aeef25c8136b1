package mcperr

import (
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
)

// Code defines a canonical MCP error code used across tools.
type Code string

const (
	// Validation & Input
	Validation        Code = "VALIDATION"
	InvalidDataset    Code = "INVALID_DATASET"
	InvalidColumn     Code = "INVALID_COLUMN"
	InvalidPanel      Code = "INVALID_PANEL"
	CursorInvalid     Code = "CURSOR_INVALID"
	CursorBuildFailed Code = "CURSOR_BUILD_FAILED"

	// Resource & Limits
	BusyResource    Code = "BUSY_RESOURCE"
	Timeout         Code = "TIMEOUT"
	PayloadTooLarge Code = "PAYLOAD_TOO_LARGE"
	FileTooLarge    Code = "FILE_TOO_LARGE"

	// IO & Formats
	LoadFailed    Code = "LOAD_FAILED"
	PreviewFailed Code = "PREVIEW_FAILED"
	RenderFailed  Code = "RENDER_FAILED"
	InsightFailed Code = "INSIGHT_FAILED"

	// Schema & Integrity
	SchemaMismatch    Code = "SCHEMA"
	EmptyDataset      Code = "EMPTY_DATASET"
	UnsupportedFormat Code = "UNSUPPORTED_FORMAT"
	PermissionDenied  Code = "PERMISSION_DENIED"
)

// Entry documents a code's standard message, retry semantics, and next steps.
type Entry struct {
	Code      Code
	Message   string
	Retryable bool
	NextSteps []string
}

// catalog maps canonical codes to guidance. Messages can be overridden per error.
var catalog = map[Code]Entry{
	Validation:        {Code: Validation, Message: "invalid inputs", Retryable: true, NextSteps: []string{"Correct the inputs per schema and retry", "See examples in tool description"}},
	InvalidDataset:    {Code: InvalidDataset, Message: "dataset id not found or expired", Retryable: true, NextSteps: []string{"Call load_dataset again and use the new dataset_id"}},
	InvalidColumn:     {Code: InvalidColumn, Message: "column not found", Retryable: true, NextSteps: []string{"Call list_columns to verify column names", "Check case and spacing"}},
	InvalidPanel:      {Code: InvalidPanel, Message: "unknown panel", Retryable: true, NextSteps: []string{"Use one of: scatter, country_totals, segment_totals, avg_vs_ratio, explorer"}},
	CursorInvalid:     {Code: CursorInvalid, Message: "cursor is invalid for current context", Retryable: true, NextSteps: []string{"Restart pagination from the first page", "Reload the dataset if it expired"}},
	CursorBuildFailed: {Code: CursorBuildFailed, Message: "failed to encode next page cursor", Retryable: true, NextSteps: []string{"Retry or use smaller pages"}},

	BusyResource:    {Code: BusyResource, Message: "concurrent request limit reached", Retryable: true, NextSteps: []string{"Retry after a short delay"}},
	Timeout:         {Code: Timeout, Message: "operation exceeded configured time limit", Retryable: true, NextSteps: []string{"Retry; remote sources may be slow", "Prefer cursor-first pagination"}},
	PayloadTooLarge: {Code: PayloadTooLarge, Message: "payload exceeds configured size", Retryable: true, NextSteps: []string{"Request fewer rows per page"}},
	FileTooLarge:    {Code: FileTooLarge, Message: "source exceeds configured size", Retryable: false, NextSteps: []string{"Use a smaller workbook or increase loader.max_bytes"}},

	LoadFailed:    {Code: LoadFailed, Message: "failed to load data source", Retryable: true, NextSteps: []string{"Verify the URL or path is reachable", "Check the server log for the HTTP status"}},
	PreviewFailed: {Code: PreviewFailed, Message: "failed to generate preview", Retryable: true, NextSteps: []string{"Retry with fewer rows"}},
	RenderFailed:  {Code: RenderFailed, Message: "failed to render chart", Retryable: true, NextSteps: []string{"Retry with format=svg", "Choose different columns"}},
	InsightFailed: {Code: InsightFailed, Message: "failed to compute insight", Retryable: false, NextSteps: []string{"Check that Sales is not zero across all groups"}},

	SchemaMismatch:    {Code: SchemaMismatch, Message: "required column missing", Retryable: false, NextSteps: []string{"Ensure the sheet has Sales, Country and Segment columns", "Or configure schema.* column names"}},
	EmptyDataset:      {Code: EmptyDataset, Message: "source has no header row", Retryable: false, NextSteps: []string{"Check that the first sheet holds the data"}},
	UnsupportedFormat: {Code: UnsupportedFormat, Message: "unsupported workbook format", Retryable: false, NextSteps: []string{"Convert to .xlsx and retry"}},
	PermissionDenied:  {Code: PermissionDenied, Message: "source is outside the allowed locations", Retryable: false, NextSteps: []string{"Use an http(s) URL or a file inside loader.allowed_dirs"}},
}

// Lookup returns the catalog entry for a code.
func Lookup(code Code) (Entry, bool) {
	e, ok := catalog[code]
	return e, ok
}

// normalize builds a standard error string including next steps for MCP clients that
// surface only a message string. Format: "CODE: message" followed by a guidance tail.
func normalize(code Code, msg string) string {
	base := strings.TrimSpace(msg)
	e, ok := catalog[code]
	if !ok {
		// Unknown code; preserve as-is
		if base == "" {
			return string(code)
		}
		return fmt.Sprintf("%s: %s", string(code), base)
	}
	if base == "" {
		base = e.Message
	}
	// Append compact nextSteps guidance inline to aid clients lacking structured fields.
	guidance := ""
	if len(e.NextSteps) > 0 {
		guidance = " | nextSteps: " + strings.Join(e.NextSteps, "; ")
	}
	return fmt.Sprintf("%s: %s%s", e.Code, base, guidance)
}

// FromText parses a "CODE: message" string, enriches it with catalog guidance,
// and returns an MCP tool error result.
func FromText(text string) *mcp.CallToolResult {
	t := strings.TrimSpace(text)
	if t == "" {
		return mcp.NewToolResultError(normalize(Validation, ""))
	}
	parts := strings.SplitN(t, ":", 2)
	code := Code(strings.TrimSpace(parts[0]))
	msg := ""
	if len(parts) > 1 {
		msg = strings.TrimSpace(parts[1])
	}
	return mcp.NewToolResultError(normalize(code, msg))
}

// New returns an MCP error result for a given code and optional message override.
func New(code Code, message string) *mcp.CallToolResult {
	return mcp.NewToolResultError(normalize(code, message))
}

// Wrapf formats details and returns an MCP error result for the code.
func Wrapf(code Code, format string, args ...any) *mcp.CallToolResult {
	return mcp.NewToolResultError(normalize(code, fmt.Sprintf(format, args...)))
}
