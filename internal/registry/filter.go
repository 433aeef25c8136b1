package registry

import (
	"context"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
)

// DisabledToolFilter hides tools an operator switched off via mcp.disabled_tools.
type DisabledToolFilter struct {
	disabled map[string]struct{}
}

// NewDisabledToolFilter builds a filter from tool names. Matching ignores case.
func NewDisabledToolFilter(names []string) *DisabledToolFilter {
	f := &DisabledToolFilter{disabled: make(map[string]struct{}, len(names))}
	for _, n := range names {
		n = strings.ToLower(strings.TrimSpace(n))
		if n != "" {
			f.disabled[n] = struct{}{}
		}
	}
	return f
}

// Disabled reports whether the named tool is switched off.
func (f *DisabledToolFilter) Disabled(name string) bool {
	_, ok := f.disabled[strings.ToLower(name)]
	return ok
}

// FilterTools implements server tool filtering semantics.
func (f *DisabledToolFilter) FilterTools(ctx context.Context, tools []mcp.Tool) []mcp.Tool {
	if len(f.disabled) == 0 {
		return tools
	}
	out := make([]mcp.Tool, 0, len(tools))
	for _, t := range tools {
		if f.Disabled(t.Name) {
			continue
		}
		out = append(out, t)
	}
	return out
}
