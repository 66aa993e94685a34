package mcp

import (
	"slices"

	"github.com/ai2b/zena/internal/domain"
	"github.com/ai2b/zena/internal/llm"
)

// baseTools are available in every dialog state.
var baseTools = []string{
	"zena_faq",
	"zena_services",
	"zena_product_search",
}

// AllowedTools returns the tool names permitted in the given state. The
// list grows with the dialog: booking the product unlocks after the new
// state, booking the time after selecting, and nothing is taken away.
func AllowedTools(state domain.DialogState) []string {
	names := slices.Clone(baseTools)
	if state != domain.StateNew {
		names = append(names, "zena_record_product_id")
	}
	if state != domain.StateNew && state != domain.StateSelecting {
		names = append(names, "zena_record_time", "zena_available_time_for_master")
	}
	return names
}

// FilterTools keeps only the tools permitted in the given state, in
// catalog order.
func FilterTools(state domain.DialogState, tools []Tool) []Tool {
	allowed := AllowedTools(state)
	var out []Tool
	for _, t := range tools {
		if slices.Contains(allowed, t.Name) {
			out = append(out, t)
		}
	}
	return out
}

// ToDefinitions converts MCP tools into the completion client's tool form.
func ToDefinitions(tools []Tool) []llm.ToolDefinition {
	defs := make([]llm.ToolDefinition, len(tools))
	for i, t := range tools {
		defs[i] = llm.ToolDefinition{
			Name:        t.Name,
			Description: t.Description,
			InputSchema: string(t.InputSchema),
		}
	}
	return defs
}
