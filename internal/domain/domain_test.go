package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMessageBuilders(t *testing.T) {
	m := User("hello")
	assert.Equal(t, RoleUser, m.Role)
	assert.Equal(t, "hello", m.Content)

	m = Assistant("hi")
	assert.Equal(t, RoleAssistant, m.Role)

	m = System("rules")
	assert.Equal(t, RoleSystem, m.Role)

	m = ToolResult("call-1", "zena_product_search", `{"items": []}`)
	assert.Equal(t, RoleTool, m.Role)
	assert.Equal(t, "call-1", m.ToolCallID)
	assert.Equal(t, "zena_product_search", m.Name)
}

func TestNextState(t *testing.T) {
	tests := []struct {
		current DialogState
		tool    string
		want    DialogState
	}{
		{StateNew, "zena_product_search", StateSelecting},
		{StateSelecting, "zena_record_product_id", StateRecord},
		{StateRecord, "zena_record_time", StatePosrecord},
		{StateNew, "zena_faq", StateNew},
		{StateSelecting, "unknown_tool", StateSelecting},
		// A search from a later state drops back to selecting
		{StatePosrecord, "zena_product_search", StateSelecting},
	}

	for _, tt := range tests {
		t.Run(tt.tool, func(t *testing.T) {
			assert.Equal(t, tt.want, NextState(tt.current, tt.tool))
		})
	}
}

func TestValidState(t *testing.T) {
	for _, s := range []DialogState{StateNew, StateSelecting, StateRecord, StatePosrecord} {
		assert.True(t, ValidState(s))
	}
	assert.False(t, ValidState("bogus"))
	assert.False(t, ValidState(""))
}

func TestPersonaString(t *testing.T) {
	p := Persona{Name: "sofia", MCPPort: 5002}
	assert.Equal(t, "sofia (mcp:5002)", p.String())
}
