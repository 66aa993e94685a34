package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseGraphRef(t *testing.T) {
	tests := []struct {
		input    string
		wantPath string
		wantFunc string
		wantErr  bool
	}{
		{"github.com/ai2b/zena/internal/agent:ConversationGraph", "github.com/ai2b/zena/internal/agent", "ConversationGraph", false},
		{"internal/agent:RedialogGraph", "internal/agent", "RedialogGraph", false},
		{"nocolon", "", "", true},
		{":Func", "", "", true},
		{"pkg:", "", "", true},
		{"pkg:Func:Extra", "", "", true},
		{"pkg:not a func", "", "", true},
		{"pkg:123bad", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			ref, err := ParseGraphRef(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantPath, ref.Path)
			assert.Equal(t, tt.wantFunc, ref.Func)
			assert.Equal(t, tt.input, ref.String())
		})
	}
}

func TestParseGraphsJSON(t *testing.T) {
	m, err := ParseGraphs(`{"zena_create_graph": "pkg/a:A", "zena_redialog_graph": "pkg/b:B"}`)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		"zena_create_graph":   "pkg/a:A",
		"zena_redialog_graph": "pkg/b:B",
	}, m)
}

func TestParseGraphsPairs(t *testing.T) {
	m, err := ParseGraphs("zena_create_graph=pkg/a:A, zena_redialog_graph=pkg/b:B")
	require.NoError(t, err)
	assert.Len(t, m, 2)
	assert.Equal(t, "pkg/a:A", m["zena_create_graph"])
}

func TestParseGraphsErrors(t *testing.T) {
	for _, input := range []string{"", "   ", "{not json", `{}`, "justname"} {
		t.Run(input, func(t *testing.T) {
			_, err := ParseGraphs(input)
			assert.Error(t, err)
		})
	}
}

func TestValidateGraphs(t *testing.T) {
	issues := ValidateGraphs(map[string]string{
		"zena_create_graph": "pkg/a:A",
	})
	assert.Empty(t, issues)

	issues = ValidateGraphs(map[string]string{
		"Bad-Name":   "pkg/a:A",
		"zena_graph": "missing-colon",
	})
	require.Len(t, issues, 2)
	// Issues are reported in sorted name order
	assert.Equal(t, "graphs.Bad-Name", issues[0].Path)
	assert.Equal(t, "graphs.zena_graph", issues[1].Path)
}
