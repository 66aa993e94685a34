package mcp

import "encoding/json"

// Flavor selects the wire conventions of an MCP server build.
type Flavor string

const (
	// FlavorClassic is the standard MCP wire protocol.
	FlavorClassic Flavor = "classic"
	// FlavorList5007 is the legacy build on port 5007 that kept the old
	// list_tools / call_tool method names.
	FlavorList5007 Flavor = "list_5007"
	// FlavorAlena5020 is the build on port 5020 that wraps tool
	// arguments in an input envelope.
	FlavorAlena5020 Flavor = "alena_5020"
)

// FlavorForPort returns the wire flavor for a persona port. The 15xxx
// ports are the staging copies of the same server builds.
func FlavorForPort(port int) Flavor {
	switch port {
	case 5007, 15007:
		return FlavorList5007
	case 5020, 15020:
		return FlavorAlena5020
	}
	return FlavorClassic
}

func (f Flavor) listMethod() string {
	if f == FlavorList5007 {
		return "list_tools"
	}
	return "tools/list"
}

func (f Flavor) callMethod() string {
	if f == FlavorList5007 {
		return "call_tool"
	}
	return "tools/call"
}

// callParams shapes the tools/call params for this flavor.
func (f Flavor) callParams(name string, arguments json.RawMessage) any {
	if len(arguments) == 0 {
		arguments = json.RawMessage(`{}`)
	}
	if f == FlavorAlena5020 {
		return map[string]any{
			"name":      name,
			"arguments": map[string]any{"input": arguments},
		}
	}
	return map[string]any{
		"name":      name,
		"arguments": arguments,
	}
}
