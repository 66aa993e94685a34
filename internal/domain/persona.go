package domain

import (
	"fmt"
	"sort"
)

// Persona is a served agent identity with its dedicated MCP tool-server port.
type Persona struct {
	Name    string
	MCPPort int
}

func (p Persona) String() string {
	return fmt.Sprintf("%s (mcp:%d)", p.Name, p.MCPPort)
}

// SortedPersonas converts a name-to-port map into personas sorted by name.
func SortedPersonas(ports map[string]int) []Persona {
	out := make([]Persona, 0, len(ports))
	for name, port := range ports {
		out = append(out, Persona{Name: name, MCPPort: port})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
