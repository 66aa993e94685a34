// Package graph is a small node-based execution engine: an agent is a set
// of named nodes, each of which mutates shared state and names the next
// node to run.
package graph

import (
	"context"
	"fmt"

	"github.com/ai2b/zena/internal/cache"
	"github.com/ai2b/zena/internal/domain"
	"github.com/ai2b/zena/internal/history"
	"github.com/ai2b/zena/internal/llm"
	"github.com/ai2b/zena/internal/logging"
	"github.com/ai2b/zena/internal/mcp"
	"github.com/ai2b/zena/internal/prompt"
	"github.com/ai2b/zena/internal/store"
)

// End is the node name that stops execution.
const End = "__end__"

// maxSteps bounds a single invocation so a node cycle cannot spin forever.
const maxSteps = 50

// State is the shared scratchpad threaded through every node of one
// invocation.
type State struct {
	ChannelID string
	ChatID    string
	Persona   domain.Persona
	Channel   store.Channel

	UserMessage string
	DialogState domain.DialogState
	Messages    []domain.Message
	Tools       []llm.ToolDefinition

	SystemPrompt string
	Reply        string
	Usage        llm.Usage

	// PendingCalls are tool calls the model requested but that have not
	// been executed yet. ToolRounds counts agent/tool round trips.
	PendingCalls []domain.ToolCall
	ToolRounds   int

	// Finished marks that a node already produced the final reply and the
	// rest of the pipeline should be skipped.
	Finished bool
}

// NodeFunc runs one node. It returns the name of the next node, or End.
type NodeFunc func(ctx context.Context, st *State) (string, error)

// Deps is everything a graph factory may wire into its nodes.
type Deps struct {
	Models  *llm.Set
	MCP     mcp.Backend
	Store   store.DialogStore
	Masters *cache.MastersCache
	States  *cache.DialogStateStore
	Prompt  prompt.Source
	History *history.Exporter
	Log     *logging.Logger
	Persona domain.Persona
}

// Factory builds a compiled graph bound to a persona's dependencies.
type Factory func(deps Deps) (*CompiledGraph, error)

// Builder accumulates nodes before compilation.
type Builder struct {
	name  string
	entry string
	nodes map[string]NodeFunc
}

// New starts a graph definition.
func New(name string) *Builder {
	return &Builder{name: name, nodes: make(map[string]NodeFunc)}
}

// AddNode registers a named node. The first node added becomes the entry
// point unless SetEntry overrides it.
func (b *Builder) AddNode(name string, fn NodeFunc) *Builder {
	if b.entry == "" {
		b.entry = name
	}
	b.nodes[name] = fn
	return b
}

// SetEntry picks the node execution starts from.
func (b *Builder) SetEntry(name string) *Builder {
	b.entry = name
	return b
}

// Compile validates the definition and returns a runnable graph.
func (b *Builder) Compile() (*CompiledGraph, error) {
	if len(b.nodes) == 0 {
		return nil, fmt.Errorf("graph %q has no nodes", b.name)
	}
	if _, ok := b.nodes[b.entry]; !ok {
		return nil, fmt.Errorf("graph %q: entry node %q not defined", b.name, b.entry)
	}
	return &CompiledGraph{name: b.name, entry: b.entry, nodes: b.nodes}, nil
}

// CompiledGraph is an immutable, runnable graph.
type CompiledGraph struct {
	name  string
	entry string
	nodes map[string]NodeFunc
}

// Name returns the graph's name.
func (g *CompiledGraph) Name() string { return g.name }

// Invoke runs the graph to completion, mutating st in place.
func (g *CompiledGraph) Invoke(ctx context.Context, st *State) error {
	current := g.entry
	for step := 0; ; step++ {
		if step >= maxSteps {
			return fmt.Errorf("graph %q: exceeded %d steps at node %q", g.name, maxSteps, current)
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		fn, ok := g.nodes[current]
		if !ok {
			return fmt.Errorf("graph %q: unknown node %q", g.name, current)
		}

		next, err := fn(ctx, st)
		if err != nil {
			return fmt.Errorf("graph %q: node %q: %w", g.name, current, err)
		}
		if next == End || next == "" {
			return nil
		}
		current = next
	}
}
