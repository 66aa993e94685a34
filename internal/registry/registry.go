// Package registry caches built graph instances per (graph, persona) so an
// invocation does not pay the build cost every time.
package registry

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/ai2b/zena/internal/config"
	"github.com/ai2b/zena/internal/domain"
	"github.com/ai2b/zena/internal/graph"
	"github.com/ai2b/zena/internal/logging"
	"github.com/ai2b/zena/internal/metrics"
)

// DepsFunc builds the dependency set a factory needs for one persona.
type DepsFunc func(persona domain.Persona) graph.Deps

// Options control instance caching.
type Options struct {
	// TTL is how long a built instance stays valid. Zero or negative
	// means instances never expire.
	TTL time.Duration
	// ForceReload rebuilds on every lookup, for iterating on graph code.
	ForceReload bool
}

// Registry resolves serving names to factories and caches built instances.
type Registry struct {
	refs    map[string]config.GraphRef
	newDeps DepsFunc
	opts    Options
	log     *logging.Logger
	now     func() time.Time

	mu      sync.Mutex
	entries map[string]*entry
}

type entry struct {
	mu      sync.Mutex
	g       *graph.CompiledGraph
	builtAt time.Time
}

// New creates a registry over the configured name-to-factory mapping.
func New(refs map[string]config.GraphRef, newDeps DepsFunc, opts Options, log *logging.Logger) *Registry {
	return &Registry{
		refs:    refs,
		newDeps: newDeps,
		opts:    opts,
		log:     log.Sub("registry"),
		now:     time.Now,
		entries: make(map[string]*entry),
	}
}

// Names returns the configured serving names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.refs))
	for name := range r.refs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Get returns a built graph for the serving name and persona, building or
// rebuilding it as the cache policy dictates.
func (r *Registry) Get(ctx context.Context, name string, persona domain.Persona) (*graph.CompiledGraph, error) {
	ref, ok := r.refs[name]
	if !ok {
		return nil, fmt.Errorf("unknown graph %q (known: %s)", name, strings.Join(r.Names(), ", "))
	}

	key := name + "|" + persona.Name

	r.mu.Lock()
	e, ok := r.entries[key]
	if !ok {
		e = &entry{}
		r.entries[key] = e
	}
	r.mu.Unlock()

	// Per-entry lock: concurrent lookups of the same key build once,
	// different keys build in parallel.
	e.mu.Lock()
	defer e.mu.Unlock()

	status := "miss"
	if e.g != nil {
		age := r.now().Sub(e.builtAt)
		switch {
		case r.opts.ForceReload:
			status = "force_reload"
		case r.opts.TTL > 0 && age >= r.opts.TTL:
			status = "expired"
		default:
			metrics.GraphCacheLookups.WithLabelValues(name, "hit").Inc()
			r.log.Debug().
				Str("cache_status", "hit").
				Str("key", key).
				Float64("age_s", age.Seconds()).
				Msg("graph cache lookup")
			return e.g, nil
		}
	}

	metrics.GraphCacheLookups.WithLabelValues(name, status).Inc()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	factory, err := graph.LookupFactory(ref.Func)
	if err != nil {
		return nil, fmt.Errorf("graph %q: %w", name, err)
	}

	start := r.now()
	g, err := factory(r.newDeps(persona))
	if err != nil {
		return nil, fmt.Errorf("building graph %q for persona %q: %w", name, persona.Name, err)
	}
	metrics.GraphBuildSeconds.WithLabelValues(name).Observe(time.Since(start).Seconds())

	e.g = g
	e.builtAt = r.now()

	r.log.Info().
		Str("cache_status", status).
		Str("key", key).
		Str("factory", ref.Func).
		Int("ttl_s", int(r.opts.TTL.Seconds())).
		Int("mcp_port", persona.MCPPort).
		Msg("graph built")
	return g, nil
}

// Invalidate drops every cached instance. The next lookups rebuild.
func (r *Registry) Invalidate() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = make(map[string]*entry)
}
