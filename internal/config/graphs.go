package config

import (
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// GraphRef is a parsed graph factory reference of the form "import/path:Func".
type GraphRef struct {
	Path string // package import path, informational
	Func string // factory name resolved against the registered factories
}

func (r GraphRef) String() string {
	return r.Path + ":" + r.Func
}

var (
	graphNamePattern = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)
	funcNamePattern  = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
)

// ParseGraphRef splits a "import/path:Func" reference. Both halves must be
// non-empty and the factory name must be a valid identifier.
func ParseGraphRef(s string) (GraphRef, error) {
	path, fn, ok := strings.Cut(s, ":")
	if !ok {
		return GraphRef{}, &ConfigError{Message: fmt.Sprintf("graph ref %q missing ':' separator", s)}
	}
	path = strings.TrimSpace(path)
	fn = strings.TrimSpace(fn)
	if path == "" {
		return GraphRef{}, &ConfigError{Message: fmt.Sprintf("graph ref %q has empty import path", s)}
	}
	if fn == "" {
		return GraphRef{}, &ConfigError{Message: fmt.Sprintf("graph ref %q has empty factory name", s)}
	}
	if strings.Contains(fn, ":") {
		return GraphRef{}, &ConfigError{Message: fmt.Sprintf("graph ref %q has more than one ':' separator", s)}
	}
	if !funcNamePattern.MatchString(fn) {
		return GraphRef{}, &ConfigError{Message: fmt.Sprintf("graph ref %q has invalid factory name %q", s, fn)}
	}
	return GraphRef{Path: path, Func: fn}, nil
}

// ResolveGraphRefs parses every value of a serving-name mapping into a
// GraphRef, failing on the first malformed one.
func ResolveGraphRefs(graphs map[string]string) (map[string]GraphRef, error) {
	refs := make(map[string]GraphRef, len(graphs))
	for name, raw := range graphs {
		ref, err := ParseGraphRef(raw)
		if err != nil {
			return nil, fmt.Errorf("graph %q: %w", name, err)
		}
		refs[name] = ref
	}
	return refs, nil
}

// ParseGraphs parses the ZENA_GRAPHS value into a serving-name to factory-ref
// map. The value is either a JSON object or a comma-separated list of
// name=ref pairs.
func ParseGraphs(s string) (map[string]string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, &ConfigError{Message: "empty graphs mapping"}
	}

	if strings.HasPrefix(s, "{") {
		var m map[string]string
		if err := json.Unmarshal([]byte(s), &m); err != nil {
			return nil, &ConfigError{Message: "invalid graphs JSON: " + err.Error()}
		}
		if len(m) == 0 {
			return nil, &ConfigError{Message: "empty graphs mapping"}
		}
		return m, nil
	}

	m := make(map[string]string)
	for _, pair := range strings.Split(s, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		name, ref, ok := strings.Cut(pair, "=")
		if !ok {
			return nil, &ConfigError{Message: fmt.Sprintf("graphs entry %q is not name=ref", pair)}
		}
		m[strings.TrimSpace(name)] = strings.TrimSpace(ref)
	}
	if len(m) == 0 {
		return nil, &ConfigError{Message: "empty graphs mapping"}
	}
	return m, nil
}

// ValidateGraphs checks every entry of a graphs mapping for well-formedness.
func ValidateGraphs(graphs map[string]string) []ValidationIssue {
	var issues []ValidationIssue

	names := make([]string, 0, len(graphs))
	for name := range graphs {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if !graphNamePattern.MatchString(name) {
			issues = append(issues, ValidationIssue{
				Path:    "graphs." + name,
				Message: fmt.Sprintf("invalid graph name %q (want lowercase identifier)", name),
			})
		}
		if _, err := ParseGraphRef(graphs[name]); err != nil {
			issues = append(issues, ValidationIssue{
				Path:    "graphs." + name,
				Message: err.Error(),
			})
		}
	}
	return issues
}
