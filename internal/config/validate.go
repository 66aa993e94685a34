package config

import (
	"fmt"
	"slices"
	"sort"
)

// ValidationIssue describes a problem with a config value.
type ValidationIssue struct {
	Path    string
	Message string
}

func (v ValidationIssue) String() string {
	return fmt.Sprintf("%s: %s", v.Path, v.Message)
}

// Validate checks a Config for issues. Returns nil if valid.
func Validate(cfg *Config) []ValidationIssue {
	var issues []ValidationIssue

	// Graph mapping well-formedness
	if len(cfg.Graphs) == 0 {
		issues = append(issues, ValidationIssue{
			Path:    "graphs",
			Message: "at least one graph must be configured",
		})
	}
	issues = append(issues, ValidateGraphs(cfg.Graphs)...)

	// Persona ports
	personaNames := make([]string, 0, len(cfg.Personas))
	for name := range cfg.Personas {
		personaNames = append(personaNames, name)
	}
	sort.Strings(personaNames)
	for _, name := range personaNames {
		port := cfg.Personas[name]
		if port < 1 || port > 65535 {
			issues = append(issues, ValidationIssue{
				Path:    "personas." + name,
				Message: fmt.Sprintf("port must be 1-65535, got %d", port),
			})
		}
	}

	// Cache validation
	if cfg.Cache.TTLSeconds < 0 {
		issues = append(issues, ValidationIssue{
			Path:    "cache.ttlSeconds",
			Message: fmt.Sprintf("ttl must be >= 0, got %d", cfg.Cache.TTLSeconds),
		})
	}

	// Gateway validation
	if cfg.Gateway.Port < 1 || cfg.Gateway.Port > 65535 {
		issues = append(issues, ValidationIssue{
			Path:    "gateway.port",
			Message: fmt.Sprintf("port must be 1-65535, got %d", cfg.Gateway.Port),
		})
	}
	validBinds := []string{"loopback", "lan", "custom"}
	if cfg.Gateway.Bind != "" && !slices.Contains(validBinds, cfg.Gateway.Bind) {
		issues = append(issues, ValidationIssue{
			Path:    "gateway.bind",
			Message: fmt.Sprintf("must be one of %v, got %q", validBinds, cfg.Gateway.Bind),
		})
	}

	// LLM validation
	if cfg.LLM.BaseURL == "" {
		issues = append(issues, ValidationIssue{
			Path:    "llm.baseUrl",
			Message: "base URL is required",
		})
	}
	if cfg.LLM.Temperature != nil && (*cfg.LLM.Temperature < 0 || *cfg.LLM.Temperature > 2) {
		issues = append(issues, ValidationIssue{
			Path:    "llm.temperature",
			Message: fmt.Sprintf("must be between 0 and 2, got %g", *cfg.LLM.Temperature),
		})
	}
	if cfg.LLM.TimeoutSeconds < 1 {
		issues = append(issues, ValidationIssue{
			Path:    "llm.timeoutSeconds",
			Message: fmt.Sprintf("timeout must be >= 1, got %d", cfg.LLM.TimeoutSeconds),
		})
	}

	// History validation
	if cfg.History.MaxRetries < 0 {
		issues = append(issues, ValidationIssue{
			Path:    "history.maxRetries",
			Message: fmt.Sprintf("must be >= 0, got %d", cfg.History.MaxRetries),
		})
	}

	// Logging validation
	validLogLevels := []string{"silent", "fatal", "error", "warn", "info", "debug", "trace"}
	if cfg.Logging.Level != "" && !slices.Contains(validLogLevels, cfg.Logging.Level) {
		issues = append(issues, ValidationIssue{
			Path:    "logging.level",
			Message: fmt.Sprintf("must be one of %v, got %q", validLogLevels, cfg.Logging.Level),
		})
	}
	validStyles := []string{"pretty", "json"}
	if cfg.Logging.Style != "" && !slices.Contains(validStyles, cfg.Logging.Style) {
		issues = append(issues, ValidationIssue{
			Path:    "logging.style",
			Message: fmt.Sprintf("must be one of %v, got %q", validStyles, cfg.Logging.Style),
		})
	}

	return issues
}
