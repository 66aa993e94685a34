// Package config loads, validates, and defaults the zena configuration.
package config

import "fmt"

// ConfigError represents a configuration error.
type ConfigError struct {
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config: %s", e.Message)
}

// DefaultPersonas is the stock persona to MCP port assignment.
var DefaultPersonas = map[string]int{
	"sofia":     5002,
	"anisa":     5005,
	"annitta":   5006,
	"anastasia": 5007,
	"alena":     5020,
	"valentina": 5021,
	"marina":    5024,
}

// DefaultGraphs maps the stock serving names to their factory references.
var DefaultGraphs = map[string]string{
	"zena_create_graph":   "github.com/ai2b/zena/internal/agent:ConversationGraph",
	"zena_redialog_graph": "github.com/ai2b/zena/internal/agent:RedialogGraph",
}

// Defaults returns a Config with sensible defaults applied.
func Defaults() Config {
	cfg := Config{
		Graphs:   map[string]string{},
		Personas: map[string]int{},
		Cache: CacheConfig{
			TTLSeconds: 0, // cache forever
		},
		LLM: LLMConfig{
			BaseURL:        "https://api.openai.com/v1",
			MiniModel:      "gpt-4o-mini",
			LargeModel:     "gpt-4o",
			TimeoutSeconds: 120,
		},
		MCP: MCPConfig{
			Host:           "172.17.0.1",
			TimeoutSeconds: 30,
		},
		Redis: RedisConfig{
			MastersRefreshSeconds: 3600,
			MastersTTLSeconds:     7 * 24 * 3600,
			LockTTLSeconds:        30,
		},
		Prompt: PromptConfig{
			CacheTTLSeconds: 300,
		},
		History: HistoryConfig{
			MaxRetries:     3,
			TimeoutSeconds: 10,
		},
		Gateway: GatewayConfig{
			Port: 2024,
			Bind: "loopback",
		},
		Logging: LoggingConfig{
			Level: "info",
			Style: "pretty",
		},
	}
	for name, ref := range DefaultGraphs {
		cfg.Graphs[name] = ref
	}
	for name, port := range DefaultPersonas {
		cfg.Personas[name] = port
	}
	return cfg
}
