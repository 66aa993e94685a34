package config

import "time"

// Config is the root configuration for the zena graph server.
type Config struct {
	// Graphs maps a serving name to a graph factory reference in
	// "import/path:Func" form. Overridable via ZENA_GRAPHS.
	Graphs map[string]string `yaml:"graphs,omitempty"`

	// Personas maps a persona name to the MCP tool-server port it binds.
	Personas map[string]int `yaml:"personas,omitempty"`

	Cache   CacheConfig   `yaml:"cache,omitempty"`
	LLM     LLMConfig     `yaml:"llm,omitempty"`
	MCP     MCPConfig     `yaml:"mcp,omitempty"`
	Redis   RedisConfig   `yaml:"redis,omitempty"`
	Store   StoreConfig   `yaml:"store,omitempty"`
	Prompt  PromptConfig  `yaml:"prompt,omitempty"`
	History HistoryConfig `yaml:"history,omitempty"`
	Gateway GatewayConfig `yaml:"gateway,omitempty"`
	Logging LoggingConfig `yaml:"logging,omitempty"`
}

// CacheConfig controls the compiled-graph cache.
type CacheConfig struct {
	TTLSeconds  int  `yaml:"ttlSeconds,omitempty"`  // 0 means cached graphs never expire
	ForceReload bool `yaml:"forceReload,omitempty"` // rebuild on every lookup (debugging aid)
}

// TTL returns the configured cache TTL as a duration.
func (c CacheConfig) TTL() time.Duration {
	return time.Duration(c.TTLSeconds) * time.Second
}

// LLMConfig configures the OpenAI-compatible chat completion backend.
type LLMConfig struct {
	BaseURL        string   `yaml:"baseUrl,omitempty"`
	APIKey         string   `yaml:"apiKey,omitempty"`
	ReserveAPIKey  string   `yaml:"reserveApiKey,omitempty"` // second key used by the failover client
	MiniModel      string   `yaml:"miniModel,omitempty"`
	LargeModel     string   `yaml:"largeModel,omitempty"`
	Temperature    *float64 `yaml:"temperature,omitempty"`
	TimeoutSeconds int      `yaml:"timeoutSeconds,omitempty"`
}

// MCPConfig configures how persona tool servers are reached.
type MCPConfig struct {
	Host           string `yaml:"host,omitempty"` // defaults to the docker bridge address
	TimeoutSeconds int    `yaml:"timeoutSeconds,omitempty"`
}

// RedisConfig configures Redis and the masters cache built on it.
type RedisConfig struct {
	URL                   string `yaml:"url,omitempty"` // empty means resolve by environment
	MastersRefreshSeconds int    `yaml:"mastersRefreshSeconds,omitempty"`
	MastersTTLSeconds     int    `yaml:"mastersTtlSeconds,omitempty"`
	LockTTLSeconds        int    `yaml:"lockTtlSeconds,omitempty"`
}

// StoreConfig configures the SQLite dialog store.
type StoreConfig struct {
	Path string `yaml:"path,omitempty"` // empty means <data dir>/zena.db
}

// PromptConfig configures the system prompt source.
type PromptConfig struct {
	DocID           string `yaml:"docId,omitempty"` // Google Doc holding the prompt template
	CredentialsFile string `yaml:"credentialsFile,omitempty"`
	CacheTTLSeconds int    `yaml:"cacheTtlSeconds,omitempty"`
}

// HistoryConfig configures the dialog history exporter.
type HistoryConfig struct {
	URL            string `yaml:"url,omitempty"` // empty disables export
	Token          string `yaml:"token,omitempty"`
	MaxRetries     int    `yaml:"maxRetries,omitempty"`
	TimeoutSeconds int    `yaml:"timeoutSeconds,omitempty"`
}

// GatewayConfig controls the HTTP/WebSocket serving surface.
type GatewayConfig struct {
	Port           int         `yaml:"port,omitempty"`
	Bind           string      `yaml:"bind,omitempty"` // "loopback" | "lan" | "custom"
	CustomBindHost string      `yaml:"customBindHost,omitempty"`
	Auth           GatewayAuth `yaml:"auth,omitempty"`
}

// GatewayAuth configures gateway authentication. An empty token disables auth.
type GatewayAuth struct {
	Token string `yaml:"token,omitempty"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	Level string `yaml:"level,omitempty"` // "silent" | "fatal" | "error" | "warn" | "info" | "debug" | "trace"
	Style string `yaml:"style,omitempty"` // "pretty" | "json"
}
