package config

import (
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// envVarPattern matches ${VAR_NAME} patterns in strings.
var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// expandEnvVars replaces ${VAR} patterns with environment variable values.
// Unset variables are left unchanged.
func expandEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		varName := match[2 : len(match)-1]
		if val, ok := os.LookupEnv(varName); ok {
			return val
		}
		return match
	})
}

// expandSensitiveFields processes environment variable references in
// credential fields so keys and tokens can be stored as ${ENV_VAR}.
func expandSensitiveFields(cfg *Config) {
	cfg.LLM.APIKey = expandEnvVars(cfg.LLM.APIKey)
	cfg.LLM.ReserveAPIKey = expandEnvVars(cfg.LLM.ReserveAPIKey)
	cfg.History.Token = expandEnvVars(cfg.History.Token)
	cfg.Gateway.Auth.Token = expandEnvVars(cfg.Gateway.Auth.Token)
	cfg.Redis.URL = expandEnvVars(cfg.Redis.URL)
}

// Load reads the config file, applies environment overrides, and returns
// a merged Config. Missing files produce defaults only.
func Load(path string) (Config, error) {
	cfg := Defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			if err := applyEnvOverrides(&cfg); err != nil {
				return cfg, err
			}
			expandSensitiveFields(&cfg)
			return cfg, nil
		}
		return cfg, err
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, &ConfigError{Message: "failed to parse config: " + err.Error()}
	}

	applyDefaults(&cfg)
	if err := applyEnvOverrides(&cfg); err != nil {
		return cfg, err
	}
	expandSensitiveFields(&cfg)
	return cfg, nil
}

// LoadRaw reads the config file into a generic map for path-based access.
func LoadRaw(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]any{}, nil
		}
		return nil, err
	}

	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, &ConfigError{Message: "failed to parse config: " + err.Error()}
	}
	return raw, nil
}

// SaveRaw writes a generic map back to a YAML config file.
func SaveRaw(path string, raw map[string]any) error {
	data, err := yaml.Marshal(raw)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

// applyDefaults fills zero-value fields with sensible defaults. A config
// file that names any graph or persona replaces the stock set entirely.
func applyDefaults(cfg *Config) {
	if len(cfg.Graphs) == 0 {
		cfg.Graphs = map[string]string{}
		for name, ref := range DefaultGraphs {
			cfg.Graphs[name] = ref
		}
	}
	if len(cfg.Personas) == 0 {
		cfg.Personas = map[string]int{}
		for name, port := range DefaultPersonas {
			cfg.Personas[name] = port
		}
	}
	if cfg.LLM.BaseURL == "" {
		cfg.LLM.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.LLM.MiniModel == "" {
		cfg.LLM.MiniModel = "gpt-4o-mini"
	}
	if cfg.LLM.LargeModel == "" {
		cfg.LLM.LargeModel = "gpt-4o"
	}
	if cfg.LLM.TimeoutSeconds == 0 {
		cfg.LLM.TimeoutSeconds = 120
	}
	if cfg.MCP.Host == "" {
		cfg.MCP.Host = "172.17.0.1"
	}
	if cfg.MCP.TimeoutSeconds == 0 {
		cfg.MCP.TimeoutSeconds = 30
	}
	if cfg.Redis.MastersRefreshSeconds == 0 {
		cfg.Redis.MastersRefreshSeconds = 3600
	}
	if cfg.Redis.MastersTTLSeconds == 0 {
		cfg.Redis.MastersTTLSeconds = 7 * 24 * 3600
	}
	if cfg.Redis.LockTTLSeconds == 0 {
		cfg.Redis.LockTTLSeconds = 30
	}
	if cfg.Prompt.CacheTTLSeconds == 0 {
		cfg.Prompt.CacheTTLSeconds = 300
	}
	if cfg.History.MaxRetries == 0 {
		cfg.History.MaxRetries = 3
	}
	if cfg.History.TimeoutSeconds == 0 {
		cfg.History.TimeoutSeconds = 10
	}
	if cfg.Gateway.Port == 0 {
		cfg.Gateway.Port = 2024
	}
	if cfg.Gateway.Bind == "" {
		cfg.Gateway.Bind = "loopback"
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Style == "" {
		cfg.Logging.Style = "pretty"
	}
}

// applyEnvOverrides reads ZENA_* environment variables and overrides config
// values. Persona ports come from ZENA_MCP_PORT_<NAME>. A malformed value
// fails the load: a container that boots with a typo'd mapping must not
// quietly serve the stock defaults.
func applyEnvOverrides(cfg *Config) error {
	if v := os.Getenv("ZENA_GRAPHS"); v != "" {
		graphs, err := ParseGraphs(v)
		if err != nil {
			return &ConfigError{Message: "env var ZENA_GRAPHS: " + err.Error()}
		}
		if _, err := ResolveGraphRefs(graphs); err != nil {
			return &ConfigError{Message: "env var ZENA_GRAPHS: " + err.Error()}
		}
		cfg.Graphs = graphs
	}
	var err error
	if cfg.Gateway.Port, err = EnvInt("ZENA_GATEWAY_PORT", cfg.Gateway.Port); err != nil {
		return err
	}
	if v := os.Getenv("ZENA_GATEWAY_BIND"); v != "" {
		cfg.Gateway.Bind = v
	}
	if v := os.Getenv("ZENA_GATEWAY_TOKEN"); v != "" {
		cfg.Gateway.Auth.Token = v
	}
	if v := os.Getenv("ZENA_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = strings.ToLower(v)
	}
	if v := os.Getenv("ZENA_LOG_STYLE"); v != "" {
		cfg.Logging.Style = strings.ToLower(v)
	}
	if cfg.Cache.TTLSeconds, err = EnvInt("ZENA_GRAPH_CACHE_TTL", cfg.Cache.TTLSeconds); err != nil {
		return err
	}
	cfg.Cache.ForceReload = EnvBool("ZENA_GRAPH_FORCE_RELOAD", cfg.Cache.ForceReload)
	if v := os.Getenv("ZENA_REDIS_URL"); v != "" {
		cfg.Redis.URL = v
	}
	if v := os.Getenv("ZENA_MCP_HOST"); v != "" {
		cfg.MCP.Host = v
	}
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		cfg.LLM.APIKey = v
	}
	if v := os.Getenv("OPENAI_API_KEY_RESERVE"); v != "" {
		cfg.LLM.ReserveAPIKey = v
	}
	if v := os.Getenv("OPENAI_BASE_URL"); v != "" {
		cfg.LLM.BaseURL = v
	}
	if v := os.Getenv("ZENA_HISTORY_URL"); v != "" {
		cfg.History.URL = v
	}
	if v := os.Getenv("ZENA_HISTORY_TOKEN"); v != "" {
		cfg.History.Token = v
	}
	if v := os.Getenv("ZENA_PROMPT_DOC_ID"); v != "" {
		cfg.Prompt.DocID = v
	}
	if v := os.Getenv("ZENA_PROMPT_CREDENTIALS"); v != "" {
		cfg.Prompt.CredentialsFile = v
	}
	if v := os.Getenv("ZENA_DB_PATH"); v != "" {
		cfg.Store.Path = v
	}
	for name := range cfg.Personas {
		key := "ZENA_MCP_PORT_" + strings.ToUpper(name)
		if cfg.Personas[name], err = EnvInt(key, cfg.Personas[name]); err != nil {
			return err
		}
	}
	return nil
}
