package config

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/ai2b/zena/internal/logging"
)

// Environment variable names recognized by the bootstrap.
const (
	EnvIsDocker = "IS_DOCKER"
	EnvFileVar  = "ZENA_ENV_FILE"
	EnvNameVar  = "ZENA_ENV"
)

// Bootstrap loads environment variables from an env file before the config
// is read. Inside a container (IS_DOCKER truthy) the environment is assumed
// to be fully provisioned and no file is loaded. Otherwise ZENA_ENV_FILE
// names the file explicitly, or ZENA_ENV selects deploy/dev.env or
// deploy/prod.env (dev when unset). Variables already present in the
// environment are never overridden.
func Bootstrap(log *logging.Logger) error {
	if EnvBool(EnvIsDocker, false) {
		log.Debug().Msg("running in docker, skipping env file")
		return nil
	}

	path := os.Getenv(EnvFileVar)
	if path == "" {
		env := os.Getenv(EnvNameVar)
		switch env {
		case "", "dev":
			path = "deploy/dev.env"
		case "prod":
			path = "deploy/prod.env"
		default:
			return &ConfigError{Message: fmt.Sprintf("unknown %s value %q (want dev or prod)", EnvNameVar, env)}
		}
	}

	n, err := loadEnvFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			log.Warn().Str("path", path).Msg("env file not found, using process environment only")
			return nil
		}
		return fmt.Errorf("loading env file %s: %w", path, err)
	}

	log.Info().Str("path", path).Int("loaded", n).Msg("env file loaded")
	return nil
}

// loadEnvFile parses KEY=VALUE lines and sets each variable that is not
// already set. Blank lines and # comments are skipped, a leading "export "
// is tolerated, and surrounding single or double quotes are stripped.
// Returns the number of variables actually set.
func loadEnvFile(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	n := 0
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		line = strings.TrimPrefix(line, "export ")

		key, val, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		val = strings.TrimSpace(val)
		if len(val) >= 2 {
			if (val[0] == '"' && val[len(val)-1] == '"') || (val[0] == '\'' && val[len(val)-1] == '\'') {
				val = val[1 : len(val)-1]
			}
		}
		if key == "" {
			continue
		}
		if _, exists := os.LookupEnv(key); exists {
			continue
		}
		if err := os.Setenv(key, val); err != nil {
			return n, err
		}
		n++
	}
	return n, scanner.Err()
}

// EnvStr returns the value of key, or def when unset or empty.
func EnvStr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// EnvInt returns the integer value of key, or def when unset. A set but
// unparsable value is an error, not a silent fallback.
func EnvInt(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return def, &ConfigError{Message: fmt.Sprintf("env var %s must be an integer, got %q", key, v)}
	}
	return n, nil
}

// EnvFloat returns the float value of key, or def when unset. A set but
// unparsable value is an error.
func EnvFloat(key string, def float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		return def, &ConfigError{Message: fmt.Sprintf("env var %s must be a number, got %q", key, v)}
	}
	return f, nil
}

// EnvBool returns the boolean value of key. Truthy values are 1, true, yes
// and on; falsy values are 0, false, no and off. Anything else, including
// an unset variable, yields def.
func EnvBool(key string, def bool) bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	switch v {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	}
	return def
}
