package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ai2b/zena/internal/logging"
)

func testLogger() *logging.Logger {
	return logging.New(nil, "silent")
}

func TestEnvBool(t *testing.T) {
	tests := []struct {
		value string
		def   bool
		want  bool
	}{
		{"1", false, true},
		{"true", false, true},
		{"TRUE", false, true},
		{"yes", false, true},
		{"on", false, true},
		{"0", true, false},
		{"false", true, false},
		{"no", true, false},
		{"off", true, false},
		{"", true, true},
		{"", false, false},
		{"maybe", false, false},
		{"maybe", true, true},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			t.Setenv("ZENA_TEST_BOOL", tt.value)
			assert.Equal(t, tt.want, EnvBool("ZENA_TEST_BOOL", tt.def))
		})
	}
}

func TestEnvInt(t *testing.T) {
	t.Setenv("ZENA_TEST_INT", "42")
	n, err := EnvInt("ZENA_TEST_INT", 7)
	require.NoError(t, err)
	assert.Equal(t, 42, n)

	t.Setenv("ZENA_TEST_INT", " 43 ")
	n, err = EnvInt("ZENA_TEST_INT", 7)
	require.NoError(t, err)
	assert.Equal(t, 43, n)

	t.Setenv("ZENA_TEST_INT", "")
	n, err = EnvInt("ZENA_TEST_INT", 7)
	require.NoError(t, err)
	assert.Equal(t, 7, n)

	// A set but garbled value is a configuration mistake, not a default.
	t.Setenv("ZENA_TEST_INT", "not-a-number")
	_, err = EnvInt("ZENA_TEST_INT", 7)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ZENA_TEST_INT")
	assert.Contains(t, err.Error(), "must be an integer")
}

func TestEnvFloat(t *testing.T) {
	t.Setenv("ZENA_TEST_FLOAT", "0.7")
	f, err := EnvFloat("ZENA_TEST_FLOAT", 1.0)
	require.NoError(t, err)
	assert.Equal(t, 0.7, f)

	t.Setenv("ZENA_TEST_FLOAT", "")
	f, err = EnvFloat("ZENA_TEST_FLOAT", 1.0)
	require.NoError(t, err)
	assert.Equal(t, 1.0, f)

	t.Setenv("ZENA_TEST_FLOAT", "bogus")
	_, err = EnvFloat("ZENA_TEST_FLOAT", 1.0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must be a number")
}

func TestEnvStr(t *testing.T) {
	t.Setenv("ZENA_TEST_STR", "value")
	assert.Equal(t, "value", EnvStr("ZENA_TEST_STR", "def"))

	t.Setenv("ZENA_TEST_STR", "")
	assert.Equal(t, "def", EnvStr("ZENA_TEST_STR", "def"))
}

func TestLoadEnvFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.env")

	content := `
# comment line
PLAIN=value
export EXPORTED=exported-value
QUOTED="quoted value"
SINGLE='single value'
EXISTING=from-file

not a kv line
=novalue
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	t.Setenv("EXISTING", "from-env")
	for _, key := range []string{"PLAIN", "EXPORTED", "QUOTED", "SINGLE"} {
		os.Unsetenv(key)
		t.Cleanup(func() { os.Unsetenv(key) })
	}

	n, err := loadEnvFile(path)
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	assert.Equal(t, "value", os.Getenv("PLAIN"))
	assert.Equal(t, "exported-value", os.Getenv("EXPORTED"))
	assert.Equal(t, "quoted value", os.Getenv("QUOTED"))
	assert.Equal(t, "single value", os.Getenv("SINGLE"))
	// Existing environment always wins
	assert.Equal(t, "from-env", os.Getenv("EXISTING"))
}

func TestBootstrapSkipsInDocker(t *testing.T) {
	t.Setenv(EnvIsDocker, "1")
	t.Setenv(EnvFileVar, "/nonexistent/should-not-be-opened.env")

	require.NoError(t, Bootstrap(testLogger()))
}

func TestBootstrapExplicitFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "custom.env")
	require.NoError(t, os.WriteFile(path, []byte("ZENA_BOOT_TEST=loaded\n"), 0o600))

	t.Setenv(EnvIsDocker, "0")
	t.Setenv(EnvFileVar, path)
	os.Unsetenv("ZENA_BOOT_TEST")
	t.Cleanup(func() { os.Unsetenv("ZENA_BOOT_TEST") })

	require.NoError(t, Bootstrap(testLogger()))
	assert.Equal(t, "loaded", os.Getenv("ZENA_BOOT_TEST"))
}

func TestBootstrapMissingFileIsNotFatal(t *testing.T) {
	t.Setenv(EnvIsDocker, "0")
	t.Setenv(EnvFileVar, "/nonexistent/missing.env")

	require.NoError(t, Bootstrap(testLogger()))
}

func TestBootstrapUnknownEnvName(t *testing.T) {
	t.Setenv(EnvIsDocker, "0")
	t.Setenv(EnvFileVar, "")
	t.Setenv(EnvNameVar, "staging")

	err := Bootstrap(testLogger())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "staging")
}
