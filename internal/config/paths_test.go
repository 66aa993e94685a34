package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolvePaths(t *testing.T) {
	tmp := t.TempDir()
	t.Setenv("ZENA_HOME", tmp)

	paths, err := ResolvePaths()
	require.NoError(t, err)
	assert.Equal(t, tmp, paths.Base)
	assert.Equal(t, filepath.Join(tmp, "config.yaml"), paths.Config)
	assert.Contains(t, paths.Data, "data")
}

func TestEnsureDirs(t *testing.T) {
	tmp := t.TempDir()
	t.Setenv("ZENA_HOME", tmp)

	paths, err := ResolvePaths()
	require.NoError(t, err)
	require.NoError(t, paths.EnsureDirs())

	for _, d := range []string{paths.Credentials, paths.Logs, paths.Data} {
		info, err := os.Stat(d)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	}
}

func TestDBPath(t *testing.T) {
	tmp := t.TempDir()
	t.Setenv("ZENA_HOME", tmp)

	paths, err := ResolvePaths()
	require.NoError(t, err)

	cfg := Defaults()
	assert.Equal(t, filepath.Join(paths.Data, "zena.db"), paths.DBPath(cfg))

	cfg.Store.Path = "/var/lib/zena/custom.db"
	assert.Equal(t, "/var/lib/zena/custom.db", paths.DBPath(cfg))
}

func TestParseConfigPath(t *testing.T) {
	tests := []struct {
		input   string
		want    []string
		wantErr bool
	}{
		{"gateway.port", []string{"gateway", "port"}, false},
		{"cache.ttlSeconds", []string{"cache", "ttlSeconds"}, false},
		{"", nil, true},
		{"a..b", nil, true},
		{"__proto__.x", nil, true},
		{"x.constructor", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseConfigPath(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestGetSetUnsetValueAtPath(t *testing.T) {
	root := map[string]any{
		"gateway": map[string]any{
			"port": 2024,
		},
	}

	val, ok := GetValueAtPath(root, []string{"gateway", "port"})
	assert.True(t, ok)
	assert.Equal(t, 2024, val)

	_, ok = GetValueAtPath(root, []string{"gateway", "missing"})
	assert.False(t, ok)

	SetValueAtPath(root, []string{"cache", "ttlSeconds"}, 600)
	val, ok = GetValueAtPath(root, []string{"cache", "ttlSeconds"})
	assert.True(t, ok)
	assert.Equal(t, 600, val)

	ok = UnsetValueAtPath(root, []string{"gateway", "port"})
	assert.True(t, ok)
	_, ok = GetValueAtPath(root, []string{"gateway", "port"})
	assert.False(t, ok)

	ok = UnsetValueAtPath(root, []string{"gateway", "nonexistent"})
	assert.False(t, ok)
}
