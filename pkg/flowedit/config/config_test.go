package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestConfig_Accessors verifies typed extraction with fallbacks.
func TestConfig_Accessors(t *testing.T) {
	c := New(map[string]any{
		"name":    "editor",
		"count":   3,
		"ratio":   2.5,
		"enabled": true,
		"tags":    []any{"a", "b"},
	})

	assert.Equal(t, "editor", c.String("name", "x"))
	assert.Equal(t, "x", c.String("missing", "x"))
	assert.Equal(t, "x", c.String("count", "x"), "wrong type falls back")

	assert.Equal(t, 3, c.Int("count", 0))
	assert.Equal(t, 7, c.Int("ratio", 7), "fractional float falls back")
	assert.Equal(t, int64(3), c.Int64("count", 0))

	assert.True(t, c.Bool("enabled", false))
	assert.False(t, c.Bool("missing", false))

	assert.Equal(t, []string{"a", "b"}, c.StringSlice("tags", nil))
	assert.True(t, c.Has("name"))
	assert.False(t, c.Has("missing"))
}

// TestConfig_Duration verifies duration parsing forms. Bare numbers are
// milliseconds.
func TestConfig_Duration(t *testing.T) {
	c := New(map[string]any{
		"str":   "1.5s",
		"int":   250,
		"float": 250.0,
		"bad":   "soon",
	})

	assert.Equal(t, 1500*time.Millisecond, c.Duration("str", 0))
	assert.Equal(t, 250*time.Millisecond, c.Duration("int", 0))
	assert.Equal(t, 250*time.Millisecond, c.Duration("float", 0))
	assert.Equal(t, time.Second, c.Duration("bad", time.Second))
	assert.Equal(t, time.Second, c.Duration("missing", time.Second))
}

// TestConfig_NilMap verifies a nil map yields a usable empty Config.
func TestConfig_NilMap(t *testing.T) {
	c := New(nil)
	assert.Equal(t, "d", c.String("any", "d"))
	assert.NotNil(t, c.Raw())
}

// TestFromFile_YAML verifies YAML loading through to settings.
func TestFromFile_YAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "editor.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
api_base_url: http://flows.internal/api
redis_addr: localhost:6379
notify_debounce: 100
offline_fallback: false
`), 0o644))

	c, err := FromFile(path)
	require.NoError(t, err)

	s := SettingsFrom(c)
	assert.Equal(t, "http://flows.internal/api", s.APIBaseURL)
	assert.Equal(t, "localhost:6379", s.RedisAddr)
	assert.Equal(t, 100*time.Millisecond, s.NotifyDebounce)
	assert.Equal(t, DefaultSaveDebounce, s.SaveDebounce)
	assert.False(t, s.OfflineFallback)
}

// TestFromFile_JSON verifies JSON loading.
func TestFromFile_JSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "editor.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"api_base_url":"http://x/api","save_debounce":"5s"}`), 0o644))

	c, err := FromFile(path)
	require.NoError(t, err)

	s := SettingsFrom(c)
	assert.Equal(t, "http://x/api", s.APIBaseURL)
	assert.Equal(t, 5*time.Second, s.SaveDebounce)
}

// TestFromFile_UnsupportedExtension verifies the error path.
func TestFromFile_UnsupportedExtension(t *testing.T) {
	path := filepath.Join(t.TempDir(), "editor.toml")
	require.NoError(t, os.WriteFile(path, []byte("x = 1"), 0o644))

	_, err := FromFile(path)
	assert.ErrorContains(t, err, "unsupported config file extension")
}

// TestDefaultSettings verifies the zero-config defaults.
func TestDefaultSettings(t *testing.T) {
	s := DefaultSettings()
	assert.Equal(t, DefaultAPIBaseURL, s.APIBaseURL)
	assert.Equal(t, DefaultNotifyDebounce, s.NotifyDebounce)
	assert.True(t, s.OfflineFallback)
	assert.Empty(t, s.RedisAddr)
}
