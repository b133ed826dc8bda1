package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempConfig(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestParseFlags_Defaults(t *testing.T) {
	f, err := ParseFlags(nil)
	require.NoError(t, err)
	assert.Equal(t, int64(5), f.MediaMinimumDuration)
	assert.Equal(t, "warn", f.Verbosity)
	assert.Equal(t, "wayland", f.IdleInhibitor)
}

func TestParseFlags_QuietSetsVerbosityOff(t *testing.T) {
	f, err := ParseFlags([]string{"--quiet"})
	require.NoError(t, err)
	assert.Equal(t, "off", f.Verbosity)
}

func TestParseFlags_QuietAndVerbosityConflict(t *testing.T) {
	_, err := ParseFlags([]string{"--quiet", "--verbosity=debug"})
	assert.Error(t, err)
}

func TestLoad_CLIOverridesFile(t *testing.T) {
	path := writeTempConfig(t, `
media_minimum_duration = 10
verbosity = "info"
`)
	f, err := ParseFlags([]string{"--config=" + path, "--media-minimum-duration=20"})
	require.NoError(t, err)

	cfg, err := Load(f)
	require.NoError(t, err)
	assert.Equal(t, 20*time.Second, cfg.MediaMinimumDuration)
	assert.Equal(t, "info", cfg.Verbosity, "unspecified CLI flag falls back to file value")
}

func TestLoad_DefaultsWhenFileAbsent(t *testing.T) {
	dir := t.TempDir()
	f, err := ParseFlags([]string{"--config=" + filepath.Join(dir, "missing.toml")})
	require.NoError(t, err)

	cfg, err := Load(f)
	require.NoError(t, err)
	assert.Equal(t, 5*time.Second, cfg.MediaMinimumDuration)
	assert.Equal(t, "warn", cfg.Verbosity)
}

func TestLoad_ZeroDurationDisablesDebounce(t *testing.T) {
	f, err := ParseFlags([]string{"--media-minimum-duration=0"})
	require.NoError(t, err)
	dir := t.TempDir()
	f.ConfigPath = filepath.Join(dir, "missing.toml")

	cfg, err := Load(f)
	require.NoError(t, err)
	assert.Zero(t, cfg.MediaMinimumDuration)
}

func TestLoad_NegativeDurationErrors(t *testing.T) {
	f, err := ParseFlags([]string{"--media-minimum-duration=-1"})
	require.NoError(t, err)
	dir := t.TempDir()
	f.ConfigPath = filepath.Join(dir, "missing.toml")

	_, err = Load(f)
	assert.Error(t, err)
}

func TestLoad_InvalidBackendErrors(t *testing.T) {
	f, err := ParseFlags([]string{"--idle-inhibitor=xbox"})
	require.NoError(t, err)
	dir := t.TempDir()
	f.ConfigPath = filepath.Join(dir, "missing.toml")

	_, err = Load(f)
	assert.Error(t, err)
}

func TestLoad_CompilesFilterLists(t *testing.T) {
	path := writeTempConfig(t, `
[[sink_whitelist]]
name = "^Built-in"

[[node_blacklist]]
app_name = "^Spotify$"
`)
	f, err := ParseFlags([]string{"--config=" + path})
	require.NoError(t, err)

	cfg, err := Load(f)
	require.NoError(t, err)
	assert.Len(t, cfg.SinkWhitelist, 1)
	assert.Len(t, cfg.NodeBlacklist, 1)
}

func TestLoad_InvalidRegexInFileErrors(t *testing.T) {
	path := writeTempConfig(t, `
[[node_blacklist]]
app_name = "(unclosed"
`)
	f, err := ParseFlags([]string{"--config=" + path})
	require.NoError(t, err)

	_, err = Load(f)
	assert.Error(t, err)
}

func TestDefaultConfigPath_UsesXDGConfigHome(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/tmp/xdgtest")
	path, err := DefaultConfigPath()
	require.NoError(t, err)
	assert.Equal(t, "/tmp/xdgtest/idle-inhibitd/config.toml", path)
}

func TestConfig_Dump_WritesResolvedToml(t *testing.T) {
	dir := t.TempDir()
	cfg := &Config{
		MediaMinimumDuration: 5 * time.Second,
		Verbosity:            "warn",
		Backend:              BackendWayland,
		ConfigPath:           filepath.Join(dir, "config.toml"),
	}

	path, err := cfg.Dump()
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "media_minimum_duration")
}
