package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, FileName)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, "https://registry.npmjs.org", cfg.Registry)
	assert.Equal(t, 10, cfg.Threshold)
	assert.Equal(t, ".getElementById", cfg.Marker)
	assert.True(t, cfg.ReportUnknown)
	assert.False(t, cfg.ScanDevDependencies)
	assert.Equal(t, "text", cfg.Output.Format)
	assert.Equal(t, 3, cfg.Retry.Attempts)
	assert.NoError(t, cfg.Validate())
}

func TestLoadConfig_MissingFileUsesDefaults(t *testing.T) {
	dir := t.TempDir()
	cfg, err := LoadConfig(filepath.Join(dir, FileName))
	require.NoError(t, err)
	assert.Equal(t, 10, cfg.Threshold)
	assert.Equal(t, filepath.Join(dir, "out", "wiki", "index.html"), cfg.HelpPath)
}

func TestLoadConfig_ParsesYAML(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, `
registry: http://localhost:4873/
threshold: 25
marker: document.getElementById
ignorePackages:
  - react
reportUnknown: false
scanDevDependencies: true
helpPath: docs/help.html
timeouts:
  lookup: 5s
  scan: 1m
retry:
  attempts: 2
  initialDelay: 50ms
cache:
  size: 16
output:
  format: sarif
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:4873", cfg.Registry, "trailing slash is trimmed")
	assert.Equal(t, 25, cfg.Threshold)
	assert.Equal(t, "document.getElementById", cfg.Marker)
	assert.Equal(t, []string{"react"}, cfg.IgnorePackages)
	assert.False(t, cfg.ReportUnknown)
	assert.True(t, cfg.ScanDevDependencies)
	assert.Equal(t, filepath.Join(dir, "docs", "help.html"), cfg.HelpPath)
	assert.Equal(t, 5*time.Second, cfg.Timeouts.Lookup)
	assert.Equal(t, time.Minute, cfg.Timeouts.Scan)
	assert.Equal(t, 2, cfg.Retry.Attempts)
	assert.Equal(t, 50*time.Millisecond, cfg.Retry.InitialDelay)
	assert.Equal(t, 16, cfg.Cache.Size)
	assert.Equal(t, "sarif", cfg.Output.Format)
}

func TestLoadConfig_InvalidYAML(t *testing.T) {
	path := writeConfig(t, t.TempDir(), "threshold: [unclosed")
	_, err := LoadConfig(path)
	assert.Error(t, err)
}

func TestLoadConfig_SchemaViolations(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"zero threshold", "threshold: 0\n"},
		{"unknown format", "output:\n  format: xml\n"},
		{"bad registry", "registry: ftp://example.com\n"},
		{"empty marker", "marker: \"\"\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfig(t, t.TempDir(), tt.content)
			_, err := LoadConfig(path)
			assert.Error(t, err)
		})
	}
}

func TestLoadConfig_EnvironmentOverrides(t *testing.T) {
	t.Setenv("SUSTAINABLE_REGISTRY", "http://mirror.local")
	t.Setenv("SUSTAINABLE_THRESHOLD", "3")
	t.Setenv("SUSTAINABLE_LOG_FILE", "")

	path := writeConfig(t, t.TempDir(), "threshold: 40\n")
	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "http://mirror.local", cfg.Registry)
	assert.Equal(t, 3, cfg.Threshold)
	assert.Equal(t, "", cfg.LogFile)
}

func TestLoadConfig_BadThresholdEnv(t *testing.T) {
	t.Setenv("SUSTAINABLE_THRESHOLD", "lots")
	_, err := LoadConfig(filepath.Join(t.TempDir(), FileName))
	assert.Error(t, err)
}

func TestFindAndLoadConfig_WalksUp(t *testing.T) {
	root := t.TempDir()
	writeConfig(t, root, "threshold: 12\n")
	nested := filepath.Join(root, "packages", "app")
	require.NoError(t, os.MkdirAll(nested, 0755))

	cfg, err := FindAndLoadConfig(nested)
	require.NoError(t, err)
	assert.Equal(t, 12, cfg.Threshold)
}

func TestIsPackageIgnored(t *testing.T) {
	cfg := DefaultConfig()
	cfg.IgnorePackages = []string{"electron", "@types/node"}
	assert.True(t, cfg.IsPackageIgnored("electron"))
	assert.True(t, cfg.IsPackageIgnored("@types/node"))
	assert.False(t, cfg.IsPackageIgnored("react"))
}
