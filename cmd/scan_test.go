package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sambabib/sustainable-electron/pkg/output"
)

// mockRegistry serves package documents with the given dependency counts.
func mockRegistry(t *testing.T, counts map[string]int) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		name := strings.TrimPrefix(r.URL.Path, "/")
		n, ok := counts[name]
		if !ok {
			http.NotFound(w, r)
			return
		}
		deps := make(map[string]string, n)
		for i := 0; i < n; i++ {
			deps[fmt.Sprintf("dep-%d", i)] = "^1.0.0"
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"dist-tags": map[string]string{"latest": "1.0.0"},
			"versions": map[string]any{
				"1.0.0": map[string]any{"dependencies": deps},
			},
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func writeProject(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	files := map[string]string{
		"package.json": `{
  "name": "app",
  "dependencies": {
    "heavy": "^1.0.0",
    "light": "1.0.0"
  }
}`,
		"src/renderer.js":                 "const el = document.getElementById('root')\n",
		"src/style.css":                   "#root { color: red }\n",
		"node_modules/heavy/index.js":     "document.getElementById('x')\n",
		"node_modules/heavy/package.json": `{"dependencies": {"light": "1.0.0"}}`,
	}
	for name, content := range files {
		p := filepath.Join(dir, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0700))
		require.NoError(t, os.WriteFile(p, []byte(content), 0600))
	}
	return dir
}

func runScan(t *testing.T, args ...string) (string, error) {
	t.Helper()
	format, failOn, workers, configPath = "", "", 0, ""
	output.Styled = false

	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetArgs(append([]string{"scan"}, args...))
	err := rootCmd.Execute()
	return buf.String(), err
}

func TestScanCommand_JSON(t *testing.T) {
	srv := mockRegistry(t, map[string]int{"heavy": 12, "light": 1})
	t.Setenv("SUSTAINABLE_REGISTRY", srv.URL)
	t.Setenv("SUSTAINABLE_LOG_FILE", "")
	dir := writeProject(t)

	out, err := runScan(t, dir, "--format", "json")
	require.NoError(t, err)

	var report struct {
		Files []struct {
			Path     string `json:"path"`
			Findings []struct {
				Code     string `json:"code"`
				Severity string `json:"severity"`
				Location struct {
					Line        int `json:"line"`
					StartColumn int `json:"start_column"`
					EndColumn   int `json:"end_column"`
				} `json:"location"`
			} `json:"findings"`
		} `json:"files"`
		Total int `json:"total"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	require.Len(t, report.Files, 2)
	assert.Equal(t, 2, report.Total)

	manifest := report.Files[0]
	assert.Equal(t, "package.json", manifest.Path)
	require.Len(t, manifest.Findings, 1)
	assert.Equal(t, "high-dependency-count-detected", manifest.Findings[0].Code)
	assert.Equal(t, "warning", manifest.Findings[0].Severity)
	assert.Equal(t, 3, manifest.Findings[0].Location.Line)
	assert.Equal(t, 5, manifest.Findings[0].Location.StartColumn)
	assert.Equal(t, 10, manifest.Findings[0].Location.EndColumn)

	script := report.Files[1]
	assert.Equal(t, "src/renderer.js", script.Path)
	require.Len(t, script.Findings, 1)
	assert.Equal(t, "elem_mention", script.Findings[0].Code)
}

func TestScanCommand_FailOn(t *testing.T) {
	srv := mockRegistry(t, map[string]int{"heavy": 12, "light": 1})
	t.Setenv("SUSTAINABLE_REGISTRY", srv.URL)
	t.Setenv("SUSTAINABLE_LOG_FILE", "")
	dir := writeProject(t)

	out, err := runScan(t, dir, "--fail-on", "warning")
	assert.ErrorContains(t, err, "warning")
	assert.Contains(t, out, "2 findings in 2 files")

	_, err = runScan(t, dir, "--fail-on", "error")
	assert.NoError(t, err)

	_, err = runScan(t, dir, "--fail-on", "fatal")
	assert.ErrorContains(t, err, "invalid --fail-on")
}

func TestScanCommand_UnknownFormat(t *testing.T) {
	t.Setenv("SUSTAINABLE_LOG_FILE", "")
	dir := t.TempDir()
	_, err := runScan(t, dir, "--format", "xml")
	assert.ErrorContains(t, err, "unknown output format")
}

func TestCollectFiles(t *testing.T) {
	dir := writeProject(t)

	files, err := collectFiles([]string{dir})
	require.NoError(t, err)
	rel := make([]string, 0, len(files))
	for _, f := range files {
		r, err := filepath.Rel(dir, f)
		require.NoError(t, err)
		rel = append(rel, filepath.ToSlash(r))
	}
	assert.ElementsMatch(t, []string{"package.json", "src/renderer.js"}, rel)

	css := filepath.Join(dir, "src", "style.css")
	files, err = collectFiles([]string{css})
	require.NoError(t, err)
	assert.Equal(t, []string{css}, files)

	_, err = collectFiles([]string{filepath.Join(dir, "missing")})
	assert.Error(t, err)
}
