package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockPackage describes one package served by the mock registry:
// version -> number of dependencies of that version.
type mockPackage struct {
	Latest   string
	Versions map[string]int
}

// mockRegistry simulates the npm registry for testing purposes.
func mockRegistry(t *testing.T, packages map[string]mockPackage) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		packageName := strings.TrimPrefix(r.URL.Path, "/")
		pkg, ok := packages[packageName]
		if !ok {
			t.Logf("Mock registry received request for unexpected package: %s", packageName)
			w.WriteHeader(http.StatusNotFound)
			fmt.Fprintf(w, "Package %s not found in mock registry", packageName)
			return
		}

		versions := map[string]any{}
		for v, n := range pkg.Versions {
			deps := map[string]string{}
			for i := 0; i < n; i++ {
				deps[fmt.Sprintf("dep-%d", i)] = "^1.0.0"
			}
			versions[v] = map[string]any{"dependencies": deps}
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"name":      packageName,
			"dist-tags": map[string]string{"latest": pkg.Latest},
			"versions":  versions,
		})
	}))
}

func TestNpmOracle_CountsLatestVersion(t *testing.T) {
	server := mockRegistry(t, map[string]mockPackage{
		"express": {Latest: "4.21.0", Versions: map[string]int{"4.21.0": 31, "3.0.0": 5}},
	})
	defer server.Close()

	oracle := NewNpmOracle(server.URL)
	n, err := oracle.DependencyCount(context.Background(), "express", "")
	require.NoError(t, err)
	assert.Equal(t, 31, n)

	n, err = oracle.DependencyCount(context.Background(), "express", "latest")
	require.NoError(t, err)
	assert.Equal(t, 31, n, "non-semver ranges fall back to the latest tag")
}

func TestNpmOracle_ResolvesDeclaredRange(t *testing.T) {
	server := mockRegistry(t, map[string]mockPackage{
		"react": {Latest: "18.2.0", Versions: map[string]int{"16.14.0": 4, "17.0.1": 2, "17.0.2": 3, "18.2.0": 1}},
	})
	defer server.Close()

	oracle := NewNpmOracle(server.URL)
	n, err := oracle.DependencyCount(context.Background(), "react", "^17.0.0")
	require.NoError(t, err)
	assert.Equal(t, 3, n, "highest 17.x release is picked")

	n, err = oracle.DependencyCount(context.Background(), "react", "^99.0.0")
	require.NoError(t, err)
	assert.Equal(t, 1, n, "unsatisfiable range falls back to latest")
}

func TestNpmOracle_ScopedPackage(t *testing.T) {
	var gotRawPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotRawPath = r.URL.EscapedPath()
		fmt.Fprint(w, `{"dist-tags":{"latest":"1.0.0"},"versions":{"1.0.0":{"dependencies":{"a":"1"}}}}`)
	}))
	defer server.Close()

	n, err := NewNpmOracle(server.URL).DependencyCount(context.Background(), "@electron/remote", "")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, "/@electron%2fremote", gotRawPath)
}

func TestNpmOracle_NotFound(t *testing.T) {
	server := mockRegistry(t, map[string]mockPackage{})
	defer server.Close()

	_, err := NewNpmOracle(server.URL).DependencyCount(context.Background(), "no-such-package", "")
	assert.ErrorIs(t, err, ErrPackageNotFound)
	assert.Equal(t, "not-found", Kind(err))
}

func TestNpmOracle_RegistryFetchError(t *testing.T) {
	// Mock server that always returns an error
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	_, err := NewNpmOracle(server.URL).DependencyCount(context.Background(), "some-package", "1.0.0")
	assert.ErrorIs(t, err, ErrOracleUnavailable)
	assert.Equal(t, "unavailable", Kind(err))
}

func TestNpmOracle_InvalidDocument(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "<html>not json</html>")
	}))
	defer server.Close()

	_, err := NewNpmOracle(server.URL).DependencyCount(context.Background(), "some-package", "")
	assert.ErrorIs(t, err, ErrOracleUnavailable)
}

func TestNpmOracle_Timeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer server.Close()
	defer close(release)

	oracle := NewNpmOracle(server.URL)
	oracle.Client = DefaultClient(50 * time.Millisecond)
	_, err := oracle.DependencyCount(context.Background(), "slow", "")
	assert.ErrorIs(t, err, ErrOracleTimeout)
	assert.Equal(t, "timeout", Kind(err))
}

func TestNpmOracle_Cancelled(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer server.Close()
	defer close(release)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()
	_, err := NewNpmOracle(server.URL).DependencyCount(ctx, "slow", "")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestResolveVersion(t *testing.T) {
	doc := &packument{}
	doc.DistTags.Latest = "2.0.0"
	doc.Versions = map[string]struct {
		Dependencies map[string]string `json:"dependencies"`
	}{
		"1.0.0":        {},
		"1.4.2":        {},
		"2.0.0":        {},
		"2.1.0-beta.1": {},
		"not-a-semver": {},
	}

	tests := []struct {
		declared string
		want     string
	}{
		{"", "2.0.0"},
		{"^1.0.0", "1.4.2"},
		{"~1.0.0", "1.0.0"},
		{">=1.0.0 <2.0.0", "1.4.2"},
		{"git+https://github.com/user/repo.git", "2.0.0"},
		{"file:../local", "2.0.0"},
	}
	for _, tt := range tests {
		t.Run(tt.declared, func(t *testing.T) {
			assert.Equal(t, tt.want, resolveVersion(doc, tt.declared))
		})
	}
}
