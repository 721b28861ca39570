package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/Masterminds/semver/v3"
	"github.com/sambabib/sustainable-electron/pkg/logger"
)

const defaultNpmRegistryURL = "https://registry.npmjs.org"

// abbreviated metadata is enough: it carries dist-tags and per-version dependencies
const abbreviatedMetadata = "application/vnd.npm.install-v1+json; q=1.0, application/json; q=0.8"

// NpmOracle counts dependencies using npm registry package metadata
type NpmOracle struct {
	RegistryURL string // Allow overriding the registry URL for testing
	Client      *http.Client
}

// NewNpmOracle creates a new NpmOracle
func NewNpmOracle(registryURL string) *NpmOracle {
	return &NpmOracle{RegistryURL: registryURL} // empty RegistryURL means the public registry
}

// packument is the subset of the registry document we read
type packument struct {
	DistTags struct {
		Latest string `json:"latest"`
	} `json:"dist-tags"`
	Versions map[string]struct {
		Dependencies map[string]string `json:"dependencies"`
	} `json:"versions"`
}

// DependencyCount fetches the package document and counts the dependencies of
// the newest published version satisfying declared, or of the latest version
// when declared is not a semver range.
func (o *NpmOracle) DependencyCount(ctx context.Context, name, declared string) (int, error) {
	registryURLToUse := o.RegistryURL
	if registryURLToUse == "" {
		registryURLToUse = defaultNpmRegistryURL
	}
	client := o.Client
	if client == nil {
		client = http.DefaultClient
	}

	url := fmt.Sprintf("%s/%s", strings.TrimRight(registryURLToUse, "/"), escapePackageName(name))
	logger.Debugf("NPM: Fetching from registry: %s", url)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %v", ErrOracleUnavailable, name, err)
	}
	req.Header.Set("Accept", abbreviatedMetadata)

	resp, err := client.Do(req)
	if err != nil {
		if errors.Is(ctx.Err(), context.Canceled) {
			return 0, ctx.Err()
		}
		if isTimeout(err) {
			return 0, fmt.Errorf("%w: %s: %v", ErrOracleTimeout, name, err)
		}
		return 0, fmt.Errorf("%w: %s: %v", ErrOracleUnavailable, name, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return 0, fmt.Errorf("%w: %s", ErrPackageNotFound, name)
	case resp.StatusCode != http.StatusOK:
		return 0, fmt.Errorf("%w: %s: registry returned %s", ErrOracleUnavailable, name, resp.Status)
	}

	var doc packument
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		if isTimeout(err) {
			return 0, fmt.Errorf("%w: %s: %v", ErrOracleTimeout, name, err)
		}
		return 0, fmt.Errorf("%w: %s: invalid package document: %v", ErrOracleUnavailable, name, err)
	}

	version := resolveVersion(&doc, declared)
	meta, ok := doc.Versions[version]
	if !ok {
		return 0, fmt.Errorf("%w: %s: no published version matches %q", ErrPackageNotFound, name, declared)
	}
	logger.Debugf("NPM: %s resolved %q to %s with %d dependencies", name, declared, version, len(meta.Dependencies))
	return len(meta.Dependencies), nil
}

// resolveVersion picks the highest published version satisfying declared,
// falling back to the latest dist-tag.
func resolveVersion(doc *packument, declared string) string {
	constraint, err := semver.NewConstraint(strings.TrimSpace(declared))
	if declared == "" || err != nil {
		return doc.DistTags.Latest
	}

	var best *semver.Version
	bestRaw := ""
	for raw := range doc.Versions {
		v, err := semver.NewVersion(raw)
		if err != nil || !constraint.Check(v) {
			continue
		}
		if best == nil || v.GreaterThan(best) {
			best, bestRaw = v, raw
		}
	}
	if best == nil {
		return doc.DistTags.Latest
	}
	return bestRaw
}

// escapePackageName keeps the scope separator of @scope/name inside one path segment.
func escapePackageName(name string) string {
	if strings.HasPrefix(name, "@") {
		return strings.Replace(name, "/", "%2f", 1)
	}
	return name
}

func isTimeout(err error) bool {
	var netErr net.Error
	return errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout())
}

// DefaultClient returns an http.Client with a conservative overall timeout.
func DefaultClient(timeout time.Duration) *http.Client {
	return &http.Client{Timeout: timeout}
}
