// Package registry looks up how many dependencies an npm package declares.
package registry

import (
	"context"
	"errors"
)

// Lookup failures. Every error returned by an Oracle wraps exactly one of these.
var (
	ErrOracleUnavailable = errors.New("package registry unavailable")
	ErrOracleTimeout     = errors.New("package registry lookup timed out")
	ErrPackageNotFound   = errors.New("package not found in registry")
)

// Oracle reports the number of runtime dependencies a package declares.
// declared is the version range from the manifest and may be empty.
type Oracle interface {
	DependencyCount(ctx context.Context, name, declared string) (int, error)
}

// OracleFunc adapts a function to the Oracle interface.
type OracleFunc func(ctx context.Context, name, declared string) (int, error)

func (f OracleFunc) DependencyCount(ctx context.Context, name, declared string) (int, error) {
	return f(ctx, name, declared)
}

// Kind names the lookup failure class of err for logs and reports.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrPackageNotFound):
		return "not-found"
	case errors.Is(err, ErrOracleTimeout), errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	default:
		return "unavailable"
	}
}
