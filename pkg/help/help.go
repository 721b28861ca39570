// Package help opens the static sustainability wiki shipped with the tool.
package help

import (
	"context"
	"fmt"
	"io"

	"github.com/cli/go-gh/v2/pkg/browser"
	"go.lsp.dev/uri"
)

// Browser launches a URL in the user's browser.
type Browser interface {
	Browse(url string) error
}

// Opener opens one fixed local help file.
type Opener struct {
	Path    string
	Browser Browser
}

// NewOpener returns an Opener for path using the system browser. Launcher
// output goes to out.
func NewOpener(path string, out io.Writer) *Opener {
	return &Opener{
		Path:    path,
		Browser: browser.New("", out, out),
	}
}

// URL returns the file:// URL of the help resource.
func (o *Opener) URL() string {
	return string(uri.File(o.Path))
}

// Open launches the help resource. Failures are returned to the caller.
func (o *Opener) Open(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := o.Browser.Browse(o.URL()); err != nil {
		return fmt.Errorf("failed to open %s: %w", o.Path, err)
	}
	return nil
}
