package cmd

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/sambabib/sustainable-electron/pkg/help"
	"github.com/sambabib/sustainable-electron/pkg/logger"
	"github.com/sambabib/sustainable-electron/pkg/lsp"
	"github.com/sambabib/sustainable-electron/pkg/quickfix"
)

// serveCmd runs the language server on stdin/stdout
var serveCmd = &cobra.Command{
	Use:         "serve",
	Short:       "Run as a language server over stdio",
	Long:        "Run a Language Server Protocol server on stdin/stdout. Editors publish open documents to it and receive findings as diagnostics.",
	Annotations: map[string]string{stdioAnnotation: "true"},
	RunE: func(cmd *cobra.Command, args []string) error {
		analyzers, err := newAnalyzers(cfg)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		srv := &lsp.Server{
			Name:        "sustainable",
			Version:     Version,
			Analyzers:   analyzers,
			Actions:     quickfix.NewProvider(),
			Help:        help.NewOpener(cfg.HelpPath, os.Stderr),
			ScanTimeout: cfg.Timeouts.Scan,
		}
		logger.Debugf("LSP: serving on stdio")
		err = srv.Serve(ctx, lsp.Stdio{In: os.Stdin, Out: os.Stdout})
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
