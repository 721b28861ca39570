package cmd

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.lsp.dev/uri"

	"github.com/sambabib/sustainable-electron/pkg/diagnostics"
	"github.com/sambabib/sustainable-electron/pkg/output"
	"github.com/sambabib/sustainable-electron/pkg/watch"
)

var debounce time.Duration

// watchCmd rescans files as they change on disk
var watchCmd = &cobra.Command{
	Use:   "watch [dir]",
	Short: "Watch a project and report findings as files change",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		root := "."
		if len(args) == 1 {
			root = args[0]
		}
		absRoot, err := filepath.Abs(root)
		if err != nil {
			return err
		}

		analyzers, err := newAnalyzers(cfg)
		if err != nil {
			return err
		}

		sink := output.NewStreamSink(cmd.OutOrStdout(), func(u string) string {
			name := uri.URI(u).Filename()
			if rel, err := filepath.Rel(absRoot, name); err == nil {
				return rel
			}
			return name
		})
		dispatcher := diagnostics.NewDispatcher(sink, cfg.Timeouts.Scan, analyzers...)
		defer dispatcher.Shutdown()

		w, err := watch.New(absRoot, dispatcher, debounce)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(watchCmd)
	watchCmd.Flags().DurationVar(&debounce, "debounce", watch.DefaultDebounce, "Quiet period before a changed file is rescanned")
}
