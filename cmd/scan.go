package cmd

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/sourcegraph/conc/pool"
	"github.com/spf13/cobra"

	"github.com/sambabib/sustainable-electron/pkg/analyzer"
	"github.com/sambabib/sustainable-electron/pkg/diagnostics"
	"github.com/sambabib/sustainable-electron/pkg/document"
	"github.com/sambabib/sustainable-electron/pkg/finding"
	"github.com/sambabib/sustainable-electron/pkg/logger"
	"github.com/sambabib/sustainable-electron/pkg/output"
)

var (
	format  string // output format: text, json or sarif
	failOn  string
	workers int
)

var skipDirs = map[string]bool{
	"node_modules": true,
	".git":         true,
}

// scanCmd represents the scan subcommand
var scanCmd = &cobra.Command{
	Use:   "scan [path...]",
	Short: "Scan manifests and scripts once and report findings",
	Long: `Scan package.json manifests and script files under the given paths
(default: the working directory) and report DOM lookups and heavy
dependencies. Files are scanned in parallel.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 {
			args = []string{"."}
		}
		if format == "" {
			format = cfg.Output.Format
		}
		var threshold finding.Severity
		if failOn != "" {
			var err error
			if threshold, err = finding.ParseSeverity(failOn); err != nil {
				return fmt.Errorf("invalid --fail-on: %w", err)
			}
		}

		files, err := collectFiles(args)
		if err != nil {
			return err
		}
		logger.Debugf("Scan: %d files", len(files))

		analyzers, err := newAnalyzers(cfg)
		if err != nil {
			return err
		}

		started := time.Now()
		results := scanFiles(cmd.Context(), files, analyzers)

		root, _ := filepath.Abs(args[0])
		if info, err := os.Stat(root); err == nil && !info.IsDir() {
			root = filepath.Dir(root)
		}
		for i := range results {
			if rel, err := filepath.Rel(root, results[i].Path); err == nil {
				results[i].Path = filepath.ToSlash(rel)
			}
		}

		out := cmd.OutOrStdout()
		switch format {
		case "json":
			data, err := output.GenerateJSONReport(results)
			if err != nil {
				return fmt.Errorf("failed to marshal report to JSON: %w", err)
			}
			fmt.Fprintln(out, string(data))
		case "sarif":
			data, err := output.GenerateSarifReport(results, document.FileURI(root)+"/", Version, started)
			if err != nil {
				return fmt.Errorf("failed to generate SARIF report: %w", err)
			}
			fmt.Fprintln(out, string(data))
		case "text":
			output.PrintTextReport(out, results)
		default:
			return fmt.Errorf("unknown output format %q (expected text, json or sarif)", format)
		}

		if failOn != "" && anyAtLeast(results, threshold) {
			return fmt.Errorf("findings at or above %s severity", threshold)
		}
		return nil
	},
}

// collectFiles expands paths into the manifests and scripts beneath them.
// Files named explicitly are always kept.
func collectFiles(paths []string) ([]string, error) {
	var files []string
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			return nil, fmt.Errorf("error resolving %s: %w", p, err)
		}
		info, err := os.Stat(abs)
		if err != nil {
			return nil, fmt.Errorf("cannot scan %s: %w", p, err)
		}
		if !info.IsDir() {
			files = append(files, abs)
			continue
		}
		err = filepath.WalkDir(abs, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				if path != abs && skipDirs[d.Name()] {
					return filepath.SkipDir
				}
				return nil
			}
			if document.Tracked(path) {
				files = append(files, path)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("error walking %s: %w", p, err)
		}
	}
	return files, nil
}

// scanFiles runs the analyzers over every file, several files at a time.
// Files that cannot be read or whose scan times out are logged and skipped.
func scanFiles(ctx context.Context, files []string, analyzers []analyzer.Analyzer) []output.FileResult {
	if ctx == nil {
		ctx = context.Background()
	}
	n := workers
	if n <= 0 {
		n = runtime.GOMAXPROCS(0)
	}

	p := pool.NewWithResults[output.FileResult]().WithMaxGoroutines(n)
	for _, file := range files {
		p.Go(func() output.FileResult {
			result := output.FileResult{Path: file}
			doc, err := document.FromFile(file, 1)
			if err != nil {
				logger.Errorf("%v", err)
				return result
			}

			scanCtx := ctx
			if cfg.Timeouts.Scan > 0 {
				var cancel context.CancelFunc
				scanCtx, cancel = context.WithTimeout(ctx, cfg.Timeouts.Scan)
				defer cancel()
			}
			findings, err := diagnostics.Scan(scanCtx, doc, analyzers...)
			if err != nil {
				logger.Errorf("Scan of %s did not finish: %v", file, err)
				return result
			}
			result.Findings = findings
			return result
		})
	}
	return p.Wait()
}

func anyAtLeast(results []output.FileResult, s finding.Severity) bool {
	for _, r := range results {
		for _, f := range r.Findings {
			if f.Severity >= s {
				return true
			}
		}
	}
	return false
}

func init() {
	rootCmd.AddCommand(scanCmd)
	scanCmd.Flags().StringVarP(&format, "format", "f", "", "Output format: text, json or sarif (default from config)")
	scanCmd.Flags().StringVar(&failOn, "fail-on", "", "Exit non-zero when a finding has at least this severity: info, warning or error")
	scanCmd.Flags().IntVarP(&workers, "workers", "w", 0, "Number of files scanned in parallel (default: GOMAXPROCS)")
}
