package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/sambabib/sustainable-electron/pkg/config"
	"github.com/sambabib/sustainable-electron/pkg/logger"
)

// Version is set during build using ldflags
var Version = "dev"

var (
	configPath string
	verbose    bool

	cfg   *config.Config
	trace io.Closer
)

// stdioAnnotation marks commands that own stdout, so logs go to stderr.
const stdioAnnotation = "stdio"

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "sustainable",
	Short: "Flags sustainability issues in Electron and JavaScript projects",
	Long: `sustainable points out code that costs more energy than it needs to:
DOM lookups that modern CSS could replace, and npm dependencies that drag in
many dependencies of their own. It runs as a language server, as a file
watcher or as a one-shot scan.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Annotations[stdioAnnotation] == "true" {
			logger.Reset(os.Stderr, os.Stderr)
		}
		logger.SetVerbose(verbose)

		// A missing .env is fine
		_ = godotenv.Load()

		var err error
		if configPath != "" {
			cfg, err = config.LoadConfig(configPath)
		} else {
			cfg, err = config.FindAndLoadConfig(".")
		}
		if err != nil {
			return err
		}

		if cfg.LogFile != "" {
			trace, err = logger.OpenTrace(cfg.LogFile)
			if err != nil {
				logger.Warnf("%v", err)
			}
		}
		logger.Debugf("Config: registry=%s threshold=%d marker=%q", cfg.Registry, cfg.Threshold, cfg.Marker)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if trace != nil {
			trace.Close()
		}
	},
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config file (default: "+config.FileName+" in the working directory or a parent)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
}
