package cmd

import (
	"github.com/spf13/cobra"

	"github.com/sambabib/sustainable-electron/pkg/help"
	"github.com/sambabib/sustainable-electron/pkg/logger"
)

// helpOpenCmd opens the bundled sustainability wiki
var helpOpenCmd = &cobra.Command{
	Use:     "help-open",
	Aliases: []string{"open-wiki"},
	Short:   "Open the sustainability wiki in a browser",
	RunE: func(cmd *cobra.Command, args []string) error {
		opener := help.NewOpener(cfg.HelpPath, cmd.ErrOrStderr())
		logger.Debugf("Opening %s", opener.URL())
		return opener.Open(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(helpOpenCmd)
}
