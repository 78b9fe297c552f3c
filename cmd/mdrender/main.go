// Command mdrender renders Markdown with context-aware links and serves a
// directory of Markdown pages with live preview.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ay/mdrender/internal/logger"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var verbose bool

	rootCmd := &cobra.Command{
		Use:           "mdrender",
		Short:         "Context-aware Markdown renderer",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logger.SetVerbose(verbose)
			logger.SetOutput(cmd.ErrOrStderr())
		},
	}
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	rootCmd.AddCommand(newRenderCmd())
	rootCmd.AddCommand(newExcerptCmd())
	rootCmd.AddCommand(newServeCmd())
	return rootCmd
}
