package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "centyd %s (commit %s, built %s)\n",
				buildInfo.Version, buildInfo.Commit, buildInfo.Date)
		},
	}
}
