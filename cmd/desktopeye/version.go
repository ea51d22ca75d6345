package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Mulet-J/desktopeye/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print build information",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		if jsonOutput {
			_ = printJSON(cmd.OutOrStdout(), version.Get())
			return
		}
		fmt.Fprintln(cmd.OutOrStdout(), "desktopeye", version.Get())
	},
}

func init() {
	versionCmd.Flags().BoolVar(&jsonOutput, "json", false, "print as JSON")
}
