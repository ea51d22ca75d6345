package main

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/Mulet-J/desktopeye/bootstrap"
)

var backendsLoad bool

var backendsCmd = &cobra.Command{
	Use:   "backends",
	Short: "List capabilities and their backends",
	Long: `Lists every capability with its active backend kind, the kinds it can
switch to and the load state. With --load each active backend is loaded
first, which checks binaries, models and scripts are in place.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApp(true)
		if err != nil {
			return err
		}
		return app.RunTask(cmd.Context(), func(ctx context.Context) error {
			errs := map[string]string{}
			if backendsLoad {
				for _, res := range app.Preload(ctx, capabilityNames(app.Capabilities())...) {
					if res.Err != nil {
						errs[res.Capability] = res.Error
					}
				}
			}

			summary := app.Summary(ctx)
			if jsonOutput {
				return printJSON(cmd.OutOrStdout(), summary.Capabilities)
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "CAPABILITY\tACTIVE\tSTATE\tKINDS\tERROR")
			for _, c := range summary.Capabilities {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", c.Capability, c.Kind, c.LoadState, strings.Join(c.Kinds, ","), errs[c.Capability])
			}
			return w.Flush()
		})
	},
}

func capabilityNames(caps []bootstrap.Capability) []string {
	names := make([]string, 0, len(caps))
	for _, c := range caps {
		names = append(names, c.Capability())
	}
	return names
}

func init() {
	backendsCmd.Flags().BoolVar(&backendsLoad, "load", false, "load every active backend first")
	backendsCmd.Flags().BoolVar(&jsonOutput, "json", false, "print as JSON")
}
