// Package cli defines the cobra command tree. Commands stay thin: flag
// parsing here, rendering in the CLI adapters, engine logic in the app
// services.
package cli

import (
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/example/nusup/internal/wire"
)

// UpdateCmd returns the update command
func UpdateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "update",
		Short: "Install missing system updates from the update server",
		Long: `Fetch the update catalog and install every listed title that is
missing or outdated, resolving system-title dependencies first. Titles
that are already current are skipped. Interrupting with Ctrl-C stops
cleanly at the next title boundary; titles already committed stay
installed.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			region, _ := cmd.Flags().GetString("region")
			if region == "" {
				region = wire.Config().DefaultRegion
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			return wire.UpdateAdapter().Run(ctx, region)
		},
	}

	cmd.Flags().StringP("region", "r", "", "catalog region (JPN, USA, EUR or KOR; default: installed firmware's region)")

	return cmd
}
