package cli

import (
	"github.com/spf13/cobra"

	"github.com/example/nusup/internal/wire"
)

// RunsCmd returns the runs command
func RunsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Show past update and install runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, _ := cmd.Flags().GetString("kind")
			limit, _ := cmd.Flags().GetInt("limit")
			return wire.RunsAdapter().List(cmd.Context(), kind, limit)
		},
	}

	cmd.Flags().String("kind", "", "filter by run kind (online or package)")
	cmd.Flags().IntP("limit", "n", 20, "maximum number of runs to show")

	cmd.AddCommand(&cobra.Command{
		Use:   "show [run-id]",
		Short: "Show the per-title events of one run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return wire.RunsAdapter().Show(cmd.Context(), args[0])
		},
	})

	return cmd
}
