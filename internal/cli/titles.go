package cli

import (
	"github.com/spf13/cobra"

	"github.com/example/nusup/internal/wire"
)

// TitlesCmd returns the titles command
func TitlesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "titles",
		Short: "List installed titles",
		RunE: func(cmd *cobra.Command, args []string) error {
			return wire.TitlesAdapter().List()
		},
	}
}
