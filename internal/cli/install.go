package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/example/nusup/internal/wire"
)

// InstallCmd returns the install command
func InstallCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "install [package-dir]",
		Short: "Install a local title package",
		Long: `Install a title from a local package directory containing
ticket.bin, tmd.bin, certs.bin and one <content id>.app file per
content. If the package is unsigned you are asked whether to import it
with signature checks disabled; checking is re-enabled afterwards either
way.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := args[0]
			if info, err := os.Stat(dir); err != nil || !info.IsDir() {
				return fmt.Errorf("%s is not a package directory", dir)
			}
			return wire.InstallAdapter().Install(cmd.Context(), dir)
		},
	}
}
