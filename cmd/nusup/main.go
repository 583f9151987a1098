package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/example/nusup/internal/cli"
	"github.com/example/nusup/internal/db"
	"github.com/example/nusup/internal/version"
)

func main() {
	rootCmd := &cobra.Command{
		Use:     "nusup",
		Short:   "nusup - title install and update engine",
		Version: version.String(),
		Long: `nusup installs and updates cryptographically ticketed titles against a
local secure store: online from the update catalog, or from local
package directories.`,
	}

	// Add subcommands
	rootCmd.AddCommand(cli.UpdateCmd())
	rootCmd.AddCommand(cli.InstallCmd())
	rootCmd.AddCommand(cli.TitlesCmd())
	rootCmd.AddCommand(cli.RunsCmd())

	err := rootCmd.Execute()
	db.Close()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
