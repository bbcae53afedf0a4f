package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	serverDir  string
	outputJSON bool
)

// Execute runs the root cobra command.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mcsm",
		Short: "Minecraft server & plugin manager",
		Long: `mcsm keeps a Minecraft server directory in sync with its declared state:
the server jar (Purpur or Paper) plus plugins from Modrinth and GeyserMC,
resolved, verified and swapped in atomically.`,
	}

	cmd.PersistentFlags().StringVar(&serverDir, "dir", "", "Server directory (default: current directory)")
	cmd.PersistentFlags().BoolVar(&outputJSON, "json", false, "Output machine-readable JSON")

	cmd.AddCommand(newInitCmd())
	cmd.AddCommand(newListCmd())
	cmd.AddCommand(newInstallCmd())
	cmd.AddCommand(newUpdateCmd())
	cmd.AddCommand(newStatusCmd())
	cmd.AddCommand(newSetupCmd())
	cmd.AddCommand(newAddsrvCmd())
	cmd.AddCommand(newRmsrvCmd())
	cmd.AddCommand(newShortcutsCmd())

	return cmd
}
