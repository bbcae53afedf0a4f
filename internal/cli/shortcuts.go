package cli

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"mcsm/internal/launcher"
	"mcsm/internal/paths"
)

func newShortcutsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "shortcuts",
		Short: "Inspect generated launchers and services",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List the launchers and services mcsm generated",
		Args:  cobra.NoArgs,
		RunE:  runShortcutsList,
	})
	return cmd
}

func runShortcutsList(cmd *cobra.Command, _ []string) error {
	pp, err := paths.Resolve(serverDir)
	if err != nil {
		return err
	}

	mgr, err := launcher.NewManager(launcher.CmdRunner{})
	if err != nil {
		return err
	}

	entries, err := mgr.List(pp.Root)
	if err != nil {
		return err
	}

	if outputJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(entries)
	}

	if len(entries) == 0 {
		cmd.Println("No generated launchers or services found.")
		return nil
	}
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "KIND\tPATH")
	for _, e := range entries {
		fmt.Fprintf(w, "%s\t%s\n", e.Kind, e.Path)
	}
	return w.Flush()
}
