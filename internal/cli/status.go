package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"mcsm/internal/manifest"
	"mcsm/internal/paths"
)

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show what is installed according to the manifest",
		Args:  cobra.NoArgs,
		RunE:  runStatus,
	}
}

// componentState is one manifest record checked against the filesystem.
type componentState struct {
	Component   string    `json:"component"`
	Kind        string    `json:"kind"`
	Source      string    `json:"source"`
	Version     string    `json:"version"`
	GameVersion string    `json:"game_version,omitempty"`
	Path        string    `json:"path"`
	InstalledAt time.Time `json:"installed_at"`
	State       string    `json:"state"`
}

func runStatus(cmd *cobra.Command, _ []string) error {
	pp, err := paths.Resolve(serverDir)
	if err != nil {
		return err
	}

	man, err := manifest.Load(pp.ManifestFile)
	if err != nil {
		return err
	}

	states := make([]componentState, 0, len(man.Entries))
	for _, name := range man.Components() {
		rec, _ := man.Get(name)
		states = append(states, componentState{
			Component:   rec.Component,
			Kind:        rec.Kind,
			Source:      rec.Source,
			Version:     rec.VersionID,
			GameVersion: rec.GameVersion,
			Path:        rec.Path,
			InstalledAt: rec.InstalledAt,
			State:       recordState(pp.Root, rec),
		})
	}

	if outputJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(states)
	}

	if len(states) == 0 {
		cmd.Printf("Nothing installed yet in %s (manifest is empty).\n", pp.Root)
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "COMPONENT\tTYPE\tSOURCE\tVERSION\tPATH\tINSTALLED\tSTATE")
	for _, s := range states {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			s.Component, s.Kind, s.Source, s.Version, s.Path,
			s.InstalledAt.Local().Format("2006-01-02 15:04"), s.State)
	}
	return w.Flush()
}

// recordState reports whether the recorded artifact is still the one on
// disk. Demotion happens on the next update run; status only reports.
func recordState(root string, rec manifest.Record) string {
	abs := filepath.Join(root, filepath.FromSlash(rec.Path))
	sum, err := manifest.HashFile(abs)
	switch {
	case os.IsNotExist(err):
		return "missing"
	case err != nil:
		return "unreadable"
	case rec.SHA256 != "" && sum != rec.SHA256:
		return "modified"
	default:
		return "ok"
	}
}
