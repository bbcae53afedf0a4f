package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"mcsm/internal/config"
	"mcsm/internal/engine"
	"mcsm/internal/paths"
	"mcsm/internal/source"
	"mcsm/internal/tui"
)

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list <purpur|paper> [game-version]",
		Short: "Show the latest available versions without installing",
		Args:  cobra.RangeArgs(1, 2),
		RunE:  runList,
	}
}

func runList(cmd *cobra.Command, args []string) error {
	platform := args[0]
	if platform != config.PlatformPurpur && platform != config.PlatformPaper {
		return fmt.Errorf("unknown platform: %s", platform)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	pp, err := paths.Resolve(serverDir)
	if err != nil {
		return err
	}
	cfg, err := config.Load(pp.ConfigFile)
	if err != nil {
		return err
	}
	cfg.Server.Type = platform

	ua, _ := cfg.UserAgentValue()
	client := source.NewClient(ua, time.Duration(cfg.Network.TimeoutSeconds)*time.Second)

	status := tui.NewStatusWriter(cmd.ErrOrStderr())
	defer status.Stop()

	gameVersion := cfg.GameVersion
	if len(args) > 1 {
		gameVersion = args[1]
	}
	if gameVersion == "" || gameVersion == "PLACEHOLDER_GAME_VERSION" {
		status.Update(fmt.Sprintf("Querying latest %s game version...", platform))
		gameVersion, err = latestGameVersion(ctx, source.Kind(platform), client)
		if err != nil {
			return fmt.Errorf("determine latest game version: %w", err)
		}
	}
	cfg.GameVersion = gameVersion

	specs, err := engine.FromConfig(cfg, nil, true)
	if err != nil {
		return err
	}

	resolver := &engine.Resolver{Client: client}
	type listing struct {
		Component string `json:"component"`
		Kind      string `json:"kind"`
		Source    string `json:"source"`
		Version   string `json:"version,omitempty"`
		Error     string `json:"error,omitempty"`
	}
	rows := make([]listing, 0, len(specs))
	for _, spec := range specs {
		status.Update(fmt.Sprintf("Resolving %s...", spec.ID))
		row := listing{Component: spec.ID, Kind: string(spec.Kind), Source: string(spec.Source)}
		res, err := resolver.Resolve(ctx, spec, nil)
		if err != nil {
			row.Error = err.Error()
		} else {
			row.Version = res.Best.VersionID
		}
		rows = append(rows, row)
	}
	status.Stop()

	if outputJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(struct {
			GameVersion string    `json:"game_version"`
			Components  []listing `json:"components"`
		}{gameVersion, rows})
	}

	cmd.Printf("Latest versions for %s %s:\n", platform, gameVersion)
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "COMPONENT\tTYPE\tSOURCE\tVERSION\tERROR")
	for _, r := range rows {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", r.Component, r.Kind, r.Source, r.Version, r.Error)
	}
	return w.Flush()
}

// latestGameVersion asks the server platform which Minecraft version it
// currently publishes builds for.
func latestGameVersion(ctx context.Context, kind source.Kind, client *source.Client) (string, error) {
	adapter, err := source.ForKind(kind, client)
	if err != nil {
		return "", err
	}
	lister, ok := adapter.(source.GameVersionLister)
	if !ok {
		return "", fmt.Errorf("%s cannot report a latest game version", kind)
	}
	return lister.LatestGameVersion(ctx)
}
