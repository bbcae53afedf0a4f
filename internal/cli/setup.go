package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"mcsm/internal/config"
	"mcsm/internal/launcher"
	"mcsm/internal/logx"
	"mcsm/internal/paths"
)

var setupName string

func newSetupCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "setup",
		Short: "Generate launch scripts and desktop entries for the server",
		Args:  cobra.NoArgs,
		RunE:  runSetup,
	}
	cmd.Flags().StringVar(&setupName, "name", "", "Display name for the launchers (default: <server name>-<game version>)")
	return cmd
}

func runSetup(cmd *cobra.Command, _ []string) error {
	pp, cfg, err := loadPinnedConfig()
	if err != nil {
		return err
	}

	logger, closer, err := logx.New(pp, "setup")
	if err != nil {
		return err
	}
	defer closer.Close()

	mgr, err := launcher.NewManager(launcher.CmdRunner{})
	if err != nil {
		return err
	}
	mgr.Logf = logger.Printf

	created, err := mgr.Setup(launcherSpec(pp, cfg, setupName))
	if err != nil {
		return err
	}
	for _, path := range created {
		cmd.Printf("  created %s\n", path)
	}
	return nil
}

// loadPinnedConfig loads the directory's config and requires a real game
// version, which the launcher names embed.
func loadPinnedConfig() (paths.ServerPaths, config.Config, error) {
	pp, err := paths.Resolve(serverDir)
	if err != nil {
		return paths.ServerPaths{}, config.Config{}, err
	}
	exists, err := paths.FileExists(pp.ConfigFile)
	if err != nil {
		return paths.ServerPaths{}, config.Config{}, err
	}
	if !exists {
		return paths.ServerPaths{}, config.Config{}, fmt.Errorf("no mcsm.yaml in %s; run \"mcsm install\" first", pp.Root)
	}
	cfg, err := config.Load(pp.ConfigFile)
	if err != nil {
		return paths.ServerPaths{}, config.Config{}, err
	}
	if cfg.GameVersion == "" || cfg.GameVersion == "PLACEHOLDER_GAME_VERSION" {
		return paths.ServerPaths{}, config.Config{}, fmt.Errorf("game_version is not pinned in %s", pp.ConfigFile)
	}
	return pp, cfg, nil
}

func launcherSpec(pp paths.ServerPaths, cfg config.Config, nameFlag string) launcher.Spec {
	name := nameFlag
	if name == "" {
		name = launcher.DefaultName(cfg.Server.Name, cfg.GameVersion)
	}
	return launcher.Spec{
		Name:      name,
		Root:      pp.Root,
		Jar:       cfg.Server.JarOut,
		Xmx:       cfg.Server.JVM.Xmx,
		Xms:       cfg.Server.JVM.Xms,
		ExtraArgs: cfg.Server.JVM.ExtraArgs,
	}
}
