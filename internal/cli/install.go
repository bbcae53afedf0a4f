package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"mcsm/internal/config"
	"mcsm/internal/engine"
	"mcsm/internal/logx"
	"mcsm/internal/paths"
)

var installNoProgress bool

func newInstallCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "install <purpur|paper> <game-version>",
		Short: "Pin the platform and game version, then install everything",
		Args:  cobra.ExactArgs(2),
		RunE:  runInstall,
	}
	cmd.Flags().BoolVar(&installNoProgress, "no-progress", false, "Disable interactive progress output")
	return cmd
}

func runInstall(cmd *cobra.Command, args []string) error {
	platform, gameVersion := args[0], args[1]
	if platform != config.PlatformPurpur && platform != config.PlatformPaper {
		return fmt.Errorf("unknown platform: %s", platform)
	}

	pp, err := paths.Resolve(serverDir)
	if err != nil {
		return err
	}
	if err := pp.EnsureRoot(); err != nil {
		return err
	}
	if err := pp.EnsureMetaDirs(); err != nil {
		return err
	}

	logger, closer, err := logx.New(pp, "install")
	if err != nil {
		return err
	}
	defer closer.Close()

	exists, err := paths.FileExists(pp.ConfigFile)
	if err != nil {
		return fmt.Errorf("check config: %w", err)
	}
	if exists {
		cfg, err := config.Load(pp.ConfigFile)
		if err != nil {
			return err
		}
		if pinned := cfg.Server.Type; pinned != "" && pinned != platform {
			return fmt.Errorf("%s is pinned to %s; rerun with that platform or edit the config", pp.ConfigFile, pinned)
		}
		if pinned := cfg.GameVersion; pinned != "" && pinned != "PLACEHOLDER_GAME_VERSION" && pinned != gameVersion {
			return fmt.Errorf("%s is pinned to game version %s; use \"mcsm update\" or edit the config", pp.ConfigFile, pinned)
		}
		if err := config.PinInstall(pp.ConfigFile, platform, gameVersion); err != nil {
			return err
		}
		logger.Printf("install: pinned existing config to %s %s", platform, gameVersion)
	} else {
		txt, err := config.DefaultText(platform, gameVersion)
		if err != nil {
			return err
		}
		if err := os.WriteFile(pp.ConfigFile, []byte(txt), 0o644); err != nil {
			return fmt.Errorf("write config: %w", err)
		}
		logger.Printf("install: created %s (%s %s)", pp.ConfigFile, platform, gameVersion)
		cmd.Printf("Created mcsm.yaml pinned to %s %s\n", platform, gameVersion)
	}

	cfg, err := config.Load(pp.ConfigFile)
	if err != nil {
		return err
	}
	if issues := cfg.Validate(); len(issues) > 0 {
		for _, issue := range issues {
			fmt.Fprintf(cmd.ErrOrStderr(), "config: %v\n", issue)
		}
		return fmt.Errorf("invalid configuration (%d issues)", len(issues))
	}
	warnPlaceholderUA(cmd, cfg)

	specs, err := engine.FromConfig(cfg, nil, true)
	if err != nil {
		return err
	}
	return runPipeline(cmd, newOrchestrator(pp, cfg, logger), specs, installNoProgress)
}
