package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"mcsm/internal/config"
	"mcsm/internal/logx"
	"mcsm/internal/paths"
)

var initForce bool

func newInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init <purpur|paper>",
		Short: "Write a commented mcsm.yaml into the server directory",
		Args:  cobra.ExactArgs(1),
		RunE:  runInit,
	}
	cmd.Flags().BoolVar(&initForce, "force", false, "Overwrite an existing mcsm.yaml")
	return cmd
}

func runInit(cmd *cobra.Command, args []string) error {
	platform := args[0]
	txt, err := config.Template(platform)
	if err != nil {
		return err
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

	logger, closer, err := logx.New(pp, "init")
	if err != nil {
		return err
	}
	defer closer.Close()

	exists, err := paths.FileExists(pp.ConfigFile)
	if err != nil {
		return fmt.Errorf("check config: %w", err)
	}
	if exists && !initForce {
		return fmt.Errorf("%s already exists (use --force to overwrite)", pp.ConfigFile)
	}

	if err := os.WriteFile(pp.ConfigFile, []byte(txt), 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	logger.Printf("init: wrote %s (platform=%s)", pp.ConfigFile, platform)

	cmd.Printf("Initialized server directory at %s\n", pp.Root)
	cmd.Printf("  created mcsm.yaml (%s)\n", platform)
	cmd.Println("Edit game_version and user_agent, then run: mcsm update")
	return nil
}
