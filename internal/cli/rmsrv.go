package cli

import (
	"context"

	"github.com/spf13/cobra"

	"mcsm/internal/launcher"
	"mcsm/internal/logx"
)

var rmsrvName string

func newRmsrvCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rmsrv",
		Short: "Unregister the server's login service",
		Args:  cobra.NoArgs,
		RunE:  runRmsrv,
	}
	cmd.Flags().StringVar(&rmsrvName, "name", "", "Service name (default: <server name>-<game version>)")
	return cmd
}

func runRmsrv(cmd *cobra.Command, _ []string) error {
	pp, cfg, err := loadPinnedConfig()
	if err != nil {
		return err
	}

	logger, closer, err := logx.New(pp, "rmsrv")
	if err != nil {
		return err
	}
	defer closer.Close()

	mgr, err := launcher.NewManager(launcher.CmdRunner{})
	if err != nil {
		return err
	}
	mgr.Logf = logger.Printf

	name := rmsrvName
	if name == "" {
		name = launcher.DefaultName(cfg.Server.Name, cfg.GameVersion)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	removed, err := mgr.RemoveService(ctx, name)
	if err != nil {
		return err
	}
	if len(removed) == 0 {
		cmd.Printf("No service registered as %q.\n", name)
		return nil
	}
	for _, path := range removed {
		cmd.Printf("  removed %s\n", path)
	}
	return nil
}
