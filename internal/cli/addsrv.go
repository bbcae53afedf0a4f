package cli

import (
	"context"

	"github.com/spf13/cobra"

	"mcsm/internal/launcher"
	"mcsm/internal/logx"
)

var addsrvName string

func newAddsrvCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "addsrv",
		Short: "Register the server to start at login",
		Long: `addsrv registers a login service for the server: a systemd user unit on
Linux, a LaunchAgent on macOS, a Startup entry on Windows.`,
		Args: cobra.NoArgs,
		RunE: runAddsrv,
	}
	cmd.Flags().StringVar(&addsrvName, "name", "", "Service name (default: <server name>-<game version>)")
	return cmd
}

func runAddsrv(cmd *cobra.Command, _ []string) error {
	pp, cfg, err := loadPinnedConfig()
	if err != nil {
		return err
	}

	logger, closer, err := logx.New(pp, "addsrv")
	if err != nil {
		return err
	}
	defer closer.Close()

	mgr, err := launcher.NewManager(launcher.CmdRunner{})
	if err != nil {
		return err
	}
	mgr.Logf = logger.Printf

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	created, err := mgr.AddService(ctx, launcherSpec(pp, cfg, addsrvName))
	if err != nil {
		return err
	}
	for _, path := range created {
		cmd.Printf("  registered %s\n", path)
	}
	return nil
}
