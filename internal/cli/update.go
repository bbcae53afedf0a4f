package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"mcsm/internal/config"
	"mcsm/internal/engine"
	"mcsm/internal/logx"
	"mcsm/internal/paths"
)

var (
	updateNoProgress bool
	updateDryRun     bool
	updateNoServer   bool
)

func newUpdateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "update [target ...]",
		Short: "Bring the server jar and plugins up to date",
		Long: `update resolves every declared component against its source, downloads what
is outdated or missing, verifies checksums and swaps artifacts into place.
With explicit target names only those plugins are processed.`,
		RunE: runUpdate,
	}
	cmd.Flags().BoolVar(&updateNoProgress, "no-progress", false, "Disable interactive progress output")
	cmd.Flags().BoolVar(&updateDryRun, "dry-run", false, "Resolve and report without downloading or installing")
	cmd.Flags().BoolVar(&updateNoServer, "no-server", false, "Skip the server jar, update plugins only")
	return cmd
}

func runUpdate(cmd *cobra.Command, args []string) error {
	pp, err := paths.Resolve(serverDir)
	if err != nil {
		return err
	}
	exists, err := paths.FileExists(pp.ConfigFile)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("no mcsm.yaml in %s; run \"mcsm init\" or \"mcsm install\" first", pp.Root)
	}
	if err := pp.EnsureMetaDirs(); err != nil {
		return err
	}

	logger, closer, err := logx.New(pp, "update")
	if err != nil {
		return err
	}
	defer closer.Close()

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

	includeServer := !updateNoServer && len(args) == 0
	specs, err := engine.FromConfig(cfg, args, includeServer)
	if err != nil {
		return err
	}
	if len(specs) == 0 {
		cmd.Println("Nothing to update: no enabled targets.")
		return nil
	}

	orch := newOrchestrator(pp, cfg, logger)
	orch.DryRun = updateDryRun
	logger.Printf("update: %d components (dry_run=%v)", len(specs), updateDryRun)
	return runPipeline(cmd, orch, specs, updateNoProgress)
}
