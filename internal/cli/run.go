package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"mcsm/internal/config"
	"mcsm/internal/engine"
	"mcsm/internal/paths"
	"mcsm/internal/source"
	"mcsm/internal/tui"
)

// newOrchestrator wires the update pipeline from configuration.
func newOrchestrator(pp paths.ServerPaths, cfg config.Config, logger *log.Logger) *engine.Orchestrator {
	ua, _ := cfg.UserAgentValue()
	client := source.NewClient(ua, time.Duration(cfg.Network.TimeoutSeconds)*time.Second)

	return &engine.Orchestrator{
		Paths:  pp,
		Client: client,
		Fetcher: &engine.Fetcher{
			HTTP:       &http.Client{Timeout: time.Duration(cfg.Network.DownloadTimeoutSeconds) * time.Second},
			UserAgent:  ua,
			ScratchDir: pp.ScratchDir,
			Strategy: engine.RetryStrategy(cfg.Network.RetryAttempts,
				time.Duration(cfg.Network.RetryBaseDelayMillis)*time.Millisecond),
			Logf: logger.Printf,
		},
		Installer: &engine.Installer{
			Paths:            pp,
			KeepVersionedJar: cfg.KeepVersionedJarValue(),
			Logf:             logger.Printf,
		},
		Log:         logger,
		Concurrency: 4,
	}
}

// runPipeline executes the orchestrator over specs and renders the outcomes
// in the detected output mode. Returns an error when any component failed so
// the process exits non-zero on partial failure.
func runPipeline(cmd *cobra.Command, orch *engine.Orchestrator, specs []engine.ComponentSpec, noProgress bool) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	var (
		outcomes []engine.Outcome
		runErr   error
	)

	switch tui.DetectMode(cmd.OutOrStdout(), noProgress, outputJSON) {
	case tui.ModeTUI:
		model := tui.NewUpdateModel("mcsm update", seedRows(specs))
		err := tui.RunWithWork(cmd.OutOrStdout(), model, func(send func(tea.Msg)) {
			orch.Notify = func(ev engine.Event) { send(eventRow(ev)) }
			outcomes, runErr = orch.Run(ctx, specs)
			if runErr != nil {
				send(tui.ErrorMsg{Err: runErr})
				return
			}
			for _, out := range outcomes {
				send(outcomeRow(out))
			}
		})
		if runErr == nil {
			runErr = err
		}
	case tui.ModeJSON:
		outcomes, runErr = orch.Run(ctx, specs)
		if runErr == nil {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if err := enc.Encode(outcomeViews(outcomes)); err != nil {
				return err
			}
		}
	default:
		outcomes, runErr = orch.Run(ctx, specs)
		if runErr == nil {
			final := make([]tui.ComponentRow, len(outcomes))
			for i, out := range outcomes {
				r := outcomeRow(out)
				final[i] = tui.ComponentRow{
					Component: out.Component,
					Kind:      string(out.Kind),
					Status:    r.Status,
					Version:   r.Version,
					Detail:    r.Detail,
				}
			}
			fmt.Fprint(cmd.OutOrStdout(), tui.RenderTable(final, false))
		}
	}

	if runErr != nil {
		return runErr
	}

	failed := 0
	for _, out := range outcomes {
		if out.Status == engine.StatusFailed {
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d components failed", failed, len(outcomes))
	}
	return nil
}

func seedRows(specs []engine.ComponentSpec) []tui.ComponentRow {
	rows := make([]tui.ComponentRow, len(specs))
	for i, s := range specs {
		rows[i] = tui.ComponentRow{Component: s.ID, Kind: string(s.Kind)}
	}
	return rows
}

func eventRow(ev engine.Event) tui.RowMsg {
	msg := tui.RowMsg{Component: ev.Component}
	switch ev.Phase {
	case engine.PhaseResolving:
		msg.Status = "resolving"
	case engine.PhaseDownloading:
		msg.Status = "downloading"
		msg.Version = ev.Detail
	case engine.PhaseInstalling:
		msg.Status = "installing"
		msg.Version = ev.Detail
	case engine.PhaseDone:
		msg.Status = ev.Detail
	}
	return msg
}

func outcomeRow(out engine.Outcome) tui.RowMsg {
	msg := tui.RowMsg{
		Component: out.Component,
		Status:    string(out.Status),
		Version:   out.NewVersion,
	}
	switch out.Status {
	case engine.StatusUpdated:
		msg.Detail = out.OldVersion + " -> " + out.NewVersion
	case engine.StatusFailed:
		msg.Detail = string(out.Failure)
		if out.Err != nil {
			msg.Detail = fmt.Sprintf("%s: %v", out.Failure, out.Err)
		}
	}
	return msg
}

type outcomeView struct {
	Component  string `json:"component"`
	Kind       string `json:"kind"`
	Status     string `json:"status"`
	OldVersion string `json:"old_version,omitempty"`
	NewVersion string `json:"new_version,omitempty"`
	Failure    string `json:"failure,omitempty"`
	Error      string `json:"error,omitempty"`
}

func outcomeViews(outcomes []engine.Outcome) []outcomeView {
	views := make([]outcomeView, len(outcomes))
	for i, out := range outcomes {
		v := outcomeView{
			Component:  out.Component,
			Kind:       string(out.Kind),
			Status:     string(out.Status),
			OldVersion: out.OldVersion,
			NewVersion: out.NewVersion,
			Failure:    string(out.Failure),
		}
		if out.Err != nil {
			v.Error = out.Err.Error()
		}
		views[i] = v
	}
	return views
}

// warnPlaceholderUA nudges the operator to set a real contact User-Agent,
// which the Modrinth API terms ask for.
func warnPlaceholderUA(cmd *cobra.Command, cfg config.Config) {
	if _, ok := cfg.UserAgentValue(); !ok {
		fmt.Fprintln(cmd.ErrOrStderr(), "warning: user_agent in mcsm.yaml is a placeholder; set a real contact before heavy use")
	}
}
