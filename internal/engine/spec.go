// Package engine drives a managed server directory from its declared state
// to its installed state: resolve the best release per component, fetch and
// verify the artifact, swap it into place, record it in the manifest.
package engine

import (
	"fmt"

	"mcsm/internal/config"
	"mcsm/internal/source"
)

// ComponentKind distinguishes the server jar from plugin artifacts.
type ComponentKind string

const (
	KindServer ComponentKind = "server"
	KindPlugin ComponentKind = "plugin"
)

// ComponentSpec is the resolved declaration for one component: which source
// to ask, with what parameters, and where the artifact lands relative to the
// install root.
type ComponentSpec struct {
	ID          string
	Kind        ComponentKind
	Source      source.Kind
	GameVersion string
	Params      source.Params
	OutPath     string
}

// FromConfig expands a configuration into component specs: the server
// platform plus the selected plugin targets. Target names are validated;
// target types are not, so a bad source name fails its own component at
// resolution time instead of the whole run.
func FromConfig(cfg config.Config, targets []string, includeServer bool) ([]ComponentSpec, error) {
	names, err := cfg.SelectTargets(targets)
	if err != nil {
		return nil, err
	}

	specs := make([]ComponentSpec, 0, len(names)+1)
	if includeServer {
		specs = append(specs, ComponentSpec{
			ID:          "server",
			Kind:        KindServer,
			Source:      source.Kind(cfg.Server.Type),
			GameVersion: cfg.GameVersion,
			OutPath:     cfg.Server.JarOut,
		})
	}
	for _, name := range names {
		td := cfg.Targets[name]
		if td.Out == "" {
			return nil, fmt.Errorf("target %s declares no output path", name)
		}
		specs = append(specs, ComponentSpec{
			ID:          name,
			Kind:        KindPlugin,
			Source:      source.Kind(td.Type),
			GameVersion: cfg.GameVersion,
			Params: source.Params{
				Slug:     td.Slug,
				Loaders:  td.Loaders,
				Project:  td.Project,
				Platform: td.Platform,
				Channel:  td.Channel,
			},
			OutPath: td.Out,
		})
	}
	return specs, nil
}
