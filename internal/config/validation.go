package config

import (
	"fmt"
	"strings"
)

// Validate checks the declared state for problems that would make an update
// run meaningless. It returns every issue found rather than stopping at the
// first one.
func (c Config) Validate() []error {
	var issues []error

	switch c.Server.Type {
	case PlatformPurpur, PlatformPaper:
	case "":
		issues = append(issues, fmt.Errorf("server.type is required (purpur or paper)"))
	default:
		issues = append(issues, fmt.Errorf("unsupported server.type %q", c.Server.Type))
	}

	if v := strings.TrimSpace(c.GameVersion); v == "" || strings.HasPrefix(v, "PLACEHOLDER") {
		issues = append(issues, fmt.Errorf("game_version is not set; run: mcsm install <platform> <game-version>"))
	}

	for _, name := range c.TargetNames() {
		td := c.Targets[name]
		if strings.TrimSpace(td.Out) == "" {
			issues = append(issues, fmt.Errorf("target %q missing out path", name))
		}
		switch td.Type {
		case "modrinth":
			if strings.TrimSpace(td.Slug) == "" {
				issues = append(issues, fmt.Errorf("target %q: modrinth requires a slug", name))
			}
			if len(td.Loaders) == 0 {
				issues = append(issues, fmt.Errorf("target %q: modrinth requires loaders", name))
			}
		case "geyser":
			if td.Project != "geyser" && td.Project != "floodgate" {
				issues = append(issues, fmt.Errorf("target %q: geyser project must be geyser or floodgate", name))
			}
			if strings.TrimSpace(td.Platform) == "" {
				issues = append(issues, fmt.Errorf("target %q: geyser requires a platform", name))
			}
		case "":
			issues = append(issues, fmt.Errorf("target %q missing type", name))
		default:
			// Unknown adapter names are component-scoped failures at
			// resolution time, not config-load failures.
		}
	}

	return issues
}
