package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"
)

// Template returns a commented mcsm.yaml starting point for the platform.
// Placeholders are patched in place by install so user comments survive.
func Template(platform string) (string, error) {
	if platform != PlatformPurpur && platform != PlatformPaper {
		return "", fmt.Errorf("unknown platform for template: %s", platform)
	}

	return `# =========================================================
# mcsm.yaml - Minecraft server & plugin manager config
#
# mcsm always installs into the directory that contains this
# file. Run mcsm inside your server directory (or pass --dir).
#
# install rewrites game_version in place, preserving comments.
# =========================================================

schema: 1
game_version: "PLACEHOLDER_GAME_VERSION"
user_agent: "PLACEHOLDER_USER_AGENT"

server:
  type: "` + platform + `"
  name: "PLACEHOLDER_SERVERNAME"
  jar_out: "server.jar"
  keep_versioned_jar: true
  jvm:
    xmx: "1024M"
    xms: "1024M"
    # extra_args are appended after "-jar <server.jar>"
    extra_args: ["nogui"]

default_targets: [viaversion, geyser, floodgate]

targets:
  viaversion:
    type: modrinth
    slug: viaversion
    loaders: [paper, purpur, spigot, bukkit]
    out: plugins/ViaVersion.jar
  geyser:
    type: geyser
    project: geyser
    platform: spigot
    out: plugins/Geyser-spigot.jar
  floodgate:
    type: geyser
    project: floodgate
    platform: spigot
    out: plugins/Floodgate-spigot.jar

# ---------------------------------------------------------
# Other plugin examples (uncomment to enable, then add the
# name to default_targets)
# ---------------------------------------------------------
#  discordsrv:
#    type: modrinth
#    slug: discordsrv
#    loaders: [paper, purpur, spigot, bukkit]
#    out: plugins/DiscordSRV.jar
#  voicechat:
#    type: modrinth
#    slug: simple-voice-chat
#    loaders: [paper, purpur, spigot, bukkit]
#    out: plugins/voicechat.jar

network:
  timeout_s: 30
  download_timeout_s: 180
  retry_attempts: 3
  retry_base_delay_ms: 500
`, nil
}

// DefaultText returns the template with the game version already pinned.
func DefaultText(platform, gameVersion string) (string, error) {
	txt, err := Template(platform)
	if err != nil {
		return "", err
	}
	txt = gameVersionLine.ReplaceAllString(txt, fmt.Sprintf(`game_version: "%s"`, gameVersion))
	return txt, nil
}

var gameVersionLine = regexp.MustCompile(`(?m)^game_version:.*$`)

// PinInstall patches an existing config file's platform and game version as
// a text edit so comments and layout are preserved.
func PinInstall(path, platform, gameVersion string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	txt := string(raw)

	pinned := fmt.Sprintf(`game_version: "%s"`, gameVersion)
	if gameVersionLine.MatchString(txt) {
		txt = gameVersionLine.ReplaceAllString(txt, pinned)
	} else {
		txt = pinned + "\n" + txt
	}

	txt = patchServerType(txt, platform)

	if err := os.WriteFile(path, []byte(txt), 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// patchServerType rewrites the type line inside the server block. Scanning
// line by line keeps every comment intact.
func patchServerType(txt, platform string) string {
	lines := strings.Split(txt, "\n")
	inServer := false
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(line, "server:"):
			inServer = true
		case inServer && len(line) > 0 && line[0] != ' ' && line[0] != '\t':
			inServer = false
		case inServer && strings.HasPrefix(trimmed, "type:"):
			indent := line[:len(line)-len(strings.TrimLeft(line, " \t"))]
			lines[i] = fmt.Sprintf(`%stype: "%s"`, indent, platform)
			return strings.Join(lines, "\n")
		}
	}
	return txt
}
