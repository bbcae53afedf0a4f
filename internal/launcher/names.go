package launcher

import (
	"strings"
	"unicode"
)

// SafeName reduces a display name to a filesystem- and unit-safe identifier:
// lowercase, runs of anything non-alphanumeric collapsed to single hyphens.
func SafeName(name string) string {
	var b strings.Builder
	lastHyphen := true
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			lastHyphen = false
			continue
		}
		if !lastHyphen {
			b.WriteByte('-')
			lastHyphen = true
		}
	}
	out := strings.TrimSuffix(b.String(), "-")
	if out == "" {
		return "server"
	}
	return out
}

// DefaultName builds the default display name for a server's launchers.
func DefaultName(serverName, gameVersion string) string {
	if serverName == "" {
		serverName = "server"
	}
	if gameVersion == "" {
		return serverName
	}
	return serverName + "-" + gameVersion
}
