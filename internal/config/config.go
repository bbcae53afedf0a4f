package config

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	PlatformPurpur = "purpur"
	PlatformPaper  = "paper"

	defaultUserAgent = "mcsm/1.0 (you@example.com)"
)

// Config captures the declared state for a managed server directory.
type Config struct {
	Schema         int                     `yaml:"schema"`
	GameVersion    string                  `yaml:"game_version"`
	UserAgent      string                  `yaml:"user_agent"`
	Server         ServerConfig            `yaml:"server"`
	DefaultTargets []string                `yaml:"default_targets"`
	Targets        map[string]TargetConfig `yaml:"targets"`
	Network        NetworkConfig           `yaml:"network"`
}

// ServerConfig declares the server platform component.
type ServerConfig struct {
	Type             string    `yaml:"type"`
	Name             string    `yaml:"name"`
	JarOut           string    `yaml:"jar_out"`
	KeepVersionedJar *bool     `yaml:"keep_versioned_jar,omitempty"`
	JVM              JVMConfig `yaml:"jvm"`
}

// JVMConfig feeds the generated launcher scripts.
type JVMConfig struct {
	Xmx       string   `yaml:"xmx"`
	Xms       string   `yaml:"xms"`
	ExtraArgs []string `yaml:"extra_args,omitempty"`
}

// TargetConfig declares one plugin component. Type selects the source
// adapter; the remaining fields are adapter parameters.
type TargetConfig struct {
	Type     string   `yaml:"type"`
	Slug     string   `yaml:"slug,omitempty"`
	Loaders  []string `yaml:"loaders,omitempty"`
	Project  string   `yaml:"project,omitempty"`
	Platform string   `yaml:"platform,omitempty"`
	Channel  string   `yaml:"channel,omitempty"`
	Out      string   `yaml:"out"`
	Enabled  *bool    `yaml:"enabled,omitempty"`
}

// EnabledValue returns the effective enabled flag applying defaults.
func (t TargetConfig) EnabledValue() bool {
	if t.Enabled == nil {
		return true
	}
	return *t.Enabled
}

// NetworkConfig bounds outbound API and download calls.
type NetworkConfig struct {
	TimeoutSeconds         int `yaml:"timeout_s"`
	DownloadTimeoutSeconds int `yaml:"download_timeout_s"`
	RetryAttempts          int `yaml:"retry_attempts"`
	RetryBaseDelayMillis   int `yaml:"retry_base_delay_ms"`
}

// Default returns the baseline configuration.
func Default() Config {
	return Config{
		Schema:    1,
		UserAgent: defaultUserAgent,
		Server: ServerConfig{
			Type:             PlatformPurpur,
			Name:             "server",
			JarOut:           "server.jar",
			KeepVersionedJar: boolPtr(true),
			JVM: JVMConfig{
				Xmx:       "1024M",
				Xms:       "1024M",
				ExtraArgs: []string{"nogui"},
			},
		},
		DefaultTargets: []string{"viaversion", "geyser", "floodgate"},
		Targets: map[string]TargetConfig{
			"viaversion": {
				Type:    "modrinth",
				Slug:    "viaversion",
				Loaders: []string{"paper", "purpur", "spigot", "bukkit"},
				Out:     "plugins/ViaVersion.jar",
			},
			"geyser": {
				Type:     "geyser",
				Project:  "geyser",
				Platform: "spigot",
				Out:      "plugins/Geyser-spigot.jar",
			},
			"floodgate": {
				Type:     "geyser",
				Project:  "floodgate",
				Platform: "spigot",
				Out:      "plugins/Floodgate-spigot.jar",
			},
		},
		Network: NetworkConfig{
			TimeoutSeconds:         30,
			DownloadTimeoutSeconds: 180,
			RetryAttempts:          3,
			RetryBaseDelayMillis:   500,
		},
	}
}

// Load reads the YAML configuration from disk if it exists, otherwise returns
// the default configuration.
func Load(path string) (Config, error) {
	contents, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			cfg := Default()
			cfg.ApplyDefaults()
			return cfg, nil
		}
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(contents, &cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.ApplyDefaults()
	return cfg, nil
}

// ApplyDefaults ensures nested fields fall back to sensible defaults when
// the YAML omits them.
func (c *Config) ApplyDefaults() {
	defaults := Default()

	if c.Schema == 0 {
		c.Schema = defaults.Schema
	}
	if strings.TrimSpace(c.UserAgent) == "" {
		c.UserAgent = defaults.UserAgent
	}
	if c.Server.Name == "" {
		c.Server.Name = defaults.Server.Name
	}
	if c.Server.JarOut == "" {
		c.Server.JarOut = defaults.Server.JarOut
	}
	if c.Server.KeepVersionedJar == nil {
		c.Server.KeepVersionedJar = boolPtr(true)
	}
	if c.Server.JVM.Xmx == "" {
		c.Server.JVM.Xmx = defaults.Server.JVM.Xmx
	}
	if c.Server.JVM.Xms == "" {
		c.Server.JVM.Xms = defaults.Server.JVM.Xms
	}
	if len(c.Server.JVM.ExtraArgs) == 0 {
		c.Server.JVM.ExtraArgs = defaults.Server.JVM.ExtraArgs
	}
	if c.Network.TimeoutSeconds <= 0 {
		c.Network.TimeoutSeconds = defaults.Network.TimeoutSeconds
	}
	if c.Network.DownloadTimeoutSeconds <= 0 {
		c.Network.DownloadTimeoutSeconds = defaults.Network.DownloadTimeoutSeconds
	}
	if c.Network.RetryAttempts <= 0 {
		c.Network.RetryAttempts = defaults.Network.RetryAttempts
	}
	if c.Network.RetryBaseDelayMillis <= 0 {
		c.Network.RetryBaseDelayMillis = defaults.Network.RetryBaseDelayMillis
	}
}

// UserAgentValue returns the effective User-Agent and whether the config
// carried a real (non-placeholder) value.
func (c Config) UserAgentValue() (string, bool) {
	ua := strings.TrimSpace(c.UserAgent)
	if ua == "" || strings.Contains(ua, "PLACEHOLDER") || strings.Contains(ua, "you@example.com") {
		if ua == "" {
			ua = defaultUserAgent
		}
		return ua, false
	}
	return ua, true
}

// KeepVersionedJarValue returns the effective versioned-jar flag.
func (c Config) KeepVersionedJarValue() bool {
	if c.Server.KeepVersionedJar == nil {
		return true
	}
	return *c.Server.KeepVersionedJar
}

// SelectTargets returns the target names to process. Explicit names are
// validated against [targets]; otherwise default_targets filtered by the
// per-target enabled flag.
func (c Config) SelectTargets(names []string) ([]string, error) {
	if len(names) > 0 {
		for _, n := range names {
			if _, ok := c.Targets[n]; !ok {
				return nil, fmt.Errorf("unknown target: %s", n)
			}
		}
		return names, nil
	}

	out := make([]string, 0, len(c.DefaultTargets))
	for _, n := range c.DefaultTargets {
		td, ok := c.Targets[n]
		if !ok || !td.EnabledValue() {
			continue
		}
		out = append(out, n)
	}
	return out, nil
}

// TargetNames returns all declared target names in stable order.
func (c Config) TargetNames() []string {
	names := make([]string, 0, len(c.Targets))
	for n := range c.Targets {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Marshal returns the YAML encoding of the configuration.
func (c Config) Marshal() ([]byte, error) {
	buf, err := yaml.Marshal(&c)
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}
	return buf, nil
}

func boolPtr(v bool) *bool {
	return &v
}
