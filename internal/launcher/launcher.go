// Package launcher generates desktop launchers and login services for a
// managed server: shell scripts and .desktop entries on Linux, Start Menu
// batch files on Windows, .command scripts and LaunchAgents on macOS.
package launcher

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
)

const generatedMarker = "Generated by mcsm"

// Manager writes launcher and service files for the current OS. The OS and
// the user directories are fields so tests can exercise every backend on
// one host.
type Manager struct {
	Runner  Runner
	GOOS    string
	HomeDir string
	// AppData is %APPDATA% on Windows; ignored elsewhere.
	AppData string
	Logf    func(format string, args ...any)
}

// NewManager builds a Manager for the host.
func NewManager(runner Runner) (*Manager, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("resolve home directory: %w", err)
	}
	return &Manager{
		Runner:  runner,
		GOOS:    runtime.GOOS,
		HomeDir: home,
		AppData: os.Getenv("APPDATA"),
	}, nil
}

func (m *Manager) logf(format string, args ...any) {
	if m.Logf != nil {
		m.Logf(format, args...)
	}
}

// Setup writes the launch scripts and desktop entries for the spec and
// returns the created paths.
func (m *Manager) Setup(s Spec) ([]string, error) {
	switch m.GOOS {
	case "linux":
		script, err := m.writeRendered(renderShell, s, filepath.Join(s.Root, s.ID()+".sh"), 0o755)
		if err != nil {
			return nil, err
		}
		desktop, err := m.writeRendered(renderDesktop, s, filepath.Join(m.HomeDir, ".local", "share", "applications", s.ID()+".desktop"), 0o644)
		if err != nil {
			return []string{script}, err
		}
		return []string{script, desktop}, nil
	case "darwin":
		script, err := m.writeRendered(renderShell, s, filepath.Join(s.Root, s.ID()+".sh"), 0o755)
		if err != nil {
			return nil, err
		}
		command, err := m.writeRendered(renderCommand, s, filepath.Join(s.Root, s.ID()+".command"), 0o755)
		if err != nil {
			return []string{script}, err
		}
		return []string{script, command}, nil
	case "windows":
		bat, err := m.writeRendered(renderBat, s, filepath.Join(m.startMenuDir(), s.Name+".bat"), 0o644)
		if err != nil {
			return nil, err
		}
		return []string{bat}, nil
	default:
		return nil, fmt.Errorf("no launcher backend for %s", m.GOOS)
	}
}

// AddService registers the server to start at login and returns the created
// paths.
func (m *Manager) AddService(ctx context.Context, s Spec) ([]string, error) {
	switch m.GOOS {
	case "linux":
		unit := filepath.Join(m.systemdUserDir(), m.unitName(s.ID()))
		path, err := m.writeRendered(renderSystemd, s, unit, 0o644)
		if err != nil {
			return nil, err
		}
		if err := m.systemctl(ctx, "daemon-reload"); err != nil {
			return []string{path}, err
		}
		if err := m.systemctl(ctx, "enable", m.unitName(s.ID())); err != nil {
			return []string{path}, err
		}
		return []string{path}, nil
	case "darwin":
		plist := filepath.Join(m.launchAgentsDir(), launchdLabel(s.ID())+".plist")
		path, err := m.writeRendered(renderLaunchd, s, plist, 0o644)
		if err != nil {
			return nil, err
		}
		if _, err := m.Runner.Run(ctx, "launchctl", []string{"load", path}, RunOptions{}); err != nil {
			return []string{path}, fmt.Errorf("launchctl load: %w", err)
		}
		return []string{path}, nil
	case "windows":
		bat, err := m.writeRendered(renderBat, s, filepath.Join(m.startupDir(), s.Name+".bat"), 0o644)
		if err != nil {
			return nil, err
		}
		return []string{bat}, nil
	default:
		return nil, fmt.Errorf("no service backend for %s", m.GOOS)
	}
}

// RemoveService unregisters and deletes a service created by AddService.
// Returns the removed paths; a service that was never added is not an
// error.
func (m *Manager) RemoveService(ctx context.Context, name string) ([]string, error) {
	id := SafeName(name)
	switch m.GOOS {
	case "linux":
		unit := filepath.Join(m.systemdUserDir(), m.unitName(id))
		if _, err := os.Stat(unit); os.IsNotExist(err) {
			return nil, nil
		}
		if err := m.systemctl(ctx, "disable", m.unitName(id)); err != nil {
			m.logf("systemctl disable failed, removing the unit anyway: %v", err)
		}
		if err := os.Remove(unit); err != nil {
			return nil, fmt.Errorf("remove unit: %w", err)
		}
		if err := m.systemctl(ctx, "daemon-reload"); err != nil {
			return []string{unit}, err
		}
		return []string{unit}, nil
	case "darwin":
		plist := filepath.Join(m.launchAgentsDir(), launchdLabel(id)+".plist")
		if _, err := os.Stat(plist); os.IsNotExist(err) {
			return nil, nil
		}
		if _, err := m.Runner.Run(ctx, "launchctl", []string{"unload", plist}, RunOptions{}); err != nil {
			m.logf("launchctl unload failed, removing the agent anyway: %v", err)
		}
		if err := os.Remove(plist); err != nil {
			return nil, fmt.Errorf("remove launch agent: %w", err)
		}
		return []string{plist}, nil
	case "windows":
		bat := filepath.Join(m.startupDir(), name+".bat")
		if _, err := os.Stat(bat); os.IsNotExist(err) {
			return nil, nil
		}
		if err := os.Remove(bat); err != nil {
			return nil, fmt.Errorf("remove startup entry: %w", err)
		}
		return []string{bat}, nil
	default:
		return nil, fmt.Errorf("no service backend for %s", m.GOOS)
	}
}

// Entry is one generated launcher or service found on disk.
type Entry struct {
	Kind string // "launcher" or "service"
	Path string
}

// List inventories the launchers in the install root and the services in
// the user's service directories. Only files this tool generated are
// reported.
func (m *Manager) List(root string) ([]Entry, error) {
	var entries []Entry

	for _, pattern := range []string{"*.sh", "*.command"} {
		matches, err := filepath.Glob(filepath.Join(root, pattern))
		if err != nil {
			return nil, err
		}
		for _, path := range matches {
			if m.generatedFile(path) {
				entries = append(entries, Entry{Kind: "launcher", Path: path})
			}
		}
	}

	launcherDirs := []string{filepath.Join(m.HomeDir, ".local", "share", "applications")}
	if m.AppData != "" {
		launcherDirs = append(launcherDirs, m.startMenuDir())
	}
	for _, dir := range launcherDirs {
		matches, _ := filepath.Glob(filepath.Join(dir, "*"))
		for _, path := range matches {
			if m.generatedFile(path) {
				entries = append(entries, Entry{Kind: "launcher", Path: path})
			}
		}
	}

	serviceGlobs := []string{
		filepath.Join(m.systemdUserDir(), "mcsm-*.service"),
		filepath.Join(m.launchAgentsDir(), "com.mcsm.*.plist"),
	}
	if m.AppData != "" {
		serviceGlobs = append(serviceGlobs, filepath.Join(m.startupDir(), "*.bat"))
	}
	for _, g := range serviceGlobs {
		matches, _ := filepath.Glob(g)
		for _, path := range matches {
			if strings.HasSuffix(path, ".bat") && !m.generatedFile(path) {
				continue
			}
			entries = append(entries, Entry{Kind: "service", Path: path})
		}
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Kind != entries[j].Kind {
			return entries[i].Kind < entries[j].Kind
		}
		return entries[i].Path < entries[j].Path
	})
	return entries, nil
}

func (m *Manager) writeRendered(renderFn func(Spec) ([]byte, error), s Spec, path string, mode os.FileMode) (string, error) {
	data, err := renderFn(s)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("create %s: %w", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, data, mode); err != nil {
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	m.logf("wrote %s", path)
	return path, nil
}

func (m *Manager) generatedFile(path string) bool {
	data, err := os.ReadFile(path)
	if err != nil {
		return false
	}
	return bytes.Contains(data, []byte(generatedMarker)) || bytes.Contains(data, []byte("managed by mcsm"))
}

func (m *Manager) systemctl(ctx context.Context, args ...string) error {
	full := append([]string{"--user"}, args...)
	if _, err := m.Runner.Run(ctx, "systemctl", full, RunOptions{}); err != nil {
		return fmt.Errorf("systemctl --user %s: %w", strings.Join(args, " "), err)
	}
	return nil
}

func (m *Manager) unitName(id string) string {
	return "mcsm-" + id + ".service"
}

func (m *Manager) systemdUserDir() string {
	return filepath.Join(m.HomeDir, ".config", "systemd", "user")
}

func (m *Manager) launchAgentsDir() string {
	return filepath.Join(m.HomeDir, "Library", "LaunchAgents")
}

func (m *Manager) startMenuDir() string {
	return filepath.Join(m.AppData, "Microsoft", "Windows", "Start Menu", "Programs")
}

func (m *Manager) startupDir() string {
	return filepath.Join(m.startMenuDir(), "Startup")
}
