package paths

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ServerPaths captures canonical locations inside a managed server directory.
// Every component receives one of these; nothing infers the install root
// from ambient state.
type ServerPaths struct {
	Root         string
	ConfigFile   string
	MetaDir      string
	ManifestFile string
	LockFile     string
	ScratchDir   string
	BackupDir    string
	PluginsDir   string
	LogsDir      string
}

// Resolve determines the install root using the optional --dir flag or the
// current working directory when the flag is empty.
func Resolve(dirFlag string) (ServerPaths, error) {
	var (
		root string
		err  error
	)

	if dirFlag != "" {
		root, err = filepath.Abs(dirFlag)
	} else {
		root, err = os.Getwd()
	}
	if err != nil {
		return ServerPaths{}, fmt.Errorf("resolve install root: %w", err)
	}

	return New(root), nil
}

// New builds ServerPaths for an explicit root.
func New(root string) ServerPaths {
	metaDir := filepath.Join(root, ".mcsm")
	return ServerPaths{
		Root:         root,
		ConfigFile:   filepath.Join(root, "mcsm.yaml"),
		MetaDir:      metaDir,
		ManifestFile: filepath.Join(metaDir, "manifest.json"),
		LockFile:     filepath.Join(metaDir, "lock"),
		ScratchDir:   filepath.Join(metaDir, "tmp"),
		BackupDir:    filepath.Join(root, ".bak"),
		PluginsDir:   filepath.Join(root, "plugins"),
		LogsDir:      filepath.Join(root, "logs"),
	}
}

// Target resolves a config-supplied artifact path against the root. Absolute
// paths and paths escaping the root are rejected so a config file cannot
// direct writes outside the installation.
func (p ServerPaths) Target(rel string) (string, error) {
	if strings.TrimSpace(rel) == "" {
		return "", fmt.Errorf("empty target path")
	}
	if filepath.IsAbs(rel) {
		return "", fmt.Errorf("target path must be relative to the server directory: %s", rel)
	}
	clean := filepath.Clean(filepath.Join(p.Root, filepath.FromSlash(rel)))
	back, err := filepath.Rel(p.Root, clean)
	if err != nil || back == ".." || strings.HasPrefix(back, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("target path escapes the server directory: %s", rel)
	}
	return clean, nil
}

// EnsureRoot makes sure the install root exists on disk.
func (p ServerPaths) EnsureRoot() error {
	if err := os.MkdirAll(p.Root, 0o755); err != nil {
		return fmt.Errorf("create install root: %w", err)
	}
	return nil
}

// EnsureMetaDirs creates the scratch/backup/plugins/logs hierarchy alongside
// the hidden .mcsm metadata directory.
func (p ServerPaths) EnsureMetaDirs() error {
	dirs := []string{p.MetaDir, p.ScratchDir, p.BackupDir, p.PluginsDir, p.LogsDir}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}
	return nil
}

// FileExists reports whether a path exists and is a regular file.
func FileExists(path string) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return info.Mode().IsRegular(), nil
}

// DirExists reports whether a path exists and is a directory.
func DirExists(path string) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return info.IsDir(), nil
}
