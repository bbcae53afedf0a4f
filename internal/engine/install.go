package engine

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"mcsm/internal/paths"
)

// Test seams.
var (
	renameFile = os.Rename
	nowFunc    = time.Now
)

// Installer swaps verified artifacts into their live locations. The live
// file is replaced by a single rename, so readers observe either the old
// artifact or the new one, never a partial write.
type Installer struct {
	Paths paths.ServerPaths
	// KeepVersionedJar keeps the server jar under its versioned filename and
	// points the configured name at it, so rollback is a symlink away.
	KeepVersionedJar bool
	Logf             func(format string, args ...any)
}

func (ins *Installer) logf(format string, args ...any) {
	if ins.Logf != nil {
		ins.Logf(format, args...)
	}
}

// Install commits a staged artifact. The previous live file, if any, is
// copied into a timestamped backup directory first. Returns the live path
// relative to the install root.
func (ins *Installer) Install(staged Staged, spec ComponentSpec, versionedName string) (string, error) {
	target, err := ins.Paths.Target(spec.OutPath)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInstall, err)
	}
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return "", fmt.Errorf("%w: create target dir: %v", ErrInstall, err)
	}

	if err := ins.backup(target); err != nil {
		return "", fmt.Errorf("%w: %v", ErrInstall, err)
	}

	if spec.Kind == KindServer && ins.KeepVersionedJar && versionedName != "" {
		return ins.installVersioned(staged, target, versionedName)
	}

	if err := renameFile(staged.Path, target); err != nil {
		return "", fmt.Errorf("%w: commit %s: %v", ErrInstall, target, err)
	}
	return relPath(ins.Paths.Root, target)
}

// installVersioned lands the jar under its versioned filename next to the
// configured name, then points the configured name at it. Filesystems
// without symlink support get a copy instead.
func (ins *Installer) installVersioned(staged Staged, target, versionedName string) (string, error) {
	versioned := filepath.Join(filepath.Dir(target), versionedName)
	if err := renameFile(staged.Path, versioned); err != nil {
		return "", fmt.Errorf("%w: commit %s: %v", ErrInstall, versioned, err)
	}

	// Symlinks cannot be renamed over atomically everywhere, so link under a
	// temp name and rename that.
	tmpLink := target + ".swap"
	os.Remove(tmpLink)
	if err := os.Symlink(versionedName, tmpLink); err != nil {
		ins.logf("symlink unsupported for %s, copying instead: %v", target, err)
		if err := copyFile(versioned, target); err != nil {
			return "", fmt.Errorf("%w: copy %s: %v", ErrInstall, target, err)
		}
		return relPath(ins.Paths.Root, versioned)
	}
	if err := renameFile(tmpLink, target); err != nil {
		os.Remove(tmpLink)
		return "", fmt.Errorf("%w: commit link %s: %v", ErrInstall, target, err)
	}
	return relPath(ins.Paths.Root, versioned)
}

// backup copies the current live file into .bak/<timestamp>/ so a bad
// update can be rolled back by hand. The live file itself stays in place
// until the rename.
func (ins *Installer) backup(target string) error {
	info, err := os.Lstat(target)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	// A symlink points at a versioned jar that survives the update on its
	// own; backing up the link would copy the jar twice.
	if info.Mode()&os.ModeSymlink != 0 {
		return nil
	}

	dir := filepath.Join(ins.Paths.BackupDir, nowFunc().Format("20060102-150405"))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	dst := filepath.Join(dir, filepath.Base(target))
	if err := copyFile(target, dst); err != nil {
		return err
	}
	ins.logf("backed up %s to %s", target, dst)
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.CreateTemp(filepath.Dir(dst), "."+filepath.Base(dst)+"-*")
	if err != nil {
		return err
	}
	tmpName := out.Name()
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(tmpName)
		return err
	}
	if err := out.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, dst); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}

func relPath(root, abs string) (string, error) {
	rel, err := filepath.Rel(root, abs)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInstall, err)
	}
	return filepath.ToSlash(rel), nil
}
