package engine

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"mcsm/internal/paths"
)

func stage(t *testing.T, p paths.ServerPaths, content string) Staged {
	t.Helper()
	if err := p.EnsureMetaDirs(); err != nil {
		t.Fatal(err)
	}
	f, err := os.CreateTemp(p.ScratchDir, "download-*.part")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.WriteString(content); err != nil {
		t.Fatal(err)
	}
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}
	return Staged{Path: f.Name(), Size: int64(len(content))}
}

func TestInstallPlugin(t *testing.T) {
	p := paths.New(t.TempDir())
	ins := &Installer{Paths: p}
	spec := ComponentSpec{ID: "via", Kind: KindPlugin, OutPath: "plugins/Via.jar"}

	rel, err := ins.Install(stage(t, p, "v1"), spec, "")
	if err != nil {
		t.Fatalf("Install: %v", err)
	}
	if rel != "plugins/Via.jar" {
		t.Errorf("rel = %q", rel)
	}

	// Replacing the artifact backs up the old one first.
	if _, err := ins.Install(stage(t, p, "v2"), spec, ""); err != nil {
		t.Fatalf("second Install: %v", err)
	}
	got, _ := os.ReadFile(filepath.Join(p.Root, "plugins", "Via.jar"))
	if string(got) != "v2" {
		t.Errorf("live file = %q", got)
	}
	backups, _ := filepath.Glob(filepath.Join(p.BackupDir, "*", "Via.jar"))
	if len(backups) != 1 {
		t.Fatalf("backups = %v", backups)
	}
	old, _ := os.ReadFile(backups[0])
	if string(old) != "v1" {
		t.Errorf("backup = %q", old)
	}
}

func TestInstallVersionedServerJar(t *testing.T) {
	p := paths.New(t.TempDir())
	ins := &Installer{Paths: p, KeepVersionedJar: true}
	spec := ComponentSpec{ID: "server", Kind: KindServer, OutPath: "server.jar"}

	rel, err := ins.Install(stage(t, p, "build 10"), spec, "purpur-1.21.4-10.jar")
	if err != nil {
		t.Fatalf("Install: %v", err)
	}
	if rel != "purpur-1.21.4-10.jar" {
		t.Errorf("rel = %q, want the versioned path", rel)
	}

	link := filepath.Join(p.Root, "server.jar")
	got, err := os.ReadFile(link)
	if err != nil || string(got) != "build 10" {
		t.Fatalf("server.jar = %q, %v", got, err)
	}
	if target, err := os.Readlink(link); err == nil && target != "purpur-1.21.4-10.jar" {
		t.Errorf("link target = %q", target)
	}

	// A newer build leaves the old versioned jar on disk for rollback.
	if _, err := ins.Install(stage(t, p, "build 11"), spec, "purpur-1.21.4-11.jar"); err != nil {
		t.Fatal(err)
	}
	got, _ = os.ReadFile(link)
	if string(got) != "build 11" {
		t.Errorf("server.jar = %q after update", got)
	}
	if _, err := os.Stat(filepath.Join(p.Root, "purpur-1.21.4-10.jar")); err != nil {
		t.Errorf("previous versioned jar gone: %v", err)
	}
}

func TestInstallRejectsEscapingPath(t *testing.T) {
	p := paths.New(t.TempDir())
	ins := &Installer{Paths: p}

	for _, out := range []string{"../outside.jar", "/etc/evil.jar"} {
		spec := ComponentSpec{ID: "bad", Kind: KindPlugin, OutPath: out}
		if _, err := ins.Install(stage(t, p, "x"), spec, ""); !errors.Is(err, ErrInstall) {
			t.Errorf("OutPath %q: err = %v, want ErrInstall", out, err)
		}
	}
}

func TestInstallRenameFailure(t *testing.T) {
	p := paths.New(t.TempDir())
	ins := &Installer{Paths: p}
	spec := ComponentSpec{ID: "via", Kind: KindPlugin, OutPath: "plugins/Via.jar"}

	orig := renameFile
	renameFile = func(_, _ string) error { return errors.New("device busy") }
	defer func() { renameFile = orig }()

	_, err := ins.Install(stage(t, p, "v1"), spec, "")
	if !errors.Is(err, ErrInstall) {
		t.Fatalf("err = %v, want ErrInstall", err)
	}
	if Classify(err) != FailInstall {
		t.Errorf("Classify = %s, want install-failed", Classify(err))
	}
}
