package manifest

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadMissingIsEmpty(t *testing.T) {
	m, err := Load(filepath.Join(t.TempDir(), "manifest.json"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(m.Entries) != 0 {
		t.Errorf("entries = %v, want empty", m.Entries)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "manifest.json")

	m := New()
	m.Set(Record{
		Component:   "server",
		Kind:        "server",
		Source:      "purpur",
		VersionID:   "2324",
		GameVersion: "1.21.4",
		SHA256:      "deadbeef",
		Size:        42,
		Path:        "server.jar",
		InstalledAt: time.Date(2026, 8, 20, 10, 0, 0, 0, time.UTC),
	})
	if err := m.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	rec, ok := got.Get("server")
	if !ok {
		t.Fatal("server record missing after round trip")
	}
	if rec.VersionID != "2324" || rec.Path != "server.jar" || rec.SHA256 != "deadbeef" {
		t.Errorf("record = %+v", rec)
	}
}

func TestLoadCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "manifest.json")
	if err := os.WriteFile(path, []byte(`{"schema": 1, "entries": {`), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); !errors.Is(err, ErrCorrupt) {
		t.Fatalf("err = %v, want ErrCorrupt", err)
	}
}

func TestLoadNewerSchemaIsCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "manifest.json")
	if err := os.WriteFile(path, []byte(`{"schema": 99, "entries": {}}`), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); !errors.Is(err, ErrCorrupt) {
		t.Fatalf("err = %v, want ErrCorrupt", err)
	}
}

func TestSaveIsAtomicOverExisting(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "manifest.json")

	m := New()
	m.Set(Record{Component: "a", VersionID: "1", Path: "a.jar"})
	if err := m.Save(path); err != nil {
		t.Fatal(err)
	}
	m.Set(Record{Component: "b", VersionID: "2", Path: "b.jar"})
	if err := m.Save(path); err != nil {
		t.Fatal(err)
	}

	got, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Entries) != 2 {
		t.Errorf("entries = %d, want 2", len(got.Entries))
	}

	leftovers, err := filepath.Glob(filepath.Join(dir, ".manifest-*"))
	if err != nil {
		t.Fatal(err)
	}
	if len(leftovers) != 0 {
		t.Errorf("temp files left behind: %v", leftovers)
	}
}

func TestVerifyDemotesMissingAndMismatched(t *testing.T) {
	root := t.TempDir()

	ok := []byte("intact artifact")
	if err := os.WriteFile(filepath.Join(root, "ok.jar"), ok, 0o644); err != nil {
		t.Fatal(err)
	}
	okSum, err := HashFile(filepath.Join(root, "ok.jar"))
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(root, "tampered.jar"), []byte("replaced by hand"), 0o644); err != nil {
		t.Fatal(err)
	}

	m := New()
	m.Set(Record{Component: "ok", Path: "ok.jar", SHA256: okSum})
	m.Set(Record{Component: "tampered", Path: "tampered.jar", SHA256: okSum})
	m.Set(Record{Component: "gone", Path: "gone.jar", SHA256: okSum})

	demoted := m.Verify(root)
	if len(demoted) != 2 || demoted[0] != "gone" || demoted[1] != "tampered" {
		t.Fatalf("demoted = %v", demoted)
	}
	if _, ok := m.Get("ok"); !ok {
		t.Error("intact record dropped")
	}
	if _, ok := m.Get("tampered"); ok {
		t.Error("mismatched record kept")
	}
}

func TestComponentsSorted(t *testing.T) {
	m := New()
	for _, name := range []string{"geyser", "server", "floodgate"} {
		m.Set(Record{Component: name})
	}
	got := m.Components()
	want := []string{"floodgate", "geyser", "server"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Components() = %v, want %v", got, want)
		}
	}
}
