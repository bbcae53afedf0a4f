package engine

import (
	"context"
	"crypto/md5"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"mcsm/internal/manifest"
	"mcsm/internal/paths"
	"mcsm/internal/source"
)

// remote fakes the purpur and modrinth APIs behind one test server. Fields
// are mutable so tests can publish new releases between runs.
type remote struct {
	srv *httptest.Server

	mu           sync.Mutex
	purpurLatest string
	purpurAll    []string
	serverJar    []byte
	viaVersion   string
	viaFeatured  bool
	viaJar       []byte
	viaSHA512    string // overrides the real digest when set
	downloadHits int
}

func newRemote(t *testing.T) *remote {
	t.Helper()
	r := &remote{
		purpurLatest: "2324",
		purpurAll:    []string{"2322", "2323", "2324"},
		serverJar:    []byte("purpur server jar 2324"),
		viaVersion:   "5.2.1",
		viaFeatured:  true,
		viaJar:       []byte("viaversion plugin 5.2.1"),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/v2/purpur/1.21.4", func(w http.ResponseWriter, _ *http.Request) {
		r.mu.Lock()
		defer r.mu.Unlock()
		json.NewEncoder(w).Encode(map[string]any{
			"builds": map[string]any{"latest": r.purpurLatest, "all": r.purpurAll},
		})
	})
	mux.HandleFunc("/v2/purpur/1.21.4/", func(w http.ResponseWriter, req *http.Request) {
		r.mu.Lock()
		defer r.mu.Unlock()
		rest := strings.TrimPrefix(req.URL.Path, "/v2/purpur/1.21.4/")
		if strings.HasSuffix(rest, "/download") {
			r.downloadHits++
			w.Write(r.serverJar)
			return
		}
		sum := md5.Sum(r.serverJar)
		json.NewEncoder(w).Encode(map[string]string{
			"build": rest,
			"md5":   hex.EncodeToString(sum[:]),
		})
	})
	mux.HandleFunc("/v2/project/viaversion/version", func(w http.ResponseWriter, _ *http.Request) {
		r.mu.Lock()
		defer r.mu.Unlock()
		digest := r.viaSHA512
		if digest == "" {
			sum := sha512.Sum512(r.viaJar)
			digest = hex.EncodeToString(sum[:])
		}
		fmt.Fprintf(w, `[{"id":"v1","version_number":%q,"version_type":"release","featured":%v,
			"game_versions":["1.21.4"],
			"files":[{"url":%q,"filename":"ViaVersion.jar","primary":true,"size":%d,
			          "hashes":{"sha512":%q}}]}]`,
			r.viaVersion, r.viaFeatured, r.srv.URL+"/cdn/ViaVersion.jar", len(r.viaJar), digest)
	})
	mux.HandleFunc("/cdn/ViaVersion.jar", func(w http.ResponseWriter, _ *http.Request) {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.downloadHits++
		w.Write(r.viaJar)
	})
	mux.HandleFunc("/v2/project/flaky/version", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	r.srv = httptest.NewServer(mux)
	t.Cleanup(r.srv.Close)
	return r
}

func (r *remote) client() *source.Client {
	c := source.NewClient("mcsm-test/1.0", 5*time.Second)
	c.PurpurBase = r.srv.URL
	c.ModrinthBase = r.srv.URL
	return c
}

func (r *remote) hits() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.downloadHits
}

func newOrchestrator(t *testing.T, r *remote, root string) *Orchestrator {
	t.Helper()
	p := paths.New(root)
	if err := p.EnsureMetaDirs(); err != nil {
		t.Fatal(err)
	}
	client := r.client()
	return &Orchestrator{
		Paths:  p,
		Client: client,
		Fetcher: &Fetcher{
			HTTP:       client.HTTP,
			UserAgent:  "mcsm-test/1.0",
			ScratchDir: p.ScratchDir,
			Strategy:   RetryStrategy(3, time.Millisecond),
		},
		Installer:   &Installer{Paths: p, KeepVersionedJar: true},
		Concurrency: 4,
	}
}

func testSpecs() []ComponentSpec {
	return []ComponentSpec{
		{ID: "server", Kind: KindServer, Source: source.KindPurpur, GameVersion: "1.21.4", OutPath: "server.jar"},
		{ID: "viaversion", Kind: KindPlugin, Source: source.KindModrinth, GameVersion: "1.21.4",
			Params:  source.Params{Slug: "viaversion", Loaders: []string{"paper"}},
			OutPath: "plugins/ViaVersion.jar"},
	}
}

func byComponent(outs []Outcome) map[string]Outcome {
	m := make(map[string]Outcome, len(outs))
	for _, o := range outs {
		m[o.Component] = o
	}
	return m
}

func TestRunFreshInstall(t *testing.T) {
	r := newRemote(t)
	root := t.TempDir()
	o := newOrchestrator(t, r, root)

	outs, err := o.Run(context.Background(), testSpecs())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	m := byComponent(outs)
	if m["server"].Status != StatusInstalled || m["server"].NewVersion != "2324" {
		t.Errorf("server outcome = %+v", m["server"])
	}
	if m["viaversion"].Status != StatusInstalled || m["viaversion"].NewVersion != "5.2.1" {
		t.Errorf("viaversion outcome = %+v", m["viaversion"])
	}

	got, err := os.ReadFile(filepath.Join(root, "server.jar"))
	if err != nil || string(got) != string(r.serverJar) {
		t.Errorf("server.jar = %q, %v", got, err)
	}
	if _, err := os.Stat(filepath.Join(root, "purpur-1.21.4-2324.jar")); err != nil {
		t.Errorf("versioned jar missing: %v", err)
	}
	got, err = os.ReadFile(filepath.Join(root, "plugins", "ViaVersion.jar"))
	if err != nil || string(got) != string(r.viaJar) {
		t.Errorf("plugin jar = %q, %v", got, err)
	}

	man, err := manifest.Load(filepath.Join(root, ".mcsm", "manifest.json"))
	if err != nil {
		t.Fatal(err)
	}
	rec, ok := man.Get("server")
	if !ok || rec.VersionID != "2324" || rec.Source != "purpur" {
		t.Errorf("server record = %+v, %v", rec, ok)
	}
	if _, ok := man.Get("viaversion"); !ok {
		t.Error("viaversion record missing")
	}
	if _, err := os.Stat(filepath.Join(root, ".mcsm", "lock")); !os.IsNotExist(err) {
		t.Error("lock file not released")
	}
}

func TestRunIsIdempotent(t *testing.T) {
	r := newRemote(t)
	o := newOrchestrator(t, r, t.TempDir())

	if _, err := o.Run(context.Background(), testSpecs()); err != nil {
		t.Fatalf("first Run: %v", err)
	}
	before := r.hits()

	outs, err := o.Run(context.Background(), testSpecs())
	if err != nil {
		t.Fatalf("second Run: %v", err)
	}
	for _, out := range outs {
		if out.Status != StatusUpToDate {
			t.Errorf("%s status = %s, want up-to-date", out.Component, out.Status)
		}
	}
	if r.hits() != before {
		t.Errorf("second run downloaded %d artifacts, want 0", r.hits()-before)
	}
}

func TestRunPicksUpNewRelease(t *testing.T) {
	r := newRemote(t)
	root := t.TempDir()
	o := newOrchestrator(t, r, root)

	if _, err := o.Run(context.Background(), testSpecs()); err != nil {
		t.Fatal(err)
	}

	r.mu.Lock()
	r.purpurLatest = "2330"
	r.purpurAll = append(r.purpurAll, "2330")
	r.serverJar = []byte("purpur server jar 2330")
	r.viaVersion = "5.3.0"
	r.viaJar = []byte("viaversion plugin 5.3.0")
	r.mu.Unlock()

	outs, err := o.Run(context.Background(), testSpecs())
	if err != nil {
		t.Fatal(err)
	}
	m := byComponent(outs)
	if m["server"].Status != StatusUpdated || m["server"].OldVersion != "2324" || m["server"].NewVersion != "2330" {
		t.Errorf("server outcome = %+v", m["server"])
	}
	if m["viaversion"].Status != StatusUpdated {
		t.Errorf("viaversion outcome = %+v", m["viaversion"])
	}

	got, _ := os.ReadFile(filepath.Join(root, "server.jar"))
	if string(got) != "purpur server jar 2330" {
		t.Errorf("server.jar = %q after update", got)
	}

	// The replaced plugin jar lands in a timestamped backup directory.
	backups, err := filepath.Glob(filepath.Join(root, ".bak", "*", "ViaVersion.jar"))
	if err != nil || len(backups) != 1 {
		t.Fatalf("backups = %v, %v", backups, err)
	}
	saved, _ := os.ReadFile(backups[0])
	if string(saved) != "viaversion plugin 5.2.1" {
		t.Errorf("backup content = %q", saved)
	}
}

func TestRunIsolatesComponentFailures(t *testing.T) {
	r := newRemote(t)
	o := newOrchestrator(t, r, t.TempDir())

	specs := append(testSpecs(), ComponentSpec{
		ID: "flaky", Kind: KindPlugin, Source: source.KindModrinth, GameVersion: "1.21.4",
		Params:  source.Params{Slug: "flaky"},
		OutPath: "plugins/Flaky.jar",
	})
	outs, err := o.Run(context.Background(), specs)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	m := byComponent(outs)
	if m["flaky"].Status != StatusFailed || m["flaky"].Failure != FailTransport {
		t.Errorf("flaky outcome = %+v", m["flaky"])
	}
	if m["server"].Status != StatusInstalled || m["viaversion"].Status != StatusInstalled {
		t.Errorf("healthy components did not install: %+v, %+v", m["server"], m["viaversion"])
	}
}

func TestRunLeavesLiveFileOnCorruptDownload(t *testing.T) {
	r := newRemote(t)
	root := t.TempDir()
	o := newOrchestrator(t, r, root)

	if _, err := o.Run(context.Background(), testSpecs()); err != nil {
		t.Fatal(err)
	}

	// New release whose published digest does not match the body.
	r.mu.Lock()
	r.viaVersion = "5.3.0"
	r.viaJar = []byte("corrupted in transit")
	r.viaSHA512 = strings.Repeat("ab", 64)
	r.mu.Unlock()

	outs, err := o.Run(context.Background(), testSpecs()[1:])
	if err != nil {
		t.Fatal(err)
	}
	out := outs[0]
	if out.Status != StatusFailed || out.Failure != FailIntegrity {
		t.Fatalf("outcome = %+v, want integrity failure", out)
	}

	got, _ := os.ReadFile(filepath.Join(root, "plugins", "ViaVersion.jar"))
	if string(got) != "viaversion plugin 5.2.1" {
		t.Errorf("live jar = %q, want the previous artifact untouched", got)
	}
	man, err := manifest.Load(filepath.Join(root, ".mcsm", "manifest.json"))
	if err != nil {
		t.Fatal(err)
	}
	rec, _ := man.Get("viaversion")
	if rec.VersionID != "5.2.1" {
		t.Errorf("manifest version = %q, want 5.2.1", rec.VersionID)
	}
}

func TestRunReinstallsTamperedArtifact(t *testing.T) {
	r := newRemote(t)
	root := t.TempDir()
	o := newOrchestrator(t, r, root)
	specs := testSpecs()[1:]

	if _, err := o.Run(context.Background(), specs); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(root, "plugins", "ViaVersion.jar"), []byte("edited by hand"), 0o644); err != nil {
		t.Fatal(err)
	}

	outs, err := o.Run(context.Background(), specs)
	if err != nil {
		t.Fatal(err)
	}
	if outs[0].Status != StatusInstalled {
		t.Errorf("outcome = %+v, want reinstall after demotion", outs[0])
	}
	got, _ := os.ReadFile(filepath.Join(root, "plugins", "ViaVersion.jar"))
	if string(got) != string(r.viaJar) {
		t.Errorf("jar = %q, want restored artifact", got)
	}
}

func TestRunRefusesHeldLock(t *testing.T) {
	r := newRemote(t)
	root := t.TempDir()
	o := newOrchestrator(t, r, root)

	if err := os.WriteFile(o.Paths.LockFile, []byte("1234\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := o.Run(context.Background(), testSpecs()); !errors.Is(err, ErrLocked) {
		t.Fatalf("err = %v, want ErrLocked", err)
	}
}

func TestRunRefusesCorruptManifest(t *testing.T) {
	r := newRemote(t)
	root := t.TempDir()
	o := newOrchestrator(t, r, root)

	if err := os.WriteFile(o.Paths.ManifestFile, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := o.Run(context.Background(), testSpecs()); !errors.Is(err, manifest.ErrCorrupt) {
		t.Fatalf("err = %v, want ErrCorrupt", err)
	}
}

func TestRunDryRunTouchesNothing(t *testing.T) {
	r := newRemote(t)
	root := t.TempDir()
	o := newOrchestrator(t, r, root)
	o.DryRun = true

	outs, err := o.Run(context.Background(), testSpecs())
	if err != nil {
		t.Fatal(err)
	}
	m := byComponent(outs)
	if m["server"].Status != StatusInstalled || m["server"].NewVersion != "2324" {
		t.Errorf("server outcome = %+v", m["server"])
	}
	if r.hits() != 0 {
		t.Errorf("dry run downloaded %d artifacts", r.hits())
	}
	if _, err := os.Stat(filepath.Join(root, "server.jar")); !os.IsNotExist(err) {
		t.Error("dry run wrote server.jar")
	}
	man, err := manifest.Load(o.Paths.ManifestFile)
	if err != nil {
		t.Fatal(err)
	}
	if len(man.Entries) != 0 {
		t.Errorf("dry run recorded entries: %v", man.Entries)
	}
}
