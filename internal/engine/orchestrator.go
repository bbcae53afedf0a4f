package engine

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"sort"
	"sync"

	"mcsm/internal/manifest"
	"mcsm/internal/paths"
	"mcsm/internal/source"
)

// Status is the per-component result of a run.
type Status string

const (
	StatusUpToDate  Status = "up-to-date"
	StatusInstalled Status = "installed"
	StatusUpdated   Status = "updated"
	StatusFailed    Status = "failed"
)

// Outcome reports what happened to one component. Failures carry their
// classification; the run as a whole never aborts for a per-component
// failure.
type Outcome struct {
	Component  string
	Kind       ComponentKind
	Status     Status
	OldVersion string
	NewVersion string
	Failure    FailureKind
	Err        error

	outcomeRecord
}

// Event is a progress notification for interactive frontends.
type Event struct {
	Component string
	Phase     Phase
	Detail    string
}

// Phase names the step a component is currently in.
type Phase string

const (
	PhaseResolving   Phase = "resolving"
	PhaseDownloading Phase = "downloading"
	PhaseInstalling  Phase = "installing"
	PhaseDone        Phase = "done"
)

// ErrLocked reports that another run holds the directory lock.
var ErrLocked = errors.New("another mcsm run is already operating on this directory")

// Orchestrator executes a full update pass over a set of components.
// Components proceed concurrently; manifest writes are serialized; the
// directory lock keeps concurrent invocations out entirely.
type Orchestrator struct {
	Paths       paths.ServerPaths
	Client      *source.Client
	Fetcher     *Fetcher
	Installer   *Installer
	Log         *log.Logger
	Concurrency int
	// DryRun resolves everything but downloads and installs nothing.
	DryRun bool
	// Notify, when set, receives progress events. Called from worker
	// goroutines.
	Notify func(Event)
}

func (o *Orchestrator) logf(format string, args ...any) {
	if o.Log != nil {
		o.Log.Printf(format, args...)
	}
}

func (o *Orchestrator) notify(component string, phase Phase, detail string) {
	if o.Notify != nil {
		o.Notify(Event{Component: component, Phase: phase, Detail: detail})
	}
}

// Run drives every component spec to a terminal outcome. It returns an
// error only for run-level problems: the directory lock is held, the
// manifest is corrupt, or the manifest cannot be persisted. Per-component
// failures land in their outcomes.
func (o *Orchestrator) Run(ctx context.Context, specs []ComponentSpec) ([]Outcome, error) {
	unlock, err := acquireLock(o.Paths.LockFile)
	if err != nil {
		return nil, err
	}
	defer unlock()

	man, err := manifest.Load(o.Paths.ManifestFile)
	if err != nil {
		return nil, err
	}
	for _, name := range man.Verify(o.Paths.Root) {
		o.logf("%s: installed artifact missing or modified, will reinstall", name)
	}

	resolver := &Resolver{Client: o.Client, Logf: o.logf}

	workers := o.Concurrency
	if workers < 1 {
		workers = 4
	}
	sem := make(chan struct{}, workers)

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex // guards man and saveErr
		saveErr error
	)
	outcomes := make([]Outcome, len(specs))

	for i, spec := range specs {
		wg.Add(1)
		go func(i int, spec ComponentSpec) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			mu.Lock()
			installed, ok := man.Get(spec.ID)
			mu.Unlock()
			var installedRec *manifest.Record
			if ok {
				installedRec = &installed
			}

			out := o.runComponent(ctx, resolver, spec, installedRec)

			if !o.DryRun && (out.Status == StatusInstalled || out.Status == StatusUpdated) {
				mu.Lock()
				man.Set(out.record(spec))
				if err := man.Save(o.Paths.ManifestFile); err != nil && saveErr == nil {
					saveErr = err
				}
				mu.Unlock()
			}
			outcomes[i] = out
			o.notify(spec.ID, PhaseDone, string(out.Status))
		}(i, spec)
	}
	wg.Wait()

	if saveErr != nil {
		return outcomes, fmt.Errorf("persist manifest: %w", saveErr)
	}
	return outcomes, nil
}

// runComponent is resolve, fetch, install for a single component. Every
// error path returns a classified failure outcome.
func (o *Orchestrator) runComponent(ctx context.Context, resolver *Resolver, spec ComponentSpec, installed *manifest.Record) Outcome {
	out := Outcome{Component: spec.ID, Kind: spec.Kind}
	if installed != nil {
		out.OldVersion = installed.VersionID
	}
	fail := func(err error) Outcome {
		out.Status = StatusFailed
		out.Failure = Classify(err)
		out.Err = err
		o.logf("%s: %s: %v", spec.ID, out.Failure, err)
		return out
	}

	o.notify(spec.ID, PhaseResolving, "")
	res, err := resolver.Resolve(ctx, spec, installed)
	if err != nil {
		return fail(err)
	}
	if res.UpToDate {
		out.Status = StatusUpToDate
		out.NewVersion = out.OldVersion
		o.logf("%s: up to date at %s", spec.ID, out.OldVersion)
		return out
	}
	out.NewVersion = res.Best.VersionID

	if o.DryRun {
		out.Status = StatusUpdated
		if installed == nil {
			out.Status = StatusInstalled
		}
		o.logf("%s: dry run, would install %s", spec.ID, res.Best.VersionID)
		return out
	}

	adapter, err := source.ForKind(spec.Source, o.Client)
	if err != nil {
		return fail(err)
	}
	dl, err := adapter.ResolveDownload(ctx, res.Best)
	if err != nil {
		return fail(err)
	}

	o.notify(spec.ID, PhaseDownloading, res.Best.VersionID)
	staged, err := o.Fetcher.Fetch(ctx, dl)
	if err != nil {
		return fail(err)
	}

	o.notify(spec.ID, PhaseInstalling, res.Best.VersionID)
	rel, err := o.Installer.Install(staged, spec, dl.Filename)
	if err != nil {
		os.Remove(staged.Path)
		return fail(err)
	}

	out.installedPath = rel
	out.installedSHA = staged.SHA256
	out.installedSize = staged.Size
	out.installedURL = dl.URL
	out.gameVersion = res.Best.GameVersion
	out.source = string(spec.Source)

	if installed == nil {
		out.Status = StatusInstalled
		o.logf("%s: installed %s (%s)", spec.ID, res.Best.VersionID, rel)
	} else {
		out.Status = StatusUpdated
		o.logf("%s: updated %s -> %s (%s)", spec.ID, installed.VersionID, res.Best.VersionID, rel)
	}
	return out
}

// record fields ride along on the outcome so the orchestrator can write the
// manifest entry without re-deriving them.
type outcomeRecord struct {
	installedPath string
	installedSHA  string
	installedSize int64
	installedURL  string
	gameVersion   string
	source        string
}

func (out Outcome) record(spec ComponentSpec) manifest.Record {
	return manifest.Record{
		Component:   spec.ID,
		Kind:        string(spec.Kind),
		Source:      out.source,
		VersionID:   out.NewVersion,
		GameVersion: out.gameVersion,
		SHA256:      out.installedSHA,
		Size:        out.installedSize,
		URL:         out.installedURL,
		Path:        out.installedPath,
		InstalledAt: nowFunc().UTC(),
	}
}

// acquireLock creates the lock file exclusively. The returned func releases
// it.
func acquireLock(path string) (func(), error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("%w (%s)", ErrLocked, path)
		}
		return nil, fmt.Errorf("acquire lock: %w", err)
	}
	fmt.Fprintf(f, "%d\n", os.Getpid())
	f.Close()
	return func() { os.Remove(path) }, nil
}

// SortOutcomes orders outcomes by component identifier for stable output.
func SortOutcomes(outs []Outcome) {
	sort.Slice(outs, func(i, j int) bool { return outs[i].Component < outs[j].Component })
}
