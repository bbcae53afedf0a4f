package engine

import (
	"context"
	"fmt"

	"mcsm/internal/manifest"
	"mcsm/internal/source"
	"mcsm/internal/version"
)

// Resolution is the outcome of matching one component's remote releases
// against its installed record.
type Resolution struct {
	Spec      ComponentSpec
	Best      source.Candidate
	Installed *manifest.Record
	UpToDate  bool
}

// Resolver picks the best installable candidate for a component.
type Resolver struct {
	Client *source.Client
	Logf   func(format string, args ...any)
}

func (r *Resolver) logf(format string, args ...any) {
	if r.Logf != nil {
		r.Logf(format, args...)
	}
}

// Resolve lists the component's releases and selects the candidate to
// install. Selection rules, in order:
//   - candidates incompatible with the requested game version are dropped
//   - candidates whose identifier does not parse under the source's scheme
//     are excluded from ranking, never guessed
//   - the source's recommended flag is authoritative; when the newest
//     rankable candidate disagrees the recommendation still wins and the
//     disagreement is logged
//   - a best candidate that does not order strictly above the installed
//     version leaves the component up to date
func (r *Resolver) Resolve(ctx context.Context, spec ComponentSpec, installed *manifest.Record) (Resolution, error) {
	res := Resolution{Spec: spec, Installed: installed}

	adapter, err := source.ForKind(spec.Source, r.Client)
	if err != nil {
		return res, err
	}
	scheme := adapter.Scheme()

	candidates, err := adapter.ListReleases(ctx, spec.Params, spec.GameVersion)
	if err != nil {
		return res, err
	}

	compatible := candidates[:0]
	for _, c := range candidates {
		if version.Compatible(c.GameVersions, spec.GameVersion) {
			compatible = append(compatible, c)
		}
	}
	if len(compatible) == 0 {
		return res, fmt.Errorf("%w: %s publishes nothing for game version %s", ErrUnresolvable, spec.Source, spec.GameVersion)
	}

	rankable := make([]source.Candidate, 0, len(compatible))
	ambiguous := 0
	for _, c := range compatible {
		if err := version.Valid(c.VersionID, scheme); err != nil {
			ambiguous++
			r.logf("%s: skipping unrankable version %q: %v", spec.ID, c.VersionID, err)
			continue
		}
		rankable = append(rankable, c)
	}
	if len(rankable) == 0 {
		if ambiguous > 0 {
			return res, fmt.Errorf("%w: all %d candidates for %s are unrankable", version.ErrAmbiguous, ambiguous, spec.ID)
		}
		return res, fmt.Errorf("%w: no rankable candidates for %s", ErrUnresolvable, spec.ID)
	}

	newest := maxCandidate(rankable, scheme)
	best := newest
	if rec, ok := maxRecommended(rankable, scheme); ok {
		best = rec
		if rec.VersionID != newest.VersionID {
			r.logf("%s: source recommends %s over newer %s; following the recommendation",
				spec.ID, rec.VersionID, newest.VersionID)
		}
	}
	res.Best = best

	if installed == nil || installed.VersionID == "" {
		return res, nil
	}
	ord, err := version.Compare(best.VersionID, installed.VersionID, scheme)
	if err != nil {
		// The installed identifier no longer parses (source changed its
		// scheme, or the manifest predates it). Reinstall rather than trust
		// a comparison that cannot be made.
		r.logf("%s: installed version %q is not comparable, reinstalling: %v", spec.ID, installed.VersionID, err)
		return res, nil
	}
	if ord != version.Greater {
		res.UpToDate = true
	}
	return res, nil
}

func maxCandidate(cands []source.Candidate, scheme version.Scheme) source.Candidate {
	best := cands[0]
	for _, c := range cands[1:] {
		if ord, err := version.Compare(c.VersionID, best.VersionID, scheme); err == nil && ord == version.Greater {
			best = c
		}
	}
	return best
}

func maxRecommended(cands []source.Candidate, scheme version.Scheme) (source.Candidate, bool) {
	var best source.Candidate
	found := false
	for _, c := range cands {
		if !c.Recommended {
			continue
		}
		if !found {
			best, found = c, true
			continue
		}
		if ord, err := version.Compare(c.VersionID, best.VersionID, scheme); err == nil && ord == version.Greater {
			best = c
		}
	}
	return best, found
}
