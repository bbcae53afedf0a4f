package engine

import (
	"errors"

	"mcsm/internal/source"
	"mcsm/internal/version"
)

// ErrUnresolvable marks a component for which no installable candidate
// exists: nothing published, nothing compatible, or nothing rankable.
var ErrUnresolvable = errors.New("no installable candidate")

// ErrIntegrity marks a downloaded artifact whose digest or size does not
// match what the source published. The staged file is discarded; the live
// artifact is never touched.
var ErrIntegrity = errors.New("artifact integrity mismatch")

// ErrInstall marks a failure while swapping the verified artifact into
// place.
var ErrInstall = errors.New("install failed")

// FailureKind classifies a per-component failure for reporting. One
// component failing never aborts the others.
type FailureKind string

const (
	FailNone             FailureKind = ""
	FailUnknownSource    FailureKind = "unknown-source"
	FailTransport        FailureKind = "transport"
	FailAmbiguousVersion FailureKind = "ambiguous-version"
	FailUnresolvable     FailureKind = "unresolvable"
	FailIntegrity        FailureKind = "integrity-mismatch"
	FailInstall          FailureKind = "install-failed"
	FailInternal         FailureKind = "internal"
)

// Classify maps an error chain onto its failure kind. Sentinels are checked
// most-specific first; anything unrecognized is internal.
func Classify(err error) FailureKind {
	switch {
	case err == nil:
		return FailNone
	case errors.Is(err, source.ErrUnknownSource):
		return FailUnknownSource
	case errors.Is(err, version.ErrAmbiguous):
		return FailAmbiguousVersion
	case errors.Is(err, ErrIntegrity):
		return FailIntegrity
	case errors.Is(err, ErrInstall):
		return FailInstall
	case errors.Is(err, source.ErrNoReleases), errors.Is(err, ErrUnresolvable):
		return FailUnresolvable
	}
	var te *source.TransportError
	if errors.As(err, &te) {
		return FailTransport
	}
	return FailInternal
}
