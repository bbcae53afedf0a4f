// Package source integrates the remote release APIs a server directory can
// declare components against. Dispatch is a closed enumeration of adapter
// kinds; free-form identifiers (Modrinth slugs, Geyser project names) are
// parameters, never control flow.
package source

import (
	"context"
	"errors"
	"fmt"

	"mcsm/internal/version"
)

// Kind enumerates the supported adapters.
type Kind string

const (
	KindPurpur   Kind = "purpur"
	KindPaper    Kind = "paper"
	KindGeyser   Kind = "geyser"
	KindModrinth Kind = "modrinth"
)

// ErrUnknownSource marks a configuration that references an adapter that
// does not exist. It fails only the component that declared it.
var ErrUnknownSource = errors.New("unknown source adapter")

// ErrNoReleases marks a listing that produced no candidates at all (remote
// has nothing for the requested game version, or the project is unknown).
var ErrNoReleases = errors.New("no releases available")

// Params carries the adapter-specific component parameters from
// configuration.
type Params struct {
	// Modrinth
	Slug    string
	Loaders []string
	// GeyserMC
	Project  string
	Platform string
	// Release channel preference where the adapter supports one
	// (modrinth: release|beta|alpha).
	Channel string
}

// ChecksumAlgo names a digest algorithm a source publishes for its
// artifacts.
type ChecksumAlgo string

const (
	ChecksumSHA256 ChecksumAlgo = "sha256"
	ChecksumSHA512 ChecksumAlgo = "sha512"
	ChecksumMD5    ChecksumAlgo = "md5"
)

// Checksum is an expected artifact digest. A zero value means the source
// did not publish one.
type Checksum struct {
	Algo ChecksumAlgo
	Hex  string
}

// Empty reports whether the source supplied no digest.
func (c Checksum) Empty() bool {
	return c.Hex == ""
}

func (c Checksum) String() string {
	if c.Empty() {
		return "(none)"
	}
	return string(c.Algo) + ":" + c.Hex
}

// Candidate describes one available remote release. Produced per query,
// never persisted.
type Candidate struct {
	VersionID   string
	Scheme      version.Scheme
	Recommended bool
	GameVersion string
	// GameVersions is the candidate's advertised compatibility list;
	// empty means the source filtered server-side.
	GameVersions []string
	DownloadURL  string
	// MetadataURL, when set, is fetched by ResolveDownload to obtain the
	// artifact digest the listing endpoint does not carry.
	MetadataURL string
	Filename    string
	Checksum    Checksum
	Size        int64
}

// Download is the concrete descriptor handed to the fetch step.
type Download struct {
	URL      string
	Filename string
	Checksum Checksum
	Size     int64
}

// Adapter is the capability set every source implements: list the available
// releases for a query, and resolve a chosen release to a download
// descriptor. Both perform network I/O only; neither touches local state.
type Adapter interface {
	Kind() Kind
	Scheme() version.Scheme
	ListReleases(ctx context.Context, params Params, gameVersion string) ([]Candidate, error)
	ResolveDownload(ctx context.Context, c Candidate) (Download, error)
}

// GameVersionLister is implemented by the server-platform adapters, which
// can report the newest Minecraft version their project publishes builds
// for.
type GameVersionLister interface {
	LatestGameVersion(ctx context.Context) (string, error)
}

// ForKind returns the adapter for a declared source name.
func ForKind(kind Kind, client *Client) (Adapter, error) {
	switch kind {
	case KindPurpur:
		return &purpurAdapter{client: client}, nil
	case KindPaper:
		return &paperAdapter{client: client}, nil
	case KindGeyser:
		return &geyserAdapter{client: client}, nil
	case KindModrinth:
		return &modrinthAdapter{client: client}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownSource, kind)
	}
}
