package source

import (
	"context"
	"fmt"

	"mcsm/internal/version"
)

// purpurAdapter talks to the PurpurMC downloads API (api.purpurmc.org/v2).
// Builds are plain integers; the API flags its own latest build.
type purpurAdapter struct {
	client *Client
}

func (a *purpurAdapter) Kind() Kind {
	return KindPurpur
}

func (a *purpurAdapter) Scheme() version.Scheme {
	return version.SchemeBuild
}

type purpurVersionDoc struct {
	Builds struct {
		Latest string   `json:"latest"`
		All    []string `json:"all"`
	} `json:"builds"`
}

type purpurBuildDoc struct {
	Build string `json:"build"`
	MD5   string `json:"md5"`
}

func (a *purpurAdapter) ListReleases(ctx context.Context, _ Params, gameVersion string) ([]Candidate, error) {
	url := fmt.Sprintf("%s/v2/purpur/%s", a.client.PurpurBase, gameVersion)
	var doc purpurVersionDoc
	if err := a.client.getJSON(ctx, url, &doc); err != nil {
		return nil, err
	}
	if len(doc.Builds.All) == 0 {
		return nil, fmt.Errorf("%w: purpur has no builds for %s", ErrNoReleases, gameVersion)
	}

	candidates := make([]Candidate, 0, len(doc.Builds.All))
	for _, build := range doc.Builds.All {
		candidates = append(candidates, Candidate{
			VersionID:   build,
			Scheme:      version.SchemeBuild,
			Recommended: build == doc.Builds.Latest,
			GameVersion: gameVersion,
			DownloadURL: fmt.Sprintf("%s/v2/purpur/%s/%s/download", a.client.PurpurBase, gameVersion, build),
			MetadataURL: fmt.Sprintf("%s/v2/purpur/%s/%s", a.client.PurpurBase, gameVersion, build),
			Filename:    fmt.Sprintf("purpur-%s-%s.jar", gameVersion, build),
		})
	}
	return candidates, nil
}

// ResolveDownload fetches the per-build document for its MD5 digest; the
// listing endpoint does not carry one.
func (a *purpurAdapter) ResolveDownload(ctx context.Context, c Candidate) (Download, error) {
	dl := Download{URL: c.DownloadURL, Filename: c.Filename, Size: c.Size}

	var doc purpurBuildDoc
	if err := a.client.getJSON(ctx, c.MetadataURL, &doc); err != nil {
		return Download{}, err
	}
	if doc.MD5 != "" {
		dl.Checksum = Checksum{Algo: ChecksumMD5, Hex: doc.MD5}
	}
	return dl, nil
}

// LatestGameVersion reports the newest Minecraft version Purpur publishes
// builds for.
func (a *purpurAdapter) LatestGameVersion(ctx context.Context) (string, error) {
	url := a.client.PurpurBase + "/v2/purpur/"
	var doc struct {
		Versions []string `json:"versions"`
	}
	if err := a.client.getJSON(ctx, url, &doc); err != nil {
		return "", err
	}
	if len(doc.Versions) == 0 {
		return "", fmt.Errorf("%w: purpur version list is empty", ErrNoReleases)
	}
	// The API appends versions in release order.
	return doc.Versions[len(doc.Versions)-1], nil
}
