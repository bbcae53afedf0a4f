package source

import (
	"context"
	"fmt"

	"mcsm/internal/version"
)

// geyserAdapter talks to the GeyserMC downloads API (download.geysermc.org).
// The API exposes only the latest build per project version, so every
// listing has exactly one candidate and it is always recommended.
type geyserAdapter struct {
	client *Client
}

func (a *geyserAdapter) Kind() Kind {
	return KindGeyser
}

func (a *geyserAdapter) Scheme() version.Scheme {
	return version.SchemeRelease
}

type geyserBuildDoc struct {
	ProjectVersionID string `json:"version"`
	Build            int    `json:"build"`
	Downloads        map[string]struct {
		Name   string `json:"name"`
		SHA256 string `json:"sha256"`
	} `json:"downloads"`
}

func (a *geyserAdapter) ListReleases(ctx context.Context, params Params, _ string) ([]Candidate, error) {
	project := params.Project
	if project == "" {
		return nil, fmt.Errorf("geyser source requires a project name")
	}
	platform := params.Platform
	if platform == "" {
		platform = "spigot"
	}

	url := fmt.Sprintf("%s/v2/projects/%s/versions/latest/builds/latest", a.client.GeyserBase, project)
	var doc geyserBuildDoc
	if err := a.client.getJSON(ctx, url, &doc); err != nil {
		return nil, err
	}

	dl, ok := doc.Downloads[platform]
	if !ok {
		return nil, fmt.Errorf("%w: %s publishes no %s artifact", ErrNoReleases, project, platform)
	}

	cand := Candidate{
		// Builds restart per project version, so both parts go into the
		// identifier, build last so ordering stays numeric end to end.
		VersionID:   fmt.Sprintf("%s.%d", doc.ProjectVersionID, doc.Build),
		Scheme:      version.SchemeRelease,
		Recommended: true,
		DownloadURL: fmt.Sprintf("%s/v2/projects/%s/versions/latest/builds/latest/downloads/%s",
			a.client.GeyserBase, project, platform),
		Filename: dl.Name,
	}
	if dl.SHA256 != "" {
		cand.Checksum = Checksum{Algo: ChecksumSHA256, Hex: dl.SHA256}
	}
	return []Candidate{cand}, nil
}

func (a *geyserAdapter) ResolveDownload(_ context.Context, c Candidate) (Download, error) {
	return Download{URL: c.DownloadURL, Filename: c.Filename, Checksum: c.Checksum, Size: c.Size}, nil
}
