package source

import (
	"context"
	"fmt"
	"sort"
	"strconv"

	"mcsm/internal/version"
)

// paperAdapter talks to PaperMC. Fill v3 (fill.papermc.io) is the preferred
// endpoint; the legacy v2 API (api.papermc.io) is an independent fallback
// behind the same capability surface.
type paperAdapter struct {
	client *Client
}

func (a *paperAdapter) Kind() Kind {
	return KindPaper
}

func (a *paperAdapter) Scheme() version.Scheme {
	return version.SchemeBuild
}

type fillBuildDoc struct {
	ID        int    `json:"id"`
	Channel   string `json:"channel"`
	Downloads map[string]struct {
		Name      string `json:"name"`
		URL       string `json:"url"`
		Size      int64  `json:"size"`
		Checksums struct {
			SHA256 string `json:"sha256"`
		} `json:"checksums"`
	} `json:"downloads"`
}

func (a *paperAdapter) ListReleases(ctx context.Context, _ Params, gameVersion string) ([]Candidate, error) {
	candidates, fillErr := a.listFillV3(ctx, gameVersion)
	if fillErr == nil {
		return candidates, nil
	}

	candidates, v2Err := a.listV2(ctx, gameVersion)
	if v2Err != nil {
		return nil, fmt.Errorf("paper fill v3 failed (%v); v2 fallback: %w", fillErr, v2Err)
	}
	return candidates, nil
}

func (a *paperAdapter) listFillV3(ctx context.Context, gameVersion string) ([]Candidate, error) {
	url := fmt.Sprintf("%s/v3/projects/paper/versions/%s/builds", a.client.FillBase, gameVersion)
	var builds []fillBuildDoc
	if err := a.client.getJSON(ctx, url, &builds); err != nil {
		return nil, err
	}
	if len(builds) == 0 {
		return nil, fmt.Errorf("%w: fill v3 has no builds for %s", ErrNoReleases, gameVersion)
	}

	// Fill returns newest first; the newest STABLE build is the channel's
	// recommendation.
	recommended := -1
	for i, b := range builds {
		if b.Channel == "STABLE" {
			recommended = i
			break
		}
	}

	candidates := make([]Candidate, 0, len(builds))
	for i, b := range builds {
		dl, ok := b.Downloads["server:default"]
		if !ok || dl.URL == "" {
			continue
		}
		cand := Candidate{
			VersionID:   strconv.Itoa(b.ID),
			Scheme:      version.SchemeBuild,
			Recommended: i == recommended,
			GameVersion: gameVersion,
			DownloadURL: dl.URL,
			Filename:    dl.Name,
			Size:        dl.Size,
		}
		if dl.Checksums.SHA256 != "" {
			cand.Checksum = Checksum{Algo: ChecksumSHA256, Hex: dl.Checksums.SHA256}
		}
		candidates = append(candidates, cand)
	}
	if len(candidates) == 0 {
		return nil, fmt.Errorf("%w: fill v3 builds carry no server:default download", ErrNoReleases)
	}
	return candidates, nil
}

func (a *paperAdapter) listV2(ctx context.Context, gameVersion string) ([]Candidate, error) {
	url := fmt.Sprintf("%s/v2/projects/paper/versions/%s", a.client.PaperBase, gameVersion)
	var doc struct {
		Builds []int `json:"builds"`
	}
	if err := a.client.getJSON(ctx, url, &doc); err != nil {
		return nil, err
	}
	if len(doc.Builds) == 0 {
		return nil, fmt.Errorf("%w: paper v2 has no builds for %s", ErrNoReleases, gameVersion)
	}

	latest := doc.Builds[len(doc.Builds)-1]
	candidates := make([]Candidate, 0, len(doc.Builds))
	for _, b := range doc.Builds {
		candidates = append(candidates, Candidate{
			VersionID:   strconv.Itoa(b),
			Scheme:      version.SchemeBuild,
			Recommended: b == latest,
			GameVersion: gameVersion,
			DownloadURL: fmt.Sprintf("%s/v2/projects/paper/versions/%s/builds/%d/downloads/paper-%s-%d.jar",
				a.client.PaperBase, gameVersion, b, gameVersion, b),
			MetadataURL: fmt.Sprintf("%s/v2/projects/paper/versions/%s/builds/%d", a.client.PaperBase, gameVersion, b),
			Filename:    fmt.Sprintf("paper-%s-%d.jar", gameVersion, b),
		})
	}
	return candidates, nil
}

func (a *paperAdapter) ResolveDownload(ctx context.Context, c Candidate) (Download, error) {
	dl := Download{URL: c.DownloadURL, Filename: c.Filename, Checksum: c.Checksum, Size: c.Size}
	if !dl.Checksum.Empty() || c.MetadataURL == "" {
		return dl, nil
	}

	// v2 candidates: the per-build document carries the sha256.
	var doc struct {
		Downloads struct {
			Application struct {
				Name   string `json:"name"`
				SHA256 string `json:"sha256"`
			} `json:"application"`
		} `json:"downloads"`
	}
	if err := a.client.getJSON(ctx, c.MetadataURL, &doc); err != nil {
		return Download{}, err
	}
	if doc.Downloads.Application.SHA256 != "" {
		dl.Checksum = Checksum{Algo: ChecksumSHA256, Hex: doc.Downloads.Application.SHA256}
	}
	return dl, nil
}

// LatestGameVersion reports the newest Minecraft version Paper publishes
// builds for, preferring Fill v3.
func (a *paperAdapter) LatestGameVersion(ctx context.Context) (string, error) {
	if v, err := a.latestFillV3(ctx); err == nil {
		return v, nil
	}

	url := a.client.PaperBase + "/v2/projects/paper"
	var doc struct {
		Versions []string `json:"versions"`
	}
	if err := a.client.getJSON(ctx, url, &doc); err != nil {
		return "", err
	}
	if len(doc.Versions) == 0 {
		return "", fmt.Errorf("%w: paper version list is empty", ErrNoReleases)
	}
	return doc.Versions[len(doc.Versions)-1], nil
}

func (a *paperAdapter) latestFillV3(ctx context.Context) (string, error) {
	url := a.client.FillBase + "/v3/projects/paper"
	var doc struct {
		Versions map[string][]string `json:"versions"`
	}
	if err := a.client.getJSON(ctx, url, &doc); err != nil {
		return "", err
	}

	var all []string
	for _, group := range doc.Versions {
		all = append(all, group...)
	}
	if len(all) == 0 {
		return "", fmt.Errorf("%w: fill v3 version map is empty", ErrNoReleases)
	}

	sort.Slice(all, func(i, j int) bool {
		ord, err := version.Compare(all[i], all[j], version.SchemeRelease)
		if err != nil {
			return all[i] < all[j]
		}
		return ord == version.Greater
	})
	return all[0], nil
}
