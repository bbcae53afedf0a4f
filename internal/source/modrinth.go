package source

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"mcsm/internal/version"
)

// modrinthAdapter talks to the Modrinth v2 API. Loader and game-version
// filters are passed server-side as JSON-encoded query arrays; channel
// filtering (release/beta/alpha) happens client-side on version_type.
type modrinthAdapter struct {
	client *Client
}

func (a *modrinthAdapter) Kind() Kind {
	return KindModrinth
}

func (a *modrinthAdapter) Scheme() version.Scheme {
	return version.SchemeRelease
}

type modrinthFileDoc struct {
	URL      string `json:"url"`
	Filename string `json:"filename"`
	Primary  bool   `json:"primary"`
	Size     int64  `json:"size"`
	Hashes   struct {
		SHA512 string `json:"sha512"`
		SHA1   string `json:"sha1"`
	} `json:"hashes"`
}

type modrinthVersionDoc struct {
	ID            string            `json:"id"`
	VersionNumber string            `json:"version_number"`
	VersionType   string            `json:"version_type"`
	Featured      bool              `json:"featured"`
	GameVersions  []string          `json:"game_versions"`
	Files         []modrinthFileDoc `json:"files"`
}

func (a *modrinthAdapter) ListReleases(ctx context.Context, params Params, gameVersion string) ([]Candidate, error) {
	if params.Slug == "" {
		return nil, fmt.Errorf("modrinth source requires a project slug")
	}
	channel := params.Channel
	if channel == "" {
		channel = "release"
	}

	listURL, err := a.versionsURL(params, gameVersion)
	if err != nil {
		return nil, err
	}

	var versions []modrinthVersionDoc
	if err := a.client.getJSON(ctx, listURL, &versions); err != nil {
		return nil, err
	}
	if len(versions) == 0 {
		return nil, fmt.Errorf("%w: modrinth project %s has no versions for %s", ErrNoReleases, params.Slug, gameVersion)
	}

	candidates := make([]Candidate, 0, len(versions))
	for _, v := range versions {
		if v.VersionType != channel {
			continue
		}
		file, ok := primaryFile(v.Files)
		if !ok {
			continue
		}
		cand := Candidate{
			VersionID:    v.VersionNumber,
			Scheme:       version.SchemeRelease,
			Recommended:  v.Featured,
			GameVersions: v.GameVersions,
			DownloadURL:  file.URL,
			Filename:     file.Filename,
			Size:         file.Size,
		}
		if file.Hashes.SHA512 != "" {
			cand.Checksum = Checksum{Algo: ChecksumSHA512, Hex: file.Hashes.SHA512}
		}
		candidates = append(candidates, cand)
	}
	if len(candidates) == 0 {
		return nil, fmt.Errorf("%w: modrinth project %s has no %s versions for %s",
			ErrNoReleases, params.Slug, channel, gameVersion)
	}
	return candidates, nil
}

func (a *modrinthAdapter) versionsURL(params Params, gameVersion string) (string, error) {
	q := url.Values{}
	if len(params.Loaders) > 0 {
		enc, err := json.Marshal(params.Loaders)
		if err != nil {
			return "", err
		}
		q.Set("loaders", string(enc))
	}
	if gameVersion != "" {
		enc, err := json.Marshal([]string{gameVersion})
		if err != nil {
			return "", err
		}
		q.Set("game_versions", string(enc))
	}

	u := fmt.Sprintf("%s/v2/project/%s/version", a.client.ModrinthBase, url.PathEscape(params.Slug))
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	return u, nil
}

func primaryFile(files []modrinthFileDoc) (modrinthFileDoc, bool) {
	for _, f := range files {
		if f.Primary {
			return f, true
		}
	}
	if len(files) > 0 {
		return files[0], true
	}
	return modrinthFileDoc{}, false
}

func (a *modrinthAdapter) ResolveDownload(_ context.Context, c Candidate) (Download, error) {
	return Download{URL: c.DownloadURL, Filename: c.Filename, Checksum: c.Checksum, Size: c.Size}, nil
}
