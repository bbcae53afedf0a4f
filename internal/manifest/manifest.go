// Package manifest persists what is actually installed in a server
// directory. The manifest is the single source of truth for installed
// versions; remote listings are consulted against it, never the reverse.
package manifest

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"
)

// Schema is bumped when the on-disk layout changes incompatibly.
const Schema = 1

// ErrCorrupt marks a manifest file that exists but cannot be decoded.
// Loading never returns a partial manifest.
var ErrCorrupt = errors.New("manifest is corrupt")

// Record is one installed artifact.
type Record struct {
	Component   string    `json:"component"`
	Kind        string    `json:"kind"`
	Source      string    `json:"source"`
	VersionID   string    `json:"version_id"`
	GameVersion string    `json:"game_version,omitempty"`
	SHA256      string    `json:"sha256"`
	Size        int64     `json:"size"`
	URL         string    `json:"url,omitempty"`
	Path        string    `json:"path"`
	InstalledAt time.Time `json:"installed_at"`
}

// Manifest maps component identifiers to their installed records. Paths in
// records are relative to the server root so the directory stays portable.
type Manifest struct {
	Schema  int               `json:"schema"`
	Entries map[string]Record `json:"entries"`
}

func New() *Manifest {
	return &Manifest{Schema: Schema, Entries: map[string]Record{}}
}

// Load reads the manifest at path. A missing file is an empty manifest; a
// present but undecodable file is ErrCorrupt.
func Load(path string) (*Manifest, error) {
	raw, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return New(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}

	var m Manifest
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorrupt, path, err)
	}
	if m.Schema > Schema {
		return nil, fmt.Errorf("%w: %s: schema %d is newer than this build understands", ErrCorrupt, path, m.Schema)
	}
	if m.Entries == nil {
		m.Entries = map[string]Record{}
	}
	return &m, nil
}

// Save writes the manifest atomically. The temp file lives in the manifest's
// own directory so the rename never crosses filesystems.
func (m *Manifest) Save(path string) error {
	m.Schema = Schema
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("encode manifest: %w", err)
	}
	data = append(data, '\n')

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create manifest dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".manifest-*.json")
	if err != nil {
		return fmt.Errorf("create temp manifest: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write temp manifest: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp manifest: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("commit manifest: %w", err)
	}
	return nil
}

// Get returns the record for a component, if installed.
func (m *Manifest) Get(component string) (Record, bool) {
	r, ok := m.Entries[component]
	return r, ok
}

// Set records a component as installed.
func (m *Manifest) Set(r Record) {
	m.Entries[r.Component] = r
}

// Delete forgets a component. Deleting an absent component is a no-op.
func (m *Manifest) Delete(component string) {
	delete(m.Entries, component)
}

// Components returns the recorded component identifiers in sorted order.
func (m *Manifest) Components() []string {
	names := make([]string, 0, len(m.Entries))
	for name := range m.Entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Verify checks every record against the files under root and drops the
// ones whose artifact is missing or no longer matches its recorded digest.
// Dropped records make the component eligible for reinstallation instead of
// being trusted as current. Returns the demoted component names.
func (m *Manifest) Verify(root string) []string {
	var demoted []string
	for name, rec := range m.Entries {
		abs := filepath.Join(root, filepath.FromSlash(rec.Path))
		sum, err := HashFile(abs)
		if err != nil || (rec.SHA256 != "" && sum != rec.SHA256) {
			delete(m.Entries, name)
			demoted = append(demoted, name)
		}
	}
	sort.Strings(demoted)
	return demoted
}

// HashFile returns the hex sha256 of a file's contents.
func HashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
