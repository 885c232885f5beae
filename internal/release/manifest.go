// Package release holds the published basespace-dl release records and the
// logic to pick, verify and install a release artifact.
package release

import (
	_ "embed"
	"errors"
	"fmt"

	"github.com/BurntSushi/toml"
	"github.com/Masterminds/semver/v3"
)

//go:embed releases.toml
var manifestData []byte

const (
	OSDarwin = "darwin"
	OSLinux  = "linux"
)

// SupportedOS lists the platform families every release must cover.
var SupportedOS = []string{OSDarwin, OSLinux}

// ErrUnsupportedPlatform is returned for an OS no release artifact targets.
var ErrUnsupportedPlatform = errors.New("unsupported platform")

// Artifact is the prebuilt archive of one release for one platform family.
type Artifact struct {
	OS     string `toml:"os" json:"os" yaml:"os"`
	Target string `toml:"target" json:"target" yaml:"target"`
	URL    string `toml:"url" json:"url" yaml:"url"`
	SHA256 string `toml:"sha256" json:"sha256" yaml:"sha256"`
}

// Release is one published version.
type Release struct {
	Version     string     `toml:"version" json:"version" yaml:"version"`
	Description string     `toml:"description" json:"description" yaml:"description"`
	Binary      string     `toml:"binary" json:"binary" yaml:"binary"`
	Artifacts   []Artifact `toml:"artifact" json:"artifacts" yaml:"artifacts"`
}

// Manifest is the ordered release history.
type Manifest struct {
	Releases []Release `toml:"release" json:"releases" yaml:"releases"`
}

// Load parses and validates the embedded manifest.
func Load() (*Manifest, error) {
	return Parse(manifestData)
}

// Parse decodes a TOML manifest and validates it.
func Parse(data []byte) (*Manifest, error) {
	var m Manifest
	md, err := toml.Decode(string(data), &m)
	if err != nil {
		return nil, fmt.Errorf("parse release manifest: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("parse release manifest: unknown key %q", undecoded[0].String())
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// Find returns the release with the given version.
func (m *Manifest) Find(version string) (Release, error) {
	for _, r := range m.Releases {
		if r.Version == version {
			return r, nil
		}
	}
	return Release{}, fmt.Errorf("no release %q", version)
}

// Latest returns the release with the highest semantic version.
func (m *Manifest) Latest() (Release, error) {
	var (
		best    Release
		bestVer *semver.Version
	)
	for _, r := range m.Releases {
		v, err := semver.StrictNewVersion(r.Version)
		if err != nil {
			return Release{}, fmt.Errorf("release %q: %w", r.Version, err)
		}
		if bestVer == nil || v.GreaterThan(bestVer) {
			best, bestVer = r, v
		}
	}
	if bestVer == nil {
		return Release{}, errors.New("release manifest is empty")
	}
	return best, nil
}

// ForPlatform returns the single artifact built for goos.
func (r Release) ForPlatform(goos string) (Artifact, error) {
	var found []Artifact
	for _, a := range r.Artifacts {
		if a.OS == goos {
			found = append(found, a)
		}
	}
	switch len(found) {
	case 0:
		return Artifact{}, fmt.Errorf("%w: %s (release %s)", ErrUnsupportedPlatform, goos, r.Version)
	case 1:
		return found[0], nil
	default:
		return Artifact{}, fmt.Errorf("release %s has %d artifacts for %s", r.Version, len(found), goos)
	}
}

// FileName is the archive name at the end of the artifact URL.
func (a Artifact) FileName(binary, version string) string {
	return fmt.Sprintf("%s-%s-%s.zip", binary, version, a.Target)
}
