package release

import (
	"errors"
	"fmt"
	"regexp"
	"slices"
	"strings"

	"github.com/Masterminds/semver/v3"
)

var sha256Pattern = regexp.MustCompile(`^[0-9a-f]{64}$`)

// Validate checks every release record and returns all problems found.
func (m *Manifest) Validate() error {
	if len(m.Releases) == 0 {
		return errors.New("release manifest is empty")
	}
	var errs []error
	seen := map[string]bool{}
	for _, r := range m.Releases {
		if seen[r.Version] {
			errs = append(errs, fmt.Errorf("release %q: duplicate version", r.Version))
		}
		seen[r.Version] = true
		if err := r.Validate(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Validate checks one release record.
func (r Release) Validate() error {
	var errs []error
	fail := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("release %q: "+format, append([]any{r.Version}, args...)...))
	}

	if _, err := semver.StrictNewVersion(r.Version); err != nil {
		fail("invalid version: %v", err)
	}
	if strings.TrimSpace(r.Binary) == "" {
		fail("binary name is required")
	}

	count := map[string]int{}
	for _, a := range r.Artifacts {
		count[a.OS]++
		if !slices.Contains(SupportedOS, a.OS) {
			fail("unsupported platform %q", a.OS)
			continue
		}
		if err := a.validate(r.Binary, r.Version); err != nil {
			fail("%s artifact: %v", a.OS, err)
		}
	}
	for _, goos := range SupportedOS {
		if count[goos] != 1 {
			fail("expected exactly one %s artifact, found %d", goos, count[goos])
		}
	}
	return errors.Join(errs...)
}

func (a Artifact) validate(binary, version string) error {
	if a.Target == "" {
		return errors.New("target is required")
	}
	if !sha256Pattern.MatchString(a.SHA256) {
		return fmt.Errorf("sha256 %q is not a 64 character lowercase hex digest", a.SHA256)
	}
	if !strings.HasPrefix(a.URL, "https://") {
		return fmt.Errorf("url %q must use https", a.URL)
	}
	suffix := "/releases/download/" + version + "/" + a.FileName(binary, version)
	if !strings.HasSuffix(a.URL, suffix) {
		return fmt.Errorf("url %q does not end in %q", a.URL, suffix)
	}
	return nil
}
