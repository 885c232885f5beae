package main

import (
	"io"
	"net/http"
	"os"
	"runtime"

	"github.com/adrg/xdg"
	"github.com/spf13/cobra"

	"basespace-dl/internal/release"
)

func newReleaseCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "release",
		Short: "Inspect, verify and install published releases",
	}

	cmd.AddCommand(
		newReleaseListCmd(a),
		newReleaseCheckCmd(),
		newReleaseVerifyCmd(),
		newReleaseInstallCmd(),
	)
	return cmd
}

func newReleaseListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List published releases",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := release.Load()
			if err != nil {
				return err
			}
			return writeOutput(cmd.OutOrStdout(), a.formatter, m, func(w io.Writer) error {
				for _, r := range m.Releases {
					if err := writePlain(w, "%s  %s\n", r.Version, r.Description); err != nil {
						return err
					}
					for _, art := range r.Artifacts {
						if err := writePlain(w, "  %-6s %s\n         sha256 %s\n", art.OS, art.URL, art.SHA256); err != nil {
							return err
						}
					}
				}
				return nil
			})
		},
	}
}

func newReleaseCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Validate the release manifest",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := release.Load()
			if err != nil {
				return err
			}
			latest, err := m.Latest()
			if err != nil {
				return err
			}
			return writePlain(cmd.OutOrStdout(), "ok: %d releases, latest %s\n", len(m.Releases), latest.Version)
		},
	}
}

// pickArtifact selects the release (latest when version is empty) and the
// artifact built for goos.
func pickArtifact(version, goos string) (release.Release, release.Artifact, error) {
	m, err := release.Load()
	if err != nil {
		return release.Release{}, release.Artifact{}, err
	}
	var r release.Release
	if version == "" {
		r, err = m.Latest()
	} else {
		r, err = m.Find(version)
	}
	if err != nil {
		return release.Release{}, release.Artifact{}, err
	}
	art, err := r.ForPlatform(goos)
	if err != nil {
		return release.Release{}, release.Artifact{}, err
	}
	return r, art, nil
}

func newReleaseVerifyCmd() *cobra.Command {
	var (
		version string
		goos    string
		file    string
	)

	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Check a release archive against its recorded checksum",
		Long: "Check a release archive against its recorded checksum. Without --file the\n" +
			"archive is downloaded from its release URL.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, art, err := pickArtifact(version, goos)
			if err != nil {
				return err
			}

			if file != "" {
				f, err := os.Open(file)
				if err != nil {
					return err
				}
				defer f.Close()
				if err := release.Verify(f, art); err != nil {
					return err
				}
				return writePlain(cmd.OutOrStdout(), "verified %s (sha256 %s)\n", file, art.SHA256)
			}

			tmp, err := os.MkdirTemp("", "basespace-dl-release-")
			if err != nil {
				return err
			}
			defer os.RemoveAll(tmp)
			if _, err := release.Fetch(cmd.Context(), http.DefaultClient, art, tmp, "artifact.zip"); err != nil {
				return err
			}
			return writePlain(cmd.OutOrStdout(), "verified %s (sha256 %s)\n", art.URL, art.SHA256)
		},
	}

	cmd.Flags().StringVar(&version, "version", "", "release version (default latest)")
	cmd.Flags().StringVar(&goos, "os", runtime.GOOS, "platform family (darwin, linux)")
	cmd.Flags().StringVar(&file, "file", "", "verify a local archive instead of downloading it")
	return cmd
}

func newReleaseInstallCmd() *cobra.Command {
	var (
		version string
		binDir  string
	)

	cmd := &cobra.Command{
		Use:   "install",
		Short: "Download, verify and install a release binary",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			r, art, err := pickArtifact(version, runtime.GOOS)
			if err != nil {
				return err
			}

			tmp, err := os.MkdirTemp("", "basespace-dl-release-")
			if err != nil {
				return err
			}
			defer os.RemoveAll(tmp)

			archive, err := release.Fetch(cmd.Context(), http.DefaultClient, art, tmp, art.FileName(r.Binary, r.Version))
			if err != nil {
				return err
			}
			if err := os.MkdirAll(binDir, 0o755); err != nil {
				return err
			}
			path, err := release.Install(cmd.Context(), archive, binDir, r.Binary)
			if err != nil {
				return err
			}
			return writePlain(cmd.OutOrStdout(), "installed %s %s to %s\n", r.Binary, r.Version, path)
		},
	}

	cmd.Flags().StringVar(&version, "version", "", "release version (default latest)")
	cmd.Flags().StringVar(&binDir, "bin-dir", xdg.BinHome, "directory to install the binary into")
	return cmd
}
