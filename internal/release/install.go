package release

import (
	"context"
	"fmt"
	"os"
	"path"

	"github.com/klauspost/compress/zip"

	"basespace-dl/internal/filestore"
)

const binPerm = 0o755

// Install extracts binary from the zip archive at archivePath into binDir and
// marks it executable. It returns the installed path.
func Install(ctx context.Context, archivePath, binDir, binary string) (string, error) {
	info, err := os.Stat(binDir)
	if err != nil {
		return "", fmt.Errorf("bin dir: %w", err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("%s is not a directory", binDir)
	}

	r, err := zip.OpenReader(archivePath)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", archivePath, err)
	}
	defer func() { _ = r.Close() }()

	var entry *zip.File
	for _, f := range r.File {
		if f.FileInfo().IsDir() || path.Base(f.Name) != binary {
			continue
		}
		if entry != nil {
			return "", fmt.Errorf("%s contains more than one %s", archivePath, binary)
		}
		entry = f
	}
	if entry == nil {
		return "", fmt.Errorf("%s does not contain %s", archivePath, binary)
	}

	rc, err := entry.Open()
	if err != nil {
		return "", err
	}
	defer func() { _ = rc.Close() }()

	res, err := filestore.Save(ctx, binDir, binary, rc, int64(entry.UncompressedSize64))
	if err != nil {
		return "", fmt.Errorf("install %s: %w", binary, err)
	}
	if err := os.Chmod(res.Path, binPerm); err != nil {
		return "", err
	}
	return res.Path, nil
}
