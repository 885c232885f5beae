package filestore

import (
	"context"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	sha256 "github.com/minio/sha256-simd"
)

const filePerm = 0o644

// SaveResult describes one file committed to disk.
type SaveResult struct {
	Path      string
	SizeBytes int64
	SHA256    string
}

// SizeMismatchError reports a download that ended short or long.
type SizeMismatchError struct {
	Name     string
	Expected int64
	Actual   int64
}

func (e *SizeMismatchError) Error() string {
	return fmt.Sprintf("%s: expected %d bytes, received %d", e.Name, e.Expected, e.Actual)
}

// DigestMismatchError reports content whose SHA-256 differs from the expected one.
type DigestMismatchError struct {
	Name     string
	Expected string
	Actual   string
}

func (e *DigestMismatchError) Error() string {
	return fmt.Sprintf("%s: checksum mismatch: expected sha256 %s, got %s", e.Name, e.Expected, e.Actual)
}

// Save streams r into dir/name through a temp file in dir and renames it into
// place only after the copy succeeded. A negative expectedSize skips the size check.
func Save(ctx context.Context, dir, name string, r io.Reader, expectedSize int64) (SaveResult, error) {
	return save(ctx, dir, name, r, expectedSize, "")
}

// SaveVerified is Save for content with a known SHA-256. Nothing is written to
// dir/name unless the digest of r equals wantSHA256.
func SaveVerified(ctx context.Context, dir, name string, r io.Reader, wantSHA256 string) (SaveResult, error) {
	if wantSHA256 == "" {
		return SaveResult{}, fmt.Errorf("expected checksum is required")
	}
	return save(ctx, dir, name, r, -1, strings.ToLower(wantSHA256))
}

func save(ctx context.Context, dir, name string, r io.Reader, expectedSize int64, wantSHA256 string) (SaveResult, error) {
	var zero SaveResult
	if r == nil {
		return zero, fmt.Errorf("reader is required")
	}
	if err := ValidateName(name); err != nil {
		return zero, err
	}
	if err := ctx.Err(); err != nil {
		return zero, err
	}

	tmp, err := os.CreateTemp(dir, "."+name+".part-*")
	if err != nil {
		return zero, err
	}
	tmpPath := tmp.Name()
	cleanup := func() {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
	}

	h := sha256.New()
	n, err := io.Copy(io.MultiWriter(tmp, h), &contextReader{ctx: ctx, r: r})
	if err != nil {
		cleanup()
		return zero, err
	}
	if expectedSize >= 0 && n != expectedSize {
		cleanup()
		return zero, &SizeMismatchError{Name: name, Expected: expectedSize, Actual: n}
	}
	digest := hex.EncodeToString(h.Sum(nil))
	if wantSHA256 != "" && digest != wantSHA256 {
		cleanup()
		return zero, &DigestMismatchError{Name: name, Expected: wantSHA256, Actual: digest}
	}
	if err := tmp.Chmod(filePerm); err != nil {
		cleanup()
		return zero, err
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return zero, err
	}

	dst := filepath.Join(dir, name)
	if err := os.Rename(tmpPath, dst); err != nil {
		_ = os.Remove(tmpPath)
		return zero, err
	}

	return SaveResult{Path: dst, SizeBytes: n, SHA256: digest}, nil
}

// ValidateName rejects names that would escape the destination directory.
// Dots inside a name are fine; only "." and ".." themselves are refused.
func ValidateName(name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("file name is required")
	}
	if strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("invalid file name %q: contains a path separator", name)
	}
	if name == "." || name == ".." {
		return fmt.Errorf("invalid file name %q", name)
	}
	return nil
}

// SizeOf returns the size of the file at path, or -1 when it does not exist.
func SizeOf(path string) (int64, error) {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return -1, nil
	}
	if err != nil {
		return 0, err
	}
	if info.IsDir() {
		return -1, nil
	}
	return info.Size(), nil
}

// contextReader stops a long copy once ctx is cancelled.
type contextReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *contextReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
