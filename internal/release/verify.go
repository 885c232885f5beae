package release

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"

	sha256 "github.com/minio/sha256-simd"
	"go.uber.org/zap"

	"basespace-dl/internal/filestore"
)

// ChecksumError reports an artifact whose content does not match its record.
type ChecksumError struct {
	URL      string
	Expected string
	Actual   string
}

func (e *ChecksumError) Error() string {
	return fmt.Sprintf("checksum mismatch for %s: expected %s, got %s", e.URL, e.Expected, e.Actual)
}

// Verify hashes r and compares it with the artifact's recorded digest.
func Verify(r io.Reader, a Artifact) error {
	h := sha256.New()
	if _, err := io.Copy(h, r); err != nil {
		return err
	}
	if actual := hex.EncodeToString(h.Sum(nil)); actual != a.SHA256 {
		return &ChecksumError{URL: a.URL, Expected: a.SHA256, Actual: actual}
	}
	return nil
}

// Fetch downloads the artifact into dir as name. The file appears only once its
// digest matched; a mismatch leaves dir untouched and returns *ChecksumError.
func Fetch(ctx context.Context, client *http.Client, a Artifact, dir, name string) (string, error) {
	if client == nil {
		client = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.URL, nil)
	if err != nil {
		return "", err
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch %s: %w", a.URL, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetch %s: %s", a.URL, resp.Status)
	}

	res, err := filestore.SaveVerified(ctx, dir, name, resp.Body, a.SHA256)
	var mismatch *filestore.DigestMismatchError
	if errors.As(err, &mismatch) {
		return "", &ChecksumError{URL: a.URL, Expected: mismatch.Expected, Actual: mismatch.Actual}
	}
	if err != nil {
		return "", fmt.Errorf("fetch %s: %w", a.URL, err)
	}
	zap.L().Info("fetched release artifact", zap.String("url", a.URL), zap.Int64("bytes", res.SizeBytes))
	return res.Path, nil
}
