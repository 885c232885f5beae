package main

import (
	"context"
	"errors"
	"net"
	"net/http"

	"basespace-dl/internal/api"
	"basespace-dl/internal/choose"
	"basespace-dl/internal/filestore"
	"basespace-dl/internal/format"
	"basespace-dl/internal/release"
)

func formatCLIError(err error) []string {
	if err == nil {
		return nil
	}

	lines := []string{format.ErrorTag() + " " + err.Error()}

	var apiErr *api.APIError
	if errors.As(err, &apiErr) {
		if apiErr.Unauthorized() {
			lines = append(lines,
				hint("BaseSpace rejected an access token; check the tokens in your accounts file."),
				hint("list configured accounts with: basespace-dl accounts list"),
			)
		}
		if apiErr.Status == http.StatusTooManyRequests {
			lines = append(lines, hint("BaseSpace is rate limiting requests; retry shortly or lower concurrency."))
		}
		if apiErr.Status == http.StatusNotFound && apiErr.Code == "" {
			lines = append(lines, hint("verify api_url or BASESPACE_DL_API_URL points to the BaseSpace v1pre3 API."))
		}
		if apiErr.Status >= 500 {
			lines = append(lines, hint("BaseSpace returned an internal error; retry later."))
		}
		return uniqueLines(lines)
	}

	if errors.Is(err, context.DeadlineExceeded) {
		lines = append(lines, hint("request timed out; increase http_timeout or BASESPACE_DL_HTTP_TIMEOUT."))
		return uniqueLines(lines)
	}

	var sizeErr *filestore.SizeMismatchError
	if errors.As(err, &sizeErr) {
		lines = append(lines, hint("the transfer ended early; rerun with --skip-existing to fetch only the missing files."))
		return uniqueLines(lines)
	}

	var sumErr *release.ChecksumError
	if errors.As(err, &sumErr) {
		lines = append(lines, hint("the archive does not match the release record and was not installed."))
		return uniqueLines(lines)
	}

	if errors.Is(err, choose.ErrNoInput) || errors.Is(err, errNotInteractive) {
		lines = append(lines, hint("choices are read from an interactive terminal; do not combine them with --select-files -."))
		return uniqueLines(lines)
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		lines = append(lines,
			hint("check network connectivity to the BaseSpace API."),
			hint("you can increase BASESPACE_DL_HTTP_TIMEOUT for slow connections."),
		)
		return uniqueLines(lines)
	}

	return uniqueLines(lines)
}

func hint(text string) string {
	return format.HintTag() + " " + text
}

func uniqueLines(lines []string) []string {
	seen := make(map[string]struct{}, len(lines))
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		if line == "" {
			continue
		}
		if _, ok := seen[line]; ok {
			continue
		}
		seen[line] = struct{}{}
		out = append(out, line)
	}
	return out
}
