package format

import (
	"regexp"

	"github.com/dustin/go-humanize"
)

var datePrefix = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}`)

// Bytes renders a byte count with SI units, e.g. "1.5 MB".
func Bytes(n int64) string {
	if n < 0 {
		return "?"
	}
	return humanize.Bytes(uint64(n))
}

// DatePrefix returns the leading YYYY-MM-DD of a BaseSpace timestamp, or "".
func DatePrefix(timestamp string) string {
	return datePrefix.FindString(timestamp)
}
