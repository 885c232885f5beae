package choose

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"basespace-dl/internal/format"
)

// ErrNoInput is returned when input ends before a valid choice was made.
var ErrNoInput = errors.New("no selection made")

// Pick lists labels on out and reads an index from in until it gets a valid one.
func Pick(in io.Reader, out io.Writer, noun string, labels []string) (int, error) {
	switch len(labels) {
	case 0:
		return 0, fmt.Errorf("no %s to choose from", noun)
	case 1:
		return 0, nil
	}

	for i, label := range labels {
		fmt.Fprintf(out, "[%d] %s\n", i, label)
	}

	last := len(labels) - 1
	invalid := fmt.Sprintf("%s Please enter an integer from 0 to %d", format.ErrorTag(), last)
	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprintf(out, "Enter the %s index [0..%d]: ", noun, last)
		if !scanner.Scan() {
			fmt.Fprintln(out)
			if err := scanner.Err(); err != nil {
				return 0, err
			}
			return 0, ErrNoInput
		}
		index, err := strconv.Atoi(strings.TrimSpace(scanner.Text()))
		if err != nil || index < 0 || index > last {
			fmt.Fprintln(out, invalid)
			continue
		}
		return index, nil
	}
}
