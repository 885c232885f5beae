package choose

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPickValidIndex(t *testing.T) {
	var out bytes.Buffer
	index, err := Pick(strings.NewReader("1\n"), &out, "project", []string{"a", "b", "c"})
	require.NoError(t, err)
	assert.Equal(t, 1, index)
	assert.Contains(t, out.String(), "[0] a\n[1] b\n[2] c\n")
	assert.Contains(t, out.String(), "Enter the project index [0..2]: ")
}

func TestPickRepromptsOnInvalidInput(t *testing.T) {
	var out bytes.Buffer
	index, err := Pick(strings.NewReader("x\n7\n-1\n 2 \n"), &out, "sample", []string{"a", "b", "c"})
	require.NoError(t, err)
	assert.Equal(t, 2, index)
	assert.Equal(t, 3, strings.Count(out.String(), "Please enter an integer from 0 to 2"))
	assert.Equal(t, 4, strings.Count(out.String(), "Enter the sample index"))
}

func TestPickEOF(t *testing.T) {
	var out bytes.Buffer
	_, err := Pick(strings.NewReader("nope\n"), &out, "project", []string{"a", "b"})
	assert.ErrorIs(t, err, ErrNoInput)
}

func TestPickTrivialCases(t *testing.T) {
	var out bytes.Buffer
	index, err := Pick(strings.NewReader(""), &out, "project", []string{"only"})
	require.NoError(t, err)
	assert.Equal(t, 0, index)
	assert.Empty(t, out.String())

	_, err = Pick(strings.NewReader(""), &out, "project", nil)
	assert.Error(t, err)
}
