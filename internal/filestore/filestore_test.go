package filestore

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveWritesAndHashes(t *testing.T) {
	dir := t.TempDir()

	res, err := Save(context.Background(), dir, "reads.fastq.gz", bytes.NewBufferString("hello"), 5)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "reads.fastq.gz"), res.Path)
	assert.Equal(t, int64(5), res.SizeBytes)
	assert.Equal(t, "2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824", res.SHA256)

	data, err := os.ReadFile(res.Path)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp file must not be left behind")
}

func TestSaveSizeMismatchLeavesNothing(t *testing.T) {
	dir := t.TempDir()

	_, err := Save(context.Background(), dir, "short.bam", bytes.NewBufferString("abc"), 10)
	var mismatch *SizeMismatchError
	require.ErrorAs(t, err, &mismatch)
	assert.Equal(t, int64(10), mismatch.Expected)
	assert.Equal(t, int64(3), mismatch.Actual)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestSaveOverwritesExisting(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("old"), 0o644))

	_, err := Save(context.Background(), dir, "a.txt", bytes.NewBufferString("new!"), -1)
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(dir, "a.txt"))
	require.NoError(t, err)
	assert.Equal(t, "new!", string(data))
}

func TestSaveCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Save(ctx, t.TempDir(), "a.txt", bytes.NewBufferString("x"), 1)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestValidateName(t *testing.T) {
	assert.NoError(t, ValidateName("Sample_S1_L001_R1_001.fastq.gz"))
	assert.NoError(t, ValidateName("run..R1.fastq.gz"))
	for _, name := range []string{"", " ", ".", "..", "../x", "a/b", `a\b`} {
		assert.Error(t, ValidateName(name), name)
	}
}

func TestSizeOf(t *testing.T) {
	dir := t.TempDir()
	size, err := SizeOf(filepath.Join(dir, "missing"))
	require.NoError(t, err)
	assert.Equal(t, int64(-1), size)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "f"), []byte("1234"), 0o644))
	size, err = SizeOf(filepath.Join(dir, "f"))
	require.NoError(t, err)
	assert.Equal(t, int64(4), size)
}

func TestSaveVerified(t *testing.T) {
	dir := t.TempDir()
	const helloSHA = "2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824"

	res, err := SaveVerified(context.Background(), dir, "tool.zip", bytes.NewBufferString("hello"), helloSHA)
	require.NoError(t, err)
	assert.Equal(t, helloSHA, res.SHA256)

	_, err = SaveVerified(context.Background(), dir, "other.zip", bytes.NewBufferString("hellO"), helloSHA)
	var mismatch *DigestMismatchError
	require.ErrorAs(t, err, &mismatch)
	assert.Equal(t, helloSHA, mismatch.Expected)
	assert.NoFileExists(t, filepath.Join(dir, "other.zip"))

	_, err = SaveVerified(context.Background(), dir, "x.zip", bytes.NewBufferString("hello"), "")
	assert.Error(t, err)
}
