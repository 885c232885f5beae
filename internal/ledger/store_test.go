package ledger

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testStore creates a temporary ledger for testing.
func testStore(t *testing.T) *Store {
	t.Helper()
	st, err := Open(filepath.Join(t.TempDir(), "nested", "ledger.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

func sampleDownload(fileID, project string, at time.Time) Download {
	return Download{
		RunID:        "run-1",
		FileID:       fileID,
		FileName:     fileID + ".fastq.gz",
		ProjectID:    "p-" + project,
		ProjectName:  project,
		AccountID:    "u1",
		Path:         "/data/" + fileID + ".fastq.gz",
		SizeBytes:    1234,
		SHA256:       "abc",
		DownloadedAt: at,
	}
}

func TestOpenRequiresPath(t *testing.T) {
	_, err := Open("")
	assert.Error(t, err)
}

func TestMigrationsAreIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.db")
	st, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, st.Close())

	st, err = Open(path)
	require.NoError(t, err)
	defer st.Close()

	version, err := currentVersion(st.db)
	require.NoError(t, err)
	assert.Equal(t, migrations[len(migrations)-1].Version, version)
}

func TestRecordAndFindDownload(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Millisecond)

	require.NoError(t, st.RecordDownload(ctx, sampleDownload("f1", "proj", now)))

	got, err := st.FindDownload(ctx, "f1", "/data/f1.fastq.gz")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "proj", got.ProjectName)
	assert.Equal(t, int64(1234), got.SizeBytes)
	assert.True(t, now.Equal(got.DownloadedAt))

	missing, err := st.FindDownload(ctx, "f1", "/elsewhere")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestRecordDownloadUpserts(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()

	first := sampleDownload("f1", "proj", time.Now().Add(-time.Hour))
	require.NoError(t, st.RecordDownload(ctx, first))

	second := first
	second.RunID = "run-2"
	second.SHA256 = "def"
	second.DownloadedAt = time.Now()
	require.NoError(t, st.RecordDownload(ctx, second))

	all, err := st.ListDownloads(ctx, ListFilter{})
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "run-2", all[0].RunID)
	assert.Equal(t, "def", all[0].SHA256)
}

func TestRecordDownloadValidates(t *testing.T) {
	st := testStore(t)
	assert.Error(t, st.RecordDownload(context.Background(), Download{FileID: "f1"}))
}

func TestListDownloadsFiltersAndOrders(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, st.RecordDownload(ctx, sampleDownload("a", "alpha", base)))
	require.NoError(t, st.RecordDownload(ctx, sampleDownload("b", "alpha", base.Add(time.Minute))))
	require.NoError(t, st.RecordDownload(ctx, sampleDownload("c", "beta", base.Add(2*time.Minute))))

	all, err := st.ListDownloads(ctx, ListFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []string{"c", "b", "a"}, []string{all[0].FileID, all[1].FileID, all[2].FileID})

	alpha, err := st.ListDownloads(ctx, ListFilter{ProjectName: "alpha", Limit: 1})
	require.NoError(t, err)
	require.Len(t, alpha, 1)
	assert.Equal(t, "b", alpha[0].FileID)

	byRun, err := st.ListDownloads(ctx, ListFilter{RunID: "nope"})
	require.NoError(t, err)
	assert.Empty(t, byRun)
}
