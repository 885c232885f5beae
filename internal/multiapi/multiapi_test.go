package multiapi

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"basespace-dl/internal/api"
	"basespace-dl/internal/basespacetest"
)

func newTestMultiAPI(t *testing.T, srv *basespacetest.Server, accounts map[string]string, opts ...Option) *MultiAPI {
	t.Helper()
	opts = append([]Option{WithProgressOutput(&bytes.Buffer{}, false)}, opts...)
	return New(accounts, []api.Option{api.WithBaseURL(srv.URL)}, opts...)
}

func twoAccountServer(t *testing.T) *basespacetest.Server {
	t.Helper()
	srv := basespacetest.NewServer()
	t.Cleanup(srv.Close)

	srv.AddAccount("tok-a", &basespacetest.Account{
		User: api.User{ID: "u1", Name: "Alice"},
		Projects: []api.Project{
			{ID: "p1", Name: "RunB", UserOwnedBy: api.User{ID: "u1", Name: "Alice"}},
			{ID: "p2", Name: "RunA", UserOwnedBy: api.User{ID: "u1", Name: "Alice"}},
		},
		Samples: map[string][]api.Sample{
			"p1": {{ID: "s1", Name: "S1", Status: "Complete"}, {ID: "s2", Name: "S2", Status: "Complete"}},
		},
		Files: map[string][]api.DataFile{
			"s1": {{ID: "f1", Name: "S1_R1.fastq.gz", Size: 5}},
			"s2": {{ID: "f2", Name: "S2_R1.fastq.gz", Size: 3}, {ID: "f3", Name: "S2_R2.fastq.gz", Size: 3}},
		},
	})
	srv.AddAccount("tok-b", &basespacetest.Account{
		User: api.User{ID: "u2", Name: "Bob"},
		Projects: []api.Project{
			{ID: "p1", Name: "RunB", UserOwnedBy: api.User{ID: "u1", Name: "Alice"}},
			{ID: "p9", Name: "Other", UserOwnedBy: api.User{ID: "u2", Name: "Bob"}},
		},
	})
	return srv
}

func TestGetProjectsUnionsAccounts(t *testing.T) {
	srv := twoAccountServer(t)
	m := newTestMultiAPI(t, srv, map[string]string{"u1": "tok-a", "u2": "tok-b"})

	projects, err := m.GetProjects(context.Background())
	require.NoError(t, err)
	require.Len(t, projects, 4)

	var got [][2]string
	for _, p := range projects {
		got = append(got, [2]string{p.Name, p.UserFetchedByID})
	}
	assert.Equal(t, [][2]string{
		{"Other", "u2"},
		{"RunA", "u1"},
		{"RunB", "u1"},
		{"RunB", "u2"},
	}, got)
	assert.Equal(t, []string{"u1", "u2"}, m.AccountIDs())
}

func TestGetProjectsFailsOnBadToken(t *testing.T) {
	srv := twoAccountServer(t)
	m := newTestMultiAPI(t, srv, map[string]string{"u1": "tok-a", "u3": "revoked"})

	_, err := m.GetProjects(context.Background())
	require.Error(t, err)
	assert.True(t, api.IsUnauthorized(err))
	assert.Contains(t, err.Error(), "u3")
}

func TestGetSamplesUsesFetchingAccount(t *testing.T) {
	srv := twoAccountServer(t)
	m := newTestMultiAPI(t, srv, map[string]string{"u1": "tok-a", "u2": "tok-b"})

	samples, err := m.GetSamples(context.Background(), api.Project{ID: "p1", Name: "RunB", UserFetchedByID: "u1"})
	require.NoError(t, err)
	assert.Len(t, samples, 2)

	// account u2 sees the project but the fake holds no samples for it there
	samples, err = m.GetSamples(context.Background(), api.Project{ID: "p1", Name: "RunB", UserFetchedByID: "u2"})
	require.NoError(t, err)
	assert.Empty(t, samples)
}

func TestMissingTokenIsAnError(t *testing.T) {
	srv := twoAccountServer(t)
	m := newTestMultiAPI(t, srv, map[string]string{"u1": "tok-a"})

	_, err := m.GetSamples(context.Background(), api.Project{ID: "p1", UserFetchedByID: "u7"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"u7"`)
}

func TestGetFilesKeepsSampleOrder(t *testing.T) {
	srv := twoAccountServer(t)
	m := newTestMultiAPI(t, srv, map[string]string{"u1": "tok-a"}, WithFetchConcurrency(1))

	project := api.Project{ID: "p1", Name: "RunB", UserFetchedByID: "u1"}
	samples := []api.Sample{{ID: "s2", Name: "S2"}, {ID: "s1", Name: "S1"}}

	files, err := m.GetFiles(context.Background(), project, samples)
	require.NoError(t, err)

	var names []string
	for _, f := range files {
		names = append(names, f.Name)
	}
	assert.Equal(t, []string{"S2_R1.fastq.gz", "S2_R2.fastq.gz", "S1_R1.fastq.gz"}, names)
}

func TestGetFilesWithNoSamples(t *testing.T) {
	srv := twoAccountServer(t)
	m := newTestMultiAPI(t, srv, map[string]string{"u1": "tok-a"})

	files, err := m.GetFiles(context.Background(), api.Project{ID: "p1", UserFetchedByID: "u1"}, nil)
	require.NoError(t, err)
	assert.NotNil(t, files)
	assert.Empty(t, files)
}

func TestUndeterminedCandidates(t *testing.T) {
	project := api.Project{Name: "RunB"}
	samples := []api.Sample{
		{ID: "1", Name: "RunB"},
		{ID: "2", Name: "Undetermined", ExperimentName: "RunB"},
		{ID: "3", Name: "RunBB"},
		{ID: "4", Name: "Other", ExperimentName: "Other"},
	}
	got := UndeterminedCandidates(project, samples)
	require.Len(t, got, 2)
	assert.Equal(t, "1", got[0].ID)
	assert.Equal(t, "2", got[1].ID)
}

func undeterminedServer(t *testing.T, samples []api.Sample) *basespacetest.Server {
	t.Helper()
	srv := basespacetest.NewServer()
	t.Cleanup(srv.Close)
	srv.AddAccount("tok-a", &basespacetest.Account{
		User:    api.User{ID: "u1"},
		Samples: map[string][]api.Sample{"ur": samples},
	})
	return srv
}

func TestGetUndeterminedSample(t *testing.T) {
	project := api.Project{ID: "p1", Name: "RunB", UserFetchedByID: "u1"}
	unindexed := api.Project{ID: "ur", Name: api.UnindexedReadsProject, UserFetchedByID: "u1"}
	ctx := context.Background()

	t.Run("none", func(t *testing.T) {
		srv := undeterminedServer(t, []api.Sample{{ID: "x", Name: "Other"}})
		m := newTestMultiAPI(t, srv, map[string]string{"u1": "tok-a"})
		_, err := m.GetUndeterminedSample(ctx, project, unindexed, nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "could not find undetermined sample")
	})

	t.Run("single", func(t *testing.T) {
		srv := undeterminedServer(t, []api.Sample{{ID: "x", Name: "Other"}, {ID: "u", Name: "RunB"}})
		m := newTestMultiAPI(t, srv, map[string]string{"u1": "tok-a"})
		called := false
		got, err := m.GetUndeterminedSample(ctx, project, unindexed, func([]api.Sample) (api.Sample, error) {
			called = true
			return api.Sample{}, nil
		})
		require.NoError(t, err)
		assert.Equal(t, "u", got.ID)
		assert.False(t, called)
	})

	t.Run("several uses chooser", func(t *testing.T) {
		srv := undeterminedServer(t, []api.Sample{{ID: "a", Name: "RunB"}, {ID: "b", ExperimentName: "RunB"}})
		m := newTestMultiAPI(t, srv, map[string]string{"u1": "tok-a"})
		got, err := m.GetUndeterminedSample(ctx, project, unindexed, func(c []api.Sample) (api.Sample, error) {
			require.Len(t, c, 2)
			return c[1], nil
		})
		require.NoError(t, err)
		assert.Equal(t, "b", got.ID)
	})

	t.Run("several without chooser", func(t *testing.T) {
		srv := undeterminedServer(t, []api.Sample{{ID: "a", Name: "RunB"}, {ID: "b", Name: "RunB"}})
		m := newTestMultiAPI(t, srv, map[string]string{"u1": "tok-a"})
		_, err := m.GetUndeterminedSample(ctx, project, unindexed, nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "found 2 undetermined samples")
	})

	t.Run("chooser error", func(t *testing.T) {
		srv := undeterminedServer(t, []api.Sample{{ID: "a", Name: "RunB"}, {ID: "b", Name: "RunB"}})
		m := newTestMultiAPI(t, srv, map[string]string{"u1": "tok-a"})
		boom := errors.New("boom")
		_, err := m.GetUndeterminedSample(ctx, project, unindexed, func([]api.Sample) (api.Sample, error) {
			return api.Sample{}, boom
		})
		assert.ErrorIs(t, err, boom)
	})
}

func TestUndeterminedSamples(t *testing.T) {
	project := api.Project{ID: "p1", Name: "RunB", UserFetchedByID: "u1"}
	unindexed := api.Project{ID: "ur", Name: api.UnindexedReadsProject, UserFetchedByID: "u1"}

	srv := undeterminedServer(t, []api.Sample{{ID: "a", Name: "RunB"}, {ID: "x", Name: "Other"}, {ID: "b", ExperimentName: "RunB"}})
	m := newTestMultiAPI(t, srv, map[string]string{"u1": "tok-a"})
	got, err := m.UndeterminedSamples(context.Background(), project, unindexed)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].ID)
	assert.Equal(t, "b", got[1].ID)

	srv.FailPath("/projects/ur/samples", 503)
	_, err = m.UndeterminedSamples(context.Background(), project, unindexed)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `list samples of "Unindexed Reads"`)
}
