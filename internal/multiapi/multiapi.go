// Package multiapi fans BaseSpace requests out over every configured account.
package multiapi

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"basespace-dl/internal/api"
	"basespace-dl/internal/ledger"
)

const defaultFetchConcurrency = 16

// Recorder persists completed downloads.
type Recorder interface {
	RecordDownload(ctx context.Context, d ledger.Download) error
	FindDownload(ctx context.Context, fileID, path string) (*ledger.Download, error)
}

// SampleChooser picks one sample when several candidates match.
type SampleChooser func(candidates []api.Sample) (api.Sample, error)

// MultiAPI holds one API client per BaseSpace account.
type MultiAPI struct {
	clients          map[string]*api.Client
	accountIDs       []string
	fetchConcurrency int
	recorder         Recorder
	stderr           io.Writer
	interactive      bool
}

// Option configures a MultiAPI.
type Option func(*MultiAPI)

// WithFetchConcurrency bounds parallel per-sample file listings.
func WithFetchConcurrency(n int) Option {
	return func(m *MultiAPI) {
		if n > 0 {
			m.fetchConcurrency = n
		}
	}
}

// WithRecorder records downloads in a ledger.
func WithRecorder(r Recorder) Option {
	return func(m *MultiAPI) { m.recorder = r }
}

// WithProgressOutput sets where progress and per-file status lines go.
// Interactive outputs get byte progress bars.
func WithProgressOutput(w io.Writer, interactive bool) Option {
	return func(m *MultiAPI) {
		if w != nil {
			m.stderr = w
			m.interactive = interactive
		}
	}
}

// New creates a MultiAPI from user id -> token pairs.
func New(accounts map[string]string, clientOpts []api.Option, opts ...Option) *MultiAPI {
	m := &MultiAPI{
		clients:          make(map[string]*api.Client, len(accounts)),
		fetchConcurrency: defaultFetchConcurrency,
		stderr:           os.Stderr,
		interactive:      true,
	}
	for id, token := range accounts {
		m.clients[id] = api.NewClient(token, clientOpts...)
		m.accountIDs = append(m.accountIDs, id)
	}
	sort.Strings(m.accountIDs)
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// AccountIDs returns the configured user ids in sorted order.
func (m *MultiAPI) AccountIDs() []string {
	return append([]string(nil), m.accountIDs...)
}

func (m *MultiAPI) client(accountID string) (*api.Client, error) {
	c, ok := m.clients[accountID]
	if !ok {
		return nil, fmt.Errorf("no access token configured for account %q", accountID)
	}
	return c, nil
}

// clientFor returns the client of the account that listed project.
func (m *MultiAPI) clientFor(project api.Project) (*api.Client, error) {
	return m.client(project.UserFetchedByID)
}

// GetProjects lists projects of every account concurrently. Each project is
// tagged with the account that listed it; a project shared between accounts
// appears once per account.
func (m *MultiAPI) GetProjects(ctx context.Context) ([]api.Project, error) {
	results := make([][]api.Project, len(m.accountIDs))

	g, gctx := errgroup.WithContext(ctx)
	for i, id := range m.accountIDs {
		client := m.clients[id]
		g.Go(func() error {
			projects, err := client.ListProjects(gctx)
			if err != nil {
				return fmt.Errorf("list projects for account %s: %w", id, err)
			}
			for j := range projects {
				projects[j].UserFetchedByID = id
			}
			results[i] = projects
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var all []api.Project
	for _, projects := range results {
		all = append(all, projects...)
	}
	sort.SliceStable(all, func(i, j int) bool {
		if all[i].Name != all[j].Name {
			return all[i].Name < all[j].Name
		}
		return all[i].UserFetchedByID < all[j].UserFetchedByID
	})
	zap.L().Debug("fetched projects", zap.Int("accounts", len(m.accountIDs)), zap.Int("projects", len(all)))
	return all, nil
}

// GetSamples lists the samples of project with the token that listed it.
func (m *MultiAPI) GetSamples(ctx context.Context, project api.Project) ([]api.Sample, error) {
	client, err := m.clientFor(project)
	if err != nil {
		return nil, err
	}
	samples, err := client.ListSamples(ctx, project.ID)
	if err != nil {
		return nil, fmt.Errorf("list samples of %s: %w", project.Name, err)
	}
	return samples, nil
}

// GetUndeterminedSample finds the undetermined sample of project inside the
// account's "Unindexed Reads" project. A project that was re-run has several;
// choose decides between them.
func (m *MultiAPI) GetUndeterminedSample(ctx context.Context, project, unindexedReads api.Project, choose SampleChooser) (api.Sample, error) {
	candidates, err := m.UndeterminedSamples(ctx, project, unindexedReads)
	if err != nil {
		return api.Sample{}, err
	}
	switch {
	case len(candidates) == 1:
		return candidates[0], nil
	case choose == nil:
		return api.Sample{}, fmt.Errorf("found %d undetermined samples for %s", len(candidates), project.Name)
	default:
		return choose(candidates)
	}
}

// UndeterminedSamples lists every undetermined sample of project. It fails
// when there is none.
func (m *MultiAPI) UndeterminedSamples(ctx context.Context, project, unindexedReads api.Project) ([]api.Sample, error) {
	client, err := m.clientFor(unindexedReads)
	if err != nil {
		return nil, err
	}
	samples, err := client.ListSamples(ctx, unindexedReads.ID)
	if err != nil {
		return nil, fmt.Errorf("list samples of %q: %w", api.UnindexedReadsProject, err)
	}

	candidates := UndeterminedCandidates(project, samples)
	if len(candidates) == 0 {
		return nil, fmt.Errorf("could not find undetermined sample for %s in %q", project.Name, api.UnindexedReadsProject)
	}
	return candidates, nil
}

// UndeterminedCandidates returns samples of "Unindexed Reads" that belong to project.
func UndeterminedCandidates(project api.Project, samples []api.Sample) []api.Sample {
	var out []api.Sample
	for _, s := range samples {
		if s.Name == project.Name || s.ExperimentName == project.Name {
			out = append(out, s)
		}
	}
	return out
}

// GetFiles lists the files of every sample concurrently, keeping sample order.
func (m *MultiAPI) GetFiles(ctx context.Context, project api.Project, samples []api.Sample) ([]api.DataFile, error) {
	client, err := m.clientFor(project)
	if err != nil {
		return nil, err
	}

	results := make([][]api.DataFile, len(samples))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(m.fetchConcurrency)
	for i, sample := range samples {
		g.Go(func() error {
			files, err := client.ListSampleFiles(gctx, sample.ID)
			if err != nil {
				return fmt.Errorf("list files of sample %s: %w", sample.Name, err)
			}
			results[i] = files
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	files := []api.DataFile{}
	for _, sampleFiles := range results {
		files = append(files, sampleFiles...)
	}
	return files, nil
}
