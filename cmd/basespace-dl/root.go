package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"basespace-dl/internal/api"
	"basespace-dl/internal/choose"
	"basespace-dl/internal/config"
	"basespace-dl/internal/format"
	"basespace-dl/internal/ledger"
	"basespace-dl/internal/multiapi"
	"basespace-dl/internal/suggest"
)

const allProjects = "ALL"

var errNotInteractive = errors.New("stdin is not an interactive terminal")

// terminal describes the process streams the prompts and progress bars use.
type terminal struct {
	in     io.Reader
	inTTY  bool
	errTTY bool
}

type rootOptions struct {
	listFiles           int
	longFormat          bool
	pattern             string
	selectFiles         string
	directory           string
	undetermined        bool
	configName          string
	skipCompletionCheck bool
	skipExisting        bool
	verbose             bool
	logLevel            string
	outputFormat        string
}

type app struct {
	cfg       *config.Config
	term      terminal
	opts      rootOptions
	formatter format.Formatter
}

func newRootCmd(cfg *config.Config, term terminal) *cobra.Command {
	a := &app{cfg: cfg, term: term}

	cmd := &cobra.Command{
		Use:   "basespace-dl <project>",
		Short: "Multi-account basespace file downloader",
		Long: "Multi-account basespace file downloader.\n\n" +
			"Use ALL as the project to print all projects. A project named like a\n" +
			"subcommand can be given after --, e.g. basespace-dl -- history",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd.Context(), cmd.OutOrStdout(), cmd.ErrOrStderr(), args[0])
		},
	}
	cmd.Version = version

	pf := cmd.PersistentFlags()
	pf.StringVarP(&a.opts.configName, "config", "C", "", "Alternate config. Stored in $HOME/.config/basespace-dl/{name}.toml")
	pf.BoolVarP(&a.opts.verbose, "verbose", "v", false, "Print status messages")
	pf.StringVar(&a.opts.logLevel, "log-level", "", "log level (debug, info, warn, error)")
	pf.StringVar(&a.opts.outputFormat, "format", "", "machine readable output format (json, yaml)")

	f := cmd.Flags()
	f.CountVarP(&a.opts.listFiles, "list-files", "F", "List all files for a given project. Use -l to also print file metadata.")
	f.BoolVarP(&a.opts.longFormat, "long-format", "l", false, "Long format. Prints file size if listing files or more project info if listing projects")
	f.StringVarP(&a.opts.pattern, "pattern", "p", "", "Only select files according to this regex pattern")
	f.StringVarP(&a.opts.selectFiles, "select-files", "f", "", "Only select files from this list. Accepts a file or - for STDIN.")
	f.StringVarP(&a.opts.directory, "directory", "d", "", "Download files to this directory.")
	f.BoolVarP(&a.opts.undetermined, "undetermined", "U", false, `Fetch undetermined files as well. These are stored in the "Unindexed Reads" project.`)
	f.BoolVar(&a.opts.skipCompletionCheck, "skip-completion-check", false, "Skip the requirement that all samples in a project be finished processing")
	f.BoolVar(&a.opts.skipExisting, "skip-existing", false, "Skip files already downloaded to the same path with the expected size")

	cmd.AddCommand(
		newAccountsCmd(a),
		newConfigCmd(a),
		newHistoryCmd(a),
		newReleaseCmd(a),
	)
	return cmd
}

func (a *app) setup(cmd *cobra.Command) error {
	warning, err := configureLoggerForCLI(cmd.ErrOrStderr(), a.opts.logLevel, a.opts.verbose, a.cfg.LogLevel)
	if err != nil {
		return err
	}
	if warning != "" {
		fmt.Fprintln(cmd.ErrOrStderr(), warning)
	}
	a.formatter, err = format.ByName(a.opts.outputFormat)
	return err
}

func (a *app) clientOptions() []api.Option {
	return []api.Option{
		api.WithBaseURL(a.cfg.APIURL),
		api.WithResponseLimit(a.cfg.ResponseLimit),
		api.WithRequestTimeout(a.cfg.RequestTimeout()),
	}
}

func (a *app) openLedger() (*ledger.Store, error) {
	st, err := ledger.Open(a.cfg.LedgerPath)
	if err != nil {
		return nil, fmt.Errorf("open download ledger: %w", err)
	}
	return st, nil
}

func (a *app) run(ctx context.Context, stdout, stderr io.Writer, query string) error {
	ws, err := config.OpenWorkspace(a.opts.configName)
	if err != nil {
		return fmt.Errorf("Could not generate workspace. %w", err)
	}

	directory := "."
	if a.opts.directory != "" {
		info, err := os.Stat(a.opts.directory)
		if err != nil || !info.IsDir() {
			return fmt.Errorf("%s is not a valid directory", a.opts.directory)
		}
		directory = a.opts.directory
	}

	accounts, err := ws.RequireAccounts()
	if err != nil {
		return fmt.Errorf("Could not generate multi-api from workspace. %w", err)
	}

	opts := []multiapi.Option{
		multiapi.WithFetchConcurrency(a.cfg.FetchConcurrency),
		multiapi.WithProgressOutput(stderr, a.term.errTTY),
	}
	downloading := query != allProjects && a.opts.listFiles == 0
	if downloading {
		st, err := a.openLedger()
		if err != nil {
			return err
		}
		defer st.Close()
		opts = append(opts, multiapi.WithRecorder(st))
	}
	multi := multiapi.New(accounts, a.clientOptions(), opts...)

	projects, err := multi.GetProjects(ctx)
	if err != nil {
		return err
	}

	if query == allProjects {
		return writeOutput(stdout, a.formatter, projects, func(w io.Writer) error {
			return writeProjects(w, projects, a.opts.longFormat)
		})
	}

	project, err := a.resolveProject(stderr, projects, query)
	if err != nil {
		return err
	}

	samples, err := a.collectSamples(ctx, stderr, multi, projects, project)
	if err != nil {
		return err
	}

	samples, unfinished := partitionSamples(samples)
	if len(unfinished) > 0 {
		if !a.opts.skipCompletionCheck {
			return fmt.Errorf("Project not finished yet. %d samples still processing.", len(unfinished))
		}
		fmt.Fprintf(stderr, "%s %d samples still processing. Downloading anyway.\n", format.WarningTag(), len(unfinished))
	}

	log := zap.L().Sugar()
	log.Infof("Found %d completed samples", len(samples))
	log.Info("Fetching files...")

	files, err := multi.GetFiles(ctx, project, samples)
	if err != nil {
		return err
	}
	if files, err = a.applyFilters(files); err != nil {
		return err
	}

	if a.opts.listFiles > 0 {
		long := a.opts.listFiles > 1 || a.opts.longFormat
		return writeOutput(stdout, a.formatter, files, func(w io.Writer) error {
			return writeFiles(w, files, long)
		})
	}

	log.Infof("Downloading %d files...", len(files))
	summary, err := multi.DownloadFiles(ctx, files, project, directory, multiapi.DownloadOptions{
		Concurrency:  a.cfg.Concurrency,
		SkipExisting: a.opts.skipExisting,
		RunID:        uuid.NewString(),
	})
	if err != nil {
		return fmt.Errorf("Could not download files. %w", err)
	}
	log.Infow("download finished",
		"run_id", summary.RunID,
		"downloaded", summary.Downloaded,
		"skipped", summary.Skipped,
		"bytes", summary.Bytes,
	)
	if a.formatter != nil {
		return a.formatter.Write(stdout, summary)
	}
	return nil
}

func (a *app) resolveProject(stderr io.Writer, projects []api.Project, query string) (api.Project, error) {
	matches := matchingProjects(projects, query)
	switch len(matches) {
	case 0:
		candidates := suggest.DidYouMean(query, projectNames(projects))
		if len(candidates) == 0 {
			return api.Project{}, fmt.Errorf("no such project %s.", query)
		}
		msg := fmt.Sprintf("no such project %s. Did you mean one of these?\n", query)
		for _, c := range candidates {
			msg += "\n" + c
		}
		return api.Project{}, errors.New(msg)
	case 1:
		return matches[0], nil
	}

	fmt.Fprintf(stderr, "%s Found %d projects with the same name.\n", format.WarningTag(), len(matches))
	labels := make([]string, len(matches))
	for i, p := range matches {
		labels[i] = projectLabel(p)
	}
	index, err := a.pick(stderr, "project", labels)
	if err != nil {
		return api.Project{}, fmt.Errorf("choose project %s: %w", query, err)
	}
	return matches[index], nil
}

func (a *app) collectSamples(ctx context.Context, stderr io.Writer, multi *multiapi.MultiAPI, projects []api.Project, project api.Project) ([]api.Sample, error) {
	if !a.opts.undetermined {
		return multi.GetSamples(ctx, project)
	}

	if !project.OwnedByFetcher() {
		return nil, errors.New(`Must be the owner of a project to access its "Unindexed Reads".`)
	}
	unindexed, ok := unindexedReadsFor(projects, project)
	if !ok {
		return nil, errors.New("Could not find Unindexed Reads in basespace account.")
	}

	// prompt only after both fetches succeeded
	var samples, candidates []api.Sample
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		samples, err = multi.GetSamples(gctx, project)
		return err
	})
	g.Go(func() error {
		var err error
		candidates, err = multi.UndeterminedSamples(gctx, project, unindexed)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	undetermined := candidates[0]
	if len(candidates) > 1 {
		var err error
		if undetermined, err = a.chooseUndetermined(stderr, candidates); err != nil {
			return nil, err
		}
	}
	return append(samples, undetermined), nil
}

func (a *app) chooseUndetermined(stderr io.Writer, candidates []api.Sample) (api.Sample, error) {
	fmt.Fprintf(stderr, "%s Found %d %q with the same project name\n", format.WarningTag(), len(candidates), api.UnindexedReadsProject)
	labels := make([]string, len(candidates))
	for i, s := range candidates {
		labels[i] = sampleLabel(s)
	}
	index, err := a.pick(stderr, "sample", labels)
	if err != nil {
		return api.Sample{}, fmt.Errorf("choose undetermined sample: %w", err)
	}
	return candidates[index], nil
}

// pick prompts on stderr and reads the answer from stdin. Prompts are refused
// when stdin is not a terminal or already carries the --select-files list.
func (a *app) pick(stderr io.Writer, noun string, labels []string) (int, error) {
	if len(labels) > 1 && (!a.term.inTTY || a.opts.selectFiles == "-") {
		return 0, errNotInteractive
	}
	return choose.Pick(a.term.in, stderr, noun, labels)
}

func (a *app) applyFilters(files []api.DataFile) ([]api.DataFile, error) {
	var err error
	if a.opts.pattern != "" {
		if files, err = filterByPattern(files, a.opts.pattern); err != nil {
			return nil, err
		}
	}
	if a.opts.selectFiles == "" {
		return files, nil
	}

	var in io.Reader
	if a.opts.selectFiles == "-" {
		in = a.term.in
	} else {
		f, err := os.Open(a.opts.selectFiles)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		in = f
	}
	names, err := readFileList(in)
	if err != nil {
		return nil, err
	}
	return filterBySelection(files, names), nil
}
