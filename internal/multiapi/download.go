package multiapi

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/schollz/progressbar/v3"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"basespace-dl/internal/api"
	"basespace-dl/internal/filestore"
	"basespace-dl/internal/format"
	"basespace-dl/internal/ledger"
)

const progressThrottle = 100 * time.Millisecond

// DownloadOptions tunes DownloadFiles.
type DownloadOptions struct {
	// Concurrency is the number of files downloaded at once. Values below 2
	// download sequentially with a byte progress bar per file.
	Concurrency int
	// SkipExisting skips files the ledger recorded at the same path when the
	// file on disk still has the expected size.
	SkipExisting bool
	// RunID tags ledger records; a random one is generated when empty.
	RunID string
}

// DownloadSummary reports what DownloadFiles did.
type DownloadSummary struct {
	RunID      string
	Downloaded int
	Skipped    int
	Bytes      int64
}

// DownloadFiles writes files of project into dir. The first failure cancels
// the remaining downloads.
func (m *MultiAPI) DownloadFiles(ctx context.Context, files []api.DataFile, project api.Project, dir string, opts DownloadOptions) (DownloadSummary, error) {
	summary := DownloadSummary{RunID: opts.RunID}
	if summary.RunID == "" {
		summary.RunID = uuid.NewString()
	}

	client, err := m.clientFor(project)
	if err != nil {
		return summary, err
	}
	if dir, err = filepath.Abs(dir); err != nil {
		return summary, err
	}
	for _, f := range files {
		if err := filestore.ValidateName(f.Name); err != nil {
			return summary, err
		}
	}

	job := &downloadJob{
		m:       m,
		client:  client,
		project: project,
		dir:     dir,
		runID:   summary.RunID,
		skip:    opts.SkipExisting,
	}

	if opts.Concurrency < 2 {
		err = job.sequential(ctx, files)
	} else {
		err = job.parallel(ctx, files, opts.Concurrency)
	}

	summary.Downloaded = int(job.downloaded.Load())
	summary.Skipped = int(job.skipped.Load())
	summary.Bytes = job.bytes.Load()
	return summary, err
}

type downloadJob struct {
	m       *MultiAPI
	client  *api.Client
	project api.Project
	dir     string
	runID   string
	skip    bool

	downloaded atomic.Int64
	skipped    atomic.Int64
	bytes      atomic.Int64
}

func (j *downloadJob) sequential(ctx context.Context, files []api.DataFile) error {
	out := j.m.stderr
	for i, file := range files {
		if err := ctx.Err(); err != nil {
			return err
		}
		counter := format.Counter(fmt.Sprintf("[%d/%d]", i+1, len(files)))
		fmt.Fprintf(out, "%s %s : %s\n", counter, file.Name, format.Bytes(file.Size))

		skipped, err := j.shouldSkip(ctx, file)
		if err != nil {
			return err
		}
		if skipped {
			continue
		}

		var progress io.Writer = io.Discard
		var bar *progressbar.ProgressBar
		if j.m.interactive {
			bar = progressbar.NewOptions64(file.Size,
				progressbar.OptionSetWriter(out),
				progressbar.OptionShowBytes(true),
				progressbar.OptionSetWidth(40),
				progressbar.OptionThrottle(progressThrottle),
				progressbar.OptionClearOnFinish(),
			)
			progress = bar
		}

		err = j.fetch(ctx, file, progress)
		if bar != nil {
			_ = bar.Finish()
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (j *downloadJob) parallel(ctx context.Context, files []api.DataFile, workers int) error {
	out := io.Writer(io.Discard)
	if j.m.interactive {
		out = j.m.stderr
	}
	bar := progressbar.NewOptions(len(files),
		progressbar.OptionSetWriter(out),
		progressbar.OptionSetDescription("downloading"),
		progressbar.OptionShowDescriptionAtLineEnd(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionThrottle(progressThrottle),
	)
	var barMu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, file := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			barMu.Lock()
			bar.Describe("downloading " + file.Name)
			barMu.Unlock()

			skipped, err := j.shouldSkip(gctx, file)
			if err != nil {
				return err
			}
			if !skipped {
				if err := j.fetch(gctx, file, io.Discard); err != nil {
					return err
				}
			}

			barMu.Lock()
			_ = bar.Add(1)
			barMu.Unlock()
			return nil
		})
	}
	err := g.Wait()
	_ = bar.Finish()
	fmt.Fprintln(out)
	return err
}

func (j *downloadJob) shouldSkip(ctx context.Context, file api.DataFile) (bool, error) {
	if !j.skip || j.m.recorder == nil {
		return false, nil
	}
	path := filepath.Join(j.dir, file.Name)
	rec, err := j.m.recorder.FindDownload(ctx, file.ID, path)
	if err != nil {
		return false, fmt.Errorf("look up %s in ledger: %w", file.Name, err)
	}
	if rec == nil || rec.SizeBytes != file.Size {
		return false, nil
	}
	size, err := filestore.SizeOf(path)
	if err != nil {
		return false, err
	}
	if size != file.Size {
		return false, nil
	}
	zap.L().Info("skipping already downloaded file", zap.String("file", file.Name), zap.String("path", path))
	j.skipped.Add(1)
	return true, nil
}

func (j *downloadJob) fetch(ctx context.Context, file api.DataFile, progress io.Writer) error {
	body, _, err := j.client.OpenFileContent(ctx, file.ID)
	if err != nil {
		return fmt.Errorf("download %s: %w", file.Name, err)
	}
	defer body.Close()

	res, err := filestore.Save(ctx, j.dir, file.Name, io.TeeReader(body, progress), file.Size)
	if err != nil {
		return fmt.Errorf("download %s: %w", file.Name, err)
	}
	j.downloaded.Add(1)
	j.bytes.Add(res.SizeBytes)

	zap.L().Debug("downloaded file",
		zap.String("file", file.Name),
		zap.Int64("bytes", res.SizeBytes),
		zap.String("sha256", res.SHA256),
	)

	if j.m.recorder == nil {
		return nil
	}
	// The file is already in place; record it even if another worker failed.
	return j.m.recorder.RecordDownload(context.WithoutCancel(ctx), ledger.Download{
		RunID:        j.runID,
		FileID:       file.ID,
		FileName:     file.Name,
		ProjectID:    j.project.ID,
		ProjectName:  j.project.Name,
		AccountID:    j.project.UserFetchedByID,
		Path:         res.Path,
		SizeBytes:    res.SizeBytes,
		SHA256:       res.SHA256,
		DownloadedAt: time.Now(),
	})
}
