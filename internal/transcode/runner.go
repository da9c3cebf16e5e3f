// Package transcode executes planned encode jobs against the ffmpeg
// binary, with bounded concurrency and per-job progress reporting.
package transcode

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"

	"hlspack/internal/ffmpeg"
	"hlspack/internal/logging"
	"hlspack/internal/progress"
	"hlspack/internal/services"
)

// execJob launches the encoder and streams its stderr through consume
// before waiting for exit. Swapped out in tests.
var execJob = func(ctx context.Context, binary string, args []string, consume func(stderr io.Reader)) error {
	cmd := exec.CommandContext(ctx, binary, args...)
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("open stderr pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return err
	}
	consume(stderr)
	return cmd.Wait()
}

// Result pairs a job with its outcome. Err is nil on success and carries
// the rendition classification otherwise.
type Result struct {
	Job ffmpeg.Job
	Err error
}

// Failed reports whether the job produced no usable rendition.
func (r Result) Failed() bool {
	return r.Err != nil
}

// Runner executes jobs for one input file.
type Runner struct {
	binary   string
	workers  int
	registry *progress.Registry
	logger   *slog.Logger
}

// NewRunner constructs a Runner. workers below 1 is treated as 1, keeping
// jobs strictly sequential.
func NewRunner(binary string, workers int, registry *progress.Registry, logger *slog.Logger) *Runner {
	if workers < 1 {
		workers = 1
	}
	if registry == nil {
		registry = progress.NewRegistry()
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Runner{binary: binary, workers: workers, registry: registry, logger: logger}
}

// Run executes every job and returns results in job order. A failing job
// never aborts the rest: each result carries its own error so the caller
// can drop individual renditions while keeping the survivors. onFinished,
// when non-nil, is called after each job with the finished and total
// counts so callers can persist coarse progress.
func (r *Runner) Run(ctx context.Context, jobs []ffmpeg.Job, totalSeconds float64, onFinished func(finished, total int)) []Result {
	results := make([]Result, len(jobs))
	sem := make(chan struct{}, r.workers)
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		finished int
	)

	for i, job := range jobs {
		wg.Add(1)
		go func(i int, job ffmpeg.Job) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			results[i] = Result{Job: job, Err: r.runOne(ctx, job, totalSeconds)}
			if onFinished != nil {
				mu.Lock()
				finished++
				onFinished(finished, len(jobs))
				mu.Unlock()
			}
		}(i, job)
	}
	wg.Wait()
	return results
}

func (r *Runner) runOne(ctx context.Context, job ffmpeg.Job, totalSeconds float64) error {
	if err := os.MkdirAll(job.OutDir, 0o755); err != nil {
		return services.Wrap(services.ErrRendition, "transcode", "create output dir", job.Label, err)
	}

	total := totalSeconds
	if total <= 0 {
		// Unknown duration still gets a task so status output shows the job;
		// the reporter forces completion on exit either way.
		total = 100
	}
	taskID := r.registry.Add(job.Label, total)
	defer r.registry.Remove(taskID)

	reporter := progress.NewReporter(r.registry, taskID, r.logger)
	r.logger.Info("starting encode job",
		logging.String("job", job.Label),
		logging.String("playlist", filepath.Base(job.PlaylistPath)),
	)

	err := execJob(ctx, r.binary, job.Args, reporter.Consume)
	if err != nil {
		detail := strings.TrimSpace(tail(reporter.Output(), 2048))
		if detail != "" {
			err = fmt.Errorf("%w: %s", err, detail)
		}
		return services.Wrap(services.ErrRendition, "transcode", "run ffmpeg", job.Label, err)
	}

	r.logger.Info("encode job finished", logging.String("job", job.Label))
	return nil
}

// tail returns at most n trailing bytes of s, on a line boundary when one
// falls inside the window.
func tail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	s = s[len(s)-n:]
	if i := strings.IndexByte(s, '\n'); i >= 0 && i+1 < len(s) {
		return s[i+1:]
	}
	return s
}
