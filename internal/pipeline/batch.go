package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"hlspack/internal/config"
	"hlspack/internal/deps"
	"hlspack/internal/logging"
	"hlspack/internal/queue"
	"hlspack/internal/services"
)

// Summary aggregates the outcome of one batch run.
type Summary struct {
	RunID      string
	Discovered int
	Succeeded  int
	Failed     int
}

// Batch discovers input files in a directory and converts them one after
// another. A single lock file keeps concurrent runs off the same ledger.
type Batch struct {
	cfg       *config.Config
	store     *queue.Store
	converter *Converter
	logger    *slog.Logger
}

// NewBatch wires a batch runner around an existing converter.
func NewBatch(cfg *config.Config, store *queue.Store, converter *Converter, logger *slog.Logger) *Batch {
	return &Batch{
		cfg:       cfg,
		store:     store,
		converter: converter,
		logger:    logging.NewComponentLogger(logger, "batch"),
	}
}

// Run converts every matching container in dir. Individual file failures
// are recorded on their queue items and the run continues; only a
// run-fatal error (or a held lock) stops the batch early.
func (b *Batch) Run(ctx context.Context, dir string) (Summary, error) {
	runID := uuid.NewString()
	ctx = services.WithRequestID(ctx, runID)
	summary := Summary{RunID: runID}
	logger := logging.WithContext(ctx, b.logger)

	lock := flock.New(filepath.Join(b.cfg.Paths.LogDir, "hlspack.lock"))
	locked, err := lock.TryLock()
	if err != nil {
		return summary, fmt.Errorf("acquire run lock: %w", err)
	}
	if !locked {
		return summary, fmt.Errorf("another conversion run is active (lock %s)", lock.Path())
	}
	defer func() { _ = lock.Unlock() }()

	if free, ok, err := deps.CheckFreeSpace(dir); err != nil {
		logger.Warn("free space check failed", logging.Error(err))
	} else if !ok {
		logger.Warn("low free space on output volume",
			logging.Int64("free_bytes", int64(free)),
		)
	}

	sources, err := discoverSources(dir)
	if err != nil {
		return summary, err
	}
	summary.Discovered = len(sources)
	if len(sources) == 0 {
		logger.Info("no matching files found", logging.String("dir", dir))
		return summary, nil
	}
	logger.Info("starting batch",
		logging.String("dir", dir),
		logging.Int("files", len(sources)),
	)

	items := make([]*queue.Item, 0, len(sources))
	for _, source := range sources {
		item, err := b.store.NewFile(ctx, source)
		if err != nil {
			return summary, fmt.Errorf("enqueue %s: %w", filepath.Base(source), err)
		}
		items = append(items, item)
	}

	for _, item := range items {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		if err := b.convertItem(ctx, item); err != nil {
			summary.Failed++
			if services.IsRunFatal(err) {
				return summary, err
			}
			continue
		}
		summary.Succeeded++
	}

	logger.Info("batch finished",
		logging.Int("succeeded", summary.Succeeded),
		logging.Int("failed", summary.Failed),
	)
	return summary, nil
}

func (b *Batch) convertItem(ctx context.Context, item *queue.Item) error {
	err := b.converter.ConvertFile(ctx, item)
	if err == nil {
		return nil
	}
	item.SetFailed(err.Error())
	if updateErr := b.store.Update(ctx, item); updateErr != nil {
		b.logger.Warn("could not persist failure",
			logging.Int64("item_id", item.ID),
			logging.Error(updateErr),
		)
	}
	return err
}

// discoverSources lists the Matroska containers in dir, sorted by name.
// The extension match ignores case.
func discoverSources(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read input dir: %w", err)
	}
	var sources []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(entry.Name()), ".mkv") {
			continue
		}
		sources = append(sources, filepath.Join(dir, entry.Name()))
	}
	return sources, nil
}
