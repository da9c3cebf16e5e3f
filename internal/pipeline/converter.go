// Package pipeline orchestrates the conversion of input containers into
// HLS rendition trees: probe, classify, plan, transcode, assemble, clean
// up. Failures are scoped as narrowly as possible so one bad rendition or
// file never takes down the batch.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"hlspack/internal/config"
	"hlspack/internal/ffmpeg"
	"hlspack/internal/ladder"
	"hlspack/internal/logging"
	"hlspack/internal/media"
	"hlspack/internal/playlist"
	"hlspack/internal/progress"
	"hlspack/internal/queue"
	"hlspack/internal/services"
	"hlspack/internal/textutil"
	"hlspack/internal/transcode"
)

type prober interface {
	Probe(ctx context.Context, path string) (*media.Container, error)
}

type jobRunner interface {
	Run(ctx context.Context, jobs []ffmpeg.Job, totalSeconds float64, onFinished func(finished, total int)) []transcode.Result
}

// Converter processes one queue item end to end.
type Converter struct {
	cfg      *config.Config
	store    *queue.Store
	registry *progress.Registry
	prober   prober
	builder  *ffmpeg.Builder
	runner   jobRunner
	logger   *slog.Logger
}

// NewConverter wires a converter against the real external binaries.
// nvenc selects the hardware encoder for all video jobs.
func NewConverter(cfg *config.Config, store *queue.Store, registry *progress.Registry, nvenc bool, logger *slog.Logger) *Converter {
	if registry == nil {
		registry = progress.NewRegistry()
	}
	logger = logging.NewComponentLogger(logger, "pipeline")
	return &Converter{
		cfg:      cfg,
		store:    store,
		registry: registry,
		prober:   media.NewProber(cfg.FFprobeBinary()),
		builder: ffmpeg.NewBuilder(
			cfg.Encoding.Preset,
			cfg.Encoding.SegmentSeconds,
			cfg.Encoding.AudioBitrateKbps,
			nvenc,
		),
		runner: transcode.NewRunner(cfg.FFmpegBinary(), cfg.Encoding.Workers, registry, logger),
		logger: logger,
	}
}

// ConvertFile runs the full per-file pipeline. The returned error is
// non-nil only when the file as a whole failed; dropped renditions and
// manifest or cleanup trouble are logged and absorbed.
func (c *Converter) ConvertFile(ctx context.Context, item *queue.Item) error {
	ctx = services.WithItemID(ctx, item.ID)
	logger := logging.WithContext(ctx, c.logger).With(
		logging.String("source", filepath.Base(item.SourcePath)),
	)

	c.setStage(ctx, item, queue.StatusProbing, "Probing", "reading container metadata", 0)
	container, err := c.prober.Probe(ctx, item.SourcePath)
	if err != nil {
		logger.Error("probe failed", logging.Error(err))
		return err
	}

	root, err := c.prepareOutputDir(item.SourcePath)
	if err != nil {
		return services.Wrap(services.ErrProbe, "probe", "create output dir", filepath.Base(item.SourcePath), err)
	}
	item.OutputDir = root
	if err := container.WriteInfoJSON(root); err != nil {
		logger.Warn("could not persist probe snapshot", logging.Error(err))
	}

	tracks := media.Classify(container, logger)
	ladders := c.planLadders(tracks, logger)
	jobs := c.builder.Plan(item.SourcePath, root, tracks, ladders)
	rungCount := 0
	for _, rungs := range ladders {
		rungCount += len(rungs)
	}
	logger.Info("conversion planned",
		logging.Int("video_tracks", len(tracks.Video)),
		logging.Int("audio_tracks", len(tracks.Audio)),
		logging.Int("subtitle_tracks", len(tracks.Subtitle)),
		logging.Int("ladder_rungs", rungCount),
		logging.Int("jobs", len(jobs)),
	)

	c.setStage(ctx, item, queue.StatusProcessing, "Transcoding", "running encode jobs", 0)
	results := c.runner.Run(ctx, jobs, container.Duration, func(finished, total int) {
		item.SetProgress("Transcoding", "running encode jobs", float64(finished)/float64(total)*100)
		if err := c.store.Update(ctx, item); err != nil {
			logger.Warn("could not persist progress", logging.Error(err))
		}
	})

	dropped := 0
	for _, result := range results {
		if result.Failed() {
			dropped++
			logger.Error("rendition dropped",
				logging.String("job", result.Job.Label),
				logging.Error(result.Err),
			)
		}
	}

	c.setStage(ctx, item, queue.StatusAssembling, "Assembling", "writing manifests", 0)
	master := c.assemble(root, results, logger)
	message := "master.m3u8 written"
	if err := playlist.WriteMaster(root, master); err != nil {
		logger.Error("master manifest not written", logging.Error(err))
		message = "master.m3u8 not written"
	}

	if c.cfg.Cleanup.RemoveIntermediates {
		c.cleanup(item.SourcePath, results, dropped, logger)
	}

	item.Status = queue.StatusCompleted
	if dropped > 0 {
		message = fmt.Sprintf("%s, %d of %d renditions dropped", message, dropped, len(results))
	}
	item.SetProgress("Completed", message, 100)
	if err := c.store.Update(ctx, item); err != nil {
		logger.Warn("could not persist completion", logging.Error(err))
	}
	logger.Info("file converted",
		logging.Int("renditions", len(results)-dropped),
		logging.Int("dropped", dropped),
	)
	return nil
}

func (c *Converter) setStage(ctx context.Context, item *queue.Item, status queue.Status, stage, message string, percent float64) {
	item.Status = status
	item.SetProgress(stage, message, percent)
	if err := c.store.Update(ctx, item); err != nil {
		c.logger.Warn("could not persist stage transition",
			logging.Int64("item_id", item.ID),
			logging.Error(err),
		)
	}
}

// prepareOutputDir derives the per-file output root next to the source,
// named after its sanitized base name.
func (c *Converter) prepareOutputDir(sourcePath string) (string, error) {
	base := strings.TrimSuffix(filepath.Base(sourcePath), filepath.Ext(sourcePath))
	name := textutil.SanitizeFileName(base)
	if name == "" {
		name = "hls_output"
	}
	root := filepath.Join(filepath.Dir(sourcePath), name)
	if err := os.MkdirAll(root, 0o755); err != nil {
		return "", err
	}
	return root, nil
}

// planLadders derives one rendition ladder per video track from that
// track's own dimensions. Files without video get no ladders and produce
// audio and subtitle renditions only.
func (c *Converter) planLadders(tracks media.Tracks, logger *slog.Logger) [][]ladder.Rung {
	if len(tracks.Video) == 0 {
		logger.Warn("no video track found")
		return nil
	}
	ladders := make([][]ladder.Rung, len(tracks.Video))
	for i, track := range tracks.Video {
		if track.Height <= 0 {
			logger.Warn("video height unknown, using full ladder",
				logging.Int("track", track.TypeIndex),
				logging.String("codec", track.Codec),
			)
		}
		ladders[i] = ladder.Plan(track.Width, track.Height)
	}
	return ladders
}

// assemble converts successful jobs into master playlist entries, writing
// the per-track subtitle manifests along the way. Renditions appear in
// the same order their tracks were discovered.
func (c *Converter) assemble(root string, results []transcode.Result, logger *slog.Logger) playlist.Master {
	var master playlist.Master
	for _, result := range results {
		if result.Failed() {
			continue
		}
		job := result.Job
		uri := relativeURI(root, job.PlaylistPath)
		switch job.Kind {
		case ffmpeg.JobVideo:
			width := job.Rung.Width
			if width == ladder.WidthAuto {
				width = 0
			}
			master.Video = append(master.Video, playlist.VideoRendition{
				URI:           uri,
				Width:         width,
				Height:        job.Rung.Height,
				BandwidthBits: job.Rung.BandwidthBits(),
			})
		case ffmpeg.JobAudio:
			master.Audio = append(master.Audio, playlist.AudioRendition{
				URI:      uri,
				Name:     job.Track.Name,
				Language: job.Track.Language,
				Default:  job.Track.Default,
			})
		case ffmpeg.JobSubtitle:
			if err := playlist.WriteSubtitleManifest(job.PlaylistPath, filepath.Base(job.VTTPath)); err != nil {
				logger.Warn("subtitle manifest not written",
					logging.String("job", job.Label),
					logging.Error(err),
				)
				continue
			}
			master.Subtitle = append(master.Subtitle, playlist.SubtitleRendition{
				URI:      uri,
				Name:     job.Track.Name,
				Language: job.Track.Language,
			})
		}
	}
	return master
}

// cleanup removes the source container and the transport stream segments
// of successful renditions. Manifests and caption files stay. Every
// failure here is logged and swallowed.
func (c *Converter) cleanup(sourcePath string, results []transcode.Result, dropped int, logger *slog.Logger) {
	succeeded := len(results) - dropped
	if succeeded == 0 {
		logger.Warn("skipping cleanup, no rendition succeeded")
		return
	}

	seen := make(map[string]struct{})
	for _, result := range results {
		if result.Failed() {
			continue
		}
		dir := result.Job.OutDir
		if _, ok := seen[dir]; ok {
			continue
		}
		seen[dir] = struct{}{}
		c.removeSegments(dir, logger)
	}

	if err := os.Remove(sourcePath); err != nil {
		err = services.Wrap(services.ErrCleanup, "cleanup", "remove source", filepath.Base(sourcePath), err)
		logger.Warn("source not removed", logging.Error(err))
	}
}

func (c *Converter) removeSegments(dir string, logger *slog.Logger) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		err = services.Wrap(services.ErrCleanup, "cleanup", "read rendition dir", filepath.Base(dir), err)
		logger.Warn("segment dir skipped", logging.Error(err))
		return
	}
	for _, entry := range entries {
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(entry.Name()), ".ts") {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		if err := os.Remove(path); err != nil {
			err = services.Wrap(services.ErrCleanup, "cleanup", "remove segment", entry.Name(), err)
			logger.Warn("segment not removed", logging.Error(err))
		}
	}
}

func relativeURI(root, path string) string {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return filepath.ToSlash(path)
	}
	return filepath.ToSlash(rel)
}

