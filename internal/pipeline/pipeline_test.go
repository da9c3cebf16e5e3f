package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"hlspack/internal/config"
	"hlspack/internal/ffmpeg"
	"hlspack/internal/logging"
	"hlspack/internal/media"
	"hlspack/internal/progress"
	"hlspack/internal/queue"
	"hlspack/internal/services"
	"hlspack/internal/testsupport"
	"hlspack/internal/transcode"
)

type fakeProber struct {
	containers map[string]*media.Container
	failBases  map[string]bool
}

func (f *fakeProber) Probe(_ context.Context, path string) (*media.Container, error) {
	base := filepath.Base(path)
	if f.failBases[base] {
		return nil, services.Wrap(services.ErrProbe, "probe", "run ffprobe", base, errors.New("exit status 1"))
	}
	if container, ok := f.containers[base]; ok {
		cp := *container
		cp.Path = path
		return &cp, nil
	}
	return &media.Container{Path: path, Duration: 60, Streams: defaultStreams()}, nil
}

func defaultStreams() []media.Stream {
	return []media.Stream{
		{Type: media.TrackVideo, Codec: "h264", Width: 1280, Height: 720},
		{Type: media.TrackAudio, Codec: "ac3", Language: "eng", Default: true},
		{Type: media.TrackSubtitle, Codec: "subrip", Language: "eng"},
	}
}

type fakeRunner struct {
	failLabels map[string]bool
	ran        []string
}

func (f *fakeRunner) Run(_ context.Context, jobs []ffmpeg.Job, _ float64, onFinished func(int, int)) []transcode.Result {
	results := make([]transcode.Result, len(jobs))
	for i, job := range jobs {
		f.ran = append(f.ran, job.Label)
		if f.failLabels[job.Label] {
			results[i] = transcode.Result{
				Job: job,
				Err: services.Wrap(services.ErrRendition, "transcode", "run ffmpeg", job.Label, errors.New("exit status 1")),
			}
		} else {
			results[i] = transcode.Result{Job: job, Err: writeJobOutput(job)}
		}
		if onFinished != nil {
			onFinished(i+1, len(jobs))
		}
	}
	return results
}

func writeJobOutput(job ffmpeg.Job) error {
	if err := os.MkdirAll(job.OutDir, 0o755); err != nil {
		return err
	}
	if job.Kind == ffmpeg.JobSubtitle {
		return os.WriteFile(job.VTTPath, []byte("WEBVTT\n"), 0o644)
	}
	if err := os.WriteFile(job.PlaylistPath, []byte("#EXTM3U\n"), 0o644); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(job.OutDir, "segment_000.ts"), []byte{0x47}, 0o644)
}

func testSetup(t *testing.T, cleanup bool) (*config.Config, *queue.Store, *Converter, *fakeProber, *fakeRunner) {
	t.Helper()
	var opts []testsupport.ConfigOption
	if cleanup {
		opts = append(opts, testsupport.WithCleanup())
	}
	cfg := testsupport.NewConfig(t, opts...)
	store := testsupport.MustOpenStore(t, cfg)

	converter := NewConverter(cfg, store, progress.NewRegistry(), false, logging.NewNop())
	prober := &fakeProber{containers: map[string]*media.Container{}, failBases: map[string]bool{}}
	runner := &fakeRunner{failLabels: map[string]bool{}}
	converter.prober = prober
	converter.runner = runner
	return cfg, store, converter, prober, runner
}

func writeSource(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	testsupport.WriteFile(t, path, 8)
	return path
}

func TestConvertFileProducesMasterAndCleansUp(t *testing.T) {
	_, store, converter, _, _ := testSetup(t, true)
	inputDir := t.TempDir()
	source := writeSource(t, inputDir, "My Movie.mkv")

	ctx := context.Background()
	item, err := store.NewFile(ctx, source)
	if err != nil {
		t.Fatalf("NewFile: %v", err)
	}
	if err := converter.ConvertFile(ctx, item); err != nil {
		t.Fatalf("ConvertFile: %v", err)
	}

	root := filepath.Join(inputDir, "My_Movie")
	if item.OutputDir != root {
		t.Fatalf("output dir = %s, want %s", item.OutputDir, root)
	}
	master, err := os.ReadFile(filepath.Join(root, "master.m3u8"))
	if err != nil {
		t.Fatalf("read master: %v", err)
	}
	for _, fragment := range []string{
		"video_0/720p.m3u8",
		"video_0/480p.m3u8",
		"video_0/360p.m3u8",
		"video_0/240p.m3u8",
		`URI="audio_0/audio.m3u8"`,
		`URI="subtitle_0/subtitle.m3u8"`,
		"DEFAULT=YES",
	} {
		if !strings.Contains(string(master), fragment) {
			t.Fatalf("master missing %q:\n%s", fragment, master)
		}
	}

	if _, err := os.Stat(source); !errors.Is(err, os.ErrNotExist) {
		t.Fatal("source should be removed after cleanup")
	}
	if _, err := os.Stat(filepath.Join(root, "video_0", "segment_000.ts")); !errors.Is(err, os.ErrNotExist) {
		t.Fatal("segments should be removed after cleanup")
	}
	if _, err := os.Stat(filepath.Join(root, "video_0", "720p.m3u8")); err != nil {
		t.Fatalf("media playlist should survive cleanup: %v", err)
	}
	if _, err := os.Stat(filepath.Join(root, "subtitle_0", "subtitle.vtt")); err != nil {
		t.Fatalf("captions should survive cleanup: %v", err)
	}

	fetched, _ := store.GetByID(ctx, item.ID)
	if fetched.Status != queue.StatusCompleted || fetched.ProgressPercent != 100 {
		t.Fatalf("item = %+v", fetched)
	}
}

func TestConvertFileDropsFailedRendition(t *testing.T) {
	_, store, converter, _, runner := testSetup(t, false)
	inputDir := t.TempDir()
	source := writeSource(t, inputDir, "show.mkv")
	runner.failLabels["video 0 720p"] = true

	ctx := context.Background()
	item, _ := store.NewFile(ctx, source)
	if err := converter.ConvertFile(ctx, item); err != nil {
		t.Fatalf("ConvertFile: %v", err)
	}

	master, err := os.ReadFile(filepath.Join(inputDir, "show", "master.m3u8"))
	if err != nil {
		t.Fatalf("read master: %v", err)
	}
	if strings.Contains(string(master), "720p") {
		t.Fatalf("dropped rendition still in master:\n%s", master)
	}
	if !strings.Contains(string(master), "480p") {
		t.Fatalf("surviving rendition missing:\n%s", master)
	}
	if item.Status != queue.StatusCompleted {
		t.Fatalf("status = %s, want completed despite drop", item.Status)
	}
	if !strings.Contains(item.ProgressMessage, "dropped") {
		t.Fatalf("message = %q, should mention the drop", item.ProgressMessage)
	}
	if _, err := os.Stat(source); err != nil {
		t.Fatal("source must stay when cleanup is disabled")
	}
}

func TestConvertFilePlansLadderPerVideoTrack(t *testing.T) {
	_, store, converter, prober, runner := testSetup(t, false)
	inputDir := t.TempDir()
	source := writeSource(t, inputDir, "dual.mkv")
	prober.containers["dual.mkv"] = &media.Container{
		Duration: 60,
		Streams: []media.Stream{
			{Type: media.TrackVideo, Codec: "h264", Width: 1280, Height: 720},
			{Type: media.TrackVideo, Codec: "h264", Width: 640, Height: 480},
			{Type: media.TrackAudio, Codec: "ac3", Language: "eng", Default: true},
		},
	}

	ctx := context.Background()
	item, _ := store.NewFile(ctx, source)
	if err := converter.ConvertFile(ctx, item); err != nil {
		t.Fatalf("ConvertFile: %v", err)
	}

	ran := strings.Join(runner.ran, "\n")
	for _, label := range []string{"video 0 720p", "video 0 480p", "video 1 480p", "video 1 240p"} {
		if !strings.Contains(ran, label) {
			t.Fatalf("missing job %q, ran:\n%s", label, ran)
		}
	}
	if strings.Contains(ran, "video 1 720p") {
		t.Fatalf("480p-native track scheduled above its height:\n%s", ran)
	}

	master, err := os.ReadFile(filepath.Join(inputDir, "dual", "master.m3u8"))
	if err != nil {
		t.Fatalf("read master: %v", err)
	}
	if !strings.Contains(string(master), "video_1/480p.m3u8") {
		t.Fatalf("second track missing from master:\n%s", master)
	}
}

func TestConvertFileReportsMasterWriteFailure(t *testing.T) {
	_, store, converter, _, _ := testSetup(t, false)
	inputDir := t.TempDir()
	source := writeSource(t, inputDir, "clip.mkv")
	// A directory squatting on the master path makes the write fail.
	if err := os.MkdirAll(filepath.Join(inputDir, "clip", "master.m3u8"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	ctx := context.Background()
	item, _ := store.NewFile(ctx, source)
	if err := converter.ConvertFile(ctx, item); err != nil {
		t.Fatalf("ConvertFile: %v", err)
	}
	if item.Status != queue.StatusCompleted {
		t.Fatalf("status = %s, manifest trouble must not fail the file", item.Status)
	}
	if !strings.Contains(item.ProgressMessage, "master.m3u8 not written") {
		t.Fatalf("message = %q, should report the missing master", item.ProgressMessage)
	}
}

func TestConvertFileProbeFailureIsFileFatal(t *testing.T) {
	_, store, converter, prober, runner := testSetup(t, false)
	inputDir := t.TempDir()
	source := writeSource(t, inputDir, "broken.mkv")
	prober.failBases["broken.mkv"] = true

	ctx := context.Background()
	item, _ := store.NewFile(ctx, source)
	err := converter.ConvertFile(ctx, item)
	if err == nil {
		t.Fatal("expected probe failure")
	}
	if !services.IsFileFatal(err) {
		t.Fatalf("expected file-fatal classification, got %v", err)
	}
	if len(runner.ran) != 0 {
		t.Fatalf("no jobs should run after probe failure, ran %v", runner.ran)
	}
}

func TestConvertFileAudioOnlySource(t *testing.T) {
	_, store, converter, prober, _ := testSetup(t, false)
	inputDir := t.TempDir()
	source := writeSource(t, inputDir, "podcast.mkv")
	prober.containers["podcast.mkv"] = &media.Container{
		Duration: 30,
		Streams: []media.Stream{
			{Type: media.TrackAudio, Codec: "aac", Language: "eng", Default: true},
		},
	}

	ctx := context.Background()
	item, _ := store.NewFile(ctx, source)
	if err := converter.ConvertFile(ctx, item); err != nil {
		t.Fatalf("ConvertFile: %v", err)
	}

	master, err := os.ReadFile(filepath.Join(inputDir, "podcast", "master.m3u8"))
	if err != nil {
		t.Fatalf("read master: %v", err)
	}
	if strings.Contains(string(master), "STREAM-INF") {
		t.Fatalf("audio-only master should carry no stream entries:\n%s", master)
	}
	if !strings.Contains(string(master), `GROUP-ID="audio"`) {
		t.Fatalf("audio entry missing:\n%s", master)
	}
}

func TestBatchRunContinuesPastFileFailures(t *testing.T) {
	cfg, store, converter, prober, _ := testSetup(t, false)
	inputDir := t.TempDir()
	writeSource(t, inputDir, "good.mkv")
	writeSource(t, inputDir, "broken.mkv")
	writeSource(t, inputDir, "notes.txt")
	prober.failBases["broken.mkv"] = true

	batch := NewBatch(cfg, store, converter, logging.NewNop())
	summary, err := batch.Run(context.Background(), inputDir)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.Discovered != 2 || summary.Succeeded != 1 || summary.Failed != 1 {
		t.Fatalf("summary = %+v", summary)
	}
	if summary.RunID == "" {
		t.Fatal("run id not assigned")
	}

	items, err := store.List(context.Background())
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	statuses := map[queue.Status]int{}
	for _, item := range items {
		statuses[item.Status]++
	}
	if statuses[queue.StatusCompleted] != 1 || statuses[queue.StatusFailed] != 1 {
		t.Fatalf("statuses = %v", statuses)
	}
	for _, item := range items {
		if item.Status == queue.StatusFailed && item.ErrorMessage == "" {
			t.Fatal("failed item lost its error message")
		}
	}
}

func TestBatchRunEmptyDirectory(t *testing.T) {
	cfg, store, converter, _, _ := testSetup(t, false)
	batch := NewBatch(cfg, store, converter, logging.NewNop())
	summary, err := batch.Run(context.Background(), t.TempDir())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.Discovered != 0 {
		t.Fatalf("summary = %+v", summary)
	}
}

func TestDiscoverSourcesMatchesCaseInsensitive(t *testing.T) {
	dir := t.TempDir()
	writeSource(t, dir, "a.MKV")
	writeSource(t, dir, "b.mkv")
	writeSource(t, dir, "c.mp4")
	if err := os.Mkdir(filepath.Join(dir, "nested.mkv"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	sources, err := discoverSources(dir)
	if err != nil {
		t.Fatalf("discoverSources: %v", err)
	}
	if len(sources) != 2 {
		t.Fatalf("sources = %v", sources)
	}
	for _, source := range sources {
		base := filepath.Base(source)
		if base != "a.MKV" && base != "b.mkv" {
			t.Fatalf("unexpected source %s", base)
		}
	}
}
