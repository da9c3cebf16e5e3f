package media

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"hlspack/internal/services"
)

const sampleProbeJSON = `{
  "streams": [
    {"codec_type": "video", "codec_name": "h264", "width": 1920, "height": 1080},
    {"codec_type": "audio", "codec_name": "ac3", "tags": {"language": "eng", "title": "Surround"}, "disposition": {"default": 1}},
    {"codec_type": "audio", "codec_name": "aac", "tags": {"language": "spa"}},
    {"codec_type": "subtitle", "codec_name": "subrip", "tags": {"language": "eng"}},
    {"codec_type": "attachment", "codec_name": "ttf"}
  ],
  "format": {"duration": "120.500000"}
}`

func TestProbeParsesSnapshot(t *testing.T) {
	restore := probeCommand
	defer func() { probeCommand = restore }()
	probeCommand = func(context.Context, string, string) ([]byte, error) {
		return []byte(sampleProbeJSON), nil
	}

	container, err := NewProber("").Probe(context.Background(), "/tmp/movie.mkv")
	if err != nil {
		t.Fatalf("Probe returned error: %v", err)
	}
	if container.Duration != 120.5 {
		t.Fatalf("duration = %v, want 120.5", container.Duration)
	}
	if !container.HasDuration() {
		t.Fatal("expected known duration")
	}
	if len(container.Streams) != 5 {
		t.Fatalf("stream count = %d, want 5", len(container.Streams))
	}
	video := container.Streams[0]
	if video.Type != TrackVideo || video.Width != 1920 || video.Height != 1080 {
		t.Fatalf("unexpected video stream: %+v", video)
	}
	audio := container.Streams[1]
	if audio.Type != TrackAudio || audio.Language != "eng" || audio.Title != "Surround" || !audio.Default {
		t.Fatalf("unexpected audio stream: %+v", audio)
	}
	if container.Streams[4].Type != TrackOther {
		t.Fatalf("attachment should classify as other, got %v", container.Streams[4].Type)
	}
}

func TestProbeFailureIsFileFatal(t *testing.T) {
	restore := probeCommand
	defer func() { probeCommand = restore }()
	probeCommand = func(context.Context, string, string) ([]byte, error) {
		return nil, errors.New("exit status 1: invalid data")
	}

	_, err := NewProber("ffprobe").Probe(context.Background(), "/tmp/broken.mkv")
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, services.ErrProbe) {
		t.Fatalf("expected probe classification, got %v", err)
	}
	if !services.IsFileFatal(err) {
		t.Fatal("probe failure should be file-fatal")
	}
}

func TestProbeRejectsMalformedJSON(t *testing.T) {
	restore := probeCommand
	defer func() { probeCommand = restore }()
	probeCommand = func(context.Context, string, string) ([]byte, error) {
		return []byte("not json"), nil
	}

	if _, err := NewProber("ffprobe").Probe(context.Background(), "/tmp/odd.mkv"); !errors.Is(err, services.ErrProbe) {
		t.Fatalf("expected probe classification, got %v", err)
	}
}

func TestWriteInfoJSONASCIISafe(t *testing.T) {
	raw := []byte(`{"format":{"tags":{"title":"Olá Mundo"}}}`)
	container, err := parseContainer("/tmp/ola.mkv", raw)
	if err != nil {
		t.Fatalf("parseContainer returned error: %v", err)
	}

	dir := t.TempDir()
	if err := container.WriteInfoJSON(dir); err != nil {
		t.Fatalf("WriteInfoJSON returned error: %v", err)
	}

	content, err := os.ReadFile(filepath.Join(dir, "info.json"))
	if err != nil {
		t.Fatalf("read info.json: %v", err)
	}
	for _, b := range content {
		if b >= 0x80 {
			t.Fatalf("info.json contains non-ASCII byte %#x:\n%s", b, content)
		}
	}
	if !strings.Contains(string(content), `Ol\u00e1`) {
		t.Fatalf("expected escaped accent in info.json, got:\n%s", content)
	}
}

func TestClassifyAssignsDenseIndices(t *testing.T) {
	container, err := parseContainer("/tmp/movie.mkv", []byte(sampleProbeJSON))
	if err != nil {
		t.Fatalf("parseContainer returned error: %v", err)
	}

	tracks := Classify(container, nil)
	if len(tracks.Video) != 1 || len(tracks.Audio) != 2 || len(tracks.Subtitle) != 1 {
		t.Fatalf("unexpected track counts: %d/%d/%d", len(tracks.Video), len(tracks.Audio), len(tracks.Subtitle))
	}
	for i, track := range tracks.Audio {
		if track.TypeIndex != i {
			t.Fatalf("audio track %d has index %d", i, track.TypeIndex)
		}
	}
	if tracks.Subtitle[0].TypeIndex != 0 {
		t.Fatalf("subtitle index = %d, want 0", tracks.Subtitle[0].TypeIndex)
	}
}

func TestClassifyDisplayNamePrecedence(t *testing.T) {
	container := &Container{Streams: []Stream{
		{Type: TrackAudio, Title: "Director Commentary", Language: "eng"},
		{Type: TrackAudio, Language: "spa"},
		{Type: TrackAudio},
	}}
	tracks := Classify(container, nil)
	want := []string{"Director Commentary", "spa", "Audio 2"}
	for i, track := range tracks.Audio {
		if track.Name != want[i] {
			t.Fatalf("audio %d name = %q, want %q", i, track.Name, want[i])
		}
	}
}
