package playlist

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"hlspack/internal/services"
)

func sampleMaster() Master {
	return Master{
		Video: []VideoRendition{
			{URI: "video_0/480p.m3u8", Width: 854, Height: 480, BandwidthBits: 1200000},
			{URI: "video_0/720p.m3u8", Width: 1280, Height: 720, BandwidthBits: 2500000},
		},
		Audio: []AudioRendition{
			{URI: "audio_0/audio.m3u8", Name: "Surround", Language: "eng", Default: true},
			{URI: "audio_1/audio.m3u8", Name: "spa", Language: "spa"},
		},
		Subtitle: []SubtitleRendition{
			{URI: "subtitle_0/subtitle.m3u8", Name: "eng", Language: "eng"},
		},
	}
}

func TestRenderSectionOrder(t *testing.T) {
	out := Render(sampleMaster())

	if !strings.HasPrefix(out, "#EXTM3U\n#EXT-X-VERSION:3\n\n") {
		t.Fatalf("bad header:\n%s", out)
	}
	audioAt := strings.Index(out, "TYPE=AUDIO")
	subAt := strings.Index(out, "TYPE=SUBTITLES")
	streamAt := strings.Index(out, "#EXT-X-STREAM-INF")
	if audioAt < 0 || subAt < 0 || streamAt < 0 {
		t.Fatalf("missing section:\n%s", out)
	}
	if !(audioAt < subAt && subAt < streamAt) {
		t.Fatalf("sections out of order (audio=%d sub=%d stream=%d):\n%s", audioAt, subAt, streamAt, out)
	}
	if strings.Count(out, "#EXT-X-STREAM-INF") != 2 {
		t.Fatalf("expected 2 stream entries:\n%s", out)
	}
}

func TestRenderAttributes(t *testing.T) {
	out := Render(sampleMaster())

	if !strings.Contains(out, `NAME="Surround",LANGUAGE="eng",DEFAULT=YES,AUTOSELECT=YES,URI="audio_0/audio.m3u8"`) {
		t.Fatalf("default audio entry malformed:\n%s", out)
	}
	if !strings.Contains(out, `NAME="spa",LANGUAGE="spa",DEFAULT=NO`) {
		t.Fatalf("secondary audio should not be default:\n%s", out)
	}
	if !strings.Contains(out, `GROUP-ID="subs"`) || strings.Contains(out, `TYPE=SUBTITLES,GROUP-ID="subs",NAME="eng",LANGUAGE="eng",DEFAULT=YES`) {
		t.Fatalf("subtitle entry must stay DEFAULT=NO:\n%s", out)
	}
	if !strings.Contains(out, "#EXT-X-STREAM-INF:BANDWIDTH=2500000,RESOLUTION=1280x720,AUDIO=\"audio\",SUBTITLES=\"subs\"\nvideo_0/720p.m3u8\n") {
		t.Fatalf("stream entry malformed:\n%s", out)
	}
}

func TestRenderOmitsUnknownResolutionAndEmptyGroups(t *testing.T) {
	out := Render(Master{
		Video: []VideoRendition{{URI: "video_0/360p.m3u8", Height: 360, BandwidthBits: 800000}},
	})
	if strings.Contains(out, "RESOLUTION=") {
		t.Fatalf("unknown width must omit RESOLUTION:\n%s", out)
	}
	if strings.Contains(out, "AUDIO=") || strings.Contains(out, "SUBTITLES=") {
		t.Fatalf("empty groups must not be referenced:\n%s", out)
	}
}

func TestRenderUntaggedTracksGetUndLanguage(t *testing.T) {
	out := Render(Master{
		Audio:    []AudioRendition{{URI: "audio_0/audio.m3u8", Name: "Audio 0"}},
		Subtitle: []SubtitleRendition{{URI: "subtitle_0/subtitle.m3u8", Name: "Subtitle 0"}},
	})
	if strings.Count(out, `LANGUAGE="und"`) != 2 {
		t.Fatalf("untagged tracks must fall back to und:\n%s", out)
	}
}

func TestRenderDroppedRenditionAbsent(t *testing.T) {
	master := sampleMaster()
	master.Video = master.Video[1:] // 480p failed and was dropped
	out := Render(master)
	if strings.Contains(out, "480p") {
		t.Fatalf("dropped rendition still referenced:\n%s", out)
	}
	if !strings.Contains(out, "720p") {
		t.Fatalf("surviving rendition missing:\n%s", out)
	}
}

func TestWriteSubtitleManifest(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "subtitle.m3u8")
	if err := WriteSubtitleManifest(path, "subtitle.vtt"); err != nil {
		t.Fatalf("WriteSubtitleManifest returned error: %v", err)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read manifest: %v", err)
	}
	want := "#EXTM3U\n#EXT-X-VERSION:3\n#EXT-X-TARGETDURATION:10\n#EXT-X-MEDIA-SEQUENCE:0\n#EXTINF:10.0,\nsubtitle.vtt\n#EXT-X-ENDLIST\n"
	if string(content) != want {
		t.Fatalf("manifest mismatch:\n got %q\nwant %q", content, want)
	}
}

func TestWriteMasterFailureClassification(t *testing.T) {
	err := WriteMaster(filepath.Join(t.TempDir(), "missing", "nested"), Master{})
	if err == nil {
		t.Fatal("expected write failure")
	}
	if !errors.Is(err, services.ErrManifest) {
		t.Fatalf("expected manifest classification, got %v", err)
	}
	if services.IsFileFatal(err) || services.IsRunFatal(err) {
		t.Fatal("manifest failure must not escalate")
	}
}
