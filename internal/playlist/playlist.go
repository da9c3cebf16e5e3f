// Package playlist writes the HLS manifests: the per-track subtitle
// playlist and the master playlist tying every surviving rendition
// together.
package playlist

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"hlspack/internal/services"
)

// subtitleTargetSeconds is the nominal duration declared for the single
// caption "segment". Players fetch the whole .vtt regardless, so the value
// only needs to be a valid target duration.
const subtitleTargetSeconds = 10

// VideoRendition is one surviving video rung for the master playlist.
// Width 0 means the encoder derived it, so RESOLUTION is omitted.
type VideoRendition struct {
	URI           string
	Width         int
	Height        int
	BandwidthBits int
}

// AudioRendition is one alternate audio entry.
type AudioRendition struct {
	URI      string
	Name     string
	Language string
	Default  bool
}

// SubtitleRendition is one caption entry. Subtitle tracks are never marked
// DEFAULT so playback starts without captions.
type SubtitleRendition struct {
	URI      string
	Name     string
	Language string
}

// Master collects the renditions in discovery order.
type Master struct {
	Video    []VideoRendition
	Audio    []AudioRendition
	Subtitle []SubtitleRendition
}

// WriteSubtitleManifest writes the single-entry playlist that wraps a
// converted .vtt file.
func WriteSubtitleManifest(path, vttName string) error {
	var b strings.Builder
	b.WriteString("#EXTM3U\n")
	b.WriteString("#EXT-X-VERSION:3\n")
	fmt.Fprintf(&b, "#EXT-X-TARGETDURATION:%d\n", subtitleTargetSeconds)
	b.WriteString("#EXT-X-MEDIA-SEQUENCE:0\n")
	fmt.Fprintf(&b, "#EXTINF:%d.0,\n", subtitleTargetSeconds)
	b.WriteString(vttName + "\n")
	b.WriteString("#EXT-X-ENDLIST\n")

	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return services.Wrap(services.ErrManifest, "assemble", "write subtitle manifest", filepath.Base(path), err)
	}
	return nil
}

// WriteMaster renders and writes master.m3u8 under dir. The master only
// references renditions the caller passes in, so dropped renditions simply
// never appear.
func WriteMaster(dir string, master Master) error {
	path := filepath.Join(dir, "master.m3u8")
	if err := os.WriteFile(path, []byte(Render(master)), 0o644); err != nil {
		return services.Wrap(services.ErrManifest, "assemble", "write master manifest", filepath.Base(path), err)
	}
	return nil
}

// Render produces the master playlist text: alternate audio entries, then
// subtitle entries, a blank separator, then one STREAM-INF block per video
// rendition.
func Render(master Master) string {
	var b strings.Builder
	b.WriteString("#EXTM3U\n")
	b.WriteString("#EXT-X-VERSION:3\n")
	b.WriteString("\n")

	for _, audio := range master.Audio {
		def := "NO"
		if audio.Default {
			def = "YES"
		}
		fmt.Fprintf(&b, "#EXT-X-MEDIA:TYPE=AUDIO,GROUP-ID=\"audio\",NAME=%q,LANGUAGE=%q,DEFAULT=%s,AUTOSELECT=YES,URI=%q\n",
			audio.Name, languageTag(audio.Language), def, audio.URI)
	}
	for _, sub := range master.Subtitle {
		fmt.Fprintf(&b, "#EXT-X-MEDIA:TYPE=SUBTITLES,GROUP-ID=\"subs\",NAME=%q,LANGUAGE=%q,DEFAULT=NO,AUTOSELECT=YES,URI=%q\n",
			sub.Name, languageTag(sub.Language), sub.URI)
	}
	b.WriteString("\n")

	for _, video := range master.Video {
		fmt.Fprintf(&b, "#EXT-X-STREAM-INF:BANDWIDTH=%d", video.BandwidthBits)
		if video.Width > 0 && video.Height > 0 {
			fmt.Fprintf(&b, ",RESOLUTION=%dx%d", video.Width, video.Height)
		}
		if len(master.Audio) > 0 {
			b.WriteString(`,AUDIO="audio"`)
		}
		if len(master.Subtitle) > 0 {
			b.WriteString(`,SUBTITLES="subs"`)
		}
		b.WriteString("\n")
		b.WriteString(video.URI + "\n")
	}

	return b.String()
}

// languageTag falls back to the ISO 639-2 undetermined code for tracks
// that carry no language metadata.
func languageTag(tag string) string {
	if tag == "" {
		return "und"
	}
	return tag
}
