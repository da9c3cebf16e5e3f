// Package media probes input containers with ffprobe and classifies their
// streams into the per-type track lists the rest of the pipeline consumes.
package media

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"hlspack/internal/services"
)

var probeCommand = func(ctx context.Context, binary, path string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, binary,
		"-v", "error",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		"-i", path,
	)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	output, err := cmd.Output()
	if err != nil {
		detail := strings.TrimSpace(stderr.String())
		if detail != "" {
			return nil, fmt.Errorf("%w: %s", err, detail)
		}
		return nil, err
	}
	return output, nil
}

type probeOutput struct {
	Format  probeFormat   `json:"format"`
	Streams []probeStream `json:"streams"`
}

type probeFormat struct {
	Duration string `json:"duration"`
}

type probeStream struct {
	CodecType   string            `json:"codec_type"`
	CodecName   string            `json:"codec_name"`
	Width       int               `json:"width"`
	Height      int               `json:"height"`
	Tags        map[string]string `json:"tags"`
	Disposition probeDisposition  `json:"disposition"`
}

type probeDisposition struct {
	Default int `json:"default"`
}

// Prober wraps the external ffprobe binary.
type Prober struct {
	binary string
}

// NewProber constructs a Prober for the given binary name.
func NewProber(binary string) *Prober {
	if strings.TrimSpace(binary) == "" {
		binary = "ffprobe"
	}
	return &Prober{binary: binary}
}

// Probe extracts the structured metadata snapshot for one file. A failure
// here is fatal to the file (services.ErrProbe) but never to the batch.
func (p *Prober) Probe(ctx context.Context, path string) (*Container, error) {
	raw, err := probeCommand(ctx, p.binary, path)
	if err != nil {
		return nil, services.Wrap(services.ErrProbe, "probe", "run ffprobe", filepath.Base(path), err)
	}
	return parseContainer(path, raw)
}

func parseContainer(path string, raw []byte) (*Container, error) {
	var out probeOutput
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, services.Wrap(services.ErrProbe, "probe", "decode metadata", filepath.Base(path), err)
	}

	container := &Container{Path: path, raw: raw}
	if dur, err := strconv.ParseFloat(out.Format.Duration, 64); err == nil && dur > 0 {
		container.Duration = dur
	}

	for _, s := range out.Streams {
		stream := Stream{
			Codec:    s.CodecName,
			Width:    s.Width,
			Height:   s.Height,
			Language: strings.TrimSpace(s.Tags["language"]),
			Title:    strings.TrimSpace(s.Tags["title"]),
			Default:  s.Disposition.Default == 1,
		}
		switch s.CodecType {
		case "video":
			stream.Type = TrackVideo
		case "audio":
			stream.Type = TrackAudio
		case "subtitle":
			stream.Type = TrackSubtitle
		default:
			stream.Type = TrackOther
		}
		container.Streams = append(container.Streams, stream)
	}

	return container, nil
}

// WriteInfoJSON persists the raw probe snapshot, indented and escaped to
// plain ASCII so the file is safe to serve alongside the manifests.
func (c *Container) WriteInfoJSON(dir string) error {
	var pretty bytes.Buffer
	if err := json.Indent(&pretty, c.raw, "", "    "); err != nil {
		return fmt.Errorf("indent probe snapshot: %w", err)
	}
	return os.WriteFile(filepath.Join(dir, "info.json"), escapeNonASCII(pretty.Bytes()), 0o644)
}

// escapeNonASCII rewrites multibyte runes as \uXXXX escapes. The input is
// valid JSON, so escaping is only needed inside string values and never
// changes structure.
func escapeNonASCII(in []byte) []byte {
	var b bytes.Buffer
	b.Grow(len(in))
	for _, r := range string(in) {
		if r < 0x80 {
			b.WriteByte(byte(r))
			continue
		}
		if r > 0xFFFF {
			r1, r2 := utf16Split(r)
			fmt.Fprintf(&b, "\\u%04x\\u%04x", r1, r2)
			continue
		}
		fmt.Fprintf(&b, "\\u%04x", r)
	}
	return b.Bytes()
}

func utf16Split(r rune) (rune, rune) {
	r -= 0x10000
	return 0xD800 + (r >> 10), 0xDC00 + (r & 0x3FF)
}
