// Package ffmpeg plans the encoder invocations for one input file: the
// output directory layout and the full argument vector for every video
// rendition, audio track, and subtitle extraction.
package ffmpeg

import (
	"fmt"
	"path/filepath"
	"strconv"

	"hlspack/internal/ladder"
	"hlspack/internal/media"
)

// JobKind distinguishes the three encoder invocation shapes.
type JobKind string

const (
	JobVideo    JobKind = "video"
	JobAudio    JobKind = "audio"
	JobSubtitle JobKind = "subtitle"
)

// Job is one planned encoder invocation. Args is the complete argument
// vector minus the binary name. Rung is only set for video jobs.
type Job struct {
	Kind  JobKind
	Track media.Track
	Rung  ladder.Rung

	// OutDir is the per-job directory under the file's output root.
	OutDir string
	// PlaylistPath is the media playlist the invocation produces. Subtitle
	// jobs produce a bare .vtt; their playlist is written afterwards.
	PlaylistPath string
	// VTTPath is set for subtitle jobs only.
	VTTPath string

	Args  []string
	Label string
}

// Builder turns classified tracks and their planned ladders into encode
// jobs.
type Builder struct {
	preset           string
	segmentSeconds   int
	audioBitrateKbps int
	nvenc            bool
}

// NewBuilder constructs a Builder. nvenc selects h264_nvenc over libx264
// for video jobs; the caller resolves the hwaccel mode beforehand.
func NewBuilder(preset string, segmentSeconds, audioBitrateKbps int, nvenc bool) *Builder {
	if preset == "" {
		preset = "fast"
	}
	if segmentSeconds <= 0 {
		segmentSeconds = 10
	}
	if audioBitrateKbps <= 0 {
		audioBitrateKbps = 128
	}
	return &Builder{
		preset:           preset,
		segmentSeconds:   segmentSeconds,
		audioBitrateKbps: audioBitrateKbps,
		nvenc:            nvenc,
	}
}

// Plan builds the job list for one input file. root is the per-file output
// directory; every job directory lives directly beneath it. rungsByTrack
// pairs with tracks.Video by index, so each video track encodes the ladder
// planned for its own dimensions. Jobs come out in discovery order: video
// rungs per video track, then audio, then subtitles, matching the order
// the master manifest lists them.
func (b *Builder) Plan(src, root string, tracks media.Tracks, rungsByTrack [][]ladder.Rung) []Job {
	var jobs []Job
	for i, track := range tracks.Video {
		if i >= len(rungsByTrack) {
			break
		}
		dir := filepath.Join(root, fmt.Sprintf("video_%d", track.TypeIndex))
		for _, rung := range rungsByTrack[i] {
			jobs = append(jobs, b.videoJob(src, dir, track, rung))
		}
	}
	for _, track := range tracks.Audio {
		dir := filepath.Join(root, fmt.Sprintf("audio_%d", track.TypeIndex))
		jobs = append(jobs, b.audioJob(src, dir, track))
	}
	for _, track := range tracks.Subtitle {
		dir := filepath.Join(root, fmt.Sprintf("subtitle_%d", track.TypeIndex))
		jobs = append(jobs, b.subtitleJob(src, dir, track))
	}
	return jobs
}

func (b *Builder) videoJob(src, dir string, track media.Track, rung ladder.Rung) Job {
	playlist := filepath.Join(dir, fmt.Sprintf("%dp.m3u8", rung.Height))
	pattern := filepath.Join(dir, fmt.Sprintf("segment_%dp_%%03d.ts", rung.Height))

	args := []string{
		"-y",
		"-i", src,
		"-map", fmt.Sprintf("0:v:%d", track.TypeIndex),
	}
	bitrate := strconv.Itoa(rung.BitrateKbps) + "k"
	if b.nvenc {
		args = append(args,
			"-c:v", "h264_nvenc",
			"-preset", b.preset,
			"-rc:v", "vbr_hq",
			"-b:v", bitrate,
			"-maxrate", bitrate,
			"-bufsize", strconv.Itoa(rung.BitrateKbps*2)+"k",
		)
	} else {
		args = append(args,
			"-c:v", "libx264",
			"-preset", b.preset,
			"-b:v", bitrate,
		)
	}
	args = append(args,
		"-vf", fmt.Sprintf("scale=%d:%d", rung.Width, rung.Height),
		"-pix_fmt", "yuv420p",
	)
	args = append(args, b.hlsArgs(pattern)...)
	args = append(args, playlist)

	return Job{
		Kind:         JobVideo,
		Track:        track,
		Rung:         rung,
		OutDir:       dir,
		PlaylistPath: playlist,
		Args:         args,
		Label:        fmt.Sprintf("video %d %dp", track.TypeIndex, rung.Height),
	}
}

func (b *Builder) audioJob(src, dir string, track media.Track) Job {
	playlist := filepath.Join(dir, "audio.m3u8")
	pattern := filepath.Join(dir, "segment_audio_%03d.ts")

	args := []string{
		"-y",
		"-i", src,
		"-map", fmt.Sprintf("0:a:%d", track.TypeIndex),
		"-c:a", "aac",
		"-b:a", strconv.Itoa(b.audioBitrateKbps) + "k",
	}
	args = append(args, b.hlsArgs(pattern)...)
	args = append(args, playlist)

	return Job{
		Kind:         JobAudio,
		Track:        track,
		OutDir:       dir,
		PlaylistPath: playlist,
		Args:         args,
		Label:        fmt.Sprintf("audio %d (%s)", track.TypeIndex, track.Name),
	}
}

func (b *Builder) subtitleJob(src, dir string, track media.Track) Job {
	vtt := filepath.Join(dir, "subtitle.vtt")

	return Job{
		Kind:         JobSubtitle,
		Track:        track,
		OutDir:       dir,
		PlaylistPath: filepath.Join(dir, "subtitle.m3u8"),
		VTTPath:      vtt,
		Args: []string{
			"-y",
			"-i", src,
			"-map", fmt.Sprintf("0:s:%d", track.TypeIndex),
			"-c:s", "webvtt",
			"-f", "webvtt",
			vtt,
		},
		Label: fmt.Sprintf("subtitle %d (%s)", track.TypeIndex, track.Name),
	}
}

func (b *Builder) hlsArgs(segmentPattern string) []string {
	return []string{
		"-f", "hls",
		"-hls_time", strconv.Itoa(b.segmentSeconds),
		"-hls_playlist_type", "vod",
		"-hls_segment_filename", segmentPattern,
	}
}
