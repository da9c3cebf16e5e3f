package media

import (
	"fmt"
	"log/slog"

	"hlspack/internal/logging"
)

// Classify partitions the probed streams into ordered per-type track lists,
// assigning each track a dense zero-based index scoped to its type. Streams
// of unsupported types are logged and skipped; classification never fails.
func Classify(container *Container, logger *slog.Logger) Tracks {
	if logger == nil {
		logger = logging.NewNop()
	}

	var tracks Tracks
	for i, stream := range container.Streams {
		switch stream.Type {
		case TrackVideo:
			tracks.Video = append(tracks.Video, newTrack(stream, len(tracks.Video), "Video"))
		case TrackAudio:
			tracks.Audio = append(tracks.Audio, newTrack(stream, len(tracks.Audio), "Audio"))
		case TrackSubtitle:
			tracks.Subtitle = append(tracks.Subtitle, newTrack(stream, len(tracks.Subtitle), "Subtitle"))
		default:
			logger.Warn("skipping unsupported stream type",
				logging.Int("stream_index", i),
				logging.String("codec", stream.Codec),
			)
		}
	}
	return tracks
}

// newTrack derives the display name with the fixed precedence: explicit
// title tag, then language tag, then a generic per-type fallback.
func newTrack(stream Stream, index int, label string) Track {
	name := stream.Title
	if name == "" {
		name = stream.Language
	}
	if name == "" {
		name = fmt.Sprintf("%s %d", label, index)
	}
	return Track{Stream: stream, TypeIndex: index, Name: name}
}
