package media

// TrackType tags a stream with its media kind.
type TrackType string

const (
	TrackVideo    TrackType = "video"
	TrackAudio    TrackType = "audio"
	TrackSubtitle TrackType = "subtitle"
	TrackOther    TrackType = "other"
)

// Stream is the typed view of one probed container stream. Title and
// Language are optional; an empty string means the tag was absent.
type Stream struct {
	Type     TrackType
	Codec    string
	Width    int
	Height   int
	Language string
	Title    string
	Default  bool
}

// Container is the immutable probe snapshot of one input file.
type Container struct {
	Path     string
	Duration float64 // seconds; 0 means unknown
	Streams  []Stream

	raw []byte // ffprobe JSON, retained for info.json
}

// HasDuration reports whether the container carried a usable duration.
func (c *Container) HasDuration() bool {
	return c.Duration > 0
}

// Track pairs a stream with its dense type-scoped index and display name.
type Track struct {
	Stream
	TypeIndex int
	Name      string
}

// Tracks holds the classified per-type track lists. Indices within each
// list are dense and zero-based, counted independently per type.
type Tracks struct {
	Video    []Track
	Audio    []Track
	Subtitle []Track
}
