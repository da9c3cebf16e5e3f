package deps

import (
	"context"
	"os/exec"
	"strings"
)

var encoderListCommand = func(ctx context.Context) ([]byte, error) {
	return exec.CommandContext(ctx, "ffmpeg", "-hide_banner", "-encoders").Output()
}

// DetectNVENC reports whether the local ffmpeg build exposes the h264_nvenc
// encoder. Probe errors are treated as "not available" so a broken ffmpeg
// surfaces later through the normal preflight path.
func DetectNVENC(ctx context.Context) bool {
	output, err := encoderListCommand(ctx)
	if err != nil {
		return false
	}
	return strings.Contains(string(output), "h264_nvenc")
}

// ResolveHWAccel turns the config hwaccel mode into a concrete decision,
// probing encoder capability once when the mode is "auto".
func ResolveHWAccel(ctx context.Context, mode string) bool {
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "on":
		return true
	case "off":
		return false
	default:
		return DetectNVENC(ctx)
	}
}
