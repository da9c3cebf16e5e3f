// Package deps verifies the external tools hlspack orchestrates and probes
// their capabilities before any file is processed.
package deps

import (
	"fmt"
	"os/exec"
	"strings"

	"hlspack/internal/services"
)

// Requirement defines an external dependency hlspack relies on.
type Requirement struct {
	Name        string
	Command     string
	Description string
	Optional    bool
}

// Status reports the availability of a dependency.
type Status struct {
	Name        string
	Command     string
	Description string
	Optional    bool
	Available   bool
	Detail      string
}

// Required returns the binaries a conversion run cannot start without.
func Required() []Requirement {
	return []Requirement{
		{Name: "FFmpeg", Command: "ffmpeg", Description: "Encodes renditions and segments HLS output"},
		{Name: "FFprobe", Command: "ffprobe", Description: "Extracts container and stream metadata"},
	}
}

// CheckBinaries evaluates the provided requirements and reports availability.
func CheckBinaries(requirements []Requirement) []Status {
	results := make([]Status, 0, len(requirements))
	for _, req := range requirements {
		cmd := strings.TrimSpace(req.Command)
		status := Status{
			Name:        req.Name,
			Command:     cmd,
			Description: strings.TrimSpace(req.Description),
			Optional:    req.Optional,
		}
		if cmd == "" {
			status.Available = false
			status.Detail = "command not configured"
			results = append(results, status)
			continue
		}
		if _, err := exec.LookPath(cmd); err != nil {
			status.Available = false
			status.Detail = fmt.Sprintf("binary %q not found", cmd)
			results = append(results, status)
			continue
		}
		status.Available = true
		results = append(results, status)
	}
	return results
}

// Preflight confirms every required binary is present. A missing binary
// aborts the whole run before any file is touched.
func Preflight() error {
	for _, status := range CheckBinaries(Required()) {
		if status.Available || status.Optional {
			continue
		}
		return services.Wrap(services.ErrToolUnavailable, "preflight", "locate binaries", status.Detail, nil)
	}
	return nil
}
