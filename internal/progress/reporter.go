package progress

import (
	"bufio"
	"io"
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"hlspack/internal/logging"
)

// timePattern matches the time= field ffmpeg prints on its status lines,
// e.g. "frame= 512 fps=128 ... time=00:01:23.45 bitrate= ...".
var timePattern = regexp.MustCompile(`time=(\d+):(\d{2}):(\d{2})(?:\.(\d+))?`)

// Reporter scans one encoder's stderr, feeding parsed timestamps into the
// registry and retaining the raw output for error reporting.
type Reporter struct {
	registry *Registry
	taskID   string
	logger   *slog.Logger

	captured strings.Builder
}

// NewReporter binds a reporter to a registry task. A nil logger is
// replaced with a no-op one.
func NewReporter(registry *Registry, taskID string, logger *slog.Logger) *Reporter {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Reporter{registry: registry, taskID: taskID, logger: logger}
}

// Consume reads stderr lines until EOF. Lines without a parsable time
// field are logged at debug and skipped; they never fail the job. When the
// stream ends the task is forced to completion, since ffmpeg's final
// status line often stops short of the container duration.
func (r *Reporter) Consume(stderr io.Reader) {
	scanner := bufio.NewScanner(stderr)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	scanner.Split(scanLines)
	for scanner.Scan() {
		line := scanner.Text()
		r.captured.WriteString(line)
		r.captured.WriteByte('\n')

		seconds, ok := parseTime(line)
		if !ok {
			if strings.Contains(line, "time=") {
				r.logger.Debug("unparsable progress line", logging.String("line", line))
			}
			continue
		}
		r.registry.Update(r.taskID, seconds)
	}
	r.registry.Complete(r.taskID)
}

// Output returns everything read from stderr, for attaching to failures.
func (r *Reporter) Output() string {
	return r.captured.String()
}

// parseTime extracts the last time= field on the line as seconds.
func parseTime(line string) (float64, bool) {
	matches := timePattern.FindAllStringSubmatch(line, -1)
	if len(matches) == 0 {
		return 0, false
	}
	m := matches[len(matches)-1]
	hours, _ := strconv.Atoi(m[1])
	minutes, _ := strconv.Atoi(m[2])
	seconds, _ := strconv.Atoi(m[3])
	total := float64(hours*3600 + minutes*60 + seconds)
	if m[4] != "" {
		if frac, err := strconv.ParseFloat("0."+m[4], 64); err == nil {
			total += frac
		}
	}
	return total, true
}

// scanLines splits on \n and \r so ffmpeg's carriage-return status
// updates arrive as individual lines.
func scanLines(data []byte, atEOF bool) (int, []byte, error) {
	for i, b := range data {
		if b == '\n' || b == '\r' {
			return i + 1, data[:i], nil
		}
	}
	if atEOF && len(data) > 0 {
		return len(data), data, nil
	}
	return 0, nil, nil
}
