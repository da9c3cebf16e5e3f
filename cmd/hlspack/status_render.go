package main

import (
	"io"
	"os"

	"github.com/mattn/go-isatty"

	"hlspack/internal/queue"
)

const (
	ansiReset  = "\x1b[0m"
	ansiRed    = "\x1b[31m"
	ansiGreen  = "\x1b[32m"
	ansiYellow = "\x1b[33m"
)

// colorizeStatus wraps a status cell in an ANSI color when writing to a
// terminal: green for done, red for failed, yellow for in-flight.
func colorizeStatus(status queue.Status, colorize bool) string {
	label := string(status)
	if !colorize {
		return label
	}
	switch {
	case status == queue.StatusCompleted:
		return ansiGreen + label + ansiReset
	case status == queue.StatusFailed:
		return ansiRed + label + ansiReset
	case queue.Item{Status: status}.IsProcessing():
		return ansiYellow + label + ansiReset
	default:
		return label
	}
}

func shouldColorize(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
