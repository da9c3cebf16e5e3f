package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"hlspack/internal/config"
	"hlspack/internal/queue"
	"hlspack/internal/testsupport"
)

func writeTestConfig(t *testing.T) string {
	t.Helper()
	base := t.TempDir()
	logDir := filepath.Join(base, "logs")
	path := filepath.Join(base, "config.toml")
	content := fmt.Sprintf("[paths]\nlog_dir = %q\n", logDir)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write test config: %v", err)
	}
	return path
}

func runCLI(t *testing.T, configPath string, args ...string) (string, error) {
	t.Helper()
	root := newRootCommand()
	var buf bytes.Buffer
	root.SetOut(&buf)
	root.SetErr(&buf)
	if configPath != "" {
		args = append([]string{"--config", configPath}, args...)
	}
	root.SetArgs(args)
	err := root.Execute()
	return buf.String(), err
}

func requireContains(t *testing.T, haystack, needle string) {
	t.Helper()
	if !strings.Contains(haystack, needle) {
		t.Fatalf("output missing %q:\n%s", needle, haystack)
	}
}

func seedStore(t *testing.T, configPath string, sources ...string) {
	t.Helper()
	cfg, _, _, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	store := testsupport.MustOpenStore(t, cfg)
	for _, source := range sources {
		testsupport.NewFile(t, store, source)
	}
}

func TestConfigInitWritesSample(t *testing.T) {
	target := filepath.Join(t.TempDir(), "config.toml")
	out, err := runCLI(t, "", "config", "init", "--path", target)
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration")

	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected config file at %s: %v", target, err)
	}

	out, err = runCLI(t, "", "config", "init", "--path", target)
	if err == nil {
		t.Fatalf("expected refusal to overwrite, got:\n%s", out)
	}
}

func TestConfigShowHonorsConfigFlag(t *testing.T) {
	base := t.TempDir()
	logDir := filepath.Join(base, "elsewhere")
	configPath := filepath.Join(base, "config.toml")
	content := fmt.Sprintf("[paths]\nlog_dir = %q\n\n[encoding]\npreset = \"veryslow\"\n", logDir)
	if err := os.WriteFile(configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write test config: %v", err)
	}

	out, err := runCLI(t, configPath, "config", "show")
	if err != nil {
		t.Fatalf("config show: %v", err)
	}
	requireContains(t, out, configPath)
	requireContains(t, out, "veryslow")
	requireContains(t, out, logDir)
	if strings.Contains(out, "defaults are shown") {
		t.Fatalf("flagged config treated as missing:\n%s", out)
	}
}

func TestStatusEmptyQueue(t *testing.T) {
	configPath := writeTestConfig(t)
	out, err := runCLI(t, configPath, "status")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	requireContains(t, out, "Queue is empty")
}

func TestStatusListsItems(t *testing.T) {
	configPath := writeTestConfig(t)
	seedStore(t, configPath, "/media/in/movie.mkv")

	out, err := runCLI(t, configPath, "status")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	requireContains(t, out, "movie.mkv")
	requireContains(t, out, string(queue.StatusPending))
}

func TestQueueListFiltersByStatus(t *testing.T) {
	configPath := writeTestConfig(t)
	seedStore(t, configPath, "/media/in/a.mkv", "/media/in/b.mkv")

	out, err := runCLI(t, configPath, "queue", "list", "--status", "pending")
	if err != nil {
		t.Fatalf("queue list: %v", err)
	}
	requireContains(t, out, "/media/in/a.mkv")
	requireContains(t, out, "/media/in/b.mkv")

	out, err = runCLI(t, configPath, "queue", "list", "--status", "completed")
	if err != nil {
		t.Fatalf("queue list completed: %v", err)
	}
	requireContains(t, out, "No matching items")

	if _, err := runCLI(t, configPath, "queue", "list", "--status", "ripping"); err == nil {
		t.Fatal("unknown status should be rejected")
	}
}

func TestQueueClear(t *testing.T) {
	configPath := writeTestConfig(t)
	seedStore(t, configPath, "/media/in/a.mkv")

	out, err := runCLI(t, configPath, "queue", "clear")
	if err != nil {
		t.Fatalf("queue clear: %v", err)
	}
	requireContains(t, out, "Removed 1 item(s)")

	out, err = runCLI(t, configPath, "status")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	requireContains(t, out, "Queue is empty")
}

func TestConvertRejectsMissingDir(t *testing.T) {
	configPath := writeTestConfig(t)
	if _, err := runCLI(t, configPath, "convert", filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Fatal("expected error for missing directory")
	}
}
