package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gpsbridge/internal/history"
)

func writeCLIConfig(t *testing.T) string {
	t.Helper()
	base := t.TempDir()
	path := filepath.Join(base, "config.toml")
	content := fmt.Sprintf(`
[paths]
log_dir = %q
temp_dir = %q

[history]
enabled = true
path = %q
`,
		filepath.Join(base, "logs"),
		filepath.Join(base, "tmp"),
		filepath.Join(base, "history.db"),
	)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	if configPath != "" {
		args = append([]string{"--config", configPath}, args...)
	}
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, haystack, needle string) {
	t.Helper()
	if !strings.Contains(haystack, needle) {
		t.Fatalf("expected output to contain %q, got:\n%s", needle, haystack)
	}
}

func TestBuildOpenRequest(t *testing.T) {
	req, err := buildOpenRequest("GPSBABEL:garmin_txt:features=waypoints:/data/log.txt", "", "")
	if err != nil {
		t.Fatalf("embedded form: %v", err)
	}
	if req.Driver != "garmin_txt" || req.Source != "/data/log.txt" {
		t.Fatalf("unexpected request: %+v", req)
	}
	if !req.Waypoints || req.Routes || req.Tracks {
		t.Fatalf("features filter not applied: %+v", req)
	}

	req, err = buildOpenRequest("/data/track.gdb", "gdb", "tracks")
	if err != nil {
		t.Fatalf("out-of-band form: %v", err)
	}
	if req.Driver != "gdb" || req.Waypoints || !req.Tracks {
		t.Fatalf("unexpected request: %+v", req)
	}

	if _, err := buildOpenRequest("/data/track.gdb", "", ""); err == nil {
		t.Fatal("expected error when --driver is missing")
	}
	if _, err := buildOpenRequest("GPSBABEL:gdb:/data/track.gdb", "gdb", ""); err == nil {
		t.Fatal("expected error when mixing embedded form with flags")
	}
	if _, err := buildOpenRequest("gpsbabel:gdb:/data/track.gdb", "", ""); err != nil {
		t.Fatalf("scheme should match case-insensitively: %v", err)
	}
}

func TestConfigInitAndValidate(t *testing.T) {
	configPath := writeCLIConfig(t)

	out, _, err := runCLI(t, []string{"config", "validate"}, configPath)
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	requireContains(t, out, "Configuration valid")

	target := filepath.Join(t.TempDir(), "config.toml")
	out, _, err = runCLI(t, []string{"config", "init", "--path", target}, configPath)
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration")

	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected config file at %s: %v", target, err)
	}

	// Re-running without --overwrite must refuse.
	if _, _, err := runCLI(t, []string{"config", "init", "--path", target}, configPath); err == nil {
		t.Fatal("expected error when config already exists")
	}
}

func TestConfigShowEmitsJSON(t *testing.T) {
	configPath := writeCLIConfig(t)

	out, _, err := runCLI(t, []string{"config", "show"}, configPath)
	if err != nil {
		t.Fatalf("config show: %v", err)
	}
	requireContains(t, out, "\"Binary\"")
	requireContains(t, out, "gpsbabel")
}

func TestDevicesClassify(t *testing.T) {
	out, _, err := runCLI(t, []string{"devices", "classify", "/dev/ttyUSB0"}, "")
	if err != nil {
		t.Fatalf("classify device: %v", err)
	}
	requireContains(t, out, "device")

	out, _, err = runCLI(t, []string{"devices", "classify", "/data/track.gdb"}, "")
	if err != nil {
		t.Fatalf("classify file: %v", err)
	}
	requireContains(t, out, "regular file")
}

func TestHistoryCommandListsEntries(t *testing.T) {
	configPath := writeCLIConfig(t)

	out, _, err := runCLI(t, []string{"history"}, configPath)
	if err != nil {
		t.Fatalf("history on empty journal: %v", err)
	}
	requireContains(t, out, "No conversions recorded")

	dbPath := filepath.Join(filepath.Dir(configPath), "history.db")
	store, err := history.Open(context.Background(), dbPath)
	if err != nil {
		t.Fatalf("open journal: %v", err)
	}
	entry := history.Entry{
		Source: "/data/track.gdb",
		Driver: "gdb",
		Mode:   "piped",
		Status: history.StatusOK,
		Layers: "waypoints=2",
	}
	if _, err := store.Record(context.Background(), entry); err != nil {
		t.Fatalf("record entry: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("close journal: %v", err)
	}

	out, _, err = runCLI(t, []string{"history"}, configPath)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	requireContains(t, out, "/data/track.gdb")
	requireContains(t, out, "waypoints=2")

	out, _, err = runCLI(t, []string{"history", "--json"}, configPath)
	if err != nil {
		t.Fatalf("history --json: %v", err)
	}
	requireContains(t, out, "\"Driver\": \"gdb\"")
}

func TestOpenRejectsBadRequests(t *testing.T) {
	configPath := writeCLIConfig(t)

	if _, _, err := runCLI(t, []string{"open", "/data/track.gdb"}, configPath); err == nil {
		t.Fatal("expected error for missing --driver")
	}

	_, _, err := runCLI(t, []string{"open", "--driver", "bad driver", "/data/track.gdb"}, configPath)
	if err == nil {
		t.Fatal("expected error for invalid driver name")
	}
	requireContains(t, err.Error(), "invalid gpsbabel driver name")
}
