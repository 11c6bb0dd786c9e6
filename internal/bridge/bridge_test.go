package bridge

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"gpsbridge/internal/vfs"
)

const fullGPX = `<?xml version="1.0" encoding="UTF-8"?>
<gpx version="1.1" creator="GPSBabel">
  <wpt lat="47.6" lon="-122.3"><name>Home</name></wpt>
  <wpt lat="47.7" lon="-122.4"><name>Work</name></wpt>
  <rte>
    <name>Commute</name>
    <rtept lat="47.6" lon="-122.3"/>
    <rtept lat="47.7" lon="-122.4"/>
  </rte>
  <trk>
    <name>Run</name>
    <trkseg>
      <trkpt lat="47.61" lon="-122.31"/>
      <trkpt lat="47.62" lon="-122.32"/>
    </trkseg>
  </trk>
</gpx>`

const waypointsOnlyGPX = `<?xml version="1.0" encoding="UTF-8"?>
<gpx version="1.1" creator="GPSBabel">
  <wpt lat="47.6" lon="-122.3"><name>Home</name></wpt>
</gpx>`

const emptyGPX = `<?xml version="1.0" encoding="UTF-8"?>
<gpx version="1.1" creator="GPSBabel"></gpx>`

// converterSpy swaps the process launcher for the test binary and records
// the -f input token of every invocation.
type converterSpy struct {
	inputs []string
}

func installHelper(t *testing.T, mode string) *converterSpy {
	t.Helper()
	spy := &converterSpy{}
	original := commandContext
	commandContext = func(ctx context.Context, name string, args ...string) *exec.Cmd {
		input := ""
		for i, arg := range args {
			if arg == "-f" && i+1 < len(args) {
				input = args[i+1]
				break
			}
		}
		spy.inputs = append(spy.inputs, input)

		cmd := exec.CommandContext(ctx, os.Args[0], "-test.run=TestHelperProcess")
		cmd.Env = append(os.Environ(),
			"GO_WANT_HELPER_PROCESS=1",
			fmt.Sprintf("GPSBRIDGE_HELPER_MODE=%s", mode),
			fmt.Sprintf("GPSBRIDGE_HELPER_INPUT=%s", input),
		)
		return cmd
	}
	t.Cleanup(func() {
		commandContext = original
	})
	return spy
}

func TestHelperProcess(t *testing.T) {
	if os.Getenv("GO_WANT_HELPER_PROCESS") != "1" {
		return
	}

	input := os.Getenv("GPSBRIDGE_HELPER_INPUT")
	switch os.Getenv("GPSBRIDGE_HELPER_MODE") {
	case "gpx":
		fmt.Print(fullGPX)
		os.Exit(0)
	case "waypoints-only":
		fmt.Print(waypointsOnlyGPX)
		os.Exit(0)
	case "empty":
		fmt.Print(emptyGPX)
		os.Exit(0)
	case "refuse-pipe":
		if input == StdinToken {
			fmt.Fprintln(os.Stderr, "GDB: "+pipeRefusedMarker)
			os.Exit(1)
		}
		fmt.Print(fullGPX)
		os.Exit(0)
	case "fail":
		fmt.Fprintln(os.Stderr, "unsupported data in input")
		os.Exit(1)
	default:
		os.Exit(0)
	}
}

func writeSourceFile(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "track.gdb")
	if err := os.WriteFile(path, []byte("vendor binary payload"), 0o644); err != nil {
		t.Fatalf("write source: %v", err)
	}
	return path
}

func layerSummary(layers []Layer) map[string]int {
	summary := make(map[string]int, len(layers))
	for _, layer := range layers {
		summary[layer.Name()] = layer.FeatureCount()
	}
	return summary
}

func TestOpenPipedSuccess(t *testing.T) {
	spy := installHelper(t, "gpx")
	source := writeSourceFile(t)

	br := New("gpsbabel")
	req, err := NewRequest(source, "gdb")
	if err != nil {
		t.Fatalf("NewRequest: %v", err)
	}
	if err := br.Open(context.Background(), req); err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer br.Close()

	if br.Mode() != ModePiped {
		t.Fatalf("mode = %q, want piped", br.Mode())
	}
	if diff := cmp.Diff([]string{StdinToken}, spy.inputs); diff != "" {
		t.Fatalf("unexpected invocations (-want +got):\n%s", diff)
	}

	want := map[string]int{
		"waypoints":    2,
		"routes":       1,
		"route_points": 2,
		"tracks":       1,
		"track_points": 2,
	}
	if diff := cmp.Diff(want, layerSummary(br.Layers())); diff != "" {
		t.Fatalf("layer mismatch (-want +got):\n%s", diff)
	}
}

func TestOpenLayerOrder(t *testing.T) {
	installHelper(t, "gpx")
	source := writeSourceFile(t)

	br := New("gpsbabel")
	req, _ := NewRequest(source, "gdb")
	if err := br.Open(context.Background(), req); err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer br.Close()

	var names []string
	for _, layer := range br.Layers() {
		names = append(names, layer.Name())
	}
	want := []string{"waypoints", "routes", "route_points", "tracks", "track_points"}
	if diff := cmp.Diff(want, names); diff != "" {
		t.Fatalf("layer order mismatch (-want +got):\n%s", diff)
	}
}

func TestOpenRetriesDirectForRealFile(t *testing.T) {
	spy := installHelper(t, "refuse-pipe")
	source := writeSourceFile(t)

	br := New("gpsbabel")
	req, _ := NewRequest(source, "gdb")
	if err := br.Open(context.Background(), req); err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer br.Close()

	if br.Mode() != ModeDirect {
		t.Fatalf("mode = %q, want direct", br.Mode())
	}
	if diff := cmp.Diff([]string{StdinToken, source}, spy.inputs); diff != "" {
		t.Fatalf("expected one piped then one direct attempt (-want +got):\n%s", diff)
	}
}

func TestOpenVirtualSourceDoesNotRetry(t *testing.T) {
	spy := installHelper(t, "refuse-pipe")

	mem := vfs.NewMem()
	mem.WriteFile("/virtual/track.gdb", []byte("payload"))

	br := New("gpsbabel", WithSourceFS(mem))
	req, _ := NewRequest("/virtual/track.gdb", "gdb")
	err := br.Open(context.Background(), req)
	if err == nil {
		t.Fatal("expected failure for virtual source")
	}
	if KindOf(err) != KindRequiresRealFile {
		t.Fatalf("kind = %q, want %q (err: %v)", KindOf(err), KindRequiresRealFile, err)
	}
	if !strings.Contains(err.Error(), "only supports real (non virtual) files") {
		t.Fatalf("unexpected message: %v", err)
	}
	if len(spy.inputs) != 1 {
		t.Fatalf("expected exactly one attempt, got %d", len(spy.inputs))
	}
}

func TestOpenDeviceDirect(t *testing.T) {
	spy := installHelper(t, "gpx")

	br := New("gpsbabel", WithLockDir(t.TempDir()))
	req, err := ParseRequest("GPSBABEL:garmin:usb:")
	if err != nil {
		t.Fatalf("ParseRequest: %v", err)
	}
	if err := br.Open(context.Background(), req); err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer br.Close()

	if br.Mode() != ModeDevice {
		t.Fatalf("mode = %q, want device", br.Mode())
	}
	if diff := cmp.Diff([]string{"usb:"}, spy.inputs); diff != "" {
		t.Fatalf("expected single direct invocation (-want +got):\n%s", diff)
	}
}

func TestOpenConversionFailureSurfacesDiagnostic(t *testing.T) {
	installHelper(t, "fail")
	source := writeSourceFile(t)

	br := New("gpsbabel")
	req, _ := NewRequest(source, "gdb")
	err := br.Open(context.Background(), req)
	if err == nil {
		t.Fatal("expected conversion failure")
	}
	if KindOf(err) != KindConversion {
		t.Fatalf("kind = %q, want %q", KindOf(err), KindConversion)
	}
	if !strings.Contains(err.Error(), "unsupported data in input") {
		t.Fatalf("diagnostic not surfaced verbatim: %v", err)
	}
}

func TestOpenEmptyResult(t *testing.T) {
	installHelper(t, "empty")
	source := writeSourceFile(t)

	br := New("gpsbabel")
	req, _ := NewRequest(source, "gdb")
	err := br.Open(context.Background(), req)
	if KindOf(err) != KindEmptyResult {
		t.Fatalf("kind = %q, want %q (err: %v)", KindOf(err), KindEmptyResult, err)
	}
}

func TestOpenFeatureFilterDropsUnrequestedLayers(t *testing.T) {
	installHelper(t, "gpx")
	source := writeSourceFile(t)

	br := New("gpsbabel")
	req, err := ParseRequest("GPSBABEL:gdb:features=waypoints:" + source)
	if err != nil {
		t.Fatalf("ParseRequest: %v", err)
	}
	if err := br.Open(context.Background(), req); err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer br.Close()

	want := map[string]int{"waypoints": 2}
	if diff := cmp.Diff(want, layerSummary(br.Layers())); diff != "" {
		t.Fatalf("layer mismatch (-want +got):\n%s", diff)
	}
}

func TestOpenDropsEmptyLayers(t *testing.T) {
	installHelper(t, "waypoints-only")
	source := writeSourceFile(t)

	br := New("gpsbabel")
	req, _ := NewRequest(source, "gdb")
	if err := br.Open(context.Background(), req); err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer br.Close()

	want := map[string]int{"waypoints": 1}
	if diff := cmp.Diff(want, layerSummary(br.Layers())); diff != "" {
		t.Fatalf("layer mismatch (-want +got):\n%s", diff)
	}
}

func TestOpenMissingSource(t *testing.T) {
	spy := installHelper(t, "gpx")

	br := New("gpsbabel")
	req, _ := NewRequest(filepath.Join(t.TempDir(), "absent.gdb"), "gdb")
	err := br.Open(context.Background(), req)
	if KindOf(err) != KindSourceUnreadable {
		t.Fatalf("kind = %q, want %q (err: %v)", KindOf(err), KindSourceUnreadable, err)
	}
	if len(spy.inputs) != 0 {
		t.Fatalf("converter must not run for unreadable source, got %d attempts", len(spy.inputs))
	}
}

func TestOpenInvalidDriverNeverSpawns(t *testing.T) {
	spy := installHelper(t, "gpx")

	br := New("gpsbabel")
	req := &Request{Source: "/data/track.gdb", Driver: "gdb; rm -rf /", Waypoints: true}
	err := br.Open(context.Background(), req)
	if KindOf(err) != KindDriverName {
		t.Fatalf("kind = %q, want %q (err: %v)", KindOf(err), KindDriverName, err)
	}
	if len(spy.inputs) != 0 {
		t.Fatalf("converter must not run for invalid driver, got %d attempts", len(spy.inputs))
	}
}

func TestOpenDurableArtifactRemovedOnClose(t *testing.T) {
	installHelper(t, "gpx")
	source := writeSourceFile(t)

	br := New("gpsbabel", WithDurableTemp(t.TempDir()))
	req, _ := NewRequest(source, "gdb")
	if err := br.Open(context.Background(), req); err != nil {
		t.Fatalf("Open: %v", err)
	}

	artifact := br.ArtifactPath()
	if _, err := os.Stat(artifact); err != nil {
		t.Fatalf("expected durable artifact at %q: %v", artifact, err)
	}

	if err := br.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if _, err := os.Stat(artifact); !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("expected artifact removed after Close, stat err: %v", err)
	}
}

func TestOpenFailureRemovesDurableArtifact(t *testing.T) {
	installHelper(t, "fail")
	source := writeSourceFile(t)

	dir := t.TempDir()
	br := New("gpsbabel", WithDurableTemp(dir))
	req, _ := NewRequest(source, "gdb")
	if err := br.Open(context.Background(), req); err == nil {
		t.Fatal("expected failure")
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read temp dir: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected no leftover artifacts, found %d", len(entries))
	}
}

func TestReopenTearsDownPreviousConversion(t *testing.T) {
	installHelper(t, "gpx")
	source := writeSourceFile(t)

	br := New("gpsbabel", WithDurableTemp(t.TempDir()))
	req, _ := NewRequest(source, "gdb")
	if err := br.Open(context.Background(), req); err != nil {
		t.Fatalf("first Open: %v", err)
	}
	firstArtifact := br.ArtifactPath()

	if err := br.Open(context.Background(), req); err != nil {
		t.Fatalf("second Open: %v", err)
	}
	defer br.Close()

	if _, err := os.Stat(firstArtifact); !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("expected first artifact removed on reopen, stat err: %v", err)
	}
	if _, err := os.Stat(br.ArtifactPath()); err != nil {
		t.Fatalf("expected second artifact present: %v", err)
	}
}

func TestOpenSpawnFailure(t *testing.T) {
	source := writeSourceFile(t)

	br := New(filepath.Join(t.TempDir(), "no-such-binary"))
	req, _ := NewRequest(source, "gdb")
	err := br.Open(context.Background(), req)
	if err == nil {
		t.Fatal("expected spawn failure")
	}
	if KindOf(err) != KindConversion {
		t.Fatalf("kind = %q, want %q (err: %v)", KindOf(err), KindConversion, err)
	}
}

func TestDetachKeepsDurableArtifact(t *testing.T) {
	installHelper(t, "gpx")
	source := writeSourceFile(t)

	br := New("gpsbabel", WithDurableTemp(t.TempDir()))
	req, _ := NewRequest(source, "gdb")
	if err := br.Open(context.Background(), req); err != nil {
		t.Fatalf("Open: %v", err)
	}

	path, err := br.Detach()
	if err != nil {
		t.Fatalf("Detach: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected detached artifact to survive: %v", err)
	}

	// Close after Detach must not remove the detached file.
	if err := br.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("artifact removed despite Detach: %v", err)
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	br := New("gpsbabel")
	if err := br.Close(); err != nil {
		t.Fatalf("Close on unopened bridge: %v", err)
	}
	if err := br.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
	if br.Layers() != nil {
		t.Fatal("expected no layers after Close")
	}
}
