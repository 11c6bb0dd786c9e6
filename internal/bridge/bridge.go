package bridge

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/gofrs/flock"

	"gpsbridge/internal/logging"
	"gpsbridge/internal/vfs"
)

// DefaultBinary is the converter executable used when none is configured.
const DefaultBinary = "gpsbabel"

// Mode identifies which invocation strategy produced the converted artifact.
type Mode string

const (
	// ModePiped streamed the source file to the converter's standard input.
	ModePiped Mode = "piped"
	// ModeDirect handed the converter the literal source path.
	ModeDirect Mode = "direct"
	// ModeDevice is direct mode against a special (device) source.
	ModeDevice Mode = "device"
)

// Bridge drives one conversion at a time. It exclusively owns its temporary
// artifact and the opened dataset; a Bridge must not be shared across
// goroutines.
type Bridge struct {
	binary      string
	sourceFS    vfs.FS
	openDataset DatasetOpener
	logger      *slog.Logger
	lockDir     string
	durableTemp bool
	tempDir     string

	artifact *tempArtifact
	dataset  Dataset
	layers   []Layer
	mode     Mode
	unlock   func()
}

// Option configures a Bridge.
type Option func(*Bridge)

// WithLogger attaches a logger; a no-op logger is used otherwise.
func WithLogger(logger *slog.Logger) Option {
	return func(b *Bridge) {
		if logger != nil {
			b.logger = logging.NewComponentLogger(logger, "bridge")
		}
	}
}

// WithSourceFS overrides the filesystem regular sources are opened through.
func WithSourceFS(fsys vfs.FS) Option {
	return func(b *Bridge) {
		if fsys != nil {
			b.sourceFS = fsys
		}
	}
}

// WithDatasetOpener overrides the artifact reader (primarily for tests).
func WithDatasetOpener(open DatasetOpener) Option {
	return func(b *Bridge) {
		if open != nil {
			b.openDataset = open
		}
	}
}

// WithDurableTemp writes the converted artifact to a real file under dir
// (or the system temp directory when dir is empty) instead of the hidden
// memory-backed location.
func WithDurableTemp(dir string) Option {
	return func(b *Bridge) {
		b.durableTemp = true
		b.tempDir = dir
	}
}

// WithLockDir overrides where per-device lock files live.
func WithLockDir(dir string) Option {
	return func(b *Bridge) {
		if dir != "" {
			b.lockDir = dir
		}
	}
}

// New constructs a Bridge invoking the given converter binary.
func New(binary string, opts ...Option) *Bridge {
	if strings.TrimSpace(binary) == "" {
		binary = DefaultBinary
	}
	b := &Bridge{
		binary:      binary,
		sourceFS:    vfs.OS{},
		openDataset: openGPXDataset,
		logger:      logging.NewNop(),
		lockDir:     os.TempDir(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Open runs the conversion described by req and loads the resulting layers.
// Reopening an already open bridge tears the previous conversion down first.
// On failure every acquired resource, the temporary artifact included, has
// been released by the time Open returns.
func (b *Bridge) Open(ctx context.Context, req *Request) error {
	if err := b.Close(); err != nil {
		return err
	}

	if !ValidDriverName(req.Driver) {
		b.logger.Error("rejected unsafe driver name", logging.String("driver", req.Driver))
		return newError(KindDriverName, "invalid gpsbabel driver name %q", req.Driver)
	}

	b.artifact = newTempArtifact(b.durableTemp, b.tempDir)

	if err := b.convert(ctx, req); err != nil {
		b.artifact.remove()
		return err
	}

	ds, err := b.openDataset(b.artifact.fs, b.artifact.path)
	if err != nil {
		b.artifact.remove()
		return wrapError(KindEmptyResult, err, "converted artifact is unreadable")
	}

	layers := selectLayers(ds, req)
	if len(layers) == 0 {
		_ = ds.Close()
		b.artifact.remove()
		return newError(KindEmptyResult, "conversion produced no non-empty requested layers")
	}

	b.dataset = ds
	b.layers = layers
	b.logger.Info("conversion complete",
		logging.String("driver", req.Driver),
		logging.String("mode", string(b.mode)),
		logging.Int("layers", len(layers)),
	)
	return nil
}

func (b *Bridge) convert(ctx context.Context, req *Request) error {
	if IsSpecialSource(req.Source) {
		return b.convertDevice(ctx, req)
	}
	return b.convertFile(ctx, req)
}

// convertDevice runs a single direct-mode attempt against a device source,
// holding a per-device lock for the duration: serial GPS receivers only
// tolerate one client.
func (b *Bridge) convertDevice(ctx context.Context, req *Request) error {
	unlock, err := b.lockDevice(req.Source)
	if err != nil {
		return err
	}
	defer unlock()

	out, err := b.attempt(ctx, req, req.Source, nil)
	if err != nil {
		return wrapError(KindConversion, err, "convert %s", req.Source)
	}
	if !out.ok() {
		return newError(KindConversion, "%s", out.diagnostic())
	}
	b.mode = ModeDevice
	return nil
}

// convertFile pipes a regular source through the converter's standard
// input, retrying once in direct mode when the converter refuses piped
// input for the format and the source exists on real storage.
func (b *Bridge) convertFile(ctx context.Context, req *Request) error {
	src, err := b.sourceFS.Open(req.Source)
	if err != nil {
		return wrapError(KindSourceUnreadable, err, "cannot open file %s", req.Source)
	}

	// Quiet first attempt: the refusal diagnostic is captured in the
	// outcome for classification but never surfaced on this path.
	out, runErr := b.attempt(ctx, req, StdinToken, src)
	closeErr := src.Close()
	if runErr != nil {
		return wrapError(KindConversion, runErr, "convert %s", req.Source)
	}
	if closeErr != nil {
		return wrapError(KindSourceUnreadable, closeErr, "close source %s", req.Source)
	}

	policy := newRetryPolicy()
	switch policy.observe(req.Source, true, out) {
	case decisionSuccess:
		b.mode = ModePiped
		return nil
	case decisionNeedsRealFile:
		return newError(KindRequiresRealFile,
			"driver %s only supports real (non virtual) files", req.Driver)
	case decisionRetryDirect:
		b.logger.Debug("converter refused piped input, retrying in direct mode",
			logging.String("driver", req.Driver),
			logging.String("source", req.Source),
		)
	default:
		return newError(KindConversion, "%s", out.diagnostic())
	}

	retryOut, err := b.attempt(ctx, req, req.Source, nil)
	if err != nil {
		return wrapError(KindConversion, err, "convert %s", req.Source)
	}
	if policy.observe(req.Source, false, retryOut) != decisionSuccess {
		return newError(KindConversion, "%s", retryOut.diagnostic())
	}
	b.mode = ModeDirect
	return nil
}

// attempt executes one invocation with the artifact as standard output.
func (b *Bridge) attempt(ctx context.Context, req *Request, inputToken string, stdin io.Reader) (outcome, error) {
	args := BuildArgs(b.binary, req, inputToken)

	w, err := b.artifact.create()
	if err != nil {
		return outcome{}, fmt.Errorf("create temp artifact: %w", err)
	}

	out, runErr := runConverter(ctx, args, stdin, w)
	closeErr := w.Close()
	if runErr != nil {
		return out, runErr
	}
	if closeErr != nil {
		return out, fmt.Errorf("close temp artifact: %w", closeErr)
	}

	b.logger.Debug("converter attempt finished",
		logging.String("input", inputToken),
		logging.Int("exit_code", out.exitCode),
	)
	return out, nil
}

func (b *Bridge) lockDevice(source string) (func(), error) {
	lock := flock.New(filepath.Join(b.lockDir, deviceLockName(source)))
	ok, err := lock.TryLock()
	if err != nil {
		return nil, wrapError(KindDeviceBusy, err, "acquire lock for %s", source)
	}
	if !ok {
		return nil, newError(KindDeviceBusy, "device %s is in use by another conversion", source)
	}
	return func() { _ = lock.Unlock() }, nil
}

func deviceLockName(source string) string {
	mapped := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		default:
			return '-'
		}
	}, source)
	return "gpsbridge-" + mapped + ".lock"
}

// Layers returns the selected layers in dataset order. They remain valid
// until Close.
func (b *Bridge) Layers() []Layer { return b.layers }

// Mode reports which invocation strategy produced the current layers.
func (b *Bridge) Mode() Mode { return b.mode }

// ArtifactPath returns the temporary artifact location of the current
// conversion, mainly for diagnostics. Empty before the first Open.
func (b *Bridge) ArtifactPath() string {
	if b.artifact == nil {
		return ""
	}
	return b.artifact.path
}

// Detach releases the dataset but leaves the artifact in place, returning
// its path. The caller takes ownership of the file. Only meaningful after a
// successful Open in durable-temp mode; memory-backed artifacts vanish with
// the process regardless.
func (b *Bridge) Detach() (string, error) {
	var err error
	if b.dataset != nil {
		err = b.dataset.Close()
		b.dataset = nil
	}
	b.layers = nil
	b.mode = ""
	path := ""
	if b.artifact != nil {
		path = b.artifact.path
		b.artifact = nil
	}
	return path, err
}

// Close releases the dataset and unlinks the temporary artifact. Safe to
// call repeatedly and on a bridge that never opened.
func (b *Bridge) Close() error {
	var err error
	if b.dataset != nil {
		err = b.dataset.Close()
		b.dataset = nil
	}
	b.layers = nil
	b.mode = ""
	b.artifact.remove()
	b.artifact = nil
	return err
}
