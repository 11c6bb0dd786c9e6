package bridge

import (
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"gpsbridge/internal/vfs"
)

// tempArtifact is the uniquely named output location one conversion writes
// into. It is owned exclusively by its bridge and removed exactly once,
// tolerating the artifact never having been written.
type tempArtifact struct {
	fs      vfs.FS
	path    string
	removed bool
}

// newTempArtifact allocates an artifact location. With durable set the
// artifact is a real file under dir (or the system temp directory), which
// survives for inspection until Close; otherwise it lives in a hidden
// memory-backed path that never touches storage.
func newTempArtifact(durable bool, dir string) *tempArtifact {
	name := uuid.NewString()
	if durable {
		if dir == "" {
			dir = os.TempDir()
		}
		return &tempArtifact{
			fs:   vfs.OS{},
			path: filepath.Join(dir, "gpsbridge-"+name+".gpx"),
		}
	}
	return &tempArtifact{
		fs:   vfs.NewMem(),
		path: "/mem/.gpsbabel-" + name + ".gpx",
	}
}

// create opens the artifact for writing, truncating any previous attempt's
// contents so a retry starts clean.
func (a *tempArtifact) create() (io.WriteCloser, error) {
	return a.fs.Create(a.path)
}

// remove unlinks the artifact. Safe to call when nothing was ever written;
// subsequent calls are no-ops.
func (a *tempArtifact) remove() {
	if a == nil || a.removed {
		return
	}
	a.removed = true
	_ = a.fs.Remove(a.path)
}
