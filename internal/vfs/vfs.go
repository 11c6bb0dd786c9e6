package vfs

import (
	"io"
	"io/fs"
	"os"
)

// FS is the storage surface the conversion bridge performs all path I/O
// through. Keeping it narrow lets the bridge run against the real
// filesystem in production and a memory-backed store in tests and for
// hidden temporary artifacts.
type FS interface {
	Open(name string) (fs.File, error)
	Create(name string) (io.WriteCloser, error)
	Stat(name string) (fs.FileInfo, error)
	Remove(name string) error
}

// OS adapts the host filesystem to FS.
type OS struct{}

func (OS) Open(name string) (fs.File, error) {
	return os.Open(name)
}

func (OS) Create(name string) (io.WriteCloser, error) {
	return os.Create(name)
}

func (OS) Stat(name string) (fs.FileInfo, error) {
	return os.Stat(name)
}

func (OS) Remove(name string) error {
	return os.Remove(name)
}

var _ FS = OS{}
