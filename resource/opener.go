package resource

import (
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"

	"github.com/juju/errors"
)

// Opener opens the file at path for reading.
type Opener interface {
	Open(path string) (Reader, error)
}

// OpenerFunc adapts an ordinary function to the Opener interface.
type OpenerFunc func(string) (Reader, error)

// Open calls f(path)
func (f OpenerFunc) Open(path string) (Reader, error) {
	return f(path)
}

type file struct {
	fs.File
	size int64
}

func (f *file) Size() int64 {
	return f.size
}

func open(f fs.File, name string) (Reader, error) {
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, errors.Annotatef(err, "stat %q", name)
	}

	if info.IsDir() {
		f.Close()
		return nil, errors.NotFoundf("resource %q (directory)", name)
	}

	return &file{
		File: f,
		size: info.Size(),
	}, nil
}

func notFound(err error, name string) error {
	if errors.Is(err, fs.ErrNotExist) || errors.Is(err, fs.ErrPermission) || errors.Is(err, fs.ErrInvalid) {
		return errors.NewNotFound(err, fmt.Sprintf("resource %q", name))
	}
	return errors.Annotatef(err, "opening %q", name)
}

// FileSystem opens files from the operating system.
type FileSystem struct{}

// Open opens the named file. A missing or unreadable file returns an error
// satisfying errors.Is(err, errors.NotFound).
func (FileSystem) Open(name string) (Reader, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, notFound(err, name)
	}
	return open(f, name)
}

// FS opens files from an fs.FS. Paths are converted to slash-separated form
// and cleaned before being passed to the filesystem.
type FS struct {
	fs.FS
}

// Open opens the named file. A missing or unreadable file returns an error
// satisfying errors.Is(err, errors.NotFound).
func (f FS) Open(name string) (Reader, error) {
	p := path.Clean(filepath.ToSlash(name))
	r, err := f.FS.Open(p)
	if err != nil {
		return nil, notFound(err, name)
	}
	return open(r, name)
}
