package resource

import (
	"io"
	"path/filepath"

	"github.com/juju/errors"
)

// Locator resolves resource names against a base directory. It holds no
// mutable state and is safe for concurrent use.
type Locator struct {
	base   string
	opener Opener
}

// NewLocator returns a Locator serving resources below base using o to open
// them. A nil Opener uses the operating system.
func NewLocator(base string, o Opener) *Locator {
	if o == nil {
		o = FileSystem{}
	}
	return &Locator{
		base:   base,
		opener: o,
	}
}

// Base returns the base directory
func (l *Locator) Base() string {
	return l.base
}

// Path returns the physical path for the named resource
func (l *Locator) Path(name string) string {
	return filepath.Join(l.base, name)
}

// ResourceList returns the patterns of resource names the locator can serve.
// Any name is attempted so this is always a single wildcard.
func (l *Locator) ResourceList() []string {
	return []string{"*"}
}

// Get returns the data for the named resource.
//
// If stream is true a *Stream is returned without touching the filesystem;
// any failure to open the resource is reported by (*Stream).Open.
//
// Otherwise the resource is read completely and returned as a *Static. A
// resource that cannot be opened returns an error satisfying
// errors.Is(err, errors.NotFound). A reader that supplies fewer bytes than
// its declared size returns an error wrapping io.ErrUnexpectedEOF.
func (l *Locator) Get(name string, stream bool) (Data, error) {
	path := l.Path(name)

	if stream {
		return NewStream(path, l.opener), nil
	}

	r, err := l.opener.Open(path)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	b := make([]byte, r.Size())
	if err := readFull(r, b); err != nil {
		return nil, errors.Annotatef(err, "reading %q", path)
	}

	return NewStatic(path, b), nil
}

func readFull(r io.Reader, b []byte) error {
	_, err := io.ReadFull(r, b)
	if err == io.EOF {
		err = io.ErrUnexpectedEOF
	}
	return err
}
